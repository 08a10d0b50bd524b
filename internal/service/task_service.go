package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/metrics"
	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/types"
	"github.com/sirupsen/logrus"
)

// ============================================
// Task Service
// ============================================

type CreateTaskInput struct {
	CategoryID  *string
	Title       string
	Description string
	IsMandatory bool
}

type UpdateTaskInput struct {
	CategoryID  *string
	Title       *string
	Description *string
	IsMandatory *bool
}

type AssignTaskInput struct {
	TaskID         string
	MemberEmail    string
	AssignedPoints int
	PenaltyPoints  int
	Deadline       time.Time
	Priority       int
}

type PenaltyResult struct {
	Assignment *repository.TaskAssignment
	Points     int
	Applied    int
}

type TaskService interface {
	CreateTask(ctx context.Context, actor Actor, in CreateTaskInput) (*repository.Task, error)
	ListTasks(ctx context.Context, actor Actor) ([]*repository.Task, error)
	GetTask(ctx context.Context, actor Actor, id string) (*repository.Task, error)
	UpdateTask(ctx context.Context, actor Actor, id string, in UpdateTaskInput) (*repository.Task, error)
	DeleteTask(ctx context.Context, actor Actor, id string) error

	AssignTask(ctx context.Context, actor Actor, in AssignTaskInput) (*repository.TaskAssignment, error)
	// ReviewAssignment returns nil when a rejection removed the assignment.
	ReviewAssignment(ctx context.Context, actor Actor, id string, approved bool) (*repository.TaskAssignment, error)
	CompleteAssignment(ctx context.Context, actor Actor, id, notes string) (*repository.TaskAssignment, error)
	ReviewCompletion(ctx context.Context, actor Actor, id string, approved bool, notes string) (*repository.TaskAssignment, error)
	ApplyPenalty(ctx context.Context, actor Actor, id string, points int, notes string) (*PenaltyResult, error)

	PendingApprovals(ctx context.Context, actor Actor) ([]*repository.TaskAssignment, error)
	MyAssignments(ctx context.Context, actor Actor) ([]*repository.TaskAssignment, error)
	ApprovedAssignments(ctx context.Context, actor Actor) ([]*repository.TaskAssignment, error)
	AwaitingReview(ctx context.Context, actor Actor) ([]*repository.TaskAssignment, error)

	SweepOverdue(ctx context.Context, limit int, penalize bool) (int, error)
}

type taskService struct {
	store   repository.Store
	ledger  *ledger
	events  EventPublisher
	metrics *metrics.Metrics
	clock   func() time.Time
	log     *logrus.Entry
}

func NewTaskService(deps *ServiceDeps, l *ledger) TaskService {
	return &taskService{
		store:   deps.Store,
		ledger:  l,
		events:  deps.Events,
		metrics: deps.Metrics,
		clock:   deps.Clock,
		log:     deps.Logger.Component("Task"),
	}
}

func (s *taskService) taskInFamily(ctx context.Context, repos *repository.Repositories, actor Actor, id string) (*repository.Task, error) {
	if err := checkID(id, "Task"); err != nil {
		return nil, err
	}
	task, err := repos.TaskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil || task.FamilyID != actor.FamilyID {
		return nil, notFoundf("Task not found")
	}
	return task, nil
}

func (s *taskService) checkTaskCategory(ctx context.Context, repos *repository.Repositories, actor Actor, categoryID *string) error {
	if categoryID == nil || *categoryID == "" {
		return nil
	}
	_, err := categoryInFamily(ctx, repos, actor.FamilyID, types.CategoryTask, *categoryID)
	return err
}

func (s *taskService) CreateTask(ctx context.Context, actor Actor, in CreateTaskInput) (*repository.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationf("Please provide the task title")
	}
	repos := s.store.Repos()
	if err := s.checkTaskCategory(ctx, repos, actor, in.CategoryID); err != nil {
		return nil, err
	}
	if in.CategoryID != nil && *in.CategoryID == "" {
		in.CategoryID = nil
	}

	task := &repository.Task{
		FamilyID:    actor.FamilyID,
		CategoryID:  in.CategoryID,
		Title:       title,
		Description: in.Description,
		IsMandatory: in.IsMandatory,
		CreatedBy:   actor.MemberID,
	}
	if err := repos.TaskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

func (s *taskService) ListTasks(ctx context.Context, actor Actor) ([]*repository.Task, error) {
	return s.store.Repos().TaskRepo.FindByFamily(ctx, actor.FamilyID)
}

func (s *taskService) GetTask(ctx context.Context, actor Actor, id string) (*repository.Task, error) {
	return s.taskInFamily(ctx, s.store.Repos(), actor, id)
}

func canManageTask(actor Actor, task *repository.Task) bool {
	return actor.IsParent() || task.CreatedBy == actor.MemberID
}

func (s *taskService) UpdateTask(ctx context.Context, actor Actor, id string, in UpdateTaskInput) (*repository.Task, error) {
	repos := s.store.Repos()
	task, err := s.taskInFamily(ctx, repos, actor, id)
	if err != nil {
		return nil, err
	}
	if !canManageTask(actor, task) {
		return nil, forbiddenf("Only parents or the task creator can edit this task")
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, validationf("Task title cannot be empty")
		}
		task.Title = title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.IsMandatory != nil {
		task.IsMandatory = *in.IsMandatory
	}
	if in.CategoryID != nil {
		if *in.CategoryID == "" {
			task.CategoryID = nil
		} else {
			if err := s.checkTaskCategory(ctx, repos, actor, in.CategoryID); err != nil {
				return nil, err
			}
			task.CategoryID = in.CategoryID
		}
	}

	if err := repos.TaskRepo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) DeleteTask(ctx context.Context, actor Actor, id string) error {
	repos := s.store.Repos()
	task, err := s.taskInFamily(ctx, repos, actor, id)
	if err != nil {
		return err
	}
	if !canManageTask(actor, task) {
		return forbiddenf("Only parents or the task creator can delete this task")
	}
	return repos.TaskRepo.Delete(ctx, task.ID)
}

// ============================================
// Assignment workflow
// ============================================

func (s *taskService) AssignTask(ctx context.Context, actor Actor, in AssignTaskInput) (*repository.TaskAssignment, error) {
	if in.TaskID == "" || in.MemberEmail == "" || in.AssignedPoints == 0 || in.Deadline.IsZero() {
		return nil, validationf("Please provide task_id, member_mail, assigned_points, and deadline")
	}
	if in.AssignedPoints < 0 {
		return nil, validationf("Assigned points must be greater than zero")
	}
	if in.PenaltyPoints < 0 {
		return nil, validationf("Penalty points cannot be negative")
	}
	if in.Priority < 0 {
		return nil, validationf("Priority cannot be negative")
	}

	repos := s.store.Repos()
	task, err := s.taskInFamily(ctx, repos, actor, in.TaskID)
	if err != nil {
		return nil, err
	}
	assignee, err := memberInFamily(ctx, repos, actor.FamilyID, in.MemberEmail)
	if err != nil {
		return nil, err
	}

	a := &repository.TaskAssignment{
		FamilyID:       actor.FamilyID,
		TaskID:         task.ID,
		AssigneeEmail:  assignee.Email,
		AssignedBy:     actor.Email,
		AssignedPoints: in.AssignedPoints,
		PenaltyPoints:  in.PenaltyPoints,
		Deadline:       in.Deadline.UTC(),
		Priority:       in.Priority,
		Status:         types.AssignmentAssigned,
	}
	// Assignments made by non-parents wait for a parent before they count.
	if actor.IsParent() {
		a.AssignmentApproved = true
		approver := actor.Email
		a.AssignmentApprover = &approver
	}

	if err := repos.AssignmentRepo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	a.TaskTitle = task.Title

	s.metrics.ObserveTransition("assignment", string(a.Status))
	s.events.PublishToFamily(actor.FamilyID, "task_assigned", map[string]interface{}{
		"assignment_id": a.ID,
		"task_title":    task.Title,
		"member_mail":   a.AssigneeEmail,
		"approved":      a.AssignmentApproved,
	})
	return a, nil
}

// lockAssignment loads an assignment of the actor's family with a row lock.
func lockAssignment(ctx context.Context, repos *repository.Repositories, actor Actor, id string) (*repository.TaskAssignment, error) {
	if err := checkID(id, "Task assignment"); err != nil {
		return nil, err
	}
	a, err := repos.AssignmentRepo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, notFoundf("Task assignment not found")
	}
	if a.FamilyID != actor.FamilyID {
		return nil, forbiddenf("This task doesn't belong to your family")
	}
	return a, nil
}

func (s *taskService) ReviewAssignment(ctx context.Context, actor Actor, id string, approved bool) (*repository.TaskAssignment, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}

	var out *repository.TaskAssignment
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		a, err := lockAssignment(ctx, repos, actor, id)
		if err != nil {
			return err
		}
		if a.AssignmentApproved {
			return statef("This task assignment is already approved")
		}
		if !approved {
			return repos.AssignmentRepo.Delete(ctx, a.ID)
		}

		a.AssignmentApproved = true
		approver := actor.Email
		a.AssignmentApprover = &approver
		if err := repos.AssignmentRepo.Update(ctx, a, a.Status); err != nil {
			return stale(err, "This task assignment was changed by someone else")
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := "assignment_rejected"
	if out != nil {
		event = "assignment_approved"
	}
	s.events.PublishToFamily(actor.FamilyID, event, map[string]interface{}{"assignment_id": id})
	return out, nil
}

func (s *taskService) CompleteAssignment(ctx context.Context, actor Actor, id, notes string) (*repository.TaskAssignment, error) {
	var out *repository.TaskAssignment
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		a, err := lockAssignment(ctx, repos, actor, id)
		if err != nil {
			return err
		}
		if !strings.EqualFold(a.AssigneeEmail, actor.Email) {
			return forbiddenf("You can only complete tasks assigned to you")
		}
		if !a.AssignmentApproved {
			return statef("This task assignment is not yet approved")
		}
		if a.Status == types.AssignmentApproved {
			return statef("This task is already approved")
		}
		if !a.Status.CanTransitionTo(types.AssignmentCompleted) {
			return statef("This task cannot be completed while it is %s", a.Status)
		}

		expected := a.Status
		completedAt := s.clock().UTC()
		a.Status = types.AssignmentCompleted
		a.CompletedAt = &completedAt
		if notes != "" {
			a.Notes = notes
		}
		if err := repos.AssignmentRepo.Update(ctx, a, expected); err != nil {
			return stale(err, "This task assignment was changed by someone else")
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition("assignment", string(out.Status))
	s.events.PublishToFamily(actor.FamilyID, "task_completed", map[string]interface{}{
		"assignment_id": out.ID,
		"task_title":    out.TaskTitle,
		"member_mail":   out.AssigneeEmail,
	})
	return out, nil
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

// ReviewCompletion approves or rejects a completed assignment. Approval
// credits the assignee inside the same transaction as the status change,
// and the status update is guarded so a second approver loses.
func (s *taskService) ReviewCompletion(ctx context.Context, actor Actor, id string, approved bool, notes string) (*repository.TaskAssignment, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}

	var (
		out    *repository.TaskAssignment
		credit *AdjustResult
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		a, err := lockAssignment(ctx, repos, actor, id)
		if err != nil {
			return err
		}
		if a.Status != types.AssignmentCompleted {
			return statef("Task is not marked as completed")
		}

		at := s.clock().UTC()
		approver := actor.Email
		a.ApprovedBy = &approver
		a.ApprovedAt = &at
		if approved {
			a.Status = types.AssignmentApproved
			if notes != "" {
				a.Notes = appendNote(a.Notes, "Approval notes: "+notes)
			}
		} else {
			a.Status = types.AssignmentRejected
			if notes != "" {
				a.Notes = appendNote(a.Notes, "Rejection reason: "+notes)
			}
		}
		if err := repos.AssignmentRepo.Update(ctx, a, types.AssignmentCompleted); err != nil {
			return stale(err, "Task is not marked as completed")
		}

		if approved {
			ref := a.ID
			credit, err = s.ledger.adjustTx(ctx, repos, AdjustInput{
				FamilyID:    actor.FamilyID,
				MemberEmail: a.AssigneeEmail,
				Delta:       a.AssignedPoints,
				Reason:      types.ReasonTaskCompletion,
				GrantedBy:   actor.Email,
				Description: "Task completed: " + a.TaskTitle,
				TaskRef:     &ref,
			})
			if err != nil {
				return err
			}
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.ledger.committed(ctx, credit)
	s.metrics.ObserveTransition("assignment", string(out.Status))
	publishToMemberEmail(ctx, s.store.Repos(), s.events, out.AssigneeEmail, "task_reviewed", map[string]interface{}{
		"assignment_id": out.ID,
		"status":        out.Status,
		"member_mail":   out.AssigneeEmail,
	})
	return out, nil
}

func (s *taskService) ApplyPenalty(ctx context.Context, actor Actor, id string, points int, notes string) (*PenaltyResult, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	if points < 0 {
		return nil, validationf("Please provide valid penalty_points")
	}

	var (
		out   *repository.TaskAssignment
		debit *AdjustResult
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		a, err := lockAssignment(ctx, repos, actor, id)
		if err != nil {
			return err
		}
		if points == 0 {
			points = a.PenaltyPoints
		}
		if points <= 0 {
			return validationf("Please provide valid penalty_points")
		}

		description := notes
		if description == "" {
			description = "Penalty for task: " + a.TaskTitle
		}
		ref := a.ID
		debit, err = s.ledger.adjustTx(ctx, repos, AdjustInput{
			FamilyID:    actor.FamilyID,
			MemberEmail: a.AssigneeEmail,
			Delta:       -points,
			Reason:      types.ReasonPenalty,
			GrantedBy:   actor.Email,
			Description: description,
			TaskRef:     &ref,
		})
		if err != nil {
			return err
		}

		expected := a.Status
		if a.Status == types.AssignmentAssigned {
			a.Status = types.AssignmentLate
		}
		line := fmt.Sprintf("Penalty applied: -%d points.", points)
		if notes != "" {
			line += " " + notes
		}
		a.Notes = appendNote(a.Notes, line)
		if err := repos.AssignmentRepo.Update(ctx, a, expected); err != nil {
			return stale(err, "This task assignment was changed by someone else")
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.ledger.committed(ctx, debit)
	s.metrics.ObserveTransition("assignment", string(out.Status))
	return &PenaltyResult{Assignment: out, Points: points, Applied: -debit.Entry.Points}, nil
}

func (s *taskService) PendingApprovals(ctx context.Context, actor Actor) ([]*repository.TaskAssignment, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	approved := false
	return s.store.Repos().AssignmentRepo.List(ctx, repository.AssignmentFilter{
		FamilyID: actor.FamilyID,
		Approved: &approved,
	})
}

func (s *taskService) MyAssignments(ctx context.Context, actor Actor) ([]*repository.TaskAssignment, error) {
	return s.store.Repos().AssignmentRepo.List(ctx, repository.AssignmentFilter{
		FamilyID:      actor.FamilyID,
		AssigneeEmail: actor.Email,
		ByDeadline:    true,
	})
}

func (s *taskService) ApprovedAssignments(ctx context.Context, actor Actor) ([]*repository.TaskAssignment, error) {
	approved := true
	return s.store.Repos().AssignmentRepo.List(ctx, repository.AssignmentFilter{
		FamilyID: actor.FamilyID,
		Approved: &approved,
	})
}

func (s *taskService) AwaitingReview(ctx context.Context, actor Actor) ([]*repository.TaskAssignment, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	return s.store.Repos().AssignmentRepo.List(ctx, repository.AssignmentFilter{
		FamilyID: actor.FamilyID,
		Statuses: []types.AssignmentStatus{types.AssignmentCompleted},
	})
}

// SweepOverdue moves approved assignments past their deadline to late,
// optionally charging their penalty points. Each assignment gets its own
// transaction so one failure does not stall the batch.
func (s *taskService) SweepOverdue(ctx context.Context, limit int, penalize bool) (int, error) {
	overdue, err := s.store.Repos().AssignmentRepo.FindOverdue(ctx, s.clock().UTC(), limit)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, candidate := range overdue {
		var (
			debit   *AdjustResult
			changed bool
		)
		err := s.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
			a, err := repos.AssignmentRepo.FindByIDForUpdate(ctx, candidate.ID)
			if err != nil || a == nil || a.Status != types.AssignmentAssigned {
				return err
			}
			changed = true

			a.Status = types.AssignmentLate
			if penalize && a.PenaltyPoints > 0 {
				ref := a.ID
				debit, err = s.ledger.adjustTx(ctx, repos, AdjustInput{
					FamilyID:    a.FamilyID,
					MemberEmail: a.AssigneeEmail,
					Delta:       -a.PenaltyPoints,
					Reason:      types.ReasonPenalty,
					GrantedBy:   "system",
					Description: "Missed deadline: " + a.TaskTitle,
					TaskRef:     &ref,
				})
				if err != nil {
					return err
				}
				a.Notes = appendNote(a.Notes, fmt.Sprintf("Penalty applied: -%d points. Deadline missed.", a.PenaltyPoints))
			}
			return repos.AssignmentRepo.Update(ctx, a, types.AssignmentAssigned)
		})
		if err != nil {
			s.log.WithError(err).WithField("assignment", candidate.ID).Warn("failed to mark assignment late")
			continue
		}
		if !changed {
			continue
		}
		s.ledger.committed(ctx, debit)
		s.metrics.ObserveTransition("assignment", string(types.AssignmentLate))
		moved++
	}
	return moved, nil
}
