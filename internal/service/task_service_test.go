package service

import (
	"sync"
	"testing"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskFixture struct {
	env    *testEnv
	parent Actor
	child  Actor
	task   *repository.Task
}

func newTaskFixture(t *testing.T) *taskFixture {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	child := childOf(env, parent, "kid@example.com")
	task, err := env.svc.Task.CreateTask(env.ctx, parent, CreateTaskInput{Title: "Dishes"})
	require.NoError(t, err)
	return &taskFixture{env: env, parent: parent, child: child, task: task}
}

func (f *taskFixture) assign(by Actor, points, penalty int) *repository.TaskAssignment {
	f.env.t.Helper()
	a, err := f.env.svc.Task.AssignTask(f.env.ctx, by, AssignTaskInput{
		TaskID:         f.task.ID,
		MemberEmail:    f.child.Email,
		AssignedPoints: points,
		PenaltyPoints:  penalty,
		Deadline:       f.env.now.Add(24 * time.Hour),
	})
	require.NoError(f.env.t, err)
	return a
}

func TestTaskWorkflow_HappyPath(t *testing.T) {
	f := newTaskFixture(t)
	ctx := f.env.ctx

	a := f.assign(f.parent, 25, 5)
	assert.True(t, a.AssignmentApproved)
	assert.Equal(t, types.AssignmentAssigned, a.Status)

	a, err := f.env.svc.Task.CompleteAssignment(ctx, f.child, a.ID, "all clean")
	require.NoError(t, err)
	assert.Equal(t, types.AssignmentCompleted, a.Status)
	require.NotNil(t, a.CompletedAt)

	a, err = f.env.svc.Task.ReviewCompletion(ctx, f.parent, a.ID, true, "great job")
	require.NoError(t, err)
	assert.Equal(t, types.AssignmentApproved, a.Status)
	assert.Contains(t, a.Notes, "Approval notes: great job")

	assert.Equal(t, 25, f.env.balance(f.child.Email))
	history, err := f.env.svc.Wallet.MyHistory(ctx, f.child)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, types.ReasonTaskCompletion, history[0].Reason)
	assert.Equal(t, "Task completed: Dishes", history[0].Description)
	require.NotNil(t, history[0].TaskRef)
	assert.Equal(t, a.ID, *history[0].TaskRef)
}

func TestTaskWorkflow_ApproveRequiresCompleted(t *testing.T) {
	f := newTaskFixture(t)
	a := f.assign(f.parent, 10, 0)

	_, err := f.env.svc.Task.ReviewCompletion(f.env.ctx, f.parent, a.ID, true, "")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 0, f.env.balance(f.child.Email))
}

func TestTaskWorkflow_ReapproveFailsWithoutSecondCredit(t *testing.T) {
	f := newTaskFixture(t)
	ctx := f.env.ctx
	a := f.assign(f.parent, 10, 0)
	_, err := f.env.svc.Task.CompleteAssignment(ctx, f.child, a.ID, "")
	require.NoError(t, err)
	_, err = f.env.svc.Task.ReviewCompletion(ctx, f.parent, a.ID, true, "")
	require.NoError(t, err)

	_, err = f.env.svc.Task.ReviewCompletion(ctx, f.parent, a.ID, true, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	history, err := f.env.svc.Wallet.MyHistory(ctx, f.child)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, 10, f.env.balance(f.child.Email))
}

func TestTaskWorkflow_ConcurrentApprovalsCreditOnce(t *testing.T) {
	f := newTaskFixture(t)
	ctx := f.env.ctx
	a := f.assign(f.parent, 10, 0)
	_, err := f.env.svc.Task.CompleteAssignment(ctx, f.child, a.ID, "")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.env.svc.Task.ReviewCompletion(ctx, f.parent, a.ID, true, ""); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrInvalidState)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 10, f.env.balance(f.child.Email))
}

func TestTaskWorkflow_RejectCompletion(t *testing.T) {
	f := newTaskFixture(t)
	ctx := f.env.ctx
	a := f.assign(f.parent, 10, 0)
	_, err := f.env.svc.Task.CompleteAssignment(ctx, f.child, a.ID, "")
	require.NoError(t, err)

	a, err = f.env.svc.Task.ReviewCompletion(ctx, f.parent, a.ID, false, "still dirty")
	require.NoError(t, err)
	assert.Equal(t, types.AssignmentRejected, a.Status)
	assert.Contains(t, a.Notes, "Rejection reason: still dirty")
	assert.Equal(t, 0, f.env.balance(f.child.Email))

	_, err = f.env.svc.Task.CompleteAssignment(ctx, f.child, a.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTaskWorkflow_ChildAssignmentNeedsParentApproval(t *testing.T) {
	f := newTaskFixture(t)
	ctx := f.env.ctx

	a := f.assign(f.child, 10, 0)
	assert.False(t, a.AssignmentApproved)

	_, err := f.env.svc.Task.CompleteAssignment(ctx, f.child, a.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	pending, err := f.env.svc.Task.PendingApprovals(ctx, f.parent)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = f.env.svc.Task.ReviewAssignment(ctx, f.child, a.ID, true)
	assert.ErrorIs(t, err, ErrForbidden)

	approved, err := f.env.svc.Task.ReviewAssignment(ctx, f.parent, a.ID, true)
	require.NoError(t, err)
	assert.True(t, approved.AssignmentApproved)

	_, err = f.env.svc.Task.ReviewAssignment(ctx, f.parent, a.ID, true)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.env.svc.Task.CompleteAssignment(ctx, f.child, a.ID, "")
	assert.NoError(t, err)
}

func TestTaskWorkflow_RejectedAssignmentIsDeleted(t *testing.T) {
	f := newTaskFixture(t)
	ctx := f.env.ctx
	a := f.assign(f.child, 10, 0)

	out, err := f.env.svc.Task.ReviewAssignment(ctx, f.parent, a.ID, false)
	require.NoError(t, err)
	assert.Nil(t, out)

	stored, err := f.env.store.Repos().AssignmentRepo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestTaskWorkflow_OnlyAssigneeCompletes(t *testing.T) {
	f := newTaskFixture(t)
	a := f.assign(f.parent, 10, 0)

	_, err := f.env.svc.Task.CompleteAssignment(f.env.ctx, f.parent, a.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestTaskWorkflow_OtherFamilyIsForbidden(t *testing.T) {
	f := newTaskFixture(t)
	a := f.assign(f.parent, 10, 0)
	outsider := f.env.signUp("outsider@example.com")

	_, err := f.env.svc.Task.ReviewCompletion(f.env.ctx, outsider, a.ID, true, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.env.svc.Task.GetTask(f.env.ctx, outsider, f.task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyPenalty(t *testing.T) {
	f := newTaskFixture(t)
	ctx := f.env.ctx
	f.env.grant(f.parent, f.child.Email, 20)
	a := f.assign(f.parent, 10, 8)

	res, err := f.env.svc.Task.ApplyPenalty(ctx, f.parent, a.ID, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 8, res.Points)
	assert.Equal(t, types.AssignmentLate, res.Assignment.Status)
	assert.Contains(t, res.Assignment.Notes, "Penalty applied: -8 points.")
	assert.Equal(t, 12, f.env.balance(f.child.Email))

	history, err := f.env.svc.Wallet.MyHistory(ctx, f.child)
	require.NoError(t, err)
	assert.Equal(t, types.ReasonPenalty, history[0].Reason)
	assert.Equal(t, "Penalty for task: Dishes", history[0].Description)

	// A late assignment can still be completed.
	_, err = f.env.svc.Task.CompleteAssignment(ctx, f.child, a.ID, "sorry")
	assert.NoError(t, err)

	_, err = f.env.svc.Task.ApplyPenalty(ctx, f.child, a.ID, 5, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestApplyPenalty_RequiresPositivePoints(t *testing.T) {
	f := newTaskFixture(t)
	a := f.assign(f.parent, 10, 0)

	_, err := f.env.svc.Task.ApplyPenalty(f.env.ctx, f.parent, a.ID, 0, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTaskEditPermissions(t *testing.T) {
	f := newTaskFixture(t)
	ctx := f.env.ctx
	title := "Laundry"

	_, err := f.env.svc.Task.UpdateTask(ctx, f.child, f.task.ID, UpdateTaskInput{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	own, err := f.env.svc.Task.CreateTask(ctx, f.child, CreateTaskInput{Title: "Feed cat"})
	require.NoError(t, err)
	updated, err := f.env.svc.Task.UpdateTask(ctx, f.child, own.ID, UpdateTaskInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Laundry", updated.Title)

	assert.ErrorIs(t, f.env.svc.Task.DeleteTask(ctx, f.child, f.task.ID), ErrForbidden)
	assert.NoError(t, f.env.svc.Task.DeleteTask(ctx, f.child, own.ID))
	assert.NoError(t, f.env.svc.Task.DeleteTask(ctx, f.parent, f.task.ID))
}

func TestAssignTask_Validation(t *testing.T) {
	f := newTaskFixture(t)
	ctx := f.env.ctx

	_, err := f.env.svc.Task.AssignTask(ctx, f.parent, AssignTaskInput{TaskID: f.task.ID, MemberEmail: f.child.Email})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.env.svc.Task.AssignTask(ctx, f.parent, AssignTaskInput{
		TaskID: f.task.ID, MemberEmail: "nobody@example.com", AssignedPoints: 5, Deadline: f.env.now,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweepOverdue(t *testing.T) {
	f := newTaskFixture(t)
	ctx := f.env.ctx
	f.env.grant(f.parent, f.child.Email, 10)
	a := f.assign(f.parent, 10, 4)

	moved, err := f.env.svc.Task.SweepOverdue(ctx, 50, true)
	require.NoError(t, err)
	assert.Equal(t, 0, moved)

	f.env.now = f.env.now.Add(48 * time.Hour)
	moved, err = f.env.svc.Task.SweepOverdue(ctx, 50, true)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	stored, err := f.env.store.Repos().AssignmentRepo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AssignmentLate, stored.Status)
	assert.Equal(t, 6, f.env.balance(f.child.Email))

	moved, err = f.env.svc.Task.SweepOverdue(ctx, 50, true)
	require.NoError(t, err)
	assert.Equal(t, 0, moved)
	assert.Equal(t, 6, f.env.balance(f.child.Email))
}

func TestTaskWorkflow_ReviewNotifiesAssignee(t *testing.T) {
	f := newTaskFixture(t)
	ctx := f.env.ctx

	a := f.assign(f.parent, 10, 0)
	_, err := f.env.svc.Task.CompleteAssignment(ctx, f.child, a.ID, "")
	require.NoError(t, err)
	_, err = f.env.svc.Task.ReviewCompletion(ctx, f.parent, a.ID, true, "")
	require.NoError(t, err)

	reviewed := f.env.events.find("task_reviewed")
	require.Len(t, reviewed, 1)
	assert.Equal(t, "member", reviewed[0].room)
	assert.Equal(t, f.child.MemberID, reviewed[0].target)
	assert.Equal(t, types.AssignmentApproved, reviewed[0].payload["status"])

	require.NotEmpty(t, f.env.events.find("points_updated"))
	assert.Equal(t, "family", f.env.events.find("points_updated")[0].room)
}
