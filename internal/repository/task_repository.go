package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/types"
)

// ============================================
// Tasks
// ============================================

const taskColumns = `id, family_id, category_id, title, description, is_mandatory, created_by, created_at, updated_at`

type pgTaskRepository struct {
	db DBTX
}

func scanTask(row rowScanner) (*Task, error) {
	t := &Task{}
	err := row.Scan(
		&t.ID, &t.FamilyID, &t.CategoryID, &t.Title, &t.Description,
		&t.IsMandatory, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *pgTaskRepository) Create(ctx context.Context, task *Task) error {
	query := `
		INSERT INTO tasks (family_id, category_id, title, description, is_mandatory, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		task.FamilyID, task.CategoryID, task.Title, task.Description, task.IsMandatory, task.CreatedBy,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

func (r *pgTaskRepository) FindByID(ctx context.Context, id string) (*Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if notFound(err) {
		return nil, nil
	}
	return t, err
}

func (r *pgTaskRepository) FindByFamily(ctx context.Context, familyID string) ([]*Task, error) {
	rows, err := r.db.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE family_id = $1 ORDER BY created_at DESC`, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *pgTaskRepository) Update(ctx context.Context, task *Task) error {
	query := `
		UPDATE tasks
		SET category_id = $2, title = $3, description = $4, is_mandatory = $5, updated_at = $6
		WHERE id = $1
	`
	task.UpdatedAt = time.Now()
	_, err := r.db.Exec(ctx, query,
		task.ID, task.CategoryID, task.Title, task.Description, task.IsMandatory, task.UpdatedAt,
	)
	return err
}

func (r *pgTaskRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

// ============================================
// Assignments
// ============================================

const assignmentSelect = `
	SELECT a.id, a.family_id, a.task_id, a.assignee_email, a.assigned_by, a.assigned_points,
	       a.penalty_points, a.deadline, a.priority, a.assignment_approved, a.assignment_approver,
	       a.status, a.completed_at, a.approved_by, a.approved_at, a.notes, a.created_at,
	       a.updated_at, t.title
	FROM task_assignments a
	JOIN tasks t ON t.id = a.task_id
`

type pgAssignmentRepository struct {
	db DBTX
}

func scanAssignment(row rowScanner) (*TaskAssignment, error) {
	a := &TaskAssignment{}
	var status string
	err := row.Scan(
		&a.ID, &a.FamilyID, &a.TaskID, &a.AssigneeEmail, &a.AssignedBy, &a.AssignedPoints,
		&a.PenaltyPoints, &a.Deadline, &a.Priority, &a.AssignmentApproved, &a.AssignmentApprover,
		&status, &a.CompletedAt, &a.ApprovedBy, &a.ApprovedAt, &a.Notes, &a.CreatedAt,
		&a.UpdatedAt, &a.TaskTitle,
	)
	if err != nil {
		return nil, err
	}
	a.Status = types.AssignmentStatus(status)
	return a, nil
}

func (r *pgAssignmentRepository) scanAll(ctx context.Context, query string, args ...any) ([]*TaskAssignment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*TaskAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *pgAssignmentRepository) Create(ctx context.Context, a *TaskAssignment) error {
	query := `
		INSERT INTO task_assignments (
			family_id, task_id, assignee_email, assigned_by, assigned_points, penalty_points,
			deadline, priority, assignment_approved, assignment_approver, status, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		a.FamilyID, a.TaskID, a.AssigneeEmail, a.AssignedBy, a.AssignedPoints, a.PenaltyPoints,
		a.Deadline, a.Priority, a.AssignmentApproved, a.AssignmentApprover, string(a.Status), a.Notes,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *pgAssignmentRepository) FindByID(ctx context.Context, id string) (*TaskAssignment, error) {
	a, err := scanAssignment(r.db.QueryRow(ctx, assignmentSelect+`WHERE a.id = $1`, id))
	if notFound(err) {
		return nil, nil
	}
	return a, err
}

func (r *pgAssignmentRepository) FindByIDForUpdate(ctx context.Context, id string) (*TaskAssignment, error) {
	a, err := scanAssignment(r.db.QueryRow(ctx, assignmentSelect+`WHERE a.id = $1 FOR UPDATE OF a`, id))
	if notFound(err) {
		return nil, nil
	}
	return a, err
}

func (r *pgAssignmentRepository) List(ctx context.Context, filter AssignmentFilter) ([]*TaskAssignment, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.FamilyID != "" {
		add("a.family_id = $%d", filter.FamilyID)
	}
	if filter.AssigneeEmail != "" {
		add("LOWER(a.assignee_email) = LOWER($%d)", filter.AssigneeEmail)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		add("a.status = ANY($%d)", statuses)
	}
	if filter.Approved != nil {
		add("a.assignment_approved = $%d", *filter.Approved)
	}

	query := assignmentSelect
	if len(conds) > 0 {
		query += "WHERE " + strings.Join(conds, " AND ")
	}
	if filter.ByDeadline {
		query += " ORDER BY a.deadline ASC, a.id"
	} else {
		query += " ORDER BY a.created_at DESC, a.id"
	}
	return r.scanAll(ctx, query, args...)
}

func (r *pgAssignmentRepository) FindOverdue(ctx context.Context, now time.Time, limit int) ([]*TaskAssignment, error) {
	query := assignmentSelect + `
		WHERE a.status = $1 AND a.assignment_approved = TRUE AND a.deadline < $2
		ORDER BY a.deadline ASC
		LIMIT $3
	`
	return r.scanAll(ctx, query, string(types.AssignmentAssigned), now, limit)
}

func (r *pgAssignmentRepository) Update(ctx context.Context, a *TaskAssignment, expected types.AssignmentStatus) error {
	query := `
		UPDATE task_assignments
		SET assigned_points = $3, penalty_points = $4, deadline = $5, priority = $6,
		    assignment_approved = $7, assignment_approver = $8, status = $9, completed_at = $10,
		    approved_by = $11, approved_at = $12, notes = $13, updated_at = $14
		WHERE id = $1 AND status = $2
	`
	a.UpdatedAt = time.Now()
	tag, err := r.db.Exec(ctx, query,
		a.ID, string(expected), a.AssignedPoints, a.PenaltyPoints, a.Deadline, a.Priority,
		a.AssignmentApproved, a.AssignmentApprover, string(a.Status), a.CompletedAt,
		a.ApprovedBy, a.ApprovedAt, a.Notes, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

func (r *pgAssignmentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM task_assignments WHERE id = $1`, id)
	return err
}
