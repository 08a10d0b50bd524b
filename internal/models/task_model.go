package models

import "time"

// ============================================
// Task DTOs
// ============================================

type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	IsMandatory bool    `json:"is_mandatory"`
	CategoryID  *string `json:"category_id"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsMandatory *bool   `json:"is_mandatory"`
	CategoryID  *string `json:"category_id"`
}

type TaskResponse struct {
	ID          string    `json:"id"`
	CategoryID  *string   `json:"category_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsMandatory bool      `json:"is_mandatory"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ============================================
// Assignment DTOs
// ============================================

type AssignTaskRequest struct {
	TaskID         string     `json:"task_id"`
	MemberEmail    string     `json:"member_mail"`
	AssignedPoints int        `json:"assigned_points" binding:"gte=0"`
	PenaltyPoints  int        `json:"penalty_points" binding:"gte=0"`
	Deadline       *time.Time `json:"deadline"`
	Priority       int        `json:"priority"`
}

type ApprovalRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Notes    string `json:"notes"`
}

type CompleteRequest struct {
	Notes string `json:"notes"`
}

type PenaltyRequest struct {
	PenaltyPoints int    `json:"penalty_points" binding:"gte=0"`
	Notes         string `json:"notes"`
}

type AssignmentResponse struct {
	ID                 string     `json:"id"`
	TaskID             string     `json:"task_id"`
	TaskTitle          string     `json:"task_title,omitempty"`
	MemberEmail        string     `json:"member_mail"`
	AssignedBy         string     `json:"assigned_by"`
	AssignedPoints     int        `json:"assigned_points"`
	PenaltyPoints      int        `json:"penalty_points"`
	Deadline           time.Time  `json:"deadline"`
	Priority           int        `json:"priority"`
	AssignmentApproved bool       `json:"assignment_approved"`
	AssignmentApprover *string    `json:"assignment_approver"`
	Status             string     `json:"status"`
	CompletedAt        *time.Time `json:"completed_at"`
	ApprovedBy         *string    `json:"approved_by"`
	ApprovedAt         *time.Time `json:"approved_at"`
	Notes              string     `json:"notes"`
	CreatedAt          time.Time  `json:"created_at"`
}

type PenaltyResponse struct {
	Assignment    AssignmentResponse `json:"assignment"`
	PenaltyPoints int                `json:"penalty_points"`
	PointsApplied int                `json:"points_applied"`
}
