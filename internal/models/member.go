package models

import "time"

// ============================================
// Member DTOs
// ============================================

type CreateMemberRequest struct {
	Email      string     `json:"mail"`
	Username   string     `json:"username"`
	MemberType string     `json:"member_type"`
	BirthDate  *time.Time `json:"birth_date"`
	Password   string     `json:"password"`
}

type SetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

type MemberResponse struct {
	ID           string     `json:"id"`
	FamilyID     string     `json:"family_id"`
	MemberTypeID string     `json:"member_type_id"`
	MemberType   string     `json:"member_type"`
	Role         string     `json:"role"`
	Email        string     `json:"mail"`
	Username     string     `json:"username"`
	BirthDate    *time.Time `json:"birth_date,omitempty"`
	IsFirstLogin bool       `json:"is_first_login"`
	HasPassword  bool       `json:"has_password"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ============================================
// Member Type DTOs
// ============================================

type CreateMemberTypeRequest struct {
	Type        string   `json:"type" binding:"notblank"`
	Permissions []string `json:"permissions"`
}

type SetPermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"required"`
}

type MemberTypeResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"type"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// ============================================
// Category DTOs
// ============================================

type CategoryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type CategoryResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
