// Package models holds the JSON request and response shapes of the API.
// Field names are snake_case to match the web client.
package models

import "time"

// ============================================
// Envelope
// ============================================

type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Field   string      `json:"field,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ============================================
// Auth DTOs
// ============================================

type SignUpRequest struct {
	Title     string     `json:"title"`
	Email     string     `json:"mail"`
	Password  string     `json:"password"`
	Username  string     `json:"username"`
	BirthDate *time.Time `json:"birth_date"`
}

type LoginRequest struct {
	Email    string `json:"mail" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"mail" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Family       FamilyResponse `json:"family"`
	Member       MemberResponse `json:"member"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ============================================
// Family DTOs
// ============================================

type FamilyResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Email     string    `json:"mail"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type DeactivateFamilyRequest struct {
	Email    string `json:"mail" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
