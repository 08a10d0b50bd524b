package models

import "time"

// ============================================
// Wallet DTOs
// ============================================

type ManualAdjustRequest struct {
	MemberEmail string `json:"member_mail"`
	Points      int    `json:"points_amount"`
	Description string `json:"description"`
}

type WalletResponse struct {
	ID          string    `json:"id"`
	MemberEmail string    `json:"member_mail"`
	TotalPoints int       `json:"total_points"`
	LastUpdated time.Time `json:"last_updated"`
}

type AdjustResponse struct {
	Wallet WalletResponse       `json:"wallet"`
	Entry  PointHistoryResponse `json:"history"`
}

type PointHistoryResponse struct {
	ID              string    `json:"id"`
	WalletID        string    `json:"wallet_id"`
	MemberEmail     string    `json:"member_mail"`
	Points          int       `json:"points"`
	RequestedPoints int       `json:"requested_points"`
	Reason          string    `json:"reason_type"`
	TaskRef         *string   `json:"task_ref,omitempty"`
	RedeemRef       *string   `json:"redeem_ref,omitempty"`
	GrantedBy       string    `json:"granted_by"`
	Description     string    `json:"description"`
	CreatedAt       time.Time `json:"created_at"`
}
