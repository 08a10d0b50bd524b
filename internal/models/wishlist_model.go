package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================
// Wishlist DTOs
// ============================================

type WishlistItemRequest struct {
	ItemName       string `json:"item_name"`
	Description    string `json:"description"`
	RequiredPoints int    `json:"required_points" binding:"gte=0"`
	CategoryID     string `json:"category_id"`
	Priority       int    `json:"priority"`
}

type UpdateWishlistItemRequest struct {
	ItemName       *string `json:"item_name"`
	Description    *string `json:"description"`
	RequiredPoints *int    `json:"required_points"`
	CategoryID     *string `json:"category_id"`
	Priority       *int    `json:"priority"`
}

type ItemPriorityRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Priority int    `json:"priority"`
}

type PrioritizeRequest struct {
	ItemPriorities []ItemPriorityRequest `json:"item_priorities" binding:"required,dive"`
}

type WishlistItemResponse struct {
	ID             string    `json:"id"`
	WishlistID     string    `json:"wishlist_id"`
	ItemName       string    `json:"item_name"`
	Description    string    `json:"description"`
	RequiredPoints int       `json:"required_points"`
	CategoryID     *string   `json:"category_id"`
	Priority       int       `json:"priority"`
	Status         string    `json:"status"`
	AssignedBy     *string   `json:"assigned_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type WishlistResponse struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	MemberEmail string                 `json:"member_mail"`
	Owner       *MemberResponse        `json:"owner,omitempty"`
	Items       []WishlistItemResponse `json:"items"`
}

type ItemProgressResponse struct {
	Item               WishlistItemResponse `json:"item"`
	CurrentPoints      int                  `json:"current_points"`
	ProgressPercentage decimal.Decimal      `json:"progress_percentage"`
	PointsNeeded       int                  `json:"points_needed"`
	CanRedeem          bool                 `json:"can_redeem"`
}

// ============================================
// Redeem DTOs
// ============================================

type RedeemRequestBody struct {
	WishlistItemID string `json:"wishlist_item_id"`
	RequestDetails string `json:"request_details"`
	PointDeduction int    `json:"point_deduction" binding:"gte=0"`
}

type RedeemReviewRequest struct {
	Approved        *bool  `json:"approved" binding:"required"`
	RejectionReason string `json:"rejection_reason"`
}

type RedeemRespondRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

type RedeemResponse struct {
	ID               string     `json:"id"`
	RequesterEmail   string     `json:"requester_mail"`
	WishlistItemID   *string    `json:"wishlist_item_id"`
	RequestDetails   string     `json:"request_details"`
	PointCost        int        `json:"point_deduction"`
	Status           string     `json:"status"`
	ApproverEmail    *string    `json:"approver_mail"`
	ParentApprovedAt *time.Time `json:"parent_approved_at"`
	ChildAcceptedAt  *time.Time `json:"child_accepted_at"`
	RejectionReason  string     `json:"rejection_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
