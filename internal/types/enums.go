package types

import (
	"fmt"
	"strings"
)

// Role is the closed set of capabilities a member type grants.
type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

// ParentTypeName is the member type name that carries the parent role.
const ParentTypeName = "Parent"

// ParseRole accepts a stored role value.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleParent:
		return RoleParent, nil
	case RoleChild:
		return RoleChild, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// RoleForTypeName maps a free-form member type name onto a role.
func RoleForTypeName(name string) Role {
	if strings.EqualFold(strings.TrimSpace(name), ParentTypeName) {
		return RoleParent
	}
	return RoleChild
}

func (r Role) IsParent() bool { return r == RoleParent }

func (r Role) IsValid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// AssignmentStatus is the lifecycle of a task assignment.
type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentApproved  AssignmentStatus = "approved"
	AssignmentRejected  AssignmentStatus = "rejected"
	AssignmentLate      AssignmentStatus = "late"
)

var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentAssigned:  {AssignmentCompleted, AssignmentLate},
	AssignmentLate:      {AssignmentCompleted},
	AssignmentCompleted: {AssignmentApproved, AssignmentRejected},
	AssignmentApproved:  nil,
	AssignmentRejected:  nil,
}

// CanTransitionTo reports whether next is a forward move from s.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	for _, allowed := range assignmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s AssignmentStatus) IsTerminal() bool {
	allowed, ok := assignmentTransitions[s]
	return ok && len(allowed) == 0
}

func (s AssignmentStatus) IsValid() bool {
	_, ok := assignmentTransitions[s]
	return ok
}

// RedeemStatus is the lifecycle of a redemption request.
type RedeemStatus string

const (
	RedeemPending        RedeemStatus = "pending"
	RedeemParentApproved RedeemStatus = "parent_approved"
	RedeemChildAccepted  RedeemStatus = "child_accepted"
	RedeemRejected       RedeemStatus = "rejected"
	RedeemCancelled      RedeemStatus = "cancelled"
)

var redeemTransitions = map[RedeemStatus][]RedeemStatus{
	RedeemPending:        {RedeemParentApproved, RedeemRejected, RedeemCancelled},
	RedeemParentApproved: {RedeemChildAccepted, RedeemCancelled},
	RedeemChildAccepted:  nil,
	RedeemRejected:       nil,
	RedeemCancelled:      nil,
}

func (s RedeemStatus) CanTransitionTo(next RedeemStatus) bool {
	for _, allowed := range redeemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s RedeemStatus) IsTerminal() bool {
	allowed, ok := redeemTransitions[s]
	return ok && len(allowed) == 0
}

// PointReason classifies a ledger entry.
type PointReason string

const (
	ReasonTaskCompletion PointReason = "task_completion"
	ReasonPenalty        PointReason = "penalty"
	ReasonRedeem         PointReason = "redeem"
	ReasonBonus          PointReason = "bonus"
	ReasonAdjustment     PointReason = "adjustment"
	ReasonManualGrant    PointReason = "manual_grant"
)

var ValidPointReasons = []PointReason{
	ReasonTaskCompletion, ReasonPenalty, ReasonRedeem,
	ReasonBonus, ReasonAdjustment, ReasonManualGrant,
}

func (r PointReason) IsValid() bool {
	for _, v := range ValidPointReasons {
		if v == r {
			return true
		}
	}
	return false
}

// WishlistItemStatus values
type WishlistItemStatus string

const (
	WishlistItemActive   WishlistItemStatus = "active"
	WishlistItemRedeemed WishlistItemStatus = "redeemed"
	WishlistItemRemoved  WishlistItemStatus = "removed"
)

// CategoryKind separates task categories from wishlist categories.
type CategoryKind string

const (
	CategoryTask     CategoryKind = "task"
	CategoryWishlist CategoryKind = "wishlist"
)

func (k CategoryKind) IsValid() bool {
	return k == CategoryTask || k == CategoryWishlist
}
