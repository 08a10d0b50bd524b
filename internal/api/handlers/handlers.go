package handlers

import (
	"github.com/Marga-Ghale/ora-family-backend/internal/models"
	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/sirupsen/logrus"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Auth     *AuthHandler
	Family   *FamilyHandler
	Member   *MemberHandler
	Category *CategoryHandler
	Task     *TaskHandler
	Wallet   *WalletHandler
	Wishlist *WishlistHandler
	Redeem   *RedeemHandler
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services, log *logrus.Entry) *Handlers {
	return &Handlers{
		Auth:     &AuthHandler{authService: services.Auth, log: log},
		Family:   &FamilyHandler{familyService: services.Family, log: log},
		Member:   &MemberHandler{memberService: services.Member, log: log},
		Category: &CategoryHandler{categoryService: services.Category, log: log},
		Task:     &TaskHandler{taskService: services.Task, log: log},
		Wallet:   &WalletHandler{walletService: services.Wallet, log: log},
		Wishlist: &WishlistHandler{wishlistService: services.Wishlist, log: log},
		Redeem:   &RedeemHandler{redeemService: services.Redeem, log: log},
	}
}

// ============================================
// Response Mappers
// ============================================

func toFamilyResponse(f *repository.Family) models.FamilyResponse {
	return models.FamilyResponse{
		ID:        f.ID,
		Title:     f.Title,
		Email:     f.Email,
		Active:    f.Active,
		CreatedAt: f.CreatedAt,
	}
}

func toMemberResponse(m *repository.Member) models.MemberResponse {
	return models.MemberResponse{
		ID:           m.ID,
		FamilyID:     m.FamilyID,
		MemberTypeID: m.MemberTypeID,
		MemberType:   m.TypeName,
		Role:         string(m.Role),
		Email:        m.Email,
		Username:     m.Username,
		BirthDate:    m.BirthDate,
		IsFirstLogin: m.IsFirstLogin,
		HasPassword:  m.Password != nil && *m.Password != "",
		CreatedAt:    m.CreatedAt,
	}
}

func toMemberTypeResponse(t *repository.MemberType) models.MemberTypeResponse {
	return models.MemberTypeResponse{
		ID:          t.ID,
		Name:        t.Name,
		Role:        string(t.Role),
		Permissions: safeStringSlice(t.Permissions),
		CreatedAt:   t.CreatedAt,
	}
}

func toCategoryResponse(cat *repository.Category) models.CategoryResponse {
	return models.CategoryResponse{
		ID:          cat.ID,
		Kind:        string(cat.Kind),
		Title:       cat.Title,
		Description: cat.Description,
		CreatedAt:   cat.CreatedAt,
		UpdatedAt:   cat.UpdatedAt,
	}
}

func toTaskResponse(t *repository.Task) models.TaskResponse {
	return models.TaskResponse{
		ID:          t.ID,
		CategoryID:  t.CategoryID,
		Title:       t.Title,
		Description: t.Description,
		IsMandatory: t.IsMandatory,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toAssignmentResponse(a *repository.TaskAssignment) models.AssignmentResponse {
	return models.AssignmentResponse{
		ID:                 a.ID,
		TaskID:             a.TaskID,
		TaskTitle:          a.TaskTitle,
		MemberEmail:        a.AssigneeEmail,
		AssignedBy:         a.AssignedBy,
		AssignedPoints:     a.AssignedPoints,
		PenaltyPoints:      a.PenaltyPoints,
		Deadline:           a.Deadline,
		Priority:           a.Priority,
		AssignmentApproved: a.AssignmentApproved,
		AssignmentApprover: a.AssignmentApprover,
		Status:             string(a.Status),
		CompletedAt:        a.CompletedAt,
		ApprovedBy:         a.ApprovedBy,
		ApprovedAt:         a.ApprovedAt,
		Notes:              a.Notes,
		CreatedAt:          a.CreatedAt,
	}
}

func toAssignmentList(list []*repository.TaskAssignment) []models.AssignmentResponse {
	out := make([]models.AssignmentResponse, len(list))
	for i, a := range list {
		out[i] = toAssignmentResponse(a)
	}
	return out
}

func toWalletResponse(w *repository.Wallet) models.WalletResponse {
	return models.WalletResponse{
		ID:          w.ID,
		MemberEmail: w.MemberEmail,
		TotalPoints: w.TotalPoints,
		LastUpdated: w.LastUpdated,
	}
}

func toHistoryResponse(e *repository.PointHistoryEntry) models.PointHistoryResponse {
	return models.PointHistoryResponse{
		ID:              e.ID,
		WalletID:        e.WalletID,
		MemberEmail:     e.MemberEmail,
		Points:          e.Points,
		RequestedPoints: e.RequestedPoints,
		Reason:          string(e.Reason),
		TaskRef:         e.TaskRef,
		RedeemRef:       e.RedeemRef,
		GrantedBy:       e.GrantedBy,
		Description:     e.Description,
		CreatedAt:       e.CreatedAt,
	}
}

func toHistoryList(list []*repository.PointHistoryEntry) []models.PointHistoryResponse {
	out := make([]models.PointHistoryResponse, len(list))
	for i, e := range list {
		out[i] = toHistoryResponse(e)
	}
	return out
}

func toWishlistItemResponse(it *repository.WishlistItem) models.WishlistItemResponse {
	return models.WishlistItemResponse{
		ID:             it.ID,
		WishlistID:     it.WishlistID,
		ItemName:       it.ItemName,
		Description:    it.Description,
		RequiredPoints: it.RequiredPoints,
		CategoryID:     it.CategoryID,
		Priority:       it.Priority,
		Status:         string(it.Status),
		AssignedBy:     it.AssignedBy,
		CreatedAt:      it.CreatedAt,
		UpdatedAt:      it.UpdatedAt,
	}
}

func toWishlistItemList(list []*repository.WishlistItem) []models.WishlistItemResponse {
	out := make([]models.WishlistItemResponse, len(list))
	for i, it := range list {
		out[i] = toWishlistItemResponse(it)
	}
	return out
}

func toWishlistResponse(v *service.WishlistView) models.WishlistResponse {
	resp := models.WishlistResponse{
		ID:          v.Wishlist.ID,
		Title:       v.Wishlist.Title,
		MemberEmail: v.Wishlist.MemberEmail,
		Items:       toWishlistItemList(v.Items),
	}
	if v.Owner != nil {
		owner := toMemberResponse(v.Owner)
		resp.Owner = &owner
	}
	return resp
}

func toRedeemResponse(r *repository.RedeemRequest) models.RedeemResponse {
	return models.RedeemResponse{
		ID:               r.ID,
		RequesterEmail:   r.RequesterEmail,
		WishlistItemID:   r.WishlistItemID,
		RequestDetails:   r.RequestDetails,
		PointCost:        r.PointCost,
		Status:           string(r.Status),
		ApproverEmail:    r.ApproverEmail,
		ParentApprovedAt: r.ParentApprovedAt,
		ChildAcceptedAt:  r.ChildAcceptedAt,
		RejectionReason:  r.RejectionReason,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func toRedeemList(list []*repository.RedeemRequest) []models.RedeemResponse {
	out := make([]models.RedeemResponse, len(list))
	for i, r := range list {
		out[i] = toRedeemResponse(r)
	}
	return out
}

// Helper to ensure nil slices become empty slices
func safeStringSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
