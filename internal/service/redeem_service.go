package service

import (
	"context"
	"strings"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/metrics"
	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/types"
	"github.com/sirupsen/logrus"
)

// ============================================
// Redeem Service
// ============================================

type RedeemInput struct {
	WishlistItemID string
	RequestDetails string
	PointCost      int
}

type RedeemService interface {
	Request(ctx context.Context, actor Actor, in RedeemInput) (*repository.RedeemRequest, error)
	Review(ctx context.Context, actor Actor, id string, approved bool, reason string) (*repository.RedeemRequest, error)
	Respond(ctx context.Context, actor Actor, id string, accept bool) (*repository.RedeemRequest, error)
	Cancel(ctx context.Context, actor Actor, id string) (*repository.RedeemRequest, error)

	Mine(ctx context.Context, actor Actor) ([]*repository.RedeemRequest, error)
	Pending(ctx context.Context, actor Actor) ([]*repository.RedeemRequest, error)
	All(ctx context.Context, actor Actor) ([]*repository.RedeemRequest, error)
	AwaitingAcceptance(ctx context.Context, actor Actor) ([]*repository.RedeemRequest, error)
}

type redeemService struct {
	store   repository.Store
	ledger  *ledger
	events  EventPublisher
	metrics *metrics.Metrics
	clock   func() time.Time
	log     *logrus.Entry
}

func NewRedeemService(deps *ServiceDeps, l *ledger) RedeemService {
	return &redeemService{
		store:   deps.Store,
		ledger:  l,
		events:  deps.Events,
		metrics: deps.Metrics,
		clock:   deps.Clock,
		log:     deps.Logger.Component("Redeem"),
	}
}

// Request checks affordability at request time only; nothing is held
// back until the requester accepts.
func (s *redeemService) Request(ctx context.Context, actor Actor, in RedeemInput) (*repository.RedeemRequest, error) {
	details := strings.TrimSpace(in.RequestDetails)
	if details == "" {
		return nil, validationf("Please provide request details (what you want to redeem)")
	}

	repos := s.store.Repos()
	req := &repository.RedeemRequest{
		FamilyID:       actor.FamilyID,
		RequesterEmail: normalizeEmail(actor.Email),
		RequestDetails: details,
		Status:         types.RedeemPending,
	}

	if in.WishlistItemID != "" {
		if err := checkID(in.WishlistItemID, "Wishlist item"); err != nil {
			return nil, err
		}
		item, err := repos.WishlistRepo.FindItemByID(ctx, in.WishlistItemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, notFoundf("Wishlist item not found")
		}
		wl, err := repos.WishlistRepo.FindByID(ctx, item.WishlistID)
		if err != nil {
			return nil, err
		}
		if wl == nil || !strings.EqualFold(wl.MemberEmail, actor.Email) {
			return nil, forbiddenf("You can only redeem your own wishlist items")
		}
		if item.Status != types.WishlistItemActive {
			return nil, statef("This item is not available for redemption")
		}
		open, err := repos.RedeemRepo.List(ctx, repository.RedeemFilter{
			WishlistItemID: item.ID,
			Statuses:       []types.RedeemStatus{types.RedeemPending, types.RedeemParentApproved},
		})
		if err != nil {
			return nil, err
		}
		if len(open) > 0 {
			return nil, statef("A redemption request for this item is already open")
		}
		itemID := item.ID
		req.WishlistItemID = &itemID
		req.PointCost = item.RequiredPoints
	} else {
		if in.PointCost <= 0 {
			return nil, validationf("Please provide valid point_deduction amount for custom redemption")
		}
		req.PointCost = in.PointCost
	}

	wallet, err := repos.WalletRepo.GetOrCreate(ctx, actor.Email)
	if err != nil {
		return nil, err
	}
	if wallet.TotalPoints < req.PointCost {
		return nil, errorf(ErrInsufficientPoints,
			"Insufficient points. You have %d points but need %d points.", wallet.TotalPoints, req.PointCost)
	}

	if err := repos.RedeemRepo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition("redeem", string(req.Status))
	s.events.PublishToFamily(actor.FamilyID, "redeem_requested", map[string]interface{}{
		"redeem_id":    req.ID,
		"requester":    req.RequesterEmail,
		"point_cost":   req.PointCost,
		"request_text": req.RequestDetails,
	})
	return req, nil
}

func lockRedeem(ctx context.Context, repos *repository.Repositories, id string) (*repository.RedeemRequest, error) {
	if err := checkID(id, "Redemption request"); err != nil {
		return nil, err
	}
	req, err := repos.RedeemRepo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, notFoundf("Redemption request not found")
	}
	return req, nil
}

func (s *redeemService) Review(ctx context.Context, actor Actor, id string, approved bool, reason string) (*repository.RedeemRequest, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}

	var out *repository.RedeemRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		req, err := lockRedeem(ctx, repos, id)
		if err != nil {
			return err
		}
		if req.FamilyID != actor.FamilyID {
			return forbiddenf("This request doesn't belong to your family")
		}
		if req.Status != types.RedeemPending {
			return statef("This request has already been %s", req.Status)
		}

		approver := actor.Email
		req.ApproverEmail = &approver
		if approved {
			at := s.clock().UTC()
			req.Status = types.RedeemParentApproved
			req.ParentApprovedAt = &at
		} else {
			req.Status = types.RedeemRejected
			req.RejectionReason = reason
			if req.RejectionReason == "" {
				req.RejectionReason = "Rejected by parent"
			}
		}
		if err := repos.RedeemRepo.Update(ctx, req, types.RedeemPending); err != nil {
			return stale(err, "This request has already been reviewed")
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition("redeem", string(out.Status))
	publishToMemberEmail(ctx, s.store.Repos(), s.events, out.RequesterEmail, "redeem_reviewed", map[string]interface{}{
		"redeem_id": out.ID,
		"status":    out.Status,
		"requester": out.RequesterEmail,
	})
	return out, nil
}

// Respond is the requester's answer to a parent-approved request.
// Accepting debits the wallet under its row lock, so a balance spent
// elsewhere since the request fails here instead of going negative.
func (s *redeemService) Respond(ctx context.Context, actor Actor, id string, accept bool) (*repository.RedeemRequest, error) {
	var (
		out   *repository.RedeemRequest
		debit *AdjustResult
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		req, err := lockRedeem(ctx, repos, id)
		if err != nil {
			return err
		}
		if !strings.EqualFold(req.RequesterEmail, actor.Email) {
			return forbiddenf("You can only accept/reject your own redemption requests")
		}
		if req.Status != types.RedeemParentApproved {
			return statef("This request is not in parent_approved status")
		}

		if !accept {
			req.Status = types.RedeemCancelled
			req.RejectionReason = "Cancelled by requester"
			if err := repos.RedeemRepo.Update(ctx, req, types.RedeemParentApproved); err != nil {
				return stale(err, "This request is not in parent_approved status")
			}
			out = req
			return nil
		}

		var item *repository.WishlistItem
		if req.WishlistItemID != nil {
			item, err = repos.WishlistRepo.FindItemByIDForUpdate(ctx, *req.WishlistItemID)
			if err != nil {
				return err
			}
			if item == nil || item.Status != types.WishlistItemActive {
				return statef("This item is not available for redemption")
			}
		}

		wallet, err := repos.WalletRepo.LockByEmail(ctx, req.RequesterEmail)
		if err != nil {
			return err
		}
		if wallet.TotalPoints < req.PointCost {
			return errorf(ErrInsufficientPoints, "Insufficient points for redemption")
		}

		grantedBy := req.RequesterEmail
		if req.ApproverEmail != nil {
			grantedBy = *req.ApproverEmail
		}
		ref := req.ID
		debit, err = s.ledger.adjustTx(ctx, repos, AdjustInput{
			FamilyID:    req.FamilyID,
			MemberEmail: req.RequesterEmail,
			Delta:       -req.PointCost,
			Reason:      types.ReasonRedeem,
			GrantedBy:   grantedBy,
			Description: "Redeemed: " + req.RequestDetails,
			RedeemRef:   &ref,
		})
		if err != nil {
			return err
		}

		at := s.clock().UTC()
		req.Status = types.RedeemChildAccepted
		req.ChildAcceptedAt = &at
		if err := repos.RedeemRepo.Update(ctx, req, types.RedeemParentApproved); err != nil {
			return stale(err, "This request is not in parent_approved status")
		}

		if item != nil {
			item.Status = types.WishlistItemRedeemed
			if err := repos.WishlistRepo.UpdateItem(ctx, item); err != nil {
				return err
			}
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.ledger.committed(ctx, debit)
	s.metrics.ObserveTransition("redeem", string(out.Status))
	s.events.PublishToFamily(out.FamilyID, "redeem_responded", map[string]interface{}{
		"redeem_id": out.ID,
		"status":    out.Status,
		"requester": out.RequesterEmail,
	})
	return out, nil
}

func (s *redeemService) Cancel(ctx context.Context, actor Actor, id string) (*repository.RedeemRequest, error) {
	var out *repository.RedeemRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		req, err := lockRedeem(ctx, repos, id)
		if err != nil {
			return err
		}
		if !strings.EqualFold(req.RequesterEmail, actor.Email) {
			return forbiddenf("You can only cancel your own redemption requests")
		}
		if req.Status != types.RedeemPending {
			return statef("You can only cancel pending requests")
		}
		req.Status = types.RedeemCancelled
		if err := repos.RedeemRepo.Update(ctx, req, types.RedeemPending); err != nil {
			return stale(err, "You can only cancel pending requests")
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveTransition("redeem", string(out.Status))
	return out, nil
}

func (s *redeemService) Mine(ctx context.Context, actor Actor) ([]*repository.RedeemRequest, error) {
	return s.store.Repos().RedeemRepo.List(ctx, repository.RedeemFilter{
		FamilyID:       actor.FamilyID,
		RequesterEmail: actor.Email,
	})
}

func (s *redeemService) Pending(ctx context.Context, actor Actor) ([]*repository.RedeemRequest, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	return s.store.Repos().RedeemRepo.List(ctx, repository.RedeemFilter{
		FamilyID: actor.FamilyID,
		Statuses: []types.RedeemStatus{types.RedeemPending},
	})
}

func (s *redeemService) All(ctx context.Context, actor Actor) ([]*repository.RedeemRequest, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	return s.store.Repos().RedeemRepo.List(ctx, repository.RedeemFilter{FamilyID: actor.FamilyID})
}

func (s *redeemService) AwaitingAcceptance(ctx context.Context, actor Actor) ([]*repository.RedeemRequest, error) {
	return s.store.Repos().RedeemRepo.List(ctx, repository.RedeemFilter{
		FamilyID:       actor.FamilyID,
		RequesterEmail: actor.Email,
		Statuses:       []types.RedeemStatus{types.RedeemParentApproved},
	})
}
