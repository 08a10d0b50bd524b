package service

import (
	"context"
	"strings"

	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type WishlistView struct {
	Wishlist *repository.Wishlist
	Owner    *repository.Member
	Items    []*repository.WishlistItem
}

type WishlistItemInput struct {
	ItemName       string
	Description    string
	RequiredPoints int
	CategoryID     string
	Priority       int
}

type UpdateWishlistItemInput struct {
	ItemName       *string
	Description    *string
	RequiredPoints *int
	CategoryID     *string
	Priority       *int
}

type ItemPriority struct {
	ItemID   string
	Priority int
}

type ItemProgress struct {
	Item          *repository.WishlistItem `json:"item"`
	CurrentPoints int                      `json:"current_points"`
	Percentage    decimal.Decimal          `json:"progress_percentage"`
	PointsNeeded  int                      `json:"points_needed"`
	CanRedeem     bool                     `json:"can_redeem"`
}

type WishlistService interface {
	MyWishlist(ctx context.Context, actor Actor) (*WishlistView, error)
	MemberWishlist(ctx context.Context, actor Actor, email string) (*WishlistView, error)
	AddItem(ctx context.Context, actor Actor, in WishlistItemInput) (*repository.WishlistItem, error)
	AddItemForMember(ctx context.Context, actor Actor, email string, in WishlistItemInput) (*repository.WishlistItem, *repository.Member, error)
	UpdateItem(ctx context.Context, actor Actor, id string, in UpdateWishlistItemInput) (*repository.WishlistItem, error)
	Prioritize(ctx context.Context, actor Actor, priorities []ItemPriority) ([]*repository.WishlistItem, error)
	RemoveItem(ctx context.Context, actor Actor, id string) error
	Progress(ctx context.Context, actor Actor, id string) (*ItemProgress, error)
}

type wishlistService struct {
	store repository.Store
	log   *logrus.Entry
}

func NewWishlistService(deps *ServiceDeps) WishlistService {
	return &wishlistService{store: deps.Store, log: deps.Logger.Component("Wishlist")}
}

func (s *wishlistService) view(ctx context.Context, repos *repository.Repositories, member *repository.Member) (*WishlistView, error) {
	wl, err := repos.WishlistRepo.GetOrCreate(ctx, member.Email, wishlistTitle(member.Username))
	if err != nil {
		return nil, err
	}
	items, err := repos.WishlistRepo.ListItems(ctx, wl.ID, types.WishlistItemActive)
	if err != nil {
		return nil, err
	}
	return &WishlistView{Wishlist: wl, Owner: member, Items: items}, nil
}

func (s *wishlistService) MyWishlist(ctx context.Context, actor Actor) (*WishlistView, error) {
	repos := s.store.Repos()
	member, err := memberInFamily(ctx, repos, actor.FamilyID, actor.Email)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, repos, member)
}

func (s *wishlistService) MemberWishlist(ctx context.Context, actor Actor, email string) (*WishlistView, error) {
	repos := s.store.Repos()
	member, err := memberInFamily(ctx, repos, actor.FamilyID, email)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, repos, member)
}

func validateItemInput(in WishlistItemInput) error {
	if strings.TrimSpace(in.ItemName) == "" || in.RequiredPoints == 0 || in.CategoryID == "" {
		return validationf("Please provide item_name, required_points, and category_id")
	}
	if in.RequiredPoints < 0 {
		return validationf("Required points must be greater than zero")
	}
	if in.Priority < 0 {
		return validationf("Priority cannot be negative")
	}
	return nil
}

func (s *wishlistService) addItem(ctx context.Context, repos *repository.Repositories, actor Actor, owner *repository.Member, in WishlistItemInput) (*repository.WishlistItem, error) {
	if _, err := categoryInFamily(ctx, repos, actor.FamilyID, types.CategoryWishlist, in.CategoryID); err != nil {
		return nil, notFoundf("Category not found or doesn't belong to your family")
	}
	wl, err := repos.WishlistRepo.GetOrCreate(ctx, owner.Email, wishlistTitle(owner.Username))
	if err != nil {
		return nil, err
	}

	categoryID := in.CategoryID
	assignedBy := actor.Email
	item := &repository.WishlistItem{
		WishlistID:     wl.ID,
		ItemName:       strings.TrimSpace(in.ItemName),
		Description:    in.Description,
		RequiredPoints: in.RequiredPoints,
		CategoryID:     &categoryID,
		Priority:       in.Priority,
		Status:         types.WishlistItemActive,
		AssignedBy:     &assignedBy,
	}
	if err := repos.WishlistRepo.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *wishlistService) AddItem(ctx context.Context, actor Actor, in WishlistItemInput) (*repository.WishlistItem, error) {
	if err := validateItemInput(in); err != nil {
		return nil, err
	}
	repos := s.store.Repos()
	owner, err := memberInFamily(ctx, repos, actor.FamilyID, actor.Email)
	if err != nil {
		return nil, err
	}
	return s.addItem(ctx, repos, actor, owner, in)
}

func (s *wishlistService) AddItemForMember(ctx context.Context, actor Actor, email string, in WishlistItemInput) (*repository.WishlistItem, *repository.Member, error) {
	if err := requireParent(actor); err != nil {
		return nil, nil, err
	}
	if err := validateItemInput(in); err != nil {
		return nil, nil, err
	}
	repos := s.store.Repos()
	owner, err := memberInFamily(ctx, repos, actor.FamilyID, email)
	if err != nil {
		return nil, nil, err
	}
	item, err := s.addItem(ctx, repos, actor, owner, in)
	if err != nil {
		return nil, nil, err
	}
	return item, owner, nil
}

// itemInFamily resolves an item and its owner, and applies the editing
// rule: owners and parents may change an item, nobody else.
func (s *wishlistService) itemInFamily(ctx context.Context, repos *repository.Repositories, actor Actor, id, verb string) (*repository.WishlistItem, *repository.Member, error) {
	if err := checkID(id, "Wishlist item"); err != nil {
		return nil, nil, err
	}
	item, err := repos.WishlistRepo.FindItemByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if item == nil || item.Status == types.WishlistItemRemoved {
		return nil, nil, notFoundf("Wishlist item not found")
	}
	owner, err := s.itemOwner(ctx, repos, item)
	if err != nil {
		return nil, nil, err
	}
	if owner == nil || owner.FamilyID != actor.FamilyID {
		return nil, nil, forbiddenf("This item doesn't belong to your family")
	}
	if !actor.IsParent() && !strings.EqualFold(owner.Email, actor.Email) {
		return nil, nil, forbiddenf("You can only %s your own wishlist items", verb)
	}
	return item, owner, nil
}

func (s *wishlistService) itemOwner(ctx context.Context, repos *repository.Repositories, item *repository.WishlistItem) (*repository.Member, error) {
	wl, err := repos.WishlistRepo.FindByID(ctx, item.WishlistID)
	if err != nil || wl == nil {
		return nil, err
	}
	return repos.MemberRepo.FindByEmail(ctx, wl.MemberEmail)
}

func (s *wishlistService) UpdateItem(ctx context.Context, actor Actor, id string, in UpdateWishlistItemInput) (*repository.WishlistItem, error) {
	repos := s.store.Repos()
	item, _, err := s.itemInFamily(ctx, repos, actor, id, "update")
	if err != nil {
		return nil, err
	}
	if item.Status != types.WishlistItemActive {
		return nil, statef("Only active wishlist items can be changed")
	}

	if in.ItemName != nil {
		name := strings.TrimSpace(*in.ItemName)
		if name == "" {
			return nil, validationf("Item name cannot be empty")
		}
		item.ItemName = name
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.RequiredPoints != nil {
		if *in.RequiredPoints <= 0 {
			return nil, validationf("Required points must be greater than zero")
		}
		item.RequiredPoints = *in.RequiredPoints
	}
	if in.Priority != nil {
		if *in.Priority < 0 {
			return nil, validationf("Priority cannot be negative")
		}
		item.Priority = *in.Priority
	}
	if in.CategoryID != nil {
		if _, err := categoryInFamily(ctx, repos, actor.FamilyID, types.CategoryWishlist, *in.CategoryID); err != nil {
			return nil, err
		}
		categoryID := *in.CategoryID
		item.CategoryID = &categoryID
	}

	if err := repos.WishlistRepo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Prioritize rewrites priorities on the actor's own wishlist in one
// transaction; unknown or foreign item ids fail the whole batch.
func (s *wishlistService) Prioritize(ctx context.Context, actor Actor, priorities []ItemPriority) ([]*repository.WishlistItem, error) {
	if len(priorities) == 0 {
		return nil, validationf("Please provide an array of itemPriorities")
	}

	var items []*repository.WishlistItem
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		wl, err := repos.WishlistRepo.FindByEmail(ctx, actor.Email)
		if err != nil {
			return err
		}
		if wl == nil {
			return notFoundf("Wishlist not found")
		}
		for _, p := range priorities {
			if p.Priority < 0 {
				return validationf("Priority cannot be negative")
			}
			if err := checkID(p.ItemID, "Wishlist item"); err != nil {
				return err
			}
			item, err := repos.WishlistRepo.FindItemByIDForUpdate(ctx, p.ItemID)
			if err != nil {
				return err
			}
			if item == nil || item.WishlistID != wl.ID {
				return notFoundf("Wishlist item not found")
			}
			item.Priority = p.Priority
			if err := repos.WishlistRepo.UpdateItem(ctx, item); err != nil {
				return err
			}
		}
		items, err = repos.WishlistRepo.ListItems(ctx, wl.ID, types.WishlistItemActive)
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *wishlistService) RemoveItem(ctx context.Context, actor Actor, id string) error {
	repos := s.store.Repos()
	item, _, err := s.itemInFamily(ctx, repos, actor, id, "remove")
	if err != nil {
		return err
	}
	item.Status = types.WishlistItemRemoved
	return repos.WishlistRepo.UpdateItem(ctx, item)
}

func (s *wishlistService) Progress(ctx context.Context, actor Actor, id string) (*ItemProgress, error) {
	repos := s.store.Repos()
	if err := checkID(id, "Wishlist item"); err != nil {
		return nil, err
	}
	wl, err := repos.WishlistRepo.FindByEmail(ctx, actor.Email)
	if err != nil {
		return nil, err
	}
	if wl == nil {
		return nil, notFoundf("Wishlist not found")
	}
	item, err := repos.WishlistRepo.FindItemByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.WishlistID != wl.ID {
		return nil, notFoundf("Wishlist item not found")
	}

	wallet, err := repos.WalletRepo.GetOrCreate(ctx, actor.Email)
	if err != nil {
		return nil, err
	}
	return progressFor(item, wallet.TotalPoints), nil
}

func progressFor(item *repository.WishlistItem, current int) *ItemProgress {
	hundred := decimal.NewFromInt(100)
	pct := hundred
	if item.RequiredPoints > 0 {
		pct = decimal.NewFromInt(int64(current)).
			Div(decimal.NewFromInt(int64(item.RequiredPoints))).
			Mul(hundred)
		if pct.GreaterThan(hundred) {
			pct = hundred
		}
	}

	needed := item.RequiredPoints - current
	if needed < 0 {
		needed = 0
	}
	return &ItemProgress{
		Item:          item,
		CurrentPoints: current,
		Percentage:    pct.Round(2),
		PointsNeeded:  needed,
		CanRedeem:     current >= item.RequiredPoints,
	}
}
