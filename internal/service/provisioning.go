package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/google/uuid"
)

// checkID rejects ids that cannot exist before they reach the database.
func checkID(id, what string) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFoundf("%s not found", what)
	}
	return nil
}

func wishlistTitle(username string) string {
	return fmt.Sprintf("%s's Wishlist", username)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// provisionMember gives a new member an empty wallet and wishlist.
// Both calls are get-or-create, so repeating them is harmless.
func provisionMember(ctx context.Context, repos *repository.Repositories, member *repository.Member) error {
	if _, err := repos.WalletRepo.GetOrCreate(ctx, member.Email); err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	if _, err := repos.WishlistRepo.GetOrCreate(ctx, member.Email, wishlistTitle(member.Username)); err != nil {
		return fmt.Errorf("failed to create wishlist: %w", err)
	}
	return nil
}

// memberInFamily resolves an email to a member of familyID, hiding members
// of other families behind the same not-found error.
func memberInFamily(ctx context.Context, repos *repository.Repositories, familyID, email string) (*repository.Member, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, validationf("Please provide the member email")
	}
	member, err := repos.MemberRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if member == nil || member.FamilyID != familyID {
		return nil, notFoundf("Member not found in your family")
	}
	return member, nil
}

func memberByIDInFamily(ctx context.Context, repos *repository.Repositories, familyID, id string) (*repository.Member, error) {
	if err := checkID(id, "Member"); err != nil {
		return nil, err
	}
	member, err := repos.MemberRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if member == nil || member.FamilyID != familyID {
		return nil, notFoundf("Member not found in your family")
	}
	return member, nil
}
