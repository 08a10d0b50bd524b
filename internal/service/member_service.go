package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/metrics"
	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type CreateMemberInput struct {
	Email     string
	Username  string
	TypeName  string
	BirthDate *time.Time
	Password  string
}

type MemberService interface {
	CreateMember(ctx context.Context, actor Actor, in CreateMemberInput) (*repository.Member, error)
	ListMembers(ctx context.Context, actor Actor) ([]*repository.Member, error)
	GetMember(ctx context.Context, actor Actor, id string) (*repository.Member, error)
	Me(ctx context.Context, actor Actor) (*repository.Member, error)
	SetOwnPassword(ctx context.Context, actor Actor, password string) error
	DeleteMember(ctx context.Context, actor Actor, id string) error

	CreateMemberType(ctx context.Context, actor Actor, name string, permissions []string) (*repository.MemberType, error)
	ListMemberTypes(ctx context.Context, actor Actor) ([]*repository.MemberType, error)
	SetPermissions(ctx context.Context, actor Actor, typeID string, permissions []string) (*repository.MemberType, error)
}

type memberService struct {
	store    repository.Store
	rankings *rankingCache
	events   EventPublisher
	metrics  *metrics.Metrics
	log      *logrus.Entry
}

func NewMemberService(deps *ServiceDeps) MemberService {
	return &memberService{
		store:    deps.Store,
		rankings: deps.rankings,
		events:   deps.Events,
		metrics:  deps.Metrics,
		log:      deps.Logger.Component("Member"),
	}
}

var memberConflicts = map[string]string{
	"email":    "A member with this email already exists",
	"username": "This username is already taken in your family",
	"name":     "This member type already exists in your family",
}

// memberTypeFor returns the family's member type called name, creating it
// when it does not exist yet.
func memberTypeFor(ctx context.Context, repos *repository.Repositories, familyID, name string) (*repository.MemberType, error) {
	mt, err := repos.MemberTypeRepo.FindByName(ctx, familyID, name)
	if err != nil || mt != nil {
		return mt, err
	}
	mt = &repository.MemberType{
		FamilyID:    familyID,
		Name:        name,
		Role:        types.RoleForTypeName(name),
		Permissions: []string{},
	}
	if err := repos.MemberTypeRepo.Create(ctx, mt); err != nil {
		return nil, conflictFrom(err, memberConflicts)
	}
	return mt, nil
}

func (s *memberService) CreateMember(ctx context.Context, actor Actor, in CreateMemberInput) (*repository.Member, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.TypeName = strings.TrimSpace(in.TypeName)
	if in.Email == "" || in.Username == "" || in.TypeName == "" {
		return nil, validationf("Please provide email, username and member type")
	}

	var passwordHash *string
	if in.Password != "" {
		if len(in.Password) < minPasswordLength {
			return nil, validationf("Password must be at least %d characters", minPasswordLength)
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		h := string(hashed)
		passwordHash = &h
	}

	var member *repository.Member
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		existing, err := repos.MemberRepo.FindByEmail(ctx, in.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return &Error{Kind: ErrConflict, Message: memberConflicts["email"], Field: "email"}
		}

		mt, err := memberTypeFor(ctx, repos, actor.FamilyID, in.TypeName)
		if err != nil {
			return err
		}

		member = &repository.Member{
			FamilyID:     actor.FamilyID,
			MemberTypeID: mt.ID,
			Email:        in.Email,
			Username:     in.Username,
			BirthDate:    in.BirthDate,
			Password:     passwordHash,
			IsFirstLogin: true,
		}
		if err := repos.MemberRepo.Create(ctx, member); err != nil {
			return conflictFrom(err, memberConflicts)
		}
		member.TypeName = mt.Name
		member.Role = mt.Role

		return provisionMember(ctx, repos, member)
	})
	if err != nil {
		return nil, err
	}

	s.rankings.invalidate(ctx, actor.FamilyID)
	s.events.PublishToFamily(actor.FamilyID, "member_added", map[string]interface{}{
		"member_id": member.ID,
		"username":  member.Username,
	})
	s.log.WithFields(logrus.Fields{"family": actor.FamilyID, "member": member.ID, "type": member.TypeName}).Info("member created")
	return member, nil
}

func (s *memberService) ListMembers(ctx context.Context, actor Actor) ([]*repository.Member, error) {
	return s.store.Repos().MemberRepo.FindByFamily(ctx, actor.FamilyID)
}

func (s *memberService) GetMember(ctx context.Context, actor Actor, id string) (*repository.Member, error) {
	return memberByIDInFamily(ctx, s.store.Repos(), actor.FamilyID, id)
}

func (s *memberService) Me(ctx context.Context, actor Actor) (*repository.Member, error) {
	member, err := s.store.Repos().MemberRepo.FindByID(ctx, actor.MemberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, notFoundf("Member not found")
	}
	return member, nil
}

func (s *memberService) SetOwnPassword(ctx context.Context, actor Actor, password string) error {
	if len(password) < minPasswordLength {
		return validationf("Password must be at least %d characters", minPasswordLength)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.store.Repos().MemberRepo.UpdatePassword(ctx, actor.MemberID, string(hashed))
}

// DeleteMember removes a member with their wallet, history, wishlist and
// sessions. The family row lock serializes concurrent deletes so two
// parents cannot remove each other at once.
func (s *memberService) DeleteMember(ctx context.Context, actor Actor, id string) error {
	if err := requireParent(actor); err != nil {
		return err
	}
	if id == actor.MemberID {
		return validationf("You cannot delete your own account")
	}
	if err := checkID(id, "Member"); err != nil {
		return err
	}

	var removed *repository.Member
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if _, err := repos.FamilyRepo.FindByIDForUpdate(ctx, actor.FamilyID); err != nil {
			return err
		}
		member, err := memberByIDInFamily(ctx, repos, actor.FamilyID, id)
		if err != nil {
			return err
		}

		if member.Role.IsParent() {
			parents, err := repos.MemberRepo.CountByRole(ctx, actor.FamilyID, types.RoleParent)
			if err != nil {
				return err
			}
			if parents <= 1 {
				return errorf(ErrLastParent, "Cannot delete the last parent in the family")
			}
		}

		if err := repos.WalletRepo.DeleteByEmail(ctx, member.Email); err != nil {
			return fmt.Errorf("failed to delete wallet: %w", err)
		}
		if err := repos.HistoryRepo.DeleteByEmail(ctx, member.Email); err != nil {
			return fmt.Errorf("failed to delete point history: %w", err)
		}
		if err := repos.WishlistRepo.DeleteByEmail(ctx, member.Email); err != nil {
			return fmt.Errorf("failed to delete wishlist: %w", err)
		}
		if err := repos.MemberRepo.DeleteRefreshTokensByMember(ctx, member.ID); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		if err := repos.MemberRepo.Delete(ctx, member.ID); err != nil {
			return err
		}
		removed = member
		return nil
	})
	if err != nil {
		return err
	}

	s.rankings.invalidate(ctx, actor.FamilyID)
	s.events.PublishToFamily(actor.FamilyID, "member_removed", map[string]interface{}{
		"member_id": removed.ID,
	})
	s.log.WithFields(logrus.Fields{"family": actor.FamilyID, "member": removed.ID}).Info("member deleted")
	return nil
}

func (s *memberService) CreateMemberType(ctx context.Context, actor Actor, name string, permissions []string) (*repository.MemberType, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("Please provide the member type name")
	}
	if permissions == nil {
		permissions = []string{}
	}

	mt := &repository.MemberType{
		FamilyID:    actor.FamilyID,
		Name:        name,
		Role:        types.RoleForTypeName(name),
		Permissions: permissions,
	}
	if err := s.store.Repos().MemberTypeRepo.Create(ctx, mt); err != nil {
		return nil, conflictFrom(err, memberConflicts)
	}
	return mt, nil
}

func (s *memberService) ListMemberTypes(ctx context.Context, actor Actor) ([]*repository.MemberType, error) {
	return s.store.Repos().MemberTypeRepo.FindByFamily(ctx, actor.FamilyID)
}

func (s *memberService) SetPermissions(ctx context.Context, actor Actor, typeID string, permissions []string) (*repository.MemberType, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	if err := checkID(typeID, "Member type"); err != nil {
		return nil, err
	}
	if permissions == nil {
		permissions = []string{}
	}

	repos := s.store.Repos()
	mt, err := repos.MemberTypeRepo.FindByID(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if mt == nil || mt.FamilyID != actor.FamilyID {
		return nil, notFoundf("Member type not found")
	}
	if err := repos.MemberTypeRepo.UpdatePermissions(ctx, mt.ID, permissions); err != nil {
		return nil, err
	}
	mt.Permissions = permissions
	return mt, nil
}
