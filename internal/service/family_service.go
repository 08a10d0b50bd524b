package service

import (
	"context"

	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type FamilyService interface {
	Get(ctx context.Context, actor Actor) (*repository.Family, error)
	Deactivate(ctx context.Context, actor Actor, email, password string) error
}

type familyService struct {
	store repository.Store
	log   *logrus.Entry
}

func NewFamilyService(deps *ServiceDeps) FamilyService {
	return &familyService{store: deps.Store, log: deps.Logger.Component("Family")}
}

func (s *familyService) Get(ctx context.Context, actor Actor) (*repository.Family, error) {
	family, err := s.store.Repos().FamilyRepo.FindByID(ctx, actor.FamilyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, notFoundf("Family not found")
	}
	return family, nil
}

// Deactivate requires the account email and password again.
func (s *familyService) Deactivate(ctx context.Context, actor Actor, email, password string) error {
	if err := requireParent(actor); err != nil {
		return err
	}
	if email == "" || password == "" {
		return validationf("Please provide email and password")
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		family, err := repos.FamilyRepo.FindByIDForUpdate(ctx, actor.FamilyID)
		if err != nil {
			return err
		}
		if family == nil {
			return notFoundf("Family not found")
		}
		if family.Email != normalizeEmail(email) ||
			bcrypt.CompareHashAndPassword([]byte(family.Password), []byte(password)) != nil {
			return errorf(ErrInvalidCredentials, "Incorrect email or password")
		}
		if !family.Active {
			return statef("This family account is already deactivated")
		}
		family.Active = false
		return repos.FamilyRepo.Update(ctx, family)
	})
	if err != nil {
		return err
	}

	s.log.WithField("family", actor.FamilyID).Info("family account deactivated")
	return nil
}
