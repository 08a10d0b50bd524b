package service

import (
	"context"
	"strings"

	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/types"
)

type CategoryInput struct {
	Title       string
	Description string
}

// CategoryService manages task and wishlist categories. Every method takes
// the kind so both category routes share one implementation.
type CategoryService interface {
	Create(ctx context.Context, actor Actor, kind types.CategoryKind, in CategoryInput) (*repository.Category, error)
	List(ctx context.Context, actor Actor, kind types.CategoryKind) ([]*repository.Category, error)
	Update(ctx context.Context, actor Actor, kind types.CategoryKind, id string, in CategoryInput) (*repository.Category, error)
	Delete(ctx context.Context, actor Actor, kind types.CategoryKind, id string) error
}

type categoryService struct {
	store repository.Store
}

func NewCategoryService(deps *ServiceDeps) CategoryService {
	return &categoryService{store: deps.Store}
}

var categoryConflicts = map[string]string{
	"title": "A category with this title already exists in your family",
}

// categoryInFamily loads a category of the given kind owned by familyID.
func categoryInFamily(ctx context.Context, repos *repository.Repositories, familyID string, kind types.CategoryKind, id string) (*repository.Category, error) {
	if err := checkID(id, "Category"); err != nil {
		return nil, err
	}
	c, err := repos.CategoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil || c.FamilyID != familyID || c.Kind != kind {
		return nil, notFoundf("Category not found")
	}
	return c, nil
}

func (s *categoryService) Create(ctx context.Context, actor Actor, kind types.CategoryKind, in CategoryInput) (*repository.Category, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, validationf("Unknown category kind %q", kind)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationf("Please provide the category title")
	}

	c := &repository.Category{
		FamilyID:    actor.FamilyID,
		Kind:        kind,
		Title:       title,
		Description: in.Description,
	}
	if err := s.store.Repos().CategoryRepo.Create(ctx, c); err != nil {
		return nil, conflictFrom(err, categoryConflicts)
	}
	return c, nil
}

func (s *categoryService) List(ctx context.Context, actor Actor, kind types.CategoryKind) ([]*repository.Category, error) {
	return s.store.Repos().CategoryRepo.FindByFamily(ctx, actor.FamilyID, kind)
}

func (s *categoryService) Update(ctx context.Context, actor Actor, kind types.CategoryKind, id string, in CategoryInput) (*repository.Category, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	repos := s.store.Repos()
	c, err := categoryInFamily(ctx, repos, actor.FamilyID, kind, id)
	if err != nil {
		return nil, err
	}

	if title := strings.TrimSpace(in.Title); title != "" {
		c.Title = title
	}
	if in.Description != "" {
		c.Description = in.Description
	}
	if err := repos.CategoryRepo.Update(ctx, c); err != nil {
		return nil, conflictFrom(err, categoryConflicts)
	}
	return c, nil
}

func (s *categoryService) Delete(ctx context.Context, actor Actor, kind types.CategoryKind, id string) error {
	if err := requireParent(actor); err != nil {
		return err
	}
	repos := s.store.Repos()
	c, err := categoryInFamily(ctx, repos, actor.FamilyID, kind, id)
	if err != nil {
		return err
	}
	return repos.CategoryRepo.Delete(ctx, c.ID)
}
