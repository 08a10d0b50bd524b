package service

import (
	"testing"

	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressFor(t *testing.T) {
	tests := []struct {
		name     string
		required int
		current  int
		pct      string
		needed   int
		can      bool
	}{
		{"nothing yet", 100, 0, "0", 100, false},
		{"two thirds", 30, 20, "66.67", 10, false},
		{"exact", 50, 50, "100", 0, true},
		{"capped", 40, 90, "100", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := progressFor(&repository.WishlistItem{RequiredPoints: tc.required}, tc.current)
			assert.Equal(t, tc.pct, p.Percentage.String())
			assert.Equal(t, tc.needed, p.PointsNeeded)
			assert.Equal(t, tc.can, p.CanRedeem)
		})
	}
}

func TestWishlist_ItemsAndPermissions(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	child := childOf(env, parent, "kid@example.com")
	sibling := childOf(env, parent, "sis@example.com")
	cat, err := env.svc.Category.Create(env.ctx, parent, types.CategoryWishlist, CategoryInput{Title: "Games"})
	require.NoError(t, err)

	_, err = env.svc.Wishlist.AddItem(env.ctx, child, WishlistItemInput{ItemName: "Puzzle", RequiredPoints: 20})
	assert.ErrorIs(t, err, ErrValidation)

	low, err := env.svc.Wishlist.AddItem(env.ctx, child, WishlistItemInput{
		ItemName: "Puzzle", RequiredPoints: 20, CategoryID: cat.ID, Priority: 1,
	})
	require.NoError(t, err)
	high, _, err := env.svc.Wishlist.AddItemForMember(env.ctx, parent, child.Email, WishlistItemInput{
		ItemName: "Console", RequiredPoints: 500, CategoryID: cat.ID, Priority: 5,
	})
	require.NoError(t, err)

	_, _, err = env.svc.Wishlist.AddItemForMember(env.ctx, sibling, child.Email, WishlistItemInput{
		ItemName: "Socks", RequiredPoints: 1, CategoryID: cat.ID,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	view, err := env.svc.Wishlist.MyWishlist(env.ctx, child)
	require.NoError(t, err)
	assert.Equal(t, "kid's Wishlist", view.Wishlist.Title)
	require.Len(t, view.Items, 2)
	assert.Equal(t, high.ID, view.Items[0].ID)

	name := "Big puzzle"
	_, err = env.svc.Wishlist.UpdateItem(env.ctx, sibling, low.ID, UpdateWishlistItemInput{ItemName: &name})
	assert.ErrorIs(t, err, ErrForbidden)
	updated, err := env.svc.Wishlist.UpdateItem(env.ctx, parent, low.ID, UpdateWishlistItemInput{ItemName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Big puzzle", updated.ItemName)

	items, err := env.svc.Wishlist.Prioritize(env.ctx, child, []ItemPriority{{ItemID: low.ID, Priority: 10}})
	require.NoError(t, err)
	assert.Equal(t, low.ID, items[0].ID)

	_, err = env.svc.Wishlist.Prioritize(env.ctx, sibling, []ItemPriority{{ItemID: low.ID, Priority: 1}})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, env.svc.Wishlist.RemoveItem(env.ctx, child, low.ID))
	view, err = env.svc.Wishlist.MemberWishlist(env.ctx, parent, child.Email)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestWishlist_Progress(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	child := childOf(env, parent, "kid@example.com")
	cat, err := env.svc.Category.Create(env.ctx, parent, types.CategoryWishlist, CategoryInput{Title: "Games"})
	require.NoError(t, err)
	item, err := env.svc.Wishlist.AddItem(env.ctx, child, WishlistItemInput{
		ItemName: "Puzzle", RequiredPoints: 40, CategoryID: cat.ID,
	})
	require.NoError(t, err)
	env.grant(parent, child.Email, 10)

	p, err := env.svc.Wishlist.Progress(env.ctx, child, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "25", p.Percentage.String())
	assert.Equal(t, 30, p.PointsNeeded)
	assert.False(t, p.CanRedeem)

	_, err = env.svc.Wishlist.Progress(env.ctx, parent, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	child := childOf(env, parent, "kid@example.com")

	_, err := env.svc.Category.Create(env.ctx, child, types.CategoryTask, CategoryInput{Title: "Chores"})
	assert.ErrorIs(t, err, ErrForbidden)

	chores, err := env.svc.Category.Create(env.ctx, parent, types.CategoryTask, CategoryInput{Title: "Chores"})
	require.NoError(t, err)
	_, err = env.svc.Category.Create(env.ctx, parent, types.CategoryTask, CategoryInput{Title: "Chores"})
	assert.ErrorIs(t, err, ErrConflict)

	// Same title is fine for the other kind.
	_, err = env.svc.Category.Create(env.ctx, parent, types.CategoryWishlist, CategoryInput{Title: "Chores"})
	assert.NoError(t, err)

	_, err = env.svc.Category.Update(env.ctx, parent, types.CategoryWishlist, chores.ID, CategoryInput{Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := env.svc.Category.List(env.ctx, child, types.CategoryTask)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, env.svc.Category.Delete(env.ctx, parent, types.CategoryTask, chores.ID))
	list, err = env.svc.Category.List(env.ctx, child, types.CategoryTask)
	require.NoError(t, err)
	assert.Empty(t, list)
}
