package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Marga-Ghale/ora-family-backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_WithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, repos *Repositories) error {
		w, err := repos.WalletRepo.GetOrCreate(ctx, "kid@example.com")
		require.NoError(t, err)
		require.NoError(t, repos.WalletRepo.UpdateTotal(ctx, w.ID, 40, now()))
		return boom
	})
	require.ErrorIs(t, err, boom)

	w, err := store.Repos().WalletRepo.FindByEmail(ctx, "kid@example.com")
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestMemoryStore_WithinTxCommits(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.WithinTx(ctx, func(ctx context.Context, repos *Repositories) error {
		w, err := repos.WalletRepo.GetOrCreate(ctx, "Kid@Example.com")
		if err != nil {
			return err
		}
		return repos.WalletRepo.UpdateTotal(ctx, w.ID, 15, now())
	})
	require.NoError(t, err)

	w, err := store.Repos().WalletRepo.FindByEmail(ctx, "kid@example.com")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, 15, w.TotalPoints)
	assert.Equal(t, "kid@example.com", w.MemberEmail)
}

func TestMemoryStore_GetOrCreateIsIdempotentUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := store.Repos().WalletRepo.GetOrCreate(ctx, "same@example.com")
			if assert.NoError(t, err) {
				ids[i] = w.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	wallets, err := store.Repos().WalletRepo.FindByEmails(ctx, []string{"same@example.com"})
	require.NoError(t, err)
	assert.Len(t, wallets, 1)
}

func TestMemoryStore_UniqueConstraints(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryStore().Repos()

	fam := &Family{Title: "Smiths", Email: "a@example.com", Password: "x", Active: true}
	require.NoError(t, repos.FamilyRepo.Create(ctx, fam))

	mt := &MemberType{FamilyID: fam.ID, Name: "Parent", Role: types.RoleParent}
	require.NoError(t, repos.MemberTypeRepo.Create(ctx, mt))
	err := repos.MemberTypeRepo.Create(ctx, &MemberType{FamilyID: fam.ID, Name: "Parent", Role: types.RoleParent})
	field, ok := IsUniqueViolation(err)
	require.True(t, ok)
	assert.Equal(t, "name", field)

	require.NoError(t, repos.MemberRepo.Create(ctx, &Member{FamilyID: fam.ID, MemberTypeID: mt.ID, Email: "a@example.com", Username: "mom"}))

	err = repos.MemberRepo.Create(ctx, &Member{FamilyID: fam.ID, MemberTypeID: mt.ID, Email: "A@example.com", Username: "other"})
	field, ok = IsUniqueViolation(err)
	require.True(t, ok)
	assert.Equal(t, "email", field)

	err = repos.MemberRepo.Create(ctx, &Member{FamilyID: fam.ID, MemberTypeID: mt.ID, Email: "b@example.com", Username: "mom"})
	field, ok = IsUniqueViolation(err)
	require.True(t, ok)
	assert.Equal(t, "username", field)
}

func TestMemoryStore_GuardedAssignmentUpdate(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryStore().Repos()

	task := &Task{FamilyID: "fam", Title: "Dishes", CreatedBy: "m1"}
	require.NoError(t, repos.TaskRepo.Create(ctx, task))
	a := &TaskAssignment{FamilyID: "fam", TaskID: task.ID, AssigneeEmail: "kid@example.com", AssignedPoints: 10, Status: types.AssignmentCompleted}
	require.NoError(t, repos.AssignmentRepo.Create(ctx, a))

	a.Status = types.AssignmentApproved
	require.NoError(t, repos.AssignmentRepo.Update(ctx, a, types.AssignmentCompleted))

	again := *a
	err := repos.AssignmentRepo.Update(ctx, &again, types.AssignmentCompleted)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)

	stored, err := repos.AssignmentRepo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dishes", stored.TaskTitle)
	assert.Equal(t, types.AssignmentApproved, stored.Status)
}

func TestMemoryStore_WishlistItemsOrdering(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryStore().Repos()

	wl, err := repos.WishlistRepo.GetOrCreate(ctx, "kid@example.com", "kid's Wishlist")
	require.NoError(t, err)
	again, err := repos.WishlistRepo.GetOrCreate(ctx, "kid@example.com", "other")
	require.NoError(t, err)
	assert.Equal(t, wl.ID, again.ID)
	assert.Equal(t, "kid's Wishlist", again.Title)

	for _, it := range []*WishlistItem{
		{WishlistID: wl.ID, ItemName: "low", RequiredPoints: 5, Priority: 1},
		{WishlistID: wl.ID, ItemName: "high", RequiredPoints: 5, Priority: 9},
		{WishlistID: wl.ID, ItemName: "gone", RequiredPoints: 5, Priority: 10, Status: types.WishlistItemRemoved},
	} {
		require.NoError(t, repos.WishlistRepo.CreateItem(ctx, it))
	}

	items, err := repos.WishlistRepo.ListItems(ctx, wl.ID, types.WishlistItemActive)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "high", items[0].ItemName)
	assert.Equal(t, "low", items[1].ItemName)
}
