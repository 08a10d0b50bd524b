package service

import (
	"testing"

	"github.com/Marga-Ghale/ora-family-backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMember_ProvisionsWalletAndWishlist(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")

	child := env.addMember(parent, "Kid@Example.com", "Child")
	assert.Equal(t, "kid@example.com", child.Email)
	assert.Equal(t, types.RoleChild, child.Role)

	repos := env.store.Repos()
	w, err := repos.WalletRepo.FindByEmail(env.ctx, child.Email)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Zero(t, w.TotalPoints)

	wl, err := repos.WishlistRepo.FindByEmail(env.ctx, child.Email)
	require.NoError(t, err)
	require.NotNil(t, wl)
	assert.Equal(t, "kid's Wishlist", wl.Title)
}

func TestCreateMember_ReusesMemberType(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	env.addMember(parent, "a@example.com", "Child")
	env.addMember(parent, "b@example.com", "Child")
	dad := env.addMember(parent, "dad@example.com", "Parent")
	assert.Equal(t, types.RoleParent, dad.Role)

	mts, err := env.svc.Member.ListMemberTypes(env.ctx, parent)
	require.NoError(t, err)
	assert.Len(t, mts, 2)
}

func TestCreateMember_Conflicts(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	env.addMember(parent, "kid@example.com", "Child")

	_, err := env.svc.Member.CreateMember(env.ctx, parent, CreateMemberInput{
		Email: "kid@example.com", Username: "other", TypeName: "Child",
	})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.svc.Member.CreateMember(env.ctx, parent, CreateMemberInput{
		Email: "kid2@example.com", Username: "kid", TypeName: "Child",
	})
	require.ErrorIs(t, err, ErrConflict)
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "username", svcErr.Field)
}

func TestCreateMember_ChildForbidden(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	child := childOf(env, parent, "kid@example.com")

	_, err := env.svc.Member.CreateMember(env.ctx, child, CreateMemberInput{
		Email: "friend@example.com", Username: "friend", TypeName: "Child",
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteMember_LastParent(t *testing.T) {
	env := newTestEnv(t)
	mom := env.signUp("mom@example.com")
	dad := env.addMember(mom, "dad@example.com", "Parent")

	err := env.svc.Member.DeleteMember(env.ctx, mom, mom.MemberID)
	assert.ErrorIs(t, err, ErrValidation, "self delete")

	require.NoError(t, env.svc.Member.DeleteMember(env.ctx, mom, dad.MemberID))

	// dad's actor outlives his account; mom is now the only parent.
	err = env.svc.Member.DeleteMember(env.ctx, dad, mom.MemberID)
	require.ErrorIs(t, err, ErrLastParent)
	assert.Equal(t, "Cannot delete the last parent in the family", err.Error())

	count, err := env.store.Repos().MemberRepo.CountByRole(env.ctx, mom.FamilyID, types.RoleParent)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDeleteMember_CascadesLedgerAndWishlist(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	child := childOf(env, parent, "kid@example.com")
	env.grant(parent, child.Email, 25)

	require.NoError(t, env.svc.Member.DeleteMember(env.ctx, parent, child.MemberID))

	repos := env.store.Repos()
	w, err := repos.WalletRepo.FindByEmail(env.ctx, child.Email)
	require.NoError(t, err)
	assert.Nil(t, w)

	history, err := repos.HistoryRepo.ListByEmail(env.ctx, child.Email)
	require.NoError(t, err)
	assert.Empty(t, history)

	wl, err := repos.WishlistRepo.FindByEmail(env.ctx, child.Email)
	require.NoError(t, err)
	assert.Nil(t, wl)

	assert.Contains(t, env.cache.invalidated, rankingKey(parent.FamilyID))
}

func TestDeleteMember_OtherFamilyNotFound(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	other := env.signUp("other@example.com")
	otherChild := childOf(env, other, "otherkid@example.com")

	err := env.svc.Member.DeleteMember(env.ctx, parent, otherChild.MemberID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetPermissions(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	mt, err := env.svc.Member.CreateMemberType(env.ctx, parent, "Teen", nil)
	require.NoError(t, err)
	assert.Equal(t, types.RoleChild, mt.Role)

	_, err = env.svc.Member.CreateMemberType(env.ctx, parent, "Teen", nil)
	assert.ErrorIs(t, err, ErrConflict)

	updated, err := env.svc.Member.SetPermissions(env.ctx, parent, mt.ID, []string{"create_task"})
	require.NoError(t, err)
	assert.Equal(t, []string{"create_task"}, updated.Permissions)
}
