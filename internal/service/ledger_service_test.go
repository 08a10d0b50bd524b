package service

import (
	"sync"
	"testing"

	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_CreditThenPenalty(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	child := childOf(env, parent, "kid@example.com")

	_, err := env.svc.Wallet.Adjust(env.ctx, AdjustInput{
		FamilyID: parent.FamilyID, MemberEmail: child.Email, Delta: 50,
		Reason: types.ReasonTaskCompletion, GrantedBy: parent.Email,
	})
	require.NoError(t, err)
	_, err = env.svc.Wallet.Adjust(env.ctx, AdjustInput{
		FamilyID: parent.FamilyID, MemberEmail: child.Email, Delta: -20,
		Reason: types.ReasonPenalty, GrantedBy: parent.Email,
	})
	require.NoError(t, err)

	assert.Equal(t, 30, env.balance(child.Email))

	history, err := env.svc.Wallet.MyHistory(env.ctx, child)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// newest first
	assert.Equal(t, -20, history[0].Points)
	assert.Equal(t, 50, history[1].Points)
}

func TestLedger_ClampsAtZeroAndRecordsAppliedDelta(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	child := childOf(env, parent, "kid@example.com")
	env.grant(parent, child.Email, 10)

	res, err := env.svc.Wallet.Adjust(env.ctx, AdjustInput{
		FamilyID: parent.FamilyID, MemberEmail: child.Email, Delta: -25,
		Reason: types.ReasonPenalty, GrantedBy: parent.Email,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Wallet.TotalPoints)
	assert.Equal(t, -10, res.Entry.Points)
	assert.Equal(t, -25, res.Entry.RequestedPoints)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.LedgerClamped))

	report, err := env.svc.Wallet.Reconcile(env.ctx, parent.FamilyID)
	require.NoError(t, err)
	for _, entry := range report {
		assert.True(t, entry.Balanced, entry.MemberEmail)
	}
}

func TestLedger_SequenceMatchesHistorySum(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	child := childOf(env, parent, "kid@example.com")

	deltas := []int{5, -10, 30, -7, -100, 12, 3}
	expected := 0
	for _, d := range deltas {
		expected += d
		if expected < 0 {
			expected = 0
		}
		_, err := env.svc.Wallet.Adjust(env.ctx, AdjustInput{
			FamilyID: parent.FamilyID, MemberEmail: child.Email, Delta: d,
			Reason: types.ReasonAdjustment, GrantedBy: parent.Email,
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, env.balance(child.Email), 0)
	}

	assert.Equal(t, expected, env.balance(child.Email))
	report, err := env.svc.Wallet.ReconcileFamily(env.ctx, parent)
	require.NoError(t, err)
	require.NotEmpty(t, report)
	for _, entry := range report {
		assert.True(t, entry.Balanced)
		assert.Equal(t, entry.TotalPoints, entry.HistorySum)
	}
}

func TestLedger_ConcurrentAdjustmentsSerialize(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	child := childOf(env, parent, "kid@example.com")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Wallet.Adjust(env.ctx, AdjustInput{
				FamilyID: parent.FamilyID, MemberEmail: child.Email, Delta: 5,
				Reason: types.ReasonBonus, GrantedBy: parent.Email,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, env.balance(child.Email))
}

func TestManualAdjust(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	child := childOf(env, parent, "kid@example.com")

	t.Run("child cannot adjust", func(t *testing.T) {
		_, err := env.svc.Wallet.ManualAdjust(env.ctx, child, ManualAdjustInput{
			MemberEmail: child.Email, Points: 10, Description: "self",
		})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("zero points rejected", func(t *testing.T) {
		_, err := env.svc.Wallet.ManualAdjust(env.ctx, parent, ManualAdjustInput{
			MemberEmail: child.Email, Points: 0, Description: "nothing",
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("description required", func(t *testing.T) {
		_, err := env.svc.Wallet.ManualAdjust(env.ctx, parent, ManualAdjustInput{
			MemberEmail: child.Email, Points: 5,
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("reason follows sign", func(t *testing.T) {
		res, err := env.svc.Wallet.ManualAdjust(env.ctx, parent, ManualAdjustInput{
			MemberEmail: child.Email, Points: 15, Description: "birthday",
		})
		require.NoError(t, err)
		assert.Equal(t, types.ReasonManualGrant, res.Entry.Reason)

		res, err = env.svc.Wallet.ManualAdjust(env.ctx, parent, ManualAdjustInput{
			MemberEmail: child.Email, Points: -5, Description: "correction",
		})
		require.NoError(t, err)
		assert.Equal(t, types.ReasonAdjustment, res.Entry.Reason)
		assert.Equal(t, 10, res.Wallet.TotalPoints)
	})

	t.Run("member of another family is not found", func(t *testing.T) {
		other := env.signUp("other@example.com")
		_, err := env.svc.Wallet.ManualAdjust(env.ctx, parent, ManualAdjustInput{
			MemberEmail: other.Email, Points: 5, Description: "nope",
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestInitializeWallets(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	child := childOf(env, parent, "kid@example.com")

	require.NoError(t, env.store.Repos().WalletRepo.DeleteByEmail(env.ctx, child.Email))

	res, err := env.svc.Wallet.InitializeWallets(env.ctx, parent)
	require.NoError(t, err)
	assert.Equal(t, []string{child.Email}, res.Created)
	assert.Equal(t, []string{parent.Email}, res.Existing)
}

func TestBuildRanking_TiesBreakByMemberID(t *testing.T) {
	members := []*repository.Member{
		{ID: "c", Email: "c@example.com", Username: "c"},
		{ID: "b", Email: "b@example.com", Username: "b"},
		{ID: "a", Email: "a@example.com", Username: "a"},
		{ID: "d", Email: "d@example.com", Username: "d"},
	}
	wallets := []*repository.Wallet{
		{MemberEmail: "a@example.com", TotalPoints: 10},
		{MemberEmail: "b@example.com", TotalPoints: 30},
		{MemberEmail: "c@example.com", TotalPoints: 30},
	}

	ranking := buildRanking(members, wallets)
	require.Len(t, ranking, 4)

	assert.Equal(t, "b", ranking[0].MemberID)
	assert.Equal(t, "c", ranking[1].MemberID)
	assert.Equal(t, "a", ranking[2].MemberID)
	assert.Equal(t, "d", ranking[3].MemberID)
	assert.Equal(t, 0, ranking[3].TotalPoints)
	for i, entry := range ranking {
		assert.Equal(t, i+1, entry.Rank)
	}
}

func TestRanking_CachedAndInvalidatedByLedger(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	child := childOf(env, parent, "kid@example.com")

	first, err := env.svc.Wallet.Ranking(env.ctx, parent)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Contains(t, env.cache.data, rankingKey(parent.FamilyID))

	env.grant(parent, child.Email, 40)
	assert.NotContains(t, env.cache.data, rankingKey(parent.FamilyID))

	second, err := env.svc.Wallet.Ranking(env.ctx, child)
	require.NoError(t, err)
	assert.Equal(t, child.Email, second[0].Email)
	assert.Equal(t, 40, second[0].TotalPoints)
	assert.Equal(t, 1, second[0].Rank)
}

func TestHistoryAccess(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	child := childOf(env, parent, "kid@example.com")
	env.grant(parent, child.Email, 5)

	_, err := env.svc.Wallet.MemberHistory(env.ctx, child, parent.Email)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.Wallet.FamilyHistory(env.ctx, child)
	assert.ErrorIs(t, err, ErrForbidden)

	entries, err := env.svc.Wallet.FamilyHistory(env.ctx, parent)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
