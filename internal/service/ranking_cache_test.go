package service

import (
	"context"
	"testing"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankingCache_DropsRankingReadBeforeInvalidation(t *testing.T) {
	env := newTestEnv(t)
	rc := newRankingCache(env.cache, time.Minute, logger.Discard().Component("Ranking"))
	stale := []RankingEntry{{MemberID: "a", TotalPoints: 10, Rank: 1}}

	_, gen, ok := rc.get(env.ctx, "fam")
	require.False(t, ok)

	rc.invalidate(env.ctx, "fam")
	rc.put(env.ctx, "fam", gen, stale)
	assert.NotContains(t, env.cache.data, rankingKey("fam"))

	_, gen, _ = rc.get(env.ctx, "fam")
	rc.put(env.ctx, "fam", gen, stale)
	cached, _, ok := rc.get(env.ctx, "fam")
	require.True(t, ok)
	assert.Equal(t, stale, cached)
}

func TestRankingCache_NilIsNoop(t *testing.T) {
	var rc *rankingCache
	_, _, ok := rc.get(context.Background(), "fam")
	assert.False(t, ok)
	rc.put(context.Background(), "fam", 0, nil)
	rc.invalidate(context.Background(), "fam")

	disabled := newRankingCache(nil, time.Minute, logger.Discard().Component("Ranking"))
	_, _, ok = disabled.get(context.Background(), "fam")
	assert.False(t, ok)
}

func TestRanking_CommitDuringComputeIsNotCached(t *testing.T) {
	env := newTestEnv(t)
	parent := env.signUp("mom@example.com")
	child := childOf(env, parent, "kid@example.com")
	wallet := env.svc.Wallet.(*walletService)

	// a ranking computed before the grant commits, written back after it
	_, gen, ok := wallet.rankings.get(env.ctx, parent.FamilyID)
	require.False(t, ok)
	members, err := env.store.Repos().MemberRepo.FindByFamily(env.ctx, parent.FamilyID)
	require.NoError(t, err)
	before := buildRanking(members, nil)

	env.grant(parent, child.Email, 25)
	wallet.rankings.put(env.ctx, parent.FamilyID, gen, before)
	assert.NotContains(t, env.cache.data, rankingKey(parent.FamilyID))

	fresh, err := wallet.Ranking(env.ctx, parent)
	require.NoError(t, err)
	assert.Equal(t, child.Email, fresh[0].Email)
	assert.Equal(t, 25, fresh[0].TotalPoints)
}
