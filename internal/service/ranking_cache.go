package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

func rankingKey(familyID string) string {
	return "ranking:" + familyID
}

// rankingCache stores computed rankings per family. Every invalidation
// bumps the family's generation; a ranking read under an older
// generation is never written back, so a commit that lands while a
// ranking is being computed cannot leave a stale copy behind.
//
// Generations are per process. Other instances sharing the same Redis
// only get the delete, leaving a window bounded by the TTL.
type rankingCache struct {
	cache Cache
	ttl   time.Duration
	log   *logrus.Entry

	mu   sync.Mutex
	gens map[string]uint64
}

func newRankingCache(cache Cache, ttl time.Duration, log *logrus.Entry) *rankingCache {
	return &rankingCache{cache: cache, ttl: ttl, log: log, gens: make(map[string]uint64)}
}

func (r *rankingCache) enabled() bool {
	return r != nil && r.cache != nil
}

// get returns the cached ranking, if any, and the generation to pass to put.
func (r *rankingCache) get(ctx context.Context, familyID string) ([]RankingEntry, uint64, bool) {
	if !r.enabled() {
		return nil, 0, false
	}
	r.mu.Lock()
	gen := r.gens[familyID]
	r.mu.Unlock()

	var cached []RankingEntry
	if err := r.cache.GetCache(ctx, rankingKey(familyID), &cached); err == nil && cached != nil {
		return cached, gen, true
	}
	return nil, gen, false
}

func (r *rankingCache) put(ctx context.Context, familyID string, gen uint64, ranking []RankingEntry) {
	if !r.enabled() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gens[familyID] != gen {
		return
	}
	if err := r.cache.SetCache(ctx, rankingKey(familyID), ranking, r.ttl); err != nil {
		r.log.WithError(err).Warn("failed to cache ranking")
	}
}

func (r *rankingCache) invalidate(ctx context.Context, familyID string) {
	if !r.enabled() {
		return
	}
	r.mu.Lock()
	r.gens[familyID]++
	r.mu.Unlock()

	if err := r.cache.InvalidateCache(ctx, rankingKey(familyID)); err != nil {
		r.log.WithError(err).Warn("failed to invalidate ranking cache")
	}
}
