package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/config"
	"github.com/Marga-Ghale/ora-family-backend/internal/logger"
	"github.com/Marga-Ghale/ora-family-backend/internal/metrics"
	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/types"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	fail error
	sent []string
}

func (m *fakeMailer) SendPasswordReset(ctx context.Context, to, familyTitle, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, resetURL)
	return nil
}

func (m *fakeMailer) lastToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	url := m.sent[len(m.sent)-1]
	return url[strings.LastIndex(url, "/")+1:]
}

var errCacheMiss = errors.New("cache miss")

type fakeCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) SetCache(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func (c *fakeCache) GetCache(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	b, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return errCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *fakeCache) InvalidateCache(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, pattern)
	c.invalidated = append(c.invalidated, pattern)
	return nil
}

type publishedEvent struct {
	room    string
	target  string
	event   string
	payload map[string]interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishToFamily(familyID, event string, payload map[string]interface{}) {
	p.record("family", familyID, event, payload)
}

func (p *recordingPublisher) PublishToMember(memberID, event string, payload map[string]interface{}) {
	p.record("member", memberID, event, payload)
}

func (p *recordingPublisher) record(room, target, event string, payload map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{room: room, target: target, event: event, payload: payload})
}

// find returns the recorded events named event.
func (p *recordingPublisher) find(event string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	t       *testing.T
	ctx     context.Context
	store   *repository.MemoryStore
	svc     *Services
	mailer  *fakeMailer
	cache   *fakeCache
	events  *recordingPublisher
	metrics *metrics.Metrics
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		t:       t,
		ctx:     context.Background(),
		store:   repository.NewMemoryStore(),
		mailer:  &fakeMailer{},
		cache:   newFakeCache(),
		events:  &recordingPublisher{},
		metrics: metrics.New("test"),
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	cfg := &config.Config{
		JWTSecret:            "test-secret",
		JWTExpiry:            1,
		RefreshExpiry:        1,
		ResetTokenTTLMinutes: 60,
		FrontendURL:          "http://localhost:3000",
		RankingCacheTTL:      60,
	}
	env.svc = NewServices(&ServiceDeps{
		Config:  cfg,
		Store:   env.store,
		Logger:  logger.Discard(),
		Metrics: env.metrics,
		Cache:   env.cache,
		Mailer:  env.mailer,
		Events:  env.events,
		Clock:   func() time.Time { return env.now },
	})
	return env
}

// signUp creates a family and returns its parent as an actor.
func (e *testEnv) signUp(email string) Actor {
	e.t.Helper()
	res, err := e.svc.Auth.SignUp(e.ctx, SignUpInput{
		Title:    "The " + email,
		Email:    email,
		Password: "password123",
		Username: strings.Split(email, "@")[0],
	})
	require.NoError(e.t, err)
	return ActorFor(res.Member)
}

func (e *testEnv) addMember(parent Actor, email, typeName string) Actor {
	e.t.Helper()
	m, err := e.svc.Member.CreateMember(e.ctx, parent, CreateMemberInput{
		Email:    email,
		Username: strings.Split(email, "@")[0],
		TypeName: typeName,
	})
	require.NoError(e.t, err)
	return ActorFor(m)
}

func (e *testEnv) grant(parent Actor, email string, points int) {
	e.t.Helper()
	_, err := e.svc.Wallet.ManualAdjust(e.ctx, parent, ManualAdjustInput{
		MemberEmail: email,
		Points:      points,
		Description: "test grant",
	})
	require.NoError(e.t, err)
}

func (e *testEnv) balance(email string) int {
	e.t.Helper()
	w, err := e.store.Repos().WalletRepo.FindByEmail(e.ctx, email)
	require.NoError(e.t, err)
	require.NotNil(e.t, w)
	return w.TotalPoints
}

func childOf(e *testEnv, parent Actor, email string) Actor {
	e.t.Helper()
	child := e.addMember(parent, email, "Child")
	require.Equal(e.t, types.RoleChild, child.Role)
	return child
}
