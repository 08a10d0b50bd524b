package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/config"
	"github.com/Marga-Ghale/ora-family-backend/internal/logger"
	"github.com/Marga-Ghale/ora-family-backend/internal/metrics"
	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/types"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("resource not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidState       = errors.New("invalid state for this operation")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("resource already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrLastParent         = errors.New("cannot delete the last parent in the family")
)

// Error carries a user-facing message for one of the sentinel kinds above.
type Error struct {
	Kind    error
	Message string
	Field   string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...any) error {
	return errorf(ErrValidation, format, args...)
}

func notFoundf(format string, args ...any) error {
	return errorf(ErrNotFound, format, args...)
}

func forbiddenf(format string, args ...any) error {
	return errorf(ErrForbidden, format, args...)
}

func statef(format string, args ...any) error {
	return errorf(ErrInvalidState, format, args...)
}

// conflictFrom converts a repository unique violation into ErrConflict,
// using messages[field] when present.
func conflictFrom(err error, messages map[string]string) error {
	field, ok := repository.IsUniqueViolation(err)
	if !ok {
		return err
	}
	msg, ok := messages[field]
	if !ok {
		msg = fmt.Sprintf("A record with this %s already exists", field)
	}
	return &Error{Kind: ErrConflict, Message: msg, Field: field}
}

// stale maps a lost compare-and-swap to a state error.
func stale(err error, message string) error {
	if errors.Is(err, repository.ErrConcurrentUpdate) {
		return statef("%s", message)
	}
	return err
}

// ============================================
// Actor
// ============================================

// Actor is the authenticated member a request acts as.
type Actor struct {
	FamilyID string
	MemberID string
	Email    string
	Username string
	TypeName string
	Role     types.Role
}

func (a Actor) IsParent() bool { return a.Role.IsParent() }

// ActorFor builds the identity a member acts under.
func ActorFor(m *repository.Member) Actor {
	return Actor{
		FamilyID: m.FamilyID,
		MemberID: m.ID,
		Email:    m.Email,
		Username: m.Username,
		TypeName: m.TypeName,
		Role:     m.Role,
	}
}

func requireParent(actor Actor) error {
	if !actor.IsParent() {
		return forbiddenf("Only parents can perform this action")
	}
	return nil
}

// ============================================
// Collaborators
// ============================================

// Cache is the subset of the Redis wrapper the services use.
type Cache interface {
	SetCache(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetCache(ctx context.Context, key string, dest interface{}) error
	InvalidateCache(ctx context.Context, pattern string) error
}

// EventPublisher pushes realtime events to connected clients.
type EventPublisher interface {
	PublishToFamily(familyID string, event string, payload map[string]interface{})
	PublishToMember(memberID string, event string, payload map[string]interface{})
}

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, familyTitle, resetURL string) error
}

// publishToMemberEmail delivers event to the member room of the member
// owning email. Unknown members are skipped.
func publishToMemberEmail(ctx context.Context, repos *repository.Repositories, events EventPublisher, email, event string, payload map[string]interface{}) {
	m, err := repos.MemberRepo.FindByEmail(ctx, email)
	if err != nil || m == nil {
		return
	}
	events.PublishToMember(m.ID, event, payload)
}

type nopPublisher struct{}

func (nopPublisher) PublishToFamily(string, string, map[string]interface{}) {}
func (nopPublisher) PublishToMember(string, string, map[string]interface{}) {}

// ============================================
// Services Container
// ============================================

type Services struct {
	Auth     AuthService
	Family   FamilyService
	Member   MemberService
	Category CategoryService
	Task     TaskService
	Wallet   WalletService
	Wishlist WishlistService
	Redeem   RedeemService
}

// ServiceDeps contains all dependencies needed to create services
type ServiceDeps struct {
	Config  *config.Config
	Store   repository.Store
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	Cache   Cache
	Mailer  Mailer
	Events  EventPublisher
	Clock   func() time.Time

	rankings *rankingCache
}

func NewServices(deps *ServiceDeps) *Services {
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.Events == nil {
		deps.Events = nopPublisher{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Config == nil {
		deps.Config = config.Load()
	}

	deps.rankings = newRankingCache(deps.Cache, time.Duration(deps.Config.RankingCacheTTL)*time.Second, deps.Logger.Component("Ranking"))
	l := newLedger(deps)

	return &Services{
		Auth:     NewAuthService(deps),
		Family:   NewFamilyService(deps),
		Member:   NewMemberService(deps),
		Category: NewCategoryService(deps),
		Task:     NewTaskService(deps, l),
		Wallet:   NewWalletService(deps, l),
		Wishlist: NewWishlistService(deps),
		Redeem:   NewRedeemService(deps, l),
	}
}
