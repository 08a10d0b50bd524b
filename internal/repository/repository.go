package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/types"
)

// ============================================
// Entities
// ============================================

type Family struct {
	ID                string
	Title             string
	Email             string
	Password          string
	Active            bool
	ResetTokenHash    *string
	ResetTokenExpires *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type MemberType struct {
	ID          string
	FamilyID    string
	Name        string
	Role        types.Role
	Permissions []string
	CreatedAt   time.Time
}

type Member struct {
	ID           string
	FamilyID     string
	MemberTypeID string
	Email        string
	Username     string
	BirthDate    *time.Time
	Password     *string
	IsFirstLogin bool
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Joined from member_types
	TypeName string
	Role     types.Role
}

type RefreshToken struct {
	Token     string
	MemberID  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Category struct {
	ID          string
	FamilyID    string
	Kind        types.CategoryKind
	Title       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Task struct {
	ID          string
	FamilyID    string
	CategoryID  *string
	Title       string
	Description string
	IsMandatory bool
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type TaskAssignment struct {
	ID                 string
	FamilyID           string
	TaskID             string
	AssigneeEmail      string
	AssignedBy         string
	AssignedPoints     int
	PenaltyPoints      int
	Deadline           time.Time
	Priority           int
	AssignmentApproved bool
	AssignmentApprover *string
	Status             types.AssignmentStatus
	CompletedAt        *time.Time
	ApprovedBy         *string
	ApprovedAt         *time.Time
	Notes              string
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// Joined from tasks
	TaskTitle string
}

type AssignmentFilter struct {
	FamilyID      string
	AssigneeEmail string
	Statuses      []types.AssignmentStatus
	Approved      *bool
	// Sorts by deadline ascending instead of newest first
	ByDeadline bool
}

type Wallet struct {
	ID          string
	MemberEmail string
	TotalPoints int
	LastUpdated time.Time
}

// PointHistoryEntry is immutable once written.
type PointHistoryEntry struct {
	ID              string
	WalletID        string
	MemberEmail     string
	FamilyID        string
	Points          int
	RequestedPoints int
	Reason          types.PointReason
	TaskRef         *string
	RedeemRef       *string
	GrantedBy       string
	Description     string
	CreatedAt       time.Time
}

type Wishlist struct {
	ID          string
	MemberEmail string
	Title       string
	CreatedAt   time.Time
}

type WishlistItem struct {
	ID             string
	WishlistID     string
	ItemName       string
	Description    string
	RequiredPoints int
	CategoryID     *string
	Priority       int
	Status         types.WishlistItemStatus
	AssignedBy     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type RedeemRequest struct {
	ID               string
	FamilyID         string
	RequesterEmail   string
	WishlistItemID   *string
	RequestDetails   string
	PointCost        int
	Status           types.RedeemStatus
	ApproverEmail    *string
	ParentApprovedAt *time.Time
	ChildAcceptedAt  *time.Time
	RejectionReason  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type RedeemFilter struct {
	FamilyID       string
	RequesterEmail string
	WishlistItemID string
	Statuses       []types.RedeemStatus
}

// ============================================
// Errors
// ============================================

// ErrConcurrentUpdate is returned when a guarded update matched no row
// because the record moved out of the expected state.
var ErrConcurrentUpdate = errors.New("record was modified concurrently")

// UniqueViolationError reports which unique field a write collided on.
type UniqueViolationError struct {
	Constraint string
	Field      string
}

func (e *UniqueViolationError) Error() string {
	return "duplicate value for " + e.Field
}

// IsUniqueViolation returns the violated field if err is a uniqueness failure.
func IsUniqueViolation(err error) (string, bool) {
	var uv *UniqueViolationError
	if errors.As(err, &uv) {
		return uv.Field, true
	}
	return "", false
}

// ============================================
// Repository interfaces
// ============================================

type FamilyRepository interface {
	Create(ctx context.Context, family *Family) error
	FindByID(ctx context.Context, id string) (*Family, error)
	FindByIDForUpdate(ctx context.Context, id string) (*Family, error)
	FindByEmail(ctx context.Context, email string) (*Family, error)
	FindByResetTokenHash(ctx context.Context, hash string) (*Family, error)
	FindAll(ctx context.Context) ([]*Family, error)
	Update(ctx context.Context, family *Family) error
}

type MemberTypeRepository interface {
	Create(ctx context.Context, mt *MemberType) error
	FindByID(ctx context.Context, id string) (*MemberType, error)
	FindByName(ctx context.Context, familyID, name string) (*MemberType, error)
	FindByFamily(ctx context.Context, familyID string) ([]*MemberType, error)
	UpdatePermissions(ctx context.Context, id string, permissions []string) error
}

type MemberRepository interface {
	Create(ctx context.Context, member *Member) error
	FindByID(ctx context.Context, id string) (*Member, error)
	FindByEmail(ctx context.Context, email string) (*Member, error)
	FindByFamily(ctx context.Context, familyID string) ([]*Member, error)
	CountByRole(ctx context.Context, familyID string, role types.Role) (int, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error

	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
	// ConsumeRefreshToken deletes the token and returns it, or nil when it
	// was already used or never existed.
	ConsumeRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
	DeleteRefreshTokensByMember(ctx context.Context, memberID string) error
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *Category) error
	FindByID(ctx context.Context, id string) (*Category, error)
	FindByFamily(ctx context.Context, familyID string, kind types.CategoryKind) ([]*Category, error)
	Update(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id string) error
}

type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, id string) (*Task, error)
	FindByFamily(ctx context.Context, familyID string) ([]*Task, error)
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, id string) error
}

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *TaskAssignment) error
	FindByID(ctx context.Context, id string) (*TaskAssignment, error)
	FindByIDForUpdate(ctx context.Context, id string) (*TaskAssignment, error)
	List(ctx context.Context, filter AssignmentFilter) ([]*TaskAssignment, error)
	// FindOverdue returns approved assignments still in assigned past their deadline.
	FindOverdue(ctx context.Context, now time.Time, limit int) ([]*TaskAssignment, error)
	// Update writes the assignment only if its stored status equals expected.
	Update(ctx context.Context, assignment *TaskAssignment, expected types.AssignmentStatus) error
	Delete(ctx context.Context, id string) error
}

type WalletRepository interface {
	GetOrCreate(ctx context.Context, email string) (*Wallet, error)
	// LockByEmail is GetOrCreate plus a row lock held until the transaction ends.
	LockByEmail(ctx context.Context, email string) (*Wallet, error)
	FindByEmail(ctx context.Context, email string) (*Wallet, error)
	FindByEmails(ctx context.Context, emails []string) ([]*Wallet, error)
	UpdateTotal(ctx context.Context, id string, total int, at time.Time) error
	DeleteByEmail(ctx context.Context, email string) error
}

type PointHistoryRepository interface {
	Create(ctx context.Context, entry *PointHistoryEntry) error
	ListByEmail(ctx context.Context, email string) ([]*PointHistoryEntry, error)
	ListByFamily(ctx context.Context, familyID string) ([]*PointHistoryEntry, error)
	SumByWallet(ctx context.Context, walletID string) (int, error)
	DeleteByEmail(ctx context.Context, email string) error
}

type WishlistRepository interface {
	GetOrCreate(ctx context.Context, email, title string) (*Wishlist, error)
	FindByEmail(ctx context.Context, email string) (*Wishlist, error)
	FindByID(ctx context.Context, id string) (*Wishlist, error)
	DeleteByEmail(ctx context.Context, email string) error

	CreateItem(ctx context.Context, item *WishlistItem) error
	FindItemByID(ctx context.Context, id string) (*WishlistItem, error)
	FindItemByIDForUpdate(ctx context.Context, id string) (*WishlistItem, error)
	// ListItems sorts by priority descending then newest first; empty status lists all.
	ListItems(ctx context.Context, wishlistID string, status types.WishlistItemStatus) ([]*WishlistItem, error)
	UpdateItem(ctx context.Context, item *WishlistItem) error
}

type RedeemRepository interface {
	Create(ctx context.Context, req *RedeemRequest) error
	FindByID(ctx context.Context, id string) (*RedeemRequest, error)
	FindByIDForUpdate(ctx context.Context, id string) (*RedeemRequest, error)
	List(ctx context.Context, filter RedeemFilter) ([]*RedeemRequest, error)
	// Update writes the request only if its stored status equals expected.
	Update(ctx context.Context, req *RedeemRequest, expected types.RedeemStatus) error
}
