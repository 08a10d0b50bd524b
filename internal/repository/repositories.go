package repository

import (
	"context"
)

type Repositories struct {
	FamilyRepo     FamilyRepository
	MemberTypeRepo MemberTypeRepository
	MemberRepo     MemberRepository
	CategoryRepo   CategoryRepository
	TaskRepo       TaskRepository
	AssignmentRepo AssignmentRepository
	WalletRepo     WalletRepository
	HistoryRepo    PointHistoryRepository
	WishlistRepo   WishlistRepository
	RedeemRepo     RedeemRepository
}

// TxFunc runs against repositories bound to a single transaction.
type TxFunc func(ctx context.Context, repos *Repositories) error

// Store hands out repositories and runs units of work atomically.
// Repositories passed to a TxFunc must not be used after it returns.
type Store interface {
	Repos() *Repositories
	WithinTx(ctx context.Context, fn TxFunc) error
	Close()
}
