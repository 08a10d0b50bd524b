package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type pgStore struct {
	pool  *pgxpool.Pool
	repos *Repositories
}

// NewPostgresStore wires every repository to the pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, repos: newPgRepositories(pool)}
}

func newPgRepositories(db DBTX) *Repositories {
	return &Repositories{
		FamilyRepo:     &pgFamilyRepository{db: db},
		MemberTypeRepo: &pgMemberTypeRepository{db: db},
		MemberRepo:     &pgMemberRepository{db: db},
		CategoryRepo:   &pgCategoryRepository{db: db},
		TaskRepo:       &pgTaskRepository{db: db},
		AssignmentRepo: &pgAssignmentRepository{db: db},
		WalletRepo:     &pgWalletRepository{db: db},
		HistoryRepo:    &pgPointHistoryRepository{db: db},
		WishlistRepo:   &pgWishlistRepository{db: db},
		RedeemRepo:     &pgRedeemRepository{db: db},
	}
}

func (s *pgStore) Repos() *Repositories {
	return s.repos
}

func (s *pgStore) WithinTx(ctx context.Context, fn TxFunc) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, newPgRepositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", translateError(err))
	}
	return nil
}

func (s *pgStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

var constraintFields = map[string]string{
	"families_email_key":               "email",
	"members_email_key":                "email",
	"members_family_username_key":      "username",
	"member_types_family_name_key":     "name",
	"categories_family_kind_title_key": "title",
	"wallets_member_email_key":         "member_email",
	"wishlists_member_email_key":       "member_email",
}

// translateError turns Postgres unique violations into UniqueViolationError.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		field, ok := constraintFields[pgErr.ConstraintName]
		if !ok {
			field = pgErr.ConstraintName
		}
		return &UniqueViolationError{Constraint: pgErr.ConstraintName, Field: field}
	}
	return err
}

func notFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
