package repository

import (
	"context"
	"strings"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/types"
)

// ============================================
// Wallets
// ============================================

type pgWalletRepository struct {
	db DBTX
}

func (r *pgWalletRepository) ensure(ctx context.Context, email string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO wallets (member_email, total_points) VALUES ($1, 0) ON CONFLICT (member_email) DO NOTHING`,
		strings.ToLower(email),
	)
	return err
}

func (r *pgWalletRepository) selectOne(ctx context.Context, query, email string) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.QueryRow(ctx, query, strings.ToLower(email)).
		Scan(&w.ID, &w.MemberEmail, &w.TotalPoints, &w.LastUpdated)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *pgWalletRepository) GetOrCreate(ctx context.Context, email string) (*Wallet, error) {
	if err := r.ensure(ctx, email); err != nil {
		return nil, err
	}
	return r.FindByEmail(ctx, email)
}

func (r *pgWalletRepository) LockByEmail(ctx context.Context, email string) (*Wallet, error) {
	if err := r.ensure(ctx, email); err != nil {
		return nil, err
	}
	return r.selectOne(ctx,
		`SELECT id, member_email, total_points, last_updated FROM wallets WHERE member_email = $1 FOR UPDATE`,
		email,
	)
}

func (r *pgWalletRepository) FindByEmail(ctx context.Context, email string) (*Wallet, error) {
	return r.selectOne(ctx,
		`SELECT id, member_email, total_points, last_updated FROM wallets WHERE member_email = $1`,
		email,
	)
}

func (r *pgWalletRepository) FindByEmails(ctx context.Context, emails []string) ([]*Wallet, error) {
	lowered := make([]string, len(emails))
	for i, e := range emails {
		lowered[i] = strings.ToLower(e)
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, member_email, total_points, last_updated FROM wallets WHERE member_email = ANY($1)`,
		lowered,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []*Wallet
	for rows.Next() {
		w := &Wallet{}
		if err := rows.Scan(&w.ID, &w.MemberEmail, &w.TotalPoints, &w.LastUpdated); err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (r *pgWalletRepository) UpdateTotal(ctx context.Context, id string, total int, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE wallets SET total_points = $2, last_updated = $3 WHERE id = $1`, id, total, at)
	return err
}

func (r *pgWalletRepository) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM wallets WHERE member_email = $1`, strings.ToLower(email))
	return err
}

// ============================================
// Point history
// ============================================

const historyColumns = `id, wallet_id, member_email, family_id, points, requested_points, reason, task_ref, redeem_ref, granted_by, description, created_at`

type pgPointHistoryRepository struct {
	db DBTX
}

func (r *pgPointHistoryRepository) Create(ctx context.Context, e *PointHistoryEntry) error {
	query := `
		INSERT INTO point_history (
			wallet_id, member_email, family_id, points, requested_points, reason,
			task_ref, redeem_ref, granted_by, description
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query,
		e.WalletID, strings.ToLower(e.MemberEmail), e.FamilyID, e.Points, e.RequestedPoints, string(e.Reason),
		e.TaskRef, e.RedeemRef, e.GrantedBy, e.Description,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *pgPointHistoryRepository) list(ctx context.Context, query string, arg string) ([]*PointHistoryEntry, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*PointHistoryEntry
	for rows.Next() {
		e := &PointHistoryEntry{}
		var reason string
		err := rows.Scan(
			&e.ID, &e.WalletID, &e.MemberEmail, &e.FamilyID, &e.Points, &e.RequestedPoints, &reason,
			&e.TaskRef, &e.RedeemRef, &e.GrantedBy, &e.Description, &e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		e.Reason = types.PointReason(reason)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *pgPointHistoryRepository) ListByEmail(ctx context.Context, email string) ([]*PointHistoryEntry, error) {
	return r.list(ctx,
		`SELECT `+historyColumns+` FROM point_history WHERE member_email = $1 ORDER BY created_at DESC, id DESC`,
		strings.ToLower(email),
	)
}

func (r *pgPointHistoryRepository) ListByFamily(ctx context.Context, familyID string) ([]*PointHistoryEntry, error) {
	return r.list(ctx,
		`SELECT `+historyColumns+` FROM point_history WHERE family_id = $1 ORDER BY created_at DESC, id DESC`,
		familyID,
	)
}

func (r *pgPointHistoryRepository) SumByWallet(ctx context.Context, walletID string) (int, error) {
	var sum int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(points), 0) FROM point_history WHERE wallet_id = $1`, walletID).Scan(&sum)
	return sum, err
}

func (r *pgPointHistoryRepository) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM point_history WHERE member_email = $1`, strings.ToLower(email))
	return err
}
