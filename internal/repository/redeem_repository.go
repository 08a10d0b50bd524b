package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/types"
)

const redeemColumns = `id, family_id, requester_email, wishlist_item_id, request_details, point_cost, status,
	approver_email, parent_approved_at, child_accepted_at, rejection_reason, created_at, updated_at`

type pgRedeemRepository struct {
	db DBTX
}

func scanRedeem(row rowScanner) (*RedeemRequest, error) {
	rr := &RedeemRequest{}
	var status string
	err := row.Scan(
		&rr.ID, &rr.FamilyID, &rr.RequesterEmail, &rr.WishlistItemID, &rr.RequestDetails, &rr.PointCost,
		&status, &rr.ApproverEmail, &rr.ParentApprovedAt, &rr.ChildAcceptedAt, &rr.RejectionReason,
		&rr.CreatedAt, &rr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rr.Status = types.RedeemStatus(status)
	return rr, nil
}

func (r *pgRedeemRepository) Create(ctx context.Context, req *RedeemRequest) error {
	if req.Status == "" {
		req.Status = types.RedeemPending
	}
	query := `
		INSERT INTO redeem_requests (family_id, requester_email, wishlist_item_id, request_details, point_cost, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		req.FamilyID, strings.ToLower(req.RequesterEmail), req.WishlistItemID, req.RequestDetails,
		req.PointCost, string(req.Status),
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (r *pgRedeemRepository) FindByID(ctx context.Context, id string) (*RedeemRequest, error) {
	rr, err := scanRedeem(r.db.QueryRow(ctx, `SELECT `+redeemColumns+` FROM redeem_requests WHERE id = $1`, id))
	if notFound(err) {
		return nil, nil
	}
	return rr, err
}

func (r *pgRedeemRepository) FindByIDForUpdate(ctx context.Context, id string) (*RedeemRequest, error) {
	rr, err := scanRedeem(r.db.QueryRow(ctx, `SELECT `+redeemColumns+` FROM redeem_requests WHERE id = $1 FOR UPDATE`, id))
	if notFound(err) {
		return nil, nil
	}
	return rr, err
}

func (r *pgRedeemRepository) List(ctx context.Context, filter RedeemFilter) ([]*RedeemRequest, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.FamilyID != "" {
		add("family_id = $%d", filter.FamilyID)
	}
	if filter.RequesterEmail != "" {
		add("requester_email = $%d", strings.ToLower(filter.RequesterEmail))
	}
	if filter.WishlistItemID != "" {
		add("wishlist_item_id = $%d", filter.WishlistItemID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", statuses)
	}

	query := `SELECT ` + redeemColumns + ` FROM redeem_requests`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*RedeemRequest
	for rows.Next() {
		rr, err := scanRedeem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rr)
	}
	return result, rows.Err()
}

func (r *pgRedeemRepository) Update(ctx context.Context, req *RedeemRequest, expected types.RedeemStatus) error {
	query := `
		UPDATE redeem_requests
		SET status = $3, approver_email = $4, parent_approved_at = $5, child_accepted_at = $6,
		    rejection_reason = $7, updated_at = $8
		WHERE id = $1 AND status = $2
	`
	req.UpdatedAt = time.Now()
	tag, err := r.db.Exec(ctx, query,
		req.ID, string(expected), string(req.Status), req.ApproverEmail, req.ParentApprovedAt,
		req.ChildAcceptedAt, req.RejectionReason, req.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}
