package repository

import (
	"context"
	"strings"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/types"
)

const wishlistItemColumns = `id, wishlist_id, item_name, description, required_points, category_id, priority, status, assigned_by, created_at, updated_at`

type pgWishlistRepository struct {
	db DBTX
}

func (r *pgWishlistRepository) GetOrCreate(ctx context.Context, email, title string) (*Wishlist, error) {
	_, err := r.db.Exec(ctx,
		`INSERT INTO wishlists (member_email, title) VALUES ($1, $2) ON CONFLICT (member_email) DO NOTHING`,
		strings.ToLower(email), title,
	)
	if err != nil {
		return nil, err
	}
	return r.FindByEmail(ctx, email)
}

func (r *pgWishlistRepository) FindByEmail(ctx context.Context, email string) (*Wishlist, error) {
	w := &Wishlist{}
	err := r.db.QueryRow(ctx,
		`SELECT id, member_email, title, created_at FROM wishlists WHERE member_email = $1`,
		strings.ToLower(email),
	).Scan(&w.ID, &w.MemberEmail, &w.Title, &w.CreatedAt)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *pgWishlistRepository) FindByID(ctx context.Context, id string) (*Wishlist, error) {
	w := &Wishlist{}
	err := r.db.QueryRow(ctx,
		`SELECT id, member_email, title, created_at FROM wishlists WHERE id = $1`, id,
	).Scan(&w.ID, &w.MemberEmail, &w.Title, &w.CreatedAt)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// DeleteByEmail removes the wishlist; items go with it through the cascade.
func (r *pgWishlistRepository) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM wishlists WHERE member_email = $1`, strings.ToLower(email))
	return err
}

func scanWishlistItem(row rowScanner) (*WishlistItem, error) {
	it := &WishlistItem{}
	var status string
	err := row.Scan(
		&it.ID, &it.WishlistID, &it.ItemName, &it.Description, &it.RequiredPoints,
		&it.CategoryID, &it.Priority, &status, &it.AssignedBy, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.Status = types.WishlistItemStatus(status)
	return it, nil
}

func (r *pgWishlistRepository) CreateItem(ctx context.Context, item *WishlistItem) error {
	if item.Status == "" {
		item.Status = types.WishlistItemActive
	}
	query := `
		INSERT INTO wishlist_items (wishlist_id, item_name, description, required_points, category_id, priority, status, assigned_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		item.WishlistID, item.ItemName, item.Description, item.RequiredPoints,
		item.CategoryID, item.Priority, string(item.Status), item.AssignedBy,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

func (r *pgWishlistRepository) FindItemByID(ctx context.Context, id string) (*WishlistItem, error) {
	it, err := scanWishlistItem(r.db.QueryRow(ctx, `SELECT `+wishlistItemColumns+` FROM wishlist_items WHERE id = $1`, id))
	if notFound(err) {
		return nil, nil
	}
	return it, err
}

func (r *pgWishlistRepository) FindItemByIDForUpdate(ctx context.Context, id string) (*WishlistItem, error) {
	it, err := scanWishlistItem(r.db.QueryRow(ctx, `SELECT `+wishlistItemColumns+` FROM wishlist_items WHERE id = $1 FOR UPDATE`, id))
	if notFound(err) {
		return nil, nil
	}
	return it, err
}

func (r *pgWishlistRepository) ListItems(ctx context.Context, wishlistID string, status types.WishlistItemStatus) ([]*WishlistItem, error) {
	query := `SELECT ` + wishlistItemColumns + ` FROM wishlist_items WHERE wishlist_id = $1`
	args := []any{wishlistID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY priority DESC, created_at DESC, id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*WishlistItem
	for rows.Next() {
		it, err := scanWishlistItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *pgWishlistRepository) UpdateItem(ctx context.Context, item *WishlistItem) error {
	query := `
		UPDATE wishlist_items
		SET item_name = $2, description = $3, required_points = $4, category_id = $5,
		    priority = $6, status = $7, updated_at = $8
		WHERE id = $1
	`
	item.UpdatedAt = time.Now()
	_, err := r.db.Exec(ctx, query,
		item.ID, item.ItemName, item.Description, item.RequiredPoints, item.CategoryID,
		item.Priority, string(item.Status), item.UpdatedAt,
	)
	return err
}
