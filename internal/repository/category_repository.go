package repository

import (
	"context"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/types"
)

const categoryColumns = `id, family_id, kind, title, description, created_at, updated_at`

type pgCategoryRepository struct {
	db DBTX
}

func scanCategory(row rowScanner) (*Category, error) {
	c := &Category{}
	var kind string
	if err := row.Scan(&c.ID, &c.FamilyID, &kind, &c.Title, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Kind = types.CategoryKind(kind)
	return c, nil
}

func (r *pgCategoryRepository) Create(ctx context.Context, category *Category) error {
	query := `
		INSERT INTO categories (family_id, kind, title, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		category.FamilyID, string(category.Kind), category.Title, category.Description,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	return translateError(err)
}

func (r *pgCategoryRepository) FindByID(ctx context.Context, id string) (*Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if notFound(err) {
		return nil, nil
	}
	return c, err
}

func (r *pgCategoryRepository) FindByFamily(ctx context.Context, familyID string, kind types.CategoryKind) ([]*Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE family_id = $1 AND kind = $2 ORDER BY title`
	rows, err := r.db.Query(ctx, query, familyID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *pgCategoryRepository) Update(ctx context.Context, category *Category) error {
	category.UpdatedAt = time.Now()
	_, err := r.db.Exec(ctx,
		`UPDATE categories SET title = $2, description = $3, updated_at = $4 WHERE id = $1`,
		category.ID, category.Title, category.Description, category.UpdatedAt,
	)
	return translateError(err)
}

func (r *pgCategoryRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	return err
}
