package repository

import (
	"context"
	"time"
)

const familyColumns = `id, title, email, password, active, reset_token_hash, reset_token_expires, created_at, updated_at`

type pgFamilyRepository struct {
	db DBTX
}

func scanFamily(row rowScanner) (*Family, error) {
	f := &Family{}
	err := row.Scan(
		&f.ID, &f.Title, &f.Email, &f.Password, &f.Active,
		&f.ResetTokenHash, &f.ResetTokenExpires, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *pgFamilyRepository) findOne(ctx context.Context, query string, args ...any) (*Family, error) {
	f, err := scanFamily(r.db.QueryRow(ctx, query, args...))
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *pgFamilyRepository) Create(ctx context.Context, family *Family) error {
	query := `
		INSERT INTO families (title, email, password, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		family.Title, family.Email, family.Password, family.Active,
	).Scan(&family.ID, &family.CreatedAt, &family.UpdatedAt)
	return translateError(err)
}

func (r *pgFamilyRepository) FindByID(ctx context.Context, id string) (*Family, error) {
	return r.findOne(ctx, `SELECT `+familyColumns+` FROM families WHERE id = $1`, id)
}

func (r *pgFamilyRepository) FindByIDForUpdate(ctx context.Context, id string) (*Family, error) {
	return r.findOne(ctx, `SELECT `+familyColumns+` FROM families WHERE id = $1 FOR UPDATE`, id)
}

func (r *pgFamilyRepository) FindByEmail(ctx context.Context, email string) (*Family, error) {
	return r.findOne(ctx, `SELECT `+familyColumns+` FROM families WHERE LOWER(email) = LOWER($1)`, email)
}

func (r *pgFamilyRepository) FindByResetTokenHash(ctx context.Context, hash string) (*Family, error) {
	return r.findOne(ctx, `SELECT `+familyColumns+` FROM families WHERE reset_token_hash = $1`, hash)
}

func (r *pgFamilyRepository) FindAll(ctx context.Context) ([]*Family, error) {
	rows, err := r.db.Query(ctx, `SELECT `+familyColumns+` FROM families ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var families []*Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, err
		}
		families = append(families, f)
	}
	return families, rows.Err()
}

func (r *pgFamilyRepository) Update(ctx context.Context, family *Family) error {
	query := `
		UPDATE families
		SET title = $2, password = $3, active = $4, reset_token_hash = $5, reset_token_expires = $6, updated_at = $7
		WHERE id = $1
	`
	family.UpdatedAt = time.Now()
	_, err := r.db.Exec(ctx, query,
		family.ID, family.Title, family.Password, family.Active,
		family.ResetTokenHash, family.ResetTokenExpires, family.UpdatedAt,
	)
	return translateError(err)
}

// ============================================
// Member types
// ============================================

type pgMemberTypeRepository struct {
	db DBTX
}

func scanMemberType(row rowScanner) (*MemberType, error) {
	mt := &MemberType{}
	var role string
	if err := row.Scan(&mt.ID, &mt.FamilyID, &mt.Name, &role, &mt.Permissions, &mt.CreatedAt); err != nil {
		return nil, err
	}
	mt.Role = roleOrChild(role)
	if mt.Permissions == nil {
		mt.Permissions = []string{}
	}
	return mt, nil
}

func (r *pgMemberTypeRepository) Create(ctx context.Context, mt *MemberType) error {
	if mt.Permissions == nil {
		mt.Permissions = []string{}
	}
	query := `
		INSERT INTO member_types (family_id, name, role, permissions)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, mt.FamilyID, mt.Name, string(mt.Role), mt.Permissions).
		Scan(&mt.ID, &mt.CreatedAt)
	return translateError(err)
}

func (r *pgMemberTypeRepository) FindByID(ctx context.Context, id string) (*MemberType, error) {
	query := `SELECT id, family_id, name, role, permissions, created_at FROM member_types WHERE id = $1`
	mt, err := scanMemberType(r.db.QueryRow(ctx, query, id))
	if notFound(err) {
		return nil, nil
	}
	return mt, err
}

func (r *pgMemberTypeRepository) FindByName(ctx context.Context, familyID, name string) (*MemberType, error) {
	query := `SELECT id, family_id, name, role, permissions, created_at FROM member_types WHERE family_id = $1 AND name = $2`
	mt, err := scanMemberType(r.db.QueryRow(ctx, query, familyID, name))
	if notFound(err) {
		return nil, nil
	}
	return mt, err
}

func (r *pgMemberTypeRepository) FindByFamily(ctx context.Context, familyID string) ([]*MemberType, error) {
	query := `SELECT id, family_id, name, role, permissions, created_at FROM member_types WHERE family_id = $1 ORDER BY name`
	rows, err := r.db.Query(ctx, query, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*MemberType
	for rows.Next() {
		mt, err := scanMemberType(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, mt)
	}
	return result, rows.Err()
}

func (r *pgMemberTypeRepository) UpdatePermissions(ctx context.Context, id string, permissions []string) error {
	if permissions == nil {
		permissions = []string{}
	}
	_, err := r.db.Exec(ctx, `UPDATE member_types SET permissions = $2 WHERE id = $1`, id, permissions)
	return err
}
