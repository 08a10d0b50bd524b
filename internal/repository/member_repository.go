package repository

import (
	"context"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/types"
)

const memberSelect = `
	SELECT m.id, m.family_id, m.member_type_id, m.email, m.username, m.birth_date,
	       m.password, m.is_first_login, m.created_at, m.updated_at, mt.name, mt.role
	FROM members m
	JOIN member_types mt ON mt.id = m.member_type_id
`

// roleOrChild never grants parent rights to an unrecognised stored role.
func roleOrChild(s string) types.Role {
	r, err := types.ParseRole(s)
	if err != nil {
		return types.RoleChild
	}
	return r
}

type pgMemberRepository struct {
	db DBTX
}

func scanMember(row rowScanner) (*Member, error) {
	m := &Member{}
	var role string
	err := row.Scan(
		&m.ID, &m.FamilyID, &m.MemberTypeID, &m.Email, &m.Username, &m.BirthDate,
		&m.Password, &m.IsFirstLogin, &m.CreatedAt, &m.UpdatedAt, &m.TypeName, &role,
	)
	if err != nil {
		return nil, err
	}
	m.Role = roleOrChild(role)
	return m, nil
}

func (r *pgMemberRepository) findOne(ctx context.Context, where string, args ...any) (*Member, error) {
	m, err := scanMember(r.db.QueryRow(ctx, memberSelect+where, args...))
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *pgMemberRepository) Create(ctx context.Context, member *Member) error {
	query := `
		INSERT INTO members (family_id, member_type_id, email, username, birth_date, password, is_first_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		member.FamilyID, member.MemberTypeID, member.Email, member.Username,
		member.BirthDate, member.Password, member.IsFirstLogin,
	).Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt)
	return translateError(err)
}

func (r *pgMemberRepository) FindByID(ctx context.Context, id string) (*Member, error) {
	return r.findOne(ctx, `WHERE m.id = $1`, id)
}

func (r *pgMemberRepository) FindByEmail(ctx context.Context, email string) (*Member, error) {
	return r.findOne(ctx, `WHERE LOWER(m.email) = LOWER($1)`, email)
}

func (r *pgMemberRepository) FindByFamily(ctx context.Context, familyID string) ([]*Member, error) {
	rows, err := r.db.Query(ctx, memberSelect+`WHERE m.family_id = $1 ORDER BY m.created_at, m.id`, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *pgMemberRepository) CountByRole(ctx context.Context, familyID string, role types.Role) (int, error) {
	query := `
		SELECT COUNT(*) FROM members m
		JOIN member_types mt ON mt.id = m.member_type_id
		WHERE m.family_id = $1 AND mt.role = $2
	`
	var count int
	err := r.db.QueryRow(ctx, query, familyID, string(role)).Scan(&count)
	return count, err
}

func (r *pgMemberRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE members SET password = $2, is_first_login = FALSE, updated_at = $3 WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, passwordHash, time.Now())
	return err
}

func (r *pgMemberRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	return err
}

// Refresh tokens

func (r *pgMemberRepository) SaveRefreshToken(ctx context.Context, token *RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (token, member_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query, token.Token, token.MemberID, token.ExpiresAt).Scan(&token.CreatedAt)
}

func (r *pgMemberRepository) ConsumeRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	query := `DELETE FROM refresh_tokens WHERE token = $1 RETURNING token, member_id, expires_at, created_at`
	rt := &RefreshToken{}
	err := r.db.QueryRow(ctx, query, token).Scan(&rt.Token, &rt.MemberID, &rt.ExpiresAt, &rt.CreatedAt)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *pgMemberRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
	return err
}

func (r *pgMemberRepository) DeleteRefreshTokensByMember(ctx context.Context, memberID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE member_id = $1`, memberID)
	return err
}

func (r *pgMemberRepository) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
