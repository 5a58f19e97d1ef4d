package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"finance-auth/internal/model"
	"finance-auth/pkg/apierror"
)

const memberColumns = `id, email, name, phone_number, password_hash, role, is_active, is_deleted, created_at, updated_at`

type MemberRepository struct {
	db DBTX
}

func NewMemberRepository(db DBTX) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) FindByID(ctx context.Context, id int64) (model.Member, bool, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1 AND NOT is_deleted`, id)
	return scanMember(row, "find member by id")
}

func (r *MemberRepository) FindByEmail(ctx context.Context, email string) (model.Member, bool, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE email = $1 AND NOT is_deleted`,
		strings.TrimSpace(email))
	return scanMember(row, "find member by email")
}

func (r *MemberRepository) FindByNameAndPhone(ctx context.Context, name string, phone string) (model.Member, bool, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+memberColumns+`
		 FROM members
		 WHERE name = $1
		   AND regexp_replace(phone_number, '[^0-9]', '', 'g') = $2
		   AND NOT is_deleted
		 ORDER BY id
		 LIMIT 1`,
		strings.TrimSpace(name), model.NormalizePhone(phone))
	return scanMember(row, "find member by name and phone")
}

func (r *MemberRepository) FindByEmailNameAndPhone(ctx context.Context, email string, name string, phone string) (model.Member, bool, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+memberColumns+`
		 FROM members
		 WHERE email = $1
		   AND name = $2
		   AND regexp_replace(phone_number, '[^0-9]', '', 'g') = $3
		   AND NOT is_deleted`,
		strings.TrimSpace(email), strings.TrimSpace(name), model.NormalizePhone(phone))
	return scanMember(row, "find member by email, name and phone")
}

func (r *MemberRepository) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE members SET password_hash = $2, updated_at = $3 WHERE id = $1 AND NOT is_deleted`,
		id, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierror.Wrap(model.ErrMemberNotFound, "NOT_FOUND", "member not found", http.StatusNotFound)
	}
	return nil
}

func (r *MemberRepository) Create(ctx context.Context, m model.Member) (model.Member, error) {
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	err := r.db.QueryRow(ctx,
		`INSERT INTO members (email, name, phone_number, password_hash, role, is_active, is_deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, false, $7, $7)
		 RETURNING id`,
		m.Email, m.Name, m.PhoneNumber, m.PasswordHash, string(m.Role), m.Active, now).Scan(&m.ID)
	if err != nil {
		return model.Member{}, fmt.Errorf("create member: %w", err)
	}
	return m, nil
}

func (r *MemberRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM members`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

func scanMember(row pgx.Row, op string) (model.Member, bool, error) {
	var m model.Member
	var role string
	err := row.Scan(&m.ID, &m.Email, &m.Name, &m.PhoneNumber, &m.PasswordHash, &role,
		&m.Active, &m.Deleted, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Member{}, false, nil
	}
	if err != nil {
		return model.Member{}, false, fmt.Errorf("%s: %w", op, err)
	}
	m.Role = model.Role(role)
	return m, true, nil
}
