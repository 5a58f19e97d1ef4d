package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"finance-auth/internal/model"
)

const (
	uniqueViolation       = "23505"
	oneActivePerMemberIdx = "refresh_tokens_one_active_per_member"
	refreshTokenColumns   = `id, member_id, expires_at, active, created_at, updated_at`
)

// TokenRepository stores refresh tokens in PostgreSQL. Only a SHA-256 digest
// of each token is persisted.
type TokenRepository struct {
	db DBTX
}

func NewTokenRepository(db DBTX) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Save(ctx context.Context, ownerID int64, token string, expiresAt time.Time) (model.RefreshToken, error) {
	now := time.Now().UTC()
	record := model.RefreshToken{
		Token:     token,
		OwnerID:   ownerID,
		ExpiresAt: expiresAt.UTC(),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO refresh_tokens (token_hash, member_id, expires_at, active, created_at, updated_at)
		 VALUES ($1, $2, $3, true, $4, $4)
		 RETURNING id`,
		digest(token), ownerID, record.ExpiresAt, now).Scan(&record.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == oneActivePerMemberIdx {
			return model.RefreshToken{}, model.ErrActiveTokenExists
		}
		return model.RefreshToken{}, fmt.Errorf("save refresh token: %w", err)
	}
	return record, nil
}

func (r *TokenRepository) FindUsable(ctx context.Context, token string, now time.Time) (model.RefreshToken, bool, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+refreshTokenColumns+`
		 FROM refresh_tokens
		 WHERE token_hash = $1 AND active AND expires_at > $2`,
		digest(token), now.UTC())
	return scanRefreshToken(row, token, "find usable refresh token")
}

func (r *TokenRepository) ConsumeUsable(ctx context.Context, token string, now time.Time) (model.RefreshToken, bool, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE refresh_tokens
		 SET active = false, updated_at = $3
		 WHERE token_hash = $1 AND active AND expires_at > $2
		 RETURNING `+refreshTokenColumns,
		digest(token), now.UTC(), time.Now().UTC())
	return scanRefreshToken(row, token, "consume refresh token")
}

func (r *TokenRepository) FindActiveByOwner(ctx context.Context, ownerID int64) (model.RefreshToken, bool, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+refreshTokenColumns+`
		 FROM refresh_tokens
		 WHERE member_id = $1 AND active
		 ORDER BY created_at DESC
		 LIMIT 1`, ownerID)
	return scanRefreshToken(row, "", "find active refresh token")
}

func (r *TokenRepository) DeactivateByToken(ctx context.Context, token string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE refresh_tokens SET active = false, updated_at = $2
		 WHERE token_hash = $1 AND active`,
		digest(token), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepository) DeactivateAllByOwner(ctx context.Context, ownerID int64) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE refresh_tokens SET active = false, updated_at = $2
		 WHERE member_id = $1 AND active`,
		ownerID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("deactivate member refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *TokenRepository) LockOwner(ctx context.Context, ownerID int64) error {
	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, ownerID); err != nil {
		return fmt.Errorf("lock refresh tokens of member %d: %w", ownerID, err)
	}
	return nil
}

func (r *TokenRepository) InTx(ctx context.Context, fn func(store RefreshTokenStore) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(NewTokenRepository(tx))
	})
}

func scanRefreshToken(row pgx.Row, token string, op string) (model.RefreshToken, bool, error) {
	var t model.RefreshToken
	err := row.Scan(&t.ID, &t.OwnerID, &t.ExpiresAt, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RefreshToken{}, false, nil
	}
	if err != nil {
		return model.RefreshToken{}, false, fmt.Errorf("%s: %w", op, err)
	}
	t.Token = token
	return t, true, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
