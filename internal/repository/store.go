package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"finance-auth/internal/model"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RefreshTokenStore is the bookkeeping of issued refresh tokens. Lookups that
// find nothing usable return false without an error, whether the token was
// never issued, already rotated or expired.
type RefreshTokenStore interface {
	Save(ctx context.Context, ownerID int64, token string, expiresAt time.Time) (model.RefreshToken, error)
	FindUsable(ctx context.Context, token string, now time.Time) (model.RefreshToken, bool, error)
	// ConsumeUsable deactivates the record only if it is still usable and
	// returns it. Of two concurrent callers at most one gets true.
	ConsumeUsable(ctx context.Context, token string, now time.Time) (model.RefreshToken, bool, error)
	FindActiveByOwner(ctx context.Context, ownerID int64) (model.RefreshToken, bool, error)
	DeactivateByToken(ctx context.Context, token string) error
	DeactivateAllByOwner(ctx context.Context, ownerID int64) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// LockOwner serializes transactions touching the owner's tokens. Only
	// meaningful inside InTx.
	LockOwner(ctx context.Context, ownerID int64) error
	InTx(ctx context.Context, fn func(store RefreshTokenStore) error) error
}

// MemberDirectory is the read side of the member store used by authentication.
// Soft-deleted members are never returned; the active flag is left for the
// caller to check.
type MemberDirectory interface {
	FindByID(ctx context.Context, id int64) (model.Member, bool, error)
	FindByEmail(ctx context.Context, email string) (model.Member, bool, error)
	FindByNameAndPhone(ctx context.Context, name string, phone string) (model.Member, bool, error)
	FindByEmailNameAndPhone(ctx context.Context, email string, name string, phone string) (model.Member, bool, error)
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error
}

type AuthEventStore interface {
	Log(ctx context.Context, event model.AuthEvent) error
	Query(ctx context.Context, query model.AuthEventQuery) ([]model.AuthEvent, model.Meta, error)
}
