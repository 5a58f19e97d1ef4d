package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finance-auth/internal/model"
	"finance-auth/internal/repository"
	"finance-auth/internal/token"
)

// RefreshOutcome is the result of starting or rotating a session. Exactly one
// of OutcomeFresh, OutcomeRotated or OutcomeCompromiseDetected.
type RefreshOutcome interface {
	refreshOutcome()
}

type OutcomeFresh struct {
	Pair model.TokenPair
}

type OutcomeRotated struct {
	Pair model.TokenPair
}

// OutcomeCompromiseDetected reports that a refresh token was presented after it
// had already been rotated out, revoked or expired in the store.
type OutcomeCompromiseDetected struct {
	OwnerID int64
}

func (OutcomeFresh) refreshOutcome()              {}
func (OutcomeRotated) refreshOutcome()            {}
func (OutcomeCompromiseDetected) refreshOutcome() {}

type TokenService struct {
	codec      *token.Codec
	store      repository.RefreshTokenStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(codec *token.Codec, store repository.RefreshTokenStore, accessTTL time.Duration, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		codec:      codec,
		store:      store,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source used for store expiry checks.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// IssueAndPersist mints a pair for the member and stores the refresh token. It
// does not deactivate the member's other tokens; use StartSession for logins.
func (s *TokenService) IssueAndPersist(ctx context.Context, member model.Member) (model.TokenPair, error) {
	return s.issueAndPersist(ctx, s.store, member)
}

// StartSession revokes every refresh token of the member and issues a new pair
// in a single owner-locked transaction.
func (s *TokenService) StartSession(ctx context.Context, member model.Member) (RefreshOutcome, error) {
	var pair model.TokenPair
	err := s.store.InTx(ctx, func(tx repository.RefreshTokenStore) error {
		if err := tx.LockOwner(ctx, member.ID); err != nil {
			return err
		}
		if _, err := tx.DeactivateAllByOwner(ctx, member.ID); err != nil {
			return err
		}

		var err error
		pair, err = s.issueAndPersist(ctx, tx, member)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return OutcomeFresh{Pair: pair}, nil
}

// Rotate exchanges oldToken for a new pair. The old record is consumed
// atomically, so of two concurrent rotations of the same token only one
// succeeds; the other, like any reuse, yields OutcomeCompromiseDetected.
func (s *TokenService) Rotate(ctx context.Context, oldToken string, member model.Member) (RefreshOutcome, error) {
	var outcome RefreshOutcome
	err := s.store.InTx(ctx, func(tx repository.RefreshTokenStore) error {
		if err := tx.LockOwner(ctx, member.ID); err != nil {
			return err
		}

		record, ok, err := tx.ConsumeUsable(ctx, oldToken, s.now())
		if err != nil {
			return err
		}
		if !ok || record.OwnerID != member.ID {
			outcome = OutcomeCompromiseDetected{OwnerID: member.ID}
			return nil
		}

		pair, err := s.issueAndPersist(ctx, tx, member)
		if err != nil {
			return err
		}
		outcome = OutcomeRotated{Pair: pair}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	return outcome, nil
}

// Invalidate deactivates a single refresh token. Unknown or already inactive
// tokens are not an error.
func (s *TokenService) Invalidate(ctx context.Context, refreshToken string) error {
	if err := s.store.DeactivateByToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("invalidate refresh token: %w", err)
	}
	return nil
}

func (s *TokenService) InvalidateAllForOwner(ctx context.Context, ownerID int64) (int64, error) {
	n, err := s.store.DeactivateAllByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("invalidate refresh tokens of member %d: %w", ownerID, err)
	}
	return n, nil
}

func (s *TokenService) ActiveSession(ctx context.Context, ownerID int64) (model.RefreshToken, bool, error) {
	return s.store.FindActiveByOwner(ctx, ownerID)
}

func (s *TokenService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return n, nil
}

// StartCleanupTicker deletes expired refresh tokens once at start and then on
// every tick until ctx is cancelled.
func (s *TokenService) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.runCleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCleanup(ctx)
		}
	}
}

func (s *TokenService) runCleanup(ctx context.Context) {
	n, err := s.CleanupExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("refresh token cleanup failed", "error", err)
		}
		return
	}
	if n > 0 {
		slog.Info("deleted expired refresh tokens", "count", n)
	}
}

func (s *TokenService) issueAndPersist(ctx context.Context, store repository.RefreshTokenStore, member model.Member) (model.TokenPair, error) {
	access, err := s.codec.Issue(member.ID, member.Email, member.Role, token.TypeAccess, s.accessTTL)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.codec.Issue(member.ID, member.Email, member.Role, token.TypeRefresh, s.refreshTTL)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	now := s.now().UTC()
	pair := model.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(s.accessTTL),
		RefreshExpiresAt: now.Add(s.refreshTTL),
	}
	if _, err := store.Save(ctx, member.ID, refresh, pair.RefreshExpiresAt); err != nil {
		return model.TokenPair{}, err
	}
	return pair, nil
}
