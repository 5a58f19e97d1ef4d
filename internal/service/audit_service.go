package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"finance-auth/internal/model"
	"finance-auth/internal/repository"
	"finance-auth/pkg/apierror"
)

type AuditService struct {
	store repository.AuthEventStore
}

func NewAuditService(store repository.AuthEventStore) *AuditService {
	return &AuditService{store: store}
}

// Record persists an auth event. Write failures are logged and swallowed so an
// audit outage never fails an authentication flow.
func (s *AuditService) Record(ctx context.Context, event model.AuthEvent) {
	if s == nil || s.store == nil {
		return
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.Status == "" {
		event.Status = model.AuditStatusSuccess
	}

	if err := s.store.Log(ctx, event); err != nil {
		slog.Error("failed to record auth event", "action", event.Action, "error", err)
	}
}

func (s *AuditService) Query(ctx context.Context, query model.AuthEventQuery) ([]model.AuthEvent, model.Meta, error) {
	query.Action = strings.ToLower(strings.TrimSpace(query.Action))
	query.Status = strings.ToLower(strings.TrimSpace(query.Status))
	query.Normalize()

	if !query.From.IsZero() && !query.To.IsZero() && query.To.Before(query.From) {
		return nil, model.Meta{}, apierror.Wrap(model.ErrInvalidInput, "BAD_REQUEST", "'to' must not be before 'from'", http.StatusBadRequest)
	}

	return s.store.Query(ctx, query)
}

// ParseAuditTime accepts RFC 3339 timestamps with or without fractional seconds.
// An empty string yields the zero time.
func ParseAuditTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}

	if value, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return value.UTC(), nil
	}

	value, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, err
	}
	return value.UTC(), nil
}
