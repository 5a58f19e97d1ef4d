package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"finance-auth/internal/model"
)

type mockEventStore struct {
	mock.Mock
}

func (m *mockEventStore) Log(ctx context.Context, event model.AuthEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockEventStore) Query(ctx context.Context, query model.AuthEventQuery) ([]model.AuthEvent, model.Meta, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]model.AuthEvent), args.Get(1).(model.Meta), args.Error(2)
}

func TestAuditService_Record(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		store := new(mockEventStore)
		svc := NewAuditService(store)

		store.On("Log", mock.Anything, mock.MatchedBy(func(e model.AuthEvent) bool {
			return e.Action == model.ActionLogout && e.Status == model.AuditStatusSuccess && !e.OccurredAt.IsZero()
		})).Return(nil).Once()

		svc.Record(context.Background(), model.AuthEvent{Action: model.ActionLogout})
		store.AssertExpectations(t)
	})

	t.Run("swallows store failures", func(t *testing.T) {
		store := new(mockEventStore)
		svc := NewAuditService(store)

		store.On("Log", mock.Anything, mock.Anything).Return(errors.New("connection refused")).Once()

		assert.NotPanics(t, func() {
			svc.Record(context.Background(), model.AuthEvent{Action: model.ActionLoginFailure})
		})
		store.AssertExpectations(t)
	})

	t.Run("nil service is a no-op", func(t *testing.T) {
		var svc *AuditService
		assert.NotPanics(t, func() {
			svc.Record(context.Background(), model.AuthEvent{Action: model.ActionLogout})
		})
	})
}

func TestAuditService_Query(t *testing.T) {
	t.Run("normalizes filters", func(t *testing.T) {
		store := new(mockEventStore)
		svc := NewAuditService(store)

		expected := model.AuthEventQuery{Action: "login.failure", Status: "failure", Page: 1, Limit: 50}
		store.On("Query", mock.Anything, expected).Return([]model.AuthEvent{}, model.NewMeta(1, 50, 0), nil).Once()

		_, meta, err := svc.Query(context.Background(), model.AuthEventQuery{Action: " LOGIN.FAILURE ", Status: "Failure"})
		require.NoError(t, err)
		assert.Equal(t, 50, meta.Limit)
		store.AssertExpectations(t)
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		store := new(mockEventStore)
		svc := NewAuditService(store)

		from := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
		_, _, err := svc.Query(context.Background(), model.AuthEventQuery{From: from, To: from.Add(-time.Hour)})
		require.ErrorIs(t, err, model.ErrInvalidInput)
		store.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
	})
}

func TestParseAuditTime(t *testing.T) {
	value, err := ParseAuditTime("")
	require.NoError(t, err)
	assert.True(t, value.IsZero())

	value, err = ParseAuditTime("2026-05-02T10:00:00+02:00")
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC).Equal(value))

	_, err = ParseAuditTime("yesterday")
	require.Error(t, err)
}

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(4)

	hash, err := hasher.Hash("1111")
	require.NoError(t, err)
	assert.NotEqual(t, "1111", hash)
	assert.True(t, hasher.Matches(hash, "1111"))
	assert.False(t, hasher.Matches(hash, "2222"))
	assert.False(t, hasher.Matches("", "1111"))

	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(0).cost)
}
