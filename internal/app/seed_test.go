package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"finance-auth/internal/model"
	"finance-auth/internal/service"
)

type fakeSeeder struct {
	count    int
	countErr error
	created  []model.Member
}

func (f *fakeSeeder) Count(context.Context) (int, error) {
	return f.count, f.countErr
}

func (f *fakeSeeder) Create(_ context.Context, m model.Member) (model.Member, error) {
	m.ID = int64(len(f.created) + 1)
	f.created = append(f.created, m)
	return m, nil
}

func TestSeedAdminCreatesFirstMember(t *testing.T) {
	seeder := &fakeSeeder{}
	hasher := service.NewBcryptHasher(bcrypt.MinCost)

	require.NoError(t, seedAdmin(context.Background(), seeder, hasher, "admin@test.com", "admin123"))

	require.Len(t, seeder.created, 1)
	admin := seeder.created[0]
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.True(t, admin.CanAuthenticate())
	assert.NotEqual(t, "admin123", admin.PasswordHash)
	assert.True(t, hasher.Matches(admin.PasswordHash, "admin123"))
}

func TestSeedAdminSkipsPopulatedTable(t *testing.T) {
	seeder := &fakeSeeder{count: 3}

	require.NoError(t, seedAdmin(context.Background(), seeder, service.NewBcryptHasher(bcrypt.MinCost), "admin@test.com", "admin123"))
	assert.Empty(t, seeder.created)
}

func TestSeedAdminPropagatesCountError(t *testing.T) {
	seeder := &fakeSeeder{countErr: errors.New("connection refused")}

	err := seedAdmin(context.Background(), seeder, service.NewBcryptHasher(bcrypt.MinCost), "admin@test.com", "admin123")
	require.Error(t, err)
	assert.Empty(t, seeder.created)
}
