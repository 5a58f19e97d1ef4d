package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoginRequestValidate(t *testing.T) {
	t.Parallel()

	req := LoginRequest{Email: "  user1@user.com ", Password: "1111"}
	req.Normalize()
	require.Empty(t, req.Validate())

	require.NotEmpty(t, LoginRequest{Email: "user1@user.com"}.Validate())
	require.NotEmpty(t, LoginRequest{Email: "not-an-email", Password: "secret"}.Validate())
	require.NotEmpty(t, LoginRequest{Email: "Name <a@b.com>", Password: "secret"}.Validate())
}

func TestFindAccountRequestValidate(t *testing.T) {
	t.Parallel()

	require.Empty(t, FindAccountRequest{Name: "user1", PhoneNumber: "010-1111-1111"}.Validate())
	require.Empty(t, FindAccountRequest{Name: "user1", PhoneNumber: "01011111111"}.Validate())
	require.NotEmpty(t, FindAccountRequest{Name: "user1", PhoneNumber: "call me"}.Validate())
	require.NotEmpty(t, FindAccountRequest{PhoneNumber: "010-1111-1111"}.Validate())
}

func TestResetPasswordRequestHidesPassword(t *testing.T) {
	t.Parallel()

	req := ResetPasswordRequest{
		Email:       "user1@user.com",
		Name:        "user1",
		PhoneNumber: "010-1111-1111",
		NewPassword: "brand-new-secret",
	}
	require.Empty(t, req.Validate())
	require.NotContains(t, req.String(), "brand-new-secret")

	req.NewPassword = "123"
	require.NotEmpty(t, req.Validate())
}

func TestNewMeta(t *testing.T) {
	t.Parallel()

	require.Equal(t, Meta{Page: 2, Limit: 10, Total: 25, TotalPages: 3}, NewMeta(2, 10, 25))
	require.Equal(t, 0, NewMeta(1, 10, 0).TotalPages)
}
