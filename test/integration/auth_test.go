//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-auth/internal/model"
)

func TestLoginRefreshLogoutWithCookies(t *testing.T) {
	s := newServer(t)
	client := newClient(t)

	loginResp := postJSON(t, client, s.server.URL+"/api/v1/auth/login", model.LoginRequest{Email: "user1@user.com", Password: "1111"})
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	firstRefresh := cookieValue(loginResp, "refreshToken")
	require.NotEmpty(t, firstRefresh)

	var login model.LoginResponse
	decodeData(t, loginResp, &login)
	assert.Equal(t, "Bearer", login.TokenType)

	meResp := getWithBearer(t, client, s.server.URL+"/api/v1/auth/me", login.AccessToken)
	require.Equal(t, http.StatusOK, meResp.StatusCode)

	refreshResp := postJSON(t, client, s.server.URL+"/api/v1/auth/refresh", nil)
	require.Equal(t, http.StatusOK, refreshResp.StatusCode)
	secondRefresh := cookieValue(refreshResp, "refreshToken")
	require.NotEmpty(t, secondRefresh)
	assert.NotEqual(t, firstRefresh, secondRefresh)

	logoutResp := postJSON(t, client, s.server.URL+"/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, logoutResp.StatusCode)

	afterLogout := postJSON(t, client, s.server.URL+"/api/v1/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, afterLogout.StatusCode)
}

func TestReplayedRefreshTokenRevokesEverySession(t *testing.T) {
	s := newServer(t)
	victim := newClient(t)

	loginResp := postJSON(t, victim, s.server.URL+"/api/v1/auth/login", model.LoginRequest{Email: "user1@user.com", Password: "1111"})
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	stolen := cookieValue(loginResp, "refreshToken")

	rotated := postJSON(t, victim, s.server.URL+"/api/v1/auth/refresh", nil)
	require.Equal(t, http.StatusOK, rotated.StatusCode)

	attacker := &http.Client{}
	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/api/v1/auth/refresh", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: stolen})
	replay, err := attacker.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = replay.Body.Close() })
	assert.Equal(t, http.StatusUnauthorized, replay.StatusCode)

	// The victim's current token was revoked with everything else.
	victimRetry := postJSON(t, victim, s.server.URL+"/api/v1/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, victimRetry.StatusCode)
}

func TestPasswordResetThroughPostgres(t *testing.T) {
	s := newServer(t)
	client := newClient(t)

	findResp := postJSON(t, client, s.server.URL+"/api/v1/auth/find-account", model.FindAccountRequest{Name: "user1", PhoneNumber: "01011111111"})
	require.Equal(t, http.StatusOK, findResp.StatusCode)
	var found model.FindAccountResponse
	decodeData(t, findResp, &found)
	assert.Equal(t, "user1@user.com", found.Email)

	resetResp := postJSON(t, client, s.server.URL+"/api/v1/auth/reset-password", model.ResetPasswordRequest{
		Email:       "user1@user.com",
		Name:        "user1",
		PhoneNumber: "010-1111-1111",
		NewPassword: "new-password-1",
	})
	require.Equal(t, http.StatusOK, resetResp.StatusCode)

	oldLogin := postJSON(t, client, s.server.URL+"/api/v1/auth/login", model.LoginRequest{Email: "user1@user.com", Password: "1111"})
	assert.Equal(t, http.StatusUnauthorized, oldLogin.StatusCode)

	newLogin := postJSON(t, client, s.server.URL+"/api/v1/auth/login", model.LoginRequest{Email: "user1@user.com", Password: "new-password-1"})
	assert.Equal(t, http.StatusOK, newLogin.StatusCode)
}

func TestHealthReportsDatabase(t *testing.T) {
	s := newServer(t)

	resp := getWithBearer(t, newClient(t), s.server.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
