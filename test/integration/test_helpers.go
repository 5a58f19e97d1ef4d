//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"finance-auth/internal/config"
	"finance-auth/internal/database"
	"finance-auth/internal/handler"
	"finance-auth/internal/middleware"
	"finance-auth/internal/model"
	"finance-auth/internal/ratelimit"
	"finance-auth/internal/repository"
	"finance-auth/internal/router"
	"finance-auth/internal/service"
	"finance-auth/internal/token"
)

const testSecret = "integration-secret-integration-secret"

// openDB connects to DATABASE_URL, applies migrations and empties every table.
func openDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL is not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, url, 10, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx))
	_, err = db.Pool.Exec(ctx, `TRUNCATE auth_events, refresh_tokens, members RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return db
}

func createMember(t *testing.T, repo *repository.MemberRepository, m model.Member, password string) model.Member {
	t.Helper()

	hash, err := service.NewBcryptHasher(bcrypt.MinCost).Hash(password)
	require.NoError(t, err)
	m.PasswordHash = hash

	created, err := repo.Create(context.Background(), m)
	require.NoError(t, err)
	return created
}

type stack struct {
	server  *httptest.Server
	members *repository.MemberRepository
	tokens  *repository.TokenRepository
	user    model.Member
}

func newServer(t *testing.T) *stack {
	t.Helper()

	db := openDB(t)
	members := repository.NewMemberRepository(db.Pool)
	tokens := repository.NewTokenRepository(db.Pool)
	audits := repository.NewAuditRepository(db.Pool)

	createMember(t, members, model.Member{Email: "admin@test.com", Name: "admin", PhoneNumber: "01000000000", Role: model.RoleAdmin, Active: true}, "admin123")
	user := createMember(t, members, model.Member{Email: "user1@user.com", Name: "user1", PhoneNumber: "010-1111-1111", Role: model.RoleUser, Active: true}, "1111")

	codec, err := token.NewCodec(testSecret)
	require.NoError(t, err)

	tokenService := service.NewTokenService(codec, tokens, 30*time.Minute, 168*time.Hour)
	auditService := service.NewAuditService(audits)
	limiter := ratelimit.New(ratelimit.DefaultMaxAttempts, ratelimit.DefaultWindow)
	authService := service.NewAuthService(members, tokenService, codec, service.NewBcryptHasher(bcrypt.MinCost), limiter, auditService)

	cfg := &config.Config{
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
		RequestTimeout:   10 * time.Second,
	}

	server := httptest.NewServer(router.New(cfg, middleware.NewAuthMiddleware(codec), router.Handlers{
		Auth:   handler.NewAuthHandler(authService, false),
		Audit:  handler.NewAuditHandler(auditService),
		Health: handler.NewHealthHandler(db),
	}))
	t.Cleanup(server.Close)

	return &stack{server: server, members: members, tokens: tokens, user: user}
}

// newClient returns a client with its own cookie jar, like a browser.
func newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func getWithBearer(t *testing.T, client *http.Client, url string, accessToken string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func decodeData(t *testing.T, resp *http.Response, into any) {
	t.Helper()

	var body struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body.Success)
	require.NoError(t, json.Unmarshal(body.Data, into))
}
