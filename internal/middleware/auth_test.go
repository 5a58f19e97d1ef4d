package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-auth/internal/model"
	"finance-auth/internal/token"
)

func newCodec(t *testing.T) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec("middleware-secret-middleware-secret")
	require.NoError(t, err)
	return codec
}

func protected(mw *AuthMiddleware, roles ...model.Role) http.Handler {
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Header().Set("X-Subject", claims.Subject)
		w.WriteHeader(http.StatusOK)
	})

	var h http.Handler = final
	if len(roles) > 0 {
		h = mw.RequireRoles(roles...)(h)
	}
	return mw.RequireAuth(h)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func TestRequireAuth(t *testing.T) {
	codec := newCodec(t)
	mw := NewAuthMiddleware(codec)

	access, err := codec.Issue(12, "user1@user.com", model.RoleUser, token.TypeAccess, time.Minute)
	require.NoError(t, err)
	refresh, err := codec.Issue(12, "user1@user.com", model.RoleUser, token.TypeRefresh, time.Minute)
	require.NoError(t, err)
	expired, err := codec.Issue(12, "user1@user.com", model.RoleUser, token.TypeAccess, -time.Minute)
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		rec := httptest.NewRecorder()
		protected(mw).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "12", rec.Header().Get("X-Subject"))
	})

	t.Run("access cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: access})
		rec := httptest.NewRecorder()
		protected(mw).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	rejected := map[string]func(*http.Request){
		"missing":        func(*http.Request) {},
		"wrong scheme":   func(r *http.Request) { r.Header.Set("Authorization", "Basic "+access) },
		"refresh token":  func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+refresh) },
		"expired":        func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) },
		"garbage":        func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
		"refresh cookie": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: refresh}) },
		"empty bearer":   func(r *http.Request) { r.Header.Set("Authorization", "Bearer ") },
		"header wins over cookie": func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer nope")
			r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: access})
		},
	}
	for name, prepare := range rejected {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			prepare(req)
			rec := httptest.NewRecorder()
			protected(mw).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
		})
	}
}

func TestRequireRoles(t *testing.T) {
	codec := newCodec(t)
	mw := NewAuthMiddleware(codec)

	admin, err := codec.Issue(1, "admin@test.com", model.RoleAdmin, token.TypeAccess, time.Minute)
	require.NoError(t, err)
	user, err := codec.Issue(2, "user1@user.com", model.RoleUser, token.TypeAccess, time.Minute)
	require.NoError(t, err)

	handler := protected(mw, model.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/auth-events", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/auth-events", nil)
	req.Header.Set("Authorization", "Bearer "+user)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	var seen string
	handler := Logging(SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(requestIDHeader))
}

func TestRecoveryWritesEnvelope(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, rec))
}
