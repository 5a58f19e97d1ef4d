package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"finance-auth/internal/model"
)

const testSecret = "test-secret-test-secret-test-secret"

func newTestCodec(t *testing.T) *Codec {
	t.Helper()

	codec, err := NewCodec(testSecret)
	require.NoError(t, err)
	return codec
}

func TestNewCodecRejectsShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewCodec("short")
	require.Error(t, err)
}

func TestIssueRoundTrip(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	for _, typ := range []Type{TypeAccess, TypeRefresh} {
		tokenString, err := codec.Issue(42, "user1@user.com", model.RoleUser, typ, time.Hour)
		require.NoError(t, err)
		require.True(t, codec.Validate(tokenString))

		claims, ok := codec.Claims(tokenString)
		require.True(t, ok)
		id, ok := claims.SubjectID()
		require.True(t, ok)
		require.Equal(t, int64(42), id)
		require.Equal(t, "user1@user.com", claims.Email)
		require.Equal(t, model.RoleUser, claims.Role)
		require.Equal(t, typ, claims.Type)
		require.NotEmpty(t, claims.ID)
		require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAtTime(), 2*time.Second)
	}
}

func TestTypeChecksAreExclusive(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	access, err := codec.Issue(1, "admin@test.com", model.RoleAdmin, TypeAccess, time.Hour)
	require.NoError(t, err)
	refresh, err := codec.Issue(1, "admin@test.com", model.RoleAdmin, TypeRefresh, time.Hour)
	require.NoError(t, err)

	require.True(t, codec.IsAccess(access))
	require.False(t, codec.IsRefresh(access))
	require.True(t, codec.IsRefresh(refresh))
	require.False(t, codec.IsAccess(refresh))

	_, ok := codec.Verify(access, TypeRefresh)
	require.False(t, ok)
	_, ok = codec.Verify(refresh, TypeRefresh)
	require.True(t, ok)
}

func TestTokensAreUniquePerIssue(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	first, err := codec.Issue(7, "a@b.com", model.RoleUser, TypeRefresh, time.Hour)
	require.NoError(t, err)
	second, err := codec.Issue(7, "a@b.com", model.RoleUser, TypeRefresh, time.Hour)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestExpiredTokenFailsValidation(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	expired, err := codec.Issue(3, "a@b.com", model.RoleUser, TypeAccess, -time.Minute)
	require.NoError(t, err)
	require.False(t, codec.Validate(expired))
	require.False(t, codec.IsAccess(expired))
	_, ok := codec.Claims(expired)
	require.False(t, ok)

	current := time.Now()
	clocked := newTestCodec(t).WithClock(func() time.Time { return current })
	tokenString, err := clocked.Issue(3, "a@b.com", model.RoleUser, TypeRefresh, time.Hour)
	require.NoError(t, err)
	require.True(t, clocked.Validate(tokenString))

	current = current.Add(2 * time.Hour)
	require.False(t, clocked.Validate(tokenString))
}

func TestRejectsForgedAndMalformedTokens(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	other, err := NewCodec("another-secret-another-secret-another")
	require.NoError(t, err)

	forged, err := other.Issue(1, "admin@test.com", model.RoleAdmin, TypeAccess, time.Hour)
	require.NoError(t, err)
	require.False(t, codec.Validate(forged))

	valid, err := codec.Issue(1, "admin@test.com", model.RoleAdmin, TypeAccess, time.Hour)
	require.NoError(t, err)
	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	require.False(t, codec.Validate(tampered))

	for _, raw := range []string{"", "garbage", "a.b.c", valid + "."} {
		require.False(t, codec.Validate(raw), raw)
	}
}

func TestRejectsUnexpectedAlgorithm(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	claims := Claims{
		Type: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	require.False(t, codec.Validate(unsigned))

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	require.False(t, codec.Validate(hs512))
}

func TestRejectsNonNumericSubject(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	claims := Claims{
		Type: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	require.False(t, codec.Validate(signed))
}
