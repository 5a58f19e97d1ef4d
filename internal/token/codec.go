// Package token mints and verifies the signed access and refresh tokens.
// It knows nothing about storage: a refresh token that verifies here may
// still be rejected by the refresh token store.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"finance-auth/internal/model"
)

type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

const minSecretLength = 32

// Claims is the payload carried by both token types.
type Claims struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	Type  Type       `json:"typ"`
	jwt.RegisteredClaims
}

// SubjectID returns the numeric member id, or false when the subject is not one.
func (c Claims) SubjectID() (int64, bool) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (c Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

type Codec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

func NewCodec(secret string) (*Codec, error) {
	if len(secret) < minSecretLength {
		return nil, errors.New("token secret must be at least 32 bytes")
	}

	c := &Codec{secret: []byte(secret), now: time.Now}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	return c, nil
}

// WithClock replaces the time source used for both minting and verification.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Issue signs a token for the subject. A non-positive ttl yields a token that
// is already expired.
func (c *Codec) Issue(subjectID int64, email string, role model.Role, typ Type, ttl time.Duration) (string, error) {
	now := c.now().UTC()
	claims := Claims{
		Email: email,
		Role:  role,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subjectID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Validate checks format, signature and expiry. It does not look at the type.
func (c *Codec) Validate(tokenString string) bool {
	_, ok := c.parse(tokenString)
	return ok
}

func (c *Codec) IsRefresh(tokenString string) bool {
	claims, ok := c.parse(tokenString)
	return ok && claims.Type == TypeRefresh
}

func (c *Codec) IsAccess(tokenString string) bool {
	claims, ok := c.parse(tokenString)
	return ok && claims.Type == TypeAccess
}

// Claims returns the verified payload. Tokens that fail Validate yield false.
func (c *Codec) Claims(tokenString string) (Claims, bool) {
	return c.parse(tokenString)
}

// Verify combines Validate, the type check and claim extraction.
func (c *Codec) Verify(tokenString string, expected Type) (Claims, bool) {
	claims, ok := c.parse(tokenString)
	if !ok || claims.Type != expected {
		return Claims{}, false
	}
	return claims, true
}

func (c *Codec) parse(tokenString string) (Claims, bool) {
	if tokenString == "" {
		return Claims{}, false
	}

	var claims Claims
	parsed, err := c.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, false
	}
	if _, ok := claims.SubjectID(); !ok {
		return Claims{}, false
	}

	return claims, true
}
