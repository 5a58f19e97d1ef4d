package model

import "time"

type RefreshToken struct {
	ID        int64     `json:"id"`
	Token     string    `json:"-"`
	OwnerID   int64     `json:"owner_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Usable reports whether the record can still be exchanged at now.
func (t RefreshToken) Usable(now time.Time) bool {
	return t.Active && t.ExpiresAt.After(now)
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Session is what a successful login or refresh hands to the web layer.
type Session struct {
	Tokens    TokenPair
	ExpiresIn int64
	Member    MemberSummary
}

type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int64         `json:"expires_in"`
	User        MemberSummary `json:"user"`
}

type FindAccountResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}
