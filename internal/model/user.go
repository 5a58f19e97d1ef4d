package model

import (
	"strconv"
	"time"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Member is the principal record owned by the member directory. The auth core
// only reads it, apart from replacing the password hash on reset.
type Member struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PhoneNumber  string    `json:"phone_number"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	Deleted      bool      `json:"deleted"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CanAuthenticate reports whether the member may log in or recover the account.
func (m Member) CanAuthenticate() bool {
	return m.Active && !m.Deleted
}

func (m Member) Summary() MemberSummary {
	return MemberSummary{ID: m.ID, Email: m.Email, Name: m.Name, Role: m.Role}
}

func (m Member) Subject() string {
	return strconv.FormatInt(m.ID, 10)
}

type MemberSummary struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// NormalizePhone strips separators so "010-1111-1111" and "01011111111" compare equal.
func NormalizePhone(raw string) string {
	out := make([]rune, 0, len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			out = append(out, r)
		}
	}
	return string(out)
}
