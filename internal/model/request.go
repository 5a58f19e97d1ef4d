package model

import (
	"net/mail"
	"regexp"
	"strings"
)

var phonePattern = regexp.MustCompile(`^\d{2,4}-?\d{3,4}-?\d{4}$`)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

func (r LoginRequest) Validate() string {
	if r.Email == "" || r.Password == "" {
		return "email and password are required"
	}
	if !validEmail(r.Email) {
		return "email is malformed"
	}
	return ""
}

type FindAccountRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

func (r *FindAccountRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
}

func (r FindAccountRequest) Validate() string {
	if r.Name == "" || r.PhoneNumber == "" {
		return "name and phone_number are required"
	}
	if !phonePattern.MatchString(r.PhoneNumber) {
		return "phone_number is malformed"
	}
	return ""
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	NewPassword string `json:"new_password"`
}

func (r *ResetPasswordRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
}

func (r ResetPasswordRequest) Validate() string {
	if r.Email == "" || r.Name == "" || r.PhoneNumber == "" || r.NewPassword == "" {
		return "email, name, phone_number and new_password are required"
	}
	if !validEmail(r.Email) {
		return "email is malformed"
	}
	if !phonePattern.MatchString(r.PhoneNumber) {
		return "phone_number is malformed"
	}
	if n := len(r.NewPassword); n < 6 || n > 72 {
		return "new_password must be between 6 and 72 characters"
	}
	return ""
}

// String keeps the new password out of logs and error details.
func (r ResetPasswordRequest) String() string {
	return "ResetPasswordRequest{email=" + r.Email + ", name=" + r.Name + ", new_password=***}"
}

func validEmail(raw string) bool {
	addr, err := mail.ParseAddress(raw)
	return err == nil && addr.Address == raw
}
