package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"finance-auth/internal/model"
	"finance-auth/internal/ratelimit"
	"finance-auth/internal/repository"
	"finance-auth/internal/token"
	"finance-auth/pkg/apierror"
)

// TokenTypeBearer is the token_type reported alongside access tokens.
const TokenTypeBearer = "Bearer"

type AuthService struct {
	members repository.MemberDirectory
	tokens  *TokenService
	codec   *token.Codec
	hasher  PasswordHasher
	limiter *ratelimit.AttemptLimiter
	audit   *AuditService
}

func NewAuthService(
	members repository.MemberDirectory,
	tokens *TokenService,
	codec *token.Codec,
	hasher PasswordHasher,
	limiter *ratelimit.AttemptLimiter,
	audit *AuditService,
) *AuthService {
	return &AuthService{
		members: members,
		tokens:  tokens,
		codec:   codec,
		hasher:  hasher,
		limiter: limiter,
		audit:   audit,
	}
}

// Login verifies the credentials and starts a new session, revoking any
// session the member already had.
func (s *AuthService) Login(ctx context.Context, email string, password string, ip string) (model.Session, error) {
	member, found, err := s.members.FindByEmail(ctx, email)
	if err != nil {
		return model.Session{}, err
	}
	if !found || !member.CanAuthenticate() || !s.hasher.Matches(member.PasswordHash, password) {
		slog.Info("login rejected", "ip", ip)
		event := model.AuthEvent{Action: model.ActionLoginFailure, Email: email, IP: ip, Status: model.AuditStatusFailure}
		if found {
			event.MemberID = &member.ID
		}
		s.audit.Record(ctx, event)
		return model.Session{}, errInvalidCredentials()
	}

	outcome, err := s.tokens.StartSession(ctx, member)
	if err != nil {
		return model.Session{}, err
	}

	fresh, ok := outcome.(OutcomeFresh)
	if !ok {
		return model.Session{}, fmt.Errorf("start session: unexpected outcome %T", outcome)
	}

	s.audit.Record(ctx, model.AuthEvent{Action: model.ActionLoginSuccess, MemberID: &member.ID, Email: member.Email, IP: ip})
	return s.session(fresh.Pair, member), nil
}

// Refresh rotates a refresh token. A token that verifies cryptographically but
// is no longer usable in the store is treated as stolen: every session of its
// owner is revoked and ErrTokenCompromised is returned.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, ip string) (model.Session, error) {
	claims, ok := s.codec.Verify(refreshToken, token.TypeRefresh)
	if !ok {
		return model.Session{}, errInvalidRefreshToken()
	}
	memberID, ok := claims.SubjectID()
	if !ok {
		return model.Session{}, errInvalidRefreshToken()
	}

	member, found, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return model.Session{}, err
	}
	if !found || !member.CanAuthenticate() {
		if err := s.tokens.Invalidate(ctx, refreshToken); err != nil {
			slog.Error("failed to invalidate refresh token of unavailable member", "member_id", memberID, "error", err)
		}
		return model.Session{}, errInvalidRefreshToken()
	}

	outcome, err := s.tokens.Rotate(ctx, refreshToken, member)
	if err != nil {
		return model.Session{}, err
	}

	switch o := outcome.(type) {
	case OutcomeRotated:
		s.audit.Record(ctx, model.AuthEvent{Action: model.ActionTokenRefresh, MemberID: &member.ID, Email: member.Email, IP: ip})
		return s.session(o.Pair, member), nil
	case OutcomeCompromiseDetected:
		return model.Session{}, s.handleCompromise(ctx, o.OwnerID, member.Email, ip)
	default:
		return model.Session{}, fmt.Errorf("rotate refresh token: unexpected outcome %T", outcome)
	}
}

func (s *AuthService) handleCompromise(ctx context.Context, ownerID int64, email string, ip string) error {
	revoked, err := s.tokens.InvalidateAllForOwner(ctx, ownerID)
	if err != nil {
		return err
	}

	slog.Warn("refresh token reuse detected, all sessions revoked",
		"member_id", ownerID,
		"ip", ip,
		"revoked", revoked,
	)
	s.audit.Record(ctx, model.AuthEvent{
		Action:   model.ActionTokenCompromise,
		MemberID: &ownerID,
		Email:    email,
		IP:       ip,
		Status:   model.AuditStatusFailure,
		Detail:   "revoked=" + strconv.FormatInt(revoked, 10),
	})

	return apierror.Wrap(model.ErrTokenCompromised, "TOKEN_COMPROMISED",
		"refresh token reuse detected, all sessions have been revoked", http.StatusUnauthorized)
}

// Logout deactivates the refresh token if there is one. It never fails from
// the caller's point of view.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, ip string) {
	if refreshToken == "" {
		return
	}

	if err := s.tokens.Invalidate(ctx, refreshToken); err != nil {
		slog.Error("logout failed to invalidate refresh token", "ip", ip, "error", err)
		return
	}

	event := model.AuthEvent{Action: model.ActionLogout, IP: ip}
	if claims, ok := s.codec.Claims(refreshToken); ok {
		if id, ok := claims.SubjectID(); ok {
			event.MemberID = &id
			event.Email = claims.Email
		}
	}
	s.audit.Record(ctx, event)
}

// FindAccount looks a member up by name and phone number. Failed and blocked
// attempts count against the caller's IP; successful ones do not.
func (s *AuthService) FindAccount(ctx context.Context, name string, phone string, ip string) (model.FindAccountResponse, error) {
	if err := s.gate(ctx, model.ActionAccountFind, ip); err != nil {
		return model.FindAccountResponse{}, err
	}

	member, found, err := s.members.FindByNameAndPhone(ctx, name, phone)
	if err != nil {
		return model.FindAccountResponse{}, err
	}
	if !found || !member.CanAuthenticate() {
		s.recordFailedRecovery(ctx, model.ActionAccountFind, ip)
		return model.FindAccountResponse{}, errNoMatchingAccount()
	}

	s.audit.Record(ctx, model.AuthEvent{Action: model.ActionAccountFind, MemberID: &member.ID, Email: member.Email, IP: ip})
	return model.FindAccountResponse{Email: member.Email, Name: member.Name}, nil
}

// ResetPassword replaces the password of the member matching email, name and
// phone number, and ends every session the member had.
func (s *AuthService) ResetPassword(ctx context.Context, req model.ResetPasswordRequest, ip string) (model.SuccessResponse, error) {
	if err := s.gate(ctx, model.ActionPasswordReset, ip); err != nil {
		return model.SuccessResponse{}, err
	}

	member, found, err := s.members.FindByEmailNameAndPhone(ctx, req.Email, req.Name, req.PhoneNumber)
	if err != nil {
		return model.SuccessResponse{}, err
	}
	if !found || !member.CanAuthenticate() {
		s.recordFailedRecovery(ctx, model.ActionPasswordReset, ip)
		return model.SuccessResponse{}, errNoMatchingAccount()
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return model.SuccessResponse{}, err
	}
	if err := s.members.UpdatePasswordHash(ctx, member.ID, hash); err != nil {
		return model.SuccessResponse{}, err
	}

	revoked, err := s.tokens.InvalidateAllForOwner(ctx, member.ID)
	if err != nil {
		slog.Error("password reset could not revoke sessions", "member_id", member.ID, "error", err)
	}

	slog.Info("password reset", "member_id", member.ID, "ip", ip, "revoked_sessions", revoked)
	s.audit.Record(ctx, model.AuthEvent{Action: model.ActionPasswordReset, MemberID: &member.ID, Email: member.Email, IP: ip})
	return model.SuccessResponse{Success: true}, nil
}

func (s *AuthService) Me(ctx context.Context, memberID int64) (model.MemberSummary, error) {
	member, found, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return model.MemberSummary{}, err
	}
	if !found || !member.CanAuthenticate() {
		return model.MemberSummary{}, apierror.Wrap(model.ErrAuthenticationFailed, "UNAUTHORIZED", "member is not available", http.StatusUnauthorized)
	}
	return member.Summary(), nil
}

func (s *AuthService) AccessTTL() int64 {
	return int64(s.tokens.AccessTTL().Seconds())
}

func (s *AuthService) RefreshTTL() int64 {
	return int64(s.tokens.RefreshTTL().Seconds())
}

// gate rejects the call when ip has exhausted its recovery attempts. A blocked
// call is itself recorded as an attempt.
func (s *AuthService) gate(ctx context.Context, action model.AuthAction, ip string) error {
	if s.limiter.IsAllowed(ip) {
		return nil
	}

	count := s.limiter.RecordAttempt(ip)
	slog.Warn("recovery attempt blocked", "action", action, "ip", ip, "attempts", count)
	s.audit.Record(ctx, model.AuthEvent{
		Action: model.ActionRecoveryBlocked,
		IP:     ip,
		Status: model.AuditStatusFailure,
		Detail: string(action),
	})

	return apierror.Wrap(model.ErrRateLimited, "RATE_LIMITED", "too many attempts, try again later", http.StatusTooManyRequests)
}

func (s *AuthService) recordFailedRecovery(ctx context.Context, action model.AuthAction, ip string) {
	s.limiter.RecordAttempt(ip)
	s.audit.Record(ctx, model.AuthEvent{
		Action: action,
		IP:     ip,
		Status: model.AuditStatusFailure,
		Detail: "remaining=" + strconv.Itoa(s.limiter.RemainingAttempts(ip)),
	})
}

func (s *AuthService) session(pair model.TokenPair, member model.Member) model.Session {
	return model.Session{
		Tokens:    pair,
		ExpiresIn: s.AccessTTL(),
		Member:    member.Summary(),
	}
}

func errInvalidCredentials() error {
	return apierror.Wrap(model.ErrAuthenticationFailed, "UNAUTHORIZED", "invalid credentials", http.StatusUnauthorized)
}

func errInvalidRefreshToken() error {
	return apierror.Wrap(model.ErrAuthenticationFailed, "UNAUTHORIZED", "refresh token is invalid", http.StatusUnauthorized)
}

func errNoMatchingAccount() error {
	return apierror.Wrap(model.ErrNoMatchingAccount, "NO_MATCHING_ACCOUNT", "no matching account", http.StatusNotFound)
}
