package handler

import (
	"errors"
	"net/http"
	"time"

	"finance-auth/internal/middleware"
	"finance-auth/internal/model"
	"finance-auth/internal/service"
	"finance-auth/pkg/apierror"
)

type AuthHandler struct {
	service      *service.AuthService
	secureCookie bool
}

func NewAuthHandler(service *service.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{service: service, secureCookie: secureCookie}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	payload.Normalize()
	if msg := payload.Validate(); msg != "" {
		writeError(w, validationError(msg))
		return
	}

	session, err := h.service.Login(r.Context(), payload.Email, payload.Password, middleware.ClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	h.writeSession(w, session)
}

// Refresh reads the refresh token from its cookie only; it never travels in a
// JSON body.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := cookieValue(r, middleware.RefreshTokenCookie)
	if refreshToken == "" {
		writeError(w, apierror.Wrap(model.ErrAuthenticationFailed, "UNAUTHORIZED", "refresh token cookie is missing", http.StatusUnauthorized))
		return
	}

	session, err := h.service.Refresh(r.Context(), refreshToken, middleware.ClientIP(r))
	if err != nil {
		if errors.Is(err, model.ErrTokenCompromised) || errors.Is(err, model.ErrAuthenticationFailed) {
			h.clearCookies(w)
		}
		writeError(w, err)
		return
	}

	h.writeSession(w, session)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context(), cookieValue(r, middleware.RefreshTokenCookie), middleware.ClientIP(r))
	h.clearCookies(w)
	writeSuccess(w, http.StatusOK, model.SuccessResponse{Success: true}, nil)
}

func (h *AuthHandler) FindAccount(w http.ResponseWriter, r *http.Request) {
	var payload model.FindAccountRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	payload.Normalize()
	if msg := payload.Validate(); msg != "" {
		writeError(w, validationError(msg))
		return
	}

	account, err := h.service.FindAccount(r.Context(), payload.Name, payload.PhoneNumber, middleware.ClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, account, nil)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload model.ResetPasswordRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	payload.Normalize()
	if msg := payload.Validate(); msg != "" {
		writeError(w, validationError(msg))
		return
	}

	result, err := h.service.ResetPassword(r.Context(), payload, middleware.ClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Wrap(model.ErrAuthenticationFailed, "UNAUTHORIZED", "authentication required", http.StatusUnauthorized))
		return
	}

	memberID, ok := claims.SubjectID()
	if !ok {
		writeError(w, apierror.Wrap(model.ErrAuthenticationFailed, "UNAUTHORIZED", "invalid token subject", http.StatusUnauthorized))
		return
	}

	member, err := h.service.Me(r.Context(), memberID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, member, nil)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, session model.Session) {
	h.setCookie(w, middleware.AccessTokenCookie, session.Tokens.AccessToken, h.service.AccessTTL())
	h.setCookie(w, middleware.RefreshTokenCookie, session.Tokens.RefreshToken, h.service.RefreshTTL())

	writeSuccess(w, http.StatusOK, model.LoginResponse{
		AccessToken: session.Tokens.AccessToken,
		TokenType:   service.TokenTypeBearer,
		ExpiresIn:   session.ExpiresIn,
		User:        session.Member,
	}, nil)
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name string, value string, maxAge int64) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		cookie.MaxAge = int(maxAge)
		cookie.Expires = time.Now().Add(time.Duration(maxAge) * time.Second)
	} else {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	}
	http.SetCookie(w, cookie)
}

func (h *AuthHandler) clearCookies(w http.ResponseWriter) {
	h.setCookie(w, middleware.AccessTokenCookie, "", 0)
	h.setCookie(w, middleware.RefreshTokenCookie, "", 0)
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
