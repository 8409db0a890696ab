package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/carspotters/spotter/internal/spotter/service"
	"github.com/carspotters/spotter/pkg/httpx"
	"github.com/carspotters/spotter/pkg/slogx"
)

type AuthHandler struct {
	AuthService *service.AuthService
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// HandleRegister creates a provider account, links the local profile and
// returns the initial session.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateRegister(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	session, err := h.AuthService.Register(ctx, service.RegisterRequest{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: req.Password,
		Phone:    strings.TrimSpace(req.Phone),
		Location: strings.TrimSpace(req.Location),
	})
	if err != nil {
		writeAuthError(w, log, err)
		return
	}

	writeData(w, http.StatusCreated, session)
}

// HandleLogin authenticates an existing account and returns a session.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	session, err := h.AuthService.Login(ctx,
		strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		writeAuthError(w, log, err)
		return
	}

	writeData(w, http.StatusOK, session)
}

// HandleRefresh exchanges a refresh token for a new session.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	session, err := h.AuthService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		writeAuthError(w, log, err)
		return
	}

	writeData(w, http.StatusOK, session)
}

// HandleMe returns the profile linked to the authenticated subject.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	principal, ok := httpx.PrincipalFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or expired credentials")
		return
	}

	user, err := h.AuthService.CurrentUser(ctx, principal.SubjectID)
	if err != nil {
		writeAuthError(w, log, err)
		return
	}

	writeData(w, http.StatusOK, user.Response())
}

// HandleChangePassword replaces the provider-side password for the
// authenticated subject.
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	principal, ok := httpx.PrincipalFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or expired credentials")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.NewPassword) < 6 {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	if err := h.AuthService.ChangePassword(ctx, principal.SubjectID, req.NewPassword); err != nil {
		writeAuthError(w, log, err)
		return
	}

	writeMessage(w, http.StatusOK, "Password changed successfully")
}

// HandleLogout records the sign-out for the authenticated subject.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := httpx.PrincipalFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or expired credentials")
		return
	}

	h.AuthService.Logout(ctx, principal.SubjectID)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func validateRegister(req registerRequest) string {
	if strings.TrimSpace(req.Name) == "" {
		return "Name is required"
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return "Email is required"
	}
	if !strings.Contains(email, "@") {
		return "Email is invalid"
	}
	if len(req.Password) < 6 {
		return "Password must be at least 6 characters"
	}
	return ""
}

// writeAuthError maps service failures onto HTTP statuses. Credential
// failures collapse to one generic 401 body.
func writeAuthError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrEmailRegistered):
		writeError(w, http.StatusConflict, "Email is already registered")
	case errors.Is(err, service.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "Email is invalid")
	case errors.Is(err, service.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "Password is too weak")
	case errors.Is(err, service.ErrLoginFailed),
		errors.Is(err, service.ErrAccountDisabled),
		errors.Is(err, service.ErrUserNotRegistered),
		errors.Is(err, service.ErrInvalidRefresh),
		errors.Is(err, service.ErrRefreshExpired):
		writeError(w, http.StatusUnauthorized, "Invalid or expired credentials")
	case errors.Is(err, service.ErrPasswordChangeFailed):
		writeError(w, http.StatusBadRequest, "Password change failed")
	case errors.Is(err, service.ErrProviderUnavailable):
		log.Warn("identity provider unavailable", "err", err)
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		log.Error("unhandled auth failure", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
