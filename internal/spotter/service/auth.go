package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carspotters/spotter/internal/spotter/domain"
	"github.com/carspotters/spotter/internal/spotter/store"
	"github.com/carspotters/spotter/pkg/fireauth"
	"github.com/carspotters/spotter/pkg/idx"
	"github.com/carspotters/spotter/pkg/slogx"
)

var (
	ErrEmailRegistered      = errors.New("email_already_registered")
	ErrInvalidEmail         = errors.New("invalid_email")
	ErrWeakPassword         = errors.New("weak_password")
	ErrLoginFailed          = errors.New("login_failed")
	ErrUserNotRegistered    = errors.New("user_not_registered")
	ErrAccountDisabled      = errors.New("account_disabled")
	ErrPasswordChangeFailed = errors.New("password_change_failed")
	ErrProviderUnavailable  = errors.New("provider_unavailable")
)

// RegisterRequest carries the inputs for account creation.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Location string
}

// AuthService links provider accounts to local profiles. Registration and
// login are two-step sagas across the provider and the local store; there
// is no compensation step, a failure after provider-side success leaves an
// orphaned provider account which is logged for manual cleanup.
type AuthService struct {
	Provider fireauth.ProviderClient
	Store    store.Store
	Sessions *SessionService

	// VerifyPassword controls whether login checks the password against
	// the provider. Requires the provider web API key; without it login
	// trusts the email alone, matching the legacy behaviour.
	VerifyPassword bool
}

// Register provisions a provider account, links it to a fresh local
// profile and opens a session.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (domain.AuthSession, error) {
	log := slogx.FromContext(ctx)

	// 1. Provision the account at the provider. The provider owns the
	//    credential; we never see the password again after this call.
	external, err := s.Provider.CreateUser(ctx, req.Email, req.Password, req.Name, req.Phone)
	if err != nil {
		return domain.AuthSession{}, mapProviderError(err)
	}

	// 2. Link a local profile to the provider uid.
	location := req.Location
	if location == "" {
		location = domain.DefaultLocation
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:          idx.New(),
		FirebaseUID: external.UID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Location:    location,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		// The provider account now has no local profile. There is no
		// rollback; flag it for manual cleanup.
		log.Error("registration left orphaned provider account",
			"provider_uid", external.UID,
			"email", req.Email,
			"err", err,
		)
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.AuthSession{}, ErrEmailRegistered
		}
		return domain.AuthSession{}, fmt.Errorf("link local profile: %w", err)
	}

	// 3. Open a session for the new account.
	access, refresh, err := s.Sessions.IssuePair(external.UID)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("issue session: %w", err)
	}

	log.Info("user registered", "user_id", user.ID.String(), "provider_uid", external.UID)

	return domain.AuthSession{
		User:         user.Response(),
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    domain.AccessTokenLifetimeSeconds,
		Message:      "Registration successful",
		IsNewUser:    true,
	}, nil
}

// Login authenticates against the provider and opens a session for the
// linked local profile.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.AuthSession, error) {
	log := slogx.FromContext(ctx)

	// 1. Resolve the provider account.
	var (
		external fireauth.ExternalAccount
		err      error
	)
	if s.VerifyPassword {
		external, err = s.Provider.SignInWithPassword(ctx, email, password)
	} else {
		external, err = s.Provider.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return domain.AuthSession{}, mapProviderError(err)
	}
	if external.Disabled {
		return domain.AuthSession{}, ErrAccountDisabled
	}

	// 2. The provider account must be linked to a local profile.
	user, err := s.Store.Users().GetUserByFirebaseUID(ctx, external.UID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AuthSession{}, ErrUserNotRegistered
		}
		return domain.AuthSession{}, fmt.Errorf("lookup local profile: %w", err)
	}

	// 3. Open the session.
	access, refresh, err := s.Sessions.IssuePair(external.UID)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("issue session: %w", err)
	}

	log.Info("user logged in", "user_id", user.ID.String())

	return domain.AuthSession{
		User:         user.Response(),
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    domain.AccessTokenLifetimeSeconds,
		Message:      "Login successful",
	}, nil
}

// Refresh redeems a refresh token for a new session.
func (s *AuthService) Refresh(ctx context.Context, token string) (domain.AuthSession, error) {
	uid, access, refresh, expiresIn, err := s.Sessions.Renew(token)
	if err != nil {
		return domain.AuthSession{}, err
	}

	user, err := s.Store.Users().GetUserByFirebaseUID(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AuthSession{}, ErrUserNotRegistered
		}
		return domain.AuthSession{}, fmt.Errorf("lookup local profile: %w", err)
	}

	return domain.AuthSession{
		User:         user.Response(),
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    expiresIn,
		Message:      "Token refreshed successfully",
	}, nil
}

// ChangePassword replaces the provider-side password for the account.
func (s *AuthService) ChangePassword(ctx context.Context, uid, newPassword string) error {
	log := slogx.FromContext(ctx)

	if err := s.Provider.UpdateUserPassword(ctx, uid, newPassword); err != nil {
		if errors.Is(err, fireauth.ErrWeakPassword) {
			return ErrWeakPassword
		}
		if errors.Is(err, fireauth.ErrProviderUnavailable) {
			return ErrProviderUnavailable
		}
		log.Warn("password change rejected by provider", "provider_uid", uid, "err", err)
		return ErrPasswordChangeFailed
	}

	log.Info("password changed", "provider_uid", uid)
	return nil
}

// Logout records the sign-out. Access tokens stay valid until expiry and
// refresh tokens carry no server-side state, so there is nothing to
// revoke; the call exists for the audit trail.
func (s *AuthService) Logout(ctx context.Context, uid string) {
	slogx.FromContext(ctx).Info("user logged out", "provider_uid", uid)
}

// CurrentUser returns the local profile linked to the provider uid.
func (s *AuthService) CurrentUser(ctx context.Context, uid string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByFirebaseUID(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotRegistered
		}
		return domain.User{}, err
	}
	return user, nil
}

func mapProviderError(err error) error {
	switch {
	case errors.Is(err, fireauth.ErrEmailExists):
		return ErrEmailRegistered
	case errors.Is(err, fireauth.ErrInvalidEmail):
		return ErrInvalidEmail
	case errors.Is(err, fireauth.ErrWeakPassword):
		return ErrWeakPassword
	case errors.Is(err, fireauth.ErrUserNotFound),
		errors.Is(err, fireauth.ErrInvalidPassword):
		// Collapsed so callers cannot probe which emails are registered.
		return ErrLoginFailed
	case errors.Is(err, fireauth.ErrUserDisabled):
		return ErrAccountDisabled
	case errors.Is(err, fireauth.ErrProviderUnavailable):
		return ErrProviderUnavailable
	default:
		return err
	}
}
