package service

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/carspotters/spotter/internal/spotter/domain"
	"github.com/carspotters/spotter/pkg/fireauth"
)

var (
	ErrInvalidRefresh = errors.New("invalid_refresh_token")
	ErrRefreshExpired = errors.New("refresh_token_expired")
)

// DefaultRefreshMaxAge is how long a refresh token stays redeemable.
const DefaultRefreshMaxAge = 7 * 24 * time.Hour

// SessionService mints the access/refresh token pair for a linked
// account. Access tokens are provider custom tokens; refresh tokens are
// opaque to clients but carry no signature, so possession alone redeems
// them within the window.
type SessionService struct {
	Codec  *fireauth.Codec
	MaxAge time.Duration

	// Now is overridable for tests. Defaults to time.Now.
	Now func() time.Time
}

type refreshPayload struct {
	UID  string `json:"uid"`
	Type string `json:"type"`
	Iat  int64  `json:"iat"`
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SessionService) maxAge() time.Duration {
	if s.MaxAge > 0 {
		return s.MaxAge
	}
	return DefaultRefreshMaxAge
}

// IssueAccessToken mints a provider custom token for the account.
func (s *SessionService) IssueAccessToken(uid string) (string, error) {
	return s.Codec.SignCustomToken(uid, nil)
}

// IssueRefreshToken mints a refresh token bound to the account. The
// issued-at is recorded in milliseconds.
func (s *SessionService) IssueRefreshToken(uid string) (string, error) {
	payload := refreshPayload{
		UID:  uid,
		Type: "refresh",
		Iat:  s.now().UnixMilli(),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// VerifyRefreshToken checks a refresh token and returns the account uid
// it was issued to. Tokens older than the window fail with
// ErrRefreshExpired; anything structurally wrong fails with
// ErrInvalidRefresh.
func (s *SessionService) VerifyRefreshToken(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidRefresh
	}

	var payload refreshPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", ErrInvalidRefresh
	}
	if payload.Type != "refresh" || payload.UID == "" {
		return "", ErrInvalidRefresh
	}

	age := s.now().Sub(time.UnixMilli(payload.Iat))
	if age > s.maxAge() {
		return "", ErrRefreshExpired
	}

	return payload.UID, nil
}

// IssuePair mints a fresh access and refresh token for the account.
func (s *SessionService) IssuePair(uid string) (access, refresh string, err error) {
	access, err = s.IssueAccessToken(uid)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.IssueRefreshToken(uid)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Renew redeems a refresh token for a fresh pair. Rotation is
// unconditional: every renewal re-stamps the refresh window.
func (s *SessionService) Renew(token string) (uid, access, refresh string, expiresIn int, err error) {
	uid, err = s.VerifyRefreshToken(token)
	if err != nil {
		return "", "", "", 0, err
	}
	access, refresh, err = s.IssuePair(uid)
	if err != nil {
		return "", "", "", 0, err
	}
	return uid, access, refresh, domain.AccessTokenLifetimeSeconds, nil
}
