package fireauth

import "errors"

var (
	// Bearer extraction and decoding failures. These are terminal for the
	// request and must never be retried.
	ErrNoToken              = errors.New("fireauth: no bearer token")
	ErrMalformedToken       = errors.New("fireauth: malformed token")
	ErrUnsupportedTokenType = errors.New("fireauth: unsupported token type")

	// Verification failures.
	ErrTokenExpired     = errors.New("fireauth: token expired")
	ErrTokenRevoked     = errors.New("fireauth: token revoked")
	ErrInvalidSignature = errors.New("fireauth: invalid signature")
	ErrInvalidToken     = errors.New("fireauth: invalid token")

	// Provider account errors, normalized from the identity toolkit REST
	// error codes (EMAIL_EXISTS, INVALID_EMAIL, ...).
	ErrEmailExists     = errors.New("fireauth: email already exists")
	ErrInvalidEmail    = errors.New("fireauth: invalid email")
	ErrWeakPassword    = errors.New("fireauth: weak password")
	ErrUserNotFound    = errors.New("fireauth: user not found")
	ErrInvalidPassword = errors.New("fireauth: invalid password")
	ErrUserDisabled    = errors.New("fireauth: user disabled")

	// ErrProviderUnavailable covers transport failures and provider 5xx
	// responses. Callers may retry; it is never an authentication verdict.
	ErrProviderUnavailable = errors.New("fireauth: identity provider unavailable")
)
