package fireauth

import "context"

// ExternalAccount is the provider's view of a user account.
type ExternalAccount struct {
	UID           string
	Email         string
	DisplayName   string
	PhoneNumber   string
	EmailVerified bool
	Disabled      bool
}

// ProviderClient is the outbound surface to the external identity provider.
// The provider owns account credentials (passwords, verification emails);
// this service only creates, looks up and links accounts, and delegates ID
// token verification. Implementations must honour ctx cancellation and
// report transport failures as ErrProviderUnavailable, never as an
// authentication verdict.
type ProviderClient interface {
	// CreateUser provisions a provider account. Fails with ErrEmailExists,
	// ErrInvalidEmail or ErrWeakPassword when the provider rejects input.
	CreateUser(ctx context.Context, email, password, displayName, phone string) (ExternalAccount, error)

	// GetUserByEmail fails with ErrUserNotFound when no account exists.
	GetUserByEmail(ctx context.Context, email string) (ExternalAccount, error)

	// GetUserByUID fails with ErrUserNotFound when no account exists.
	GetUserByUID(ctx context.Context, uid string) (ExternalAccount, error)

	// UpdateUserPassword replaces the account password.
	UpdateUserPassword(ctx context.Context, uid, newPassword string) error

	// SignInWithPassword performs a credential check against the provider.
	// Fails with ErrUserNotFound, ErrInvalidPassword or ErrUserDisabled.
	SignInWithPassword(ctx context.Context, email, password string) (ExternalAccount, error)

	// VerifyIDToken verifies a provider-issued ID token and returns the
	// authenticated Principal. Fails with ErrTokenExpired, ErrTokenRevoked,
	// ErrMalformedToken or ErrInvalidToken.
	VerifyIDToken(ctx context.Context, token string) (Principal, error)
}
