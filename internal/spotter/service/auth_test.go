package service_test

import (
	"context"
	"testing"

	"github.com/carspotters/spotter/internal/spotter/domain"
	"github.com/carspotters/spotter/internal/spotter/service"
	"github.com/carspotters/spotter/internal/spotter/store/drivers/sqlite"
	"github.com/carspotters/spotter/pkg/fireauth"
	"github.com/carspotters/spotter/pkg/idx"
	"github.com/stretchr/testify/require"
)

// fakeProvider is an in-memory stand-in for the identity provider.
type fakeProvider struct {
	accounts map[string]fireauth.ExternalAccount // keyed by email
	failWith error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: make(map[string]fireauth.ExternalAccount)}
}

func (f *fakeProvider) CreateUser(_ context.Context, email, _, displayName, phone string) (fireauth.ExternalAccount, error) {
	if f.failWith != nil {
		return fireauth.ExternalAccount{}, f.failWith
	}
	if _, ok := f.accounts[email]; ok {
		return fireauth.ExternalAccount{}, fireauth.ErrEmailExists
	}
	acct := fireauth.ExternalAccount{
		UID:         "fb-" + idx.New().String(),
		Email:       email,
		DisplayName: displayName,
		PhoneNumber: phone,
	}
	f.accounts[email] = acct
	return acct, nil
}

func (f *fakeProvider) GetUserByEmail(_ context.Context, email string) (fireauth.ExternalAccount, error) {
	if f.failWith != nil {
		return fireauth.ExternalAccount{}, f.failWith
	}
	acct, ok := f.accounts[email]
	if !ok {
		return fireauth.ExternalAccount{}, fireauth.ErrUserNotFound
	}
	return acct, nil
}

func (f *fakeProvider) GetUserByUID(_ context.Context, uid string) (fireauth.ExternalAccount, error) {
	for _, acct := range f.accounts {
		if acct.UID == uid {
			return acct, nil
		}
	}
	return fireauth.ExternalAccount{}, fireauth.ErrUserNotFound
}

func (f *fakeProvider) UpdateUserPassword(_ context.Context, uid, newPassword string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if len(newPassword) < 6 {
		return fireauth.ErrWeakPassword
	}
	_, err := f.GetUserByUID(context.Background(), uid)
	return err
}

func (f *fakeProvider) SignInWithPassword(_ context.Context, email, _ string) (fireauth.ExternalAccount, error) {
	return f.GetUserByEmail(context.Background(), email)
}

func (f *fakeProvider) VerifyIDToken(context.Context, string) (fireauth.Principal, error) {
	panic("not used")
}

func newAuthService(t *testing.T) (*service.AuthService, *fakeProvider) {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	provider := newFakeProvider()
	auth := &service.AuthService{
		Provider: provider,
		Store:    s,
		Sessions: newSessionService(t),
	}
	return auth, provider
}

func TestAuthServiceRegister(t *testing.T) {
	ctx := context.Background()

	req := service.RegisterRequest{
		Name:     "Ada Spotter",
		Email:    "ada@example.com",
		Password: "secret123",
		Phone:    "+250781234567",
	}

	t.Run("creates linked profile and opens session", func(t *testing.T) {
		auth, provider := newAuthService(t)

		session, err := auth.Register(ctx, req)
		require.NoError(t, err)
		require.True(t, session.IsNewUser)
		require.Equal(t, "Registration successful", session.Message)
		require.Equal(t, 3600, session.ExpiresIn)
		require.NotEmpty(t, session.AccessToken)
		require.NotEmpty(t, session.RefreshToken)
		require.Equal(t, "ada@example.com", session.User.Email)
		require.Equal(t, domain.DefaultLocation, session.User.Location)

		acct := provider.accounts["ada@example.com"]
		require.Equal(t, acct.UID, session.User.FirebaseUID)
		require.NotEmpty(t, session.User.UpdatedAt)

		user, err := auth.Store.Users().GetUserByFirebaseUID(ctx, acct.UID)
		require.NoError(t, err)
		require.Equal(t, "Ada Spotter", user.Name)
	})

	t.Run("explicit location is kept", func(t *testing.T) {
		auth, _ := newAuthService(t)

		located := req
		located.Location = "Musanze"
		session, err := auth.Register(ctx, located)
		require.NoError(t, err)
		require.Equal(t, "Musanze", session.User.Location)
	})

	t.Run("provider duplicate maps to email_already_registered", func(t *testing.T) {
		auth, _ := newAuthService(t)

		_, err := auth.Register(ctx, req)
		require.NoError(t, err)

		_, err = auth.Register(ctx, req)
		require.ErrorIs(t, err, service.ErrEmailRegistered)
	})

	t.Run("local duplicate maps to email_already_registered", func(t *testing.T) {
		auth, _ := newAuthService(t)

		_, err := auth.Register(ctx, req)
		require.NoError(t, err)

		// Provider allows it (different provider account), local store
		// rejects on email uniqueness.
		other := req
		delete(auth.Provider.(*fakeProvider).accounts, req.Email)
		_, err = auth.Register(ctx, other)
		require.ErrorIs(t, err, service.ErrEmailRegistered)
	})

	t.Run("provider outage surfaces as provider_unavailable", func(t *testing.T) {
		auth, provider := newAuthService(t)
		provider.failWith = fireauth.ErrProviderUnavailable

		_, err := auth.Register(ctx, req)
		require.ErrorIs(t, err, service.ErrProviderUnavailable)
	})
}

func TestAuthServiceLogin(t *testing.T) {
	ctx := context.Background()

	req := service.RegisterRequest{
		Name:     "Ada Spotter",
		Email:    "ada@example.com",
		Password: "secret123",
	}

	t.Run("opens session for linked account", func(t *testing.T) {
		auth, _ := newAuthService(t)
		_, err := auth.Register(ctx, req)
		require.NoError(t, err)

		session, err := auth.Login(ctx, req.Email, req.Password)
		require.NoError(t, err)
		require.False(t, session.IsNewUser)
		require.Equal(t, "Login successful", session.Message)
		require.NotEmpty(t, session.AccessToken)
	})

	t.Run("unknown email maps to login_failed", func(t *testing.T) {
		auth, _ := newAuthService(t)
		_, err := auth.Login(ctx, "nobody@example.com", "whatever")
		require.ErrorIs(t, err, service.ErrLoginFailed)
	})

	t.Run("provider account without local profile is user_not_registered", func(t *testing.T) {
		auth, provider := newAuthService(t)
		_, err := provider.CreateUser(ctx, "orphan@example.com", "secret123", "Orphan", "")
		require.NoError(t, err)

		_, err = auth.Login(ctx, "orphan@example.com", "secret123")
		require.ErrorIs(t, err, service.ErrUserNotRegistered)
	})

	t.Run("disabled provider account is rejected", func(t *testing.T) {
		auth, provider := newAuthService(t)
		_, err := auth.Register(ctx, req)
		require.NoError(t, err)

		acct := provider.accounts[req.Email]
		acct.Disabled = true
		provider.accounts[req.Email] = acct

		_, err = auth.Login(ctx, req.Email, req.Password)
		require.ErrorIs(t, err, service.ErrAccountDisabled)
	})
}

func TestAuthServiceRefresh(t *testing.T) {
	ctx := context.Background()

	req := service.RegisterRequest{
		Name:     "Ada Spotter",
		Email:    "ada@example.com",
		Password: "secret123",
	}

	t.Run("rotates the session", func(t *testing.T) {
		auth, _ := newAuthService(t)
		registered, err := auth.Register(ctx, req)
		require.NoError(t, err)

		refreshed, err := auth.Refresh(ctx, registered.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, "Token refreshed successfully", refreshed.Message)
		require.Equal(t, registered.User.ID, refreshed.User.ID)
		require.NotEmpty(t, refreshed.RefreshToken)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		auth, _ := newAuthService(t)
		_, err := auth.Refresh(ctx, "garbage")
		require.ErrorIs(t, err, service.ErrInvalidRefresh)
	})
}

func TestAuthServiceChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("delegates to provider", func(t *testing.T) {
		auth, provider := newAuthService(t)
		acct, err := provider.CreateUser(ctx, "ada@example.com", "secret123", "Ada", "")
		require.NoError(t, err)

		require.NoError(t, auth.ChangePassword(ctx, acct.UID, "newsecret"))
	})

	t.Run("weak password surfaces", func(t *testing.T) {
		auth, provider := newAuthService(t)
		acct, err := provider.CreateUser(ctx, "ada@example.com", "secret123", "Ada", "")
		require.NoError(t, err)

		require.ErrorIs(t, auth.ChangePassword(ctx, acct.UID, "short"), service.ErrWeakPassword)
	})

	t.Run("other provider failures normalize", func(t *testing.T) {
		auth, _ := newAuthService(t)
		require.ErrorIs(t, auth.ChangePassword(ctx, "missing-uid", "newsecret"),
			service.ErrPasswordChangeFailed)
	})
}

func TestAuthServiceCurrentUser(t *testing.T) {
	ctx := context.Background()

	t.Run("returns linked profile", func(t *testing.T) {
		auth, provider := newAuthService(t)
		_, err := auth.Register(ctx, service.RegisterRequest{
			Name: "Ada", Email: "ada@example.com", Password: "secret123",
		})
		require.NoError(t, err)

		acct := provider.accounts["ada@example.com"]
		user, err := auth.CurrentUser(ctx, acct.UID)
		require.NoError(t, err)
		require.Equal(t, "ada@example.com", user.Email)
	})

	t.Run("unlinked uid is user_not_registered", func(t *testing.T) {
		auth, _ := newAuthService(t)
		_, err := auth.CurrentUser(ctx, "fb-unknown")
		require.ErrorIs(t, err, service.ErrUserNotRegistered)
	})
}
