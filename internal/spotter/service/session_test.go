package service_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"
	"time"

	"github.com/carspotters/spotter/internal/spotter/service"
	"github.com/carspotters/spotter/pkg/fireauth"
	"github.com/stretchr/testify/require"
)

func newTestCredential(t *testing.T) *fireauth.SigningCredential {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	cred, err := fireauth.NewSigningCredential(
		"carspotters-test",
		"svc@carspotters-test.iam.gserviceaccount.com",
		keyPEM,
	)
	require.NoError(t, err)
	return cred
}

func newSessionService(t *testing.T) *service.SessionService {
	t.Helper()
	return &service.SessionService{
		Codec: &fireauth.Codec{Credential: newTestCredential(t)},
	}
}

func TestSessionService(t *testing.T) {
	t.Run("refresh token round trip", func(t *testing.T) {
		s := newSessionService(t)
		token, err := s.IssueRefreshToken("uid-123")
		require.NoError(t, err)

		uid, err := s.VerifyRefreshToken(token)
		require.NoError(t, err)
		require.Equal(t, "uid-123", uid)
	})

	t.Run("token within window passes, beyond fails", func(t *testing.T) {
		s := newSessionService(t)
		issuedAt := time.Now()

		s.Now = func() time.Time { return issuedAt }
		token, err := s.IssueRefreshToken("uid-123")
		require.NoError(t, err)

		s.Now = func() time.Time { return issuedAt.Add(service.DefaultRefreshMaxAge - time.Millisecond) }
		_, err = s.VerifyRefreshToken(token)
		require.NoError(t, err)

		s.Now = func() time.Time { return issuedAt.Add(service.DefaultRefreshMaxAge + time.Millisecond) }
		_, err = s.VerifyRefreshToken(token)
		require.ErrorIs(t, err, service.ErrRefreshExpired)
	})

	t.Run("garbage is invalid, not expired", func(t *testing.T) {
		s := newSessionService(t)

		_, err := s.VerifyRefreshToken("not base64 !!!")
		require.ErrorIs(t, err, service.ErrInvalidRefresh)

		_, err = s.VerifyRefreshToken(base64.StdEncoding.EncodeToString([]byte("not json")))
		require.ErrorIs(t, err, service.ErrInvalidRefresh)
	})

	t.Run("wrong type field is invalid", func(t *testing.T) {
		s := newSessionService(t)
		token := base64.StdEncoding.EncodeToString([]byte(`{"uid":"u","type":"access","iat":1}`))
		_, err := s.VerifyRefreshToken(token)
		require.ErrorIs(t, err, service.ErrInvalidRefresh)
	})

	t.Run("renew rotates both tokens", func(t *testing.T) {
		s := newSessionService(t)
		_, refresh, err := s.IssuePair("uid-123")
		require.NoError(t, err)

		uid, access, rotated, expiresIn, err := s.Renew(refresh)
		require.NoError(t, err)
		require.Equal(t, "uid-123", uid)
		require.NotEmpty(t, access)
		require.NotEmpty(t, rotated)
		require.Equal(t, 3600, expiresIn)
	})
}
