package fireauth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/carspotters/spotter/pkg/fireauth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testProjectID   = "carspotters-test"
	testClientEmail = "svc@carspotters-test.iam.gserviceaccount.com"
)

func newTestCredential(t *testing.T) (*fireauth.SigningCredential, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pemKey := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	cred, err := fireauth.NewSigningCredential(testProjectID, testClientEmail, pemKey)
	require.NoError(t, err)
	return cred, key
}

func TestNewSigningCredential(t *testing.T) {
	t.Run("accepts PKCS8", func(t *testing.T) {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		der, err := x509.MarshalPKCS8PrivateKey(key)
		require.NoError(t, err)
		pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

		cred, err := fireauth.NewSigningCredential(testProjectID, testClientEmail, pemKey)
		require.NoError(t, err)
		require.Equal(t, testClientEmail, cred.ClientEmail())
	})

	t.Run("rejects garbage PEM", func(t *testing.T) {
		_, err := fireauth.NewSigningCredential(testProjectID, testClientEmail, []byte("not a key"))
		require.Error(t, err)
	})

	t.Run("requires project and client email", func(t *testing.T) {
		_, err := fireauth.NewSigningCredential("", "", nil)
		require.Error(t, err)
	})
}

func TestDecodePayload(t *testing.T) {
	cred, _ := newTestCredential(t)
	codec := &fireauth.Codec{Credential: cred}

	t.Run("round trips signed token", func(t *testing.T) {
		token, err := codec.SignCustomToken("spotter-1", map[string]any{"email": "a@b.com"})
		require.NoError(t, err)

		payload, err := fireauth.DecodePayload(token)
		require.NoError(t, err)
		require.Equal(t, "spotter-1", payload.UID)
		require.Equal(t, testClientEmail, payload.Iss)
		require.Equal(t, testClientEmail, payload.Sub)
	})

	t.Run("two segments is malformed", func(t *testing.T) {
		_, err := fireauth.DecodePayload("abc.def")
		require.ErrorIs(t, err, fireauth.ErrMalformedToken)
	})

	t.Run("non-base64 segment is malformed", func(t *testing.T) {
		_, err := fireauth.DecodePayload("a!b.c!d.e!f")
		require.ErrorIs(t, err, fireauth.ErrMalformedToken)
	})

	t.Run("non-json payload is malformed", func(t *testing.T) {
		_, err := fireauth.DecodePayload("aGk.aGk.aGk") // base64("hi")
		require.ErrorIs(t, err, fireauth.ErrMalformedToken)
	})
}

func TestVerifyCustomToken(t *testing.T) {
	cred, key := newTestCredential(t)
	codec := &fireauth.Codec{Credential: cred}

	t.Run("subject equals embedded uid", func(t *testing.T) {
		token, err := codec.SignCustomToken("spotter-42", map[string]any{
			"email": "spotter@example.com",
			"name":  "Spotter",
		})
		require.NoError(t, err)

		principal, err := codec.VerifyCustomToken(token)
		require.NoError(t, err)
		require.Equal(t, "spotter-42", principal.SubjectID)
		require.Equal(t, "spotter@example.com", principal.Email)
		require.Equal(t, "Spotter", principal.Name)
		require.True(t, principal.EmailVerified)
	})

	t.Run("expired token fails with expiry error", func(t *testing.T) {
		past := time.Now().Add(-2 * time.Hour)
		token := signAt(t, key, "spotter-42", past, past.Add(time.Hour))

		_, err := codec.VerifyCustomToken(token)
		require.ErrorIs(t, err, fireauth.ErrTokenExpired)
	})

	t.Run("foreign signature rejected", func(t *testing.T) {
		otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		now := time.Now()
		token := signAt(t, otherKey, "spotter-42", now, now.Add(time.Hour))

		_, err = codec.VerifyCustomToken(token)
		require.ErrorIs(t, err, fireauth.ErrInvalidSignature)
	})

	t.Run("malformed token rejected", func(t *testing.T) {
		_, err := codec.VerifyCustomToken("only.two")
		require.ErrorIs(t, err, fireauth.ErrMalformedToken)
	})

	t.Run("token without exp is malformed, not immortal", func(t *testing.T) {
		claims := fireauth.CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:   testClientEmail,
				Subject:  testClientEmail,
				IssuedAt: jwt.NewNumericDate(time.Now()),
			},
			Aud: fireauth.IdentityToolkitAudience,
			UID: "spotter-42",
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
		require.NoError(t, err)

		_, err = codec.VerifyCustomToken(token)
		require.ErrorIs(t, err, fireauth.ErrMalformedToken)
	})

	t.Run("garbage signature segment is malformed, not invalid signature", func(t *testing.T) {
		token, err := codec.SignCustomToken("spotter-42", nil)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		mangled := parts[0] + "." + parts[1] + ".!!!"

		_, err = codec.VerifyCustomToken(mangled)
		require.ErrorIs(t, err, fireauth.ErrMalformedToken)
	})
}

// signAt builds a custom-token-shaped JWT with explicit timestamps so tests
// can produce expired tokens.
func signAt(t *testing.T, key *rsa.PrivateKey, uid string, iat, exp time.Time) string {
	t.Helper()

	claims := fireauth.CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testClientEmail,
			Subject:   testClientEmail,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Aud: fireauth.IdentityToolkitAudience,
		UID: uid,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}
