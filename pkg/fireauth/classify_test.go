package fireauth_test

import (
	"testing"

	"github.com/carspotters/spotter/pkg/fireauth"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	classifier := fireauth.Classifier{
		ProjectID:           testProjectID,
		ServiceAccountEmail: testClientEmail,
	}

	t.Run("custom token", func(t *testing.T) {
		kind := classifier.Classify(fireauth.TokenPayload{
			Iss: testClientEmail,
			Sub: testClientEmail,
			UID: "spotter-1",
			Aud: fireauth.IdentityToolkitAudience,
		})
		require.Equal(t, fireauth.KindCustom, kind)
	})

	t.Run("id token by issuer", func(t *testing.T) {
		kind := classifier.Classify(fireauth.TokenPayload{
			Iss: "https://securetoken.google.com/" + testProjectID,
			Sub: "spotter-1",
			Aud: testProjectID,
		})
		require.Equal(t, fireauth.KindProviderID, kind)
	})

	t.Run("id token by firebase claim alone", func(t *testing.T) {
		kind := classifier.Classify(fireauth.TokenPayload{
			Firebase: &fireauth.FirebaseInfo{SignInProvider: "password"},
		})
		require.Equal(t, fireauth.KindProviderID, kind)
	})

	t.Run("id token by audience alone", func(t *testing.T) {
		kind := classifier.Classify(fireauth.TokenPayload{Aud: testProjectID})
		require.Equal(t, fireauth.KindProviderID, kind)
	})

	t.Run("custom rule wins over provider coincidence", func(t *testing.T) {
		// A payload satisfying the self-issued rule must never be
		// downgraded to provider verification, even when it also carries
		// a provider-looking signal.
		kind := classifier.Classify(fireauth.TokenPayload{
			Iss:      testClientEmail,
			Sub:      testClientEmail,
			UID:      "spotter-1",
			Aud:      fireauth.IdentityToolkitAudience,
			Firebase: &fireauth.FirebaseInfo{},
		})
		require.Equal(t, fireauth.KindCustom, kind)
	})

	t.Run("self-issued without uid is not custom", func(t *testing.T) {
		kind := classifier.Classify(fireauth.TokenPayload{
			Iss: testClientEmail,
			Sub: testClientEmail,
			Aud: fireauth.IdentityToolkitAudience,
		})
		require.Equal(t, fireauth.KindUnknown, kind)
	})

	t.Run("no signals is unknown", func(t *testing.T) {
		kind := classifier.Classify(fireauth.TokenPayload{
			Iss: "https://example.com",
			Sub: "someone",
			Aud: "something-else",
		})
		require.Equal(t, fireauth.KindUnknown, kind)
	})

	t.Run("empty payload is unknown", func(t *testing.T) {
		require.Equal(t, fireauth.KindUnknown, classifier.Classify(fireauth.TokenPayload{}))
	})
}
