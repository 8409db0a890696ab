package fireauth

import (
	"github.com/golang-jwt/jwt/v5"
)

// IdentityToolkitAudience is the fixed audience claim carried by custom
// tokens. The identity toolkit requires this exact value when a client
// exchanges a custom token for an ID token.
const IdentityToolkitAudience = "https://identitytoolkit.googleapis.com/google.identity.identitytoolkit.v1.IdentityToolkit"

// TokenHeader is the decoded first JWT segment.
type TokenHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
	KID string `json:"kid,omitempty"`
}

// FirebaseInfo is the provider-specific nested claim found in ID tokens.
// Its presence alone is a classification signal.
type FirebaseInfo struct {
	SignInProvider string         `json:"sign_in_provider"`
	Tenant         string         `json:"tenant,omitempty"`
	Identities     map[string]any `json:"identities,omitempty"`
}

// TokenPayload is the decoded second JWT segment, untrusted until the
// matching verification path has passed. It covers the union of the two
// token shapes we accept: self-issued custom tokens (iss == sub == service
// account, uid + nested claims) and provider ID tokens (securetoken issuer,
// firebase claim).
type TokenPayload struct {
	Iss string `json:"iss,omitempty"`
	Sub string `json:"sub,omitempty"`
	Aud string `json:"aud,omitempty"`
	Exp int64  `json:"exp,omitempty"`
	Iat int64  `json:"iat,omitempty"`

	UID    string         `json:"uid,omitempty"`
	Claims map[string]any `json:"claims,omitempty"`

	Email         string        `json:"email,omitempty"`
	Name          string        `json:"name,omitempty"`
	EmailVerified bool          `json:"email_verified,omitempty"`
	Firebase      *FirebaseInfo `json:"firebase,omitempty"`
}

// CustomClaims are the claims we sign into a custom token.
type CustomClaims struct {
	jwt.RegisteredClaims

	// Aud shadows the registered audience so it serializes as the plain
	// string the identity toolkit expects rather than a JSON array.
	Aud    string         `json:"aud"`
	UID    string         `json:"uid"`
	Claims map[string]any `json:"claims,omitempty"`
}

// Principal is the verified identity attached to a request. It is built
// fresh per request and never persisted.
type Principal struct {
	// SubjectID is the stable external uid. For a custom token it comes
	// from the uid claim; for a provider ID token from the verified sub.
	// The two paths must never be cross-trusted.
	SubjectID string

	Email         string
	Name          string
	EmailVerified bool

	// Claims is the raw claim bag from whichever token was verified.
	Claims map[string]any
}

func (p Principal) String() string { return p.SubjectID }
