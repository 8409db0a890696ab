package fireauth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomTokenTTL is the lifetime of a self-issued custom token. The
// identity toolkit rejects custom tokens with a longer lifetime.
const CustomTokenTTL = time.Hour

// Codec encodes, decodes, signs and verifies the two bearer token formats.
// It has no I/O; provider ID tokens are only decoded here, their
// verification belongs to the ProviderClient.
type Codec struct {
	Credential *SigningCredential

	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

func (c *Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// DecodeHeader splits the compact form and decodes segment 0 without any
// verification.
func DecodeHeader(token string) (TokenHeader, error) {
	var h TokenHeader
	if err := decodeSegment(token, 0, &h); err != nil {
		return TokenHeader{}, err
	}
	return h, nil
}

// DecodePayload splits the compact form and decodes segment 1. The result
// is untrusted: it feeds classification only, never identity.
func DecodePayload(token string) (TokenPayload, error) {
	var p TokenPayload
	if err := decodeSegment(token, 1, &p); err != nil {
		return TokenPayload{}, err
	}
	return p, nil
}

func decodeSegment(token string, i int, v any) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ErrMalformedToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[i])
	if err != nil {
		return ErrMalformedToken
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return ErrMalformedToken
	}
	return nil
}

// SignCustomToken mints a custom token for uid. Issuer and subject are the
// service account email, audience is the fixed identity toolkit constant,
// and extraClaims lands in the nested claims object.
func (c *Codec) SignCustomToken(uid string, extraClaims map[string]any) (string, error) {
	return c.signCustomToken(uid, extraClaims, CustomTokenTTL)
}

func (c *Codec) signCustomToken(uid string, extraClaims map[string]any, ttl time.Duration) (string, error) {
	now := c.now()
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.Credential.ClientEmail(),
			Subject:   c.Credential.ClientEmail(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Aud:    IdentityToolkitAudience,
		UID:    uid,
		Claims: extraClaims,
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.Credential.PrivateKey())
}

// VerifyCustomToken checks expiry and the RS256 signature against our own
// public key and returns the Principal carried by the token. Custom tokens
// are pre-verified identities, so email_verified is true by construction.
func (c *Codec) VerifyCustomToken(token string) (Principal, error) {
	payload, err := DecodePayload(token)
	if err != nil {
		return Principal{}, err
	}

	// Custom tokens always carry exp; a token without one cannot be
	// trusted with an unbounded lifetime.
	if payload.Exp == 0 {
		return Principal{}, ErrMalformedToken
	}
	// Expiry first so an expired token reports as expired even when the
	// caller also rotated keys underneath it.
	if payload.Exp < c.now().Unix() {
		return Principal{}, ErrTokenExpired
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	parsed := CustomClaims{}
	if _, err := parser.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return c.Credential.PublicKey(), nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Principal{}, ErrMalformedToken
		}
		return Principal{}, ErrInvalidSignature
	}

	return principalFromCustom(parsed.UID, payload), nil
}

func principalFromCustom(uid string, p TokenPayload) Principal {
	pr := Principal{
		SubjectID:     uid,
		Email:         p.Email,
		Name:          p.Name,
		EmailVerified: true,
		Claims:        p.Claims,
	}
	if v, ok := p.Claims["email"].(string); ok && pr.Email == "" {
		pr.Email = v
	}
	if v, ok := p.Claims["name"].(string); ok && pr.Name == "" {
		pr.Name = v
	}
	return pr
}
