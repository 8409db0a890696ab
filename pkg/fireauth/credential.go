package fireauth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// SigningCredential is the service's own asymmetric signing identity,
// constructed once at process start and passed around by reference. It
// replaces the lazy module-init credential loading of typical admin SDKs
// with an explicit, immutable value.
type SigningCredential struct {
	projectID   string
	clientEmail string
	key         *rsa.PrivateKey
}

// NewSigningCredential parses the service account private key from PEM
// bytes. Handles both PKCS1 and PKCS8 because Google ships PKCS8 but
// locally generated test keys are usually PKCS1.
func NewSigningCredential(projectID, clientEmail string, pemKey []byte) (*SigningCredential, error) {
	if projectID == "" || clientEmail == "" {
		return nil, errors.New("fireauth: project id and client email are required")
	}

	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("fireauth: invalid PEM for signing key")
	}

	var key *rsa.PrivateKey

	switch block.Type {
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("fireauth: parse PKCS1: %w", err)
		}
		key = k
	case "PRIVATE KEY":
		priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("fireauth: parse PKCS8: %w", err)
		}
		rk, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("fireauth: not an RSA private key")
		}
		key = rk
	default:
		return nil, fmt.Errorf("fireauth: unsupported PEM type %q", block.Type)
	}

	return &SigningCredential{
		projectID:   projectID,
		clientEmail: clientEmail,
		key:         key,
	}, nil
}

// ProjectID returns the identity provider project this credential belongs to.
func (c *SigningCredential) ProjectID() string { return c.projectID }

// ClientEmail returns the service account identifier. Custom tokens carry
// it as both issuer and subject.
func (c *SigningCredential) ClientEmail() string { return c.clientEmail }

// PrivateKey returns the RSA signing key.
func (c *SigningCredential) PrivateKey() *rsa.PrivateKey { return c.key }

// PublicKey returns the verification half of the signing key.
func (c *SigningCredential) PublicKey() *rsa.PublicKey { return &c.key.PublicKey }
