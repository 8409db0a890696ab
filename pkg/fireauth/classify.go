package fireauth

// Kind labels which verification path applies to a decoded payload.
type Kind int

const (
	// KindUnknown fails classification and is always rejected.
	KindUnknown Kind = iota

	// KindCustom is a token this service signed itself.
	KindCustom

	// KindProviderID is a token the identity provider issued after its own
	// authentication flow.
	KindProviderID
)

func (k Kind) String() string {
	switch k {
	case KindCustom:
		return "custom"
	case KindProviderID:
		return "provider_id"
	default:
		return "unknown"
	}
}

// Classifier decides which verification path an opaque bearer token takes.
// It is a pure function of the untrusted payload plus static configuration;
// no claim it reads is trusted until the chosen path verifies the token.
type Classifier struct {
	ProjectID           string
	ServiceAccountEmail string
}

// Classify labels the payload. The custom-token rule is checked first and
// wins ties: a self-issued token must never be downgraded to provider
// verification, which would fail but misattribute the error.
func (c Classifier) Classify(p TokenPayload) Kind {
	if p.Iss == c.ServiceAccountEmail &&
		p.Sub == c.ServiceAccountEmail &&
		p.UID != "" &&
		p.Aud == IdentityToolkitAudience {
		return KindCustom
	}

	if p.Iss == "https://securetoken.google.com/"+c.ProjectID ||
		p.Firebase != nil ||
		p.Aud == c.ProjectID {
		return KindProviderID
	}

	return KindUnknown
}
