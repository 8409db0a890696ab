package fireauth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/carspotters/spotter/pkg/slogx"
)

// Gateway turns a raw Authorization header into a verified Principal. Each
// request runs the same short pipeline: extract, decode, classify, then
// dispatch to the verification path the classifier picked. Custom tokens
// are verified locally against our own credential; provider ID tokens go
// out to the provider. There is no caching: every request reverifies from
// scratch.
type Gateway struct {
	Codec      *Codec
	Classifier Classifier
	Provider   ProviderClient
}

// Authenticate verifies the Authorization header value and returns the
// Principal. Every failure maps onto one of the fireauth sentinel errors;
// the HTTP boundary is expected to collapse them into a single generic
// unauthorized response.
func (g *Gateway) Authenticate(ctx context.Context, authorization string) (Principal, error) {
	l := slogx.FromContext(ctx)

	raw, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return Principal{}, ErrNoToken
	}
	raw = strings.TrimSpace(raw)

	if _, err := DecodeHeader(raw); err != nil {
		return Principal{}, err
	}
	payload, err := DecodePayload(raw)
	if err != nil {
		return Principal{}, err
	}

	kind := g.Classifier.Classify(payload)
	l.Debug("bearer token classified", slog.String("kind", kind.String()), slog.String("iss", payload.Iss))

	var principal Principal
	switch kind {
	case KindCustom:
		principal, err = g.Codec.VerifyCustomToken(raw)
	case KindProviderID:
		principal, err = g.Provider.VerifyIDToken(ctx, raw)
	case KindUnknown:
		return Principal{}, ErrUnsupportedTokenType
	default:
		return Principal{}, ErrUnsupportedTokenType
	}
	if err != nil {
		l.Warn("token verification failed", slog.String("kind", kind.String()), slog.Any("error", err))
		return Principal{}, err
	}

	l.Debug("request authenticated", slog.String("sub", principal.SubjectID))
	return principal, nil
}
