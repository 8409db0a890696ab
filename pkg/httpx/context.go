package httpx

import (
	"context"

	"github.com/carspotters/spotter/pkg/fireauth"
)

type ctxKey string

const ctxKeyPrincipal ctxKey = "principal"

// ContextWithPrincipal attaches the authenticated identity to the request
// context.
func ContextWithPrincipal(ctx context.Context, p fireauth.Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext returns the authenticated identity, if any.
func PrincipalFromContext(ctx context.Context) (fireauth.Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(fireauth.Principal)
	return p, ok
}
