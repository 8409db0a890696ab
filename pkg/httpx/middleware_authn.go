package httpx

import (
	"net/http"

	"github.com/carspotters/spotter/pkg/fireauth"
	"github.com/carspotters/spotter/pkg/slogx"
)

// AuthnMiddleware authenticates the bearer token through the gateway and
// injects the resulting Principal into the request context. Every failure
// collapses to the same generic response so callers cannot distinguish
// which check failed.
func AuthnMiddleware(gw *fireauth.Gateway) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			principal, err := gw.Authenticate(ctx, r.Header.Get("Authorization"))
			if err != nil {
				log.Warn("authentication rejected", "err", err)
				writeBearerError(w)
				return
			}

			ctx = ContextWithPrincipal(ctx, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth. The description is
// deliberately vague.
func writeBearerError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="invalid or expired credentials"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]any{
		"success": false,
		"message": "Invalid or expired credentials",
	})
}
