package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ayush/jobbid/internal/auth"
	"github.com/ayush/jobbid/internal/httpx"
	"github.com/ayush/jobbid/internal/models"
)

type contextKey string

var identityContextKey = contextKey("identity")

// Verifier checks a raw credential and returns the identity it binds.
type Verifier interface {
	Verify(ctx context.Context, token string) (models.Identity, error)
}

// RequireAuth is middleware that validates the credential cookie and injects
// the identity into the request context. Every rejection gets the same 401.
func RequireAuth(verifier Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.TokenCookie)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			identity, err := verifier.Verify(r.Context(), cookie.Value)
			if err != nil {
				// Anything beyond a bare rejection came from the denylist backend.
				if err != auth.ErrUnauthorized {
					logger.Warn("credential check failed", slog.String("error", err.Error()))
				}
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{"message": "unauthorized access"})
}

// IdentityFromContext returns the identity RequireAuth attached.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(models.Identity)
	return id, ok && id.Email != ""
}

// ContextWithIdentity attaches identity to ctx.
func ContextWithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
