package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/creationgoals/server/internal/model"
)

// SessionCookie is the name of the browser session cookie. Its value is
// an opaque server-side session id, not a token — stealing the cookie
// value alone reveals nothing about the user.
const SessionCookie = "session"

// contextKey is an unexported type used for context keys in this package.
// A package-private key type means only this package can read or write
// the identity in a request context — no collisions with other packages.
type contextKey string

const identityKey contextKey = "identity"

// IdentityResolver turns a credential into a full request identity.
// Implemented by the service layer; defined here so the middleware doesn't
// depend on it (the service imports auth, not the other way around).
//
// Both methods rehydrate the user record from the database, so a deleted
// account fails resolution even if its session or token is still live.
type IdentityResolver interface {
	// ResolveSession maps a session cookie value to an identity.
	ResolveSession(ctx context.Context, sessionID string) (*model.Identity, error)
	// ResolveToken maps a bearer JWT to an identity.
	ResolveToken(ctx context.Context, token string) (*model.Identity, error)
}

// RequireAuth is a middleware that enforces authentication on protected
// routes. It resolves the session cookie first and falls back to an
// "Authorization: Bearer" JWT, so both browsers and API clients work. If
// neither credential resolves, it returns 401 and stops the chain.
func RequireAuth(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, err := resolveIdentity(r, resolver)
			if err != nil || ident == nil {
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the identity if a valid credential is present but
// does NOT block the request if it's missing or invalid.
//
// Use this on routes like GET /api/goals/{id} where anonymous visitors can
// read Public goals but owners also see their Private ones. Handlers check
// IdentityFromContext — ("", false) means the request is anonymous.
func OptionalAuth(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ident, err := resolveIdentity(r, resolver); err == nil && ident != nil {
				ctx := context.WithValue(r.Context(), identityKey, ident)
				r = r.WithContext(ctx)
			}
			// Always continue — no 401 even with no credential
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext retrieves the authenticated identity from the
// request context. Returns (nil, false) for anonymous requests.
func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(*model.Identity)
	return ident, ok && ident != nil && ident.User != nil
}

// WithIdentity returns a context carrying the given identity. Exposed for
// handler tests, which skip the middleware.
func WithIdentity(ctx context.Context, ident *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// writeUnauthorized emits the 401 JSON body in the same shape the handler
// package uses. http.Error would label it text/plain, so the header and
// body are written by hand.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}` + "\n"))
}

// resolveIdentity tries the session cookie, then the bearer header.
// Shared by RequireAuth and OptionalAuth.
func resolveIdentity(r *http.Request, resolver IdentityResolver) (*model.Identity, error) {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return resolver.ResolveSession(r.Context(), cookie.Value)
	}

	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return resolver.ResolveToken(r.Context(), strings.TrimPrefix(header, "Bearer "))
	}

	return nil, http.ErrNoCookie
}
