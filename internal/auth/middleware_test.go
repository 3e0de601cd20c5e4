package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/creationgoals/server/internal/apperror"
	"github.com/creationgoals/server/internal/model"
)

// stubResolver resolves exactly one session id and one bearer token.
type stubResolver struct {
	sessionID string
	token     string
	identity  *model.Identity
}

func (s *stubResolver) ResolveSession(_ context.Context, sessionID string) (*model.Identity, error) {
	if sessionID == s.sessionID {
		return s.identity, nil
	}
	return nil, apperror.Unauthorized("unknown session")
}

func (s *stubResolver) ResolveToken(_ context.Context, token string) (*model.Identity, error) {
	if token == s.token {
		return s.identity, nil
	}
	return nil, apperror.Unauthorized("invalid token")
}

func newStubResolver() *stubResolver {
	return &stubResolver{
		sessionID: "good-session",
		token:     "good-token",
		identity:  &model.Identity{User: &model.User{ID: "user-1", Email: "ada@example.com"}},
	}
}

// identityProbe records whether the wrapped handler saw an identity.
func identityProbe(sawIdentity *bool, userID *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFromContext(r.Context())
		*sawIdentity = ok
		if ok {
			*userID = ident.User.ID
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth_SessionCookie(t *testing.T) {
	resolver := newStubResolver()
	var saw bool
	var userID string
	mw := RequireAuth(resolver)(identityProbe(&saw, &userID))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good-session"})
	rr := httptest.NewRecorder()

	mw.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !saw || userID != "user-1" {
		t.Errorf("handler saw identity = %v (user %q), want user-1", saw, userID)
	}
}

func TestRequireAuth_BearerToken(t *testing.T) {
	resolver := newStubResolver()
	var saw bool
	var userID string
	mw := RequireAuth(resolver)(identityProbe(&saw, &userID))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rr := httptest.NewRecorder()

	mw.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !saw || userID != "user-1" {
		t.Errorf("handler saw identity = %v (user %q), want user-1", saw, userID)
	}
}

func TestRequireAuth_RejectsWithoutCredential(t *testing.T) {
	resolver := newStubResolver()
	var saw bool
	var userID string
	mw := RequireAuth(resolver)(identityProbe(&saw, &userID))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	rr := httptest.NewRecorder()

	mw.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if saw {
		t.Error("handler ran despite missing credential")
	}

	// The body is JSON and must be labeled as such.
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("401 body is not valid JSON: %v", err)
	}
	if body.Error != "unauthorized" {
		t.Errorf("body.Error = %q, want %q", body.Error, "unauthorized")
	}
}

func TestRequireAuth_RejectsBadSession(t *testing.T) {
	resolver := newStubResolver()
	var saw bool
	var userID string
	mw := RequireAuth(resolver)(identityProbe(&saw, &userID))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "stale-session"})
	rr := httptest.NewRecorder()

	mw.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestOptionalAuth_AnonymousPassesThrough(t *testing.T) {
	resolver := newStubResolver()
	var saw bool
	var userID string
	mw := OptionalAuth(resolver)(identityProbe(&saw, &userID))

	req := httptest.NewRequest(http.MethodGet, "/api/goals/abc", nil)
	rr := httptest.NewRecorder()

	mw.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 — anonymous requests continue", rr.Code)
	}
	if saw {
		t.Error("anonymous request should carry no identity")
	}
}

func TestOptionalAuth_InvalidCredentialStillPassesThrough(t *testing.T) {
	resolver := newStubResolver()
	var saw bool
	var userID string
	mw := OptionalAuth(resolver)(identityProbe(&saw, &userID))

	req := httptest.NewRequest(http.MethodGet, "/api/goals/abc", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "stale-session"})
	rr := httptest.NewRecorder()

	mw.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 — invalid credential is treated as anonymous", rr.Code)
	}
	if saw {
		t.Error("invalid credential should resolve to no identity")
	}
}

func TestOptionalAuth_ValidSessionAttachesIdentity(t *testing.T) {
	resolver := newStubResolver()
	var saw bool
	var userID string
	mw := OptionalAuth(resolver)(identityProbe(&saw, &userID))

	req := httptest.NewRequest(http.MethodGet, "/api/goals/abc", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good-session"})
	rr := httptest.NewRecorder()

	mw.ServeHTTP(rr, req)

	if !saw || userID != "user-1" {
		t.Errorf("handler saw identity = %v (user %q), want user-1", saw, userID)
	}
}

func TestIdentityFromContext_Empty(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Error("IdentityFromContext() = true for an empty context, want false")
	}
}
