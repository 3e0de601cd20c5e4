package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/creationgoals/server/internal/auth"
	"github.com/creationgoals/server/internal/service"
)

// AuthHandler manages login, registration, the OAuth flows, and logout.
//
// The OAuth endpoints are provider-agnostic: the handler holds a set of
// auth.Provider implementations and the same login/callback pair serves
// Google and GitHub. Adding a provider means registering it here and
// nothing else.
type AuthHandler struct {
	providers  map[string]auth.Provider
	authSvc    *service.AuthService
	sessions   *service.SessionService
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewAuthHandler creates an AuthHandler. providers may be empty (no OAuth
// configured); the local login/register endpoints work regardless.
func NewAuthHandler(
	providers []auth.Provider,
	authSvc *service.AuthService,
	sessions *service.SessionService,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	byName := make(map[string]auth.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &AuthHandler{
		providers:  byName,
		authSvc:    authSvc,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// Providers returns the names of the configured OAuth providers, for
// route registration.
func (h *AuthHandler) Providers() []string {
	names := make([]string, 0, len(h.providers))
	for name := range h.providers {
		names = append(names, name)
	}
	return names
}

// loginRequest is the body of POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the success payload for login and registration. Token
// is the bearer JWT for API clients and is empty when JWT_SECRET is
// unset; browser clients rely on the session cookie instead.
type authResponse struct {
	User  any    `json:"user"`
	Token string `json:"token,omitempty"`
}

// HandleLogin performs local email/password login.
//
// HTTP: POST /auth/login
//
// Invalid credentials come back as 401 with a uniform message — a soft
// failure the login page displays, never an account lockout and never a
// hint about which part was wrong.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid JSON body",
		})
		return
	}

	user, err := h.authSvc.LoginLocal(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	// Local logins carry no OAuth access token.
	session, err := h.sessions.Issue(r.Context(), user, "")
	if err != nil {
		h.logger.Error("login: issuing session failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	h.setSessionCookie(w, session.ID)

	token, err := h.sessions.BearerToken(user)
	if err != nil {
		h.logger.Error("login: issuing bearer token failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

// HandleRegister creates a local account, or attaches local credentials
// to an existing account with the same email.
//
// HTTP: POST /auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string  `json:"email"`
		Password    string  `json:"password"`
		DisplayName *string `json:"displayName"`
		FirstName   *string `json:"firstName"`
		LastName    *string `json:"lastName"`
		Image       *string `json:"image"`
		Bio         *string `json:"bio"`
		Location    *string `json:"location"`
		Company     *string `json:"company"`
		Website     *string `json:"website"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid JSON body",
		})
		return
	}

	user, created, err := h.authSvc.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Image:       req.Image,
		Bio:         req.Bio,
		Location:    req.Location,
		Company:     req.Company,
		Website:     req.Website,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, authResponse{User: user})
}

// HandleOAuthLogin redirects the browser to the provider's authorization
// page.
//
// HTTP: GET /auth/{provider}
//
// A random state value goes into a short-lived HttpOnly cookie; the
// callback verifies it to block CSRF-initiated flows.
func (h *AuthHandler) HandleOAuthLogin(providerName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, ok := h.providers[providerName]
		if !ok {
			http.NotFound(w, r)
			return
		}

		state := xid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     "oauth_state",
			Value:    state,
			Path:     "/",
			MaxAge:   600, // 10 minutes
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		http.Redirect(w, r, provider.AuthURL(state), http.StatusTemporaryRedirect)
	}
}

// HandleOAuthCallback completes an OAuth login.
//
// HTTP: GET /auth/{provider}/callback?code=xxx&state=yyy
//
// Flow: verify state → exchange the code for a profile → reconcile the
// profile onto a user record → issue a session holding the user id and the
// provider access token → redirect to the dashboard.
func (h *AuthHandler) HandleOAuthCallback(providerName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, ok := h.providers[providerName]
		if !ok {
			http.NotFound(w, r)
			return
		}

		stateCookie, err := r.Cookie("oauth_state")
		if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
			h.logger.Warn("oauth callback: state check failed",
				slog.String("provider", providerName),
			)
			http.Error(w, "invalid OAuth state", http.StatusBadRequest)
			return
		}

		// The state cookie is single-use.
		http.SetCookie(w, &http.Cookie{
			Name:   "oauth_state",
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})

		// The user denied the authorization request.
		if errParam := r.URL.Query().Get("error"); errParam != "" {
			h.logger.Info("oauth callback: authorization denied",
				slog.String("provider", providerName),
				slog.String("error", errParam),
			)
			http.Redirect(w, r, "/?accessDenied=true", http.StatusSeeOther)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing OAuth code", http.StatusBadRequest)
			return
		}

		profile, accessToken, err := provider.Exchange(r.Context(), code)
		if err != nil {
			h.logger.Error("oauth callback: exchange failed",
				slog.String("provider", providerName),
				slog.String("error", err.Error()),
			)
			writeError(w, err)
			return
		}

		user, _, err := h.authSvc.Reconcile(r.Context(), profile)
		if err != nil {
			h.logger.Error("oauth callback: reconcile failed",
				slog.String("provider", providerName),
				slog.String("error", err.Error()),
			)
			writeError(w, err)
			return
		}

		session, err := h.sessions.Issue(r.Context(), user, accessToken)
		if err != nil {
			h.logger.Error("oauth callback: issuing session failed",
				slog.String("error", err.Error()),
			)
			writeError(w, err)
			return
		}
		h.setSessionCookie(w, session.ID)

		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

// HandleLogout destroys the server-side session and clears the cookie.
//
// HTTP: POST /auth/logout
//
// POST because logout changes state — a GET would be CSRF-able and
// pre-fetchable. Idempotent: logging out without a session still succeeds.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil && cookie.Value != "" {
		if err := h.sessions.Destroy(r.Context(), cookie.Value); err != nil {
			h.logger.Error("logout: destroying session failed", slog.String("error", err.Error()))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
// Auth: required.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Should never happen behind RequireAuth, but be safe.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	writeJSON(w, http.StatusOK, ident.User)
}

// setSessionCookie stores the opaque session id in an HttpOnly cookie.
// HttpOnly keeps it out of reach of injected scripts; SameSite=Lax sends
// it on top-level navigations but not cross-site POSTs. Secure should be
// on behind HTTPS in production.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
