package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creationgoals/server/internal/apperror"
	"github.com/creationgoals/server/internal/auth"
	"github.com/creationgoals/server/internal/model"
	"github.com/creationgoals/server/internal/repository"
)

// SessionService is the session codec: it reduces an authenticated
// identity to the minimum persisted entry ({userId, accessToken}) and
// reconstitutes the full identity on every request.
//
// Encoding stores nothing else — no profile snapshot, no roles — so the
// user record the middleware hands to handlers is always the current one.
// The flip side is that a deleted account must terminate its sessions:
// Resolve destroys the session rather than ever returning a partial
// identity.
//
// It also resolves bearer JWTs for cookie-less API clients, which makes
// it the single auth.IdentityResolver the middleware needs.
type SessionService struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	tokens   *auth.TokenService // nil when JWT_SECRET is unset
	ttl      time.Duration
	logger   *slog.Logger
}

// compile-time check that the middleware can use a *SessionService
var _ auth.IdentityResolver = (*SessionService)(nil)

// NewSessionService creates a SessionService. tokens may be nil, which
// disables the bearer-token path; ttl is how long issued sessions live
// (24 hours in the default configuration).
func NewSessionService(
	sessions repository.SessionRepository,
	users repository.UserRepository,
	tokens *auth.TokenService,
	ttl time.Duration,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		users:    users,
		tokens:   tokens,
		ttl:      ttl,
		logger:   logger,
	}
}

// Issue encodes an authenticated identity into a new server-side session
// and returns it. accessToken is the provider OAuth token for OAuth
// logins and empty for local logins.
func (s *SessionService) Issue(ctx context.Context, user *model.User, accessToken string) (*model.Session, error) {
	if user == nil || user.ID == "" {
		return nil, fmt.Errorf("service/session: user must not be nil")
	}

	session := &model.Session{
		UserID:      user.ID,
		AccessToken: accessToken,
		ExpiresAt:   time.Now().Add(s.ttl),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("service/session: creating session for user %s: %w", user.ID, err)
	}

	s.logger.Info("session issued",
		slog.String("sessionID", session.ID),
		slog.String("userID", user.ID),
	)
	return session, nil
}

// ResolveSession decodes a session id back into a full identity.
//
// Failure modes all destroy the session and return an error the
// middleware maps to 401: unknown id, expired entry, or a user id that no
// longer resolves (deleted account). The returned identity is always the
// complete {user, accessToken} pair.
func (s *SessionService) ResolveSession(ctx context.Context, sessionID string) (*model.Identity, error) {
	if sessionID == "" {
		return nil, apperror.Unauthorized("missing session")
	}

	session, err := s.sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("unknown session")
		}
		return nil, fmt.Errorf("service/session: loading session: %w", err)
	}

	if session.Expired(time.Now()) {
		if err := s.sessions.DeleteSession(ctx, session.ID); err != nil {
			s.logger.Error("failed to delete expired session",
				slog.String("sessionID", session.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Unauthorized("session expired")
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// The account behind the session is gone — terminate the
			// session instead of proceeding with a partial identity.
			if derr := s.sessions.DeleteSession(ctx, session.ID); derr != nil {
				s.logger.Error("failed to delete orphaned session",
					slog.String("sessionID", session.ID),
					slog.String("error", derr.Error()),
				)
			}
			return nil, apperror.NotFound("user", session.UserID)
		}
		return nil, fmt.Errorf("service/session: rehydrating user %s: %w", session.UserID, err)
	}

	return &model.Identity{User: user, AccessToken: session.AccessToken}, nil
}

// ResolveToken validates a bearer JWT and rehydrates the user it names.
// Bearer identities carry no OAuth access token.
func (s *SessionService) ResolveToken(ctx context.Context, token string) (*model.Identity, error) {
	if s.tokens == nil {
		return nil, apperror.Unauthorized("bearer tokens are not enabled")
	}

	userID, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthorized("invalid token")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("user", userID)
		}
		return nil, fmt.Errorf("service/session: rehydrating user %s: %w", userID, err)
	}

	return &model.Identity{User: user}, nil
}

// Destroy removes a session (logout). Destroying an unknown session is
// fine — logout is idempotent.
func (s *SessionService) Destroy(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("service/session: destroying session: %w", err)
	}
	s.logger.Info("session destroyed", slog.String("sessionID", sessionID))
	return nil
}

// BearerToken issues a JWT for the given user, for API clients that can't
// hold the session cookie. Returns "" when tokens are disabled.
func (s *SessionService) BearerToken(user *model.User) (string, error) {
	if s.tokens == nil {
		return "", nil
	}
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", fmt.Errorf("service/session: generating token for user %s: %w", user.ID, err)
	}
	return token, nil
}

// PurgeExpired deletes expired sessions. The server runs this
// periodically so abandoned sessions don't accumulate forever.
func (s *SessionService) PurgeExpired(ctx context.Context) error {
	deleted, err := s.sessions.DeleteExpiredSessions(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("service/session: purging expired sessions: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("expired sessions purged", slog.Int64("count", deleted))
	}
	return nil
}
