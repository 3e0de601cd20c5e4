package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/creationgoals/server/internal/apperror"
	"github.com/creationgoals/server/internal/model"
	"github.com/creationgoals/server/internal/repository"
)

// compile-time check that *DB implements repository.SessionRepository
var _ repository.SessionRepository = (*DB)(nil)

// CreateSession inserts a new session. The caller sets UserID, AccessToken and
// ExpiresAt; the opaque session id is generated here.
func (db *DB) CreateSession(ctx context.Context, session *model.Session) error {
	session.ID = xid.New().String()
	session.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, access_token, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.AccessToken,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating session for user %s: %w", session.UserID, err)
	}

	return nil
}

// GetSessionByID retrieves a session by its id. Expiry is the codec's concern —
// this returns expired rows too, so the caller can destroy them.
func (db *DB) GetSessionByID(ctx context.Context, id string) (*model.Session, error) {
	var s model.Session
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, access_token, created_at, expires_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.UserID, &s.AccessToken, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlite: getting session %s: %w", id, err)
	}

	return &s, nil
}

// DeleteSession removes a session (logout, expiry, or orphaned user). Deleting a
// session that's already gone is not an error — logout must be idempotent.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting session %s: %w", id, err)
	}
	return nil
}

// DeleteExpiredSessions removes all sessions past their expiry time.
func (db *DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting expired sessions: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return deleted, nil
}
