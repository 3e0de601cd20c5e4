package model

import "time"

// Session is the server-side session entry. Only the user id and the
// OAuth access token are persisted — the full user record is rehydrated
// from the users table on every request, so a deleted account immediately
// invalidates its sessions.
type Session struct {
	ID          string    `json:"id"          db:"id"`
	UserID      string    `json:"userId"      db:"user_id"`
	AccessToken string    `json:"-"           db:"access_token"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	ExpiresAt   time.Time `json:"expiresAt"   db:"expires_at"`
}

// Expired reports whether the session has passed its expiry time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
