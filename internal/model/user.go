// Package model defines the data structures used throughout the application.
package model

import "time"

// Default profile values applied when a registration or OAuth profile
// doesn't supply them. These match what the account screens expect to
// always be able to render.
const (
	DefaultDisplayName = "CreationGoal User"
	DefaultFirstName   = "CreationGoal"
	DefaultLastName    = "User"
	DefaultImage       = "https://ibb.co/jTH610t"
)

// User represents a registered user account.
//
// A user can authenticate three ways — local email/password, Google, or
// GitHub — and one record may accumulate identifiers from several of them
// over time: logging in via GitHub with the same email as an existing
// local account attaches the GitHub identity to that account rather than
// creating a second one. Email is the join key and is unique
// case-insensitively.
//
// WHY *string FOR SOME FIELDS?
// Provider ids, the password hash, and the extended profile fields
// (bio/location/company/website) are nullable: nil means "this user has
// never supplied that value", which is a different thing from an empty
// string. The reconciler relies on that distinction — an incoming nil
// never overwrites stored data, while an incoming value (even "") does.
type User struct {
	ID           string    `json:"id"          db:"id"`
	GoogleID     *string   `json:"googleId"    db:"google_id"`
	GitHubID     *string   `json:"githubId"    db:"github_id"`
	Email        string    `json:"email"       db:"email"`
	PasswordHash *string   `json:"-"           db:"password_hash"` // never serialized
	DisplayName  string    `json:"displayName" db:"display_name"`
	FirstName    string    `json:"firstName"   db:"first_name"`
	LastName     string    `json:"lastName"    db:"last_name"`
	Image        string    `json:"image"       db:"image"`
	Bio          *string   `json:"bio"         db:"bio"`
	Location     *string   `json:"location"    db:"location"`
	Company      *string   `json:"company"     db:"company"`
	Website      *string   `json:"website"     db:"website"`
	CreatedAt    time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"   db:"updated_at"`
}

// HasPassword reports whether local login is possible for this account.
// OAuth-only accounts have no password hash.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Identity is the request-scoped authenticated identity: the rehydrated
// user record plus the OAuth access token captured at login (empty for
// local logins). Middleware unwraps the session into an Identity once;
// downstream code never re-derives the pair per request.
type Identity struct {
	User        *User
	AccessToken string
}
