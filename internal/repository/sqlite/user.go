package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/creationgoals/server/internal/apperror"
	"github.com/creationgoals/server/internal/model"
	"github.com/creationgoals/server/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, google_id, github_id, email, password_hash,
	display_name, first_name, last_name, image,
	bio, location, company, website, created_at, updated_at`

// CreateUser inserts a new user. The ID and timestamps are generated here and
// written back into the caller's struct (pointer receiver pattern).
//
// A duplicate email violates the UNIQUE COLLATE NOCASE constraint and is
// reported as apperror.ErrConflict — the reconciler normally prevents
// this by looking up the email first, but two simultaneous first logins
// for the same address can still race into it.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.GoogleID,
		user.GitHubID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.FirstName,
		user.LastName,
		user.Image,
		user.Bio,
		user.Location,
		user.Company,
		user.Website,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively — the email
// column is declared COLLATE NOCASE, so plain equality already matches
// regardless of case.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email %s: %w", email, err)
	}
	return user, nil
}

// ListUsers returns all users sorted by last name ascending.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY last_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

// UpdateUser persists all mutable fields of the given user. The service layer
// decides which fields change; this writes the whole record.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET google_id = ?, github_id = ?, email = ?, password_hash = ?,
		     display_name = ?, first_name = ?, last_name = ?, image = ?,
		     bio = ?, location = ?, company = ?, website = ?, updated_at = ?
		 WHERE id = ?`,
		user.GoogleID,
		user.GitHubID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.FirstName,
		user.LastName,
		user.Image,
		user.Bio,
		user.Location,
		user.Company,
		user.Website,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}

	return nil
}

// DeleteUser removes a user. Their goals and sessions go with them
// (ON DELETE CASCADE).
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows, so scanUser serves
// single-row and multi-row queries alike.
type scanner interface {
	Scan(dest ...any) error
}

// scanUser reads one users row. Nullable columns scan into the struct's
// *string fields directly — database/sql leaves them nil for NULL.
func scanUser(s scanner) (*model.User, error) {
	var u model.User
	err := s.Scan(
		&u.ID,
		&u.GoogleID,
		&u.GitHubID,
		&u.Email,
		&u.PasswordHash,
		&u.DisplayName,
		&u.FirstName,
		&u.LastName,
		&u.Image,
		&u.Bio,
		&u.Location,
		&u.Company,
		&u.Website,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// isUniqueViolation detects a UNIQUE constraint failure. The pure-Go
// sqlite driver doesn't export a typed error for this, so we match on the
// stable message SQLite itself produces.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
