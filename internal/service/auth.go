// Package service contains the business logic layer of the application.
//
// The layering follows the usual three-layer shape:
//
//	Handler (HTTP)     → parses requests, writes responses
//	Service (business) → validates, enforces rules, orchestrates
//	Repository (data)  → reads/writes the database
//
// Services receive repository interfaces, never concrete sqlite types, so
// tests swap in fakes and the services stay protocol-agnostic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/creationgoals/server/internal/apperror"
	"github.com/creationgoals/server/internal/auth"
	"github.com/creationgoals/server/internal/model"
	"github.com/creationgoals/server/internal/repository"
)

// AuthService reconciles incoming identities — OAuth profiles and local
// credentials — onto user records.
//
// The reconciliation rule, shared by every credential source:
//
//  1. Look up an existing user by email (case-insensitive exact match).
//  2. If found, merge every field the incoming identity actually supplied
//     over the stored record. A field the source didn't supply (nil)
//     never erases existing data; a supplied field always overwrites,
//     even when it's empty.
//  3. If not found, create a new record from the supplied fields with the
//     profile defaults filling the rest.
//
// This is how one account accumulates googleId, githubId and a password
// over time instead of splitting into three.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// mergeField pairs one optional incoming value with the assignment that
// writes it into a user record. Reconciliation iterates a table of these
// instead of branching per provider — Google, GitHub and local
// registration all merge through the same list.
type mergeField struct {
	value *string
	apply func(u *model.User, v string)
}

func profileFields(p *auth.Profile) []mergeField {
	return []mergeField{
		{p.GoogleID, func(u *model.User, v string) { u.GoogleID = &v }},
		{p.GitHubID, func(u *model.User, v string) { u.GitHubID = &v }},
		{p.DisplayName, func(u *model.User, v string) { u.DisplayName = v }},
		{p.FirstName, func(u *model.User, v string) { u.FirstName = v }},
		{p.LastName, func(u *model.User, v string) { u.LastName = v }},
		{p.Image, func(u *model.User, v string) { u.Image = v }},
		{p.Bio, func(u *model.User, v string) { u.Bio = &v }},
		{p.Location, func(u *model.User, v string) { u.Location = &v }},
		{p.Company, func(u *model.User, v string) { u.Company = &v }},
		{p.Website, func(u *model.User, v string) { u.Website = &v }},
	}
}

// Reconcile maps an OAuth profile to exactly one user record: merge onto
// the existing user with that email, or create a fresh one. Returns the
// persisted user and whether it was newly created.
//
// A profile with an empty email can never match an existing account, so
// it always creates a new record (GitHub allows hidden emails; Google
// profiles are guaranteed an email by the provider before we get here).
func (s *AuthService) Reconcile(ctx context.Context, p *auth.Profile) (*model.User, bool, error) {
	if p == nil {
		return nil, false, fmt.Errorf("service/auth: profile must not be nil")
	}

	var user *model.User
	if p.Email != "" {
		existing, err := s.users.GetUserByEmail(ctx, p.Email)
		switch {
		case err == nil:
			user = existing
		case errors.Is(err, apperror.ErrNotFound):
			// fall through to create
		default:
			return nil, false, fmt.Errorf("service/auth: looking up user by email: %w", err)
		}
	}

	if user != nil {
		for _, f := range profileFields(p) {
			if f.value != nil {
				f.apply(user, *f.value)
			}
		}
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return nil, false, fmt.Errorf("service/auth: merging %s profile into user %s: %w", p.Provider, user.ID, err)
		}

		s.logger.Info("identity merged into existing user",
			slog.String("provider", p.Provider),
			slog.String("userID", user.ID),
		)
		return user, false, nil
	}

	// New user: profile defaults first, supplied fields over them.
	user = &model.User{
		Email:       p.Email,
		DisplayName: model.DefaultDisplayName,
		FirstName:   model.DefaultFirstName,
		LastName:    model.DefaultLastName,
		Image:       model.DefaultImage,
	}
	for _, f := range profileFields(p) {
		if f.value != nil {
			f.apply(user, *f.value)
		}
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("service/auth: creating user from %s profile: %w", p.Provider, err)
	}

	s.logger.Info("user created from identity profile",
		slog.String("provider", p.Provider),
		slog.String("userID", user.ID),
	)
	return user, true, nil
}

// LoginLocal validates an email/password pair against the stored hash.
//
// All three failure modes — unknown email, OAuth-only account without a
// password, wrong password — return the same ErrInvalidCredentials soft
// failure. The handler turns it into a login-page message, never a 500,
// and the uniform error keeps the response from leaking which accounts
// exist.
func (s *AuthService) LoginLocal(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user for login: %w", err)
	}

	if !user.HasPassword() {
		return nil, apperror.InvalidCredentials()
	}

	if err := s.passwords.Verify(*user.PasswordHash, password); err != nil {
		return nil, apperror.InvalidCredentials()
	}

	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("method", "local"),
	)
	return user, nil
}

// RegisterInput is the field set accepted by local registration. Optional
// fields follow the same nil-means-absent convention as auth.Profile.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName *string
	FirstName   *string
	LastName    *string
	Image       *string
	Bio         *string
	Location    *string
	Company     *string
	Website     *string
}

// Register creates (or, when the email already exists, enriches) a user
// from a registration form. It runs through the same Reconcile merge as
// the OAuth strategies: registering with the email of an existing OAuth
// account attaches the password to that account.
//
// Returns the user and whether a new record was created, so the handler
// can answer 201 vs 200.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, bool, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" {
		return nil, false, apperror.ValidationFailed("email", "email is required")
	}

	p := &auth.Profile{
		Provider:    "local",
		Email:       in.Email,
		DisplayName: in.DisplayName,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Image:       in.Image,
		Bio:         in.Bio,
		Location:    in.Location,
		Company:     in.Company,
		Website:     in.Website,
	}

	user, created, err := s.Reconcile(ctx, p)
	if err != nil {
		return nil, false, err
	}

	// Hash and attach the password after the merge: Reconcile has no
	// notion of credentials, and an empty password means an OAuth-style
	// profile-only registration that leaves any existing hash alone.
	if in.Password != "" {
		hash, err := s.passwords.Hash(in.Password)
		if err != nil {
			return nil, false, fmt.Errorf("service/auth: hashing password: %w", err)
		}
		user.PasswordHash = &hash
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return nil, false, fmt.Errorf("service/auth: storing password for user %s: %w", user.ID, err)
		}
	}

	return user, created, nil
}
