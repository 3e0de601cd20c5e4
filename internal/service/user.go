package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/creationgoals/server/internal/apperror"
	"github.com/creationgoals/server/internal/model"
	"github.com/creationgoals/server/internal/repository"
)

// UserService handles the user admin operations: listing, lookup,
// profile updates, and hard deletes. Registration lives on AuthService
// because it shares the reconciliation flow.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

// List returns all users sorted by last name.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// GetByID returns the user with the given internal ID.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetUserByID(ctx, id)
}

// UpdateInput is the field set accepted by a profile update. nil means
// "leave unchanged" — the same non-destructive convention the identity
// reconciler uses, so a partial update never blanks unrelated fields.
type UpdateInput struct {
	Email       *string `json:"email"`
	DisplayName *string `json:"displayName"`
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Image       *string `json:"image"`
	Bio         *string `json:"bio"`
	Location    *string `json:"location"`
	Company     *string `json:"company"`
	Website     *string `json:"website"`
}

// Update applies the provided fields to an existing user. Only the owner
// may edit their profile.
func (s *UserService) Update(ctx context.Context, viewerID, id string, in UpdateInput) (*model.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	if viewerID != id {
		return nil, apperror.Forbidden("only the account owner can edit this profile")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, apperror.ValidationFailed("email", "email cannot be empty")
		}
		user.Email = email
	}
	if in.DisplayName != nil {
		user.DisplayName = *in.DisplayName
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Image != nil {
		user.Image = *in.Image
	}
	if in.Bio != nil {
		user.Bio = in.Bio
	}
	if in.Location != nil {
		user.Location = in.Location
	}
	if in.Company != nil {
		user.Company = in.Company
	}
	if in.Website != nil {
		user.Website = in.Website
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		s.logger.Error("failed to update user",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating user: %w", err)
	}

	s.logger.Info("user updated", slog.String("id", user.ID))
	return user, nil
}

// Delete hard-deletes a user and, through the schema's cascades, their
// goals and sessions. There is no soft delete.
func (s *UserService) Delete(ctx context.Context, viewerID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "user ID is required")
	}
	if viewerID != id {
		return apperror.Forbidden("only the account owner can delete this account")
	}

	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted", slog.String("id", id))
	return nil
}
