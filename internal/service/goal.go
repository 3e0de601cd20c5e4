package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/creationgoals/server/internal/apperror"
	"github.com/creationgoals/server/internal/model"
	"github.com/creationgoals/server/internal/repository"
)

// MaxFieldLength bounds each narrative field. Long enough for a few pages
// of prose, short enough to keep a hostile client from storing megabytes.
const MaxFieldLength = 10000

// creationDateFormats are tried in order when the client sends the
// creation date as a string. Anything unparseable falls back to "now".
var creationDateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// GoalService handles business logic for creation goals: validation,
// ownership rules, and the per-user sequential numbering.
type GoalService struct {
	repo   repository.GoalRepository
	logger *slog.Logger
}

// NewGoalService creates a GoalService.
func NewGoalService(repo repository.GoalRepository, logger *slog.Logger) *GoalService {
	return &GoalService{
		repo:   repo,
		logger: logger,
	}
}

// GoalInput is the field set accepted when creating or updating a goal.
// CreationDate is the client's string form; empty or unparseable values
// become the current time.
type GoalInput struct {
	CreationDate string `json:"creationDate"`
	Goal         string `json:"goal"`
	Motivator    string `json:"motivator"`
	Desire       string `json:"desire"`
	Belief       string `json:"belief"`
	Knowledge    string `json:"knowledge"`
	Plan         string `json:"plan"`
	Action       string `json:"action"`
	Victory      string `json:"victory"`
	Status       string `json:"status"`
}

// validate checks the required narrative fields and the status value.
func (in *GoalInput) validate() error {
	required := []struct {
		field, value string
	}{
		{"goal", in.Goal},
		{"motivator", in.Motivator},
		{"desire", in.Desire},
		{"belief", in.Belief},
		{"knowledge", in.Knowledge},
		{"plan", in.Plan},
		{"action", in.Action},
		{"victory", in.Victory},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperror.ValidationFailed(r.field, r.field+" is required")
		}
		if len(r.value) > MaxFieldLength {
			return apperror.ValidationFailed(r.field,
				fmt.Sprintf("%s must be %d characters or less", r.field, MaxFieldLength))
		}
	}

	if in.Status != "" && !model.ValidStatus(in.Status) {
		return apperror.ValidationFailed("status",
			fmt.Sprintf("status must be %q or %q", model.StatusPublic, model.StatusPrivate))
	}
	return nil
}

// Create validates and saves a new goal for the given owner, assigning
// the next creation number.
func (s *GoalService) Create(ctx context.Context, ownerID string, in GoalInput) (*model.CreationGoal, error) {
	if ownerID == "" {
		return nil, apperror.ValidationFailed("user", "a creation goal needs an owner")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	number, err := s.nextCreationNumber(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = model.StatusPrivate
	}

	goal := &model.CreationGoal{
		UserID:         ownerID,
		CreationNumber: number,
		CreationDate:   parseCreationDate(in.CreationDate),
		Goal:           in.Goal,
		Motivator:      in.Motivator,
		Desire:         in.Desire,
		Belief:         in.Belief,
		Knowledge:      in.Knowledge,
		Plan:           in.Plan,
		Action:         in.Action,
		Victory:        in.Victory,
		Status:         status,
	}

	if err := s.repo.Create(ctx, goal); err != nil {
		s.logger.Error("failed to create goal",
			slog.String("userID", ownerID),
			slog.Int("creationNumber", number),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating goal: %w", err)
	}

	s.logger.Info("goal created",
		slog.String("id", goal.ID),
		slog.String("userID", ownerID),
		slog.Int("creationNumber", goal.CreationNumber),
	)
	return goal, nil
}

// CreateBatch creates several goals for one owner in input order. Numbers
// are assigned one at a time, so the batch fills gaps before extending
// the sequence. Fails on the first invalid entry; earlier entries stay
// created (no multi-record transaction, matching single creates).
func (s *GoalService) CreateBatch(ctx context.Context, ownerID string, inputs []GoalInput) ([]model.CreationGoal, error) {
	if len(inputs) == 0 {
		return nil, apperror.ValidationFailed("goals", "at least one goal is required")
	}

	goals := make([]model.CreationGoal, 0, len(inputs))
	for _, in := range inputs {
		goal, err := s.Create(ctx, ownerID, in)
		if err != nil {
			return goals, err
		}
		goals = append(goals, *goal)
	}
	return goals, nil
}

// nextCreationNumber computes the smallest unused creation number for the
// user: scan the ascending existing numbers for the first gap starting at
// 1, then defensively re-check the candidate against the store,
// incrementing past any number that appeared since the scan.
//
// The re-check loop is best-effort, not a concurrency guarantee: two
// simultaneous creates can both pass it and try to insert the same
// number. The unique (user_id, creation_number) index catches that case
// as a conflict — the window is narrowed here, not eliminated.
func (s *GoalService) nextCreationNumber(ctx context.Context, ownerID string) (int, error) {
	numbers, err := s.repo.Numbers(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("listing creation numbers: %w", err)
	}

	// First gap in the ascending sequence, or one past the end if dense.
	candidate := 1
	for _, n := range numbers {
		if n != candidate {
			break
		}
		candidate++
	}

	for {
		exists, err := s.repo.NumberExists(ctx, ownerID, candidate)
		if err != nil {
			return 0, fmt.Errorf("re-checking creation number %d: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate++
	}
}

// GetByID retrieves a goal. Private goals are visible only to their
// owner; viewerID is "" for anonymous requests.
func (s *GoalService) GetByID(ctx context.Context, viewerID, id string) (*model.CreationGoal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "goal ID is required")
	}

	goal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if goal.Status == model.StatusPrivate && goal.UserID != viewerID {
		// Hide the existence of other users' private goals.
		return nil, apperror.NotFound("creation goal", id)
	}

	return goal, nil
}

// ListByUser returns a user's goals. The owner sees everything; everyone
// else sees only Public goals.
func (s *GoalService) ListByUser(ctx context.Context, viewerID, userID string) ([]model.CreationGoal, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}

	goals, err := s.repo.ListByUser(ctx, userID, viewerID != userID)
	if err != nil {
		s.logger.Error("failed to list goals",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	return goals, nil
}

// ListPublic returns every Public goal across all users, newest first.
func (s *GoalService) ListPublic(ctx context.Context) ([]model.CreationGoal, error) {
	goals, err := s.repo.ListPublic(ctx)
	if err != nil {
		s.logger.Error("failed to list public goals",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing public goals: %w", err)
	}
	return goals, nil
}

// SearchPublic returns Public goals whose goal text contains the term.
func (s *GoalService) SearchPublic(ctx context.Context, term string) ([]model.CreationGoal, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperror.ValidationFailed("query", "search term is required")
	}

	goals, err := s.repo.SearchPublic(ctx, term)
	if err != nil {
		s.logger.Error("failed to search public goals",
			slog.String("term", term),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("searching public goals: %w", err)
	}
	return goals, nil
}

// Update modifies an existing goal. Owner only; the creation number is
// immutable and the owner never changes.
func (s *GoalService) Update(ctx context.Context, viewerID, id string, in GoalInput) (*model.CreationGoal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "goal ID is required")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	goal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if goal.UserID != viewerID {
		return nil, apperror.Forbidden("only the owner can modify a creation goal")
	}

	if in.CreationDate != "" {
		goal.CreationDate = parseCreationDate(in.CreationDate)
	}
	goal.Goal = in.Goal
	goal.Motivator = in.Motivator
	goal.Desire = in.Desire
	goal.Belief = in.Belief
	goal.Knowledge = in.Knowledge
	goal.Plan = in.Plan
	goal.Action = in.Action
	goal.Victory = in.Victory
	if in.Status != "" {
		goal.Status = in.Status
	}

	if err := s.repo.Update(ctx, goal); err != nil {
		s.logger.Error("failed to update goal",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating goal: %w", err)
	}

	s.logger.Info("goal updated", slog.String("id", goal.ID))
	return goal, nil
}

// Delete removes a goal. Owner only. The freed creation number becomes a
// gap that the owner's next create fills.
func (s *GoalService) Delete(ctx context.Context, viewerID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "goal ID is required")
	}

	goal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if goal.UserID != viewerID {
		return apperror.Forbidden("only the owner can delete a creation goal")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("goal deleted",
		slog.String("id", id),
		slog.Int("creationNumber", goal.CreationNumber),
	)
	return nil
}

// parseCreationDate converts the client's date string to a time value.
// Empty or unparseable input yields the current time.
func parseCreationDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now()
	}
	for _, layout := range creationDateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Now()
}
