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

// compile-time check that *DB implements repository.GoalRepository
var _ repository.GoalRepository = (*DB)(nil)

const goalColumns = `id, user_id, creation_number, creation_date,
	goal, motivator, desire, belief, knowledge, plan, action, victory,
	status, created_at, updated_at`

// Create inserts a new goal. The service has already assigned the
// creation number; if a concurrent insert claimed it between the
// assigner's re-check and this write, the (user_id, creation_number)
// unique index fires and we report ErrConflict instead of storing a
// duplicate number.
func (db *DB) Create(ctx context.Context, goal *model.CreationGoal) error {
	goal.ID = xid.New().String()

	now := time.Now()
	goal.CreatedAt = now
	goal.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO creation_goals (`+goalColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		goal.ID,
		goal.UserID,
		goal.CreationNumber,
		goal.CreationDate,
		goal.Goal,
		goal.Motivator,
		goal.Desire,
		goal.Belief,
		goal.Knowledge,
		goal.Plan,
		goal.Action,
		goal.Victory,
		goal.Status,
		goal.CreatedAt,
		goal.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("creation goal",
				fmt.Sprintf("number %d for user %s", goal.CreationNumber, goal.UserID))
		}
		return fmt.Errorf("sqlite: creating goal: %w", err)
	}

	return nil
}

// GetByID retrieves a single goal by its ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.CreationGoal, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM creation_goals WHERE id = ?`, id)

	goal, err := scanGoal(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("creation goal", id)
		}
		return nil, fmt.Errorf("sqlite: getting goal %s: %w", id, err)
	}
	return goal, nil
}

// ListByUser returns a user's goals ordered by creation number.
func (db *DB) ListByUser(ctx context.Context, userID string, publicOnly bool) ([]model.CreationGoal, error) {
	query := `SELECT ` + goalColumns + ` FROM creation_goals WHERE user_id = ?`
	args := []any{userID}
	if publicOnly {
		query += ` AND status = ?`
		args = append(args, model.StatusPublic)
	}
	query += ` ORDER BY creation_number ASC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing goals for user %s: %w", userID, err)
	}
	return collectGoals(rows)
}

// ListPublic returns every goal with Public status, newest first.
func (db *DB) ListPublic(ctx context.Context) ([]model.CreationGoal, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM creation_goals
		 WHERE status = ? ORDER BY created_at DESC`,
		model.StatusPublic,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing public goals: %w", err)
	}
	return collectGoals(rows)
}

// SearchPublic returns Public goals whose goal text contains the term,
// newest first. SQLite's LIKE is case-insensitive for ASCII, which
// matches how the search is meant to behave.
func (db *DB) SearchPublic(ctx context.Context, term string) ([]model.CreationGoal, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM creation_goals
		 WHERE status = ? AND goal LIKE ? ESCAPE '\'
		 ORDER BY created_at DESC`,
		model.StatusPublic,
		"%"+escapeLike(term)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching public goals: %w", err)
	}
	return collectGoals(rows)
}

// escapeLike neutralizes LIKE wildcards in a user-supplied search term
// so the term matches literally.
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

// collectGoals drains and closes a goal result set.
func collectGoals(rows *sql.Rows) ([]model.CreationGoal, error) {
	defer rows.Close()

	var goals []model.CreationGoal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning goal row: %w", err)
		}
		goals = append(goals, *goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating goals: %w", err)
	}

	return goals, nil
}

// Numbers returns the user's creation numbers in ascending order.
func (db *DB) Numbers(ctx context.Context, userID string) ([]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT creation_number FROM creation_goals
		 WHERE user_id = ? ORDER BY creation_number ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing creation numbers for user %s: %w", userID, err)
	}
	defer rows.Close()

	var numbers []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("sqlite: scanning creation number: %w", err)
		}
		numbers = append(numbers, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating creation numbers: %w", err)
	}

	return numbers, nil
}

// NumberExists reports whether the user already has a goal with the given
// creation number.
func (db *DB) NumberExists(ctx context.Context, userID string, number int) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM creation_goals WHERE user_id = ? AND creation_number = ?`,
		userID, number,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking creation number %d for user %s: %w", number, userID, err)
	}
	return count > 0, nil
}

// Update modifies an existing goal. The creation number and owner are
// immutable and not part of the SET list.
func (db *DB) Update(ctx context.Context, goal *model.CreationGoal) error {
	goal.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE creation_goals
		 SET creation_date = ?, goal = ?, motivator = ?, desire = ?,
		     belief = ?, knowledge = ?, plan = ?, action = ?, victory = ?,
		     status = ?, updated_at = ?
		 WHERE id = ?`,
		goal.CreationDate,
		goal.Goal,
		goal.Motivator,
		goal.Desire,
		goal.Belief,
		goal.Knowledge,
		goal.Plan,
		goal.Action,
		goal.Victory,
		goal.Status,
		goal.UpdatedAt,
		goal.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating goal %s: %w", goal.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("creation goal", goal.ID)
	}

	return nil
}

// Delete removes a goal. Its creation number becomes a gap that a later
// insert for the same user will fill.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM creation_goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting goal %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("creation goal", id)
	}

	return nil
}

func scanGoal(s scanner) (*model.CreationGoal, error) {
	var g model.CreationGoal
	err := s.Scan(
		&g.ID,
		&g.UserID,
		&g.CreationNumber,
		&g.CreationDate,
		&g.Goal,
		&g.Motivator,
		&g.Desire,
		&g.Belief,
		&g.Knowledge,
		&g.Plan,
		&g.Action,
		&g.Victory,
		&g.Status,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
