package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/creationgoals/server/internal/apperror"
	"github.com/creationgoals/server/internal/model"
)

// testLogger discards everything below Error so test output stays clean.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// =========================================================================
// MOCK USER REPOSITORY
// =========================================================================
//
// In-memory stand-in for the sqlite implementation. Stores copies, not
// pointers, so a test can't accidentally mutate the "database" through a
// value it got back earlier.

type mockUserRepo struct {
	users  map[string]*model.User
	nextID int

	// failNext, when set, makes the next call return this error.
	failNext error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) takeErr() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if err := m.takeErr(); err != nil {
		return err
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return apperror.Conflict("user", user.Email)
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if err := m.takeErr(); err != nil {
		return nil, err
	}
	user, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *user
	return &result, nil
}

// GetUserByEmail matches case-insensitively, like the NOCASE column.
func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if err := m.takeErr(); err != nil {
		return nil, err
	}
	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			result := *user
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) ListUsers(_ context.Context) ([]model.User, error) {
	if err := m.takeErr(); err != nil {
		return nil, err
	}
	result := make([]model.User, 0, len(m.users))
	for _, user := range m.users {
		result = append(result, *user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].LastName < result[j].LastName })
	return result, nil
}

func (m *mockUserRepo) UpdateUser(_ context.Context, user *model.User) error {
	if err := m.takeErr(); err != nil {
		return err
	}
	if _, ok := m.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	user.UpdatedAt = time.Now()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) DeleteUser(_ context.Context, id string) error {
	if err := m.takeErr(); err != nil {
		return err
	}
	if _, ok := m.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(m.users, id)
	return nil
}

// =========================================================================
// MOCK GOAL REPOSITORY
// =========================================================================

type mockGoalRepo struct {
	goals  map[string]*model.CreationGoal
	nextID int

	// createHook runs before each Create — tests use it to simulate a
	// concurrent writer grabbing numbers between the scan and the insert.
	createHook func()
}

func newMockGoalRepo() *mockGoalRepo {
	return &mockGoalRepo{goals: make(map[string]*model.CreationGoal)}
}

func (m *mockGoalRepo) Create(_ context.Context, goal *model.CreationGoal) error {
	if m.createHook != nil {
		m.createHook()
	}
	for _, existing := range m.goals {
		if existing.UserID == goal.UserID && existing.CreationNumber == goal.CreationNumber {
			return apperror.Conflict("creation goal", fmt.Sprintf("number %d", goal.CreationNumber))
		}
	}
	m.nextID++
	goal.ID = fmt.Sprintf("goal-%d", m.nextID)
	goal.CreatedAt = time.Now()
	goal.UpdatedAt = goal.CreatedAt
	stored := *goal
	m.goals[goal.ID] = &stored
	return nil
}

func (m *mockGoalRepo) GetByID(_ context.Context, id string) (*model.CreationGoal, error) {
	goal, ok := m.goals[id]
	if !ok {
		return nil, apperror.NotFound("creation goal", id)
	}
	result := *goal
	return &result, nil
}

func (m *mockGoalRepo) ListByUser(_ context.Context, userID string, publicOnly bool) ([]model.CreationGoal, error) {
	var result []model.CreationGoal
	for _, goal := range m.goals {
		if goal.UserID != userID {
			continue
		}
		if publicOnly && goal.Status != model.StatusPublic {
			continue
		}
		result = append(result, *goal)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreationNumber < result[j].CreationNumber })
	return result, nil
}

func (m *mockGoalRepo) ListPublic(_ context.Context) ([]model.CreationGoal, error) {
	var result []model.CreationGoal
	for _, goal := range m.goals {
		if goal.Status == model.StatusPublic {
			result = append(result, *goal)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockGoalRepo) SearchPublic(_ context.Context, term string) ([]model.CreationGoal, error) {
	var result []model.CreationGoal
	for _, goal := range m.goals {
		if goal.Status != model.StatusPublic {
			continue
		}
		if !strings.Contains(strings.ToLower(goal.Goal), strings.ToLower(term)) {
			continue
		}
		result = append(result, *goal)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockGoalRepo) Numbers(_ context.Context, userID string) ([]int, error) {
	var numbers []int
	for _, goal := range m.goals {
		if goal.UserID == userID {
			numbers = append(numbers, goal.CreationNumber)
		}
	}
	sort.Ints(numbers)
	return numbers, nil
}

func (m *mockGoalRepo) NumberExists(_ context.Context, userID string, number int) (bool, error) {
	for _, goal := range m.goals {
		if goal.UserID == userID && goal.CreationNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockGoalRepo) Update(_ context.Context, goal *model.CreationGoal) error {
	if _, ok := m.goals[goal.ID]; !ok {
		return apperror.NotFound("creation goal", goal.ID)
	}
	goal.UpdatedAt = time.Now()
	stored := *goal
	m.goals[goal.ID] = &stored
	return nil
}

func (m *mockGoalRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.goals[id]; !ok {
		return apperror.NotFound("creation goal", id)
	}
	delete(m.goals, id)
	return nil
}

// seed inserts a goal directly, bypassing number assignment.
func (m *mockGoalRepo) seed(userID string, number int, status string) *model.CreationGoal {
	m.nextID++
	goal := &model.CreationGoal{
		ID:             fmt.Sprintf("goal-%d", m.nextID),
		UserID:         userID,
		CreationNumber: number,
		Goal:           fmt.Sprintf("goal %d", number),
		Motivator:      "m", Desire: "d", Belief: "b", Knowledge: "k",
		Plan: "p", Action: "a", Victory: "v",
		Status: status,
	}
	m.goals[goal.ID] = goal
	return goal
}

// =========================================================================
// MOCK SESSION REPOSITORY
// =========================================================================

type mockSessionRepo struct {
	sessions map[string]*model.Session
	nextID   int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.Session)}
}

func (m *mockSessionRepo) CreateSession(_ context.Context, session *model.Session) error {
	m.nextID++
	session.ID = fmt.Sprintf("session-%d", m.nextID)
	session.CreatedAt = time.Now()
	stored := *session
	m.sessions[session.ID] = &stored
	return nil
}

func (m *mockSessionRepo) GetSessionByID(_ context.Context, id string) (*model.Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	result := *session
	return &result, nil
}

func (m *mockSessionRepo) DeleteSession(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	var deleted int64
	for id, session := range m.sessions {
		if session.Expired(now) {
			delete(m.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}
