package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/creationgoals/server/internal/auth"
	"github.com/creationgoals/server/internal/service"
)

// GoalHandler manages CRUD operations for creation goals.
type GoalHandler struct {
	goals  *service.GoalService
	logger *slog.Logger
}

// NewGoalHandler creates a GoalHandler.
func NewGoalHandler(goals *service.GoalService, logger *slog.Logger) *GoalHandler {
	return &GoalHandler{goals: goals, logger: logger}
}

// viewerID returns the authenticated user's id, or "" for anonymous
// requests (routes behind OptionalAuth).
func viewerID(r *http.Request) string {
	if ident, ok := auth.IdentityFromContext(r.Context()); ok {
		return ident.User.ID
	}
	return ""
}

// HandleCreate saves a new goal for the authenticated user. The creation
// number is assigned server-side — any number in the request body is
// ignored.
//
// HTTP: POST /api/goals
// Auth: required.
func (h *GoalHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.GoalInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Warn("invalid goal JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	goal, err := h.goals.Create(r.Context(), viewerID(r), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, goal)
}

// HandleCreateBatch saves several goals in one request, in input order.
//
// HTTP: POST /api/goals/batch
// Auth: required.
func (h *GoalHandler) HandleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var inputs []service.GoalInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		h.logger.Warn("invalid goal batch JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	goals, err := h.goals.CreateBatch(r.Context(), viewerID(r), inputs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, goals)
}

// HandleGetByID returns one goal. Private goals are only visible to their
// owner, so this sits behind OptionalAuth.
//
// HTTP: GET /api/goals/{id}
func (h *GoalHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	goal, err := h.goals.GetByID(r.Context(), viewerID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

// HandleListByUser returns a user's goals: all of them for the owner,
// Public only for anyone else.
//
// HTTP: GET /api/goals/user/{userId}
func (h *GoalHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goals.ListByUser(r.Context(), viewerID(r), r.PathValue("userId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, goals)
}

// HandleListPublic returns every Public goal across all users.
//
// HTTP: GET /api/goals
// Auth: required.
func (h *GoalHandler) HandleListPublic(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goals.ListPublic(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, goals)
}

// HandleSearchPublic returns Public goals whose goal text contains the
// search term.
//
// HTTP: GET /api/goals/search/{query}
// Auth: required.
func (h *GoalHandler) HandleSearchPublic(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goals.SearchPublic(r.Context(), r.PathValue("query"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, goals)
}

// HandleUpdate modifies a goal. Owner only.
//
// HTTP: PUT /api/goals/{id}
// Auth: required.
func (h *GoalHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.GoalInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Warn("invalid goal JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	goal, err := h.goals.Update(r.Context(), viewerID(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

// HandleDelete removes a goal. Owner only.
//
// HTTP: DELETE /api/goals/{id}
// Auth: required.
func (h *GoalHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.goals.Delete(r.Context(), viewerID(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
