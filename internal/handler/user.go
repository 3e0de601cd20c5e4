package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/creationgoals/server/internal/service"
)

// UserHandler manages the user admin endpoints. Registration lives on
// AuthHandler since it's part of the credential flow.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleList returns all users, sorted by last name.
//
// HTTP: GET /api/users
// Auth: required.
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// HandleGetByID returns one user's profile.
//
// HTTP: GET /api/users/{id}
// Auth: required.
func (h *UserHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleUpdate applies a partial profile update. Fields absent from the
// body are left unchanged; only the account owner may edit.
//
// HTTP: PUT /api/users/{id}
// Auth: required.
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Warn("invalid user JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	user, err := h.users.Update(r.Context(), viewerID(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleDelete hard-deletes an account with its goals and sessions.
//
// HTTP: DELETE /api/users/{id}
// Auth: required; owner only.
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), viewerID(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
