package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/marmos91/filedeck/internal/logger"
	"github.com/marmos91/filedeck/pkg/pathguard"
	"github.com/marmos91/filedeck/pkg/registry"
)

// UserSource lists and registers users. *registry.Registry implements it.
type UserSource interface {
	Usernames() []string
	Add(ctx context.Context, u registry.User) error
}

// UserHandler serves the user registry. Passwords are never exposed.
type UserHandler struct {
	users UserSource
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users UserSource) *UserHandler {
	return &UserHandler{users: users}
}

// UserList is the body of GET /api/v1/users.
type UserList struct {
	Count     int      `json:"count"`
	Usernames []string `json:"usernames"`
}

// CreateUserRequest is the body of POST /api/v1/users.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreatedUser is the data returned by POST /api/v1/users.
type CreatedUser struct {
	Username string `json:"username"`
}

// List handles GET /api/v1/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	names := h.users.Usernames()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, okResponse(UserList{Count: len(names), Usernames: names}))
}

// Create handles POST /api/v1/users. The user is added to the live
// registry, which persists the full set, so a running server and its
// store never disagree.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := pathguard.ValidName(req.Username); err != nil {
		BadRequest(w, "Invalid username: "+err.Error())
		return
	}
	if req.Password == "" {
		BadRequest(w, "Password is required")
		return
	}

	err := h.users.Add(r.Context(), registry.User{Username: req.Username, Password: req.Password})
	switch {
	case errors.Is(err, registry.ErrUserExists):
		Conflict(w, "User already exists")
		return
	case err != nil:
		logger.ErrorCtx(r.Context(), "Failed to add user", logger.KeyError, err)
		InternalServerError(w, "Failed to add user")
		return
	}

	logger.InfoCtx(r.Context(), "User added through admin API", logger.KeyUsername, req.Username)
	writeJSON(w, http.StatusCreated, okResponse(CreatedUser{Username: req.Username}))
}
