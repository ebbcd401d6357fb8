package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/filedeck/pkg/adapter/filedeck"
)

// SessionSource lists live sessions. *filedeck.Tracker implements it.
type SessionSource interface {
	List() []filedeck.SessionInfo
	Get(id string) (filedeck.SessionInfo, bool)
}

// SessionHandler exposes the live session table read-only.
type SessionHandler struct {
	sessions SessionSource
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions SessionSource) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// SessionList is the body of GET /api/v1/sessions.
type SessionList struct {
	Count         int                    `json:"count"`
	Authenticated int                    `json:"authenticated"`
	Sessions      []filedeck.SessionInfo `json:"sessions"`
}

// List handles GET /api/v1/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.sessions.List()
	if list == nil {
		list = []filedeck.SessionInfo{}
	}

	authenticated := 0
	for _, s := range list {
		if s.Authenticated {
			authenticated++
		}
	}

	writeJSON(w, http.StatusOK, okResponse(SessionList{
		Count:         len(list),
		Authenticated: authenticated,
		Sessions:      list,
	}))
}

// Get handles GET /api/v1/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, ok := h.sessions.Get(id)
	if !ok {
		NotFound(w, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, okResponse(info))
}
