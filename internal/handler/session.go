package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cafepos/terminal/internal/model"
	"github.com/cafepos/terminal/internal/state"
	"github.com/cafepos/terminal/internal/ws"
)

// SessionManager defines the cash session operations used by the handler.
type SessionManager interface {
	Open(ctx context.Context) (model.Session, error)
	Close(ctx context.Context) (*model.Session, error)
	Refresh(ctx context.Context) (*model.Session, error)
}

// Broadcaster pushes events to the operator's screens.
type Broadcaster interface {
	BroadcastToOperator(operatorID uuid.UUID, event ws.Event)
}

// SessionHandler opens, closes and reports the cash session.
type SessionHandler struct {
	sessions SessionManager
	state    *state.AppState
	events   Broadcaster
	logger   *zap.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions SessionManager, st *state.AppState, events Broadcaster, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, state: st, events: events, logger: logger}
}

// RegisterRoutes registers session endpoints.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.Current)
		r.Post("/open", h.Open)
		r.Post("/close", h.Close)
	})
}

type sessionStateResponse struct {
	Active  bool             `json:"active"`
	Session *sessionResponse `json:"session,omitempty"`
}

// Current handles GET /session. The backend is asked again, so a session
// closed from another device shows up as inactive.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionStateResponse{Active: sess != nil, Session: toSessionResponse(sess)})
}

// Open handles POST /session/open.
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Open(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	h.publish(&sess, true)
	writeJSON(w, http.StatusOK, sessionStateResponse{Active: true, Session: toSessionResponse(&sess)})
}

// Close handles POST /session/close and returns the finalized session with
// its collected total.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Close(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	h.publish(sess, false)
	writeJSON(w, http.StatusOK, sessionStateResponse{Active: false, Session: toSessionResponse(sess)})
}

func (h *SessionHandler) publish(sess *model.Session, active bool) {
	opID := h.state.OperatorID()
	if opID == uuid.Nil {
		return
	}
	ev, err := ws.NewEvent(ws.EventSessionChanged, sessionStateResponse{Active: active, Session: toSessionResponse(sess)})
	if err != nil {
		h.logger.Error("Encode session event", zap.Error(err))
		return
	}
	h.events.BroadcastToOperator(opID, ev)
}
