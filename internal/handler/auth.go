package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cafepos/terminal/internal/auth"
	"github.com/cafepos/terminal/internal/coordinator"
	"github.com/cafepos/terminal/internal/model"
	"github.com/cafepos/terminal/internal/state"
)

// PinLoginBackend defines the gateway method needed by the auth handler.
type PinLoginBackend interface {
	LoginWithPin(ctx context.Context, pin string) (model.Operator, error)
}

// SessionSyncer re-syncs the operator's cash session after login.
type SessionSyncer interface {
	Refresh(ctx context.Context) (*model.Session, error)
}

// ScreenControl stops the pending-order polling on logout.
type ScreenControl interface {
	Unmount()
}

// AuthHandler handles operator login and logout.
type AuthHandler struct {
	backend   PinLoginBackend
	sessions  SessionSyncer
	screens   ScreenControl
	state     *state.AppState
	jwtSecret string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(backend PinLoginBackend, sessions SessionSyncer, screens ScreenControl, st *state.AppState, jwtSecret string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		backend:   backend,
		sessions:  sessions,
		screens:   screens,
		state:     st,
		jwtSecret: jwtSecret,
		ttl:       auth.DefaultTTL,
		logger:    logger,
	}
}

// RegisterRoutes registers the public login endpoint.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
}

// RegisterProtectedRoutes registers endpoints that need a logged-in operator.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/auth/logout", h.Logout)
	r.Get("/auth/me", h.Me)
}

type pinLoginRequest struct {
	Pin string `json:"pin"`
}

type loginResponse struct {
	AccessToken string           `json:"access_token"`
	Operator    operatorResponse `json:"operator"`
	Session     *sessionResponse `json:"session,omitempty"`
	Redirect    string           `json:"redirect"`
}

// Login handles POST /auth/login. A new login replaces whoever was logged
// in on this terminal.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req pinLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Pin == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "pin is required"})
		return
	}

	op, err := h.backend.LoginWithPin(r.Context(), req.Pin)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, op.ID, op.Role, h.ttl)
	if err != nil {
		h.logger.Error("Generate token", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	h.state.Logout()
	h.state.SetOperator(op)
	h.logger.Info("Operator logged in", zap.Stringer("operator_id", op.ID), zap.String("role", op.Role))

	resp := loginResponse{
		AccessToken: token,
		Operator:    toOperatorResponse(op),
		Redirect:    string(coordinator.RouteSession),
	}
	sess, err := h.sessions.Refresh(r.Context())
	if err != nil {
		h.logger.Warn("Session check after login", zap.Error(err))
	}
	if sess != nil {
		resp.Session = toSessionResponse(sess)
		resp.Redirect = string(coordinator.RouteMain)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.screens.Unmount()
	h.state.Logout()
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	op, ok := h.state.Operator()
	if !ok {
		writeError(w, coordinator.ErrNotLoggedIn)
		return
	}
	writeJSON(w, http.StatusOK, toOperatorResponse(op))
}
