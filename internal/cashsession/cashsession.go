// Package cashsession manages the operator's cash-drawer session. The
// backend owns the session; this package only opens, closes and
// re-checks it, and mirrors the result into the application state.
package cashsession

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cafepos/terminal/internal/model"
	"github.com/cafepos/terminal/internal/state"
)

var (
	ErrNotLoggedIn     = errors.New("operator not logged in")
	ErrSessionRequired = errors.New("an open cash session is required")
	ErrNoActiveSession = errors.New("no active session to close")
)

// Backend defines the gateway methods needed for session accounting.
type Backend interface {
	OpenSession(ctx context.Context, operatorID uuid.UUID) (model.Session, error)
	CloseSession(ctx context.Context, sessionID uuid.UUID) (*model.Session, error)
	OpenSessionFor(ctx context.Context, operatorID uuid.UUID) (*model.Session, error)
}

// Manager keeps the local active session in line with the backend.
type Manager struct {
	backend Backend
	state   *state.AppState
	logger  *zap.Logger
}

// NewManager creates a Manager.
func NewManager(backend Backend, st *state.AppState, logger *zap.Logger) *Manager {
	return &Manager{backend: backend, state: st, logger: logger.Named("cashsession")}
}

func (m *Manager) operatorID() (uuid.UUID, error) {
	id := m.state.OperatorID()
	if id == uuid.Nil {
		return uuid.Nil, ErrNotLoggedIn
	}
	return id, nil
}

// Open asks the backend to open a session for the logged-in operator. The
// backend decides whether one already exists.
func (m *Manager) Open(ctx context.Context) (model.Session, error) {
	opID, err := m.operatorID()
	if err != nil {
		return model.Session{}, err
	}

	sess, err := m.backend.OpenSession(ctx, opID)
	if err != nil {
		return model.Session{}, err
	}

	m.state.SetActiveSession(&sess)
	m.logger.Info("Session opened",
		zap.Stringer("session_id", sess.ID),
		zap.Stringer("operator_id", opID),
	)
	return sess, nil
}

// Close finalizes the active session. Afterwards every sale has to go
// through Open again.
func (m *Manager) Close(ctx context.Context) (*model.Session, error) {
	if _, err := m.operatorID(); err != nil {
		return nil, err
	}
	active, ok := m.state.ActiveSession()
	if !ok {
		return nil, ErrNoActiveSession
	}

	closed, err := m.backend.CloseSession(ctx, active.ID)
	if err != nil {
		return nil, err
	}

	m.state.SetActiveSession(nil)
	fields := []zap.Field{zap.Stringer("session_id", active.ID)}
	if closed != nil {
		fields = append(fields, zap.Stringer("collected", closed.CollectedTotal))
	}
	m.logger.Info("Session closed", fields...)
	return closed, nil
}

// Require re-reads the open session from the backend. It is called before
// every sale, payment and cancellation so a session closed from another
// device is never used. Without an open session the local one is cleared
// and ErrSessionRequired is returned.
func (m *Manager) Require(ctx context.Context) (model.Session, error) {
	opID, err := m.operatorID()
	if err != nil {
		return model.Session{}, err
	}

	sess, err := m.backend.OpenSessionFor(ctx, opID)
	if err != nil {
		return model.Session{}, err
	}
	if sess == nil {
		if _, had := m.state.ActiveSession(); had {
			m.logger.Info("Session closed elsewhere", zap.Stringer("operator_id", opID))
		}
		m.state.SetActiveSession(nil)
		return model.Session{}, ErrSessionRequired
	}

	m.state.SetActiveSession(sess)
	return *sess, nil
}

// Refresh re-syncs the local session with the backend and returns it, or
// nil when none is open.
func (m *Manager) Refresh(ctx context.Context) (*model.Session, error) {
	opID, err := m.operatorID()
	if err != nil {
		return nil, err
	}

	sess, err := m.backend.OpenSessionFor(ctx, opID)
	if err != nil {
		return nil, err
	}
	m.state.SetActiveSession(sess)
	return sess, nil
}
