package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cafepos/terminal/internal/auth"
	"github.com/cafepos/terminal/internal/gateway"
	"github.com/cafepos/terminal/internal/handler"
	"github.com/cafepos/terminal/internal/model"
	"github.com/cafepos/terminal/internal/state"
)

// --- Mocks ---

type mockLogin struct {
	loginFn func(ctx context.Context, pin string) (model.Operator, error)
}

func (m *mockLogin) LoginWithPin(ctx context.Context, pin string) (model.Operator, error) {
	return m.loginFn(ctx, pin)
}

type mockSessionSync struct {
	session *model.Session
	err     error
	st      *state.AppState
}

func (m *mockSessionSync) Refresh(ctx context.Context) (*model.Session, error) {
	if m.err == nil && m.st != nil {
		m.st.SetActiveSession(m.session)
	}
	return m.session, m.err
}

type mockScreens struct{ unmounted int }

func (m *mockScreens) Unmount() { m.unmounted++ }

func setupAuthRouter(login *mockLogin, sessions *mockSessionSync, screens *mockScreens, st *state.AppState) *chi.Mux {
	h := handler.NewAuthHandler(login, sessions, screens, st, testSecret, zap.NewNop())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	h.RegisterProtectedRoutes(r)
	return r
}

func acceptPin(pin string) *mockLogin {
	return &mockLogin{loginFn: func(ctx context.Context, got string) (model.Operator, error) {
		if got != pin {
			return model.Operator{}, gateway.NewError(gateway.KindInvalidCredentials)
		}
		return testOperator, nil
	}}
}

// --- Login tests ---

func TestLogin_WithOpenSessionGoesToMain(t *testing.T) {
	st := state.New()
	sess := &model.Session{ID: testOperator.ID, OperatorID: testOperator.ID}
	r := setupAuthRouter(acceptPin("1234"), &mockSessionSync{session: sess, st: st}, &mockScreens{}, st)

	rr := doJSON(t, r, "POST", "/auth/login", map[string]string{"pin": "1234"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decodeResponse(t, rr)
	assert.Equal(t, "main", resp["redirect"])
	assert.NotNil(t, resp["session"])

	claims, err := auth.ValidateToken(testSecret, resp["access_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, testOperator.ID, claims.OperatorID)
	assert.Equal(t, testOperator.ID, st.OperatorID())
	_, active := st.ActiveSession()
	assert.True(t, active)
}

func TestLogin_WithoutSessionGoesToSession(t *testing.T) {
	st := state.New()
	r := setupAuthRouter(acceptPin("1234"), &mockSessionSync{st: st}, &mockScreens{}, st)

	rr := doJSON(t, r, "POST", "/auth/login", map[string]string{"pin": "1234"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "session", decodeResponse(t, rr)["redirect"])
}

func TestLogin_WrongPin(t *testing.T) {
	st := state.New()
	r := setupAuthRouter(acceptPin("1234"), &mockSessionSync{}, &mockScreens{}, st)

	rr := doJSON(t, r, "POST", "/auth/login", map[string]string{"pin": "0000"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "PIN incorrect ou utilisateur inactif", decodeResponse(t, rr)["error"])
	_, ok := st.Operator()
	assert.False(t, ok)
}

func TestLogin_MissingPin(t *testing.T) {
	r := setupAuthRouter(acceptPin("1234"), &mockSessionSync{}, &mockScreens{}, state.New())

	rr := doJSON(t, r, "POST", "/auth/login", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogin_ReplacesPreviousOperatorState(t *testing.T) {
	st := loggedInState()
	st.AddToCart(model.Product{ID: testOperator.ID, Name: "Espresso", Price: dec("15")})
	r := setupAuthRouter(acceptPin("1234"), &mockSessionSync{st: st}, &mockScreens{}, st)

	rr := doJSON(t, r, "POST", "/auth/login", map[string]string{"pin": "1234"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, st.Cart())
}

// --- Logout tests ---

func TestLogout_ResetsState(t *testing.T) {
	st := loggedInState()
	screens := &mockScreens{}
	r := setupAuthRouter(acceptPin("1234"), &mockSessionSync{}, screens, st)

	rr := doJSON(t, r, "POST", "/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	_, ok := st.Operator()
	assert.False(t, ok)
	assert.Equal(t, 1, screens.unmounted)

	rr = doJSON(t, r, "GET", "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
