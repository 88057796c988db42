package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/cafepos/terminal/internal/cashsession"
	"github.com/cafepos/terminal/internal/coordinator"
	"github.com/cafepos/terminal/internal/gateway"
)

type errorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// writeError maps err to a status code and a JSON body. Precondition
// failures are 412, conflicts 409, validation 422, a running duplicate
// action 429 and backend transport failures 502.
func writeError(w http.ResponseWriter, err error) {
	status, body := errorStatus(err)
	writeJSON(w, status, body)
}

func errorStatus(err error) (int, errorResponse) {
	body := errorResponse{Error: err.Error()}
	if route := coordinator.RouteFor(err); route != coordinator.RouteNone {
		body.Redirect = string(route)
	}

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		body.Error = gwErr.Message
		body.Code = gwErr.Code
		if gwErr.Kind == gateway.KindInvalidCredentials {
			return http.StatusUnauthorized, body
		}
		switch gwErr.Class() {
		case gateway.ClassPrecondition:
			return http.StatusPreconditionFailed, body
		case gateway.ClassConflict:
			return http.StatusConflict, body
		case gateway.ClassValidation:
			return http.StatusUnprocessableEntity, body
		case gateway.ClassTransport:
			return http.StatusBadGateway, body
		}
		return http.StatusInternalServerError, body
	}

	switch {
	case errors.Is(err, coordinator.ErrNotLoggedIn):
		return http.StatusUnauthorized, body
	case errors.Is(err, coordinator.ErrBusy):
		return http.StatusTooManyRequests, body
	case isPreconditionError(err):
		return http.StatusPreconditionFailed, body
	case isValidationError(err):
		return http.StatusUnprocessableEntity, body
	}
	return http.StatusInternalServerError, body
}

// isPreconditionError checks for local errors the operator fixes by
// completing a previous step.
func isPreconditionError(err error) bool {
	return errors.Is(err, coordinator.ErrSessionRequired) ||
		errors.Is(err, coordinator.ErrTableRequired) ||
		errors.Is(err, coordinator.ErrCartEmpty) ||
		errors.Is(err, cashsession.ErrNoActiveSession)
}

// isValidationError checks for local errors that block the action as entered.
func isValidationError(err error) bool {
	return errors.Is(err, coordinator.ErrReasonRequired) ||
		errors.Is(err, coordinator.ErrReasonNotAllowed) ||
		errors.Is(err, coordinator.ErrInvalidQuantity) ||
		errors.Is(err, coordinator.ErrNothingToCancel) ||
		errors.Is(err, coordinator.ErrInvalidPaymentMethod) ||
		errors.Is(err, coordinator.ErrSplitUnbalanced)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// urlUUID parses a UUID path parameter, writing a 400 on failure.
func urlUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
