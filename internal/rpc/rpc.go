// Package rpc carries named remote-procedure calls to the backend. The
// backend exposes its order, session and catalog logic as Postgres
// functions; they can be reached through PostgREST over HTTP or directly
// over a database connection. Both transports return the raw JSON result
// and report backend failures as *Error.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
)

// Args is the argument record of a call. Keys are the backend parameter
// names (p_user_id, p_items, ...).
type Args map[string]any

// Caller invokes one remote procedure and returns its JSON result, which
// is either a single object, an array of rows, a scalar or null.
type Caller interface {
	Call(ctx context.Context, fn string, args Args) (json.RawMessage, error)
}

// Error is a failure raised by the procedure itself. Message carries the
// backend's string code, e.g. "order_not_found_or_not_pending".
// Any other error returned by a Caller is a transport failure.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}
