// Package state holds the terminal's in-memory application state: the
// logged-in operator, the selected table, the cart, the open cash session
// and the last pending-order snapshot fetched from the backend.
//
// The state is created unauthenticated at startup and reset on logout. It
// is shared between the HTTP API goroutines and the poller, so every
// accessor takes the lock and returns copies.
package state

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/cafepos/terminal/internal/model"
)

// AppState is the process-wide operator context.
type AppState struct {
	mu sync.RWMutex

	operator *model.Operator
	table    *model.Table
	cart     []model.CartLine
	session  *model.Session

	pending    []model.PendingOrder
	pendingErr error
	lines      map[uuid.UUID][]model.PendingOrderLine
}

// New returns an empty, unauthenticated state.
func New() *AppState {
	return &AppState{lines: make(map[uuid.UUID][]model.PendingOrderLine)}
}

// --- Operator ---

// SetOperator records the logged-in operator.
func (s *AppState) SetOperator(op model.Operator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operator = &op
}

// Operator returns the logged-in operator, if any.
func (s *AppState) Operator() (model.Operator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.operator == nil {
		return model.Operator{}, false
	}
	return *s.operator, true
}

// OperatorID returns the operator ID or uuid.Nil when logged out.
func (s *AppState) OperatorID() uuid.UUID {
	op, ok := s.Operator()
	if !ok {
		return uuid.Nil
	}
	return op.ID
}

// Logout resets every field to its startup value.
func (s *AppState) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operator = nil
	s.table = nil
	s.cart = nil
	s.session = nil
	s.pending = nil
	s.pendingErr = nil
	s.lines = make(map[uuid.UUID][]model.PendingOrderLine)
}

// --- Table ---

// SelectTable sets the table the next pending order is attached to.
func (s *AppState) SelectTable(t model.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = &t
}

// Table returns the selected table, if any.
func (s *AppState) Table() (model.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return model.Table{}, false
	}
	return *s.table, true
}

// --- Cart ---

// AddToCart increments the line for p or appends a new line with
// quantity 1. A product never appears twice in the cart.
func (s *AppState) AddToCart(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cart {
		if s.cart[i].ProductID == p.ID {
			s.cart[i].Quantity++
			return
		}
	}
	s.cart = append(s.cart, model.CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  1,
	})
}

// RemoveFromCart deletes the whole line for productID.
func (s *AppState) RemoveFromCart(productID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = slices.DeleteFunc(s.cart, func(l model.CartLine) bool {
		return l.ProductID == productID
	})
}

// Cart returns a copy of the cart lines.
func (s *AppState) Cart() []model.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cart)
}

// ClearOrder empties the cart and forgets the selected table. The operator
// and the session are left alone.
func (s *AppState) ClearOrder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
	s.table = nil
}

// --- Session ---

// SetActiveSession records the open session, or clears it when sess is nil.
// This is the only way the rest of the terminal learns sales are allowed.
func (s *AppState) SetActiveSession(sess *model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess == nil {
		s.session = nil
		return
	}
	cp := *sess
	s.session = &cp
}

// ActiveSession returns the locally known open session.
func (s *AppState) ActiveSession() (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return model.Session{}, false
	}
	return *s.session, true
}

// --- Pending orders snapshot ---

// SetPendingOrders replaces the pending list with the result of a refresh.
// A failed refresh empties the list and keeps the error for display.
// Line snapshots of orders that left the list are dropped.
func (s *AppState) SetPendingOrders(orders []model.PendingOrder, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = slices.Clone(orders)
	s.pendingErr = err

	keep := make(map[uuid.UUID]struct{}, len(orders))
	for _, o := range orders {
		keep[o.ID] = struct{}{}
	}
	for id := range s.lines {
		if _, ok := keep[id]; !ok {
			delete(s.lines, id)
		}
	}
}

// PendingOrders returns the last refreshed pending list and the error of
// that refresh, if any.
func (s *AppState) PendingOrders() ([]model.PendingOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.pending), s.pendingErr
}

// PendingOrder looks up an order in the last refreshed list.
func (s *AppState) PendingOrder(id uuid.UUID) (model.PendingOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.pending {
		if o.ID == id {
			return o, true
		}
	}
	return model.PendingOrder{}, false
}

// DropPendingOrder removes an order that reached a terminal state.
func (s *AppState) DropPendingOrder(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = slices.DeleteFunc(s.pending, func(o model.PendingOrder) bool {
		return o.ID == id
	})
	delete(s.lines, id)
}

// SetPendingLines stores the last fetched lines of a pending order.
func (s *AppState) SetPendingLines(orderID uuid.UUID, lines []model.PendingOrderLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lines == nil {
		delete(s.lines, orderID)
		return
	}
	s.lines[orderID] = slices.Clone(lines)
}

// PendingLine looks up a line in the last fetched lines of an order.
func (s *AppState) PendingLine(orderID, itemID uuid.UUID) (model.PendingOrderLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.lines[orderID] {
		if l.ID == itemID {
			return l, true
		}
	}
	return model.PendingOrderLine{}, false
}
