// Package coordinator drives the order and payment lifecycle: a cart
// becomes a pending order, pending orders are paid, cancelled or reduced
// line by line, and completed orders can be corrected from the history.
//
// The coordinator never mutates orders locally. Every transition is a
// backend call; the local state is only updated from what the backend
// returned, and any conflict triggers a refresh of the pending list.
package coordinator

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cafepos/terminal/internal/cashsession"
	"github.com/cafepos/terminal/internal/gateway"
	"github.com/cafepos/terminal/internal/model"
	"github.com/cafepos/terminal/internal/state"
)

// Precondition errors. The operator fixes the situation, then retries.
var (
	ErrNotLoggedIn     = cashsession.ErrNotLoggedIn
	ErrSessionRequired = cashsession.ErrSessionRequired
	ErrTableRequired   = errors.New("a table must be selected")
	ErrCartEmpty       = errors.New("cart is empty")
)

// Validation errors. The action stays blocked until the input changes.
var (
	ErrReasonRequired       = errors.New("a cancel reason is required")
	ErrReasonNotAllowed     = errors.New("cancel reason not allowed for this order")
	ErrInvalidQuantity      = errors.New("invalid cancel quantity")
	ErrNothingToCancel      = errors.New("item has nothing left to cancel")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrSplitUnbalanced      = errors.New("split amounts do not match the total")
)

// ErrBusy is returned when the same action is already in flight.
var ErrBusy = errors.New("action already in progress")

// Route is a navigation hint for the UI shell.
type Route string

const (
	RouteNone    Route = ""
	RouteSession Route = "session"
	RouteOrders  Route = "orders"
	RouteMain    Route = "main"
)

// RouteFor returns where the UI should go after err. Only a missing cash
// session redirects.
func RouteFor(err error) Route {
	if errors.Is(err, ErrSessionRequired) || gateway.KindOf(err) == gateway.KindSessionRequired {
		return RouteSession
	}
	return RouteNone
}

// Gateway defines the backend methods needed by the coordinator.
type Gateway interface {
	CreateOrAppendPendingOrder(ctx context.Context, in gateway.PendingOrderInput) (model.PendingOrder, error)
	PendingOrders(ctx context.Context, operatorID uuid.UUID) ([]model.PendingOrder, error)
	PendingOrderItems(ctx context.Context, orderID, operatorID uuid.UUID) ([]model.PendingOrderLine, error)
	CancelPendingOrder(ctx context.Context, in gateway.CancelPendingOrderInput) (*model.PendingOrder, error)
	CancelPendingOrderItem(ctx context.Context, in gateway.CancelPendingOrderItemInput) (model.OrderStatusChange, error)
	CompletePendingOrder(ctx context.Context, in gateway.CompletePendingOrderInput) (*model.Order, error)
	CreateOrder(ctx context.Context, in gateway.CreateOrderInput) (model.Order, error)
	OrdersByOperator(ctx context.Context, operatorID uuid.UUID) ([]model.Order, error)
	OrderItems(ctx context.Context, orderID, operatorID uuid.UUID) ([]model.OrderItemDetail, error)
	CancelOrderItem(ctx context.Context, in gateway.CancelOrderItemInput) error
}

// Sessions defines the session check needed before every sale.
type Sessions interface {
	Require(ctx context.Context) (model.Session, error)
}

// Coordinator implements the order lifecycle for the logged-in operator.
type Coordinator struct {
	gw       Gateway
	sessions Sessions
	state    *state.AppState
	logger   *zap.Logger
	busy     busyGuard
}

// New creates a Coordinator.
func New(gw Gateway, sessions Sessions, st *state.AppState, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		gw:       gw,
		sessions: sessions,
		state:    st,
		logger:   logger.Named("coordinator"),
		busy:     busyGuard{inFlight: make(map[string]struct{})},
	}
}

func (c *Coordinator) operatorID() (uuid.UUID, error) {
	id := c.state.OperatorID()
	if id == uuid.Nil {
		return uuid.Nil, ErrNotLoggedIn
	}
	return id, nil
}

// afterFailure applies the reactions shared by every mutation: conflicts
// refresh the pending list, a backend session_required drops the local
// session.
func (c *Coordinator) afterFailure(ctx context.Context, action string, err error) error {
	fields := []zap.Field{zap.String("action", action), zap.Error(err)}

	switch {
	case gateway.IsConflict(err):
		c.logger.Info("Conflict, refreshing pending orders", fields...)
		_, _ = c.RefreshPending(ctx)
	case gateway.KindOf(err) == gateway.KindSessionRequired:
		c.logger.Info("Backend reports no session", fields...)
		c.state.SetActiveSession(nil)
	default:
		c.logger.Warn("Action failed", fields...)
	}
	return err
}

// RefreshPending reloads the operator's pending orders into the state. A
// failed refresh leaves an empty list and the error in the state.
func (c *Coordinator) RefreshPending(ctx context.Context) ([]model.PendingOrder, error) {
	orders, err := c.gw.PendingOrders(ctx, c.state.OperatorID())
	if err != nil {
		c.state.SetPendingOrders(nil, err)
		return nil, err
	}
	c.state.SetPendingOrders(orders, nil)
	return orders, nil
}

// pendingOrder finds an order in the last snapshot, refreshing once when
// it is not there. An order that is still missing was finalized elsewhere.
func (c *Coordinator) pendingOrder(ctx context.Context, orderID uuid.UUID) (model.PendingOrder, error) {
	if o, ok := c.state.PendingOrder(orderID); ok {
		return o, nil
	}
	if _, err := c.RefreshPending(ctx); err != nil {
		return model.PendingOrder{}, err
	}
	if o, ok := c.state.PendingOrder(orderID); ok {
		return o, nil
	}
	return model.PendingOrder{}, gateway.NewError(gateway.KindOrderNotPending)
}

// busyGuard refuses a second run of the same action while one is running.
type busyGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func (b *busyGuard) acquire(key string) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.inFlight[key]; ok {
		return nil, ErrBusy
	}
	b.inFlight[key] = struct{}{}
	return func() {
		b.mu.Lock()
		delete(b.inFlight, key)
		b.mu.Unlock()
	}, nil
}
