package coordinator

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cafepos/terminal/internal/enum"
	"github.com/cafepos/terminal/internal/gateway"
	"github.com/cafepos/terminal/internal/model"
)

// SubmitResult is the pending order created (or extended) from the cart.
type SubmitResult struct {
	Order model.PendingOrder
	Route Route
}

// SubmitPending sends the cart to the kitchen queue as a pending order for
// the selected table. The cart is cleared only once the backend accepted it.
func (c *Coordinator) SubmitPending(ctx context.Context) (SubmitResult, error) {
	release, err := c.busy.acquire("submit")
	if err != nil {
		return SubmitResult{}, err
	}
	defer release()

	opID, err := c.operatorID()
	if err != nil {
		return SubmitResult{}, err
	}
	cart := c.state.Cart()
	if len(cart) == 0 {
		return SubmitResult{}, ErrCartEmpty
	}
	table, ok := c.state.Table()
	if !ok {
		return SubmitResult{}, ErrTableRequired
	}
	sess, err := c.sessions.Require(ctx)
	if err != nil {
		return SubmitResult{Route: RouteFor(err)}, err
	}

	order, err := c.gw.CreateOrAppendPendingOrder(ctx, gateway.PendingOrderInput{
		OperatorID: opID,
		SessionID:  sess.ID,
		TableID:    table.ID,
		Items:      cart,
	})
	if err != nil {
		return SubmitResult{Route: RouteFor(err)}, c.afterFailure(ctx, "submit", err)
	}

	c.state.ClearOrder()
	c.logger.Info("Pending order submitted",
		zap.Stringer("order_id", order.ID),
		zap.Int("order_number", order.OrderNumber),
		zap.String("table", table.Label),
		zap.Stringer("total", order.TotalAmount),
	)
	_, _ = c.RefreshPending(ctx)

	return SubmitResult{Order: order, Route: RouteOrders}, nil
}

// PendingItems loads the lines of a pending order and keeps them for the
// quantity checks of CancelPendingItem. An order finalized on another
// device is dropped and the list refreshed.
func (c *Coordinator) PendingItems(ctx context.Context, orderID uuid.UUID) ([]model.PendingOrderLine, error) {
	opID, err := c.operatorID()
	if err != nil {
		return nil, err
	}

	lines, err := c.gw.PendingOrderItems(ctx, orderID, opID)
	if err != nil {
		if gateway.IsConflict(err) {
			c.state.DropPendingOrder(orderID)
		}
		return nil, c.afterFailure(ctx, "pending_items", err)
	}

	c.state.SetPendingLines(orderID, lines)
	return lines, nil
}

// AllowedCancelReasons returns the reasons offered when cancelling an order
// (or one of its lines) in the given kitchen state. Once the kitchen has
// prepared it, the goods are either damaged or lost; before that a plain
// cancel is the only choice.
func AllowedCancelReasons(ks enum.KitchenStatus) []enum.CancelReason {
	if ks == enum.KitchenStatusReady {
		return []enum.CancelReason{enum.CancelReasonDamage, enum.CancelReasonLoss}
	}
	return []enum.CancelReason{enum.CancelReasonCancel}
}

func checkReason(ks enum.KitchenStatus, reason enum.CancelReason) error {
	if reason == "" {
		return ErrReasonRequired
	}
	for _, r := range AllowedCancelReasons(ks) {
		if r == reason {
			return nil
		}
	}
	return ErrReasonNotAllowed
}

// CancelPendingRequest cancels a whole pending order.
type CancelPendingRequest struct {
	OrderID uuid.UUID
	Reason  enum.CancelReason
	Note    string
}

// CancelPending cancels a pending order after checking the reason against
// its kitchen status and re-checking the session.
func (c *Coordinator) CancelPending(ctx context.Context, req CancelPendingRequest) (Route, error) {
	release, err := c.busy.acquire("cancel:" + req.OrderID.String())
	if err != nil {
		return RouteNone, err
	}
	defer release()

	opID, err := c.operatorID()
	if err != nil {
		return RouteNone, err
	}
	if req.Reason == "" {
		return RouteNone, ErrReasonRequired
	}
	order, err := c.pendingOrder(ctx, req.OrderID)
	if err != nil {
		return RouteNone, err
	}
	if err := checkReason(order.KitchenStatus, req.Reason); err != nil {
		return RouteNone, err
	}
	if _, err := c.sessions.Require(ctx); err != nil {
		return RouteFor(err), err
	}

	if _, err := c.gw.CancelPendingOrder(ctx, gateway.CancelPendingOrderInput{
		OrderID:    req.OrderID,
		OperatorID: opID,
		Reason:     req.Reason,
		Note:       req.Note,
	}); err != nil {
		return RouteFor(err), c.afterFailure(ctx, "cancel", err)
	}

	c.state.DropPendingOrder(req.OrderID)
	c.logger.Info("Pending order cancelled",
		zap.Stringer("order_id", req.OrderID),
		zap.String("reason", string(req.Reason)),
	)
	_, _ = c.RefreshPending(ctx)
	return RouteNone, nil
}

// CancelItemRequest removes Quantity units from one pending line. Reason
// may be left empty for orders the kitchen has not prepared yet.
type CancelItemRequest struct {
	OrderID  uuid.UUID
	ItemID   uuid.UUID
	Quantity int
	Reason   enum.CancelReason
	Note     string
}

// CancelItemResult is the state after a line cancellation. OrderCancelled
// is set when the last remaining quantity was removed and the backend
// cancelled the whole order.
type CancelItemResult struct {
	Change         model.OrderStatusChange
	Lines          []model.PendingOrderLine
	OrderCancelled bool
	Route          Route
}

// CancelPendingItem reduces a pending line by req.Quantity, which must be
// between 1 and the line's quantity as last fetched. Both the line list and
// the pending list are re-fetched afterwards.
func (c *Coordinator) CancelPendingItem(ctx context.Context, req CancelItemRequest) (CancelItemResult, error) {
	release, err := c.busy.acquire("cancel-item:" + req.OrderID.String())
	if err != nil {
		return CancelItemResult{}, err
	}
	defer release()

	opID, err := c.operatorID()
	if err != nil {
		return CancelItemResult{}, err
	}

	line, ok := c.state.PendingLine(req.OrderID, req.ItemID)
	if !ok {
		if _, err := c.PendingItems(ctx, req.OrderID); err != nil {
			return CancelItemResult{}, err
		}
		if line, ok = c.state.PendingLine(req.OrderID, req.ItemID); !ok {
			return CancelItemResult{}, gateway.NewError(gateway.KindItemNotFound)
		}
	}
	if req.Quantity < 1 || req.Quantity > line.Quantity {
		return CancelItemResult{}, ErrInvalidQuantity
	}

	order, err := c.pendingOrder(ctx, req.OrderID)
	if err != nil {
		return CancelItemResult{}, err
	}
	reason := req.Reason
	if reason == "" && order.KitchenStatus != enum.KitchenStatusReady {
		reason = enum.CancelReasonCancel
	}
	if err := checkReason(order.KitchenStatus, reason); err != nil {
		return CancelItemResult{}, err
	}
	if _, err := c.sessions.Require(ctx); err != nil {
		return CancelItemResult{Route: RouteFor(err)}, err
	}

	change, err := c.gw.CancelPendingOrderItem(ctx, gateway.CancelPendingOrderItemInput{
		OrderID:    req.OrderID,
		ItemID:     req.ItemID,
		OperatorID: opID,
		Reason:     reason,
		Note:       req.Note,
		Quantity:   req.Quantity,
	})
	if err != nil {
		return CancelItemResult{Route: RouteFor(err)}, c.afterFailure(ctx, "cancel_item", err)
	}

	res := CancelItemResult{
		Change:         change,
		OrderCancelled: change.Status == enum.OrderStatusCancelled,
	}
	c.logger.Info("Pending item cancelled",
		zap.Stringer("order_id", req.OrderID),
		zap.Stringer("item_id", req.ItemID),
		zap.Int("quantity", req.Quantity),
		zap.String("reason", string(reason)),
		zap.Bool("order_cancelled", res.OrderCancelled),
	)

	// The line list of a cancelled order comes back as order_not_pending;
	// the pending refresh below then drops the order.
	if lines, err := c.gw.PendingOrderItems(ctx, req.OrderID, opID); err == nil {
		c.state.SetPendingLines(req.OrderID, lines)
		res.Lines = lines
	} else {
		c.state.SetPendingLines(req.OrderID, nil)
	}
	if res.OrderCancelled {
		c.state.DropPendingOrder(req.OrderID)
	}
	_, _ = c.RefreshPending(ctx)

	return res, nil
}
