package coordinator

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cafepos/terminal/internal/enum"
	"github.com/cafepos/terminal/internal/gateway"
	"github.com/cafepos/terminal/internal/model"
)

// History lists the operator's orders.
func (c *Coordinator) History(ctx context.Context) ([]model.Order, error) {
	opID, err := c.operatorID()
	if err != nil {
		return nil, err
	}
	return c.gw.OrdersByOperator(ctx, opID)
}

// OrderDetails lists the lines of a completed order.
func (c *Coordinator) OrderDetails(ctx context.Context, orderID uuid.UUID) ([]model.OrderItemDetail, error) {
	opID, err := c.operatorID()
	if err != nil {
		return nil, err
	}
	return c.gw.OrderItems(ctx, orderID, opID)
}

// CorrectItemRequest cancels units of a line on a completed order. A zero
// Quantity cancels everything left on the line.
type CorrectItemRequest struct {
	OrderID  uuid.UUID
	ItemID   uuid.UUID
	Quantity int
	Note     string
}

// CorrectOrderItem reduces the net quantity of a completed line and returns
// the refreshed lines of the order.
func (c *Coordinator) CorrectOrderItem(ctx context.Context, req CorrectItemRequest) ([]model.OrderItemDetail, error) {
	release, err := c.busy.acquire("correct:" + req.ItemID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	opID, err := c.operatorID()
	if err != nil {
		return nil, err
	}

	items, err := c.gw.OrderItems(ctx, req.OrderID, opID)
	if err != nil {
		return nil, err
	}
	var item *model.OrderItemDetail
	for i := range items {
		if items[i].ID == req.ItemID {
			item = &items[i]
			break
		}
	}
	if item == nil {
		return nil, gateway.NewError(gateway.KindItemNotFound)
	}
	if item.NetQuantity <= 0 {
		return nil, ErrNothingToCancel
	}

	qty := req.Quantity
	if qty == 0 {
		qty = item.NetQuantity
	}
	if qty < 1 || qty > item.NetQuantity {
		return nil, ErrInvalidQuantity
	}

	if err := c.gw.CancelOrderItem(ctx, gateway.CancelOrderItemInput{
		OrderItemID: req.ItemID,
		OperatorID:  opID,
		Quantity:    qty,
		Reason:      enum.ItemCancelReasonCorrection,
		Note:        req.Note,
	}); err != nil {
		c.logger.Warn("Order item correction failed",
			zap.Stringer("item_id", req.ItemID),
			zap.Error(err),
		)
		return nil, err
	}

	c.logger.Info("Order item corrected",
		zap.Stringer("order_id", req.OrderID),
		zap.Stringer("item_id", req.ItemID),
		zap.Int("quantity", qty),
	)
	return c.gw.OrderItems(ctx, req.OrderID, opID)
}
