package coordinator

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cafepos/terminal/internal/enum"
	"github.com/cafepos/terminal/internal/gateway"
	"github.com/cafepos/terminal/internal/model"
	"github.com/cafepos/terminal/internal/money"
)

// PaymentRequest is the payment entered by the operator. Cash and Card are
// the raw split fields and are ignored for other methods.
type PaymentRequest struct {
	Method enum.PaymentMethod
	Cash   string
	Card   string
}

// SplitStatus is the live state of the split payment form.
type SplitStatus struct {
	Cash decimal.Decimal
	Card decimal.Decimal
	// Remaining is total - cash - card; negative when overpaid.
	Remaining decimal.Decimal
	// Numeric is false while either field does not parse.
	Numeric bool
	// Valid enables the pay action.
	Valid bool
}

// SplitCheck evaluates a split payment against total. It is valid iff both
// amounts parse (money.Parse refuses signs and exponents) and
// |cash + card - total| <= 0.01, whichever side is larger.
func SplitCheck(total decimal.Decimal, cash, card string) SplitStatus {
	var st SplitStatus
	cashAmt, cashErr := money.Parse(cash)
	cardAmt, cardErr := money.Parse(card)
	if cashErr == nil {
		st.Cash = cashAmt
	}
	if cardErr == nil {
		st.Card = cardAmt
	}
	st.Remaining = money.Round(total.Sub(st.Cash).Sub(st.Card))
	st.Numeric = cashErr == nil && cardErr == nil
	st.Valid = st.Numeric && money.Balanced(st.Cash.Add(st.Card), total)
	return st
}

func buildPayment(total decimal.Decimal, req PaymentRequest) (gateway.Payment, error) {
	if !req.Method.Valid() {
		return gateway.Payment{}, ErrInvalidPaymentMethod
	}
	if req.Method != enum.PaymentMethodSplit {
		return gateway.Payment{Method: req.Method}, nil
	}
	st := SplitCheck(total, req.Cash, req.Card)
	if !st.Valid {
		return gateway.Payment{}, ErrSplitUnbalanced
	}
	return gateway.Payment{Method: req.Method, Cash: &st.Cash, Card: &st.Card}, nil
}

// PayResult is the completed order and where the UI goes next.
type PayResult struct {
	Order *model.Order
	Route Route
}

// Pay completes a pending order. The session is re-checked right before the
// call, so a drawer closed from another device refuses the payment.
func (c *Coordinator) Pay(ctx context.Context, orderID uuid.UUID, req PaymentRequest) (PayResult, error) {
	release, err := c.busy.acquire("pay:" + orderID.String())
	if err != nil {
		return PayResult{}, err
	}
	defer release()

	opID, err := c.operatorID()
	if err != nil {
		return PayResult{}, err
	}
	order, err := c.pendingOrder(ctx, orderID)
	if err != nil {
		return PayResult{}, err
	}
	payment, err := buildPayment(order.TotalAmount, req)
	if err != nil {
		return PayResult{}, err
	}
	sess, err := c.sessions.Require(ctx)
	if err != nil {
		return PayResult{Route: RouteFor(err)}, err
	}

	completed, err := c.gw.CompletePendingOrder(ctx, gateway.CompletePendingOrderInput{
		OrderID:    orderID,
		OperatorID: opID,
		SessionID:  sess.ID,
		Payment:    payment,
	})
	if err != nil {
		return PayResult{Route: RouteFor(err)}, c.afterFailure(ctx, "pay", err)
	}

	c.state.DropPendingOrder(orderID)
	c.state.ClearOrder()
	c.logger.Info("Order paid",
		zap.Stringer("order_id", orderID),
		zap.Int("order_number", order.OrderNumber),
		zap.String("method", string(payment.Method)),
		zap.Stringer("total", order.TotalAmount),
	)
	_, _ = c.RefreshPending(ctx)

	return PayResult{Order: completed, Route: RouteOrders}, nil
}

// CheckoutResult is the order recorded by a direct sale.
type CheckoutResult struct {
	Order model.Order
	Route Route
}

// DirectCheckout records and pays the cart in one call, bypassing the
// kitchen queue. The selected table is attached when there is one.
func (c *Coordinator) DirectCheckout(ctx context.Context, req PaymentRequest) (CheckoutResult, error) {
	release, err := c.busy.acquire("checkout")
	if err != nil {
		return CheckoutResult{}, err
	}
	defer release()

	opID, err := c.operatorID()
	if err != nil {
		return CheckoutResult{}, err
	}
	cart := c.state.Cart()
	if len(cart) == 0 {
		return CheckoutResult{}, ErrCartEmpty
	}
	payment, err := buildPayment(model.CartTotal(cart), req)
	if err != nil {
		return CheckoutResult{}, err
	}
	sess, err := c.sessions.Require(ctx)
	if err != nil {
		return CheckoutResult{Route: RouteFor(err)}, err
	}

	var tableID uuid.UUID
	if t, ok := c.state.Table(); ok {
		tableID = t.ID
	}

	order, err := c.gw.CreateOrder(ctx, gateway.CreateOrderInput{
		OperatorID: opID,
		SessionID:  sess.ID,
		TableID:    tableID,
		Items:      cart,
		Payment:    payment,
	})
	if err != nil {
		return CheckoutResult{Route: RouteFor(err)}, c.afterFailure(ctx, "checkout", err)
	}

	c.state.ClearOrder()
	c.logger.Info("Direct sale recorded",
		zap.Stringer("order_id", order.ID),
		zap.Int("order_number", order.OrderNumber),
		zap.String("method", string(payment.Method)),
		zap.Stringer("total", order.TotalAmount),
	)
	return CheckoutResult{Order: order, Route: RouteMain}, nil
}
