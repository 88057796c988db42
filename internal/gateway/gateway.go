// Package gateway wraps every backend procedure the terminal uses behind a
// typed Go method. Each method calls exactly one procedure, normalizes the
// returned rows into model types and reports failures as *Error. Nothing
// here touches application state.
package gateway

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cafepos/terminal/internal/enum"
	"github.com/cafepos/terminal/internal/model"
	"github.com/cafepos/terminal/internal/rpc"
)

// Procedure names.
const (
	fnLoginWithPin           = "login_with_pin"
	fnListProducts           = "list_available_products"
	fnListTables             = "list_active_tables"
	fnOpenSession            = "open_server_session"
	fnCloseSession           = "close_server_session"
	fnGetOpenSession         = "get_open_session"
	fnUpsertPendingOrder     = "upsert_pending_order_with_items"
	fnGetPendingOrders       = "get_pending_orders"
	fnGetPendingOrderItems   = "get_pending_order_items"
	fnCancelPendingOrder     = "cancel_pending_order"
	fnCancelPendingOrderItem = "cancel_pending_order_item"
	fnCompletePendingOrder   = "complete_pending_order"
	fnCreateOrder            = "create_order_with_items"
	fnGetOrdersByUser        = "get_orders_by_user"
	fnGetOrderItems          = "get_order_items_by_order"
	fnCancelOrderItem        = "cancel_order_item"
)

// Gateway is the typed client of the backend procedures.
type Gateway struct {
	rpc    rpc.Caller
	logger *zap.Logger
}

// New creates a Gateway on top of caller.
func New(caller rpc.Caller, logger *zap.Logger) *Gateway {
	return &Gateway{rpc: caller, logger: logger.Named("gateway")}
}

func (g *Gateway) call(ctx context.Context, fn string, args rpc.Args) (json.RawMessage, error) {
	raw, err := g.rpc.Call(ctx, fn, args)
	if err != nil {
		gwErr := classify(fn, err)
		g.logger.Warn("Procedure failed",
			zap.String("fn", fn),
			zap.Stringer("class", gwErr.Class()),
			zap.String("code", gwErr.Code),
			zap.Error(err),
		)
		return nil, gwErr
	}
	return raw, nil
}

// decodeError reports a payload the gateway could not understand.
func decodeError(fn string, err error) *Error {
	return &Error{Kind: KindUnknown, Message: "Reponse invalide de " + fn, Cause: err}
}

// ── Operators & catalog ──

// LoginWithPin resolves an operator from a PIN. Missing and inactive users
// are reported as KindInvalidCredentials.
func (g *Gateway) LoginWithPin(ctx context.Context, pin string) (model.Operator, error) {
	if pin == "" {
		return model.Operator{}, NewError(KindInvalidCredentials)
	}
	raw, err := g.call(ctx, fnLoginWithPin, rpc.Args{"p_pin": pin})
	if err != nil {
		return model.Operator{}, err
	}
	row, err := firstRow[operatorRow](raw)
	if err != nil {
		return model.Operator{}, decodeError(fnLoginWithPin, err)
	}
	if row == nil || !row.active() {
		return model.Operator{}, NewError(KindInvalidCredentials)
	}
	return row.toModel(), nil
}

// Products lists the available products sorted by name.
func (g *Gateway) Products(ctx context.Context) ([]model.Product, error) {
	raw, err := g.call(ctx, fnListProducts, nil)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[productRow](raw)
	if err != nil {
		return nil, decodeError(fnListProducts, err)
	}
	products := make([]model.Product, len(rows))
	for i, r := range rows {
		products[i] = r.toModel()
	}
	slices.SortStableFunc(products, func(a, b model.Product) int { return cmp.Compare(a.Name, b.Name) })
	return products, nil
}

// Tables lists the active tables sorted by label.
func (g *Gateway) Tables(ctx context.Context) ([]model.Table, error) {
	raw, err := g.call(ctx, fnListTables, nil)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[tableRow](raw)
	if err != nil {
		return nil, decodeError(fnListTables, err)
	}
	tables := make([]model.Table, 0, len(rows))
	for _, r := range rows {
		if t := r.toModel(); t.Active {
			tables = append(tables, t)
		}
	}
	slices.SortStableFunc(tables, func(a, b model.Table) int { return cmp.Compare(a.Label, b.Label) })
	return tables, nil
}

// ── Sessions ──

// OpenSession opens (or returns the already open) session of an operator.
func (g *Gateway) OpenSession(ctx context.Context, operatorID uuid.UUID) (model.Session, error) {
	if operatorID == uuid.Nil {
		return model.Session{}, NewError(KindOperatorRequired)
	}
	raw, err := g.call(ctx, fnOpenSession, rpc.Args{"p_user_id": operatorID})
	if err != nil {
		return model.Session{}, err
	}
	row, err := firstRow[sessionRow](raw)
	if err != nil {
		return model.Session{}, decodeError(fnOpenSession, err)
	}
	if row == nil {
		return model.Session{}, &Error{Kind: KindNotCreated, Message: "Session non creee"}
	}
	return row.toModel(), nil
}

// CloseSession closes a session and returns its final state, if the
// backend sent one back.
func (g *Gateway) CloseSession(ctx context.Context, sessionID uuid.UUID) (*model.Session, error) {
	if sessionID == uuid.Nil {
		return nil, &Error{Kind: KindSessionRequired, Message: "Session manquante"}
	}
	raw, err := g.call(ctx, fnCloseSession, rpc.Args{"p_session_id": sessionID})
	if err != nil {
		return nil, err
	}
	row, err := firstRow[sessionRow](raw)
	if err != nil {
		return nil, decodeError(fnCloseSession, err)
	}
	if row == nil {
		return nil, nil
	}
	s := row.toModel()
	return &s, nil
}

// OpenSessionFor returns the open session of an operator, or nil.
func (g *Gateway) OpenSessionFor(ctx context.Context, operatorID uuid.UUID) (*model.Session, error) {
	if operatorID == uuid.Nil {
		return nil, NewError(KindOperatorRequired)
	}
	raw, err := g.call(ctx, fnGetOpenSession, rpc.Args{"p_user_id": operatorID})
	if err != nil {
		return nil, err
	}
	row, err := firstRow[sessionRow](raw)
	if err != nil {
		return nil, decodeError(fnGetOpenSession, err)
	}
	if row == nil || row.ID == uuid.Nil {
		return nil, nil
	}
	s := row.toModel()
	if !s.Open() {
		return nil, nil
	}
	return &s, nil
}

// ── Pending orders ──

// PendingOrderInput is a cart snapshot sent to the kitchen queue.
type PendingOrderInput struct {
	OperatorID uuid.UUID
	SessionID  uuid.UUID
	TableID    uuid.UUID
	Items      []model.CartLine
}

// CreateOrAppendPendingOrder creates a pending order for the table, or
// appends the items to the one already open there.
func (g *Gateway) CreateOrAppendPendingOrder(ctx context.Context, in PendingOrderInput) (model.PendingOrder, error) {
	if len(in.Items) == 0 {
		return model.PendingOrder{}, NewError(KindItemsRequired)
	}
	if in.SessionID == uuid.Nil {
		return model.PendingOrder{}, NewError(KindSessionRequired)
	}
	raw, err := g.call(ctx, fnUpsertPendingOrder, rpc.Args{
		"p_user_id":    optionalID(in.OperatorID),
		"p_table_id":   optionalID(in.TableID),
		"p_items":      itemArgs(in.Items),
		"p_session_id": in.SessionID,
	})
	if err != nil {
		return model.PendingOrder{}, err
	}
	row, err := firstRow[pendingOrderRow](raw)
	if err != nil {
		return model.PendingOrder{}, decodeError(fnUpsertPendingOrder, err)
	}
	if row == nil {
		return model.PendingOrder{}, NewError(KindNotCreated)
	}
	return row.toModel(), nil
}

// PendingOrders lists the operator's pending orders. Without an operator
// the list is empty.
func (g *Gateway) PendingOrders(ctx context.Context, operatorID uuid.UUID) ([]model.PendingOrder, error) {
	if operatorID == uuid.Nil {
		return []model.PendingOrder{}, nil
	}
	raw, err := g.call(ctx, fnGetPendingOrders, rpc.Args{"p_user_id": operatorID})
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[pendingOrderRow](raw)
	if err != nil {
		return nil, decodeError(fnGetPendingOrders, err)
	}
	orders := make([]model.PendingOrder, len(rows))
	for i, r := range rows {
		orders[i] = r.toModel()
	}
	return orders, nil
}

// PendingOrderItems lists the lines of a pending order. An order finalized
// elsewhere is reported as KindOrderNotPending.
func (g *Gateway) PendingOrderItems(ctx context.Context, orderID, operatorID uuid.UUID) ([]model.PendingOrderLine, error) {
	if orderID == uuid.Nil || operatorID == uuid.Nil {
		return nil, &Error{Kind: KindUnknown, Message: "Parametres manquants"}
	}
	raw, err := g.call(ctx, fnGetPendingOrderItems, rpc.Args{
		"p_order_id": orderID,
		"p_user_id":  operatorID,
	})
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[pendingLineRow](raw)
	if err != nil {
		return nil, decodeError(fnGetPendingOrderItems, err)
	}
	lines := make([]model.PendingOrderLine, len(rows))
	for i, r := range rows {
		lines[i] = r.toModel()
	}
	return lines, nil
}

// CancelPendingOrderInput cancels a whole pending order.
type CancelPendingOrderInput struct {
	OrderID    uuid.UUID
	OperatorID uuid.UUID
	Reason     enum.CancelReason
	Note       string
}

// CancelPendingOrder cancels a pending order and returns its final row,
// if the backend sent one back.
func (g *Gateway) CancelPendingOrder(ctx context.Context, in CancelPendingOrderInput) (*model.PendingOrder, error) {
	raw, err := g.call(ctx, fnCancelPendingOrder, rpc.Args{
		"p_order_id": in.OrderID,
		"p_user_id":  in.OperatorID,
		"p_reason":   string(in.Reason),
		"p_note":     optionalText(in.Note),
	})
	if err != nil {
		return nil, err
	}
	row, err := firstRow[pendingOrderRow](raw)
	if err != nil {
		return nil, decodeError(fnCancelPendingOrder, err)
	}
	if row == nil {
		return nil, nil
	}
	o := row.toModel()
	return &o, nil
}

// CancelPendingOrderItemInput removes Quantity units of one pending line.
type CancelPendingOrderItemInput struct {
	OrderID    uuid.UUID
	ItemID     uuid.UUID
	OperatorID uuid.UUID
	Reason     enum.CancelReason
	Note       string
	Quantity   int
}

// CancelPendingOrderItem reduces a pending line and returns the order's
// resulting totals and status. A status of cancelled means every line
// reached zero.
func (g *Gateway) CancelPendingOrderItem(ctx context.Context, in CancelPendingOrderItemInput) (model.OrderStatusChange, error) {
	if in.Quantity < 1 {
		return model.OrderStatusChange{}, NewError(KindInvalidCancelQty)
	}
	raw, err := g.call(ctx, fnCancelPendingOrderItem, rpc.Args{
		"p_order_id":   in.OrderID,
		"p_item_id":    in.ItemID,
		"p_user_id":    in.OperatorID,
		"p_reason":     string(in.Reason),
		"p_note":       optionalText(in.Note),
		"p_cancel_qty": in.Quantity,
	})
	if err != nil {
		return model.OrderStatusChange{}, err
	}
	row, err := firstRow[statusChangeRow](raw)
	if err != nil {
		return model.OrderStatusChange{}, decodeError(fnCancelPendingOrderItem, err)
	}
	if row == nil {
		return model.OrderStatusChange{OrderID: in.OrderID}, nil
	}
	change := row.toModel()
	if change.OrderID == uuid.Nil {
		change.OrderID = in.OrderID
	}
	return change, nil
}

// Payment is how an order is settled. Cash and Card are only sent for
// split payments.
type Payment struct {
	Method enum.PaymentMethod
	Cash   *decimal.Decimal
	Card   *decimal.Decimal
}

func (p Payment) args(a rpc.Args) {
	a["p_payment_method"] = string(p.Method)
	a["p_cash_amount"] = p.Cash
	a["p_card_amount"] = p.Card
}

// CompletePendingOrderInput settles a pending order.
type CompletePendingOrderInput struct {
	OrderID    uuid.UUID
	OperatorID uuid.UUID
	SessionID  uuid.UUID
	Payment    Payment
}

// CompletePendingOrder moves a pending order to completed.
func (g *Gateway) CompletePendingOrder(ctx context.Context, in CompletePendingOrderInput) (*model.Order, error) {
	args := rpc.Args{
		"p_order_id":   in.OrderID,
		"p_user_id":    in.OperatorID,
		"p_session_id": optionalID(in.SessionID),
	}
	in.Payment.args(args)

	raw, err := g.call(ctx, fnCompletePendingOrder, args)
	if err != nil {
		return nil, err
	}
	row, err := firstRow[orderRow](raw)
	if err != nil {
		return nil, decodeError(fnCompletePendingOrder, err)
	}
	if row == nil {
		return nil, nil
	}
	o := row.toModel()
	return &o, nil
}

// ── Direct sales & history ──

// CreateOrderInput is a cart paid at once, without going through the
// kitchen queue. TableID is optional.
type CreateOrderInput struct {
	OperatorID uuid.UUID
	SessionID  uuid.UUID
	TableID    uuid.UUID
	Items      []model.CartLine
	Payment    Payment
}

// CreateOrder records a completed order in one call.
func (g *Gateway) CreateOrder(ctx context.Context, in CreateOrderInput) (model.Order, error) {
	if len(in.Items) == 0 {
		return model.Order{}, NewError(KindItemsRequired)
	}
	args := rpc.Args{
		"p_user_id":    optionalID(in.OperatorID),
		"p_table_id":   optionalID(in.TableID),
		"p_items":      itemArgs(in.Items),
		"p_session_id": optionalID(in.SessionID),
	}
	in.Payment.args(args)

	raw, err := g.call(ctx, fnCreateOrder, args)
	if err != nil {
		return model.Order{}, err
	}
	row, err := firstRow[orderRow](raw)
	if err != nil {
		return model.Order{}, decodeError(fnCreateOrder, err)
	}
	if row == nil {
		return model.Order{}, NewError(KindNotCreated)
	}
	return row.toModel(), nil
}

// OrdersByOperator lists the operator's order history.
func (g *Gateway) OrdersByOperator(ctx context.Context, operatorID uuid.UUID) ([]model.Order, error) {
	if operatorID == uuid.Nil {
		return []model.Order{}, nil
	}
	raw, err := g.call(ctx, fnGetOrdersByUser, rpc.Args{"p_user_id": operatorID})
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[orderRow](raw)
	if err != nil {
		return nil, decodeError(fnGetOrdersByUser, err)
	}
	orders := make([]model.Order, len(rows))
	for i, r := range rows {
		orders[i] = r.toModel()
	}
	return orders, nil
}

// OrderItems lists the lines of a completed order with their corrections.
func (g *Gateway) OrderItems(ctx context.Context, orderID, operatorID uuid.UUID) ([]model.OrderItemDetail, error) {
	raw, err := g.call(ctx, fnGetOrderItems, rpc.Args{
		"p_order_id": orderID,
		"p_user_id":  optionalID(operatorID),
	})
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[orderItemRow](raw)
	if err != nil {
		return nil, decodeError(fnGetOrderItems, err)
	}
	items := make([]model.OrderItemDetail, len(rows))
	for i, r := range rows {
		items[i] = r.toModel()
	}
	return items, nil
}

// CancelOrderItemInput corrects a line of a completed order.
type CancelOrderItemInput struct {
	OrderItemID uuid.UUID
	OperatorID  uuid.UUID
	Quantity    int
	Reason      string
	Note        string
}

// CancelOrderItem reduces the net quantity of a completed line.
func (g *Gateway) CancelOrderItem(ctx context.Context, in CancelOrderItemInput) error {
	var qty any
	if in.Quantity > 0 {
		qty = in.Quantity
	}
	_, err := g.call(ctx, fnCancelOrderItem, rpc.Args{
		"p_order_item_id": in.OrderItemID,
		"p_user_id":       in.OperatorID,
		"p_cancel_qty":    qty,
		"p_reason":        optionalText(in.Reason),
		"p_note":          optionalText(in.Note),
	})
	return err
}

// optionalText sends "" as SQL NULL.
func optionalText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
