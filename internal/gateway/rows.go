package gateway

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cafepos/terminal/internal/enum"
	"github.com/cafepos/terminal/internal/model"
)

// decodeRows decodes a procedure result into rows. Procedures answer with a
// single object, an array of objects or null depending on how they are
// declared and which transport is used.
func decodeRows[T any](raw json.RawMessage) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch tt := jx.DecodeBytes(raw).Next(); tt {
	case jx.Null:
		return nil, nil
	case jx.Object:
		var row T
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, errors.Wrap(err, "decode row")
		}
		return []T{row}, nil
	case jx.Array:
		var rows []T
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, errors.Wrap(err, "decode rows")
		}
		return rows, nil
	default:
		return nil, errors.Errorf("unexpected %s payload", tt)
	}
}

// firstRow returns the first row of a single-row procedure, or nil when
// the procedure returned nothing.
func firstRow[T any](raw json.RawMessage) (*T, error) {
	rows, err := decodeRows[T](raw)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// ── Wire rows ──

type operatorRow struct {
	ID        uuid.UUID `json:"id"`
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	Role      string    `json:"role"`
	IsActive  *bool     `json:"is_active"`
}

func (r operatorRow) active() bool {
	return r.IsActive == nil || *r.IsActive
}

func (r operatorRow) toModel() model.Operator {
	name := strings.TrimSpace(deref(r.FirstName) + " " + deref(r.LastName))
	if name == "" {
		name = "Utilisateur"
	}
	return model.Operator{ID: r.ID, Name: name, Role: r.Role}
}

type productRow struct {
	ID       uuid.UUID           `json:"id"`
	Name     string              `json:"name"`
	Category *string             `json:"category"`
	Price    decimal.NullDecimal `json:"price"`
}

func (r productRow) toModel() model.Product {
	return model.Product{
		ID:       r.ID,
		Name:     r.Name,
		Category: deref(r.Category),
		Price:    orZero(r.Price),
	}
}

type tableRow struct {
	ID       uuid.UUID `json:"id"`
	Label    string    `json:"label"`
	Capacity *int      `json:"capacity"`
	IsActive *bool     `json:"is_active"`
}

func (r tableRow) toModel() model.Table {
	return model.Table{
		ID:       r.ID,
		Label:    r.Label,
		Capacity: deref(r.Capacity),
		Active:   r.IsActive == nil || *r.IsActive,
	}
}

type sessionRow struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"user_id"`
	StartTime     time.Time           `json:"start_time"`
	EndTime       *time.Time          `json:"end_time"`
	TotalCollecte decimal.NullDecimal `json:"total_collecte"`
}

func (r sessionRow) toModel() model.Session {
	return model.Session{
		ID:             r.ID,
		OperatorID:     r.UserID,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		CollectedTotal: orZero(r.TotalCollecte),
	}
}

// tableRef is the embedded relation some procedures return instead of a
// flat table_label.
type tableRef struct {
	Label string `json:"label"`
}

type pendingOrderRow struct {
	ID               uuid.UUID           `json:"id"`
	OrderNumber      *int                `json:"order_number"`
	TotalAmount      decimal.NullDecimal `json:"total_amount"`
	CreatedAt        time.Time           `json:"created_at"`
	Status           *string             `json:"status"`
	TableID          *uuid.UUID          `json:"table_id"`
	TableLabel       *string             `json:"table_label"`
	Tables           *tableRef           `json:"tables"`
	SessionID        *uuid.UUID          `json:"session_id"`
	KitchenStatus    *string             `json:"kitchen_status"`
	KitchenReason    *string             `json:"kitchen_reason"`
	KitchenNote      *string             `json:"kitchen_note"`
	KitchenUpdatedAt *time.Time          `json:"kitchen_updated_at"`
	CancelReason     *string             `json:"cancel_reason"`
	CancelNote       *string             `json:"cancel_note"`
}

func (r pendingOrderRow) toModel() model.PendingOrder {
	status := enum.OrderStatusPending
	if r.Status != nil && *r.Status != "" {
		status = enum.OrderStatus(*r.Status)
	}
	return model.PendingOrder{
		ID:               r.ID,
		OrderNumber:      deref(r.OrderNumber),
		TotalAmount:      orZero(r.TotalAmount),
		CreatedAt:        r.CreatedAt,
		Status:           status,
		TableID:          r.TableID,
		TableLabel:       label(r.TableLabel, r.Tables),
		SessionID:        r.SessionID,
		KitchenStatus:    enum.KitchenStatus(deref(r.KitchenStatus)),
		KitchenReason:    deref(r.KitchenReason),
		KitchenNote:      deref(r.KitchenNote),
		KitchenUpdatedAt: r.KitchenUpdatedAt,
		CancelReason:     enum.CancelReason(deref(r.CancelReason)),
		CancelNote:       deref(r.CancelNote),
	}
}

type pendingLineRow struct {
	ID          uuid.UUID           `json:"id"`
	ProductID   uuid.UUID           `json:"product_id"`
	ProductName *string             `json:"product_name"`
	Quantity    *int                `json:"quantity"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
	Subtotal    decimal.NullDecimal `json:"subtotal"`
}

func (r pendingLineRow) toModel() model.PendingOrderLine {
	qty := deref(r.Quantity)
	price := orZero(r.UnitPrice)
	subtotal := price.Mul(decimal.NewFromInt(int64(qty)))
	if r.Subtotal.Valid {
		subtotal = r.Subtotal.Decimal
	}
	return model.PendingOrderLine{
		ID:          r.ID,
		ProductID:   r.ProductID,
		ProductName: deref(r.ProductName),
		Quantity:    qty,
		UnitPrice:   price,
		Subtotal:    subtotal,
	}
}

type orderItemRow struct {
	ID                uuid.UUID           `json:"id"`
	OrderID           uuid.UUID           `json:"order_id"`
	ProductID         uuid.UUID           `json:"product_id"`
	ProductName       *string             `json:"product_name"`
	Quantity          *int                `json:"quantity"`
	CancelledQuantity *int                `json:"cancelled_quantity"`
	UnitPrice         decimal.NullDecimal `json:"unit_price"`
	NetQuantity       *int                `json:"net_quantity"`
	NetSubtotal       decimal.NullDecimal `json:"net_subtotal"`
	Status            *string             `json:"status"`
	CancelReason      *string             `json:"cancel_reason"`
	CancelNote        *string             `json:"cancel_note"`
	CreatedAt         *time.Time          `json:"created_at"`
}

// toModel fills the derived net fields when the backend left them out.
// The net quantity never goes below zero.
func (r orderItemRow) toModel() model.OrderItemDetail {
	qty := deref(r.Quantity)
	cancelled := deref(r.CancelledQuantity)
	price := orZero(r.UnitPrice)

	net := qty - cancelled
	if r.NetQuantity != nil {
		net = *r.NetQuantity
	}
	net = max(net, 0)

	netSubtotal := price.Mul(decimal.NewFromInt(int64(net)))
	if r.NetSubtotal.Valid {
		netSubtotal = r.NetSubtotal.Decimal
	}

	status := enum.ItemStatusActive
	if r.Status != nil && *r.Status != "" {
		status = enum.ItemStatus(*r.Status)
	}

	return model.OrderItemDetail{
		ID:                r.ID,
		OrderID:           r.OrderID,
		ProductID:         r.ProductID,
		ProductName:       deref(r.ProductName),
		Quantity:          qty,
		CancelledQuantity: cancelled,
		UnitPrice:         price,
		NetQuantity:       net,
		NetSubtotal:       netSubtotal,
		Status:            status,
		CancelReason:      deref(r.CancelReason),
		CancelNote:        deref(r.CancelNote),
		CreatedAt:         r.CreatedAt,
	}
}

type orderRow struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   *int                `json:"order_number"`
	TotalAmount   decimal.NullDecimal `json:"total_amount"`
	CreatedAt     time.Time           `json:"created_at"`
	PaymentMethod *string             `json:"payment_method"`
	Status        *string             `json:"status"`
	UserID        *uuid.UUID          `json:"user_id"`
	TableID       *uuid.UUID          `json:"table_id"`
	TableLabel    *string             `json:"table_label"`
	Tables        *tableRef           `json:"tables"`
	SessionID     *uuid.UUID          `json:"session_id"`
	CancelReason  *string             `json:"cancel_reason"`
	CancelNote    *string             `json:"cancel_note"`
	CashAmount    decimal.NullDecimal `json:"cash_amount"`
	CardAmount    decimal.NullDecimal `json:"card_amount"`
}

func (r orderRow) toModel() model.Order {
	return model.Order{
		ID:            r.ID,
		OrderNumber:   deref(r.OrderNumber),
		TotalAmount:   orZero(r.TotalAmount),
		CreatedAt:     r.CreatedAt,
		PaymentMethod: enum.PaymentMethod(deref(r.PaymentMethod)),
		Status:        enum.OrderStatus(deref(r.Status)),
		OperatorID:    r.UserID,
		TableID:       r.TableID,
		TableLabel:    label(r.TableLabel, r.Tables),
		SessionID:     r.SessionID,
		CancelReason:  enum.CancelReason(deref(r.CancelReason)),
		CancelNote:    deref(r.CancelNote),
		CashAmount:    nullable(r.CashAmount),
		CardAmount:    nullable(r.CardAmount),
	}
}

// statusChangeRow is returned by line-level cancellations.
type statusChangeRow struct {
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNumber *int                `json:"order_number"`
	TotalAmount decimal.NullDecimal `json:"total_amount"`
	Status      *string             `json:"status"`
}

func (r statusChangeRow) toModel() model.OrderStatusChange {
	return model.OrderStatusChange{
		OrderID:     r.OrderID,
		OrderNumber: deref(r.OrderNumber),
		TotalAmount: orZero(r.TotalAmount),
		Status:      enum.OrderStatus(deref(r.Status)),
	}
}

// itemArg is one element of the p_items argument.
type itemArg struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func itemArgs(lines []model.CartLine) []itemArg {
	out := make([]itemArg, len(lines))
	for i, l := range lines {
		out[i] = itemArg{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	return out
}

// ── Helpers ──

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func label(flat *string, ref *tableRef) string {
	if flat != nil && *flat != "" {
		return *flat
	}
	if ref != nil {
		return ref.Label
	}
	return ""
}

// optionalID sends uuid.Nil as SQL NULL.
func optionalID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
