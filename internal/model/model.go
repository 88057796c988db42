// Package model defines the client-local shapes the gateway normalizes
// backend rows into. Nothing here talks to the network.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cafepos/terminal/internal/enum"
	"github.com/cafepos/terminal/internal/money"
)

// Operator is the logged-in server or admin.
type Operator struct {
	ID   uuid.UUID
	Name string
	Role string
}

// Product is a sellable catalog entry.
type Product struct {
	ID       uuid.UUID
	Name     string
	Category string
	Price    decimal.Decimal
}

// Table is a seating location orders can be attached to.
type Table struct {
	ID       uuid.UUID
	Label    string
	Capacity int
	Active   bool
}

// CartLine is one product in the in-memory cart. Quantity is always >= 1.
type CartLine struct {
	ProductID uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal is UnitPrice × Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return money.LineTotal(l.UnitPrice, l.Quantity)
}

// CartTotal sums the subtotals of lines.
func CartTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return money.Round(total)
}

// Session is a server's cash-drawer session. A nil EndTime means open.
type Session struct {
	ID             uuid.UUID
	OperatorID     uuid.UUID
	StartTime      time.Time
	EndTime        *time.Time
	CollectedTotal decimal.Decimal
}

// Open reports whether the session has not been closed.
func (s Session) Open() bool {
	return s.EndTime == nil
}

// PendingOrder is an order waiting for payment, usually also waiting on
// the kitchen.
type PendingOrder struct {
	ID               uuid.UUID
	OrderNumber      int
	TotalAmount      decimal.Decimal
	CreatedAt        time.Time
	Status           enum.OrderStatus
	TableID          *uuid.UUID
	TableLabel       string
	SessionID        *uuid.UUID
	KitchenStatus    enum.KitchenStatus
	KitchenReason    string
	KitchenNote      string
	KitchenUpdatedAt *time.Time
	CancelReason     enum.CancelReason
	CancelNote       string
}

// DirectSale reports whether the order is not attached to a table.
func (o PendingOrder) DirectSale() bool {
	return o.TableID == nil && o.TableLabel == ""
}

// PendingOrderLine is a line of a pending order.
type PendingOrderLine struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// OrderItemDetail is a line of a completed order including corrections.
type OrderItemDetail struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	ProductID         uuid.UUID
	ProductName       string
	Quantity          int
	CancelledQuantity int
	UnitPrice         decimal.Decimal
	NetQuantity       int
	NetSubtotal       decimal.Decimal
	Status            enum.ItemStatus
	CancelReason      string
	CancelNote        string
	CreatedAt         *time.Time
}

// Order is a completed (or cancelled) order as shown in the history.
type Order struct {
	ID            uuid.UUID
	OrderNumber   int
	TotalAmount   decimal.Decimal
	CreatedAt     time.Time
	PaymentMethod enum.PaymentMethod
	Status        enum.OrderStatus
	OperatorID    *uuid.UUID
	TableID       *uuid.UUID
	TableLabel    string
	SessionID     *uuid.UUID
	CancelReason  enum.CancelReason
	CancelNote    string
	CashAmount    *decimal.Decimal
	CardAmount    *decimal.Decimal
}

// OrderStatusChange is what the backend returns after a line-level
// cancellation: the resulting order totals and status.
type OrderStatusChange struct {
	OrderID     uuid.UUID
	OrderNumber int
	TotalAmount decimal.Decimal
	Status      enum.OrderStatus
}
