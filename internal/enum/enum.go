package enum

// ── Group A: State machines (owned by the backend, mirrored here) ──

// OrderStatus is the lifecycle status of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further transition is possible from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// KitchenStatus is set by the kitchen; the terminal only reacts to it.
// The empty value means the kitchen has not looked at the order yet.
type KitchenStatus string

const (
	KitchenStatusNone     KitchenStatus = ""
	KitchenStatusNew      KitchenStatus = "new"
	KitchenStatusReady    KitchenStatus = "ready"
	KitchenStatusRejected KitchenStatus = "rejected"
)

// ItemStatus is the status of a line on a completed order.
type ItemStatus string

const (
	ItemStatusActive    ItemStatus = "active"
	ItemStatusCancelled ItemStatus = "cancelled"
)

// ── Group B: Operator choices (validated by the backend) ──

// CancelReason explains why a pending order or line was cancelled.
type CancelReason string

const (
	CancelReasonDamage CancelReason = "damage"
	CancelReasonLoss   CancelReason = "loss"
	CancelReasonCancel CancelReason = "cancel"
)

// Valid reports whether r is one of the known reasons.
func (r CancelReason) Valid() bool {
	switch r {
	case CancelReasonDamage, CancelReasonLoss, CancelReasonCancel:
		return true
	}
	return false
}

// PaymentMethod is how a completed order was paid.
type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodCard  PaymentMethod = "card"
	PaymentMethodOther PaymentMethod = "other"
	PaymentMethodSplit PaymentMethod = "split"
)

// Valid reports whether m is one of the known payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodOther, PaymentMethodSplit:
		return true
	}
	return false
}

// ── Group C: Borderline ──

const (
	RoleAdmin  = "admin"
	RoleServer = "server"
)

// Kitchen rejection reasons as sent by the kitchen screen.
const (
	KitchenReasonOutOfStock = "rupture"
	KitchenReasonBreakdown  = "panne"
	KitchenReasonOther      = "autre"
)

// ItemCancelReasonCorrection is the reason recorded when a line of an
// already completed order is corrected from the history view.
const ItemCancelReasonCorrection = "item_cancel"
