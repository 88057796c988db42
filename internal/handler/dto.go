package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cafepos/terminal/internal/coordinator"
	"github.com/cafepos/terminal/internal/enum"
	"github.com/cafepos/terminal/internal/model"
	"github.com/cafepos/terminal/internal/money"
)

// --- Response types ---
// Amounts are strings with two decimals.

type operatorResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role"`
}

type productResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category,omitempty"`
	Price    string    `json:"price"`
}

type tableResponse struct {
	ID       uuid.UUID `json:"id"`
	Label    string    `json:"label"`
	Capacity int       `json:"capacity"`
}

type cartLineResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice string    `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	Subtotal  string    `json:"subtotal"`
}

type cartResponse struct {
	Lines []cartLineResponse `json:"lines"`
	Total string             `json:"total"`
	Table *tableResponse     `json:"table,omitempty"`
}

type sessionResponse struct {
	ID             uuid.UUID  `json:"id"`
	OperatorID     uuid.UUID  `json:"operator_id"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	CollectedTotal string     `json:"collected_total"`
}

type pendingOrderResponse struct {
	ID               uuid.UUID  `json:"id"`
	OrderNumber      int        `json:"order_number"`
	TotalAmount      string     `json:"total_amount"`
	CreatedAt        time.Time  `json:"created_at"`
	Status           string     `json:"status"`
	TableID          *uuid.UUID `json:"table_id,omitempty"`
	TableLabel       string     `json:"table_label,omitempty"`
	KitchenStatus    string     `json:"kitchen_status,omitempty"`
	KitchenReason    string     `json:"kitchen_reason,omitempty"`
	KitchenNote      string     `json:"kitchen_note,omitempty"`
	KitchenUpdatedAt *time.Time `json:"kitchen_updated_at,omitempty"`
	DirectSale       bool       `json:"direct_sale"`
}

type pendingLineResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	Subtotal    string    `json:"subtotal"`
}

type orderResponse struct {
	ID            uuid.UUID `json:"id"`
	OrderNumber   int       `json:"order_number"`
	TotalAmount   string    `json:"total_amount"`
	CreatedAt     time.Time `json:"created_at"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Status        string    `json:"status"`
	TableLabel    string    `json:"table_label,omitempty"`
	CashAmount    *string   `json:"cash_amount,omitempty"`
	CardAmount    *string   `json:"card_amount,omitempty"`
}

type orderItemResponse struct {
	ID                uuid.UUID `json:"id"`
	ProductName       string    `json:"product_name"`
	Quantity          int       `json:"quantity"`
	CancelledQuantity int       `json:"cancelled_quantity"`
	NetQuantity       int       `json:"net_quantity"`
	UnitPrice         string    `json:"unit_price"`
	NetSubtotal       string    `json:"net_subtotal"`
	Status            string    `json:"status"`
	CancelReason      string    `json:"cancel_reason,omitempty"`
	CancelNote        string    `json:"cancel_note,omitempty"`
}

type splitResponse struct {
	Cash      string `json:"cash"`
	Card      string `json:"card"`
	Remaining string `json:"remaining"`
	Numeric   bool   `json:"numeric"`
	Valid     bool   `json:"valid"`
}

// --- Converters ---

func toOperatorResponse(op model.Operator) operatorResponse {
	return operatorResponse{ID: op.ID, Name: op.Name, Role: op.Role}
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{ID: p.ID, Name: p.Name, Category: p.Category, Price: money.Format(p.Price)}
}

func toTableResponse(t model.Table) tableResponse {
	return tableResponse{ID: t.ID, Label: t.Label, Capacity: t.Capacity}
}

func toCartResponse(lines []model.CartLine, table *model.Table) cartResponse {
	resp := cartResponse{
		Lines: make([]cartLineResponse, 0, len(lines)),
		Total: money.Format(model.CartTotal(lines)),
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, cartLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: money.Format(l.UnitPrice),
			Quantity:  l.Quantity,
			Subtotal:  money.Format(l.Subtotal()),
		})
	}
	if table != nil {
		t := toTableResponse(*table)
		resp.Table = &t
	}
	return resp
}

func toSessionResponse(s *model.Session) *sessionResponse {
	if s == nil {
		return nil
	}
	return &sessionResponse{
		ID:             s.ID,
		OperatorID:     s.OperatorID,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		CollectedTotal: money.Format(s.CollectedTotal),
	}
}

func toPendingOrderResponse(o model.PendingOrder) pendingOrderResponse {
	return pendingOrderResponse{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		TotalAmount:      money.Format(o.TotalAmount),
		CreatedAt:        o.CreatedAt,
		Status:           string(o.Status),
		TableID:          o.TableID,
		TableLabel:       o.TableLabel,
		KitchenStatus:    string(o.KitchenStatus),
		KitchenReason:    o.KitchenReason,
		KitchenNote:      o.KitchenNote,
		KitchenUpdatedAt: o.KitchenUpdatedAt,
		DirectSale:       o.DirectSale(),
	}
}

func toPendingOrderList(orders []model.PendingOrder) []pendingOrderResponse {
	out := make([]pendingOrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toPendingOrderResponse(o))
	}
	return out
}

func toPendingLineList(lines []model.PendingOrderLine) []pendingLineResponse {
	out := make([]pendingLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, pendingLineResponse{
			ID:          l.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   money.Format(l.UnitPrice),
			Subtotal:    money.Format(l.Subtotal),
		})
	}
	return out
}

func formatOptional(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := money.Format(*d)
	return &s
}

func toOrderResponse(o model.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		TotalAmount:   money.Format(o.TotalAmount),
		CreatedAt:     o.CreatedAt,
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
		TableLabel:    o.TableLabel,
		CashAmount:    formatOptional(o.CashAmount),
		CardAmount:    formatOptional(o.CardAmount),
	}
}

func toOrderItemList(items []model.OrderItemDetail) []orderItemResponse {
	out := make([]orderItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, orderItemResponse{
			ID:                it.ID,
			ProductName:       it.ProductName,
			Quantity:          it.Quantity,
			CancelledQuantity: it.CancelledQuantity,
			NetQuantity:       it.NetQuantity,
			UnitPrice:         money.Format(it.UnitPrice),
			NetSubtotal:       money.Format(it.NetSubtotal),
			Status:            string(it.Status),
			CancelReason:      it.CancelReason,
			CancelNote:        it.CancelNote,
		})
	}
	return out
}

func toSplitResponse(st coordinator.SplitStatus) splitResponse {
	return splitResponse{
		Cash:      money.Format(st.Cash),
		Card:      money.Format(st.Card),
		Remaining: money.Format(st.Remaining),
		Numeric:   st.Numeric,
		Valid:     st.Valid,
	}
}

type paymentRequest struct {
	Method string `json:"method"`
	Cash   string `json:"cash_amount"`
	Card   string `json:"card_amount"`
}

func (p paymentRequest) toPayment() coordinator.PaymentRequest {
	return coordinator.PaymentRequest{Method: enum.PaymentMethod(p.Method), Cash: p.Cash, Card: p.Card}
}
