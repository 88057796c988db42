package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cafepos/terminal/internal/coordinator"
	"github.com/cafepos/terminal/internal/enum"
	"github.com/cafepos/terminal/internal/model"
	"github.com/cafepos/terminal/internal/money"
	"github.com/cafepos/terminal/internal/state"
)

// OrderCoordinator defines the order lifecycle operations used by the handler.
type OrderCoordinator interface {
	SubmitPending(ctx context.Context) (coordinator.SubmitResult, error)
	PendingItems(ctx context.Context, orderID uuid.UUID) ([]model.PendingOrderLine, error)
	CancelPending(ctx context.Context, req coordinator.CancelPendingRequest) (coordinator.Route, error)
	CancelPendingItem(ctx context.Context, req coordinator.CancelItemRequest) (coordinator.CancelItemResult, error)
	Pay(ctx context.Context, orderID uuid.UUID, req coordinator.PaymentRequest) (coordinator.PayResult, error)
	DirectCheckout(ctx context.Context, req coordinator.PaymentRequest) (coordinator.CheckoutResult, error)
}

// PendingPoller defines the polling controls used by the orders screen.
type PendingPoller interface {
	Refresh(ctx context.Context) ([]model.PendingOrder, error)
	Mount()
	Unmount()
}

// OrderHandler handles the pending order lifecycle endpoints.
type OrderHandler struct {
	coord  OrderCoordinator
	poller PendingPoller
	state  *state.AppState
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(coord OrderCoordinator, poller PendingPoller, st *state.AppState) *OrderHandler {
	return &OrderHandler{coord: coord, poller: poller, state: st}
}

// RegisterRoutes registers order endpoints.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/checkout", h.Checkout)
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.Submit)
		r.Get("/pending", h.ListPending)
		r.Post("/pending/refresh", h.RefreshPending)
		r.Post("/screen/mount", h.Mount)
		r.Post("/screen/unmount", h.Unmount)

		r.Route("/pending/{orderID}", func(r chi.Router) {
			r.Get("/items", h.Items)
			r.Get("/cancel-reasons", h.CancelReasons)
			r.Post("/cancel", h.Cancel)
			r.Post("/items/{itemID}/cancel", h.CancelItem)
			r.Post("/split-check", h.SplitCheck)
			r.Post("/pay", h.Pay)
		})
	})
}

// --- Request / Response types ---

type cancelRequest struct {
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

type cancelItemRequest struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
	Note     string `json:"note"`
}

type pendingListResponse struct {
	Orders []pendingOrderResponse `json:"orders"`
	Error  string                 `json:"error,omitempty"`
}

type submitResponse struct {
	Order    pendingOrderResponse `json:"order"`
	Redirect string               `json:"redirect"`
}

type cancelItemResponse struct {
	OrderID        uuid.UUID             `json:"order_id"`
	OrderStatus    string                `json:"order_status"`
	TotalAmount    string                `json:"total_amount"`
	OrderCancelled bool                  `json:"order_cancelled"`
	Lines          []pendingLineResponse `json:"lines"`
	Redirect       string                `json:"redirect,omitempty"`
}

type paidResponse struct {
	Order    *orderResponse `json:"order,omitempty"`
	Redirect string         `json:"redirect"`
}

// --- Handlers ---

// Submit handles POST /orders: the cart goes to the kitchen as a pending
// order for the selected table.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	res, err := h.coord.SubmitPending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{
		Order:    toPendingOrderResponse(res.Order),
		Redirect: string(res.Route),
	})
}

// ListPending handles GET /orders/pending from the last refresh.
func (h *OrderHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	orders, err := h.state.PendingOrders()
	writeJSON(w, http.StatusOK, pendingList(orders, err))
}

// RefreshPending handles POST /orders/pending/refresh (pull to refresh).
// A failed refresh still answers 200 with an empty list and the error.
func (h *OrderHandler) RefreshPending(w http.ResponseWriter, r *http.Request) {
	if h.state.OperatorID() == uuid.Nil {
		writeError(w, coordinator.ErrNotLoggedIn)
		return
	}
	orders, err := h.poller.Refresh(r.Context())
	writeJSON(w, http.StatusOK, pendingList(orders, err))
}

func pendingList(orders []model.PendingOrder, err error) pendingListResponse {
	resp := pendingListResponse{Orders: toPendingOrderList(orders)}
	if err != nil {
		_, body := errorStatus(err)
		resp.Error = body.Error
	}
	return resp
}

// Mount handles POST /orders/screen/mount: the orders screen gained focus.
func (h *OrderHandler) Mount(w http.ResponseWriter, r *http.Request) {
	h.poller.Mount()
	w.WriteHeader(http.StatusNoContent)
}

// Unmount handles POST /orders/screen/unmount.
func (h *OrderHandler) Unmount(w http.ResponseWriter, r *http.Request) {
	h.poller.Unmount()
	w.WriteHeader(http.StatusNoContent)
}

// Items handles GET /orders/pending/{orderID}/items.
func (h *OrderHandler) Items(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "orderID")
	if !ok {
		return
	}
	lines, err := h.coord.PendingItems(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPendingLineList(lines))
}

// CancelReasons handles GET /orders/pending/{orderID}/cancel-reasons.
func (h *OrderHandler) CancelReasons(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "orderID")
	if !ok {
		return
	}
	order, found := h.state.PendingOrder(orderID)
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, coordinator.AllowedCancelReasons(order.KitchenStatus))
}

// Cancel handles POST /orders/pending/{orderID}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "orderID")
	if !ok {
		return
	}
	var req cancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.coord.CancelPending(r.Context(), coordinator.CancelPendingRequest{
		OrderID: orderID,
		Reason:  enum.CancelReason(req.Reason),
		Note:    req.Note,
	}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelItem handles POST /orders/pending/{orderID}/items/{itemID}/cancel.
func (h *OrderHandler) CancelItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "orderID")
	if !ok {
		return
	}
	itemID, ok := urlUUID(w, r, "itemID")
	if !ok {
		return
	}
	var req cancelItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.coord.CancelPendingItem(r.Context(), coordinator.CancelItemRequest{
		OrderID:  orderID,
		ItemID:   itemID,
		Quantity: req.Quantity,
		Reason:   enum.CancelReason(req.Reason),
		Note:     req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelItemResponse{
		OrderID:        res.Change.OrderID,
		OrderStatus:    string(res.Change.Status),
		TotalAmount:    money.Format(res.Change.TotalAmount),
		OrderCancelled: res.OrderCancelled,
		Lines:          toPendingLineList(res.Lines),
		Redirect:       string(res.Route),
	})
}

// SplitCheck handles POST /orders/pending/{orderID}/split-check against
// the order total.
func (h *OrderHandler) SplitCheck(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "orderID")
	if !ok {
		return
	}
	var req splitCheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, found := h.state.PendingOrder(orderID)
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, toSplitResponse(coordinator.SplitCheck(order.TotalAmount, req.Cash, req.Card)))
}

// Pay handles POST /orders/pending/{orderID}/pay.
func (h *OrderHandler) Pay(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "orderID")
	if !ok {
		return
	}
	var req paymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.coord.Pay(r.Context(), orderID, req.toPayment())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := paidResponse{Redirect: string(res.Route)}
	if res.Order != nil {
		o := toOrderResponse(*res.Order)
		resp.Order = &o
	}
	writeJSON(w, http.StatusOK, resp)
}

// Checkout handles POST /checkout: a direct sale of the cart.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.coord.DirectCheckout(r.Context(), req.toPayment())
	if err != nil {
		writeError(w, err)
		return
	}
	o := toOrderResponse(res.Order)
	writeJSON(w, http.StatusCreated, paidResponse{Order: &o, Redirect: string(res.Route)})
}
