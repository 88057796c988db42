package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cafepos/terminal/internal/coordinator"
	"github.com/cafepos/terminal/internal/model"
)

// HistoryCoordinator defines the completed-order operations.
type HistoryCoordinator interface {
	History(ctx context.Context) ([]model.Order, error)
	OrderDetails(ctx context.Context, orderID uuid.UUID) ([]model.OrderItemDetail, error)
	CorrectOrderItem(ctx context.Context, req coordinator.CorrectItemRequest) ([]model.OrderItemDetail, error)
}

// HistoryHandler serves the operator's completed orders.
type HistoryHandler struct {
	coord HistoryCoordinator
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(coord HistoryCoordinator) *HistoryHandler {
	return &HistoryHandler{coord: coord}
}

// RegisterRoutes registers history endpoints.
func (h *HistoryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/history", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{orderID}/items", h.Items)
		r.Post("/{orderID}/items/{itemID}/cancel", h.CancelItem)
	})
}

type correctItemRequest struct {
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
}

// List handles GET /history.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.coord.History(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Items handles GET /history/{orderID}/items.
func (h *HistoryHandler) Items(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "orderID")
	if !ok {
		return
	}
	items, err := h.coord.OrderDetails(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderItemList(items))
}

// CancelItem handles POST /history/{orderID}/items/{itemID}/cancel. A zero
// quantity cancels what is left on the line.
func (h *HistoryHandler) CancelItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "orderID")
	if !ok {
		return
	}
	itemID, ok := urlUUID(w, r, "itemID")
	if !ok {
		return
	}
	var req correctItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items, err := h.coord.CorrectOrderItem(r.Context(), coordinator.CorrectItemRequest{
		OrderID:  orderID,
		ItemID:   itemID,
		Quantity: req.Quantity,
		Note:     req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderItemList(items))
}
