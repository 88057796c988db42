package handler

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cafepos/terminal/internal/coordinator"
	"github.com/cafepos/terminal/internal/model"
	"github.com/cafepos/terminal/internal/state"
)

// CartHandler edits the in-memory cart and the selected table. Products are
// resolved against the catalog so the cart always carries catalog prices.
type CartHandler struct {
	state   *state.AppState
	catalog CatalogBackend
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(st *state.AppState, catalog CatalogBackend) *CartHandler {
	return &CartHandler{state: st, catalog: catalog}
}

// RegisterRoutes registers cart endpoints.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/items", h.Add)
		r.Delete("/items/{productID}", h.Remove)
		r.Delete("/", h.Clear)
		r.Put("/table", h.SelectTable)
		r.Post("/split-check", h.SplitCheck)
	})
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
}

type selectTableRequest struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type splitCheckRequest struct {
	Cash string `json:"cash_amount"`
	Card string `json:"card_amount"`
}

func (h *CartHandler) respond(w http.ResponseWriter) {
	var table *model.Table
	if t, ok := h.state.Table(); ok {
		table = &t
	}
	writeJSON(w, http.StatusOK, toCartResponse(h.state.Cart(), table))
}

// Get handles GET /cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w)
}

// Add handles POST /cart/items. Adding a product already in the cart
// increments its quantity. Unknown or unavailable products are refused.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := uuid.Parse(req.ProductID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid product_id"})
		return
	}

	products, err := h.catalog.Products(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	idx := slices.IndexFunc(products, func(p model.Product) bool { return p.ID == id })
	if idx < 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "unknown product"})
		return
	}

	h.state.AddToCart(products[idx])
	h.respond(w)
}

// Remove handles DELETE /cart/items/{productID}.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "productID")
	if !ok {
		return
	}
	h.state.RemoveFromCart(id)
	h.respond(w)
}

// Clear handles DELETE /cart. The selected table is forgotten too.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.state.ClearOrder()
	h.respond(w)
}

// SelectTable handles PUT /cart/table.
func (h *CartHandler) SelectTable(w http.ResponseWriter, r *http.Request) {
	var req selectTableRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid table id"})
		return
	}
	h.state.SelectTable(model.Table{ID: id, Label: req.Label, Active: true})
	h.respond(w)
}

// SplitCheck handles POST /cart/split-check against the cart total.
func (h *CartHandler) SplitCheck(w http.ResponseWriter, r *http.Request) {
	var req splitCheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	total := model.CartTotal(h.state.Cart())
	writeJSON(w, http.StatusOK, toSplitResponse(coordinator.SplitCheck(total, req.Cash, req.Card)))
}
