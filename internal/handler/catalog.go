package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cafepos/terminal/internal/model"
)

// CatalogBackend defines the gateway methods needed to build a cart.
type CatalogBackend interface {
	Products(ctx context.Context) ([]model.Product, error)
	Tables(ctx context.Context) ([]model.Table, error)
}

// CatalogHandler serves the product and table lists.
type CatalogHandler struct {
	backend CatalogBackend
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(backend CatalogBackend) *CatalogHandler {
	return &CatalogHandler{backend: backend}
}

// RegisterRoutes registers catalog endpoints.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/products", h.Products)
	r.Get("/tables", h.Tables)
}

// Products handles GET /products.
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.backend.Products(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Tables handles GET /tables.
func (h *CatalogHandler) Tables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.backend.Tables(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]tableResponse, 0, len(tables))
	for _, t := range tables {
		resp = append(resp, toTableResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}
