package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/firemart/storefront/internal/repository"
)

// CatalogHandler serves the public product catalog. Guests browse without
// authentication; only active products are visible here.
type CatalogHandler struct {
	Products *repository.ProductRepo
}

func NewCatalogHandler(p *repository.ProductRepo) *CatalogHandler {
	return &CatalogHandler{Products: p}
}

type productView struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Capacity    string  `json:"capacity"`
	PriceCents  uint32  `json:"price_cents"`
	Description string  `json:"description"`
	SupplierID  *uint64 `json:"supplier_id,omitempty"`
	IsActive    bool    `json:"is_active"`
}

func toProductView(p repository.Product) productView {
	return productView{
		ID:          p.ID,
		Name:        p.Name,
		Type:        p.Type,
		Capacity:    p.Capacity,
		PriceCents:  p.PriceCents,
		Description: p.Description,
		SupplierID:  p.SupplierID,
		IsActive:    p.IsActive,
	}
}

// List returns active products, optionally filtered by extinguishing agent
// type via ?type=powder|foam|co2|water.
func (h *CatalogHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Products.ListActive(ctx, c.QueryParam("type"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]productView, 0, len(items))
	for _, p := range items {
		out = append(out, toProductView(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"products": out})
}

// Get returns one product. Inactive products are hidden from the public
// catalog and reported as not found.
func (h *CatalogHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !p.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}
	return c.JSON(http.StatusOK, toProductView(p))
}
