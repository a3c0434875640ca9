package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/firemart/storefront/internal/realtime"
	"github.com/firemart/storefront/internal/repository"
)

// AdminProductHandler is the back-office catalog management surface.
type AdminProductHandler struct {
	Products *repository.ProductRepo
	Hub      *realtime.Hub
}

func NewAdminProductHandler(p *repository.ProductRepo, hub *realtime.Hub) *AdminProductHandler {
	return &AdminProductHandler{Products: p, Hub: hub}
}

type productReq struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Capacity    string  `json:"capacity"`
	PriceCents  uint32  `json:"price_cents"`
	Description string  `json:"description"`
	SupplierID  *uint64 `json:"supplier_id"`
	IsActive    *bool   `json:"is_active"`
}

func (r *productReq) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	if r.Name == "" {
		return "name required"
	}
	switch r.Type {
	case "powder", "foam", "co2", "water":
	default:
		return "type must be powder, foam, co2 or water"
	}
	if r.PriceCents == 0 {
		return "price_cents required"
	}
	return ""
}

// List returns every product, inactive ones included.
func (h *AdminProductHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Products.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]productView, 0, len(items))
	for _, p := range items {
		out = append(out, toProductView(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"products": out})
}

// Get returns one product regardless of its active flag.
func (h *AdminProductHandler) Get(c echo.Context) error {
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
	return c.JSON(http.StatusOK, toProductView(p))
}

// Create adds a product to the catalog. New products default to active
// unless the request says otherwise.
func (h *AdminProductHandler) Create(c echo.Context) error {
	var req productReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	p := repository.Product{
		Name:        req.Name,
		Type:        req.Type,
		Capacity:    strings.TrimSpace(req.Capacity),
		PriceCents:  req.PriceCents,
		Description: req.Description,
		SupplierID:  req.SupplierID,
		IsActive:    active,
	}
	if err := h.Products.Create(ctx, &p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	h.Hub.Publish(ctx, "products", "insert", p.ID)
	return c.JSON(http.StatusCreated, toProductView(p))
}

// Update rewrites a product's fields.
func (h *AdminProductHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req productReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	p := repository.Product{
		ID:          id,
		Name:        req.Name,
		Type:        req.Type,
		Capacity:    strings.TrimSpace(req.Capacity),
		PriceCents:  req.PriceCents,
		Description: req.Description,
		SupplierID:  req.SupplierID,
		IsActive:    active,
	}
	if err := h.Products.Update(ctx, &p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.Hub.Publish(ctx, "products", "update", id)
	return c.JSON(http.StatusOK, toProductView(p))
}

// Delete removes a product. A product referenced by quote items cannot be
// deleted; deactivate it instead.
func (h *AdminProductHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Products.Delete(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "product is referenced by quotes; deactivate it instead"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	h.Hub.Publish(ctx, "products", "delete", id)
	return c.NoContent(http.StatusNoContent)
}
