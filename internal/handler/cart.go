package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/firemart/storefront/internal/cart"
	"github.com/firemart/storefront/internal/realtime"
	"github.com/firemart/storefront/internal/repository"
)

// CartHandler manages the per-user shopping cart and turns it into a quote
// request at checkout. Carts live in the cart store keyed by user id;
// product details are snapshotted into the cart when a line is added.
type CartHandler struct {
	Carts    *cart.Store
	Products *repository.ProductRepo
	Quotes   *repository.QuoteRepo
	Hub      *realtime.Hub
}

func NewCartHandler(cs *cart.Store, p *repository.ProductRepo, q *repository.QuoteRepo, hub *realtime.Hub) *CartHandler {
	return &CartHandler{Carts: cs, Products: p, Quotes: q, Hub: hub}
}

type addItemReq struct {
	ProductID uint64 `json:"product_id"`
	Quantity  uint32 `json:"quantity"`
}
type updateItemReq struct {
	Quantity uint32 `json:"quantity"`
}
type checkoutReq struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Notes         string `json:"notes"`
}

func cartResponse(c echo.Context, ct *cart.Cart) error {
	return c.JSON(http.StatusOK, echo.Map{
		"items":       ct.Items,
		"total_cents": ct.TotalCents(),
		"count":       ct.Count(),
	})
}

// Get returns the caller's cart.
func (h *CartHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	ct, err := h.Carts.Load(ctx, userID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cart load failed"})
	}
	return cartResponse(c, ct)
}

// Add puts a product into the cart, snapshotting its name, type and price.
// Adding a product already in the cart merges quantities into one line.
func (h *CartHandler) Add(c echo.Context) error {
	var req addItemReq
	if err := c.Bind(&req); err != nil || req.ProductID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "product_id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Products.GetByID(ctx, req.ProductID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !p.IsActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "product no longer available"})
	}

	uid := userID(c)
	ct, err := h.Carts.Load(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cart load failed"})
	}
	ct.Add(cart.Item{
		ProductID:  p.ID,
		Name:       p.Name,
		Type:       p.Type,
		PriceCents: p.PriceCents,
		Quantity:   req.Quantity,
	})
	if err := h.Carts.Save(ctx, uid, ct); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cart save failed"})
	}
	return cartResponse(c, ct)
}

// UpdateItem sets a line's quantity; zero removes the line.
func (h *CartHandler) UpdateItem(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid := userID(c)
	ct, err := h.Carts.Load(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cart load failed"})
	}
	ct.UpdateQuantity(id, req.Quantity)
	if err := h.Carts.Save(ctx, uid, ct); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cart save failed"})
	}
	return cartResponse(c, ct)
}

// RemoveItem deletes a line from the cart.
func (h *CartHandler) RemoveItem(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid := userID(c)
	ct, err := h.Carts.Load(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cart load failed"})
	}
	ct.Remove(id)
	if err := h.Carts.Save(ctx, uid, ct); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cart save failed"})
	}
	return cartResponse(c, ct)
}

// Clear empties the cart.
func (h *CartHandler) Clear(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Carts.Drop(ctx, userID(c)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cart clear failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Checkout converts the cart into a pending quote request. The cart's
// snapshotted lines become quote items verbatim; the cart is dropped once
// the quote is stored.
func (h *CartHandler) Checkout(c echo.Context) error {
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	if req.CustomerName == "" || req.CustomerPhone == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer_name/customer_phone required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid := userID(c)
	ct, err := h.Carts.Load(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cart load failed"})
	}
	if len(ct.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cart is empty"})
	}

	email := strings.TrimSpace(req.CustomerEmail)
	if email == "" {
		email = userEmail(c)
	}

	q := repository.Quote{
		Reference:     uuid.NewString(),
		CreatedBy:     &uid,
		CustomerName:  req.CustomerName,
		CustomerEmail: email,
		CustomerPhone: req.CustomerPhone,
		Status:        repository.QuoteStatusPending,
		TotalCents:    ct.TotalCents(),
		Notes:         req.Notes,
	}
	items := make([]repository.QuoteItem, 0, len(ct.Items))
	for _, it := range ct.Items {
		items = append(items, repository.QuoteItem{
			ProductID:  it.ProductID,
			Name:       it.Name,
			Type:       it.Type,
			PriceCents: it.PriceCents,
			Quantity:   it.Quantity,
		})
	}
	if err := h.Quotes.Create(ctx, &q, items); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "quote create failed"})
	}
	_ = h.Carts.Drop(ctx, uid)
	h.Hub.Publish(ctx, "quotes", "insert", q.ID)

	return c.JSON(http.StatusCreated, echo.Map{
		"quote_id":    q.ID,
		"reference":   q.Reference,
		"status":      q.Status,
		"total_cents": q.TotalCents,
	})
}
