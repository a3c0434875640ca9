package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/firemart/storefront/internal/repository"
)

// SellerHandler serves the seller area: a seller sees the quotes they
// created or whose customer email matches their account, plus the renewal
// reminders hanging off those quotes.
type SellerHandler struct {
	Quotes    *repository.QuoteRepo
	Reminders *repository.ReminderRepo
}

func NewSellerHandler(q *repository.QuoteRepo, r *repository.ReminderRepo) *SellerHandler {
	return &SellerHandler{Quotes: q, Reminders: r}
}

// MyQuotes lists the caller's quotes newest first.
func (h *SellerHandler) MyQuotes(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Quotes.ListBySeller(ctx, userID(c), userEmail(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"quotes": items})
}

// MyQuote returns one of the caller's quotes with its items. A quote the
// caller does not own is reported as not found, not forbidden.
func (h *SellerHandler) MyQuote(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	q, items, err := h.Quotes.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "quote not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !h.ownsQuote(c, q) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "quote not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"quote": q, "items": items})
}

// MyReminders lists reminders for the caller's quotes, soonest first.
func (h *SellerHandler) MyReminders(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Reminders.ListBySeller(ctx, userID(c), userEmail(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reminders": items})
}

func (h *SellerHandler) ownsQuote(c echo.Context, q repository.Quote) bool {
	if q.CreatedBy != nil && *q.CreatedBy == userID(c) {
		return true
	}
	email := userEmail(c)
	return email != "" && q.CustomerEmail == email
}
