package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/firemart/storefront/internal/realtime"
	"github.com/firemart/storefront/internal/reminder"
	"github.com/firemart/storefront/internal/repository"
)

// AdminQuoteHandler is the back-office quote workflow: review incoming
// requests and move them through the status lifecycle. Approving a quote is
// the transition that spawns its renewal reminder.
type AdminQuoteHandler struct {
	Quotes    *repository.QuoteRepo
	Reminders *repository.ReminderRepo
	Hub       *realtime.Hub
	Log       *zap.Logger
}

func NewAdminQuoteHandler(q *repository.QuoteRepo, rem *repository.ReminderRepo, hub *realtime.Hub, log *zap.Logger) *AdminQuoteHandler {
	return &AdminQuoteHandler{Quotes: q, Reminders: rem, Hub: hub, Log: log}
}

type quoteStatusReq struct {
	Status string `json:"status"`
}

func validQuoteStatus(s string) bool {
	switch s {
	case repository.QuoteStatusPending, repository.QuoteStatusApproved,
		repository.QuoteStatusRejected, repository.QuoteStatusCompleted,
		repository.QuoteStatusCancelled:
		return true
	}
	return false
}

// List returns quotes newest first, optionally filtered by ?status=.
func (h *AdminQuoteHandler) List(c echo.Context) error {
	status := strings.ToLower(strings.TrimSpace(c.QueryParam("status")))
	if status != "" && !validQuoteStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Quotes.ListAll(ctx, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"quotes": items})
}

// Get returns a quote with its line items.
func (h *AdminQuoteHandler) Get(c echo.Context) error {
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
	return c.JSON(http.StatusOK, echo.Map{"quote": q, "items": items})
}

// UpdateStatus moves a quote to a new status. On the transition into
// approved (and only on that transition; re-approving is a no-op for
// reminders) a renewal reminder is scheduled one year out.
func (h *AdminQuoteHandler) UpdateStatus(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req quoteStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !validQuoteStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	previous, err := h.Quotes.UpdateStatus(ctx, id, status)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "quote not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.Hub.Publish(ctx, "quotes", "update", id)

	if status == repository.QuoteStatusApproved && previous != repository.QuoteStatusApproved {
		if err := h.spawnReminder(c, id); err != nil {
			// The approval itself stands; a missing reminder is repairable
			// by hand and better than rolling the status back.
			h.Log.Error("renewal reminder creation failed",
				zap.Uint64("quote_id", id), zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": status, "previous": previous})
}

func (h *AdminQuoteHandler) spawnReminder(c echo.Context, quoteID uint64) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	q, _, err := h.Quotes.GetByID(ctx, quoteID)
	if err != nil {
		return err
	}
	m := reminder.FromApprovedQuote(q, time.Now().UTC())
	if err := h.Reminders.Create(ctx, &m); err != nil {
		return err
	}
	h.Hub.Publish(ctx, "reminders", "insert", m.ID)
	h.Log.Info("renewal reminder scheduled",
		zap.Uint64("quote_id", quoteID),
		zap.Uint64("reminder_id", m.ID),
		zap.Time("reminder_date", m.ReminderDate),
		zap.Time("renewal_date", m.RenewalDate))
	return nil
}
