package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/firemart/storefront/internal/realtime"
	"github.com/firemart/storefront/internal/reminder"
	"github.com/firemart/storefront/internal/repository"
)

// AdminReminderHandler manages the renewal reminder queue from the back
// office: listing, status transitions, notes, deletion, and the due
// dashboard.
type AdminReminderHandler struct {
	Reminders *repository.ReminderRepo
	Hub       *realtime.Hub
	Redis     *redis.Client
}

func NewAdminReminderHandler(r *repository.ReminderRepo, hub *realtime.Hub, rdb *redis.Client) *AdminReminderHandler {
	return &AdminReminderHandler{Reminders: r, Hub: hub, Redis: rdb}
}

type reminderStatusReq struct {
	Status string `json:"status"`
}
type reminderNotesReq struct {
	Notes string `json:"notes"`
}

func validReminderStatus(s string) bool {
	switch s {
	case repository.ReminderStatusPending, repository.ReminderStatusSent,
		repository.ReminderStatusCompleted, repository.ReminderStatusCancelled:
		return true
	}
	return false
}

// List returns reminders soonest first, optionally filtered by ?status=.
func (h *AdminReminderHandler) List(c echo.Context) error {
	status := strings.ToLower(strings.TrimSpace(c.QueryParam("status")))
	if status != "" && !validReminderStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Reminders.ListAll(ctx, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reminders": items})
}

// Due returns reminders whose reminder date has passed. The poller keeps a
// short-lived snapshot in Redis; a cold cache falls back to the database.
func (h *AdminReminderHandler) Due(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if cached, ok := reminder.CachedDue(ctx, h.Redis); ok {
		return c.JSON(http.StatusOK, echo.Map{"reminders": cached, "cached": true})
	}
	items, err := h.Reminders.ListDue(ctx, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reminders": items, "cached": false})
}

// Get returns one reminder.
func (h *AdminReminderHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Reminders.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reminder not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, m)
}

// UpdateStatus moves a reminder through its lifecycle. Transitions outside
// pending->sent->completed (with cancelled from any non-terminal state) are
// rejected here even though the table would accept them.
func (h *AdminReminderHandler) UpdateStatus(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req reminderStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !validReminderStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Reminders.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reminder not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !reminder.CanTransition(m.Status, status) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "invalid transition", "from": m.Status, "to": status,
		})
	}
	if err := h.Reminders.UpdateStatus(ctx, id, status); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.Hub.Publish(ctx, "reminders", "update", id)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": status})
}

// UpdateNotes replaces the free-form notes on a reminder.
func (h *AdminReminderHandler) UpdateNotes(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req reminderNotesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Reminders.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reminder not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Reminders.UpdateNotes(ctx, id, req.Notes); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.Hub.Publish(ctx, "reminders", "update", id)
	return c.NoContent(http.StatusNoContent)
}

// Delete removes a reminder outright.
func (h *AdminReminderHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Reminders.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reminder not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	h.Hub.Publish(ctx, "reminders", "delete", id)
	return c.NoContent(http.StatusNoContent)
}
