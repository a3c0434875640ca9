package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/firemart/storefront/internal/auth"
	"github.com/firemart/storefront/internal/repository"
)

// AdminUserHandler lists accounts and grants or revokes explicit roles.
// Roles live in their own table; removing a row returns the account to the
// inferred-role path.
type AdminUserHandler struct {
	Users *repository.UserRepo
	Roles *repository.RoleRepo
}

func NewAdminUserHandler(u *repository.UserRepo, r *repository.RoleRepo) *AdminUserHandler {
	return &AdminUserHandler{Users: u, Roles: r}
}

type accountView struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type assignRoleReq struct {
	Role string `json:"role"`
}

// List returns all accounts with their explicit role, "" for accounts that
// fall through to inference.
func (h *AdminUserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]accountView, 0, len(users))
	for _, u := range users {
		role, rerr := h.Roles.RoleFor(ctx, u.ID)
		if rerr != nil {
			role = ""
		}
		out = append(out, accountView{
			ID: u.ID, Email: u.Email, IsActive: u.IsActive,
			Role: role, CreatedAt: u.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// AssignRole sets or replaces an account's explicit role. Only values from
// the closed enumeration are accepted; anything else is rejected before it
// can reach the table.
func (h *AdminUserHandler) AssignRole(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req assignRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil || role == auth.RoleNone {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be user, seller or admin"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, id); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err := h.Roles.Assign(ctx, id, role.String()); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "assign failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": id, "role": role.String()})
}

// RemoveRole deletes an account's explicit role row.
func (h *AdminUserHandler) RemoveRole(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Roles.Remove(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "remove failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
