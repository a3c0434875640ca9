package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/firemart/storefront/internal/auth"
)

// stateKey is the context key under which the resolved StateView is stored.
const stateKey = "auth_state"

// ResolveState computes the per-request authorization snapshot.  It runs
// after JWTAuth: the token establishes who the caller is, and the role
// service recomputes what they may do against the current table contents.
// Resolution is synchronous here, so guards downstream never observe a
// loading state on this path; the Loading branch in the guards covers the
// resolver-driven surfaces.
func ResolveState(roles *auth.RoleService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			view := auth.StateView{}
			if uid, ok := c.Get("user_id").(uint64); ok && uid != 0 {
				view = auth.StateView{
					UserID: uid,
					Role:   roles.Resolve(c.Request().Context(), uid),
				}
			}
			c.Set(stateKey, view)
			return next(c)
		}
	}
}

// StateFrom extracts the snapshot stored by ResolveState.  Absence yields
// the zero (unauthenticated) view.
func StateFrom(c echo.Context) auth.StateView {
	if v, ok := c.Get(stateKey).(auth.StateView); ok {
		return v
	}
	return auth.StateView{}
}

// SetState stores a snapshot directly.  Used by tests and by surfaces that
// resolve state through the session resolver instead of per request.
func SetState(c echo.Context, v auth.StateView) {
	c.Set(stateKey, v)
}
