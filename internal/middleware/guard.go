package middleware

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/firemart/storefront/internal/auth"
)

// guard.go holds the route guards for the privileged surfaces.  Both guards
// read the snapshot placed by ResolveState (or SetState) and decide with a
// redirect rather than a 403: an under-privileged visitor is sent back to a
// public page instead of being shown that the route exists.

// AdminGuard admits only administrators.  Unauthenticated visitors are
// redirected to the login page with the attempted location preserved so the
// client can return them after signing in.  Authenticated callers whose role
// is anything but admin are also sent to the login page, deliberately the
// same destination, so the response does not distinguish "no account" from
// "insufficient role".
func AdminGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			st := StateFrom(c)
			if st.Loading {
				return loadingResponse(c)
			}
			if !st.IsAuthenticated() {
				return redirectToLogin(c, true)
			}
			if st.Role != auth.RoleAdmin {
				return redirectToLogin(c, false)
			}
			return next(c)
		}
	}
}

// SellerGuard admits sellers, and administrators too when allowAdminAlso is
// set (the default in configuration).  Unauthenticated visitors go to the
// login page; authenticated callers without the required role go to the
// storefront root rather than the login page, since signing in again would
// not change the outcome.
func SellerGuard(allowAdminAlso bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			st := StateFrom(c)
			if st.Loading {
				return loadingResponse(c)
			}
			if !st.IsAuthenticated() {
				return redirectToLogin(c, true)
			}
			if st.Role == auth.RoleSeller || (allowAdminAlso && st.Role == auth.RoleAdmin) {
				return next(c)
			}
			return c.Redirect(http.StatusFound, "/")
		}
	}
}

// loadingResponse answers requests that arrive while role resolution is
// still in flight.  The client retries; it never gets a premature verdict.
func loadingResponse(c echo.Context) error {
	c.Response().Header().Set("Retry-After", "1")
	return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "resolving"})
}

func redirectToLogin(c echo.Context, preserveLocation bool) error {
	loc := "/login"
	if preserveLocation {
		loc += "?redirect=" + url.QueryEscape(c.Request().URL.RequestURI())
	}
	return c.Redirect(http.StatusFound, loc)
}
