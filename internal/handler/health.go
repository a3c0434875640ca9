package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/firemart/storefront/internal/auth"
)

// Health reports liveness plus the auth monitor's view of session health so
// operators see a degrading session loop before users do.
func Health(monitor *auth.Monitor) echo.HandlerFunc {
	return func(c echo.Context) error {
		body := echo.Map{"status": "ok"}
		if monitor != nil {
			body["auth_failures"] = monitor.ConsecutiveFailures()
			if monitor.Critical() {
				body["status"] = "degraded"
			}
		}
		return c.JSON(http.StatusOK, body)
	}
}
