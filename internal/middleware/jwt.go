package middleware // middleware contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's subject and email claims into the request
// context.  The provided secret must match the one used when issuing
// tokens.  Handlers behind this middleware read the authenticated user via
// c.Get("user_id") (uint64) and c.Get("email") (string).  Note that the
// token carries no role claim on purpose: roles are resolved from the role
// table per request by ResolveState so revocations apply immediately.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if msg := bindBearerClaims(c, secret); msg != "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
			}
			return next(c)
		}
	}
}

// JWTOptional binds the bearer claims when a valid token is present but
// never rejects the request.  Routes like logout use it: a bearer lets the
// handler revoke every session for the user, its absence just narrows what
// the handler can do.
func JWTOptional(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			_ = bindBearerClaims(c, secret)
			return next(c)
		}
	}
}

// bindBearerClaims parses the Authorization header and stores the subject
// and email claims on the context.  It returns an error message for the
// caller to report, or "" on success.
func bindBearerClaims(c echo.Context, secret string) string {
	// A valid header starts with "Bearer " followed by the JWT.
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "missing bearer token"
	}
	raw := strings.TrimPrefix(auth, "Bearer ")

	// Parse with HS256 and our secret.  The callback supplies the signing
	// key and rejects any other signing method.
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return "invalid token"
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "invalid claims"
	}

	// JWT numbers decode as float64; convert the subject to the uint64
	// user id the rest of the stack works with.
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return "invalid subject"
	}
	c.Set("user_id", uint64(sub))
	if email, ok := claims["email"].(string); ok {
		c.Set("email", email)
	}
	return ""
}
