package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/firemart/storefront/internal/auth"
	"github.com/firemart/storefront/internal/config"
	"github.com/firemart/storefront/internal/gateway"
	"github.com/firemart/storefront/internal/middleware"
	"github.com/firemart/storefront/internal/repository"
	"github.com/firemart/storefront/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints. All session
// lifecycle work goes through the gateway so the resolver observes every
// sign-in, sign-out and refresh; the token repository adds the long-lived
// refresh credential on top.
type AuthHandler struct {
	Cfg      config.Config
	Gateway  *gateway.Backend
	Tokens   *repository.TokenRepo
	Resolver *auth.Resolver
}

func NewAuthHandler(cfg config.Config, gw *gateway.Backend, t *repository.TokenRepo, r *auth.Resolver) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Gateway: gw, Tokens: t, Resolver: r}
}

// ----- DTOs -----

type registerReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	RedirectURL string `json:"redirect_url"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type resetReq struct {
	Email       string `json:"email"`
	RedirectURL string `json:"redirect_url"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register creates the account and signs it straight in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Gateway.SignUp(ctx, req.Email, req.Password, req.RedirectURL)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return h.respondWithPair(c, http.StatusCreated, ctx, s)
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Gateway.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		case errors.Is(err, gateway.ErrAccountDisabled):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sign in failed"})
		}
	}
	return h.respondWithPair(c, http.StatusOK, ctx, s)
}

// Refresh validates a refresh token, rotates it, and re-establishes the
// session so the resolver re-derives the role.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, err := h.Tokens.Validate(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	_ = h.Tokens.Revoke(ctx, hash)

	s, err := h.Gateway.ResumeSession(ctx, uid)
	if err != nil {
		if errors.Is(err, gateway.ErrAccountDisabled) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	return h.respondWithPair(c, http.StatusOK, ctx, s)
}

// Logout revokes the presented refresh token (or all of the caller's tokens
// when only a bearer token is supplied) and signs the session out through
// the resolver so local state clears even if the backend call fails.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)
	uid := userID(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch {
	case refreshToken != "":
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.Validate(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.Revoke(ctx, hash); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
	case uid != 0:
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
	}

	h.Resolver.SignOut(ctx)
	return c.NoContent(http.StatusNoContent)
}

// ResetPassword issues a password-reset token. The response is 204 whether
// or not the email exists so the endpoint cannot enumerate accounts.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Gateway.ResetPasswordForEmail(ctx, strings.TrimSpace(req.Email), req.RedirectURL); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's identity and effective role as the per-request
// resolution computed it.
func (h *AuthHandler) Me(c echo.Context) error {
	st := middleware.StateFrom(c)
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": userID(c),
		"email":   userEmail(c),
		"role":    st.Role.String(),
	})
}

// SessionState exposes the resolver's snapshot: who the durable session
// belongs to, their role, and whether resolution is still in flight.
func (h *AuthHandler) SessionState(c echo.Context) error {
	st := h.Resolver.State()
	return c.JSON(http.StatusOK, echo.Map{
		"authenticated": st.IsAuthenticated(),
		"user_id":       st.UserID,
		"role":          st.Role.String(),
		"loading":       st.Loading,
	})
}

func (h *AuthHandler) respondWithPair(c echo.Context, status int, ctx context.Context, s *gateway.Session) error {
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	if err := h.Tokens.Save(ctx, s.UserID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
	}
	return c.JSON(status, authResp{
		User:    userPart{ID: s.UserID, Email: s.Email},
		Access:  tokenPart{Token: s.AccessToken, Expires: s.ExpiresAt},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	})
}
