package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firemart/storefront/internal/auth"
)

func runGuard(t *testing.T, guard echo.MiddlewareFunc, view auth.StateView, path string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	SetState(c, view)

	handler := guard(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	require.NoError(t, handler(c))
	return rec
}

func TestAdminGuardAdmitsAdmin(t *testing.T) {
	rec := runGuard(t, AdminGuard(), auth.StateView{UserID: 1, Role: auth.RoleAdmin}, "/admin/products")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAdminGuardRedirectsAnonymousWithReturnLocation(t *testing.T) {
	rec := runGuard(t, AdminGuard(), auth.StateView{}, "/admin/quotes?status=pending")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?redirect=%2Fadmin%2Fquotes%3Fstatus%3Dpending", rec.Header().Get("Location"))
}

func TestAdminGuardRedirectsSellerToLoginNotRoot(t *testing.T) {
	// A seller poking at an admin route lands on the login page, same as an
	// anonymous visitor, and not on the storefront root.
	rec := runGuard(t, AdminGuard(), auth.StateView{UserID: 7, Role: auth.RoleSeller}, "/admin/products")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestAdminGuardRedirectsPlainUserToLogin(t *testing.T) {
	rec := runGuard(t, AdminGuard(), auth.StateView{UserID: 8, Role: auth.RoleUser}, "/admin/products")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestAdminGuardAnswersLoadingWithRetry(t *testing.T) {
	rec := runGuard(t, AdminGuard(), auth.StateView{UserID: 2, Loading: true}, "/admin/products")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestSellerGuardAdmitsSeller(t *testing.T) {
	rec := runGuard(t, SellerGuard(true), auth.StateView{UserID: 7, Role: auth.RoleSeller}, "/seller/quotes")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSellerGuardAdmitsAdminWhenAllowed(t *testing.T) {
	rec := runGuard(t, SellerGuard(true), auth.StateView{UserID: 1, Role: auth.RoleAdmin}, "/seller/quotes")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSellerGuardRejectsAdminWhenNotAllowed(t *testing.T) {
	rec := runGuard(t, SellerGuard(false), auth.StateView{UserID: 1, Role: auth.RoleAdmin}, "/seller/quotes")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestSellerGuardSendsPlainUserToRoot(t *testing.T) {
	// Signing in again would not grant the seller role, so the redirect
	// target is the storefront root rather than the login page.
	rec := runGuard(t, SellerGuard(true), auth.StateView{UserID: 9, Role: auth.RoleUser}, "/seller/quotes")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestSellerGuardRedirectsAnonymousToLogin(t *testing.T) {
	rec := runGuard(t, SellerGuard(true), auth.StateView{}, "/seller/reminders")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?redirect=%2Fseller%2Freminders", rec.Header().Get("Location"))
}

func TestStateFromDefaultsToSignedOut(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	st := StateFrom(c)
	assert.False(t, st.IsAuthenticated())
	assert.Equal(t, auth.RoleNone, st.Role)
}
