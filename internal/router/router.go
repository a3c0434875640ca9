// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/firemart/storefront/internal/auth"
	"github.com/firemart/storefront/internal/config"
	"github.com/firemart/storefront/internal/handler"
	"github.com/firemart/storefront/internal/middleware"
)

// Handlers collects every handler the router mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Catalog   *handler.CatalogHandler
	Cart      *handler.CartHandler
	Products  *handler.AdminProductHandler
	Suppliers *handler.AdminSupplierHandler
	Customers *handler.AdminCustomerHandler
	Quotes    *handler.AdminQuoteHandler
	Reminders *handler.AdminReminderHandler
	Users     *handler.AdminUserHandler
	Seller    *handler.SellerHandler
	Monitor   *auth.Monitor
}

// Register mounts all routes. The surfaces are:
//
//	/healthz            liveness plus auth-monitor health
//	/v1/auth/*          sign up / in / out, refresh, reset (rate limited)
//	/v1/*               authenticated storefront: catalog is public, cart
//	                    and checkout require a token
//	/v1/admin/*         back office, admin role required
//	/v1/seller/*        seller area, seller (or admin) role required
func Register(e *echo.Echo, cfg config.Config, rlCfg config.RateLimitConfig, rdb *redis.Client, roles *auth.RoleService, h Handlers) {
	e.GET("/healthz", handler.Health(h.Monitor))

	// Public catalog, lightly cached.
	catalogCache := middleware.NewCatalogCache(rdb, 30*time.Second)
	e.GET("/v1/products", h.Catalog.List, catalogCache)
	e.GET("/v1/products/:id", h.Catalog.Get, catalogCache)

	// Auth endpoints carry the token bucket; these are the only routes a
	// guest can hammer to probe credentials.
	ag := e.Group("/v1/auth", middleware.NewTokenBucket(rlCfg, rdb))
	ag.POST("/register", h.Auth.Register)
	ag.POST("/login", h.Auth.Login)
	ag.POST("/refresh", h.Auth.Refresh)
	// Logout works with either a refresh token in the body or a bearer
	// token; the optional JWT binding enables the revoke-all path.
	ag.POST("/logout", h.Auth.Logout, middleware.JWTOptional(cfg.JWTSecret))
	ag.POST("/reset-password", h.Auth.ResetPassword)
	ag.GET("/state", h.Auth.SessionState)

	jwtAuth := middleware.JWTAuth(cfg.JWTSecret)
	resolve := middleware.ResolveState(roles)

	// Authenticated storefront surface.
	v1 := e.Group("/v1", jwtAuth, resolve)
	v1.GET("/me", h.Auth.Me)
	v1.GET("/cart", h.Cart.Get)
	v1.POST("/cart/items", h.Cart.Add)
	v1.PUT("/cart/items/:id", h.Cart.UpdateItem)
	v1.DELETE("/cart/items/:id", h.Cart.RemoveItem)
	v1.DELETE("/cart", h.Cart.Clear)
	v1.POST("/cart/checkout", h.Cart.Checkout)

	// Back office: everything behind the admin guard.
	admin := e.Group("/v1/admin", jwtAuth, resolve, middleware.AdminGuard())
	admin.GET("/products", h.Products.List)
	admin.GET("/products/:id", h.Products.Get)
	admin.POST("/products", h.Products.Create)
	admin.PUT("/products/:id", h.Products.Update)
	admin.DELETE("/products/:id", h.Products.Delete)

	admin.GET("/suppliers", h.Suppliers.List)
	admin.GET("/suppliers/:id", h.Suppliers.Get)
	admin.POST("/suppliers", h.Suppliers.Create)
	admin.PUT("/suppliers/:id", h.Suppliers.Update)
	admin.DELETE("/suppliers/:id", h.Suppliers.Delete)

	admin.GET("/customers", h.Customers.List)
	admin.GET("/customers/:id", h.Customers.Get)
	admin.POST("/customers", h.Customers.Create)
	admin.PUT("/customers/:id", h.Customers.Update)
	admin.DELETE("/customers/:id", h.Customers.Delete)

	admin.GET("/quotes", h.Quotes.List)
	admin.GET("/quotes/:id", h.Quotes.Get)
	admin.PUT("/quotes/:id/status", h.Quotes.UpdateStatus)

	admin.GET("/reminders", h.Reminders.List)
	admin.GET("/reminders/due", h.Reminders.Due)
	admin.GET("/reminders/:id", h.Reminders.Get)
	admin.PUT("/reminders/:id/status", h.Reminders.UpdateStatus)
	admin.PUT("/reminders/:id/notes", h.Reminders.UpdateNotes)
	admin.DELETE("/reminders/:id", h.Reminders.Delete)

	admin.GET("/users", h.Users.List)
	admin.PUT("/users/:id/role", h.Users.AssignRole)
	admin.DELETE("/users/:id/role", h.Users.RemoveRole)

	// Seller area. Whether admins may enter is a deployment decision.
	seller := e.Group("/v1/seller", jwtAuth, resolve, middleware.SellerGuard(cfg.SellerIncludesAdmin))
	seller.GET("/quotes", h.Seller.MyQuotes)
	seller.GET("/quotes/:id", h.Seller.MyQuote)
	seller.GET("/reminders", h.Seller.MyReminders)
}
