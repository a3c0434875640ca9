package main // Entry point package

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/firemart/storefront/internal/auth"
	"github.com/firemart/storefront/internal/cart"
	"github.com/firemart/storefront/internal/config"
	"github.com/firemart/storefront/internal/database"
	"github.com/firemart/storefront/internal/gateway"
	"github.com/firemart/storefront/internal/handler"
	"github.com/firemart/storefront/internal/logger"
	"github.com/firemart/storefront/internal/queue"
	"github.com/firemart/storefront/internal/realtime"
	"github.com/firemart/storefront/internal/reminder"
	"github.com/firemart/storefront/internal/repository"
	"github.com/firemart/storefront/internal/router"
	"github.com/firemart/storefront/internal/schedule"
)

// shutdownTimeout bounds how long in-flight requests may drain on exit.
const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly

	cfg := config.Load()
	zlog := logger.New(cfg.Env)
	defer func() { _ = zlog.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable; everything degrades
	if rdb == nil {
		zlog.Warn("redis unavailable; session slot, carts and rate limiting degrade to in-process fallbacks")
	}

	// Repositories.
	users := repository.NewUserRepo(db)
	roleRows := repository.NewRoleRepo(db)
	tokens := repository.NewTokenRepo(db)
	products := repository.NewProductRepo(db)
	suppliers := repository.NewSupplierRepo(db)
	customers := repository.NewCustomerRepo(db)
	quotes := repository.NewQuoteRepo(db)
	reminders := repository.NewReminderRepo(db)

	// Auth core: gateway, role resolution, session resolver, health monitor.
	gw := gateway.NewBackend(cfg, users, rdb, zlog)
	roles := auth.NewRoleService(roleRows, quotes, users, zlog)
	resolver := auth.NewResolver(gw, roles, zlog)
	sub := resolver.Bind(gw)
	defer sub.Unsubscribe()
	resolver.Initialize(context.Background())
	monitor := auth.NewMonitor(gw, roleRows, resolver, zlog)

	// Realtime hub, carts and the reminder pipeline.
	hub := realtime.NewHub(rdb, zlog)
	carts := cart.NewStore(rdb)

	var pub reminder.Publisher
	if cfg.AMQPURL != "" {
		pub = queue.NewPublisher(cfg.AMQPURL, zlog)
		go func() {
			if err := queue.StartReminderConsumer(cfg.AMQPURL, reminders, zlog); err != nil {
				zlog.Error("reminder consumer stopped", zap.Error(err))
			}
		}()
	} else {
		zlog.Warn("RABBITMQ_URL not set; reminder send-outs are disabled")
	}
	poller := reminder.NewPoller(reminders, pub, rdb, zlog)
	poller.PollDue(context.Background()) // prime the due snapshot before the first tick
	listeners := poller.Watch(context.Background(), hub)
	defer func() {
		for _, l := range listeners {
			l.Close()
		}
	}()

	// One shared scheduler for every recurring job.
	sched := schedule.New(zlog)
	sched.Every(cfg.ReminderPollEvery, "reminder-poll", func() {
		poller.PollDue(context.Background())
	})
	sched.Every(cfg.HealthCheckEvery, "auth-health-check", func() {
		monitor.Check(context.Background())
	})
	sched.Start()
	defer sched.Stop()

	// HTTP server.
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, cfg, config.LoadRateLimitConfig(), rdb, roles, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, gw, tokens, resolver),
		Catalog:   handler.NewCatalogHandler(products),
		Cart:      handler.NewCartHandler(carts, products, quotes, hub),
		Products:  handler.NewAdminProductHandler(products, hub),
		Suppliers: handler.NewAdminSupplierHandler(suppliers),
		Customers: handler.NewAdminCustomerHandler(customers),
		Quotes:    handler.NewAdminQuoteHandler(quotes, reminders, hub, zlog),
		Reminders: handler.NewAdminReminderHandler(reminders, hub, rdb),
		Users:     handler.NewAdminUserHandler(users, roleRows),
		Seller:    handler.NewSellerHandler(quotes, reminders),
		Monitor:   monitor,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil {
			zlog.Info("http server stopped", zap.Error(err))
		}
	}()
	zlog.Info("storefront listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	// Block until shutdown is requested, then drain.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		zlog.Warn("graceful shutdown failed", zap.Error(err))
	}
}
