package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/osteria-app/osteria-backend/api/routes"
	checkoutsvc "github.com/osteria-app/osteria-backend/internal/checkout"
	"github.com/osteria-app/osteria-backend/internal/discount"
	"github.com/osteria-app/osteria-backend/internal/finalize"
	"github.com/osteria-app/osteria-backend/internal/mailer"
	"github.com/osteria-app/osteria-backend/internal/orders"
	"github.com/osteria-app/osteria-backend/internal/pending"
	"github.com/osteria-app/osteria-backend/internal/products"
	"github.com/osteria-app/osteria-backend/internal/users"
	paypalwebhook "github.com/osteria-app/osteria-backend/internal/webhooks/paypal"
	"github.com/osteria-app/osteria-backend/pkg/config"
	"github.com/osteria-app/osteria-backend/pkg/db"
	"github.com/osteria-app/osteria-backend/pkg/logger"
	"github.com/osteria-app/osteria-backend/pkg/migrate"
	"github.com/osteria-app/osteria-backend/pkg/paypal"
	"github.com/osteria-app/osteria-backend/pkg/redis"
)

const webhookMarkTTL = 48 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := paypal.NewClient(context.Background(), cfg.PayPal, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paypal client", err)
		os.Exit(1)
	}

	dispatcher, err := mailer.NewDispatcher(cfg.SMTP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mail dispatcher", err)
		os.Exit(1)
	}

	pendingRepo := pending.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())

	discountService, err := discount.NewService(discount.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create discount service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.Params{
		Gateway:   gateway,
		Discounts: discountService,
		Pending:   pendingRepo,
		Users:     users.NewRepository(dbClient.DB()),
		AppURL:    cfg.App.URL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orderRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	finalizeService, err := finalize.NewService(finalize.Params{
		Gateway:   gateway,
		Tx:        dbClient,
		Pending:   pendingRepo,
		Orders:    orderRepo,
		Discounts: discountService,
		Mailer:    dispatcher,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create finalize service", err)
		os.Exit(1)
	}

	webhookGuard, err := paypalwebhook.NewIdempotencyGuard(redisClient, webhookMarkTTL, "paypal-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	webhookService, err := paypalwebhook.NewService(paypalwebhook.ServiceParams{
		Finalizer: finalizeService,
		Guard:     webhookGuard,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Discounts:  discountService,
			Checkout:   checkoutService,
			Finalize:   finalizeService,
			Orders:     orderService,
			Products:   productRepo,
			PayPalHook: webhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
