package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/osteria-app/osteria-backend/api/controllers"
	ordercontrollers "github.com/osteria-app/osteria-backend/api/controllers/orders"
	webhookcontrollers "github.com/osteria-app/osteria-backend/api/controllers/webhooks"
	"github.com/osteria-app/osteria-backend/api/middleware"
	checkoutsvc "github.com/osteria-app/osteria-backend/internal/checkout"
	"github.com/osteria-app/osteria-backend/internal/discount"
	"github.com/osteria-app/osteria-backend/internal/finalize"
	"github.com/osteria-app/osteria-backend/internal/orders"
	"github.com/osteria-app/osteria-backend/internal/products"
	paypalwebhook "github.com/osteria-app/osteria-backend/internal/webhooks/paypal"
	"github.com/osteria-app/osteria-backend/pkg/config"
	"github.com/osteria-app/osteria-backend/pkg/db"
	"github.com/osteria-app/osteria-backend/pkg/logger"
	"github.com/osteria-app/osteria-backend/pkg/redis"
)

// Deps collects everything the HTTP surface needs. The payment-provider
// callbacks and the webhook funnel into the same finalize service; the
// storefront endpoints are otherwise independent of each other.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         db.Pinger
	Redis      *redis.Client
	Discounts  discount.Service
	Checkout   checkoutsvc.Service
	Finalize   finalize.Service
	Orders     orders.Service
	Products   products.Repository
	PayPalHook *paypalwebhook.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.URL),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/products", controllers.ProductList(deps.Products, logg))

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/coupons", func(r chi.Router) {
			r.Post("/apply", controllers.CouponApply(deps.Discounts, logg))
			r.Post("/validate", controllers.CouponValidate(deps.Discounts, logg))
		})

		r.Post("/gift-coupons/buy", controllers.GiftCouponBuy(deps.Checkout, logg))

		r.Route("/paypal", func(r chi.Router) {
			r.Get("/return", controllers.PayPalReturn(deps.Finalize, cfg.App.URL, logg))
			r.Get("/cancel", controllers.PayPalCancel())
			r.Get("/gift/return", controllers.PayPalGiftReturn(deps.Finalize, cfg.App.URL, logg))
			r.Get("/gift/cancel", controllers.PayPalCancel())
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
		})

		r.Post("/webhooks/paypal", webhookcontrollers.PayPalWebhook(deps.PayPalHook, logg))
	})

	return r
}
