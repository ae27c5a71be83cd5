package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	authcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/auth"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Dependencies carries everything the HTTP surface needs. Nil services answer 500 on their routes.
type Dependencies struct {
	DB       controllers.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Metrics  prometheus.Gatherer

	Auth      auth.Service
	Products  product.Service
	Cart      cart.Service
	Checkout  checkoutsvc.Service
	Payments  payments.Service
	Orders    orders.Service
	Users     controllers.UserDeactivator
	Providers *payments.Registry
	Webhooks  webhookcontrollers.EventHandler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	rateLimit := func(policy middleware.RateLimitPolicy) func(http.Handler) http.Handler {
		if deps.Redis == nil {
			return middleware.RateLimit(policy, nil, logg)
		}
		return middleware.RateLimit(policy, deps.Redis, logg)
	}
	replayRoutes := middleware.CheckoutRoutes(cfg.Checkout.IdempotencyTTL)
	idempotency := middleware.Idempotency(nil, replayRoutes, logg)
	if deps.Redis != nil {
		idempotency = middleware.Idempotency(deps.Redis, replayRoutes, logg)
	}

	readiness := map[string]controllers.Pinger{}
	if deps.DB != nil {
		readiness["postgres"] = deps.DB
	}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	gatherer := deps.Metrics
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// provider callbacks carry no cookies and are authenticated by signature
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/razorpay", webhookcontrollers.ProviderWebhook(enums.PaymentProviderRazorpay, deps.Providers, deps.Webhooks, logg))
		r.Post("/stripe", webhookcontrollers.ProviderWebhook(enums.PaymentProviderStripe, deps.Providers, deps.Webhooks, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CartSession(cfg.Cart, logg))

		r.Get("/products", controllers.ProductList(deps.Products, logg))
		r.Get("/products/{idOrSlug}", controllers.ProductDetail(deps.Products, logg))
		r.Get("/categories", controllers.Categories(deps.Products, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(deps.Cart, logg))
			r.Delete("/", cartcontrollers.CartClear(deps.Cart, logg))
			r.Post("/items", cartcontrollers.CartAddItem(deps.Cart, logg))
			r.Patch("/products/{productId}", cartcontrollers.CartUpdateQuantity(deps.Cart, logg))
			r.Delete("/items/{cartItemId}", cartcontrollers.CartRemoveItem(deps.Cart, logg))
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(rateLimit(middleware.LoginPolicy(cfg.AuthRateLimit))).Post("/login", authcontrollers.AuthLogin(deps.Auth, cfg.JWT, logg))
			r.With(rateLimit(middleware.RegisterPolicy(cfg.AuthRateLimit))).Post("/register", authcontrollers.AuthRegister(deps.Auth, cfg.JWT, logg))
			r.Post("/logout", authcontrollers.AuthLogout(deps.Auth, cfg.JWT, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Use(idempotency)

			r.Get("/me", authcontrollers.Me(deps.Auth, logg))
			r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
			r.Post("/payments/verify", controllers.VerifyPayment(deps.Payments, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(deps.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.AdminOrderDetail(deps.Orders, logg))
		})
		r.Post("/users/{userId}/deactivate", controllers.AdminDeactivateUser(deps.Users, logg))
	})

	return r
}
