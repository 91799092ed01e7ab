package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrilink/agrilink-backend/api/controllers"
	"github.com/agrilink/agrilink-backend/api/middleware"
	"github.com/agrilink/agrilink-backend/internal/analytics"
	"github.com/agrilink/agrilink-backend/internal/community"
	"github.com/agrilink/agrilink-backend/internal/listings"
	"github.com/agrilink/agrilink-backend/internal/orders"
	"github.com/agrilink/agrilink-backend/internal/search"
	"github.com/agrilink/agrilink-backend/internal/users"
	"github.com/agrilink/agrilink-backend/pkg/auth/session"
	"github.com/agrilink/agrilink-backend/pkg/config"
	"github.com/agrilink/agrilink-backend/pkg/enums"
	"github.com/agrilink/agrilink-backend/pkg/kv"
	"github.com/agrilink/agrilink-backend/pkg/logger"
	"github.com/agrilink/agrilink-backend/pkg/metrics"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	Pinger    kv.Pinger
	Limiter   kv.Limiter
	Sessions  *session.Manager
	Metrics   *metrics.HTTPMetrics
	Registry  *prometheus.Registry
	Users     users.Service
	Listings  listings.Service
	Orders    orders.Service
	Community community.Service
	Analytics analytics.Service
	Search    search.Service
}

// NewRouter builds the full HTTP surface.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.Liveness())
		r.Get("/ready", controllers.Readiness(deps.Pinger, logg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, deps.Limiter, logg)).
				Post("/register", controllers.Register(deps.Users, deps.Sessions, cfg.JWT, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, deps.Limiter, logg)).
				Post("/login", controllers.Login(deps.Users, deps.Sessions, cfg.JWT, logg))
			r.Post("/refresh", controllers.Refresh(deps.Sessions, cfg.JWT, logg))
			r.With(middleware.Auth(cfg.JWT, deps.Sessions, logg)).
				Post("/logout", controllers.Logout(deps.Sessions, logg))
		})

		r.Get("/products", controllers.QueryProducts(deps.Listings, logg))
		r.Get("/community/posts", controllers.QueryPosts(deps.Community, logg))
		r.Get("/analytics", controllers.Analytics(deps.Analytics, logg))
		r.Get("/search", controllers.Search(deps.Search, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

			r.Get("/profile", controllers.Profile(deps.Users, logg))

			r.Post("/products", controllers.CreateProduct(deps.Listings, deps.Users, logg))
			r.With(middleware.RequireRole(enums.RoleFarmer, logg)).
				Patch("/products/{productId}/quantity", controllers.AdjustProductQuantity(deps.Listings, logg))

			r.Post("/orders", controllers.PlaceOrder(deps.Orders, logg))
			r.Get("/orders", controllers.ListOrders(deps.Orders, logg))
			r.Get("/orders/{orderId}", controllers.GetOrder(deps.Orders, logg))
			r.Put("/orders/{orderId}/status", controllers.UpdateOrderStatus(deps.Orders, logg))

			r.Post("/community/posts", controllers.CreatePost(deps.Community, deps.Users, logg))
		})
	})

	return r
}
