package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Mahmoudramadan21/Bookify/internal/service"
	"github.com/Mahmoudramadan21/Bookify/pkg/health"
	"github.com/Mahmoudramadan21/Bookify/pkg/middleware"
)

// Services bundles the business services the API exposes.
type Services struct {
	Catalog     *service.CatalogService
	Reviews     *service.ReviewService
	Orders      *service.OrderService
	Fulfillment *service.FulfillmentService
	Users       *service.UserService
}

type RouterConfig struct {
	CORS           middleware.CORSConfig
	RequestTimeout time.Duration
	// RankingMaxAge is the Cache-Control max-age of the ranking endpoints.
	RankingMaxAge time.Duration
	// AuthRateLimit throttles login and registration per client IP.
	AuthRateLimit middleware.RateLimitConfig
}

// NewRouter creates a chi router with all Bookify routes registered.
func NewRouter(
	svcs Services,
	authn middleware.Authenticator,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.Tracing)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5, "application/json"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	books := NewBookHandler(svcs.Catalog)
	reviews := NewReviewHandler(svcs.Reviews)
	orders := NewOrderHandler(svcs.Orders, svcs.Fulfillment)
	users := NewUserHandler(svcs.Users)

	// authenticated re-derives the request logger so it carries user_id.
	authenticated := chi.Chain(middleware.Authenticate(authn), middleware.RequestLogger(logger))
	admin := chi.Chain(middleware.Authenticate(authn), middleware.RequestLogger(logger), middleware.RequireAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(cfg.RequestTimeout))

		r.Route("/books", func(r chi.Router) {
			r.Get("/", books.List)
			r.With(middleware.CacheControl(cfg.RankingMaxAge)).Get("/top", books.TopRated)
			r.With(middleware.CacheControl(cfg.RankingMaxAge)).Get("/best-sales", books.BestSelling)
			r.Get("/category/{name}", books.ListByCategory)
			r.Get("/{id}", books.Get)
			r.Get("/{id}/reviews", reviews.List)

			r.With(authenticated...).Post("/{id}/reviews", reviews.Create)

			r.Group(func(r chi.Router) {
				r.Use(admin...)
				r.Post("/", books.Create)
				r.Put("/{id}", books.Update)
				r.Delete("/{id}", books.Delete)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(authenticated...)
			r.Post("/", orders.Create)
			r.Get("/mine", orders.ListMine)
			r.Get("/{id}", orders.Get)
			r.Put("/{id}/pay", orders.MarkPaid)

			r.With(middleware.RequireAdmin).Get("/", orders.ListAll)
			r.With(middleware.RequireAdmin).Put("/{id}/deliver", orders.MarkDelivered)
		})

		r.Route("/users", func(r chi.Router) {
			limited := middleware.RateLimit(cfg.AuthRateLimit, logger)
			r.With(limited).Post("/register", users.Register)
			r.With(limited).Post("/login", users.Login)
			r.With(authenticated...).Get("/profile", users.Profile)
		})
	})

	return r
}
