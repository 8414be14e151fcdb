package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/comfyhome/storefront/internal/auth"
	"github.com/comfyhome/storefront/internal/domain"
	"github.com/comfyhome/storefront/internal/service"
	"github.com/comfyhome/storefront/pkg/health"
	"github.com/comfyhome/storefront/pkg/middleware"
)

// RouterConfig holds everything the router mounts.
type RouterConfig struct {
	ServiceName string

	Users    *service.UserService
	Products *service.ProductService
	Reviews  *service.ReviewService
	Orders   *service.OrderService

	Authenticator *auth.Authenticator
	Cookie        CookieConfig

	Health         *health.Handler
	Metrics        *middleware.HTTPMetrics
	MetricsHandler http.Handler

	CORS              middleware.CORSConfig
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Stop ends the rate limiter sweeper.
	Stop <-chan struct{}

	// UploadDir, when set, is served under /uploads.
	UploadDir string
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Handler)
	}
	r.Use(middleware.CORS(cfg.CORS))

	// Operational endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	}

	authenticate := middleware.Auth(cfg.Cookie.Name, cfg.Authenticator.Validate)
	adminOnly := middleware.RequireRole(domain.RoleAdmin.String())

	authHandler := NewAuthHandler(cfg.Users, cfg.Authenticator, cfg.Cookie, logger)
	userHandler := NewUserHandler(cfg.Users, cfg.Cookie, logger)
	productHandler := NewProductHandler(cfg.Products, logger)
	reviewHandler := NewReviewHandler(cfg.Reviews, logger)
	orderHandler := NewOrderHandler(cfg.Orders, logger)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow, logger, cfg.Stop))
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Get("/logout", authHandler.Logout)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authenticate)

			r.With(adminOnly).Get("/", userHandler.ListUsers)
			r.Get("/showMe", userHandler.ShowMe)
			r.Patch("/updateUser", userHandler.UpdateUser)
			r.Patch("/updateUserPassword", userHandler.UpdatePassword)
			r.Get("/{id}", userHandler.GetUser)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/{id}", productHandler.GetProduct)
			r.Get("/{id}/reviews", productHandler.ListProductReviews)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, adminOnly)

				r.Post("/", productHandler.CreateProduct)
				r.Post("/uploadImage", productHandler.UploadImage)
				r.Patch("/{id}", productHandler.UpdateProduct)
				r.Delete("/{id}", productHandler.DeleteProduct)
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", reviewHandler.ListReviews)
			r.Get("/{id}", reviewHandler.GetReview)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)

				r.Post("/", reviewHandler.CreateReview)
				r.Patch("/{id}", reviewHandler.UpdateReview)
				r.Delete("/{id}", reviewHandler.DeleteReview)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(authenticate)

			r.With(adminOnly).Get("/", orderHandler.ListOrders)
			r.Post("/", orderHandler.CreateOrder)
			r.Get("/showAllMyOrders", orderHandler.ListMyOrders)
			r.Get("/{id}", orderHandler.GetOrder)
			r.Patch("/{id}", orderHandler.PayOrder)
		})
	})

	return r
}
