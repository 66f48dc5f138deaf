package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/service"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/health"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/middleware"
)

const requestTimeout = 30 * time.Second

// Services groups the business services exposed over HTTP.
type Services struct {
	Products *service.ProductService
	Carts    *service.CartService
	Orders   *service.OrderService
	Users    *service.UserService
	Enquiry  *service.EnquiryService
}

// RouterConfig holds the HTTP-level settings of the router.
type RouterConfig struct {
	CORS         middleware.CORSConfig
	RateLimitRPS float64
	RateBurst    int
	PprofCIDRs   []string
	Cookie       CookieConfig
	Validate     middleware.TokenValidator
}

// NewRouter creates a chi router with every API route registered. ctx bounds
// the lifetime of the rate limiter's background sweep.
func NewRouter(ctx context.Context, svc Services, cfg RouterConfig, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.HTTPMetrics)
	r.Use(middleware.Tracing)
	r.Use(middleware.RequestLogger(logger))
	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateBurst, logger))
	}

	// Operational endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	authn := middleware.Auth(cfg.Validate)
	admin := middleware.RequireRole(domain.RoleAdmin)

	products := NewProductHandler(svc.Products, logger)
	carts := NewCartHandler(svc.Carts, logger)
	orders := NewOrderHandler(svc.Orders, logger)
	users := NewUserHandler(svc.Users, svc.Products, cfg.Cookie, logger)
	enquiries := NewEnquiryHandler(svc.Enquiry, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.ListProducts)
			r.Get("/search", products.SearchProducts)
			r.Get("/{id}", products.GetProduct)

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Put("/wishlist", products.ToggleWishlist)
				r.Put("/rating", products.SubmitRating)
			})

			r.Group(func(r chi.Router) {
				r.Use(authn, admin)
				r.Post("/", products.CreateProduct)
				r.Put("/{id}", products.UpdateProduct)
				r.Delete("/{id}", products.DeleteProduct)
			})
		})

		r.Route("/colors", func(r chi.Router) {
			r.With(middleware.CacheControl(60)).Get("/", products.ListColors)
			r.With(authn, admin).Post("/", products.CreateColor)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(authn)
			r.Post("/", carts.AddToCart)
			r.Get("/", carts.GetCart)
			r.Delete("/empty", carts.EmptyCart)
			r.Delete("/{cartItemId}", carts.RemoveCartItem)
			r.Put("/{cartItemId}/{newQuantity}", carts.UpdateQuantity)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(authn)
			r.Post("/", orders.PlaceOrder)
			r.Get("/mine", orders.ListMyOrders)
			r.Get("/{id}", orders.GetOrder)

			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Get("/", orders.ListOrders)
				r.Get("/stats/monthly", orders.MonthlyIncome)
				r.Get("/stats/yearly", orders.YearlyTotals)
				r.Put("/{id}/status", orders.UpdateStatus)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", users.Register)
			r.Post("/login", users.Login)
			r.Post("/admin-login", users.AdminLogin)
			r.Get("/refresh", users.Refresh)
			r.Post("/logout", users.Logout)
			r.Post("/forgot-password", users.ForgotPassword)
			r.Put("/reset-password/{token}", users.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Get("/me", users.GetProfile)
				r.Put("/me", users.UpdateProfile)
				r.Put("/me/address", users.SaveAddress)
				r.Put("/password", users.UpdatePassword)
				r.Get("/wishlist", users.GetWishlist)
			})

			r.Group(func(r chi.Router) {
				r.Use(authn, admin)
				r.Get("/", users.ListUsers)
				r.Get("/{id}", users.GetUser)
				r.Delete("/{id}", users.DeleteUser)
				r.Put("/{id}/block", users.BlockUser)
				r.Put("/{id}/unblock", users.UnblockUser)
			})
		})

		r.Route("/enquiries", func(r chi.Router) {
			r.Post("/", enquiries.CreateEnquiry)
			r.Get("/", enquiries.ListEnquiries)
			r.Get("/{id}", enquiries.GetEnquiry)

			r.Group(func(r chi.Router) {
				r.Use(authn, admin)
				r.Put("/{id}", enquiries.UpdateStatus)
				r.Delete("/{id}", enquiries.DeleteEnquiry)
			})
		})
	})

	return r
}
