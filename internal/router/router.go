package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthCheckTimeout = 2 * time.Second

// Controllers groups every HTTP handler set mounted under /api/v1.
type Controllers struct {
	Auth           *controller.AuthController
	Password       *controller.PasswordController
	User           *controller.UserController
	Category       *controller.CategoryController
	Product        *controller.ProductController
	Search         *controller.SearchController
	Cart           *controller.CartController
	Wishlist       *controller.WishlistController
	Review         *controller.ReviewController
	Recommendation *controller.RecommendationController
	Order          *controller.OrderController
	Payment        *controller.PaymentController
	Upload         *controller.UploadController
	LiveFeed       *controller.LiveFeedController
}

type Router struct {
	controllers    Controllers
	authMiddleware *middleware.AuthMiddleware
	authLimiter    *middleware.RateLimiter
	searchLimiter  *middleware.RateLimiter
	metrics        *middleware.Metrics
	gatherer       prometheus.Gatherer
	healthCheck    func(ctx context.Context) error
	config         *config.Config
}

type Option func(*Router)

// WithMetrics records request metrics and serves gatherer on /metrics and
// /api/v1/metrics.
func WithMetrics(m *middleware.Metrics, gatherer prometheus.Gatherer) Option {
	return func(r *Router) {
		r.metrics = m
		r.gatherer = gatherer
	}
}

// WithHealthCheck makes /health report 503 when check fails.
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(r *Router) {
		r.healthCheck = check
	}
}

func NewRouter(controllers Controllers, authMiddleware *middleware.AuthMiddleware, cfg *config.Config, opts ...Option) *Router {
	r := &Router{
		controllers:    controllers,
		authMiddleware: authMiddleware,
		authLimiter:    middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		searchLimiter:  middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		config:         cfg,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StartLimiterCleanup evicts idle rate limit buckets until stop is closed.
func (r *Router) StartLimiterCleanup(interval time.Duration, stop <-chan struct{}) {
	r.authLimiter.StartCleanup(interval, stop)
	r.searchLimiter.StartCleanup(interval, stop)
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))
	if r.metrics != nil {
		router.Use(r.metrics.Handler())
	}

	var metricsHandler gin.HandlerFunc
	if r.gatherer != nil {
		metricsHandler = gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	}

	router.GET("/health", r.health)
	if metricsHandler != nil {
		router.GET("/metrics", metricsHandler)
	}

	ctl := r.controllers
	authenticated := r.authMiddleware.Authenticate()
	adminOnly := r.authMiddleware.RequireRole("admin")

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", r.health)
		if metricsHandler != nil {
			v1.GET("/metrics", metricsHandler)
		}

		auth := v1.Group("/auth")
		auth.Use(r.authLimiter.Handler())
		{
			auth.POST("/signup", ctl.Auth.Signup)
			auth.POST("/login", ctl.Auth.Login)
			auth.POST("/refresh", ctl.Auth.RefreshToken)
			auth.POST("/password/forgot", ctl.Password.Forgot)
			auth.POST("/password/reset", ctl.Password.Reset)
			auth.POST("/logout", authenticated, ctl.Auth.Logout)
			auth.GET("/me", authenticated, ctl.Auth.Me)
		}

		users := v1.Group("/users")
		{
			users.GET("/exists", ctl.User.Exists)
			users.GET("/:id", authenticated, ctl.User.GetUser)
			users.GET("/username/:username", authenticated, ctl.User.GetByUsername)
			users.GET("/email/:email", authenticated, ctl.User.GetByEmail)
			users.PUT("/me", authenticated, ctl.User.UpdateMe)
			users.PUT("/me/password", authenticated, ctl.Password.Change)
			users.DELETE("/me", authenticated, ctl.User.DeleteMe)
		}

		categories := v1.Group("/categories")
		{
			categories.GET("", ctl.Category.List)
			categories.GET("/count", ctl.Category.Count)
			categories.GET("/search", ctl.Category.Search)
			categories.GET("/name/:name", ctl.Category.GetByName)
			categories.GET("/:id", ctl.Category.Get)
		}

		products := v1.Group("/products")
		{
			products.GET("", ctl.Product.List)
			products.GET("/search", ctl.Product.SearchByName)
			products.GET("/category/:categoryId", ctl.Product.ListByCategory)
			products.GET("/price-range", ctl.Product.ListByPriceRange)
			products.GET("/available", ctl.Product.ListAvailable)
			products.GET("/recent", ctl.Product.Recent)
			products.GET("/featured", ctl.Product.Featured)
			products.GET("/trending", ctl.Product.Trending)
			products.GET("/random", ctl.Product.Random)
			products.GET("/:id", r.authMiddleware.OptionalAuthenticate(), ctl.Product.GetDetail)
			products.GET("/:id/similar", ctl.Product.Similar)
		}

		search := v1.Group("/search")
		search.Use(r.authMiddleware.OptionalAuthenticate(), r.searchLimiter.Handler())
		{
			search.GET("", ctl.Search.Search)
			search.GET("/stats", ctl.Search.Stats)
			search.GET("/name", ctl.Search.ByName)
			search.GET("/category/:categoryId", ctl.Search.ByCategory)
			search.GET("/price-range", ctl.Search.ByPriceRange)
			search.GET("/attributes", ctl.Search.ByAttributes)
			search.GET("/availability", ctl.Search.ByAvailability)
			search.GET("/stock-range", ctl.Search.ByStockRange)
			search.GET("/suggestions", ctl.Search.Suggestions)
			search.GET("/popular", ctl.Search.PopularSearches)
			search.GET("/popular-categories", ctl.Search.PopularCategories)
		}

		filters := v1.Group("/filters")
		{
			filters.GET("/options", ctl.Search.FilterOptions)
		}

		cart := v1.Group("/cart")
		cart.Use(authenticated)
		{
			cart.GET("", ctl.Cart.GetCart)
			cart.DELETE("", ctl.Cart.Clear)
			cart.GET("/empty", ctl.Cart.IsEmpty)
			cart.GET("/count", ctl.Cart.ItemCount)
			cart.GET("/skus/:skuId", ctl.Cart.HasItem)
			cart.POST("/items", ctl.Cart.AddItem)
			cart.PUT("/items/:itemId", ctl.Cart.UpdateItem)
			cart.DELETE("/items/:itemId", ctl.Cart.RemoveItem)
			cart.DELETE("/products/:productId", ctl.Cart.RemoveProduct)
			cart.POST("/bulk/add", ctl.Cart.BulkAdd)
			cart.PUT("/bulk/update", ctl.Cart.BulkUpdate)
			cart.POST("/bulk/remove", ctl.Cart.BulkRemove)
		}

		wishlist := v1.Group("/wishlist")
		{
			wishlist.GET("/popular", ctl.Wishlist.MostWishlisted)

			mine := wishlist.Group("")
			mine.Use(authenticated)
			mine.GET("", ctl.Wishlist.List)
			mine.POST("", ctl.Wishlist.Add)
			mine.DELETE("", ctl.Wishlist.Clear)
			mine.GET("/page", ctl.Wishlist.ListPage)
			mine.GET("/count", ctl.Wishlist.Count)
			mine.GET("/empty", ctl.Wishlist.IsEmpty)
			mine.GET("/stats", ctl.Wishlist.Stats)
			mine.GET("/recent", ctl.Wishlist.Recent)
			mine.GET("/check/:productId", ctl.Wishlist.Check)
			mine.GET("/category/:categoryId", ctl.Wishlist.ByCategory)
			mine.DELETE("/:productId", ctl.Wishlist.Remove)
			mine.POST("/:productId/move-to-cart", ctl.Wishlist.MoveToCart)
			mine.POST("/move-all-to-cart", ctl.Wishlist.MoveAllToCart)
			mine.POST("/bulk/add", ctl.Wishlist.BulkAdd)
			mine.POST("/bulk/remove", ctl.Wishlist.BulkRemove)
		}

		reviews := v1.Group("/reviews")
		{
			reviews.GET("/:id", ctl.Review.Get)
			reviews.GET("/product/:productId", ctl.Review.ListByProduct)
			reviews.GET("/product/:productId/verified", ctl.Review.ListVerified)
			reviews.GET("/product/:productId/recent", ctl.Review.Recent)
			reviews.GET("/product/:productId/helpful", ctl.Review.MostHelpful)
			reviews.GET("/product/:productId/stats", ctl.Review.Statistics)
			reviews.POST("", authenticated, ctl.Review.Create)
			reviews.PUT("/:id", authenticated, ctl.Review.Update)
			reviews.DELETE("/:id", authenticated, ctl.Review.Delete)
			reviews.POST("/:id/helpful", authenticated, ctl.Review.MarkHelpful)
		}

		recommendations := v1.Group("/recommendations")
		recommendations.Use(authenticated)
		{
			recommendations.GET("", ctl.Recommendation.List)
			recommendations.GET("/personalized", ctl.Recommendation.Personalized)
			recommendations.POST("/generate", ctl.Recommendation.Generate)
			recommendations.PUT("/:id/viewed", ctl.Recommendation.MarkViewed)
			recommendations.PUT("/:id/clicked", ctl.Recommendation.MarkClicked)
			recommendations.DELETE("/:id", ctl.Recommendation.Remove)
		}

		analytics := v1.Group("/analytics")
		analytics.Use(authenticated, adminOnly)
		{
			analytics.GET("/products/:id", ctl.Recommendation.ProductAnalytics)
		}

		orders := v1.Group("/orders")
		orders.Use(authenticated)
		{
			orders.POST("", ctl.Order.Checkout)
			orders.GET("", ctl.Order.ListMine)
			orders.GET("/:id", ctl.Order.GetMine)
			orders.POST("/:id/cancel", ctl.Order.Cancel)
			orders.POST("/:id/payment", ctl.Payment.Initiate)
			orders.POST("/:id/payment/approve", ctl.Payment.Approve)
			orders.POST("/:id/payment/fail", ctl.Payment.Fail)
		}

		upload := v1.Group("/upload")
		upload.Use(authenticated)
		{
			upload.POST("/presigned-url", ctl.Upload.GeneratePresignedURL)
		}

		admin := v1.Group("/admin")
		admin.Use(authenticated, adminOnly)
		{
			admin.GET("/ws", ctl.LiveFeed.Connect)

			admin.GET("/users", ctl.User.ListUsers)
			admin.GET("/users/stats", ctl.User.Stats)
			admin.PUT("/users/:id/role", ctl.User.SetRole)
			admin.PUT("/users/:id/activate", ctl.User.Activate)
			admin.DELETE("/users/:id", ctl.User.DeleteUser)

			admin.POST("/categories", ctl.Category.Create)
			admin.PUT("/categories/:id", ctl.Category.Update)
			admin.DELETE("/categories/:id", ctl.Category.Delete)
			admin.DELETE("/categories/:id/soft", ctl.Category.SoftDelete)
			admin.POST("/categories/:id/restore", ctl.Category.Restore)

			admin.GET("/products", ctl.Product.ListAll)
			admin.GET("/products/deleted", ctl.Product.ListDeleted)
			admin.GET("/products/stats", ctl.Product.Stats)
			admin.GET("/products/export", ctl.Product.Export)
			admin.POST("/products/import", ctl.Product.Import)
			admin.POST("/products", ctl.Product.Create)
			admin.PUT("/products/:id", ctl.Product.Update)
			admin.DELETE("/products/:id", ctl.Product.Delete)
			admin.DELETE("/products/:id/soft", ctl.Product.SoftDelete)
			admin.POST("/products/:id/restore", ctl.Product.Restore)
			admin.POST("/products/bulk-delete", ctl.Product.BulkSoftDelete)
			admin.POST("/products/bulk-restore", ctl.Product.BulkRestore)
			admin.POST("/products/:id/skus", ctl.Product.AddSku)
			admin.PUT("/skus/:skuId", ctl.Product.UpdateSku)
			admin.DELETE("/skus/:skuId", ctl.Product.DeleteSku)

			admin.GET("/carts/stats", ctl.Cart.Stats)
			admin.POST("/carts/merge", ctl.Cart.Merge)
			admin.POST("/carts/copy", ctl.Cart.Copy)

			admin.POST("/wishlist/:id/restore", ctl.Wishlist.Restore)
			admin.DELETE("/wishlist/:id", ctl.Wishlist.HardDelete)

			admin.PUT("/reviews/:id/approval", ctl.Review.SetApproval)

			admin.GET("/recommendations/stats", ctl.Recommendation.Stats)
			admin.POST("/recommendations/generate", ctl.Recommendation.GenerateAll)
			admin.PUT("/recommendations/:id/score", ctl.Recommendation.UpdateScore)

			admin.GET("/orders", ctl.Order.ListAll)
			admin.PUT("/orders/:id/status", ctl.Order.UpdateStatus)
			admin.PUT("/orders/:id/payment-status", ctl.Order.UpdatePaymentStatus)
			admin.POST("/orders/:id/refund", ctl.Payment.Refund)
		}
	}

	return router
}

func (r *Router) health(c *gin.Context) {
	if r.healthCheck != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.healthCheck(ctx); err != nil {
			middleware.GetLoggerFromContext(c).Error("Health check failed", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Storefront API is running",
	})
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
