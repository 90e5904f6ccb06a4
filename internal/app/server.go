// Package app assembles repositories, services and controllers into the HTTP server.
package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/router"
	"github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/events"
	"github.com/ikkim/storefront-backend/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Deps are the external resources the server is built on. Only DB and
// Config are required; every other field disables its feature when nil.
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Store     *redis.Store
	Presigner service.Presigner
	Gateway   service.PaymentGateway
	Publisher events.Publisher
	Registry  *prometheus.Registry
}

type Server struct {
	Engine          *gin.Engine
	Router          *router.Router
	Hub             *websocket.Hub
	Products        service.ProductService
	Carts           service.CartService
	Recommendations service.RecommendationService
	PasswordResets  service.PasswordResetService
}

// NewServer wires the application. The caller runs Hub.
func NewServer(d Deps) (*Server, error) {
	cfg := d.Config

	// typed nil pointers must not leak into the optional interfaces
	var (
		cache     service.Cache
		revoker   service.TokenRevoker
		ranking   service.SearchRanking
		blacklist middleware.TokenBlacklist
	)
	if d.Store != nil {
		cache, revoker, ranking, blacklist = d.Store, d.Store, d.Store, d.Store
	}

	userRepo := repository.NewUserRepository(d.DB)
	resetRepo := repository.NewPasswordResetRepository(d.DB)
	categoryRepo := repository.NewCategoryRepository(d.DB)
	productRepo := repository.NewProductRepository(d.DB)
	skuRepo := repository.NewSkuRepository(d.DB)
	attrRepo := repository.NewAttributeRepository(d.DB)
	cartRepo := repository.NewCartRepository(d.DB)
	wishlistRepo := repository.NewWishlistRepository(d.DB)
	reviewRepo := repository.NewReviewRepository(d.DB)
	analyticsRepo := repository.NewAnalyticsRepository(d.DB)
	orderRepo := repository.NewOrderRepository(d.DB)

	hub := websocket.NewHub()

	authService := service.NewAuthService(userRepo, revoker, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)
	userService := service.NewUserService(userRepo)
	resetService := service.NewPasswordResetService(d.DB, resetRepo, userRepo, d.Publisher)
	categoryService := service.NewCategoryService(categoryRepo, cache)
	productService := service.NewProductService(d.DB, productRepo, categoryRepo, skuRepo, reviewRepo, analyticsRepo, cache, cfg.Redis.CacheTTL)
	searchService := service.NewSearchService(productRepo, categoryRepo, attrRepo, ranking, cache)
	cartService := service.NewCartService(cartRepo, skuRepo)
	wishlistService := service.NewWishlistService(wishlistRepo, productRepo, skuRepo, cartService)
	reviewService := service.NewReviewService(reviewRepo, productRepo, cache)
	recommendationService := service.NewRecommendationService(analyticsRepo, productRepo, wishlistRepo, reviewRepo, userRepo, hub, cfg.Recommendation.Limit)
	orderService := service.NewOrderService(d.DB, orderRepo, d.Publisher, hub)
	paymentService := service.NewPaymentService(d.DB, orderRepo, d.Gateway, hub)
	uploadService := service.NewUploadService(d.Presigner)

	controllers := router.Controllers{
		Auth:           controller.NewAuthController(authService),
		Password:       controller.NewPasswordController(resetService),
		User:           controller.NewUserController(userService),
		Category:       controller.NewCategoryController(categoryService),
		Product:        controller.NewProductController(productService, recommendationService),
		Search:         controller.NewSearchController(searchService),
		Cart:           controller.NewCartController(cartService),
		Wishlist:       controller.NewWishlistController(wishlistService),
		Review:         controller.NewReviewController(reviewService),
		Recommendation: controller.NewRecommendationController(recommendationService),
		Order:          controller.NewOrderController(orderService),
		Payment:        controller.NewPaymentController(paymentService),
		Upload:         controller.NewUploadController(uploadService),
		LiveFeed:       controller.NewLiveFeedController(hub, cfg.CORS.AllowedOrigins),
	}

	opts := []router.Option{
		router.WithHealthCheck(func(ctx context.Context) error {
			return db.Ping(ctx, d.DB)
		}),
	}
	if d.Registry != nil {
		metrics, err := middleware.NewMetrics(d.Registry)
		if err != nil {
			return nil, err
		}
		opts = append(opts, router.WithMetrics(metrics, d.Registry))
	}

	r := router.NewRouter(controllers, middleware.NewAuthMiddleware(cfg.JWT.Secret, blacklist), cfg, opts...)

	return &Server{
		Engine:          r.Setup(),
		Router:          r,
		Hub:             hub,
		Products:        productService,
		Carts:           cartService,
		Recommendations: recommendationService,
		PasswordResets:  resetService,
	}, nil
}
