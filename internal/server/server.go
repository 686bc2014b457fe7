package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
)

type Server struct {
	config     *config.Config
	router     *gin.Engine
	httpServer *http.Server
	handlers   *handlers.Handlers
	auth       *middleware.Authenticator
	limiter    *middleware.RateLimiter
	logger     *logging.LoggerV2
}

func New(
	cfg *config.Config,
	h *handlers.Handlers,
	auth *middleware.Authenticator,
	limiter *middleware.RateLimiter,
	logger *logging.LoggerV2,
) *Server {
	handlers.RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Metrics())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
		auth:     auth,
		limiter:  limiter,
		logger:   logger,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.Health)
	s.router.GET("/ready", h.Ready)
	s.router.GET("/live", h.Live)
	s.router.GET("/version", h.Version)
	s.router.GET("/metrics", h.Metrics)

	if s.config.Features.EnableDebugEndpoint {
		s.router.GET("/debug", h.Debug)
	}

	api := s.router.Group("/api")
	{
		api.GET("/products", h.ListProducts)
		api.GET("/products/:id", h.GetProduct)
	}

	authed := api.Group("")
	authed.Use(s.auth.RequireUser())
	{
		authed.GET("/auth/user", h.GetAuthUser)

		authed.GET("/cart", h.GetCart)
		authed.POST("/cart", s.limiter.Limit(), h.AddToCart)
		authed.PUT("/cart/:id", s.limiter.Limit(), h.UpdateCartItem)
		authed.DELETE("/cart/:id", s.limiter.Limit(), h.RemoveCartItem)

		authed.POST("/orders", s.limiter.Limit(), h.PlaceOrder)
		authed.GET("/orders", h.ListOrders)
		authed.GET("/orders/:id", h.GetOrder)
		authed.PUT("/orders/:id/status", s.auth.RequireAdmin(), h.UpdateOrderStatus)
	}

	admin := authed.Group("/admin")
	admin.Use(s.auth.RequireAdmin())
	{
		admin.POST("/products", h.CreateProduct)
		admin.PUT("/products/:id", h.UpdateProduct)
		admin.DELETE("/products/:id", h.DeleteProduct)
		admin.GET("/stats", h.Stats)
		admin.GET("/orders/feed", h.OrderFeed)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting server", logging.Fields{"addr": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
