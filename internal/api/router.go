// Package api exposes the storefront store over JSON HTTP.
package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-api/internal/store"
)

type Options struct {
	Backend         string // persistence backend name, reported by /health
	RateLimitPerSec float64
	RateLimitBurst  int
}

type Handler struct {
	store   *store.Store
	logger  *zap.Logger
	backend string
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(s *store.Store, logger *zap.Logger, opts Options) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{store: s, logger: logger, backend: opts.Backend}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	r.Use(requestLogger(logger))
	if opts.RateLimitPerSec > 0 {
		r.Use(newIPLimiter(opts.RateLimitPerSec, opts.RateLimitBurst).middleware())
	}

	r.GET("/health", h.health)
	r.GET("/state", h.state)

	r.GET("/products", h.listProducts)
	r.GET("/products/featured", h.featuredProducts)
	r.GET("/products/:id", h.getProduct)
	r.GET("/products/:id/related", h.relatedProducts)

	r.GET("/categories", h.categories)
	r.PUT("/selection/category", h.selectCategory)
	r.PUT("/selection/sort", h.setSort)
	r.POST("/catalog/refresh", h.refresh)

	cart := r.Group("/cart")
	cart.GET("", h.getCart)
	cart.GET("/summary", h.cartSummary)
	cart.POST("/items", h.addItem)
	cart.PATCH("/items/:id", h.updateItem)
	cart.DELETE("/items/:id", h.removeItem)
	cart.DELETE("", h.clearCart)

	return r
}
