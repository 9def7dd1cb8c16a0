package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"glow-storefront/internal/domain"
	"glow-storefront/internal/logging"
	cartsvc "glow-storefront/internal/service/cart"
)

type readiness interface {
	Ready() bool
}

type cartStore interface {
	readiness
	Snapshot() cartsvc.Snapshot
	AddToCart(product domain.Product, quantity int) error
	RemoveFromCart(productID string)
	IncrementQuantity(productID string)
	DecrementQuantity(productID string)
	ToggleSelection(productID string)
	SelectAll()
	DeselectAll()
	RemoveSelected()
	ClearCart()
}

type catalog interface {
	Get(id string) (*domain.Product, error)
	ByCategory(category string) []domain.Product
	Categories() []string
}

type checkoutService interface {
	PlaceOrder(ctx context.Context) (*domain.Order, error)
}

// Deps are the services the routes call into.
type Deps struct {
	Catalog          catalog
	Cart             cartStore
	Checkout         checkoutService
	CORSAllowOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger logrus.FieldLogger, deps Deps) (*gin.Engine, error) {
	if deps.Catalog == nil || deps.Cart == nil || deps.Checkout == nil {
		return nil, errors.New("httpserver: catalog, cart and checkout are required")
	}

	logger = logging.OrDiscard(logger)
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery(), cors.New(corsConfig(deps.CORSAllowOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Cart))

	h := &handlers{catalog: deps.Catalog, cart: deps.Cart, checkout: deps.Checkout}

	router.GET("/products", h.listProducts)
	router.GET("/products/:id", h.getProduct)
	router.GET("/categories", h.listCategories)

	cart := router.Group("/cart", requireReady(deps.Cart))
	cart.GET("", h.getCart)
	cart.DELETE("", h.clearCart)
	cart.POST("/items", h.addItem)
	cart.DELETE("/items/:id", h.removeItem)
	cart.POST("/items/:id/increment", h.increment)
	cart.POST("/items/:id/decrement", h.decrement)
	cart.POST("/items/:id/toggle", h.toggle)
	cart.POST("/selection", h.selectAll)
	cart.DELETE("/selection", h.deselectAll)
	cart.DELETE("/selected", h.removeSelected)

	router.POST("/checkout", requireReady(deps.Cart), h.placeOrder)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
