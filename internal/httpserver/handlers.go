package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"glow-storefront/internal/domain"
	"glow-storefront/internal/service/checkout"
)

type handlers struct {
	catalog  catalog
	cart     cartStore
	checkout checkoutService
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  *int   `json:"quantity"`
}

func (h *handlers) listProducts(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))
	c.JSON(http.StatusOK, gin.H{"results": toProductViews(h.catalog.ByCategory(category))})
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductView(*p))
}

func (h *handlers) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"results": h.catalog.Categories()})
}

func (h *handlers) getCart(c *gin.Context) {
	h.respondCart(c)
}

// addItem resolves the product from the catalog so clients cannot inject
// prices. Quantity defaults to one.
func (h *handlers) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId required"})
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	p, err := h.catalog.Get(strings.TrimSpace(req.ProductID))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.cart.AddToCart(*p, quantity); err != nil {
		writeError(c, err)
		return
	}
	h.respondCart(c)
}

func (h *handlers) removeItem(c *gin.Context) {
	h.cart.RemoveFromCart(c.Param("id"))
	h.respondCart(c)
}

func (h *handlers) increment(c *gin.Context) {
	h.cart.IncrementQuantity(c.Param("id"))
	h.respondCart(c)
}

func (h *handlers) decrement(c *gin.Context) {
	h.cart.DecrementQuantity(c.Param("id"))
	h.respondCart(c)
}

func (h *handlers) toggle(c *gin.Context) {
	h.cart.ToggleSelection(c.Param("id"))
	h.respondCart(c)
}

func (h *handlers) selectAll(c *gin.Context) {
	h.cart.SelectAll()
	h.respondCart(c)
}

func (h *handlers) deselectAll(c *gin.Context) {
	h.cart.DeselectAll()
	h.respondCart(c)
}

func (h *handlers) removeSelected(c *gin.Context) {
	h.cart.RemoveSelected()
	h.respondCart(c)
}

func (h *handlers) clearCart(c *gin.Context) {
	h.cart.ClearCart()
	h.respondCart(c)
}

func (h *handlers) placeOrder(c *gin.Context) {
	order, err := h.checkout.PlaceOrder(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"order": toOrderView(*order),
		"cart":  toCartView(h.cart.Snapshot()),
	})
}

func (h *handlers) respondCart(c *gin.Context) {
	c.JSON(http.StatusOK, toCartView(h.cart.Snapshot()))
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, domain.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrEmptySelection):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
