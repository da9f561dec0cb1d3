package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-api/internal/models"
	"storefront-api/internal/store"
)

func writeError(c *gin.Context, code int, errCode, message string) {
	c.JSON(code, models.ErrorResponse{
		Error:   errCode,
		Code:    code,
		Message: message,
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_id", "id must be an integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) health(c *gin.Context) {
	st := h.store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"service":    "storefront-api",
		"persist":    h.backend,
		"is_loading": st.IsLoading,
		"products":   len(st.Products),
	})
}

func (h *Handler) state(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot())
}

func (h *Handler) listProducts(c *gin.Context) {
	page := h.store.Page(queryInt(c, "page", 1), queryInt(c, "limit", 10))
	st := h.store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"page":       page,
		"is_loading": st.IsLoading,
		"error":      st.Error,
	})
}

func (h *Handler) featuredProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": h.store.FeaturedProducts()})
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if p, found := h.store.ProductByID(id); found {
		c.JSON(http.StatusOK, p)
		return
	}
	if h.store.Snapshot().IsLoading {
		c.Header("Retry-After", "1")
		writeError(c, http.StatusServiceUnavailable, "loading", "catalog is still loading")
		return
	}
	writeError(c, http.StatusNotFound, "not_found", "product not found")
}

func (h *Handler) relatedProducts(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": h.store.RelatedProducts(id, queryInt(c, "limit", 4))})
}

func (h *Handler) categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories": h.store.Categories(),
		"selected":   h.store.SelectedCategory(),
	})
}

func (h *Handler) selectCategory(c *gin.Context) {
	var req struct {
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Category == "" {
		writeError(c, http.StatusBadRequest, "bad_request", "category is required")
		return
	}
	h.store.SetSelectedCategory(req.Category)
	c.JSON(http.StatusAccepted, gin.H{"selected_category": req.Category})
}

func (h *Handler) setSort(c *gin.Context) {
	var req models.Sort
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	if err := h.store.SetSorting(req.Field, req.Order); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_sort", err.Error())
		return
	}
	c.JSON(http.StatusOK, h.store.Sorting())
}

func (h *Handler) refresh(c *gin.Context) {
	h.store.RefreshCatalog()
	c.JSON(http.StatusAccepted, gin.H{"selected_category": h.store.SelectedCategory()})
}

func (h *Handler) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Cart())
}

func (h *Handler) cartSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.CartSummary())
}

func (h *Handler) addItem(c *gin.Context) {
	var req struct {
		ProductID int  `json:"product_id"`
		Quantity  *int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	p, found := h.store.ProductByID(req.ProductID)
	if !found {
		writeError(c, http.StatusNotFound, "not_found", "product not found")
		return
	}
	if err := h.store.AddToCart(p, qty); err != nil {
		if errors.Is(err, store.ErrInvalidQuantity) {
			writeError(c, http.StatusBadRequest, "invalid_quantity", err.Error())
			return
		}
		h.logger.Error("add to cart", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	c.JSON(http.StatusCreated, h.store.Cart())
}

func (h *Handler) updateItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		writeError(c, http.StatusBadRequest, "bad_request", "quantity is required")
		return
	}
	h.store.UpdateQuantity(id, *req.Quantity)
	c.JSON(http.StatusOK, h.store.Cart())
}

func (h *Handler) removeItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.store.RemoveFromCart(id)
	c.JSON(http.StatusOK, h.store.Cart())
}

func (h *Handler) clearCart(c *gin.Context) {
	h.store.ClearCart()
	c.JSON(http.StatusOK, h.store.Cart())
}
