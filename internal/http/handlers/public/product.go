package public

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/vnshop-next/internal/cache"
	"github.com/vnshop-next/internal/http/response"
	"github.com/vnshop-next/internal/models"
	"github.com/vnshop-next/internal/repository"
	"github.com/vnshop-next/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	productDetailCacheTTL = 60 * time.Second
)

// ListProducts 商品列表
func (h *Handler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	products, total, err := h.ProductService.ListProducts(repository.ProductListFilter{
		Page:         page,
		PageSize:     pageSize,
		CategoryID:   strings.TrimSpace(c.Query("category_id")),
		Search:       strings.TrimSpace(c.Query("search")),
		OnlyActive:   true,
		WithCategory: true,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "product list failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, products, pagination)
}

// GetProduct 商品详情，支持数字 ID 或 slug
func (h *Handler) GetProduct(c *gin.Context) {
	key := strings.TrimSpace(c.Param("id"))
	if key == "" {
		respondError(c, response.CodeBadRequest, "product key required", nil)
		return
	}

	cacheKey := "product:detail:" + key
	var cached models.Product
	if hit, err := cache.GetJSON(c.Request.Context(), cacheKey, &cached); err == nil && hit {
		response.Success(c, cached)
		return
	}

	var product *models.Product
	var err error
	if id, parseErr := strconv.ParseUint(key, 10, 64); parseErr == nil && id > 0 {
		product, err = h.ProductService.GetProduct(uint(id))
	} else {
		product, err = h.ProductService.GetProductBySlug(key)
	}
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) || errors.Is(err, service.ErrProductInactive) {
			respondError(c, response.CodeNotFound, "product not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "product fetch failed", err)
		return
	}

	_ = cache.SetJSON(c.Request.Context(), cacheKey, product, productDetailCacheTTL)
	response.Success(c, product)
}
