package public

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/diancan-next/internal/cache"
	"github.com/diancan-next/internal/constants"
	"github.com/diancan-next/internal/http/response"
	"github.com/diancan-next/internal/models"
	"github.com/diancan-next/internal/repository"
	"github.com/diancan-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	publicConfigCacheKey = "public:config"
	publicConfigCacheTTL = 60 * time.Second
)

// GetConfig 获取全局配置
func (h *Handler) GetConfig(c *gin.Context) {
	// 默认配置
	defaults := map[string]interface{}{
		"languages":                        constants.SupportedLocales,
		constants.SettingFieldSiteCurrency: constants.SiteCurrencyDefault,
		"store_name":                       map[string]interface{}{"zh-CN": "点餐", "en-US": "Diancan"},
		"announcement":                     "",
	}

	var cached map[string]interface{}
	if hit, err := cache.GetJSON(c.Request.Context(), publicConfigCacheKey, &cached); err == nil && hit {
		response.Success(c, cached)
		return
	}

	data, err := h.SettingService.GetConfig(defaults)
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}

	_ = cache.SetJSON(c.Request.Context(), publicConfigCacheKey, data, publicConfigCacheTTL)
	response.Success(c, data)
}

// GetCategories 获取上架分类列表
func (h *Handler) GetCategories(c *gin.Context) {
	categories, err := h.CategoryService.List()
	if err != nil {
		respondError(c, response.CodeInternal, "error.category_fetch_failed", err)
		return
	}

	active := make([]models.Category, 0, len(categories))
	for _, category := range categories {
		if category.IsActive {
			active = append(active, category)
		}
	}
	response.Success(c, active)
}

// GetProducts 获取菜单商品列表
func (h *Handler) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	products, total, err := h.ProductService.List(repository.ProductListFilter{
		Page:         page,
		PageSize:     pageSize,
		CategoryID:   c.Query("category_id"),
		Type:         strings.TrimSpace(c.Query("type")),
		Search:       strings.TrimSpace(c.Query("search")),
		OnlyActive:   true,
		WithCategory: true,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, products, pagination)
}

// GetProductBySlug 根据 slug 获取商品详情
func (h *Handler) GetProductBySlug(c *gin.Context) {
	slug := c.Param("slug")

	product, err := h.ProductService.GetBySlug(slug, true)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.product_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}

	response.Success(c, product)
}

// GetPromotions 获取当前生效的促销规则
func (h *Handler) GetPromotions(c *gin.Context) {
	ruleType := strings.TrimSpace(c.Query("type"))
	if ruleType != "" {
		response.Success(c, h.PromotionService.PromotionsByType(ruleType))
		return
	}
	response.Success(c, h.PromotionService.ActivePromotions())
}

// ValidateCouponRequest 优惠码校验请求
type ValidateCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// ValidateCoupon 校验优惠码。携带购物车会话时按当前小计校验门槛
func (h *Handler) ValidateCoupon(c *gin.Context) {
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	subtotal := decimal.Zero
	if token := strings.TrimSpace(c.GetHeader(constants.CartSessionHeader)); token != "" {
		view, err := h.CartService.GetCart(token, "")
		if err != nil {
			respondError(c, response.CodeInternal, "error.cart_fetch_failed", err)
			return
		}
		subtotal = view.Totals.Subtotal
	}

	response.Success(c, h.PromotionService.ValidateCoupon(req.Code, subtotal))
}
