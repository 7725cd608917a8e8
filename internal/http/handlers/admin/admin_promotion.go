package admin

import (
	"errors"
	"strconv"
	"time"

	"github.com/diancan-next/internal/http/response"
	"github.com/diancan-next/internal/models"
	"github.com/diancan-next/internal/repository"
	"github.com/diancan-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PromotionRuleRequest 创建/更新促销规则请求
type PromotionRuleRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Type        string                 `json:"type" binding:"required"`
	ApplyOrder  int                    `json:"apply_order"`
	Conditions  map[string]interface{} `json:"conditions"`
	Discount    map[string]interface{} `json:"discount"`
	Code        string                 `json:"code"`
	Stackable   bool                   `json:"stackable"`
	ValidFrom   string                 `json:"valid_from"`
	ValidUntil  string                 `json:"valid_until"`
	MinSubtotal float64                `json:"min_subtotal"`
	MaxUsage    int                    `json:"max_usage"`
	IsActive    *bool                  `json:"is_active"`
}

func (req *PromotionRuleRequest) toInput() (service.PromotionRuleInput, error) {
	validFrom, err := parseTimeNullable(req.ValidFrom)
	if err != nil {
		return service.PromotionRuleInput{}, err
	}
	validUntil, err := parseTimeNullable(req.ValidUntil)
	if err != nil {
		return service.PromotionRuleInput{}, err
	}

	input := service.PromotionRuleInput{
		Name:        req.Name,
		Type:        req.Type,
		ApplyOrder:  req.ApplyOrder,
		Conditions:  req.Conditions,
		Discount:    req.Discount,
		Code:        req.Code,
		Stackable:   req.Stackable,
		ValidFrom:   validFrom,
		ValidUntil:  validUntil,
		MinSubtotal: models.NewMoneyFromDecimal(decimal.NewFromFloat(req.MinSubtotal)),
		MaxUsage:    req.MaxUsage,
		IsActive:    true,
	}
	if req.IsActive != nil {
		input.IsActive = *req.IsActive
	}
	return input, nil
}

func respondPromotionSaveError(c *gin.Context, err error, fallbackKey string) {
	switch {
	case errors.Is(err, service.ErrPromotionNotFound):
		respondError(c, response.CodeNotFound, "error.promotion_not_found", nil)
	case errors.Is(err, service.ErrPromotionCodeExists):
		respondError(c, response.CodeBadRequest, "error.promotion_code_exists", nil)
	case errors.Is(err, service.ErrPromotionInvalid):
		respondError(c, response.CodeBadRequest, "error.promotion_invalid", nil)
	default:
		respondError(c, response.CodeInternal, fallbackKey, err)
	}
}

// GetAdminPromotions 获取促销规则列表
func (h *Handler) GetAdminPromotions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	var isActive *bool
	if raw := c.Query("is_active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		isActive = &parsed
	}

	rules, total, err := h.PromotionAdminService.List(repository.PromotionRuleListFilter{
		Type:     c.Query("type"),
		Code:     c.Query("code"),
		IsActive: isActive,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.promotion_fetch_failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, rules, pagination)
}

// GetAdminPromotion 获取促销规则详情
func (h *Handler) GetAdminPromotion(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	rule, err := h.PromotionAdminService.Get(uint(id))
	if err != nil {
		respondPromotionSaveError(c, err, "error.promotion_fetch_failed")
		return
	}
	response.Success(c, rule)
}

// CreatePromotion 创建促销规则
func (h *Handler) CreatePromotion(c *gin.Context) {
	var req PromotionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	rule, err := h.PromotionAdminService.Create(input)
	if err != nil {
		respondPromotionSaveError(c, err, "error.promotion_create_failed")
		return
	}
	response.Success(c, rule)
}

// UpdatePromotion 更新促销规则
func (h *Handler) UpdatePromotion(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	var req PromotionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	rule, err := h.PromotionAdminService.Update(uint(id), input)
	if err != nil {
		respondPromotionSaveError(c, err, "error.promotion_update_failed")
		return
	}
	response.Success(c, rule)
}

// DeletePromotion 删除促销规则
func (h *Handler) DeletePromotion(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.PromotionAdminService.Delete(uint(id)); err != nil {
		respondPromotionSaveError(c, err, "error.promotion_delete_failed")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// PreviewItemRequest 试算行项
type PreviewItemRequest struct {
	ProductID uint     `json:"product_id" binding:"required"`
	Size      string   `json:"size"`
	Quantity  int      `json:"quantity" binding:"required"`
	Addons    []string `json:"addons"`
}

// PreviewPromotionsRequest 促销试算请求
type PreviewPromotionsRequest struct {
	Items       []PreviewItemRequest `json:"items" binding:"required"`
	CouponCode  string               `json:"coupon_code"`
	DeliveryFee *float64             `json:"delivery_fee"`
}

// PreviewPromotions 按给定购物车试算促销结果，不落库
func (h *Handler) PreviewPromotions(c *gin.Context) {
	var req PreviewPromotionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	inputs := make([]service.AddItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		inputs = append(inputs, service.AddItemInput{
			ProductID: item.ProductID,
			Size:      item.Size,
			Quantity:  item.Quantity,
			Addons:    item.Addons,
		})
	}

	cartItems, err := h.CartService.BuildTransientItems(inputs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuantityInvalid):
			respondError(c, response.CodeBadRequest, "error.quantity_invalid", nil)
		case errors.Is(err, service.ErrProductNotFound):
			respondError(c, response.CodeBadRequest, "error.product_not_found", nil)
		case errors.Is(err, service.ErrProductSizeInvalid):
			respondError(c, response.CodeBadRequest, "error.product_size_invalid", nil)
		case errors.Is(err, service.ErrProductAddonInvalid):
			respondError(c, response.CodeBadRequest, "error.product_addon_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.promotion_preview_failed", err)
		}
		return
	}

	lineItems, err := h.PromotionService.BuildLineItems(cartItems)
	if err != nil {
		respondError(c, response.CodeInternal, "error.promotion_preview_failed", err)
		return
	}

	deliveryFee := decimal.Zero
	if req.DeliveryFee != nil {
		deliveryFee = decimal.NewFromFloat(*req.DeliveryFee)
	} else {
		deliveryFee, err = h.SettingService.GetDeliveryFee(decimal.Zero)
		if err != nil {
			respondError(c, response.CodeInternal, "error.promotion_preview_failed", err)
			return
		}
	}

	response.Success(c, h.PromotionService.CartTotals(lineItems, deliveryFee, req.CouponCode))
}

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
