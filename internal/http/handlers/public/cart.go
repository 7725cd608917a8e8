package public

import (
	"strconv"

	"github.com/diancan-next/internal/http/response"
	"github.com/diancan-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateCartSession 创建购物车会话
func (h *Handler) CreateCartSession(c *gin.Context) {
	response.Success(c, gin.H{
		"session_token": h.CartService.NewSessionToken(),
	})
}

// GetCart 获取购物车及计价结果
func (h *Handler) GetCart(c *gin.Context) {
	token, ok := getCartSession(c)
	if !ok {
		return
	}

	view, err := h.CartService.GetCart(token, c.Query("coupon"))
	if err != nil {
		respondError(c, response.CodeInternal, "error.cart_fetch_failed", err)
		return
	}
	response.Success(c, view)
}

// AddCartItemRequest 加购请求
type AddCartItemRequest struct {
	ProductID uint     `json:"product_id" binding:"required"`
	Size      string   `json:"size"`
	Quantity  int      `json:"quantity" binding:"required"`
	Addons    []string `json:"addons"`
}

// AddCartItem 添加购物车行项
func (h *Handler) AddCartItem(c *gin.Context) {
	token, ok := getCartSession(c)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	item, err := h.CartService.AddItem(token, service.AddItemInput{
		ProductID: req.ProductID,
		Size:      req.Size,
		Quantity:  req.Quantity,
		Addons:    req.Addons,
	})
	if err != nil {
		respondCartItemError(c, err)
		return
	}
	response.Success(c, item)
}

// UpdateCartItemRequest 修改数量请求
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// UpdateCartItem 修改购物车行项数量
func (h *Handler) UpdateCartItem(c *gin.Context) {
	token, ok := getCartSession(c)
	if !ok {
		return
	}
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || itemID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	item, err := h.CartService.UpdateQuantity(token, uint(itemID), req.Quantity)
	if err != nil {
		respondCartItemError(c, err)
		return
	}
	response.Success(c, item)
}

// DeleteCartItem 删除购物车行项
func (h *Handler) DeleteCartItem(c *gin.Context) {
	token, ok := getCartSession(c)
	if !ok {
		return
	}
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || itemID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.CartService.RemoveItem(token, uint(itemID)); err != nil {
		respondCartItemError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	token, ok := getCartSession(c)
	if !ok {
		return
	}
	if err := h.CartService.Clear(token); err != nil {
		respondError(c, response.CodeInternal, "error.cart_update_failed", err)
		return
	}
	response.Success(c, gin.H{"cleared": true})
}
