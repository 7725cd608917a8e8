package public

import (
	"strings"

	"github.com/diancan-next/internal/http/response"
	"github.com/diancan-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	CustomerName  string `json:"customer_name" binding:"required"`
	CustomerPhone string `json:"customer_phone" binding:"required"`
	Address       string `json:"address" binding:"required"`
	Remark        string `json:"remark"`
	CouponCode    string `json:"coupon_code"`
}

// CreateOrder 结算下单
func (h *Handler) CreateOrder(c *gin.Context) {
	token, ok := getCartSession(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	order, err := h.OrderService.Checkout(service.CheckoutInput{
		SessionToken:  token,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Address:       req.Address,
		Remark:        req.Remark,
		CouponCode:    req.CouponCode,
		ClientIP:      c.ClientIP(),
	})
	if err != nil {
		respondCheckoutError(c, err)
		return
	}
	response.Success(c, order)
}

// GetOrder 凭订单号和手机号查询订单
func (h *Handler) GetOrder(c *gin.Context) {
	orderNo := c.Param("order_no")
	phone := strings.TrimSpace(c.Query("phone"))
	if phone == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	order, err := h.OrderService.GetByOrderNoAndPhone(orderNo, phone)
	if err != nil {
		respondOrderActionError(c, err)
		return
	}
	response.Success(c, order)
}

// OrderActionRequest 订单操作请求（支付/取消）
type OrderActionRequest struct {
	CustomerPhone string `json:"customer_phone" binding:"required"`
}

// PayOrder 支付订单
func (h *Handler) PayOrder(c *gin.Context) {
	var req OrderActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	order, err := h.OrderService.Pay(c.Request.Context(), c.Param("order_no"), req.CustomerPhone)
	if err != nil {
		respondOrderActionError(c, err)
		return
	}
	response.Success(c, order)
}

// CancelOrder 取消订单
func (h *Handler) CancelOrder(c *gin.Context) {
	var req OrderActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	order, err := h.OrderService.Cancel(c.Param("order_no"), req.CustomerPhone)
	if err != nil {
		respondOrderActionError(c, err)
		return
	}
	response.Success(c, order)
}
