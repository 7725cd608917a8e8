package service

import "errors"

// 通用错误
var (
	ErrNotFound           = errors.New("资源不存在")
	ErrSlugExists         = errors.New("slug 已存在")
	ErrCategoryInUse      = errors.New("分类下存在商品")
	ErrInvalidCredentials = errors.New("账号或密码错误")
	ErrInvalidPassword    = errors.New("原密码错误")
	ErrWeakPassword       = errors.New("密码强度不足")
)

// 商品与购物车错误
var (
	ErrProductNotFound  = errors.New("商品不存在")
	ErrProductInvalid   = errors.New("商品配置不合法")
	ErrProductInactive  = errors.New("商品已下架")
	ErrProductSizeInvalid = errors.New("商品规格无效")
	ErrProductAddonInvalid = errors.New("加料选择无效")
	ErrCartItemNotFound = errors.New("购物车项不存在")
	ErrCartEmpty        = errors.New("购物车为空")
	ErrQuantityInvalid  = errors.New("数量无效")
)

// 促销规则错误
var (
	ErrPromotionNotFound    = errors.New("促销规则不存在")
	ErrPromotionInvalid     = errors.New("促销规则不合法")
	ErrPromotionCodeExists  = errors.New("优惠码已存在")
	ErrCouponInvalid        = errors.New("优惠码不可用")
)

// 订单错误
var (
	ErrOrderNotFound          = errors.New("订单不存在")
	ErrOrderStatusInvalid     = errors.New("订单状态流转不合法")
	ErrOrderNotPayable        = errors.New("订单不可支付")
	ErrOrderContactRequired   = errors.New("收货信息不完整")
	ErrPaymentFailed          = errors.New("支付失败")
	ErrOrderCreateFailed      = errors.New("订单创建失败")
	ErrOrderUpdateFailed      = errors.New("订单更新失败")
	ErrQueueUnavailable       = errors.New("队列服务不可用")
)
