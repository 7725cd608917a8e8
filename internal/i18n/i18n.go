// Package i18n 提供站点文案的多语言解析。
// 语言按请求参数与 Accept-Language 解析，未命中的键回退到中文文案。
package i18n

import (
	"fmt"
	"strings"

	"github.com/diancan-next/internal/constants"

	"github.com/gin-gonic/gin"
)

// 支持的语言
const (
	LocaleZH = constants.LocaleZhCN
	LocaleEN = constants.LocaleEnUS
)

var catalog = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":            "请求参数有误",
		"error.not_found":              "资源不存在",
		"error.internal":               "服务内部错误",
		"error.unauthorized":           "请先登录",
		"error.forbidden":              "没有操作权限",
		"error.auth_header_missing":    "缺少认证信息",
		"error.auth_header_invalid":    "认证信息格式错误",
		"error.token_invalid":          "登录状态无效，请重新登录",
		"error.token_revoked":          "登录状态已失效，请重新登录",
		"error.jwt_secret_missing":     "服务端认证配置缺失",
		"error.user_disabled":          "账号已被禁用",
		"error.rate_limited":           "请求过于频繁，请稍后再试",
		"error.login_too_many":         "登录尝试过多，请 %d 秒后再试",
		"error.rate_limit_unavailable": "限流服务不可用",
		"error.cart_session_missing":   "缺少购物车会话",
		"error.cart_empty":             "购物车为空",
		"error.cart_item_not_found":    "购物车项不存在",
		"error.quantity_invalid":       "数量无效",
		"error.product_not_found":      "商品不存在",
		"error.product_inactive":       "商品已下架",
		"error.product_size_invalid":   "商品规格无效",
		"error.product_addon_invalid":  "加料选择无效",
		"error.product_invalid":        "商品配置不合法",
		"error.category_not_found":     "分类不存在",
		"error.category_in_use":        "分类下仍有商品，无法删除",
		"error.slug_exists":            "slug 已存在",
		"error.coupon_invalid":         "优惠码不可用",
		"error.promotion_not_found":    "促销规则不存在",
		"error.promotion_invalid":      "促销规则不合法",
		"error.promotion_code_exists":  "优惠码已存在",
		"error.order_not_found":        "订单不存在",
		"error.order_contact_required": "请填写完整的收货信息",
		"error.order_status_invalid":   "订单状态不允许该操作",
		"error.order_not_payable":      "订单当前不可支付",
		"error.payment_failed":         "支付失败，请重试",
		"error.queue_unavailable":      "下单服务暂不可用，请稍后再试",
		"error.invalid_credentials":    "账号或密码错误",
		"error.invalid_password":       "原密码错误",
		"error.admin_login_invalid":           "用户名或密码错误",
		"error.login_failed":                  "登录失败，请稍后再试",
		"error.password_old_invalid":          "原密码错误",
		"error.password_weak":                 "密码强度不足",
		"error.password_min_length":           "密码长度不能少于 %d 位",
		"error.password_require_upper":        "密码必须包含大写字母",
		"error.password_require_lower":        "密码必须包含小写字母",
		"error.password_require_number":       "密码必须包含数字",
		"error.password_require_special":      "密码必须包含特殊字符",
		"error.user_not_found":                "账号不存在",
		"error.save_failed":                   "保存失败",
		"error.admin_id_invalid":              "管理员 ID 无效",
		"error.admin_id_type_invalid":         "管理员 ID 类型错误",
		"error.admin_username_invalid":        "管理员用户名不合法",
		"error.admin_username_exists":         "管理员用户名已存在",
		"error.admin_create_failed":           "创建管理员失败",
		"error.admin_update_failed":           "更新管理员失败",
		"error.admin_delete_failed":           "删除管理员失败",
		"error.admin_delete_self_forbidden":   "不能删除当前登录账号",
		"error.admin_delete_last_forbidden":   "不能删除最后一个管理员",
		"error.admin_delete_protected":        "该管理员受保护，不能删除",
		"error.config_fetch_failed":           "获取站点配置失败",
		"error.settings_fetch_failed":         "获取设置失败",
		"error.settings_save_failed":          "保存设置失败",
		"error.file_missing":                  "缺少上传文件",
		"error.upload_failed":                 "文件上传失败",
		"error.upload_scene_invalid":          "上传场景不支持",
		"error.upload_type_invalid":           "文件类型不支持",
		"error.product_fetch_failed":          "获取商品失败",
		"error.product_create_failed":         "创建商品失败",
		"error.product_update_failed":         "更新商品失败",
		"error.product_delete_failed":         "删除商品失败",
		"error.category_fetch_failed":         "获取分类失败",
		"error.category_create_failed":        "创建分类失败",
		"error.category_update_failed":        "更新分类失败",
		"error.category_delete_failed":        "删除分类失败",
		"error.promotion_fetch_failed":        "获取促销规则失败",
		"error.promotion_create_failed":       "创建促销规则失败",
		"error.promotion_update_failed":       "更新促销规则失败",
		"error.promotion_delete_failed":       "删除促销规则失败",
		"error.promotion_preview_failed":      "促销试算失败",
		"error.order_fetch_failed":            "获取订单失败",
		"error.order_create_failed":           "下单失败",
		"error.order_update_failed":           "更新订单失败",
		"error.cart_fetch_failed":             "获取购物车失败",
		"error.cart_update_failed":            "更新购物车失败",
		"error.slug_used":                     "slug 已被占用",
	},
	LocaleEN: {
		"error.bad_request":            "Invalid request",
		"error.not_found":              "Resource not found",
		"error.internal":               "Internal server error",
		"error.unauthorized":           "Authentication required",
		"error.forbidden":              "Permission denied",
		"error.auth_header_missing":    "Missing authorization header",
		"error.auth_header_invalid":    "Malformed authorization header",
		"error.token_invalid":          "Session is invalid, please sign in again",
		"error.token_revoked":          "Session has expired, please sign in again",
		"error.jwt_secret_missing":     "Server auth configuration missing",
		"error.user_disabled":          "Account disabled",
		"error.rate_limited":           "Too many requests, please retry later",
		"error.login_too_many":         "Too many login attempts, retry in %d seconds",
		"error.rate_limit_unavailable": "Rate limiter unavailable",
		"error.cart_session_missing":   "Missing cart session",
		"error.cart_empty":             "Cart is empty",
		"error.cart_item_not_found":    "Cart item not found",
		"error.quantity_invalid":       "Invalid quantity",
		"error.product_not_found":      "Product not found",
		"error.product_inactive":       "Product is unavailable",
		"error.product_size_invalid":   "Invalid product size",
		"error.product_addon_invalid":  "Invalid addon selection",
		"error.product_invalid":        "Invalid product configuration",
		"error.category_not_found":     "Category not found",
		"error.category_in_use":        "Category still has products",
		"error.slug_exists":            "Slug already exists",
		"error.coupon_invalid":         "Coupon cannot be used",
		"error.promotion_not_found":    "Promotion rule not found",
		"error.promotion_invalid":      "Invalid promotion rule",
		"error.promotion_code_exists":  "Coupon code already exists",
		"error.order_not_found":        "Order not found",
		"error.order_contact_required": "Delivery contact information required",
		"error.order_status_invalid":   "Order status does not allow this operation",
		"error.order_not_payable":      "Order is not payable",
		"error.payment_failed":         "Payment failed, please retry",
		"error.queue_unavailable":      "Ordering temporarily unavailable, please retry later",
		"error.invalid_credentials":    "Invalid account or password",
		"error.invalid_password":       "Incorrect current password",
		"error.admin_login_invalid":           "Incorrect username or password",
		"error.login_failed":                  "Login failed, please retry later",
		"error.password_old_invalid":          "Incorrect current password",
		"error.password_weak":                 "Password is too weak",
		"error.password_min_length":           "Password must be at least %d characters",
		"error.password_require_upper":        "Password must contain an uppercase letter",
		"error.password_require_lower":        "Password must contain a lowercase letter",
		"error.password_require_number":       "Password must contain a digit",
		"error.password_require_special":      "Password must contain a special character",
		"error.user_not_found":                "Account not found",
		"error.save_failed":                   "Save failed",
		"error.admin_id_invalid":              "Invalid admin ID",
		"error.admin_id_type_invalid":         "Invalid admin ID type",
		"error.admin_username_invalid":        "Invalid admin username",
		"error.admin_username_exists":         "Admin username already exists",
		"error.admin_create_failed":           "Failed to create admin",
		"error.admin_update_failed":           "Failed to update admin",
		"error.admin_delete_failed":           "Failed to delete admin",
		"error.admin_delete_self_forbidden":   "Cannot delete the signed-in account",
		"error.admin_delete_last_forbidden":   "Cannot delete the last admin",
		"error.admin_delete_protected":        "This admin is protected and cannot be deleted",
		"error.config_fetch_failed":           "Failed to load site config",
		"error.settings_fetch_failed":         "Failed to load settings",
		"error.settings_save_failed":          "Failed to save settings",
		"error.file_missing":                  "Missing upload file",
		"error.upload_failed":                 "File upload failed",
		"error.upload_scene_invalid":          "Unsupported upload scene",
		"error.upload_type_invalid":           "Unsupported file type",
		"error.product_fetch_failed":          "Failed to load products",
		"error.product_create_failed":         "Failed to create product",
		"error.product_update_failed":         "Failed to update product",
		"error.product_delete_failed":         "Failed to delete product",
		"error.category_fetch_failed":         "Failed to load categories",
		"error.category_create_failed":        "Failed to create category",
		"error.category_update_failed":        "Failed to update category",
		"error.category_delete_failed":        "Failed to delete category",
		"error.promotion_fetch_failed":        "Failed to load promotion rules",
		"error.promotion_create_failed":       "Failed to create promotion rule",
		"error.promotion_update_failed":       "Failed to update promotion rule",
		"error.promotion_delete_failed":       "Failed to delete promotion rule",
		"error.promotion_preview_failed":      "Failed to preview promotions",
		"error.order_fetch_failed":            "Failed to load orders",
		"error.order_create_failed":           "Failed to place order",
		"error.order_update_failed":           "Failed to update order",
		"error.cart_fetch_failed":             "Failed to load cart",
		"error.cart_update_failed":            "Failed to update cart",
		"error.slug_used":                     "Slug is already in use",
	},
}

// Normalize 归一化语言标签，未识别时回退默认语言
func Normalize(locale string) string {
	tag := strings.ToLower(strings.TrimSpace(locale))
	switch {
	case strings.HasPrefix(tag, "zh"):
		return LocaleZH
	case strings.HasPrefix(tag, "en"):
		return LocaleEN
	default:
		return LocaleZH
	}
}

// ResolveLocale 解析请求语言。优先级：query locale > Accept-Language > 默认
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return LocaleZH
	}
	if q := strings.TrimSpace(c.Query("locale")); q != "" {
		return Normalize(q)
	}
	accept := c.GetHeader("Accept-Language")
	for _, part := range strings.Split(accept, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag == "" {
			continue
		}
		return Normalize(tag)
	}
	return LocaleZH
}

// T 查找文案。语言未命中回退中文，键未登记返回键本身
func T(locale, key string) string {
	locale = Normalize(locale)
	if msgs, ok := catalog[locale]; ok {
		if msg, ok := msgs[key]; ok {
			return msg
		}
	}
	if msg, ok := catalog[LocaleZH][key]; ok {
		return msg
	}
	return key
}

// Sprintf 查找文案并格式化参数
func Sprintf(locale, key string, args ...interface{}) string {
	if len(args) == 0 {
		return T(locale, key)
	}
	return fmt.Sprintf(T(locale, key), args...)
}
