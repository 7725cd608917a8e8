package constants

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusPreparing      = "preparing"
	OrderStatusDelivering     = "delivering"
	OrderStatusCompleted      = "completed"
	OrderStatusCanceled       = "canceled"
)

// 支付结果常量（网关为不透明协作方，只区分成败）
const (
	PaymentResultSuccess = "success"
	PaymentResultFailed  = "failed"
)

// 商品形态常量
const (
	ProductTypeSimple = "simple"
	ProductTypeSized  = "sized"
	ProductTypeCombo  = "combo"
)

// 商品规格常量（分量）
const (
	ProductSizeSmall  = "P"
	ProductSizeMedium = "M"
	ProductSizeLarge  = "G"
)

// 促销规则类型常量
const (
	PromotionTypeTimeBased    = "time_based"
	PromotionTypeCoupon       = "coupon"
	PromotionTypeBulk         = "bulk"
	PromotionTypeCategory     = "category"
	PromotionTypeFirstOrder   = "first_order"
	PromotionTypePriceCompare = "price_compare"
)

// 优惠计算方式常量
const (
	DiscountKindPercentage = "percentage"
	DiscountKindFixed      = "fixed"
	DiscountKindFreeItem   = "free_item"
)

// 比较策略常量
const (
	TieBreakerFavorCustomer = "favor_customer"
	TieBreakerFavorBusiness = "favor_business"
	MaxStackDefault         = 3
)

// 购物车会话常量
const (
	CartSessionHeader = "X-Cart-Session"
)

// 队列常量
const (
	QueueDefault           = "default"
	TaskOrderTimeoutCancel = "order:timeout_cancel"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "dc"
)

// 设置键常量
const (
	SettingKeySiteConfig            = "site_config"
	SettingKeyOrderConfig           = "order_config"
	SettingKeyDeliveryConfig        = "delivery_config"
	SettingKeyPromotionDefaults     = "promotion_defaults"
	SettingFieldSiteCurrency        = "currency"
	SettingFieldPaymentExpireMinutes = "payment_expire_minutes"
	SettingFieldDeliveryFee         = "delivery_fee"
)

// 币种常量
const (
	SiteCurrencyDefault = "CNY"
)

// 站点语言常量
const (
	LocaleZhCN = "zh-CN"
	LocaleEnUS = "en-US"
)

// 支持的站点语言顺序（含回退顺序）
var SupportedLocales = []string{LocaleZhCN, LocaleEnUS}
