package promotion

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleType 促销规则类型
type RuleType string

const (
	RuleTypeTimeBased    RuleType = "time_based"    // 时段促销
	RuleTypeCoupon       RuleType = "coupon"        // 优惠码
	RuleTypeBulk         RuleType = "bulk"          // 批量购买
	RuleTypeCategory     RuleType = "category"      // 分类促销
	RuleTypeFirstOrder   RuleType = "first_order"   // 首单优惠
	RuleTypePriceCompare RuleType = "price_compare" // 比价促销
)

// ValidRuleType 判断规则类型是否合法
func ValidRuleType(t RuleType) bool {
	switch t {
	case RuleTypeTimeBased, RuleTypeCoupon, RuleTypeBulk,
		RuleTypeCategory, RuleTypeFirstOrder, RuleTypePriceCompare:
		return true
	}
	return false
}

// DiscountKind 优惠计算方式
type DiscountKind string

const (
	DiscountKindPercentage DiscountKind = "percentage" // 按百分比
	DiscountKindFixed      DiscountKind = "fixed"      // 按固定金额
	DiscountKindFreeItem   DiscountKind = "free_item"  // 买 N 付 M 赠送
)

// ProductType 商品形态
type ProductType string

const (
	ProductTypeSimple ProductType = "simple" // 单品
	ProductTypeSized  ProductType = "sized"  // 多规格(分量)
	ProductTypeCombo  ProductType = "combo"  // 套餐
)

// Discount 规则的优惠定义
type Discount struct {
	Kind     DiscountKind    `json:"kind"`
	Value    decimal.Decimal `json:"value"`
	ForEvery int             `json:"for_every,omitempty"` // 每满 N 件
	PayFor   int             `json:"pay_for,omitempty"`   // 只付 M 件
}

// HourRange 小时区间，左闭右开 [Start, End)
type HourRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Conditions 规则的适用条件，任一字段为空视为不限制
type Conditions struct {
	DaysOfWeek      []int           `json:"days_of_week,omitempty"` // 0=周日 ... 6=周六
	HourRange       *HourRange      `json:"hour_range,omitempty"`
	ProductTypes    []ProductType   `json:"product_types,omitempty"`
	ProductCategory string          `json:"product_category,omitempty"`
	ProductIDs      []uint          `json:"product_ids,omitempty"`
	MinSubtotal     decimal.Decimal `json:"min_subtotal,omitempty"`
	MinQuantity     int             `json:"min_quantity,omitempty"`
}

// Rule 一条促销规则。Enabled 缺省视为启用
type Rule struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	Type         RuleType        `json:"type"`
	Enabled      *bool           `json:"enabled,omitempty"`
	ApplyOrder   int             `json:"apply_order,omitempty"`
	Conditions   *Conditions     `json:"conditions,omitempty"`
	Discount     *Discount       `json:"discount,omitempty"`
	Code         string          `json:"code,omitempty"`
	Stackable    bool            `json:"stackable"`
	ValidFrom    *time.Time      `json:"valid_from,omitempty"`
	ValidUntil   *time.Time      `json:"valid_until,omitempty"`
	MinSubtotal  decimal.Decimal `json:"min_subtotal,omitempty"`
	MaxUsage     int             `json:"max_usage,omitempty"`
	CurrentUsage int             `json:"current_usage,omitempty"`
}

// IsEnabled 判断规则是否启用
func (r *Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// 默认评估顺序，仅当 ApplyOrder 缺省时使用
const defaultApplyOrder = 999

// 默认可叠加规则数量上限
const defaultMaxStack = 3

// ComparisonDefaults 引擎级比较策略。
// TieBreaker 与 EvaluationSequence 为保留字段：随配置存取，
// 但当前选择算法不读取它们，不要为其发明语义。
type ComparisonDefaults struct {
	TieBreaker         string   `json:"tie_breaker,omitempty"` // favor_customer / favor_business
	MaxStack           int      `json:"max_stack,omitempty"`
	EvaluationSequence []string `json:"evaluation_sequence,omitempty"`
}

// Config 引擎构造配置，可由数据库、HTTP JSON 或测试直接构造
type Config struct {
	Promotions []Rule             `json:"promotions"`
	Defaults   ComparisonDefaults `json:"comparison_defaults"`
}

// ProductSnapshot 参与评估的商品快照。
// simple 取 Price，sized 取 BasePrices[size]，combo 取 BasePrice
type ProductSnapshot struct {
	ID         uint                       `json:"id"`
	Type       ProductType                `json:"type"`
	Category   string                     `json:"category,omitempty"`
	Price      decimal.Decimal            `json:"price,omitempty"`
	BasePrices map[string]decimal.Decimal `json:"base_prices,omitempty"`
	BasePrice  decimal.Decimal            `json:"base_price,omitempty"`
}

// ComboComponent 套餐组成项，仅用于价格重构
type ComboComponent struct {
	Product  ProductSnapshot `json:"product"`
	Size     string          `json:"size,omitempty"`
	Quantity int             `json:"quantity,omitempty"` // 缺省按 1 计
}

// Addon 加料项
type Addon struct {
	Name  string          `json:"name,omitempty"`
	Price decimal.Decimal `json:"price"`
}

// AppliedPromotion 单条已生效的优惠，由引擎在每次重算时整体覆写
type AppliedPromotion struct {
	PromotionID   uint            `json:"promotion_id"`
	PromotionName string          `json:"promotion_name"`
	Type          RuleType        `json:"type"`
	Discount      decimal.Decimal `json:"discount"`
}

// LineItem 购物车行项。引擎只改写 TotalPrice 与 AppliedPromotions，
// 不创建也不删除行项
type LineItem struct {
	Product           ProductSnapshot    `json:"product"`
	Quantity          int                `json:"quantity"`
	UnitPrice         decimal.Decimal    `json:"unit_price"`
	TotalPrice        decimal.Decimal    `json:"total_price"`
	ComboItems        []ComboComponent   `json:"combo_items,omitempty"`
	SelectedAddons    []Addon            `json:"selected_addons,omitempty"`
	AppliedPromotions []AppliedPromotion `json:"applied_promotions"`
}

// Evaluation 单条规则对单个行项的评估结果
type Evaluation struct {
	Rule           *Rule           `json:"rule"`
	Applicable     bool            `json:"applicable"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalPrice     decimal.Decimal `json:"final_price"`
}

// PriceComparison 行项基准价的比价结果
type PriceComparison struct {
	DirectPrice        decimal.Decimal `json:"direct_price"`
	ReconstructedPrice decimal.Decimal `json:"reconstructed_price"`
	ChosenPrice        decimal.Decimal `json:"chosen_price"`
	Reconstructed      bool            `json:"reconstructed"`
	Savings            decimal.Decimal `json:"savings"`
}

// CartTotals 购物车汇总结果
type CartTotals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	DeliveryFee  decimal.Decimal `json:"delivery_fee"`
	Total        decimal.Decimal `json:"total"`
	TotalSavings decimal.Decimal `json:"total_savings"`
	Items        []*LineItem     `json:"items"`
}

// CouponReason 优惠码校验失败原因，固定枚举
type CouponReason string

const (
	CouponReasonNotFound       CouponReason = "not_found"
	CouponReasonDisabled       CouponReason = "disabled"
	CouponReasonNotYetValid    CouponReason = "not_yet_valid"
	CouponReasonExpired        CouponReason = "expired"
	CouponReasonBelowMinimum   CouponReason = "below_minimum"
	CouponReasonUsageExhausted CouponReason = "usage_exhausted"
)

// CouponValidation 优惠码校验结果
type CouponValidation struct {
	Valid     bool         `json:"valid"`
	Promotion *Rule        `json:"promotion,omitempty"`
	Reason    CouponReason `json:"reason,omitempty"`
	Message   string       `json:"message,omitempty"`
}
