// Package promotion 实现购物车促销评估引擎。
//
// 引擎由一份规则配置一次性构造，之后对每次调用都是纯函数：
// 相同的规则、购物车、优惠码与评估时刻必然得到相同结果。
// 引擎不持有可变状态，配置变更时整体替换实例。
//
// 选择策略有一处刻意保留的反直觉行为：只要存在任一条适用的
// 不可叠加规则，则取其中优惠金额最大的一条，即使若干可叠加
// 规则的合计金额更高也不会被选中。移植或重构时不要“修正”它。
package promotion

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Engine 促销评估引擎
type Engine struct {
	rules    []Rule // 启用的规则，已按 apply_order 升序
	catalog  []Rule // 全部规则(含停用)，仅供优惠码校验与查询
	defaults ComparisonDefaults
	now      func() time.Time
}

// Option 引擎可选参数
type Option func(*Engine)

// WithClock 注入评估时钟，测试用
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) {
		if fn != nil {
			e.now = fn
		}
	}
}

// NewEngine 构造引擎。停用规则不参与评估；ApplyOrder 缺省取 999；
// 规则按 ApplyOrder 升序排列，该顺序只是评估顺序，
// 选择阶段按优惠金额重排，不受其影响
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		defaults: cfg.Defaults,
		now:      time.Now,
	}
	if e.defaults.MaxStack <= 0 {
		e.defaults.MaxStack = defaultMaxStack
	}

	e.catalog = make([]Rule, len(cfg.Promotions))
	copy(e.catalog, cfg.Promotions)
	for i := range e.catalog {
		if e.catalog[i].ApplyOrder <= 0 {
			e.catalog[i].ApplyOrder = defaultApplyOrder
		}
	}

	for _, rule := range e.catalog {
		if rule.IsEnabled() {
			e.rules = append(e.rules, rule)
		}
	}
	sort.SliceStable(e.rules, func(i, j int) bool {
		return e.rules[i].ApplyOrder < e.rules[j].ApplyOrder
	})

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Defaults 返回引擎生效的比较策略
func (e *Engine) Defaults() ComparisonDefaults {
	return e.defaults
}

// isApplicable 判断规则对行项是否适用。
// 所有时间条件统一使用同一个 now，避免一次评估内时钟跨越边界
func (e *Engine) isApplicable(rule *Rule, item *LineItem, cartSubtotal decimal.Decimal, couponCode string, now time.Time) bool {
	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return false
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return false
	}
	if rule.MaxUsage > 0 && rule.CurrentUsage >= rule.MaxUsage {
		return false
	}
	if rule.Type == RuleTypeCoupon {
		if couponCode == "" || !strings.EqualFold(couponCode, rule.Code) {
			return false
		}
	}

	cond := rule.Conditions
	if cond == nil {
		return true
	}
	if len(cond.DaysOfWeek) > 0 {
		weekday := int(now.Weekday())
		matched := false
		for _, d := range cond.DaysOfWeek {
			if d == weekday {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if cond.HourRange != nil {
		hour := now.Hour()
		if hour < cond.HourRange.Start || hour >= cond.HourRange.End {
			return false
		}
	}
	if len(cond.ProductTypes) > 0 {
		matched := false
		for _, t := range cond.ProductTypes {
			if t == item.Product.Type {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if cond.ProductCategory != "" && cond.ProductCategory != item.Product.Category {
		return false
	}
	if len(cond.ProductIDs) > 0 {
		matched := false
		for _, id := range cond.ProductIDs {
			if id == item.Product.ID {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if item.Quantity < cond.MinQuantity {
		return false
	}
	if cond.MinSubtotal.IsPositive() && cartSubtotal.LessThan(cond.MinSubtotal) {
		return false
	}
	return true
}

// ReconstructedPrice 按组成项重构套餐行项的价格。
// 无组成项时重构无定义，返回 false
func (e *Engine) ReconstructedPrice(item *LineItem) (decimal.Decimal, bool) {
	if len(item.ComboItems) == 0 {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for _, comp := range item.ComboItems {
		var unit decimal.Decimal
		switch comp.Product.Type {
		case ProductTypeSized:
			unit = comp.Product.BasePrices[comp.Size]
		case ProductTypeSimple:
			unit = comp.Product.Price
		default:
			unit = comp.Product.BasePrice
		}
		qty := comp.Quantity
		if qty <= 0 {
			qty = 1
		}
		sum = sum.Add(unit.Mul(decimal.NewFromInt(int64(qty))))
	}
	for _, addon := range item.SelectedAddons {
		sum = sum.Add(addon.Price)
	}
	outer := item.Quantity
	if outer <= 0 {
		outer = 1
	}
	return sum.Mul(decimal.NewFromInt(int64(outer))).Round(2), true
}

// ComparePrices 在直接价与重构价之间选取行项基准价。
// 该比较发生在促销折扣之前，只决定套餐采用哪个基准价。
// 直接价按 单价×数量 重新计算，保证重复评估幂等
func (e *Engine) ComparePrices(item *LineItem) PriceComparison {
	direct := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
	cmp := PriceComparison{
		DirectPrice: direct,
		ChosenPrice: direct,
		Savings:     decimal.Zero,
	}
	reconstructed, ok := e.ReconstructedPrice(item)
	if !ok {
		return cmp
	}
	cmp.ReconstructedPrice = reconstructed
	if reconstructed.LessThan(direct) {
		cmp.ChosenPrice = reconstructed
		cmp.Reconstructed = true
		cmp.Savings = direct.Sub(reconstructed).Round(2)
	}
	return cmp
}

// CalculateDiscount 计算规则对给定基准价的优惠金额。
// 固定金额不超过基准价；未知计算方式一律按 0 处理
func (e *Engine) CalculateDiscount(rule *Rule, item *LineItem, basePrice decimal.Decimal) decimal.Decimal {
	if rule.Discount == nil {
		return decimal.Zero
	}
	d := rule.Discount
	switch d.Kind {
	case DiscountKindPercentage:
		return basePrice.Mul(d.Value).Div(decimal.NewFromInt(100)).Round(2)
	case DiscountKindFixed:
		if d.Value.GreaterThan(basePrice) {
			return basePrice.Round(2)
		}
		return d.Value.Round(2)
	case DiscountKindFreeItem:
		if d.ForEvery <= 0 || d.PayFor <= 0 || item.Quantity <= 0 {
			return decimal.Zero
		}
		groups := item.Quantity / d.ForEvery
		freeUnits := groups * (d.ForEvery - d.PayFor)
		if freeUnits <= 0 {
			return decimal.Zero
		}
		perUnit := basePrice.Div(decimal.NewFromInt(int64(item.Quantity)))
		return perUnit.Mul(decimal.NewFromInt(int64(freeUnits))).Round(2)
	default:
		return decimal.Zero
	}
}

// EvaluateItem 对行项逐条评估全部规则，按评估顺序返回记录
func (e *Engine) EvaluateItem(item *LineItem, cartSubtotal decimal.Decimal, couponCode string) []Evaluation {
	return e.evaluateItemAt(item, cartSubtotal, couponCode, e.now())
}

func (e *Engine) evaluateItemAt(item *LineItem, cartSubtotal decimal.Decimal, couponCode string, now time.Time) []Evaluation {
	chosen := e.ComparePrices(item).ChosenPrice
	evaluations := make([]Evaluation, 0, len(e.rules))
	for i := range e.rules {
		rule := &e.rules[i]
		ev := Evaluation{Rule: rule, DiscountAmount: decimal.Zero, FinalPrice: chosen}
		if e.isApplicable(rule, item, cartSubtotal, couponCode, now) {
			ev.Applicable = true
			ev.DiscountAmount = e.CalculateDiscount(rule, item, chosen)
			final := chosen.Sub(ev.DiscountAmount)
			if final.IsNegative() {
				final = decimal.Zero
			}
			ev.FinalPrice = final.Round(2)
		}
		evaluations = append(evaluations, ev)
	}
	return evaluations
}

// ChooseBest 从评估记录中选出生效的优惠组合。
// 存在不可叠加规则时只取金额最大的一条，可叠加合计更高也不例外；
// 否则按金额取前 MaxStack 条可叠加规则
func (e *Engine) ChooseBest(evaluations []Evaluation) []Evaluation {
	var nonStackable, stackable []Evaluation
	for _, ev := range evaluations {
		if !ev.Applicable {
			continue
		}
		if ev.Rule.Stackable {
			stackable = append(stackable, ev)
		} else {
			nonStackable = append(nonStackable, ev)
		}
	}
	if len(nonStackable) > 0 {
		sort.SliceStable(nonStackable, func(i, j int) bool {
			return nonStackable[i].DiscountAmount.GreaterThan(nonStackable[j].DiscountAmount)
		})
		return nonStackable[:1]
	}
	if len(stackable) == 0 {
		return nil
	}
	sort.SliceStable(stackable, func(i, j int) bool {
		return stackable[i].DiscountAmount.GreaterThan(stackable[j].DiscountAmount)
	})
	if len(stackable) > e.defaults.MaxStack {
		stackable = stackable[:e.defaults.MaxStack]
	}
	return stackable
}

// CalculateCartTotal 计算购物车金额。
// 第一遍汇总各行项的基准价得到小计，第二遍以最终小计评估促销，
// 保证 min_subtotal 条件看到的是完整小计而非累加中间值。
// 行项的 TotalPrice 与 AppliedPromotions 被整体改写
func (e *Engine) CalculateCartTotal(items []*LineItem, deliveryFee decimal.Decimal, couponCode string) CartTotals {
	now := e.now()

	subtotal := decimal.Zero
	totalSavings := decimal.Zero
	comparisons := make([]PriceComparison, len(items))
	for i, item := range items {
		cmp := e.ComparePrices(item)
		comparisons[i] = cmp
		subtotal = subtotal.Add(cmp.ChosenPrice)
		totalSavings = totalSavings.Add(cmp.Savings)
	}
	subtotal = subtotal.Round(2)

	totalDiscount := decimal.Zero
	for i, item := range items {
		evaluations := e.evaluateItemAt(item, subtotal, couponCode, now)
		best := e.ChooseBest(evaluations)

		itemDiscount := decimal.Zero
		applied := make([]AppliedPromotion, 0, len(best))
		for _, ev := range best {
			itemDiscount = itemDiscount.Add(ev.DiscountAmount)
			applied = append(applied, AppliedPromotion{
				PromotionID:   ev.Rule.ID,
				PromotionName: ev.Rule.Name,
				Type:          ev.Rule.Type,
				Discount:      ev.DiscountAmount,
			})
		}
		totalDiscount = totalDiscount.Add(itemDiscount)
		totalSavings = totalSavings.Add(itemDiscount)

		finalPrice := comparisons[i].ChosenPrice.Sub(itemDiscount)
		if finalPrice.IsNegative() {
			finalPrice = decimal.Zero
		}
		item.TotalPrice = finalPrice.Round(2)
		item.AppliedPromotions = applied
	}
	totalDiscount = totalDiscount.Round(2)

	total := subtotal.Sub(totalDiscount).Add(deliveryFee)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return CartTotals{
		Subtotal:     subtotal,
		Discount:     totalDiscount,
		DeliveryFee:  deliveryFee.Round(2),
		Total:        total.Round(2),
		TotalSavings: totalSavings.Round(2),
		Items:        items,
	}
}

// effectiveMinSubtotal 优惠码门槛金额，规则级优先，其次条件级
func effectiveMinSubtotal(rule *Rule) decimal.Decimal {
	if rule.MinSubtotal.IsPositive() {
		return rule.MinSubtotal
	}
	if rule.Conditions != nil {
		return rule.Conditions.MinSubtotal
	}
	return decimal.Zero
}

// ValidateCoupon 校验优惠码能否参与结算。
// 结构化返回失败原因，供界面提示，不用于逐项折扣计算
func (e *Engine) ValidateCoupon(code string, subtotal decimal.Decimal) CouponValidation {
	now := e.now()
	code = strings.TrimSpace(code)

	var matched *Rule
	for i := range e.catalog {
		rule := &e.catalog[i]
		if rule.Type == RuleTypeCoupon && strings.EqualFold(rule.Code, code) && code != "" {
			matched = rule
			break
		}
	}
	if matched == nil {
		return CouponValidation{Reason: CouponReasonNotFound, Message: "优惠码不存在"}
	}
	if !matched.IsEnabled() {
		return CouponValidation{Reason: CouponReasonDisabled, Message: "优惠码已停用"}
	}
	if matched.ValidFrom != nil && now.Before(*matched.ValidFrom) {
		return CouponValidation{Reason: CouponReasonNotYetValid, Message: "优惠码尚未生效"}
	}
	if matched.ValidUntil != nil && now.After(*matched.ValidUntil) {
		return CouponValidation{Reason: CouponReasonExpired, Message: "优惠码已过期"}
	}
	if min := effectiveMinSubtotal(matched); min.IsPositive() && subtotal.LessThan(min) {
		return CouponValidation{
			Reason:  CouponReasonBelowMinimum,
			Message: "未达到最低消费金额 " + min.StringFixed(2),
		}
	}
	if matched.MaxUsage > 0 && matched.CurrentUsage >= matched.MaxUsage {
		return CouponValidation{Reason: CouponReasonUsageExhausted, Message: "优惠码已被领完"}
	}
	return CouponValidation{Valid: true, Promotion: matched}
}

// ActivePromotions 当前生效的规则，仅校验启用状态与有效期，
// 用于展示，不参与折扣计算
func (e *Engine) ActivePromotions() []Rule {
	now := e.now()
	var active []Rule
	for _, rule := range e.rules {
		if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
			continue
		}
		if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
			continue
		}
		active = append(active, rule)
	}
	return active
}

// PromotionsByType 按类型过滤启用的规则
func (e *Engine) PromotionsByType(t RuleType) []Rule {
	var out []Rule
	for _, rule := range e.rules {
		if rule.Type == t {
			out = append(out, rule)
		}
	}
	return out
}
