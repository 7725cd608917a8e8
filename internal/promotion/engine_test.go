package promotion

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func boolPtr(b bool) *bool { return &b }

func simpleItem(t *testing.T, id uint, unitPrice string, quantity int) *LineItem {
	t.Helper()
	unit := dec(t, unitPrice)
	return &LineItem{
		Product:    ProductSnapshot{ID: id, Type: ProductTypeSimple, Price: unit},
		Quantity:   quantity,
		UnitPrice:  unit,
		TotalPrice: unit.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

func percentRule(t *testing.T, id uint, value string, stackable bool) Rule {
	t.Helper()
	return Rule{
		ID:        id,
		Name:      "percent rule",
		Type:      RuleTypeTimeBased,
		Stackable: stackable,
		Discount:  &Discount{Kind: DiscountKindPercentage, Value: dec(t, value)},
	}
}

func fixedRule(t *testing.T, id uint, value string, stackable bool) Rule {
	t.Helper()
	return Rule{
		ID:        id,
		Name:      "fixed rule",
		Type:      RuleTypeTimeBased,
		Stackable: stackable,
		Discount:  &Discount{Kind: DiscountKindFixed, Value: dec(t, value)},
	}
}

var evalAt = time.Date(2026, 3, 11, 12, 0, 0, 0, time.Local)

func newTestEngine(t *testing.T, cfg Config, at time.Time) *Engine {
	t.Helper()
	return NewEngine(cfg, WithClock(fixedClock(at)))
}

func TestCalculateCartTotalDeterministic(t *testing.T) {
	cfg := Config{Promotions: []Rule{
		percentRule(t, 1, "10", false),
		fixedRule(t, 2, "3", true),
	}}
	engine := newTestEngine(t, cfg, evalAt)

	items := []*LineItem{
		simpleItem(t, 10, "20", 2),
		simpleItem(t, 11, "8.50", 1),
	}
	first := engine.CalculateCartTotal(items, dec(t, "5"), "")
	second := engine.CalculateCartTotal(items, dec(t, "5"), "")

	if !first.Total.Equal(second.Total) || !first.Discount.Equal(second.Discount) || !first.Subtotal.Equal(second.Subtotal) {
		t.Fatalf("repeated evaluation differs: first=%+v second=%+v", first, second)
	}
	for i := range items {
		if !first.Items[i].TotalPrice.Equal(second.Items[i].TotalPrice) {
			t.Fatalf("item %d total differs between runs", i)
		}
	}
}

func TestTotalNeverNegative(t *testing.T) {
	cfg := Config{Promotions: []Rule{fixedRule(t, 1, "1000", false)}}
	engine := newTestEngine(t, cfg, evalAt)

	items := []*LineItem{simpleItem(t, 10, "5", 1)}
	totals := engine.CalculateCartTotal(items, decimal.Zero, "")
	if totals.Total.IsNegative() {
		t.Fatalf("expected non-negative total, got %s", totals.Total)
	}
	if !items[0].TotalPrice.Equal(decimal.Zero) {
		t.Fatalf("expected item total clamped to zero, got %s", items[0].TotalPrice)
	}
}

func TestFixedDiscountCapped(t *testing.T) {
	engine := newTestEngine(t, Config{}, evalAt)
	rule := fixedRule(t, 1, "100", false)
	item := simpleItem(t, 10, "30", 1)

	got := engine.CalculateDiscount(&rule, item, dec(t, "30"))
	if !got.Equal(dec(t, "30")) {
		t.Fatalf("expected fixed discount capped at 30, got %s", got)
	}
}

func TestFreeItemDiscount(t *testing.T) {
	engine := newTestEngine(t, Config{}, evalAt)
	rule := Rule{
		ID:       1,
		Type:     RuleTypeBulk,
		Discount: &Discount{Kind: DiscountKindFreeItem, ForEvery: 3, PayFor: 2},
	}
	item := simpleItem(t, 10, "10", 7)

	// 7 件按 3 件一组分 2 组，每组送 1 件，共免 2 件单价
	got := engine.CalculateDiscount(&rule, item, dec(t, "70"))
	if !got.Equal(dec(t, "20")) {
		t.Fatalf("expected free item discount 20, got %s", got)
	}
}

func TestFreeItemDiscountMissingParams(t *testing.T) {
	engine := newTestEngine(t, Config{}, evalAt)
	rule := Rule{ID: 1, Type: RuleTypeBulk, Discount: &Discount{Kind: DiscountKindFreeItem}}
	item := simpleItem(t, 10, "10", 6)

	if got := engine.CalculateDiscount(&rule, item, dec(t, "60")); !got.IsZero() {
		t.Fatalf("expected zero discount without for_every/pay_for, got %s", got)
	}
}

func TestFreeItemDiscountPayForAbsent(t *testing.T) {
	engine := newTestEngine(t, Config{}, evalAt)
	rule := Rule{ID: 1, Type: RuleTypeBulk, Discount: &Discount{Kind: DiscountKindFreeItem, ForEvery: 3}}
	item := simpleItem(t, 10, "10", 6)

	if got := engine.CalculateDiscount(&rule, item, dec(t, "60")); !got.IsZero() {
		t.Fatalf("expected zero discount when pay_for is absent, got %s", got)
	}
}

func TestUnknownDiscountKindIsZero(t *testing.T) {
	engine := newTestEngine(t, Config{}, evalAt)
	rule := Rule{ID: 1, Type: RuleTypeTimeBased, Discount: &Discount{Kind: "mystery", Value: dec(t, "50")}}
	item := simpleItem(t, 10, "20", 1)

	if got := engine.CalculateDiscount(&rule, item, dec(t, "20")); !got.IsZero() {
		t.Fatalf("expected zero discount for unknown kind, got %s", got)
	}
}

func TestBundleComparison(t *testing.T) {
	engine := newTestEngine(t, Config{}, evalAt)
	item := &LineItem{
		Product:   ProductSnapshot{ID: 20, Type: ProductTypeCombo, BasePrice: dec(t, "35")},
		Quantity:  1,
		UnitPrice: dec(t, "35"),
		ComboItems: []ComboComponent{
			{Product: ProductSnapshot{ID: 21, Type: ProductTypeSimple, Price: dec(t, "15")}},
			{Product: ProductSnapshot{ID: 22, Type: ProductTypeSimple, Price: dec(t, "12")}},
		},
		SelectedAddons: []Addon{{Name: "extra cheese", Price: dec(t, "3")}},
	}

	cmp := engine.ComparePrices(item)
	if !cmp.Reconstructed {
		t.Fatalf("expected reconstructed price to win")
	}
	if !cmp.ChosenPrice.Equal(dec(t, "30")) {
		t.Fatalf("expected chosen price 30, got %s", cmp.ChosenPrice)
	}
	if !cmp.Savings.Equal(dec(t, "5")) {
		t.Fatalf("expected savings 5, got %s", cmp.Savings)
	}
}

func TestBundleComparisonDirectCheaper(t *testing.T) {
	engine := newTestEngine(t, Config{}, evalAt)
	item := &LineItem{
		Product:   ProductSnapshot{ID: 20, Type: ProductTypeCombo, BasePrice: dec(t, "25")},
		Quantity:  1,
		UnitPrice: dec(t, "25"),
		ComboItems: []ComboComponent{
			{Product: ProductSnapshot{ID: 21, Type: ProductTypeSized, BasePrices: map[string]decimal.Decimal{"M": dec(t, "18")}}, Size: "M"},
			{Product: ProductSnapshot{ID: 22, Type: ProductTypeSimple, Price: dec(t, "12")}},
		},
	}

	cmp := engine.ComparePrices(item)
	if cmp.Reconstructed {
		t.Fatalf("expected direct price to win")
	}
	if !cmp.ChosenPrice.Equal(dec(t, "25")) {
		t.Fatalf("expected chosen price 25, got %s", cmp.ChosenPrice)
	}
	if !cmp.Savings.IsZero() {
		t.Fatalf("expected zero savings, got %s", cmp.Savings)
	}
}

func TestNonStackableDominance(t *testing.T) {
	cfg := Config{Promotions: []Rule{
		fixedRule(t, 1, "10", false),
		fixedRule(t, 2, "6", true),
		fixedRule(t, 3, "5", true),
	}}
	engine := newTestEngine(t, cfg, evalAt)
	item := simpleItem(t, 10, "100", 1)

	best := engine.ChooseBest(engine.EvaluateItem(item, dec(t, "100"), ""))
	if len(best) != 1 {
		t.Fatalf("expected single winner, got %d", len(best))
	}
	if best[0].Rule.ID != 1 || !best[0].DiscountAmount.Equal(dec(t, "10")) {
		t.Fatalf("expected non-stackable rule 1 worth 10, got rule %d worth %s", best[0].Rule.ID, best[0].DiscountAmount)
	}
}

func TestStackCap(t *testing.T) {
	cfg := Config{Promotions: []Rule{
		fixedRule(t, 1, "1", true),
		fixedRule(t, 2, "5", true),
		fixedRule(t, 3, "2", true),
		fixedRule(t, 4, "4", true),
		fixedRule(t, 5, "3", true),
	}}
	engine := newTestEngine(t, cfg, evalAt)
	item := simpleItem(t, 10, "100", 1)

	best := engine.ChooseBest(engine.EvaluateItem(item, dec(t, "100"), ""))
	if len(best) != 3 {
		t.Fatalf("expected 3 stacked rules, got %d", len(best))
	}
	sum := decimal.Zero
	for _, ev := range best {
		sum = sum.Add(ev.DiscountAmount)
	}
	// 前三大为 5、4、3
	if !sum.Equal(dec(t, "12")) {
		t.Fatalf("expected stacked discount 12, got %s", sum)
	}
}

func TestCouponGating(t *testing.T) {
	cfg := Config{Promotions: []Rule{{
		ID:        1,
		Name:      "coupon",
		Type:      RuleTypeCoupon,
		Code:      "SAVE10",
		Stackable: false,
		Discount:  &Discount{Kind: DiscountKindPercentage, Value: dec(t, "10")},
	}}}
	engine := newTestEngine(t, cfg, evalAt)
	item := simpleItem(t, 10, "50", 1)

	cases := []struct {
		coupon     string
		applicable bool
	}{
		{"", false},
		{"OTHER", false},
		{"save10", true},
		{"SAVE10", true},
	}
	for _, tc := range cases {
		evals := engine.EvaluateItem(item, dec(t, "50"), tc.coupon)
		if len(evals) != 1 {
			t.Fatalf("coupon %q: expected 1 evaluation, got %d", tc.coupon, len(evals))
		}
		if evals[0].Applicable != tc.applicable {
			t.Fatalf("coupon %q: expected applicable=%v", tc.coupon, tc.applicable)
		}
	}
}

func TestHourRangeBoundaries(t *testing.T) {
	cfg := Config{Promotions: []Rule{{
		ID:         1,
		Type:       RuleTypeTimeBased,
		Conditions: &Conditions{HourRange: &HourRange{Start: 18, End: 22}},
		Discount:   &Discount{Kind: DiscountKindPercentage, Value: dec(t, "10")},
	}}}
	item := simpleItem(t, 10, "20", 1)

	cases := []struct {
		at         time.Time
		applicable bool
	}{
		{time.Date(2026, 3, 11, 17, 59, 0, 0, time.Local), false},
		{time.Date(2026, 3, 11, 18, 0, 0, 0, time.Local), true},
		{time.Date(2026, 3, 11, 21, 59, 0, 0, time.Local), true},
		{time.Date(2026, 3, 11, 22, 0, 0, 0, time.Local), false},
	}
	for _, tc := range cases {
		engine := newTestEngine(t, cfg, tc.at)
		evals := engine.EvaluateItem(item, dec(t, "20"), "")
		if evals[0].Applicable != tc.applicable {
			t.Fatalf("at %s: expected applicable=%v", tc.at.Format("15:04"), tc.applicable)
		}
	}
}

func TestDayOfWeekCondition(t *testing.T) {
	cfg := Config{Promotions: []Rule{{
		ID:         1,
		Type:       RuleTypeTimeBased,
		Conditions: &Conditions{DaysOfWeek: []int{1, 3}}, // 周一、周三
		Discount:   &Discount{Kind: DiscountKindFixed, Value: dec(t, "2")},
	}}}
	item := simpleItem(t, 10, "20", 1)

	wednesday := time.Date(2026, 3, 11, 12, 0, 0, 0, time.Local)
	sunday := time.Date(2026, 3, 15, 12, 0, 0, 0, time.Local)

	if evals := newTestEngine(t, cfg, wednesday).EvaluateItem(item, dec(t, "20"), ""); !evals[0].Applicable {
		t.Fatalf("expected rule applicable on wednesday")
	}
	if evals := newTestEngine(t, cfg, sunday).EvaluateItem(item, dec(t, "20"), ""); evals[0].Applicable {
		t.Fatalf("expected rule inapplicable on sunday")
	}
}

func TestScenarioPercentageWithDeliveryFee(t *testing.T) {
	cfg := Config{Promotions: []Rule{percentRule(t, 1, "10", false)}}
	engine := newTestEngine(t, cfg, evalAt)

	items := []*LineItem{simpleItem(t, 10, "20", 2)}
	totals := engine.CalculateCartTotal(items, dec(t, "5"), "")

	if !totals.Subtotal.Equal(dec(t, "40")) {
		t.Fatalf("expected subtotal 40, got %s", totals.Subtotal)
	}
	if !totals.Discount.Equal(dec(t, "4")) {
		t.Fatalf("expected discount 4, got %s", totals.Discount)
	}
	if !totals.Total.Equal(dec(t, "41")) {
		t.Fatalf("expected total 41, got %s", totals.Total)
	}
	if len(items[0].AppliedPromotions) != 1 || items[0].AppliedPromotions[0].PromotionID != 1 {
		t.Fatalf("expected applied promotion rewritten on item, got %+v", items[0].AppliedPromotions)
	}
}

func TestMinSubtotalSeesAggregateCart(t *testing.T) {
	// 单行项都不足 30，但小计满足门槛，第二遍评估应当生效
	cfg := Config{Promotions: []Rule{{
		ID:         1,
		Type:       RuleTypeCategory,
		Conditions: &Conditions{MinSubtotal: dec(t, "30")},
		Discount:   &Discount{Kind: DiscountKindFixed, Value: dec(t, "3")},
	}}}
	engine := newTestEngine(t, cfg, evalAt)

	items := []*LineItem{
		simpleItem(t, 10, "18", 1),
		simpleItem(t, 11, "16", 1),
	}
	totals := engine.CalculateCartTotal(items, decimal.Zero, "")
	if !totals.Discount.Equal(dec(t, "6")) {
		t.Fatalf("expected both items discounted, total discount 6, got %s", totals.Discount)
	}
}

func TestValidateCouponBelowMinimum(t *testing.T) {
	cfg := Config{Promotions: []Rule{{
		ID:          1,
		Type:        RuleTypeCoupon,
		Code:        "BEMVINDO10",
		MinSubtotal: dec(t, "50"),
		Discount:    &Discount{Kind: DiscountKindPercentage, Value: dec(t, "10")},
	}}}
	engine := newTestEngine(t, cfg, evalAt)

	result := engine.ValidateCoupon("BEMVINDO10", dec(t, "30"))
	if result.Valid {
		t.Fatalf("expected validation failure below minimum")
	}
	if result.Reason != CouponReasonBelowMinimum {
		t.Fatalf("expected reason below_minimum, got %s", result.Reason)
	}
	if !strings.Contains(result.Message, "50.00") {
		t.Fatalf("expected formatted minimum in message, got %q", result.Message)
	}
}

func TestValidateCouponReasons(t *testing.T) {
	future := evalAt.Add(24 * time.Hour)
	past := evalAt.Add(-24 * time.Hour)
	cfg := Config{Promotions: []Rule{
		{ID: 1, Type: RuleTypeCoupon, Code: "DISABLED", Enabled: boolPtr(false)},
		{ID: 2, Type: RuleTypeCoupon, Code: "SOON", ValidFrom: &future},
		{ID: 3, Type: RuleTypeCoupon, Code: "GONE", ValidUntil: &past},
		{ID: 4, Type: RuleTypeCoupon, Code: "USED", MaxUsage: 10, CurrentUsage: 10},
		{ID: 5, Type: RuleTypeCoupon, Code: "OK", Discount: &Discount{Kind: DiscountKindFixed, Value: dec(t, "5")}},
	}}
	engine := newTestEngine(t, cfg, evalAt)
	subtotal := dec(t, "100")

	cases := []struct {
		code   string
		reason CouponReason
	}{
		{"NOPE", CouponReasonNotFound},
		{"DISABLED", CouponReasonDisabled},
		{"SOON", CouponReasonNotYetValid},
		{"GONE", CouponReasonExpired},
		{"USED", CouponReasonUsageExhausted},
	}
	for _, tc := range cases {
		result := engine.ValidateCoupon(tc.code, subtotal)
		if result.Valid {
			t.Fatalf("code %q: expected failure", tc.code)
		}
		if result.Reason != tc.reason {
			t.Fatalf("code %q: expected reason %s, got %s", tc.code, tc.reason, result.Reason)
		}
	}

	result := engine.ValidateCoupon("ok", subtotal)
	if !result.Valid || result.Promotion == nil || result.Promotion.ID != 5 {
		t.Fatalf("expected case-insensitive success for OK, got %+v", result)
	}
}

func TestUsageCapBlocksEvaluation(t *testing.T) {
	rule := fixedRule(t, 1, "5", false)
	rule.MaxUsage = 3
	rule.CurrentUsage = 3
	engine := newTestEngine(t, Config{Promotions: []Rule{rule}}, evalAt)

	evals := engine.EvaluateItem(simpleItem(t, 10, "20", 1), dec(t, "20"), "")
	if evals[0].Applicable {
		t.Fatalf("expected exhausted rule to be inapplicable")
	}
}

func TestDisabledRulesDiscarded(t *testing.T) {
	cfg := Config{Promotions: []Rule{
		{ID: 1, Type: RuleTypeTimeBased, Enabled: boolPtr(false), Discount: &Discount{Kind: DiscountKindFixed, Value: decimal.NewFromInt(5)}},
		{ID: 2, Type: RuleTypeTimeBased, ApplyOrder: 5, Discount: &Discount{Kind: DiscountKindFixed, Value: decimal.NewFromInt(1)}},
	}}
	engine := newTestEngine(t, cfg, evalAt)

	evals := engine.EvaluateItem(simpleItem(t, 10, "20", 1), dec(t, "20"), "")
	if len(evals) != 1 {
		t.Fatalf("expected disabled rule excluded from evaluation, got %d records", len(evals))
	}
	if evals[0].Rule.ID != 2 {
		t.Fatalf("expected rule 2, got %d", evals[0].Rule.ID)
	}
}

func TestApplyOrderDefaultAndEvaluationOrder(t *testing.T) {
	cfg := Config{Promotions: []Rule{
		{ID: 1, Type: RuleTypeTimeBased}, // apply_order 缺省 999
		{ID: 2, Type: RuleTypeTimeBased, ApplyOrder: 10},
	}}
	engine := newTestEngine(t, cfg, evalAt)

	evals := engine.EvaluateItem(simpleItem(t, 10, "20", 1), dec(t, "20"), "")
	if len(evals) != 2 || evals[0].Rule.ID != 2 || evals[1].Rule.ID != 1 {
		t.Fatalf("expected evaluation order by apply_order, got %+v", evals)
	}
	if evals[1].Rule.ApplyOrder != 999 {
		t.Fatalf("expected defaulted apply_order 999, got %d", evals[1].Rule.ApplyOrder)
	}
}

func TestActivePromotionsWindow(t *testing.T) {
	future := evalAt.Add(time.Hour)
	past := evalAt.Add(-time.Hour)
	cfg := Config{Promotions: []Rule{
		{ID: 1, Type: RuleTypeTimeBased},
		{ID: 2, Type: RuleTypeTimeBased, ValidFrom: &future},
		{ID: 3, Type: RuleTypeCoupon, Code: "X", ValidUntil: &past},
		{ID: 4, Type: RuleTypeCoupon, Code: "Y", Enabled: boolPtr(false)},
	}}
	engine := newTestEngine(t, cfg, evalAt)

	active := engine.ActivePromotions()
	if len(active) != 1 || active[0].ID != 1 {
		t.Fatalf("expected only rule 1 active, got %+v", active)
	}

	coupons := engine.PromotionsByType(RuleTypeCoupon)
	if len(coupons) != 1 || coupons[0].ID != 3 {
		t.Fatalf("expected enabled coupon rule 3, got %+v", coupons)
	}
}
