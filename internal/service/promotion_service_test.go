package service

import (
	"testing"
	"time"

	"github.com/diancan-next/internal/constants"
	"github.com/diancan-next/internal/models"
	"github.com/diancan-next/internal/promotion"

	"github.com/shopspring/decimal"
)

func TestComboPriceReconstruction(t *testing.T) {
	env := newServiceTestEnv(t)
	mains := env.createCategory(t, "mains")
	drinks := env.createCategory(t, "drinks")
	combos := env.createCategory(t, "combos")

	rice := env.createSimpleProduct(t, mains.ID, "beef-rice", "28.00")
	tea := env.createSizedProduct(t, drinks.ID, "milk-tea", map[string]string{
		constants.ProductSizeMedium: "12.00",
	}, nil)
	// 组件合计 40 低于套餐价 42，重构价应胜出
	combo := env.createComboProduct(t, combos.ID, "rice-combo", "42.00", models.ComboComponents{
		{ProductID: rice.ID, Quantity: 1},
		{ProductID: tea.ID, Size: constants.ProductSizeMedium, Quantity: 1},
	})
	env.reloadRules(t)

	token := env.cartSvc.NewSessionToken()
	if _, err := env.cartSvc.AddItem(token, AddItemInput{ProductID: combo.ID, Quantity: 1}); err != nil {
		t.Fatalf("add combo failed: %v", err)
	}

	view, err := env.cartSvc.GetCart(token, "")
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	if !view.Totals.Subtotal.Equal(testMoney("40.00").Decimal) {
		t.Fatalf("expected reconstructed subtotal 40.00, got %s", view.Totals.Subtotal)
	}
	if !view.Totals.TotalSavings.Equal(testMoney("2.00").Decimal) {
		t.Fatalf("expected savings 2.00, got %s", view.Totals.TotalSavings)
	}
}

func TestCategoryRuleAppliesToMatchingItemsOnly(t *testing.T) {
	env := newServiceTestEnv(t)
	mains := env.createCategory(t, "mains")
	drinks := env.createCategory(t, "drinks")
	rice := env.createSimpleProduct(t, mains.ID, "beef-rice", "30.00")
	tea := env.createSimpleProduct(t, drinks.ID, "iced-tea", "8.00")

	rule := &models.PromotionRule{
		Name: "主食 9 折",
		Type: constants.PromotionTypeCategory,
		ConditionsJSON: models.JSON(map[string]interface{}{
			"product_category": "mains",
		}),
		DiscountJSON: models.JSON(map[string]interface{}{
			"kind":  constants.DiscountKindPercentage,
			"value": 10,
		}),
		IsActive: true,
	}
	if err := env.db.Create(rule).Error; err != nil {
		t.Fatalf("create rule failed: %v", err)
	}
	env.reloadRules(t)

	token := env.cartSvc.NewSessionToken()
	if _, err := env.cartSvc.AddItem(token, AddItemInput{ProductID: rice.ID, Quantity: 1}); err != nil {
		t.Fatalf("add rice failed: %v", err)
	}
	if _, err := env.cartSvc.AddItem(token, AddItemInput{ProductID: tea.ID, Quantity: 1}); err != nil {
		t.Fatalf("add tea failed: %v", err)
	}

	view, err := env.cartSvc.GetCart(token, "")
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	if !view.Totals.Discount.Equal(testMoney("3.00").Decimal) {
		t.Fatalf("expected discount 3.00 on mains only, got %s", view.Totals.Discount)
	}

	var riceApplied, teaApplied int
	for _, item := range view.Totals.Items {
		switch item.Product.ID {
		case rice.ID:
			riceApplied = len(item.AppliedPromotions)
		case tea.ID:
			teaApplied = len(item.AppliedPromotions)
		}
	}
	if riceApplied != 1 || teaApplied != 0 {
		t.Fatalf("expected rule on rice only, got rice=%d tea=%d", riceApplied, teaApplied)
	}
}

func TestValidateCouponOutcomes(t *testing.T) {
	env := newServiceTestEnv(t)
	env.createCouponRule(t, "SAVE10", "10", "50.00", 1)

	expired := time.Now().Add(-time.Hour)
	expiredRule := &models.PromotionRule{
		Name: "expired coupon",
		Type: constants.PromotionTypeCoupon,
		Code: "OLD",
		DiscountJSON: models.JSON(map[string]interface{}{
			"kind":  constants.DiscountKindFixed,
			"value": 5,
		}),
		ValidUntil: &expired,
		IsActive:   true,
	}
	if err := env.db.Create(expiredRule).Error; err != nil {
		t.Fatalf("create expired rule failed: %v", err)
	}
	env.reloadRules(t)

	cases := []struct {
		name     string
		code     string
		subtotal string
		valid    bool
		reason   promotion.CouponReason
	}{
		{"unknown code", "NOPE", "100.00", false, promotion.CouponReasonNotFound},
		{"expired", "OLD", "100.00", false, promotion.CouponReasonExpired},
		{"below minimum", "SAVE10", "30.00", false, promotion.CouponReasonBelowMinimum},
		{"valid", "SAVE10", "60.00", true, ""},
		{"case insensitive", "save10", "60.00", true, ""},
	}
	for _, tc := range cases {
		result := env.promotionSvc.ValidateCoupon(tc.code, decimal.RequireFromString(tc.subtotal))
		if result.Valid != tc.valid {
			t.Fatalf("%s: expected valid=%v, got %v (%s)", tc.name, tc.valid, result.Valid, result.Message)
		}
		if !tc.valid && result.Reason != tc.reason {
			t.Fatalf("%s: expected reason %s, got %s", tc.name, tc.reason, result.Reason)
		}
	}
}

func TestValidateCouponUsageExhausted(t *testing.T) {
	env := newServiceTestEnv(t)
	rule := env.createCouponRule(t, "ONCE", "5", "0", 1)
	if err := env.db.Model(rule).Update("current_usage", 1).Error; err != nil {
		t.Fatalf("bump usage failed: %v", err)
	}
	env.reloadRules(t)

	result := env.promotionSvc.ValidateCoupon("ONCE", decimal.NewFromInt(100))
	if result.Valid {
		t.Fatalf("expected exhausted coupon to be invalid")
	}
	if result.Reason != promotion.CouponReasonUsageExhausted {
		t.Fatalf("expected usage_exhausted, got %s", result.Reason)
	}
}

func TestPromotionsByTypeFiltersDisabled(t *testing.T) {
	env := newServiceTestEnv(t)
	rules := []*models.PromotionRule{
		{
			Name: "下午茶",
			Type: constants.PromotionTypeTimeBased,
			DiscountJSON: models.JSON(map[string]interface{}{
				"kind": constants.DiscountKindPercentage, "value": 20,
			}),
			IsActive: true,
		},
		{
			Name: "停用规则",
			Type: constants.PromotionTypeTimeBased,
			DiscountJSON: models.JSON(map[string]interface{}{
				"kind": constants.DiscountKindPercentage, "value": 50,
			}),
			IsActive: false,
		},
		{
			Name: "首单立减",
			Type: constants.PromotionTypeFirstOrder,
			DiscountJSON: models.JSON(map[string]interface{}{
				"kind": constants.DiscountKindFixed, "value": 5,
			}),
			IsActive: true,
		},
	}
	for _, r := range rules {
		if err := env.db.Create(r).Error; err != nil {
			t.Fatalf("create rule failed: %v", err)
		}
	}
	env.reloadRules(t)

	timeBased := env.promotionSvc.PromotionsByType(constants.PromotionTypeTimeBased)
	if len(timeBased) != 1 || timeBased[0].Name != "下午茶" {
		t.Fatalf("expected only enabled time_based rule, got %+v", timeBased)
	}
	active := env.promotionSvc.ActivePromotions()
	if len(active) != 2 {
		t.Fatalf("expected 2 active rules, got %d", len(active))
	}
}
