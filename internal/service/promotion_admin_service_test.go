package service

import (
	"errors"
	"testing"

	"github.com/diancan-next/internal/constants"
	"github.com/diancan-next/internal/models"
)

func newPromotionAdminEnv(t *testing.T) (*serviceTestEnv, *PromotionAdminService) {
	t.Helper()
	env := newServiceTestEnv(t)
	return env, NewPromotionAdminService(env.ruleRepo, env.promotionSvc)
}

func validCouponInput(code string) PromotionRuleInput {
	return PromotionRuleInput{
		Name: "coupon " + code,
		Type: constants.PromotionTypeCoupon,
		Code: code,
		Discount: map[string]interface{}{
			"kind":  constants.DiscountKindFixed,
			"value": 10,
		},
		MinSubtotal: testMoney("0"),
		IsActive:    true,
	}
}

func TestPromotionRuleValidation(t *testing.T) {
	_, svc := newPromotionAdminEnv(t)

	cases := []struct {
		name  string
		input PromotionRuleInput
		want  error
	}{
		{
			"blank name",
			PromotionRuleInput{Name: "  ", Type: constants.PromotionTypeCategory, MinSubtotal: testMoney("0")},
			ErrPromotionInvalid,
		},
		{
			"unknown type",
			PromotionRuleInput{Name: "r", Type: "flash_sale", MinSubtotal: testMoney("0")},
			ErrPromotionInvalid,
		},
		{
			"coupon without code",
			PromotionRuleInput{Name: "r", Type: constants.PromotionTypeCoupon, MinSubtotal: testMoney("0")},
			ErrPromotionInvalid,
		},
		{
			"free item pay_for >= for_every",
			PromotionRuleInput{
				Name: "r", Type: constants.PromotionTypeBulk, MinSubtotal: testMoney("0"),
				Discount: map[string]interface{}{
					"kind": constants.DiscountKindFreeItem, "for_every": 2, "pay_for": 2,
				},
			},
			ErrPromotionInvalid,
		},
		{
			"free item pay_for zero",
			PromotionRuleInput{
				Name: "r", Type: constants.PromotionTypeBulk, MinSubtotal: testMoney("0"),
				Discount: map[string]interface{}{
					"kind": constants.DiscountKindFreeItem, "for_every": 3, "pay_for": 0,
				},
			},
			ErrPromotionInvalid,
		},
		{
			"bad hour range",
			PromotionRuleInput{
				Name: "r", Type: constants.PromotionTypeTimeBased, MinSubtotal: testMoney("0"),
				Conditions: map[string]interface{}{
					"hour_range": map[string]interface{}{"start": 18, "end": 14},
				},
			},
			ErrPromotionInvalid,
		},
		{
			"bad weekday",
			PromotionRuleInput{
				Name: "r", Type: constants.PromotionTypeTimeBased, MinSubtotal: testMoney("0"),
				Conditions: map[string]interface{}{
					"days_of_week": []interface{}{7},
				},
			},
			ErrPromotionInvalid,
		},
	}
	for _, tc := range cases {
		if _, err := svc.Create(tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestPromotionCouponCodeUnique(t *testing.T) {
	_, svc := newPromotionAdminEnv(t)

	first, err := svc.Create(validCouponInput("SAVE10"))
	if err != nil {
		t.Fatalf("create first coupon failed: %v", err)
	}
	if _, err := svc.Create(validCouponInput("SAVE10")); !errors.Is(err, ErrPromotionCodeExists) {
		t.Fatalf("expected ErrPromotionCodeExists, got %v", err)
	}

	// 更新自身不算冲突
	if _, err := svc.Update(first.ID, validCouponInput("SAVE10")); err != nil {
		t.Fatalf("self update failed: %v", err)
	}
}

func TestPromotionCrudReloadsEngine(t *testing.T) {
	env, svc := newPromotionAdminEnv(t)

	rule, err := svc.Create(PromotionRuleInput{
		Name: "主食 9 折",
		Type: constants.PromotionTypeCategory,
		Conditions: map[string]interface{}{
			"product_category": "mains",
		},
		Discount: map[string]interface{}{
			"kind":  constants.DiscountKindPercentage,
			"value": 10,
		},
		MinSubtotal: testMoney("0"),
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("create rule failed: %v", err)
	}
	if rule.ApplyOrder != 999 {
		t.Fatalf("expected default apply_order 999, got %d", rule.ApplyOrder)
	}
	if len(env.promotionSvc.PromotionsByType(constants.PromotionTypeCategory)) != 1 {
		t.Fatalf("expected engine to see created rule")
	}

	input := PromotionRuleInput{
		Name: rule.Name,
		Type: rule.Type,
		Conditions: map[string]interface{}{
			"product_category": "mains",
		},
		Discount: map[string]interface{}{
			"kind":  constants.DiscountKindPercentage,
			"value": 15,
		},
		MinSubtotal: testMoney("0"),
		IsActive:    false,
	}
	if _, err := svc.Update(rule.ID, input); err != nil {
		t.Fatalf("update rule failed: %v", err)
	}
	if len(env.promotionSvc.PromotionsByType(constants.PromotionTypeCategory)) != 0 {
		t.Fatalf("expected disabled rule out of engine")
	}

	if err := svc.Delete(rule.ID); err != nil {
		t.Fatalf("delete rule failed: %v", err)
	}
	if err := svc.Delete(rule.ID); !errors.Is(err, ErrPromotionNotFound) {
		t.Fatalf("expected ErrPromotionNotFound on second delete, got %v", err)
	}
	var count int64
	if err := env.db.Model(&models.PromotionRule{}).Count(&count).Error; err != nil {
		t.Fatalf("count rules failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no visible rules after delete, got %d", count)
	}
}
