package service

import (
	"testing"

	"github.com/diancan-next/internal/constants"
)

func TestNormalizeOrderSettingDefaults(t *testing.T) {
	normalized := normalizeSettingValueByKey(constants.SettingKeyOrderConfig, map[string]interface{}{})
	if normalized[constants.SettingFieldPaymentExpireMinutes] != 15 {
		t.Fatalf("expected default expire minutes 15, got %v", normalized[constants.SettingFieldPaymentExpireMinutes])
	}
}

func TestNormalizeOrderSettingClampsUpperBound(t *testing.T) {
	normalized := normalizeSettingValueByKey(constants.SettingKeyOrderConfig, map[string]interface{}{
		constants.SettingFieldPaymentExpireMinutes: 999999,
	})
	if normalized[constants.SettingFieldPaymentExpireMinutes] != 10080 {
		t.Fatalf("expected clamped expire minutes 10080, got %v", normalized[constants.SettingFieldPaymentExpireMinutes])
	}
}

func TestNormalizeDeliverySetting(t *testing.T) {
	normalized := normalizeSettingValueByKey(constants.SettingKeyDeliveryConfig, map[string]interface{}{
		constants.SettingFieldDeliveryFee: "5.5",
	})
	if normalized[constants.SettingFieldDeliveryFee] != "5.50" {
		t.Fatalf("expected delivery fee 5.50, got %v", normalized[constants.SettingFieldDeliveryFee])
	}

	negative := normalizeSettingValueByKey(constants.SettingKeyDeliveryConfig, map[string]interface{}{
		constants.SettingFieldDeliveryFee: -3,
	})
	if negative[constants.SettingFieldDeliveryFee] != "0.00" {
		t.Fatalf("expected negative fee reset to 0.00, got %v", negative[constants.SettingFieldDeliveryFee])
	}
}

func TestNormalizePromotionDefaults(t *testing.T) {
	normalized := normalizeSettingValueByKey(constants.SettingKeyPromotionDefaults, map[string]interface{}{
		"tie_breaker":         "favor_business",
		"max_stack":           5,
		"evaluation_sequence": []interface{}{"promotion_priority", " max_discount_amount ", ""},
	})
	if normalized["tie_breaker"] != constants.TieBreakerFavorBusiness {
		t.Fatalf("expected favor_business, got %v", normalized["tie_breaker"])
	}
	if normalized["max_stack"] != 5 {
		t.Fatalf("expected max_stack 5, got %v", normalized["max_stack"])
	}
	sequence, ok := normalized["evaluation_sequence"].([]interface{})
	if !ok || len(sequence) != 2 {
		t.Fatalf("expected 2 sequence entries, got %v", normalized["evaluation_sequence"])
	}

	invalid := normalizeSettingValueByKey(constants.SettingKeyPromotionDefaults, map[string]interface{}{
		"tie_breaker": "favor_nobody",
		"max_stack":   0,
	})
	if invalid["tie_breaker"] != constants.TieBreakerFavorCustomer {
		t.Fatalf("expected fallback favor_customer, got %v", invalid["tie_breaker"])
	}
	if invalid["max_stack"] != constants.MaxStackDefault {
		t.Fatalf("expected fallback max_stack %d, got %v", constants.MaxStackDefault, invalid["max_stack"])
	}
}
