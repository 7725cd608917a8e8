package service

import (
	"strings"

	"github.com/diancan-next/internal/constants"
	"github.com/diancan-next/internal/models"
)

// normalizeSettingValueByKey 按设置键执行归一化，避免非法值入库。
func normalizeSettingValueByKey(key string, value map[string]interface{}) models.JSON {
	switch key {
	case constants.SettingKeyOrderConfig:
		return normalizeOrderSetting(value)
	case constants.SettingKeyDeliveryConfig:
		return normalizeDeliverySetting(value)
	case constants.SettingKeyPromotionDefaults:
		return normalizePromotionDefaults(value)
	default:
		return models.JSON(value)
	}
}

// normalizeOrderSetting 归一化订单设置。
func normalizeOrderSetting(value map[string]interface{}) models.JSON {
	normalized := make(models.JSON, len(value)+1)
	for key, raw := range value {
		normalized[key] = raw
	}

	expireMinutes := 15
	if raw, ok := value[constants.SettingFieldPaymentExpireMinutes]; ok {
		if parsed, err := parseSettingInt(raw); err == nil {
			if parsed > 0 {
				expireMinutes = parsed
			}
		}
	}
	if expireMinutes > 10080 {
		expireMinutes = 10080
	}
	normalized[constants.SettingFieldPaymentExpireMinutes] = expireMinutes
	return normalized
}

// normalizeDeliverySetting 归一化配送设置，配送费不允许为负。
func normalizeDeliverySetting(value map[string]interface{}) models.JSON {
	normalized := make(models.JSON, len(value)+1)
	for key, raw := range value {
		normalized[key] = raw
	}

	fee := "0.00"
	if raw, ok := value[constants.SettingFieldDeliveryFee]; ok {
		if parsed, err := parseSettingDecimal(raw); err == nil && !parsed.IsNegative() {
			fee = parsed.Round(2).StringFixed(2)
		}
	}
	normalized[constants.SettingFieldDeliveryFee] = fee
	return normalized
}

// normalizePromotionDefaults 归一化促销比较策略。
// tie_breaker 与 evaluation_sequence 目前仅存取，选择算法不消费
func normalizePromotionDefaults(value map[string]interface{}) models.JSON {
	normalized := make(models.JSON, 3)

	tieBreaker := constants.TieBreakerFavorCustomer
	if raw, ok := value["tie_breaker"].(string); ok {
		trimmed := strings.TrimSpace(raw)
		if trimmed == constants.TieBreakerFavorCustomer || trimmed == constants.TieBreakerFavorBusiness {
			tieBreaker = trimmed
		}
	}
	normalized["tie_breaker"] = tieBreaker

	maxStack := constants.MaxStackDefault
	if raw, ok := value["max_stack"]; ok {
		if parsed, err := parseSettingInt(raw); err == nil && parsed > 0 && parsed <= 10 {
			maxStack = parsed
		}
	}
	normalized["max_stack"] = maxStack

	sequence := make([]interface{}, 0)
	if rawList, ok := value["evaluation_sequence"].([]interface{}); ok {
		for _, raw := range rawList {
			if item, ok := raw.(string); ok {
				trimmed := strings.TrimSpace(item)
				if trimmed != "" {
					sequence = append(sequence, trimmed)
				}
			}
		}
	}
	normalized["evaluation_sequence"] = sequence

	return normalized
}
