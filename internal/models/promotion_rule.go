package models

import (
	"time"

	"gorm.io/gorm"
)

// PromotionRule 促销规则表。
// 条件与优惠定义以 JSON 存储，由促销引擎在加载时解析并兜底默认值
type PromotionRule struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                          // 主键
	Name           string         `gorm:"not null" json:"name"`                                          // 名称
	Type           string         `gorm:"index;not null" json:"type"`                                    // 类型（time_based/coupon/bulk/category/first_order/price_compare）
	ApplyOrder     int            `gorm:"not null;default:999" json:"apply_order"`                       // 评估顺序（升序）
	ConditionsJSON JSON           `gorm:"type:json" json:"conditions"`                                   // 适用条件
	DiscountJSON   JSON           `gorm:"type:json" json:"discount"`                                     // 优惠定义
	Code           string         `gorm:"index" json:"code,omitempty"`                                   // 优惠码（type=coupon 时必填）
	Stackable      bool           `gorm:"not null;default:false" json:"stackable"`                       // 是否可叠加
	ValidFrom      *time.Time     `gorm:"index" json:"valid_from"`                                       // 生效时间
	ValidUntil     *time.Time     `gorm:"index" json:"valid_until"`                                      // 失效时间
	MinSubtotal    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_subtotal"`     // 使用门槛
	MaxUsage       int            `gorm:"not null;default:0" json:"max_usage"`                           // 总使用上限（0 表示不限制）
	CurrentUsage   int            `gorm:"not null;default:0" json:"current_usage"`                       // 已使用次数
	IsActive       bool           `gorm:"not null;default:true" json:"is_active"`                        // 是否启用
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间
}

// TableName 指定表名
func (PromotionRule) TableName() string {
	return "promotion_rules"
}
