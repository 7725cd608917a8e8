package models

import (
	"time"

	"gorm.io/gorm"
)

// CouponUsage 优惠码使用记录（下单占用，订单取消/超时释放）
type CouponUsage struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                         // 主键
	RuleID         uint           `gorm:"index;not null" json:"rule_id"`                                // 促销规则ID
	Code           string         `gorm:"type:varchar(50);index;not null" json:"code"`                  // 使用的优惠码
	OrderID        uint           `gorm:"index;not null" json:"order_id"`                               // 订单ID
	DiscountAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 优惠金额
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间
}

// TableName 指定表名
func (CouponUsage) TableName() string {
	return "coupon_usages"
}
