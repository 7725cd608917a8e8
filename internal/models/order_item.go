package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// AppliedPromotionRecord 订单项上生效的单条优惠快照
type AppliedPromotionRecord struct {
	PromotionID   uint   `json:"promotion_id"`
	PromotionName string `json:"promotion_name"`
	Type          string `json:"type"`
	Discount      Money  `json:"discount"`
}

// AppliedPromotionList 生效优惠集合
type AppliedPromotionList []AppliedPromotionRecord

// Value 实现 driver.Valuer 接口
func (l AppliedPromotionList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan 实现 sql.Scanner 接口
func (l *AppliedPromotionList) Scan(value interface{}) error {
	if value == nil {
		*l = AppliedPromotionList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// OrderItem 订单项表
type OrderItem struct {
	ID                uint                 `gorm:"primarykey" json:"id"`                                         // 主键
	OrderID           uint                 `gorm:"index;not null" json:"order_id"`                               // 订单ID
	ProductID         uint                 `gorm:"index;not null" json:"product_id"`                             // 商品ID
	TitleJSON         JSON                 `gorm:"type:json;not null" json:"title"`                              // 商品名称快照
	Size              string               `gorm:"type:varchar(10)" json:"size,omitempty"`                       // 规格快照
	UnitPrice         Money                `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`      // 单价快照
	Quantity          int                  `gorm:"not null" json:"quantity"`                                     // 数量
	TotalPrice        Money                `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"`     // 小计（折扣后）
	DiscountAmount    Money                `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 优惠金额
	Addons            AddonSpecs           `gorm:"type:json" json:"addons"`                                      // 加料快照
	AppliedPromotions AppliedPromotionList `gorm:"type:json" json:"applied_promotions"`                          // 生效优惠快照
	CreatedAt         time.Time            `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt         time.Time            `gorm:"index" json:"updated_at"`                                      // 更新时间
	DeletedAt         gorm.DeletedAt       `gorm:"index" json:"-"`                                               // 软删除时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
