package models

import (
	"time"

	"gorm.io/gorm"
)

// CartItem 购物车项（按会话令牌隔离，游客下单无需账号）
type CartItem struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                    // 主键
	SessionToken string         `gorm:"type:varchar(64);index;not null" json:"session_token"`    // 会话令牌
	ProductID    uint           `gorm:"index;not null" json:"product_id"`                        // 商品ID
	Size         string         `gorm:"type:varchar(10)" json:"size,omitempty"`                  // 规格（sized 商品）
	Quantity     int            `gorm:"not null" json:"quantity"`                                // 数量
	UnitPrice    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"` // 加购时单价快照
	Addons       AddonSpecs     `gorm:"type:json" json:"addons"`                                 // 已选加料
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                                 // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                                 // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                          // 软删除时间

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}
