package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                         // 主键
	OrderNo        string         `gorm:"uniqueIndex;not null" json:"order_no"`                         // 订单编号
	Status         string         `gorm:"index;not null" json:"status"`                                 // 订单状态
	Currency       string         `gorm:"not null" json:"currency"`                                     // 币种
	CustomerName   string         `gorm:"type:varchar(100);not null" json:"customer_name"`              // 收货人
	CustomerPhone  string         `gorm:"type:varchar(30);index;not null" json:"customer_phone"`        // 联系电话
	Address        string         `gorm:"type:varchar(500);not null" json:"address"`                    // 配送地址
	Remark         string         `gorm:"type:varchar(500)" json:"remark,omitempty"`                    // 订单备注
	SubtotalAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal_amount"` // 小计（折扣前）
	DiscountAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 促销优惠金额
	SavingsAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"savings_amount"`  // 总节省（含套餐比价）
	DeliveryFee    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"delivery_fee"`    // 配送费
	TotalAmount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`    // 实付金额
	CouponCode     string         `gorm:"type:varchar(50);index" json:"coupon_code,omitempty"`          // 使用的优惠码
	CouponRuleID   *uint          `gorm:"index" json:"coupon_rule_id,omitempty"`                        // 优惠码规则ID
	PaymentTxnID   string         `gorm:"type:varchar(100)" json:"payment_txn_id,omitempty"`            // 支付网关交易号
	ClientIP       string         `gorm:"type:varchar(64)" json:"client_ip,omitempty"`                  // 下单客户端IP
	ExpiresAt      *time.Time     `gorm:"index" json:"expires_at"`                                      // 未支付过期时间
	PaidAt         *time.Time     `gorm:"index" json:"paid_at"`                                         // 支付时间
	CanceledAt     *time.Time     `gorm:"index" json:"canceled_at"`                                     // 取消时间
	DeliveredAt    *time.Time     `json:"delivered_at"`                                                 // 送达时间
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                      // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
