package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// 商品形态
const (
	ProductTypeSimple = "simple" // 单品
	ProductTypeSized  = "sized"  // 多规格（分量 P/M/G）
	ProductTypeCombo  = "combo"  // 套餐
)

// SizePriceMap 规格到价格的映射（sized 商品）
type SizePriceMap map[string]Money

// Value 实现 driver.Valuer 接口
func (m SizePriceMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan 实现 sql.Scanner 接口
func (m *SizePriceMap) Scan(value interface{}) error {
	if value == nil {
		*m = SizePriceMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// ComboComponentSpec 套餐组成项
type ComboComponentSpec struct {
	ProductID uint   `json:"product_id"` // 组成商品ID
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity,omitempty"` // 缺省按 1 计
}

// ComboComponents 套餐组成项集合
type ComboComponents []ComboComponentSpec

// Value 实现 driver.Valuer 接口
func (c ComboComponents) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

// Scan 实现 sql.Scanner 接口
func (c *ComboComponents) Scan(value interface{}) error {
	if value == nil {
		*c = ComboComponents{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, c)
}

// AddonSpec 加料项（名称 + 加价）
type AddonSpec struct {
	Name  string `json:"name"`
	Price Money  `json:"price"`
}

// AddonSpecs 加料项集合
type AddonSpecs []AddonSpec

// Value 实现 driver.Valuer 接口
func (a AddonSpecs) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan 实现 sql.Scanner 接口
func (a *AddonSpecs) Scan(value interface{}) error {
	if value == nil {
		*a = AddonSpecs{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// Product 菜品表
type Product struct {
	ID              uint            `gorm:"primarykey" json:"id"`                                      // 主键
	CategoryID      uint            `gorm:"not null;index" json:"category_id"`                         // 分类ID
	Slug            string          `gorm:"uniqueIndex;not null" json:"slug"`                          // 唯一标识
	TitleJSON       JSON            `gorm:"type:json;not null" json:"title"`                           // 多语言名称
	DescriptionJSON JSON            `gorm:"type:json" json:"description"`                              // 多语言描述
	Type            string          `gorm:"type:varchar(20);not null;default:'simple'" json:"type"`    // 商品形态（simple/sized/combo）
	PriceAmount     Money           `gorm:"type:decimal(20,2);not null;default:0" json:"price_amount"` // 单品价格
	BasePrices      SizePriceMap    `gorm:"type:json" json:"base_prices"`                              // 各规格价格（sized）
	BasePrice       Money           `gorm:"type:decimal(20,2);not null;default:0" json:"base_price"`   // 套餐一口价（combo）
	ComboItems      ComboComponents `gorm:"type:json" json:"combo_items"`                              // 套餐组成（combo）
	Addons          AddonSpecs      `gorm:"type:json" json:"addons"`                                   // 可选加料
	Images          StringArray     `gorm:"type:json" json:"images"`                                   // 图片数组
	Tags            StringArray     `gorm:"type:json" json:"tags"`                                     // 标签数组
	IsActive        bool            `gorm:"default:true;index" json:"is_active"`                       // 是否上架
	SortOrder       int             `gorm:"default:0;index" json:"sort_order"`                         // 排序权重
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt       time.Time       `json:"updated_at"`                                                // 更新时间
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`                                            // 软删除时间

	// 关联
	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"` // 分类信息
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// UnitPrice 按规格返回下单单价
func (p *Product) UnitPrice(size string) Money {
	switch p.Type {
	case ProductTypeSized:
		if price, ok := p.BasePrices[size]; ok {
			return price
		}
		return Money{}
	case ProductTypeCombo:
		return p.BasePrice
	default:
		return p.PriceAmount
	}
}
