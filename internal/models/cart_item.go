package models

import (
	"time"

	"gorm.io/gorm"
)

// CartItem 购物车项
type CartItem struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                                 // 主键
	UserID    uint           `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"user_id"`            // 用户ID
	ProductID uint           `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"product_id"`         // 商品ID
	VariantID *uint          `gorm:"uniqueIndex:idx_cart_user_product" json:"variant_id,omitempty"`        // 规格ID（无规格商品为空）
	Quantity  int            `gorm:"not null" json:"quantity"`                                             // 数量
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                                              // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                                              // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                                       // 软删除时间

	Product *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
	Variant *ProductVariant `gorm:"foreignKey:VariantID" json:"variant,omitempty"` // 关联规格
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}

// UnitPrice 返回该购物车项的生效单价（规格价 > 折扣价 > 原价）
func (ci *CartItem) UnitPrice() Money {
	if ci.Variant != nil && ci.Variant.PriceAmount != nil {
		return *ci.Variant.PriceAmount
	}
	if ci.Product != nil {
		return ci.Product.EffectivePrice()
	}
	return Money{}
}
