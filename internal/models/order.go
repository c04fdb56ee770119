package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNo         string         `gorm:"uniqueIndex;not null" json:"order_no"`                      // 订单编号
	UserID          uint           `gorm:"index;not null" json:"user_id"`                             // 用户ID
	Status          string         `gorm:"index;not null" json:"status"`                              // 订单状态
	PaymentMethod   string         `gorm:"type:varchar(32);not null" json:"payment_method"`           // 支付方式（cod/bank_transfer）
	PaymentStatus   string         `gorm:"index;not null" json:"payment_status"`                      // 支付状态
	Currency        string         `gorm:"not null;default:'VND'" json:"currency"`                    // 币种
	TotalAmount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 实付金额（服务端重算，含运费）
	ShippingFee     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_fee"` // 运费
	ShippingName    string         `gorm:"type:varchar(100)" json:"shipping_name"`                    // 收货人
	ShippingPhone   string         `gorm:"type:varchar(32)" json:"shipping_phone"`                    // 收货电话
	ShippingAddress string         `gorm:"type:varchar(500)" json:"shipping_address"`                 // 收货地址
	Note            string         `gorm:"type:varchar(500)" json:"note,omitempty"`                   // 买家备注
	ClientIP        string         `gorm:"type:varchar(64)" json:"client_ip,omitempty"`               // 下单客户端IP
	ExpiresAt       *time.Time     `gorm:"index" json:"expires_at"`                                   // 支付截止时间
	PaidAt          *time.Time     `gorm:"index" json:"paid_at"`                                      // 支付时间
	CanceledAt      *time.Time     `gorm:"index" json:"canceled_at"`                                  // 取消时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
