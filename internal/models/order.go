package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表（订单记录源，管理投影由其派生）
type Order struct {
	ID                      uint           `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNo                 string         `gorm:"uniqueIndex;not null" json:"order_no"`                      // 订单编号
	CustomerID              uint           `gorm:"index;not null" json:"customer_id"`                         // 客户ID
	FulfillmentStatus       string         `gorm:"index;not null;default:pending" json:"fulfillment_status"`  // 履约状态
	PaymentStatus           string         `gorm:"index;not null;default:unpaid" json:"payment_status"`       // 支付状态
	PaymentSource           string         `gorm:"type:varchar(64)" json:"payment_source,omitempty"`          // 支付来源标签
	ReceiptURL              string         `gorm:"type:varchar(500)" json:"receipt_url,omitempty"`            // 付款凭证地址
	Currency                string         `gorm:"not null" json:"currency"`                                  // 币种
	TotalAmount             Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 订单金额
	ManualFinancialApproval bool           `gorm:"not null;default:false" json:"manual_financial_approval"`   // 财务手工放行标记（部分付款）
	DeliveryAddress         string         `gorm:"type:varchar(500)" json:"delivery_address,omitempty"`       // 收货地址快照
	GPSLatitude             string         `gorm:"type:varchar(32)" json:"gps_latitude,omitempty"`            // GPS 纬度快照
	GPSLongitude            string         `gorm:"type:varchar(32)" json:"gps_longitude,omitempty"`           // GPS 经度快照
	CreatedAt               time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt               time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt               gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	Items    []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`       // 订单项
	Customer *Customer   `gorm:"foreignKey:CustomerID" json:"customer,omitempty"` // 客户
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
