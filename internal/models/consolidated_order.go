package models

import (
	"time"
)

// ConsolidatedOrder 合并快照表（财务放行后的订单全景，供下游部门直接消费）
// 快照字段是有意的冗余复制，不是缓存：上游表后续变化不影响快照。
type ConsolidatedOrder struct {
	ID                  uint       `gorm:"primarykey" json:"id"`                                         // 主键
	OrderID             uint       `gorm:"uniqueIndex;not null" json:"order_id"`                         // 订单ID（一单一快照）
	ProjectionID        uint       `gorm:"index;not null" json:"projection_id"`                          // 投影ID
	OrderNo             string     `gorm:"uniqueIndex;not null" json:"order_no"`                         // 订单编号
	CustomerName        string     `gorm:"not null" json:"customer_name"`                                // 客户姓名快照
	CustomerPhone       string     `gorm:"not null" json:"customer_phone"`                               // 客户电话快照
	CustomerEmail       string     `json:"customer_email,omitempty"`                                     // 客户邮箱快照
	DeliveryAddress     string     `gorm:"type:varchar(500)" json:"delivery_address"`                    // 收货地址快照
	GPSLatitude         string     `gorm:"type:varchar(32)" json:"gps_latitude,omitempty"`               // GPS 纬度快照
	GPSLongitude        string     `gorm:"type:varchar(32)" json:"gps_longitude,omitempty"`              // GPS 经度快照
	HasGPSLocation      bool       `gorm:"not null;default:false" json:"has_gps_location"`               // 是否带 GPS 定位
	ItemsJSON           JSONArray  `gorm:"type:json;not null" json:"items"`                              // 订单项快照
	ItemsTotal          Money      `gorm:"type:decimal(20,2);not null;default:0" json:"items_total"`     // 订单项合计
	TotalAmount         Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`    // 订单金额快照
	Currency            string     `gorm:"not null" json:"currency"`                                     // 币种快照
	TotalWeightKG       Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_weight_kg"` // 总重量（统一为千克）
	PaymentSourceLabel  string     `gorm:"type:varchar(64)" json:"payment_source_label,omitempty"`       // 支付来源标签快照
	CurrentState        string     `gorm:"index;not null" json:"current_state"`                          // 建立快照时的管理状态
	FinancialNotes      string     `gorm:"type:varchar(1000)" json:"financial_notes,omitempty"`          // 财务备注快照
	FinancialReviewedAt *time.Time `json:"financial_reviewed_at,omitempty"`                              // 财务审核时间快照
	WarehouseNotes      string     `gorm:"type:varchar(1000)" json:"warehouse_notes,omitempty"`          // 仓库备注快照
	LogisticsNotes      string     `gorm:"type:varchar(1000)" json:"logistics_notes,omitempty"`          // 物流备注
	TrackingReference   string     `gorm:"type:varchar(128)" json:"tracking_reference,omitempty"`        // 物流单号
	CreatedAt           time.Time  `gorm:"index" json:"created_at"`                                      // 建立时间
	UpdatedAt           time.Time  `gorm:"index" json:"updated_at"`                                      // 更新时间（仅受控更新触达）
}

// TableName 指定表名
func (ConsolidatedOrder) TableName() string {
	return "consolidated_orders"
}
