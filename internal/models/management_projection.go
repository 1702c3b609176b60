package models

import (
	"time"
)

// ManagementProjection 订单管理投影表（每个订单一行，部门队列的查询基础）
type ManagementProjection struct {
	ID                   uint       `gorm:"primarykey" json:"id"`                                  // 主键
	OrderID              uint       `gorm:"uniqueIndex;not null" json:"order_id"`                  // 订单ID（一单一投影）
	CurrentState         string     `gorm:"index;not null;default:pending" json:"current_state"`   // 当前管理状态
	FinancialReviewerID  *uint      `gorm:"index" json:"financial_reviewer_id,omitempty"`          // 财务审核人
	FinancialReviewedAt  *time.Time `json:"financial_reviewed_at,omitempty"`                       // 财务审核通过时间（仅通过时写入）
	FinancialNotes       string     `gorm:"type:varchar(1000)" json:"financial_notes,omitempty"`   // 财务备注
	WarehouseAssigneeID  *uint      `gorm:"index" json:"warehouse_assignee_id,omitempty"`          // 仓库经办人
	WarehouseProcessedAt *time.Time `json:"warehouse_processed_at,omitempty"`                      // 仓库处理时间
	WarehouseNotes       string     `gorm:"type:varchar(1000)" json:"warehouse_notes,omitempty"`   // 仓库备注
	LogisticsAssigneeID  *uint      `gorm:"index" json:"logistics_assignee_id,omitempty"`          // 物流经办人
	LogisticsProcessedAt *time.Time `json:"logistics_processed_at,omitempty"`                      // 物流处理时间
	LogisticsNotes       string     `gorm:"type:varchar(1000)" json:"logistics_notes,omitempty"`   // 物流备注
	TrackingReference    string     `gorm:"type:varchar(128)" json:"tracking_reference,omitempty"` // 物流单号
	EstimatedDeliveryAt  *time.Time `json:"estimated_delivery_at,omitempty"`                       // 预计送达时间
	ActualDeliveryAt     *time.Time `json:"actual_delivery_at,omitempty"`                          // 实际送达时间
	SyncNote             string     `gorm:"type:varchar(500)" json:"sync_note,omitempty"`          // 最近一次自动写入的来源说明
	CreatedAt            time.Time  `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt            time.Time  `gorm:"index" json:"updated_at"`                               // 更新时间
}

// TableName 指定表名
func (ManagementProjection) TableName() string {
	return "management_projections"
}
