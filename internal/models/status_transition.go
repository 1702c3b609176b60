package models

import (
	"time"
)

// StatusTransition 状态流转记录表（仅追加，构成完整审计链）
type StatusTransition struct {
	ID                  uint      `gorm:"primarykey" json:"id"`                                   // 主键
	ProjectionID        uint      `gorm:"index;not null" json:"projection_id"`                    // 投影ID
	FromState           *string   `gorm:"type:varchar(32)" json:"from_state"`                     // 原状态（首条记录为空）
	ToState             string    `gorm:"type:varchar(32);not null" json:"to_state"`              // 目标状态
	ChangedBy           *uint     `gorm:"index" json:"changed_by,omitempty"`                      // 操作人（系统写入为空）
	ChangedByDepartment string    `gorm:"type:varchar(16);not null" json:"changed_by_department"` // 操作部门
	Notes               string    `gorm:"type:varchar(1000)" json:"notes,omitempty"`              // 备注
	CreatedAt           time.Time `gorm:"index" json:"created_at"`                                // 创建时间
}

// TableName 指定表名
func (StatusTransition) TableName() string {
	return "status_transitions"
}
