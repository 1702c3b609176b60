package models

import (
	"time"
)

// DeliveryCodeCounter 顺序验证码年度计数器表
// last_code 从 1111 起步，发到 9999 后绕回 1111。
type DeliveryCodeCounter struct {
	ID        uint      `gorm:"primarykey" json:"id"`             // 主键
	Year      int       `gorm:"uniqueIndex;not null" json:"year"` // 年份
	LastCode  int       `gorm:"not null" json:"last_code"`        // 最近发出的码
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`          // 更新时间
}

// TableName 指定表名
func (DeliveryCodeCounter) TableName() string {
	return "delivery_code_counters"
}
