package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer 客户表
type Customer struct {
	ID           uint           `gorm:"primarykey" json:"id"`                  // 主键
	Name         string         `gorm:"not null" json:"name"`                  // 客户姓名
	Phone        string         `gorm:"index;not null" json:"phone"`           // 联系电话（交付验证码发送目标）
	Email        string         `gorm:"index" json:"email,omitempty"`          // 邮箱
	Address      string         `gorm:"type:varchar(500)" json:"address"`      // 收货地址
	GPSLatitude  string         `gorm:"type:varchar(32)" json:"gps_latitude"`  // GPS 纬度
	GPSLongitude string         `gorm:"type:varchar(32)" json:"gps_longitude"` // GPS 经度
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`               // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`               // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                        // 软删除时间
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}
