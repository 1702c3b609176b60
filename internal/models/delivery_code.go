package models

import (
	"time"
)

// DeliveryCode 交付验证码表
// 约束：同一订单同一时刻至多一条未验证且未过期的记录；重发复用本行。
type DeliveryCode struct {
	ID             uint       `gorm:"primarykey" json:"id"`                               // 主键
	OrderID        uint       `gorm:"uniqueIndex;not null" json:"order_id"`               // 订单ID
	Code           string     `gorm:"type:varchar(4);not null" json:"code"`               // 4 位数字验证码
	Channel        string     `gorm:"type:varchar(16);not null" json:"channel"`           // 发放方式（sequential/random）
	ExpiresAt      time.Time  `gorm:"index;not null" json:"expires_at"`                   // 过期时间（发放后 48 小时）
	IsVerified     bool       `gorm:"not null;default:false;index" json:"is_verified"`    // 是否已验证
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`                              // 验证时间
	VerifiedBy     *uint      `gorm:"index" json:"verified_by,omitempty"`                 // 验证人
	VerifyLocation string     `gorm:"type:varchar(200)" json:"verify_location,omitempty"` // 验证地点
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt      time.Time  `gorm:"index" json:"updated_at"`                            // 更新时间
}

// TableName 指定表名
func (DeliveryCode) TableName() string {
	return "delivery_codes"
}
