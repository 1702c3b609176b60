package repository

import (
	"errors"
	"time"

	"github.com/orderpulse/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryCodeRepository 交付验证码数据访问接口
type DeliveryCodeRepository interface {
	Create(code *models.DeliveryCode) error
	GetByOrderID(orderID uint) (*models.DeliveryCode, error)
	GetActiveByOrderID(orderID uint, now time.Time) (*models.DeliveryCode, error)
	CountActiveByCode(code string, now time.Time) (int64, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	MarkVerified(id uint, updates map[string]interface{}) (int64, error)
	GetCounterForYear(year int) (*models.DeliveryCodeCounter, error)
	GetCounterForYearForUpdate(year int) (*models.DeliveryCodeCounter, error)
	SaveCounter(counter *models.DeliveryCodeCounter) error
	WithTx(tx *gorm.DB) *GormDeliveryCodeRepository
}

// GormDeliveryCodeRepository GORM 实现
type GormDeliveryCodeRepository struct {
	db *gorm.DB
}

// NewDeliveryCodeRepository 创建交付验证码仓库
func NewDeliveryCodeRepository(db *gorm.DB) *GormDeliveryCodeRepository {
	return &GormDeliveryCodeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDeliveryCodeRepository) WithTx(tx *gorm.DB) *GormDeliveryCodeRepository {
	if tx == nil {
		return r
	}
	return &GormDeliveryCodeRepository{db: tx}
}

// Create 创建验证码记录
func (r *GormDeliveryCodeRepository) Create(code *models.DeliveryCode) error {
	return r.db.Create(code).Error
}

// GetByOrderID 根据订单 ID 获取验证码记录（无论是否有效）
func (r *GormDeliveryCodeRepository) GetByOrderID(orderID uint) (*models.DeliveryCode, error) {
	var code models.DeliveryCode
	if err := r.db.Where("order_id = ?", orderID).First(&code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// GetActiveByOrderID 获取订单当前有效（未验证且未过期）的验证码
func (r *GormDeliveryCodeRepository) GetActiveByOrderID(orderID uint, now time.Time) (*models.DeliveryCode, error) {
	var code models.DeliveryCode
	if err := r.db.
		Where("order_id = ? AND is_verified = ? AND expires_at > ?", orderID, false, now).
		First(&code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// CountActiveByCode 统计当前有效记录里使用了指定码值的数量（随机发放防碰撞）
func (r *GormDeliveryCodeRepository) CountActiveByCode(code string, now time.Time) (int64, error) {
	var count int64
	if err := r.db.Model(&models.DeliveryCode{}).
		Where("code = ? AND is_verified = ? AND expires_at > ?", code, false, now).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateFields 更新验证码记录字段
func (r *GormDeliveryCodeRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.DeliveryCode{}).Where("id = ?", id).Updates(updates).Error
}

// MarkVerified 单次核销：仅当记录尚未核销时写入核销字段，返回影响行数。
// 并发核销只有一方能命中未核销行。
func (r *GormDeliveryCodeRepository) MarkVerified(id uint, updates map[string]interface{}) (int64, error) {
	result := r.db.Model(&models.DeliveryCode{}).
		Where("id = ? AND is_verified = ?", id, false).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// GetCounterForYear 获取年度计数器
func (r *GormDeliveryCodeRepository) GetCounterForYear(year int) (*models.DeliveryCodeCounter, error) {
	var counter models.DeliveryCodeCounter
	if err := r.db.Where("year = ?", year).First(&counter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &counter, nil
}

// GetCounterForYearForUpdate 按年份加锁获取计数器，
// 串行化同一年度的并发取号。
func (r *GormDeliveryCodeRepository) GetCounterForYearForUpdate(year int) (*models.DeliveryCodeCounter, error) {
	var counter models.DeliveryCodeCounter
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("year = ?", year).
		First(&counter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &counter, nil
}

// SaveCounter 保存年度计数器
func (r *GormDeliveryCodeRepository) SaveCounter(counter *models.DeliveryCodeCounter) error {
	return r.db.Save(counter).Error
}
