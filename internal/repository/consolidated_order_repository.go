package repository

import (
	"errors"
	"strings"

	"github.com/orderpulse/internal/models"

	"gorm.io/gorm"
)

// ConsolidatedOrderRepository 合并快照数据访问接口
type ConsolidatedOrderRepository interface {
	Create(snapshot *models.ConsolidatedOrder) error
	GetByOrderID(orderID uint) (*models.ConsolidatedOrder, error)
	GetByOrderNo(orderNo string) (*models.ConsolidatedOrder, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	WithTx(tx *gorm.DB) *GormConsolidatedOrderRepository
}

// GormConsolidatedOrderRepository GORM 实现
type GormConsolidatedOrderRepository struct {
	db *gorm.DB
}

// NewConsolidatedOrderRepository 创建合并快照仓库
func NewConsolidatedOrderRepository(db *gorm.DB) *GormConsolidatedOrderRepository {
	return &GormConsolidatedOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormConsolidatedOrderRepository) WithTx(tx *gorm.DB) *GormConsolidatedOrderRepository {
	if tx == nil {
		return r
	}
	return &GormConsolidatedOrderRepository{db: tx}
}

// Create 创建快照
func (r *GormConsolidatedOrderRepository) Create(snapshot *models.ConsolidatedOrder) error {
	return r.db.Create(snapshot).Error
}

// GetByOrderID 根据订单 ID 获取快照
func (r *GormConsolidatedOrderRepository) GetByOrderID(orderID uint) (*models.ConsolidatedOrder, error) {
	var snapshot models.ConsolidatedOrder
	if err := r.db.Where("order_id = ?", orderID).First(&snapshot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// GetByOrderNo 根据订单编号获取快照
func (r *GormConsolidatedOrderRepository) GetByOrderNo(orderNo string) (*models.ConsolidatedOrder, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, nil
	}
	var snapshot models.ConsolidatedOrder
	if err := r.db.Where("order_no = ?", orderNo).First(&snapshot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// UpdateFields 受控更新快照字段（状态/物流备注/单号）
func (r *GormConsolidatedOrderRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.ConsolidatedOrder{}).Where("id = ?", id).Updates(updates).Error
}
