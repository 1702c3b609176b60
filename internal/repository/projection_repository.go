package repository

import (
	"errors"
	"time"

	"github.com/orderpulse/internal/models"

	"gorm.io/gorm"
)

// ProjectionRepository 管理投影数据访问接口
type ProjectionRepository interface {
	Create(projection *models.ManagementProjection) error
	GetByID(id uint) (*models.ManagementProjection, error)
	GetByOrderID(orderID uint) (*models.ManagementProjection, error)
	List(filter ProjectionListFilter) ([]models.ManagementProjection, int64, error)
	ListPage(page, pageSize int) ([]models.ManagementProjection, error)
	ListStaleBefore(cutoff time.Time, states []string, limit int) ([]models.ManagementProjection, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	Delete(id uint) error
	CountAll() (int64, error)
	CountOrphans() (int64, error)
	WithTx(tx *gorm.DB) *GormProjectionRepository
}

// GormProjectionRepository GORM 实现
type GormProjectionRepository struct {
	db *gorm.DB
}

// NewProjectionRepository 创建管理投影仓库
func NewProjectionRepository(db *gorm.DB) *GormProjectionRepository {
	return &GormProjectionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProjectionRepository) WithTx(tx *gorm.DB) *GormProjectionRepository {
	if tx == nil {
		return r
	}
	return &GormProjectionRepository{db: tx}
}

// Create 创建投影
func (r *GormProjectionRepository) Create(projection *models.ManagementProjection) error {
	return r.db.Create(projection).Error
}

// GetByID 根据 ID 获取投影
func (r *GormProjectionRepository) GetByID(id uint) (*models.ManagementProjection, error) {
	var projection models.ManagementProjection
	if err := r.db.First(&projection, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &projection, nil
}

// GetByOrderID 根据订单 ID 获取投影
func (r *GormProjectionRepository) GetByOrderID(orderID uint) (*models.ManagementProjection, error) {
	var projection models.ManagementProjection
	if err := r.db.Where("order_id = ?", orderID).First(&projection).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &projection, nil
}

// List 按条件查询投影列表
func (r *GormProjectionRepository) List(filter ProjectionListFilter) ([]models.ManagementProjection, int64, error) {
	query := r.db.Model(&models.ManagementProjection{})
	if len(filter.States) > 0 {
		query = query.Where("current_state IN ?", filter.States)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projections []models.ManagementProjection
	if err := applyPagination(query.Order("updated_at DESC"), filter.Page, filter.PageSize).Find(&projections).Error; err != nil {
		return nil, 0, err
	}
	return projections, total, nil
}

// ListPage 按主键序分页拉取投影（孤儿清理扫描用）
func (r *GormProjectionRepository) ListPage(page, pageSize int) ([]models.ManagementProjection, error) {
	var projections []models.ManagementProjection
	query := applyPagination(r.db.Order("id ASC"), page, pageSize)
	if err := query.Find(&projections).Error; err != nil {
		return nil, err
	}
	return projections, nil
}

// ListStaleBefore 查找长期停留在给定状态集合的投影（滞留巡检用）
func (r *GormProjectionRepository) ListStaleBefore(cutoff time.Time, states []string, limit int) ([]models.ManagementProjection, error) {
	query := r.db.Where("updated_at < ?", cutoff)
	if len(states) > 0 {
		query = query.Where("current_state IN ?", states)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var projections []models.ManagementProjection
	if err := query.Order("updated_at ASC").Find(&projections).Error; err != nil {
		return nil, err
	}
	return projections, nil
}

// UpdateFields 更新投影字段
func (r *GormProjectionRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.ManagementProjection{}).Where("id = ?", id).Updates(updates).Error
}

// Delete 删除投影（孤儿清理）
func (r *GormProjectionRepository) Delete(id uint) error {
	return r.db.Delete(&models.ManagementProjection{}, id).Error
}

// CountAll 统计投影总数
func (r *GormProjectionRepository) CountAll() (int64, error) {
	var count int64
	if err := r.db.Model(&models.ManagementProjection{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountOrphans 统计订单已不存在（含软删除）的投影数
func (r *GormProjectionRepository) CountOrphans() (int64, error) {
	var count int64
	err := r.db.Model(&models.ManagementProjection{}).
		Joins("LEFT JOIN orders ON orders.id = management_projections.order_id AND orders.deleted_at IS NULL").
		Where("orders.id IS NULL").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
