package repository

import (
	"github.com/orderpulse/internal/models"

	"gorm.io/gorm"
)

// StatusTransitionRepository 状态流转记录数据访问接口
// 记录仅追加，不提供更新与删除。
type StatusTransitionRepository interface {
	Append(entry *models.StatusTransition) error
	ListByProjectionID(projectionID uint) ([]models.StatusTransition, error)
	CountByProjectionID(projectionID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormStatusTransitionRepository
}

// GormStatusTransitionRepository GORM 实现
type GormStatusTransitionRepository struct {
	db *gorm.DB
}

// NewStatusTransitionRepository 创建状态流转记录仓库
func NewStatusTransitionRepository(db *gorm.DB) *GormStatusTransitionRepository {
	return &GormStatusTransitionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormStatusTransitionRepository) WithTx(tx *gorm.DB) *GormStatusTransitionRepository {
	if tx == nil {
		return r
	}
	return &GormStatusTransitionRepository{db: tx}
}

// Append 追加一条流转记录
func (r *GormStatusTransitionRepository) Append(entry *models.StatusTransition) error {
	return r.db.Create(entry).Error
}

// ListByProjectionID 按创建顺序列出某投影的全部流转记录
func (r *GormStatusTransitionRepository) ListByProjectionID(projectionID uint) ([]models.StatusTransition, error) {
	var entries []models.StatusTransition
	if err := r.db.Where("projection_id = ?", projectionID).Order("created_at ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByProjectionID 统计某投影的流转记录条数
func (r *GormStatusTransitionRepository) CountByProjectionID(projectionID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.StatusTransition{}).Where("projection_id = ?", projectionID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
