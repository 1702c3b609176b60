package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/orderpulse/internal/constants"
	"github.com/orderpulse/internal/logger"
	"github.com/orderpulse/internal/models"
	"github.com/orderpulse/internal/repository"

	"gorm.io/gorm"
)

// ManagementService 管理投影服务：部门队列、状态流转与审计链
type ManagementService struct {
	projectionRepo       repository.ProjectionRepository
	transitionRepo       repository.StatusTransitionRepository
	orderRepo            repository.OrderRepository
	consolidationService *ConsolidationService
	deliveryCodeService  *DeliveryCodeService
}

// NewManagementService 创建管理投影服务
func NewManagementService(projectionRepo repository.ProjectionRepository, transitionRepo repository.StatusTransitionRepository, orderRepo repository.OrderRepository, consolidationService *ConsolidationService, deliveryCodeService *DeliveryCodeService) *ManagementService {
	return &ManagementService{
		projectionRepo:       projectionRepo,
		transitionRepo:       transitionRepo,
		orderRepo:            orderRepo,
		consolidationService: consolidationService,
		deliveryCodeService:  deliveryCodeService,
	}
}

// Actor 状态流转操作者
type Actor struct {
	AdminID    uint
	Department string
	IsSuper    bool
}

// FinancialDecision 财务动作：开始审核、通过或驳回
type FinancialDecision struct {
	ReviewerID  uint
	TargetState string
	Notes       string
}

// WarehouseDecision 仓库动作：领取、处理完成或驳回
type WarehouseDecision struct {
	AssigneeID  uint
	TargetState string
	Notes       string
}

// LogisticsDecision 物流动作：指派、处理、发运、签收
type LogisticsDecision struct {
	AssigneeID          uint
	TargetState         string
	TrackingReference   string
	EstimatedDeliveryAt *time.Time
	Notes               string
}

// ListOrders 按部门可见窗口列出管理投影。
// stateFilter 非空时必须落在部门可见集合内，否则直接返回空结果。
func (s *ManagementService) ListOrders(department, stateFilter string, page, pageSize int) ([]models.ManagementProjection, int64, error) {
	var states []string
	if department == constants.DepartmentSystem {
		if state := strings.TrimSpace(stateFilter); state != "" {
			states = []string{state}
		}
	} else {
		visible := DepartmentVisibleStates(department)
		if len(visible) == 0 {
			return []models.ManagementProjection{}, 0, nil
		}
		if state := strings.TrimSpace(stateFilter); state != "" {
			if !containsState(visible, state) {
				return []models.ManagementProjection{}, 0, nil
			}
			states = []string{state}
		} else {
			states = visible
		}
	}
	return s.projectionRepo.List(repository.ProjectionListFilter{
		Page:     page,
		PageSize: pageSize,
		States:   states,
	})
}

// GetProjection 获取单个管理投影
func (s *ManagementService) GetProjection(id uint) (*models.ManagementProjection, error) {
	projection, err := s.projectionRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if projection == nil {
		return nil, ErrProjectionNotFound
	}
	return projection, nil
}

// StatusHistory 按时间序返回投影的全部流转记录
func (s *ManagementService) StatusHistory(projectionID uint) ([]models.StatusTransition, error) {
	projection, err := s.projectionRepo.GetByID(projectionID)
	if err != nil {
		return nil, err
	}
	if projection == nil {
		return nil, ErrProjectionNotFound
	}
	return s.transitionRepo.ListByProjectionID(projectionID)
}

// ApplyFinancialDecision 应用财务动作
func (s *ManagementService) ApplyFinancialDecision(projectionID uint, actor Actor, decision FinancialDecision) (*models.ManagementProjection, error) {
	updates := map[string]interface{}{
		"financial_reviewer_id": decision.ReviewerID,
	}
	if notes := strings.TrimSpace(decision.Notes); notes != "" {
		updates["financial_notes"] = notes
	}
	// 审核时间仅在通过时落表
	if decision.TargetState == constants.ManagementStateFinancialApproved {
		updates["financial_reviewed_at"] = time.Now()
	}
	return s.Transition(projectionID, decision.TargetState, actor, decision.Notes, updates)
}

// ApplyWarehouseDecision 应用仓库动作
func (s *ManagementService) ApplyWarehouseDecision(projectionID uint, actor Actor, decision WarehouseDecision) (*models.ManagementProjection, error) {
	updates := map[string]interface{}{
		"warehouse_assignee_id":  decision.AssigneeID,
		"warehouse_processed_at": time.Now(),
	}
	if notes := strings.TrimSpace(decision.Notes); notes != "" {
		updates["warehouse_notes"] = notes
	}
	return s.Transition(projectionID, decision.TargetState, actor, decision.Notes, updates)
}

// ApplyLogisticsDecision 应用物流动作
func (s *ManagementService) ApplyLogisticsDecision(projectionID uint, actor Actor, decision LogisticsDecision) (*models.ManagementProjection, error) {
	updates := map[string]interface{}{
		"logistics_assignee_id":  decision.AssigneeID,
		"logistics_processed_at": time.Now(),
	}
	if notes := strings.TrimSpace(decision.Notes); notes != "" {
		updates["logistics_notes"] = notes
	}
	if tracking := strings.TrimSpace(decision.TrackingReference); tracking != "" {
		updates["tracking_reference"] = tracking
	}
	if decision.EstimatedDeliveryAt != nil {
		updates["estimated_delivery_at"] = decision.EstimatedDeliveryAt
	}
	return s.Transition(projectionID, decision.TargetState, actor, decision.Notes, updates)
}

// MarkManualFinancialApproval 手工放行部分付款订单：
// 在订单上落放行标记并记录审核人，状态本身留给下一轮对账推进。
func (s *ManagementService) MarkManualFinancialApproval(projectionID uint, actor Actor, notes string) error {
	projection, err := s.projectionRepo.GetByID(projectionID)
	if err != nil {
		return err
	}
	if projection == nil {
		return ErrProjectionNotFound
	}
	if !actor.IsSuper && !DepartmentMayAct(actor.Department, projection.CurrentState) {
		return fmt.Errorf("%w：%s 不可操作 %s", ErrUnauthorizedDepartment, actor.Department, projection.CurrentState)
	}

	projectionUpdates := map[string]interface{}{
		"financial_reviewer_id": actor.AdminID,
		"financial_reviewed_at": time.Now(),
	}
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		projectionUpdates["financial_notes"] = trimmed
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).UpdateFields(projection.OrderID, map[string]interface{}{
			"manual_financial_approval": true,
		}); err != nil {
			return err
		}
		return s.projectionRepo.WithTx(tx).UpdateFields(projectionID, projectionUpdates)
	})
	if err != nil {
		return err
	}

	logger.Infow("manual_financial_approval_marked",
		"projection_id", projectionID,
		"order_id", projection.OrderID,
		"admin_id", actor.AdminID,
	)
	return nil
}

// Transition 执行一次状态流转：校验回退与部门窗口，
// 在同一事务内更新投影并追加流转记录。
// 目标与当前状态相同视为幂等空操作，不产生流转记录。
func (s *ManagementService) Transition(projectionID uint, targetState string, actor Actor, notes string, extraUpdates map[string]interface{}) (*models.ManagementProjection, error) {
	if !IsKnownState(targetState) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownState, targetState)
	}

	projection, err := s.projectionRepo.GetByID(projectionID)
	if err != nil {
		return nil, err
	}
	if projection == nil {
		return nil, ErrProjectionNotFound
	}

	current := projection.CurrentState
	if targetState == current {
		return projection, nil
	}
	if IsRegression(current, targetState) {
		logger.Warnw("management_transition_regression_rejected",
			"projection_id", projectionID,
			"current_state", current,
			"target_state", targetState,
			"department", actor.Department,
			"admin_id", actor.AdminID,
		)
		return nil, fmt.Errorf("%w：当前 %s，目标 %s", ErrRegressionRejected, current, targetState)
	}
	if !actor.IsSuper && !DepartmentMayAct(actor.Department, current) {
		return nil, fmt.Errorf("%w：%s 不可操作 %s", ErrUnauthorizedDepartment, actor.Department, current)
	}

	updates := map[string]interface{}{
		"current_state": targetState,
	}
	for key, value := range extraUpdates {
		updates[key] = value
	}
	if targetState == constants.ManagementStateLogisticsDelivered ||
		targetState == constants.ManagementStateDelivered {
		updates["actual_delivery_at"] = time.Now()
	}

	changedBy := actor.AdminID
	entry := &models.StatusTransition{
		ProjectionID:        projectionID,
		FromState:           &current,
		ToState:             targetState,
		ChangedBy:           &changedBy,
		ChangedByDepartment: actor.Department,
		Notes:               strings.TrimSpace(notes),
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.projectionRepo.WithTx(tx).UpdateFields(projectionID, updates); err != nil {
			return err
		}
		return s.transitionRepo.WithTx(tx).Append(entry)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("management_transition_applied",
		"projection_id", projectionID,
		"from_state", current,
		"to_state", targetState,
		"department", actor.Department,
		"admin_id", actor.AdminID,
	)

	s.afterTransition(projection.OrderID, projectionID, targetState)

	return s.projectionRepo.GetByID(projectionID)
}

// afterTransition 流转提交后的联动：快照构建、快照回写、发运取码。
// 联动失败只记录日志，不回滚已提交的流转。
func (s *ManagementService) afterTransition(orderID, projectionID uint, targetState string) {
	switch targetState {
	case constants.ManagementStateWarehousePending, constants.ManagementStateWarehouseApproved:
		if s.consolidationService != nil {
			s.consolidationService.EnsureSnapshot(projectionID, orderID)
		}
	case constants.ManagementStateLogisticsDispatched:
		if s.deliveryCodeService != nil {
			if _, err := s.deliveryCodeService.Issue(orderID); err != nil {
				logger.Errorw("delivery_code_issue_on_dispatch_failed",
					"order_id", orderID,
					"error", err,
				)
			}
		}
	}

	if s.consolidationService != nil {
		if err := s.consolidationService.ApplyProjectionUpdate(orderID); err != nil {
			logger.Warnw("consolidation_update_after_transition_failed",
				"order_id", orderID,
				"error", err,
			)
		}
	}
}

func containsState(states []string, state string) bool {
	for _, candidate := range states {
		if candidate == state {
			return true
		}
	}
	return false
}
