package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/orderpulse/internal/config"
	"github.com/orderpulse/internal/constants"
	"github.com/orderpulse/internal/logger"
	"github.com/orderpulse/internal/models"
	"github.com/orderpulse/internal/repository"

	"gorm.io/gorm"
)

// SyncService 对账引擎：投影与订单记录之间的一致性守护。
// 两种触发方式：订单变更事务内的同步路径（ApplyOrderMutation），
// 以及后台周期扫描（Run 驱动的三段式 Sweep）。
// 运行期状态（间隔、开关、上次运行时间）由实例自持，经控制接口暴露。
type SyncService struct {
	orderRepo            repository.OrderRepository
	projectionRepo       repository.ProjectionRepository
	transitionRepo       repository.StatusTransitionRepository
	consolidationService *ConsolidationService

	pageSize       int
	txTimeout      time.Duration
	stuckThreshold time.Duration

	mu        sync.Mutex
	running   bool
	enabled   bool
	interval  time.Duration
	lastRunAt *time.Time
}

// NewSyncService 创建对账引擎
func NewSyncService(orderRepo repository.OrderRepository, projectionRepo repository.ProjectionRepository, transitionRepo repository.StatusTransitionRepository, consolidationService *ConsolidationService, cfg *config.SyncConfig) *SyncService {
	enabled := true
	intervalMinutes := constants.SyncDefaultIntervalMinutes
	pageSize := constants.SyncDefaultPageSize
	txTimeoutSeconds := 30
	stuckHours := 24
	if cfg != nil {
		enabled = cfg.Enabled
		if cfg.IntervalMinutes > 0 {
			intervalMinutes = cfg.IntervalMinutes
		}
		if cfg.PageSize > 0 {
			pageSize = cfg.PageSize
		}
		if cfg.TransactionTimeoutSeconds > 0 {
			txTimeoutSeconds = cfg.TransactionTimeoutSeconds
		}
		if cfg.StuckThresholdHours > 0 {
			stuckHours = cfg.StuckThresholdHours
		}
	}
	return &SyncService{
		orderRepo:            orderRepo,
		projectionRepo:       projectionRepo,
		transitionRepo:       transitionRepo,
		consolidationService: consolidationService,
		pageSize:             pageSize,
		txTimeout:            time.Duration(txTimeoutSeconds) * time.Second,
		stuckThreshold:       time.Duration(stuckHours) * time.Hour,
		enabled:              enabled,
		interval:             time.Duration(intervalMinutes) * time.Minute,
	}
}

// SyncReport 一轮对账的结果
type SyncReport struct {
	Fixed  int      `json:"fixed"`
	Errors []string `json:"errors"`
}

// SyncStatus 对账引擎运行状态
type SyncStatus struct {
	IsRunning           bool       `json:"is_running"`
	Enabled             bool       `json:"enabled"`
	IntervalMinutes     int        `json:"interval_minutes"`
	MissingProjections  int64      `json:"missing_projections"`
	OrphanedProjections int64      `json:"orphaned_projections"`
	LastRunAt           *time.Time `json:"last_run_at"`
}

// MutationOutcome 事务内同步的结果，供调用方在提交后触发快照联动
type MutationOutcome struct {
	OrderID      uint
	ProjectionID uint
	State        string
	Changed      bool
	NeedSnapshot bool
}

// Run 启动周期扫描循环，随 ctx 结束退出。
// 间隔调整在下一个计时周期生效。
func (s *SyncService) Run(ctx context.Context) {
	logger.Infow("sync_loop_started", "interval", s.currentInterval().String())
	if s.IsEnabled() {
		s.Sweep()
	}
	for {
		timer := time.NewTimer(s.currentInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Infow("sync_loop_stopped")
			return
		case <-timer.C:
			if s.IsEnabled() {
				s.Sweep()
			}
		}
	}
}

// SetInterval 调整扫描间隔（分钟）
func (s *SyncService) SetInterval(minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("对账间隔必须为正数，收到 %d", minutes)
	}
	s.mu.Lock()
	s.interval = time.Duration(minutes) * time.Minute
	s.mu.Unlock()
	logger.Infow("sync_interval_updated", "interval_minutes", minutes)
	return nil
}

// Enable 启用周期扫描
func (s *SyncService) Enable() {
	s.mu.Lock()
	s.enabled = true
	s.mu.Unlock()
	logger.Infow("sync_enabled")
}

// Disable 停用周期扫描（手动触发不受影响）
func (s *SyncService) Disable() {
	s.mu.Lock()
	s.enabled = false
	s.mu.Unlock()
	logger.Infow("sync_disabled")
}

// IsEnabled 查询周期扫描开关
func (s *SyncService) IsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *SyncService) currentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// TriggerManualSync 手动触发一轮完整对账，无视开关状态
func (s *SyncService) TriggerManualSync() SyncReport {
	return s.Sweep()
}

// Status 返回引擎运行状态与待修复统计
func (s *SyncService) Status() (*SyncStatus, error) {
	missing, err := s.orderRepo.CountWithoutProjection()
	if err != nil {
		return nil, err
	}
	orphaned, err := s.projectionRepo.CountOrphans()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return &SyncStatus{
		IsRunning:           s.running,
		Enabled:             s.enabled,
		IntervalMinutes:     int(s.interval / time.Minute),
		MissingProjections:  missing,
		OrphanedProjections: orphaned,
		LastRunAt:           s.lastRunAt,
	}, nil
}

// Sweep 执行一轮三段式对账：补投影、纠偏移、清孤儿。
// 同一时刻只允许一轮在跑；上一轮未结束时本次跳过并记录。
// 单个订单的失败只计入报告，不中断整轮扫描。
func (s *SyncService) Sweep() SyncReport {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logger.Warnw("sync_sweep_skipped_previous_running")
		return SyncReport{Errors: []string{"上一轮对账仍在进行，本次跳过"}}
	}
	s.running = true
	s.mu.Unlock()

	started := time.Now()
	report := SyncReport{Errors: []string{}}

	defer func() {
		finished := time.Now()
		s.mu.Lock()
		s.running = false
		s.lastRunAt = &finished
		s.mu.Unlock()
		logger.Infow("sync_sweep_finished",
			"fixed", report.Fixed,
			"errors", len(report.Errors),
			"duration_ms", finished.Sub(started).Milliseconds(),
		)
	}()

	logger.Infow("sync_sweep_started")
	s.missingProjectionPass(&report)
	s.driftPass(&report)
	s.orphanPass(&report)
	s.stuckScan()
	return report
}

// missingProjectionPass 为没有投影的订单补建投影
func (s *SyncService) missingProjectionPass(report *SyncReport) {
	for {
		ids, err := s.orderRepo.ListIDsWithoutProjection(s.pageSize)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("缺失投影扫描失败: %v", err))
			return
		}
		if len(ids) == 0 {
			return
		}
		created := 0
		for _, orderID := range ids {
			fixed, err := s.SyncOrder(orderID)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("订单 %d 补建投影失败: %v", orderID, err))
				continue
			}
			if fixed {
				created++
				report.Fixed++
			}
		}
		// 整批都没有进展时停下，留待下一轮，避免在持续失败上空转
		if created == 0 || len(ids) < s.pageSize {
			return
		}
	}
}

// driftPass 逐单比对推导状态与投影状态，满足安全条件时纠偏
func (s *SyncService) driftPass(report *SyncReport) {
	for page := 1; ; page++ {
		orders, err := s.orderRepo.ListPage(page, s.pageSize)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("偏移扫描第 %d 页失败: %v", page, err))
			return
		}
		for i := range orders {
			fixed, err := s.SyncOrder(orders[i].ID)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("订单 %d 纠偏失败: %v", orders[i].ID, err))
				continue
			}
			if fixed {
				report.Fixed++
			}
		}
		if len(orders) < s.pageSize {
			return
		}
	}
}

// orphanPass 清理订单已不存在的投影。流转记录保留作为审计链。
func (s *SyncService) orphanPass(report *SyncReport) {
	for page := 1; ; page++ {
		projections, err := s.projectionRepo.ListPage(page, s.pageSize)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("孤儿扫描第 %d 页失败: %v", page, err))
			return
		}
		removed := 0
		for i := range projections {
			projection := projections[i]
			exists, err := s.orderRepo.ExistsByID(projection.OrderID)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("投影 %d 订单存在性检查失败: %v", projection.ID, err))
				continue
			}
			if exists {
				continue
			}
			if err := s.projectionRepo.Delete(projection.ID); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("孤儿投影 %d 清理失败: %v", projection.ID, err))
				continue
			}
			removed++
			report.Fixed++
			logger.Infow("orphaned_projection_removed",
				"projection_id", projection.ID,
				"order_id", projection.OrderID,
				"last_state", projection.CurrentState,
			)
		}
		if len(projections) < s.pageSize {
			return
		}
		// 删除使后续页前移，重扫当前页
		if removed > 0 {
			page--
		}
	}
}

// stuckScan 巡检长期停留在非终态的投影，仅记录不告警
func (s *SyncService) stuckScan() {
	cutoff := time.Now().Add(-s.stuckThreshold)
	stuck, err := s.projectionRepo.ListStaleBefore(cutoff, nonTerminalStates(), s.pageSize)
	if err != nil {
		logger.Warnw("sync_stuck_scan_failed", "error", err)
		return
	}
	for i := range stuck {
		logger.Infow("sync_stuck_projection",
			"projection_id", stuck[i].ID,
			"order_id", stuck[i].OrderID,
			"current_state", stuck[i].CurrentState,
			"updated_at", stuck[i].UpdatedAt,
		)
	}
}

// SyncOrder 对单个订单执行一次事务内对账，提交后触发快照联动。
// 返回是否发生了修正。
func (s *SyncService) SyncOrder(orderID uint) (bool, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return false, err
	}
	if order == nil {
		return false, ErrOrderNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.txTimeout)
	defer cancel()

	var outcome *MutationOutcome
	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		outcome, txErr = s.ApplyOrderMutation(tx, order, "周期对账")
		return txErr
	})
	if err != nil {
		return false, err
	}

	s.afterMutation(outcome)
	return outcome.Changed, nil
}

// ApplyOrderMutation 事务内同步路径：在调用方的事务里把投影
// 对齐到推导状态并追加流转记录。投影缺失时补建。
// 回退、终态与手工推进过的订单不做纠偏。
// 调用方提交事务后应将返回的 outcome 交给 AfterMutation 处理快照联动。
func (s *SyncService) ApplyOrderMutation(tx *gorm.DB, order *models.Order, provenance string) (*MutationOutcome, error) {
	expected := DeriveManagementState(order)
	projRepo := s.projectionRepo.WithTx(tx)
	transRepo := s.transitionRepo.WithTx(tx)

	projection, err := projRepo.GetByOrderID(order.ID)
	if err != nil {
		return nil, err
	}

	if projection == nil {
		note := fmt.Sprintf("%s：补建投影，推导状态 %s（履约 %s / 支付 %s）", provenance, expected, order.FulfillmentStatus, order.PaymentStatus)
		projection = &models.ManagementProjection{
			OrderID:      order.ID,
			CurrentState: expected,
			SyncNote:     note,
		}
		if err := projRepo.Create(projection); err != nil {
			return nil, err
		}
		// 首条流转记录 from_state 为空
		if err := transRepo.Append(&models.StatusTransition{
			ProjectionID:        projection.ID,
			FromState:           nil,
			ToState:             expected,
			ChangedBy:           nil,
			ChangedByDepartment: constants.DepartmentSystem,
			Notes:               note,
		}); err != nil {
			return nil, err
		}
		logger.Infow("sync_projection_created",
			"order_id", order.ID,
			"projection_id", projection.ID,
			"state", expected,
		)
		return &MutationOutcome{
			OrderID:      order.ID,
			ProjectionID: projection.ID,
			State:        expected,
			Changed:      true,
			NeedSnapshot: entersConsolidationState(expected),
		}, nil
	}

	current := projection.CurrentState
	outcome := &MutationOutcome{
		OrderID:      order.ID,
		ProjectionID: projection.ID,
		State:        current,
	}

	if expected == current {
		return outcome, nil
	}
	if allowed, reason := driftCorrectionAllowed(projection, expected); !allowed {
		logger.Debugw("sync_drift_correction_skipped",
			"order_id", order.ID,
			"current_state", current,
			"expected_state", expected,
			"reason", reason,
		)
		return outcome, nil
	}

	note := fmt.Sprintf("%s：%s → %s（履约 %s / 支付 %s）", provenance, current, expected, order.FulfillmentStatus, order.PaymentStatus)
	if err := projRepo.UpdateFields(projection.ID, map[string]interface{}{
		"current_state": expected,
		"sync_note":     note,
	}); err != nil {
		return nil, err
	}
	if err := transRepo.Append(&models.StatusTransition{
		ProjectionID:        projection.ID,
		FromState:           &current,
		ToState:             expected,
		ChangedBy:           nil,
		ChangedByDepartment: constants.DepartmentSystem,
		Notes:               note,
	}); err != nil {
		return nil, err
	}

	logger.Infow("sync_drift_corrected",
		"order_id", order.ID,
		"projection_id", projection.ID,
		"from_state", current,
		"to_state", expected,
		"note", note,
	)

	outcome.State = expected
	outcome.Changed = true
	outcome.NeedSnapshot = entersConsolidationState(expected)
	return outcome, nil
}

// AfterMutation 事务提交后的快照联动入口（供外部调用方使用）
func (s *SyncService) AfterMutation(outcome *MutationOutcome) {
	s.afterMutation(outcome)
}

func (s *SyncService) afterMutation(outcome *MutationOutcome) {
	if outcome == nil || !outcome.Changed || s.consolidationService == nil {
		return
	}
	if outcome.NeedSnapshot {
		s.consolidationService.EnsureSnapshot(outcome.ProjectionID, outcome.OrderID)
	}
	if err := s.consolidationService.ApplyProjectionUpdate(outcome.OrderID); err != nil {
		logger.Warnw("consolidation_update_after_sync_failed",
			"order_id", outcome.OrderID,
			"error", err,
		)
	}
}

// driftCorrectionAllowed 判断对账能否把投影改到推导状态。
// 终态不动；回退一律拒绝；手工推进过的订单
// （financial_reviewed_at 非空且已越过 finance_pending）不被拉回。
// 手工放行的部分付款订单从 finance_pending 推进到 warehouse_pending
// 属于正向纠偏，不受该守卫影响。
func driftCorrectionAllowed(projection *models.ManagementProjection, expected string) (bool, string) {
	current := projection.CurrentState
	if IsTerminalState(current) {
		return false, "终态不纠偏"
	}
	if IsRegression(current, expected) {
		return false, "推导状态低于当前状态，拒绝回退"
	}
	if projection.FinancialReviewedAt != nil &&
		StateRank(current) > StateRank(constants.ManagementStateFinancePending) &&
		!IsOutOfBandState(current) {
		return false, "订单已被手工推进，不做纠偏"
	}
	return true, ""
}

// entersConsolidationState 进入财务放行后的首批仓库状态即触发快照
func entersConsolidationState(state string) bool {
	return state == constants.ManagementStateWarehousePending ||
		state == constants.ManagementStateWarehouseApproved
}

// nonTerminalStates 全部非终态（滞留巡检范围）
func nonTerminalStates() []string {
	states := make([]string, 0, len(stateRanks))
	for state := range stateRanks {
		if !terminalStates[state] {
			states = append(states, state)
		}
	}
	return states
}
