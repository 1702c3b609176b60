package service

import (
	"testing"
	"time"

	"github.com/orderpulse/internal/constants"
	"github.com/orderpulse/internal/models"
	"github.com/orderpulse/internal/queue"
	"github.com/orderpulse/internal/repository"

	"gorm.io/gorm"
)

func newSyncService(t *testing.T, db *gorm.DB) *SyncService {
	t.Helper()
	orderRepo := repository.NewOrderRepository(db)
	projRepo := repository.NewProjectionRepository(db)
	transRepo := repository.NewStatusTransitionRepository(db)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	consolidation := NewConsolidationService(repository.NewConsolidatedOrderRepository(db), orderRepo, projRepo, queueClient)
	return NewSyncService(orderRepo, projRepo, transRepo, consolidation, nil)
}

func TestSweepCreatesMissingProjection(t *testing.T) {
	db := newTestDB(t, "sync_missing")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusPaid, false)
	svc := newSyncService(t, db)

	report := svc.Sweep()
	if report.Fixed < 1 {
		t.Fatalf("expected at least one fix, got %d (errors: %v)", report.Fixed, report.Errors)
	}

	var projection models.ManagementProjection
	if err := db.Where("order_id = ?", order.ID).First(&projection).Error; err != nil {
		t.Fatalf("projection not created: %v", err)
	}
	if projection.CurrentState != constants.ManagementStateWarehousePending {
		t.Fatalf("expected warehouse_pending, got %s", projection.CurrentState)
	}
	if projection.SyncNote == "" {
		t.Fatalf("automated write must stamp sync_note")
	}

	var first models.StatusTransition
	if err := db.Where("projection_id = ?", projection.ID).Order("id ASC").First(&first).Error; err != nil {
		t.Fatalf("transition row missing: %v", err)
	}
	if first.FromState != nil {
		t.Fatalf("first history entry must have nil from_state, got %v", *first.FromState)
	}
	if first.ChangedByDepartment != constants.DepartmentSystem {
		t.Fatalf("system write must be attributed to system department, got %s", first.ChangedByDepartment)
	}

	// 进入 warehouse_pending 即触发快照
	var snapshot models.ConsolidatedOrder
	if err := db.Where("order_id = ?", order.ID).First(&snapshot).Error; err != nil {
		t.Fatalf("consolidated snapshot not built: %v", err)
	}
}

func TestSweepCorrectsDrift(t *testing.T) {
	db := newTestDB(t, "sync_drift")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusPaid, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStatePending)
	svc := newSyncService(t, db)

	report := svc.Sweep()
	if report.Fixed < 1 {
		t.Fatalf("expected drift fix, got %d (errors: %v)", report.Fixed, report.Errors)
	}

	var got models.ManagementProjection
	if err := db.First(&got, projection.ID).Error; err != nil {
		t.Fatalf("reload projection failed: %v", err)
	}
	if got.CurrentState != constants.ManagementStateWarehousePending {
		t.Fatalf("expected warehouse_pending after correction, got %s", got.CurrentState)
	}
	if got.SyncNote == "" {
		t.Fatalf("correction must stamp sync_note")
	}

	var entry models.StatusTransition
	if err := db.Where("projection_id = ?", projection.ID).Order("id DESC").First(&entry).Error; err != nil {
		t.Fatalf("correction must append history: %v", err)
	}
	if entry.FromState == nil || *entry.FromState != constants.ManagementStatePending {
		t.Fatalf("unexpected from_state: %v", entry.FromState)
	}
	if entry.ChangedBy != nil {
		t.Fatalf("system correction must have nil changed_by")
	}
}

func TestSweepNeverRegresses(t *testing.T) {
	db := newTestDB(t, "sync_no_regress")
	customer := seedCustomer(t, db)
	// 推导状态 finance_pending，但投影已被并发的正向写入推进到更靠后的状态
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusReceiptUploaded, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStateWarehouseProcessing)
	svc := newSyncService(t, db)

	svc.Sweep()

	var got models.ManagementProjection
	if err := db.First(&got, projection.ID).Error; err != nil {
		t.Fatalf("reload projection failed: %v", err)
	}
	if got.CurrentState != constants.ManagementStateWarehouseProcessing {
		t.Fatalf("sweep must never undo forward progress, got %s", got.CurrentState)
	}
}

func TestSweepSkipsTerminalStates(t *testing.T) {
	db := newTestDB(t, "sync_terminal")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusPaid, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStateCompleted)
	svc := newSyncService(t, db)

	svc.Sweep()

	var got models.ManagementProjection
	if err := db.First(&got, projection.ID).Error; err != nil {
		t.Fatalf("reload projection failed: %v", err)
	}
	if got.CurrentState != constants.ManagementStateCompleted {
		t.Fatalf("terminal state must not be corrected, got %s", got.CurrentState)
	}
}

func TestSweepManualApprovalAsymmetry(t *testing.T) {
	db := newTestDB(t, "sync_manual")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusPartial, true)
	reviewedAt := time.Now()
	reviewer := uint(5)
	projection := &models.ManagementProjection{
		OrderID:             order.ID,
		CurrentState:        constants.ManagementStateFinancePending,
		FinancialReviewerID: &reviewer,
		FinancialReviewedAt: &reviewedAt,
	}
	if err := db.Create(projection).Error; err != nil {
		t.Fatalf("create projection failed: %v", err)
	}
	svc := newSyncService(t, db)

	// 手工放行的部分付款订单：下一轮扫描推进到 warehouse_pending
	report := svc.Sweep()
	if report.Fixed < 1 {
		t.Fatalf("manual approval should advance one step, got %d (errors: %v)", report.Fixed, report.Errors)
	}
	var advanced models.ManagementProjection
	if err := db.First(&advanced, projection.ID).Error; err != nil {
		t.Fatalf("reload projection failed: %v", err)
	}
	if advanced.CurrentState != constants.ManagementStateWarehousePending {
		t.Fatalf("expected warehouse_pending, got %s", advanced.CurrentState)
	}

	// 已推进到更靠后的状态时绝不拉回
	if err := db.Model(&models.ManagementProjection{}).Where("id = ?", projection.ID).
		Update("current_state", constants.ManagementStateWarehouseProcessing).Error; err != nil {
		t.Fatalf("advance projection failed: %v", err)
	}
	svc.Sweep()
	var still models.ManagementProjection
	if err := db.First(&still, projection.ID).Error; err != nil {
		t.Fatalf("reload projection failed: %v", err)
	}
	if still.CurrentState != constants.ManagementStateWarehouseProcessing {
		t.Fatalf("manually progressed order was pulled back to %s", still.CurrentState)
	}
}

func TestSweepRemovesOrphans(t *testing.T) {
	db := newTestDB(t, "sync_orphan")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusPaid, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStateWarehousePending)
	svc := newSyncService(t, db)

	if err := db.Unscoped().Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
		t.Fatalf("delete items failed: %v", err)
	}
	if err := db.Unscoped().Delete(&models.Order{}, order.ID).Error; err != nil {
		t.Fatalf("delete order failed: %v", err)
	}

	report := svc.Sweep()
	if report.Fixed < 1 {
		t.Fatalf("orphan removal should count as fix, got %d", report.Fixed)
	}

	var count int64
	if err := db.Model(&models.ManagementProjection{}).Where("id = ?", projection.ID).Count(&count).Error; err != nil {
		t.Fatalf("count projections failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("orphaned projection should be deleted")
	}
}

func TestSweepSingleFlight(t *testing.T) {
	db := newTestDB(t, "sync_single_flight")
	svc := newSyncService(t, db)

	svc.mu.Lock()
	svc.running = true
	svc.mu.Unlock()

	report := svc.Sweep()
	if report.Fixed != 0 || len(report.Errors) != 1 {
		t.Fatalf("overlapping sweep must be skipped, got %+v", report)
	}

	svc.mu.Lock()
	svc.running = false
	svc.mu.Unlock()
}

func TestSyncStatusCounts(t *testing.T) {
	db := newTestDB(t, "sync_status")
	customer := seedCustomer(t, db)
	seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusPaid, false)
	// 指向不存在订单的孤儿投影
	orphan := &models.ManagementProjection{OrderID: 999999, CurrentState: constants.ManagementStatePending}
	if err := db.Create(orphan).Error; err != nil {
		t.Fatalf("create orphan projection failed: %v", err)
	}
	svc := newSyncService(t, db)

	status, err := svc.Status()
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.MissingProjections != 1 {
		t.Fatalf("expected 1 missing projection, got %d", status.MissingProjections)
	}
	if status.OrphanedProjections != 1 {
		t.Fatalf("expected 1 orphaned projection, got %d", status.OrphanedProjections)
	}
	if status.IsRunning {
		t.Fatalf("engine should be idle")
	}
	if status.LastRunAt != nil {
		t.Fatalf("last_run_at should be nil before first sweep")
	}

	svc.Sweep()
	status, err = svc.Status()
	if err != nil {
		t.Fatalf("status after sweep failed: %v", err)
	}
	if status.LastRunAt == nil {
		t.Fatalf("last_run_at should be set after sweep")
	}
	if status.MissingProjections != 0 || status.OrphanedProjections != 0 {
		t.Fatalf("sweep should self-heal counts, got missing=%d orphaned=%d",
			status.MissingProjections, status.OrphanedProjections)
	}
}

func TestSyncControlSurface(t *testing.T) {
	db := newTestDB(t, "sync_control")
	svc := newSyncService(t, db)

	if err := svc.SetInterval(0); err == nil {
		t.Fatalf("non-positive interval must be rejected")
	}
	if err := svc.SetInterval(10); err != nil {
		t.Fatalf("set interval failed: %v", err)
	}
	status, err := svc.Status()
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.IntervalMinutes != 10 {
		t.Fatalf("expected interval 10, got %d", status.IntervalMinutes)
	}

	svc.Disable()
	if svc.IsEnabled() {
		t.Fatalf("disable did not take effect")
	}
	// 手动触发不受开关影响
	report := svc.TriggerManualSync()
	if report.Errors == nil {
		t.Fatalf("manual sync should return an initialized report")
	}
	svc.Enable()
	if !svc.IsEnabled() {
		t.Fatalf("enable did not take effect")
	}
}
