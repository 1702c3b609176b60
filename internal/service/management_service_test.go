package service

import (
	"errors"
	"testing"

	"github.com/orderpulse/internal/constants"
	"github.com/orderpulse/internal/models"
	"github.com/orderpulse/internal/queue"
	"github.com/orderpulse/internal/repository"

	"gorm.io/gorm"
)

func newManagementService(t *testing.T, db *gorm.DB) *ManagementService {
	t.Helper()
	orderRepo := repository.NewOrderRepository(db)
	projRepo := repository.NewProjectionRepository(db)
	transRepo := repository.NewStatusTransitionRepository(db)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	consolidation := NewConsolidationService(repository.NewConsolidatedOrderRepository(db), orderRepo, projRepo, queueClient)
	delivery := NewDeliveryCodeService(repository.NewDeliveryCodeRepository(db), orderRepo, queueClient, constants.DeliveryCodeChannelSequential, 48)
	return NewManagementService(projRepo, transRepo, orderRepo, consolidation, delivery)
}

func TestTransitionRegressionRejected(t *testing.T) {
	db := newTestDB(t, "mgmt_regression")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusPaid, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStateWarehousePending)
	svc := newManagementService(t, db)

	actor := Actor{AdminID: 1, Department: constants.DepartmentWarehouse}
	_, err := svc.Transition(projection.ID, constants.ManagementStateFinancePending, actor, "", nil)
	if !errors.Is(err, ErrRegressionRejected) {
		t.Fatalf("expected ErrRegressionRejected, got %v", err)
	}

	var got models.ManagementProjection
	if err := db.First(&got, projection.ID).Error; err != nil {
		t.Fatalf("reload projection failed: %v", err)
	}
	if got.CurrentState != constants.ManagementStateWarehousePending {
		t.Fatalf("projection state changed after rejected transition: %s", got.CurrentState)
	}
	var transitions int64
	if err := db.Model(&models.StatusTransition{}).Where("projection_id = ?", projection.ID).Count(&transitions).Error; err != nil {
		t.Fatalf("count transitions failed: %v", err)
	}
	if transitions != 0 {
		t.Fatalf("rejected transition must not append history, got %d rows", transitions)
	}
}

func TestTransitionTerminalStateIsAbsorbing(t *testing.T) {
	db := newTestDB(t, "mgmt_terminal_absorbing")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusCancelled, constants.PaymentStatusRejected, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStateCancelled)
	svc := newManagementService(t, db)

	// 超级管理员也不能把已取消的订单拉回主线
	actor := Actor{AdminID: 1, Department: constants.DepartmentSystem, IsSuper: true}
	_, err := svc.Transition(projection.ID, constants.ManagementStateWarehousePending, actor, "", nil)
	if !errors.Is(err, ErrRegressionRejected) {
		t.Fatalf("expected ErrRegressionRejected, got %v", err)
	}

	var got models.ManagementProjection
	if err := db.First(&got, projection.ID).Error; err != nil {
		t.Fatalf("reload projection failed: %v", err)
	}
	if got.CurrentState != constants.ManagementStateCancelled {
		t.Fatalf("cancelled projection escaped to %s", got.CurrentState)
	}
}

func TestTransitionUnauthorizedDepartment(t *testing.T) {
	db := newTestDB(t, "mgmt_unauthorized")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusReceiptUploaded, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStateFinancePending)
	svc := newManagementService(t, db)

	actor := Actor{AdminID: 2, Department: constants.DepartmentWarehouse}
	_, err := svc.Transition(projection.ID, constants.ManagementStateFinancialReviewing, actor, "", nil)
	if !errors.Is(err, ErrUnauthorizedDepartment) {
		t.Fatalf("expected ErrUnauthorizedDepartment, got %v", err)
	}
}

func TestApplyFinancialDecisionApproval(t *testing.T) {
	db := newTestDB(t, "mgmt_financial_approve")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusReceiptUploaded, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStateFinancialReviewing)
	svc := newManagementService(t, db)

	actor := Actor{AdminID: 7, Department: constants.DepartmentFinancial}
	updated, err := svc.ApplyFinancialDecision(projection.ID, actor, FinancialDecision{
		ReviewerID:  7,
		TargetState: constants.ManagementStateFinancialApproved,
		Notes:       "凭证核对无误",
	})
	if err != nil {
		t.Fatalf("financial approval failed: %v", err)
	}
	if updated.CurrentState != constants.ManagementStateFinancialApproved {
		t.Fatalf("expected financial_approved, got %s", updated.CurrentState)
	}
	if updated.FinancialReviewedAt == nil {
		t.Fatalf("approval must set financial_reviewed_at")
	}
	if updated.FinancialReviewerID == nil || *updated.FinancialReviewerID != 7 {
		t.Fatalf("unexpected reviewer: %v", updated.FinancialReviewerID)
	}
	if updated.FinancialNotes != "凭证核对无误" {
		t.Fatalf("unexpected notes: %s", updated.FinancialNotes)
	}
}

func TestApplyFinancialDecisionRejectionSkipsReviewedAt(t *testing.T) {
	db := newTestDB(t, "mgmt_financial_reject")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusReceiptUploaded, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStateFinancialReviewing)
	svc := newManagementService(t, db)

	actor := Actor{AdminID: 7, Department: constants.DepartmentFinancial}
	updated, err := svc.ApplyFinancialDecision(projection.ID, actor, FinancialDecision{
		ReviewerID:  7,
		TargetState: constants.ManagementStateFinancialRejected,
		Notes:       "凭证金额不符",
	})
	if err != nil {
		t.Fatalf("financial rejection failed: %v", err)
	}
	if updated.CurrentState != constants.ManagementStateFinancialRejected {
		t.Fatalf("expected financial_rejected, got %s", updated.CurrentState)
	}
	// 审核时间只在通过时写入
	if updated.FinancialReviewedAt != nil {
		t.Fatalf("rejection must not set financial_reviewed_at")
	}
}

func TestTransitionSameStateIsNoOp(t *testing.T) {
	db := newTestDB(t, "mgmt_noop")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusPaid, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStateWarehousePending)
	svc := newManagementService(t, db)

	actor := Actor{AdminID: 3, Department: constants.DepartmentWarehouse}
	if _, err := svc.Transition(projection.ID, constants.ManagementStateWarehousePending, actor, "", nil); err != nil {
		t.Fatalf("same-state transition should be a no-op, got %v", err)
	}
	var transitions int64
	if err := db.Model(&models.StatusTransition{}).Where("projection_id = ?", projection.ID).Count(&transitions).Error; err != nil {
		t.Fatalf("count transitions failed: %v", err)
	}
	if transitions != 0 {
		t.Fatalf("no-op transition must not append history, got %d rows", transitions)
	}
}

func TestDispatchTransitionIssuesDeliveryCode(t *testing.T) {
	db := newTestDB(t, "mgmt_dispatch")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusConfirmed, constants.PaymentStatusPaid, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStateLogisticsProcessing)
	svc := newManagementService(t, db)

	actor := Actor{AdminID: 9, Department: constants.DepartmentLogistics}
	updated, err := svc.ApplyLogisticsDecision(projection.ID, actor, LogisticsDecision{
		AssigneeID:        9,
		TargetState:       constants.ManagementStateLogisticsDispatched,
		TrackingReference: "SF1234567890",
	})
	if err != nil {
		t.Fatalf("dispatch transition failed: %v", err)
	}
	if updated.CurrentState != constants.ManagementStateLogisticsDispatched {
		t.Fatalf("expected logistics_dispatched, got %s", updated.CurrentState)
	}
	if updated.TrackingReference != "SF1234567890" {
		t.Fatalf("tracking reference not stored: %s", updated.TrackingReference)
	}

	var code models.DeliveryCode
	if err := db.Where("order_id = ?", order.ID).First(&code).Error; err != nil {
		t.Fatalf("dispatch must issue a delivery code: %v", err)
	}
	if code.Code != "1111" {
		t.Fatalf("first sequential code should be 1111, got %s", code.Code)
	}
}

func TestListOrdersRespectsVisibility(t *testing.T) {
	db := newTestDB(t, "mgmt_visibility")
	customer := seedCustomer(t, db)
	orderA := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusReceiptUploaded, false)
	orderB := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusPaid, false)
	seedProjection(t, db, orderA.ID, constants.ManagementStateFinancePending)
	seedProjection(t, db, orderB.ID, constants.ManagementStateWarehousePending)
	svc := newManagementService(t, db)

	financial, total, err := svc.ListOrders(constants.DepartmentFinancial, "", 1, 20)
	if err != nil {
		t.Fatalf("list financial failed: %v", err)
	}
	if total != 1 || len(financial) != 1 || financial[0].OrderID != orderA.ID {
		t.Fatalf("financial queue should only see finance_pending order, got total=%d", total)
	}

	// 过滤出窗口之外的状态时返回空
	outOfWindow, total, err := svc.ListOrders(constants.DepartmentFinancial, constants.ManagementStateWarehousePending, 1, 20)
	if err != nil {
		t.Fatalf("list with out-of-window filter failed: %v", err)
	}
	if total != 0 || len(outOfWindow) != 0 {
		t.Fatalf("out-of-window filter should return empty, got %d", len(outOfWindow))
	}
}

func TestStatusHistoryKeepsOrder(t *testing.T) {
	db := newTestDB(t, "mgmt_history")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusPaid, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStateWarehousePending)
	svc := newManagementService(t, db)

	warehouse := Actor{AdminID: 4, Department: constants.DepartmentWarehouse}
	if _, err := svc.Transition(projection.ID, constants.ManagementStateWarehouseProcessing, warehouse, "开始拣货", nil); err != nil {
		t.Fatalf("first transition failed: %v", err)
	}
	if _, err := svc.Transition(projection.ID, constants.ManagementStateWarehouseApproved, warehouse, "拣货完成", nil); err != nil {
		t.Fatalf("second transition failed: %v", err)
	}

	history, err := svc.StatusHistory(projection.ID)
	if err != nil {
		t.Fatalf("status history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(history))
	}
	if history[0].ToState != constants.ManagementStateWarehouseProcessing ||
		history[1].ToState != constants.ManagementStateWarehouseApproved {
		t.Fatalf("history out of order: %s then %s", history[0].ToState, history[1].ToState)
	}
	if history[0].FromState == nil || *history[0].FromState != constants.ManagementStateWarehousePending {
		t.Fatalf("unexpected from_state on first manual transition: %v", history[0].FromState)
	}
}

func TestMarkManualFinancialApproval(t *testing.T) {
	db := newTestDB(t, "mgmt_manual_approval")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusPartial, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStateFinancePending)
	svc := newManagementService(t, db)

	actor := Actor{AdminID: 5, Department: constants.DepartmentFinancial}
	if err := svc.MarkManualFinancialApproval(projection.ID, actor, "部分付款已线下确认"); err != nil {
		t.Fatalf("manual approval failed: %v", err)
	}

	var reloadedOrder models.Order
	if err := db.First(&reloadedOrder, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if !reloadedOrder.ManualFinancialApproval {
		t.Fatalf("order manual_financial_approval flag not set")
	}
	var reloadedProjection models.ManagementProjection
	if err := db.First(&reloadedProjection, projection.ID).Error; err != nil {
		t.Fatalf("reload projection failed: %v", err)
	}
	if reloadedProjection.FinancialReviewedAt == nil {
		t.Fatalf("manual approval must record reviewed_at")
	}
	// 状态推进留给对账
	if reloadedProjection.CurrentState != constants.ManagementStateFinancePending {
		t.Fatalf("manual approval should not move state directly, got %s", reloadedProjection.CurrentState)
	}
}
