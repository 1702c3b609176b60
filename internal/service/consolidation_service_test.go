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

func newConsolidationService(t *testing.T, db *gorm.DB) *ConsolidationService {
	t.Helper()
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	return NewConsolidationService(
		repository.NewConsolidatedOrderRepository(db),
		repository.NewOrderRepository(db),
		repository.NewProjectionRepository(db),
		queueClient,
	)
}

func TestConsolidationBuild(t *testing.T) {
	db := newTestDB(t, "consolidation_build")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusPaid, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStateWarehousePending)
	svc := newConsolidationService(t, db)

	snapshot, err := svc.Build(projection.ID, order.ID)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if snapshot.OrderNo != order.OrderNo {
		t.Fatalf("order_no mismatch: %s", snapshot.OrderNo)
	}
	if snapshot.CustomerName != "张伟" || snapshot.CustomerPhone != "13800138000" {
		t.Fatalf("customer block not denormalized: %s / %s", snapshot.CustomerName, snapshot.CustomerPhone)
	}
	// 100×2 + 100×1
	if snapshot.ItemsTotal.String() != "300.00" {
		t.Fatalf("expected items_total 300.00, got %s", snapshot.ItemsTotal.String())
	}
	// 500g×2 = 1kg，3kg×1 = 3kg
	if snapshot.TotalWeightKG.String() != "4.00" {
		t.Fatalf("expected total_weight_kg 4.00, got %s", snapshot.TotalWeightKG.String())
	}
	if !snapshot.HasGPSLocation {
		t.Fatalf("customer has GPS coordinates, has_gps_location should be true")
	}
	if len(snapshot.ItemsJSON) != 2 {
		t.Fatalf("expected 2 item snapshots, got %d", len(snapshot.ItemsJSON))
	}
}

func TestConsolidationBuildIdempotent(t *testing.T) {
	db := newTestDB(t, "consolidation_idempotent")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusPaid, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStateWarehousePending)
	svc := newConsolidationService(t, db)

	first, err := svc.Build(projection.ID, order.ID)
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	second, err := svc.Build(projection.ID, order.ID)
	if err != nil {
		t.Fatalf("second build failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("second build must return the existing snapshot, got %d vs %d", first.ID, second.ID)
	}

	var count int64
	if err := db.Model(&models.ConsolidatedOrder{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count snapshots failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one snapshot row, got %d", count)
	}
}

func TestConsolidationBuildAbortsOnMissingItems(t *testing.T) {
	db := newTestDB(t, "consolidation_missing")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusPaid, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStateWarehousePending)
	if err := db.Unscoped().Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
		t.Fatalf("delete items failed: %v", err)
	}
	svc := newConsolidationService(t, db)

	_, err := svc.Build(projection.ID, order.ID)
	if !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("expected ErrMissingDependency, got %v", err)
	}

	// 全有或全无：不落半行
	var count int64
	if err := db.Model(&models.ConsolidatedOrder{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count snapshots failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("aborted build must not leave a partial snapshot")
	}
}

func TestConsolidationApplyProjectionUpdate(t *testing.T) {
	db := newTestDB(t, "consolidation_update")
	customer := seedCustomer(t, db)
	order := seedOrder(t, db, customer.ID, constants.FulfillmentStatusPending, constants.PaymentStatusPaid, false)
	projection := seedProjection(t, db, order.ID, constants.ManagementStateWarehousePending)
	svc := newConsolidationService(t, db)

	if _, err := svc.Build(projection.ID, order.ID); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if err := db.Model(&models.ManagementProjection{}).Where("id = ?", projection.ID).Updates(map[string]interface{}{
		"current_state":      constants.ManagementStateLogisticsDispatched,
		"logistics_notes":    "已交付顺丰",
		"tracking_reference": "SF1234567890",
	}).Error; err != nil {
		t.Fatalf("update projection failed: %v", err)
	}

	if err := svc.ApplyProjectionUpdate(order.ID); err != nil {
		t.Fatalf("apply projection update failed: %v", err)
	}

	snapshot, err := svc.Get(order.OrderNo)
	if err != nil {
		t.Fatalf("get snapshot failed: %v", err)
	}
	if snapshot.CurrentState != constants.ManagementStateLogisticsDispatched {
		t.Fatalf("state not mirrored: %s", snapshot.CurrentState)
	}
	if snapshot.LogisticsNotes != "已交付顺丰" || snapshot.TrackingReference != "SF1234567890" {
		t.Fatalf("logistics fields not mirrored: %s / %s", snapshot.LogisticsNotes, snapshot.TrackingReference)
	}
	// 建立时刻的冗余字段不被回写触达
	if snapshot.ItemsTotal.String() != "300.00" {
		t.Fatalf("immutable snapshot field changed: %s", snapshot.ItemsTotal.String())
	}
}

func TestConsolidationGetNotFound(t *testing.T) {
	db := newTestDB(t, "consolidation_notfound")
	svc := newConsolidationService(t, db)
	if _, err := svc.Get("OP-NO-SUCH"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}
