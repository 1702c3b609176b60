package service

import (
	"fmt"

	"github.com/orderpulse/internal/constants"
	"github.com/orderpulse/internal/logger"
	"github.com/orderpulse/internal/models"
	"github.com/orderpulse/internal/queue"
	"github.com/orderpulse/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ConsolidationService 合并快照服务。
// 快照在订单首次进入财务放行后的状态时建立，一单一行，
// 建立后仅接受受控回写（状态、物流备注、物流单号）。
type ConsolidationService struct {
	consolidatedRepo repository.ConsolidatedOrderRepository
	orderRepo        repository.OrderRepository
	projectionRepo   repository.ProjectionRepository
	queueClient      *queue.Client
}

// NewConsolidationService 创建合并快照服务
func NewConsolidationService(consolidatedRepo repository.ConsolidatedOrderRepository, orderRepo repository.OrderRepository, projectionRepo repository.ProjectionRepository, queueClient *queue.Client) *ConsolidationService {
	return &ConsolidationService{
		consolidatedRepo: consolidatedRepo,
		orderRepo:        orderRepo,
		projectionRepo:   projectionRepo,
		queueClient:      queueClient,
	}
}

// Build 建立合并快照。幂等：已存在时原样返回现有快照。
// 客户或订单项缺失时整体中止，不落半行（ErrMissingDependency）。
func (s *ConsolidationService) Build(projectionID, orderID uint) (*models.ConsolidatedOrder, error) {
	existing, err := s.consolidatedRepo.GetByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	var snapshot *models.ConsolidatedOrder
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetWithCustomerAndItems(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w：订单 %d 不存在", ErrMissingDependency, orderID)
		}
		if order.Customer == nil {
			return fmt.Errorf("%w：订单 %d 缺少客户", ErrMissingDependency, orderID)
		}
		if len(order.Items) == 0 {
			return fmt.Errorf("%w：订单 %d 缺少订单项", ErrMissingDependency, orderID)
		}

		projection, err := s.projectionRepo.WithTx(tx).GetByID(projectionID)
		if err != nil {
			return err
		}
		if projection == nil {
			return fmt.Errorf("%w：投影 %d 不存在", ErrMissingDependency, projectionID)
		}

		// 事务内二次确认，避免并发双建
		duplicate, err := s.consolidatedRepo.WithTx(tx).GetByOrderID(orderID)
		if err != nil {
			return err
		}
		if duplicate != nil {
			snapshot = duplicate
			return nil
		}

		snapshot = s.assemble(order, projection)
		return s.consolidatedRepo.WithTx(tx).Create(snapshot)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("consolidated_order_created",
		"order_id", orderID,
		"order_no", snapshot.OrderNo,
		"projection_id", projectionID,
		"items_total", snapshot.ItemsTotal.String(),
		"total_weight_kg", snapshot.TotalWeightKG.String(),
	)
	return snapshot, nil
}

// assemble 在快照行上冗余复制订单全景
func (s *ConsolidationService) assemble(order *models.Order, projection *models.ManagementProjection) *models.ConsolidatedOrder {
	itemsTotal := decimal.Zero
	totalWeightKG := decimal.Zero
	items := make(models.JSONArray, 0, len(order.Items))
	for _, item := range order.Items {
		lineTotal := item.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity)))
		itemsTotal = itemsTotal.Add(lineTotal)
		totalWeightKG = totalWeightKG.Add(weightToKilograms(item.Weight.Decimal, item.WeightUnit).Mul(decimal.NewFromInt(int64(item.Quantity))))
		items = append(items, map[string]interface{}{
			"product_name": item.ProductName,
			"sku":          item.SKU,
			"unit_price":   item.UnitPrice.String(),
			"quantity":     item.Quantity,
			"line_total":   models.NewMoneyFromDecimal(lineTotal).String(),
			"weight":       item.Weight.String(),
			"weight_unit":  item.WeightUnit,
		})
	}

	deliveryAddress := order.DeliveryAddress
	gpsLatitude := order.GPSLatitude
	gpsLongitude := order.GPSLongitude
	if deliveryAddress == "" {
		deliveryAddress = order.Customer.Address
	}
	if gpsLatitude == "" && gpsLongitude == "" {
		gpsLatitude = order.Customer.GPSLatitude
		gpsLongitude = order.Customer.GPSLongitude
	}

	return &models.ConsolidatedOrder{
		OrderID:             order.ID,
		ProjectionID:        projection.ID,
		OrderNo:             order.OrderNo,
		CustomerName:        order.Customer.Name,
		CustomerPhone:       order.Customer.Phone,
		CustomerEmail:       order.Customer.Email,
		DeliveryAddress:     deliveryAddress,
		GPSLatitude:         gpsLatitude,
		GPSLongitude:        gpsLongitude,
		HasGPSLocation:      gpsLatitude != "" && gpsLongitude != "",
		ItemsJSON:           items,
		ItemsTotal:          models.NewMoneyFromDecimal(itemsTotal),
		TotalAmount:         order.TotalAmount,
		Currency:            order.Currency,
		TotalWeightKG:       models.NewMoneyFromDecimal(totalWeightKG),
		PaymentSourceLabel:  order.PaymentSource,
		CurrentState:        projection.CurrentState,
		FinancialNotes:      projection.FinancialNotes,
		FinancialReviewedAt: projection.FinancialReviewedAt,
		WarehouseNotes:      projection.WarehouseNotes,
		LogisticsNotes:      projection.LogisticsNotes,
		TrackingReference:   projection.TrackingReference,
	}
}

// EnsureSnapshot 建立快照；失败时转入队列补建，不影响调用方已提交的事务
func (s *ConsolidationService) EnsureSnapshot(projectionID, orderID uint) {
	if _, err := s.Build(projectionID, orderID); err != nil {
		logger.Errorw("consolidation_build_failed_enqueue_retry",
			"order_id", orderID,
			"projection_id", projectionID,
			"error", err,
		)
		if enqueueErr := s.queueClient.EnqueueConsolidationRebuild(queue.ConsolidationRebuildPayload{
			OrderID:      orderID,
			ProjectionID: projectionID,
		}); enqueueErr != nil {
			logger.Errorw("consolidation_rebuild_enqueue_failed",
				"order_id", orderID,
				"error", enqueueErr,
			)
		}
	}
}

// Get 按订单编号获取快照
func (s *ConsolidationService) Get(orderNo string) (*models.ConsolidatedOrder, error) {
	snapshot, err := s.consolidatedRepo.GetByOrderNo(orderNo)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, ErrSnapshotNotFound
	}
	return snapshot, nil
}

// ApplyProjectionUpdate 受控回写：把投影当前的状态、物流备注与单号
// 同步到快照行。快照不存在时为空操作。
func (s *ConsolidationService) ApplyProjectionUpdate(orderID uint) error {
	snapshot, err := s.consolidatedRepo.GetByOrderID(orderID)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}
	projection, err := s.projectionRepo.GetByOrderID(orderID)
	if err != nil {
		return err
	}
	if projection == nil {
		return nil
	}

	updates := map[string]interface{}{
		"current_state": projection.CurrentState,
	}
	if projection.LogisticsNotes != "" {
		updates["logistics_notes"] = projection.LogisticsNotes
	}
	if projection.TrackingReference != "" {
		updates["tracking_reference"] = projection.TrackingReference
	}
	return s.consolidatedRepo.UpdateFields(snapshot.ID, updates)
}

// weightToKilograms 重量单位统一换算为千克
func weightToKilograms(weight decimal.Decimal, unit string) decimal.Decimal {
	switch unit {
	case constants.WeightUnitGram:
		return weight.Div(decimal.NewFromInt(1000))
	case constants.WeightUnitTon:
		return weight.Mul(decimal.NewFromInt(1000))
	default:
		return weight
	}
}
