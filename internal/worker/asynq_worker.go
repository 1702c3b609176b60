package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/orderpulse/internal/logger"
	"github.com/orderpulse/internal/provider"
	"github.com/orderpulse/internal/queue"
	"github.com/orderpulse/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskDeliveryCodeSMS, c.handleDeliveryCodeSMS)
	mux.HandleFunc(queue.TaskConsolidationRebuild, c.handleConsolidationRebuild)
}

func (c *Consumer) handleDeliveryCodeSMS(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_delivery_code_sms_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.DeliveryCodeSMSPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_delivery_code_sms_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 || payload.Code == "" {
		logger.Debugw("worker_delivery_code_sms_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	order, err := c.OrderRepo.GetWithCustomerAndItems(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_delivery_code_sms_fetch_order_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if order == nil {
		logger.Debugw("worker_delivery_code_sms_skip_order_not_found", "order_id", payload.OrderID)
		return nil
	}
	if order.Customer == nil {
		logger.Debugw("worker_delivery_code_sms_skip_customer_not_found", "order_id", order.ID, "order_no", order.OrderNo)
		return nil
	}
	phone := strings.TrimSpace(order.Customer.Phone)
	if phone == "" {
		logger.Debugw("worker_delivery_code_sms_skip_empty_phone", "order_id", order.ID, "order_no", order.OrderNo)
		return nil
	}
	if c.Notifier == nil {
		logger.Warnw("worker_delivery_code_sms_skip_notifier_nil", "order_id", order.ID, "order_no", order.OrderNo)
		return nil
	}
	message := service.DeliveryCodeMessage(order.OrderNo, payload.Code, c.Config.Delivery.CodeExpireHours)
	if err := c.Notifier.Send(phone, message); err != nil {
		logger.Warnw("worker_delivery_code_sms_send_failed", "order_id", order.ID, "order_no", order.OrderNo, "error", err)
		return err
	}
	logger.Infow("worker_delivery_code_sms_sent", "order_id", order.ID, "order_no", order.OrderNo)
	return nil
}

func (c *Consumer) handleConsolidationRebuild(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_consolidation_rebuild_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ConsolidationRebuildPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_consolidation_rebuild_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 || payload.ProjectionID == 0 {
		logger.Debugw("worker_consolidation_rebuild_skip_invalid_payload",
			"order_id", payload.OrderID,
			"projection_id", payload.ProjectionID,
		)
		return nil
	}
	if c.ConsolidationService == nil {
		logger.Warnw("worker_consolidation_rebuild_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	snapshot, err := c.ConsolidationService.Build(payload.ProjectionID, payload.OrderID)
	if err != nil {
		// 依赖缺失可能是暂时的（订单项尚在录入），交给队列重试
		if errors.Is(err, service.ErrMissingDependency) {
			logger.Warnw("worker_consolidation_rebuild_dependency_missing",
				"order_id", payload.OrderID,
				"projection_id", payload.ProjectionID,
				"error", err,
			)
			return err
		}
		logger.Warnw("worker_consolidation_rebuild_failed",
			"order_id", payload.OrderID,
			"projection_id", payload.ProjectionID,
			"error", err,
		)
		return err
	}
	logger.Infow("worker_consolidation_rebuild_done",
		"order_id", payload.OrderID,
		"projection_id", payload.ProjectionID,
		"snapshot_id", snapshot.ID,
	)
	return nil
}
