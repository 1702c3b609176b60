package queue

import (
	"encoding/json"

	"github.com/orderpulse/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskDeliveryCodeSMS 交付验证码短信任务
	TaskDeliveryCodeSMS = constants.TaskDeliveryCodeSMS
	// TaskConsolidationRebuild 合并快照补建任务
	TaskConsolidationRebuild = constants.TaskConsolidationRebuild
)

// DeliveryCodeSMSPayload 交付验证码短信任务载荷
type DeliveryCodeSMSPayload struct {
	OrderID uint   `json:"order_id"`
	Code    string `json:"code"`
}

// ConsolidationRebuildPayload 合并快照补建任务载荷
type ConsolidationRebuildPayload struct {
	OrderID      uint `json:"order_id"`
	ProjectionID uint `json:"projection_id"`
}

// NewDeliveryCodeSMSTask 创建交付验证码短信任务
func NewDeliveryCodeSMSTask(payload DeliveryCodeSMSPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDeliveryCodeSMS, body), nil
}

// NewConsolidationRebuildTask 创建合并快照补建任务
func NewConsolidationRebuildTask(payload ConsolidationRebuildPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConsolidationRebuild, body), nil
}
