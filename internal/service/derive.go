package service

import (
	"github.com/orderpulse/internal/constants"
	"github.com/orderpulse/internal/models"
)

// DeriveManagementState 由订单的履约/支付状态推导出管理状态。
// 纯函数，对任意输入组合都有确定结果；按优先级自上而下匹配。
func DeriveManagementState(order *models.Order) string {
	switch order.FulfillmentStatus {
	case constants.FulfillmentStatusDelivered:
		return constants.ManagementStateDelivered
	case constants.FulfillmentStatusCancelled, constants.FulfillmentStatusDeleted:
		return constants.ManagementStateCancelled
	case constants.FulfillmentStatusWarehouseReady:
		return constants.ManagementStateWarehouseApproved
	case constants.FulfillmentStatusConfirmed, constants.FulfillmentStatusProcessing:
		return constants.ManagementStateWarehouseProcessing
	case constants.FulfillmentStatusShipped, constants.FulfillmentStatusInTransit:
		return constants.ManagementStateInTransit
	}

	if order.FulfillmentStatus == constants.FulfillmentStatusPending &&
		order.PaymentStatus == constants.PaymentStatusPaid {
		return constants.ManagementStateWarehousePending
	}

	switch order.PaymentStatus {
	case constants.PaymentStatusReceiptUploaded:
		return constants.ManagementStateFinancePending
	case constants.PaymentStatusRejected:
		return constants.ManagementStateFinancialRejected
	case constants.PaymentStatusPartial:
		if order.ManualFinancialApproval {
			return constants.ManagementStateWarehousePending
		}
		return constants.ManagementStateFinancePending
	}

	return constants.ManagementStatePending
}
