package constants

// 履约状态常量（订单记录侧）
const (
	FulfillmentStatusPending        = "pending"
	FulfillmentStatusConfirmed      = "confirmed"
	FulfillmentStatusProcessing     = "processing"
	FulfillmentStatusWarehouseReady = "warehouse_ready"
	FulfillmentStatusShipped        = "shipped"
	FulfillmentStatusInTransit      = "in_transit"
	FulfillmentStatusDelivered      = "delivered"
	FulfillmentStatusCancelled      = "cancelled"
	FulfillmentStatusDeleted        = "deleted"
)

// 支付状态常量
const (
	PaymentStatusUnpaid          = "unpaid"
	PaymentStatusPaid            = "paid"
	PaymentStatusPartial         = "partial"
	PaymentStatusReceiptUploaded = "receipt_uploaded"
	PaymentStatusRejected        = "rejected"
)

// 管理流转状态常量（投影侧）
const (
	ManagementStatePending             = "pending"
	ManagementStateFinancePending      = "finance_pending"
	ManagementStateFinancialReviewing  = "financial_reviewing"
	ManagementStateFinancialApproved   = "financial_approved"
	ManagementStateFinancialRejected   = "financial_rejected"
	ManagementStateWarehousePending    = "warehouse_pending"
	ManagementStateWarehouseProcessing = "warehouse_processing"
	ManagementStateWarehouseApproved   = "warehouse_approved"
	ManagementStateWarehouseRejected   = "warehouse_rejected"
	ManagementStateLogisticsAssigned   = "logistics_assigned"
	ManagementStateLogisticsProcessing = "logistics_processing"
	ManagementStateLogisticsDispatched = "logistics_dispatched"
	ManagementStateInTransit           = "in_transit"
	ManagementStateLogisticsDelivered  = "logistics_delivered"
	ManagementStateDelivered           = "delivered"
	ManagementStateCompleted           = "completed"
	ManagementStateCancelled           = "cancelled"
)

// 部门常量
const (
	DepartmentFinancial = "financial"
	DepartmentWarehouse = "warehouse"
	DepartmentLogistics = "logistics"
	DepartmentSystem    = "system"
)

// 交付验证码发放方式常量
const (
	DeliveryCodeChannelSequential = "sequential"
	DeliveryCodeChannelRandom     = "random"
)

// 重量单位常量
const (
	WeightUnitGram = "g"
	WeightUnitKilo = "kg"
	WeightUnitTon  = "ton"
)

// 队列常量
const (
	QueueDefault             = "default"
	TaskDeliveryCodeSMS      = "delivery_code:sms"
	TaskConsolidationRebuild = "consolidation:rebuild"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "op"
)

// 交付验证码默认配置常量
const (
	DeliveryCodeExpireHours = 48
	DeliveryCodeSeqStart    = 1111
	DeliveryCodeSeqEnd      = 9999
	DeliveryCodeRandomMin   = 1000
	DeliveryCodeRandomMax   = 9999
)

// 对账默认配置常量
const (
	SyncDefaultIntervalMinutes = 5
	SyncDefaultPageSize        = 200
)
