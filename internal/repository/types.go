package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page              int
	PageSize          int
	CustomerID        uint
	FulfillmentStatus string
	PaymentStatus     string
	OrderNo           string
	CreatedFrom       *time.Time
	CreatedTo         *time.Time
}

// ProjectionListFilter 查询管理投影列表的过滤条件
type ProjectionListFilter struct {
	Page     int
	PageSize int
	States   []string
	OrderID  uint
}
