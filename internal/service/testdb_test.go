package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/orderpulse/internal/constants"
	"github.com/orderpulse/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Admin{},
		&models.Customer{},
		&models.Order{},
		&models.OrderItem{},
		&models.ManagementProjection{},
		&models.StatusTransition{},
		&models.ConsolidatedOrder{},
		&models.DeliveryCode{},
		&models.DeliveryCodeCounter{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return db
}

func seedCustomer(t *testing.T, db *gorm.DB) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		Name:         "张伟",
		Phone:        "13800138000",
		Email:        "zhangwei@example.com",
		Address:      "上海市浦东新区世纪大道 100 号",
		GPSLatitude:  "31.2304",
		GPSLongitude: "121.4737",
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	return customer
}

func seedOrder(t *testing.T, db *gorm.DB, customerID uint, fulfillment, payment string, manualApproval bool) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNo:                 fmt.Sprintf("OP%d", time.Now().UnixNano()),
		CustomerID:              customerID,
		FulfillmentStatus:       fulfillment,
		PaymentStatus:           payment,
		ManualFinancialApproval: manualApproval,
		Currency:                "CNY",
		TotalAmount:             models.NewMoneyFromDecimal(decimal.NewFromInt(300)),
		PaymentSource:           "bank_transfer",
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	items := []models.OrderItem{
		{
			OrderID:     order.ID,
			ProductName: "保温水壶",
			SKU:         "KET-01",
			UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
			Quantity:    2,
			TotalPrice:  models.NewMoneyFromDecimal(decimal.NewFromInt(200)),
			Weight:      models.NewMoneyFromDecimal(decimal.NewFromInt(500)),
			WeightUnit:  constants.WeightUnitGram,
		},
		{
			OrderID:     order.ID,
			ProductName: "折叠桌",
			SKU:         "TBL-02",
			UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
			Quantity:    1,
			TotalPrice:  models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
			Weight:      models.NewMoneyFromDecimal(decimal.NewFromInt(3)),
			WeightUnit:  constants.WeightUnitKilo,
		},
	}
	if err := db.Create(&items).Error; err != nil {
		t.Fatalf("create order items failed: %v", err)
	}
	return order
}

func seedProjection(t *testing.T, db *gorm.DB, orderID uint, state string) *models.ManagementProjection {
	t.Helper()
	projection := &models.ManagementProjection{
		OrderID:      orderID,
		CurrentState: state,
	}
	if err := db.Create(projection).Error; err != nil {
		t.Fatalf("create projection failed: %v", err)
	}
	return projection
}
