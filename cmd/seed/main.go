package main

import (
	"fmt"
	"time"

	"github.com/orderpulse/internal/config"
	"github.com/orderpulse/internal/constants"
	"github.com/orderpulse/internal/logger"
	"github.com/orderpulse/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 部门操作员账号
	admins := []models.Admin{
		{Username: "admin", Department: constants.DepartmentSystem, IsSuper: true},
		{Username: "finance01", Department: constants.DepartmentFinancial},
		{Username: "warehouse01", Department: constants.DepartmentWarehouse},
		{Username: "logistics01", Department: constants.DepartmentLogistics},
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("orderpulse123"), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Fatalf("Failed to hash password: %v", err)
	}
	for i := range admins {
		admins[i].PasswordHash = string(hash)
		if err := models.DB.Where("username = ?", admins[i].Username).FirstOrCreate(&admins[i]).Error; err != nil {
			stdLog.Fatalf("Failed to seed admin %s: %v", admins[i].Username, err)
		}
	}

	// 客户
	customers := []models.Customer{
		{
			Name:         "张伟",
			Phone:        "13800138000",
			Email:        "zhangwei@example.com",
			Address:      "上海市浦东新区世纪大道 100 号",
			GPSLatitude:  "31.2304",
			GPSLongitude: "121.4737",
		},
		{
			Name:    "李娜",
			Phone:   "13900139000",
			Email:   "lina@example.com",
			Address: "北京市朝阳区建国路 88 号",
		},
		{
			Name:         "王强",
			Phone:        "13700137000",
			Address:      "广州市天河区体育西路 10 号",
			GPSLatitude:  "23.1291",
			GPSLongitude: "113.2644",
		},
	}
	for i := range customers {
		if err := models.DB.Where("phone = ?", customers[i].Phone).FirstOrCreate(&customers[i]).Error; err != nil {
			stdLog.Fatalf("Failed to seed customer %s: %v", customers[i].Name, err)
		}
	}

	// 覆盖各个履约/支付状态组合的订单，对账引擎首轮扫描即可派生投影
	now := time.Now()
	orders := []struct {
		order models.Order
		items []models.OrderItem
	}{
		{
			order: models.Order{
				OrderNo:           fmt.Sprintf("OP%s0001", now.Format("20060102")),
				CustomerID:        customers[0].ID,
				FulfillmentStatus: constants.FulfillmentStatusPending,
				PaymentStatus:     constants.PaymentStatusPaid,
				PaymentSource:     "bank_transfer",
				Currency:          "CNY",
				TotalAmount:       models.NewMoneyFromDecimal(decimal.NewFromInt(300)),
			},
			items: []models.OrderItem{
				{ProductName: "保温水壶", SKU: "TH-500", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(100)), Quantity: 2, TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(200)), Weight: models.NewMoneyFromDecimal(decimal.NewFromInt(500)), WeightUnit: "g"},
				{ProductName: "折叠桌", SKU: "TB-01", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(100)), Quantity: 1, TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(100)), Weight: models.NewMoneyFromDecimal(decimal.NewFromInt(3)), WeightUnit: "kg"},
			},
		},
		{
			order: models.Order{
				OrderNo:           fmt.Sprintf("OP%s0002", now.Format("20060102")),
				CustomerID:        customers[1].ID,
				FulfillmentStatus: constants.FulfillmentStatusPending,
				PaymentStatus:     constants.PaymentStatusReceiptUploaded,
				ReceiptURL:        "https://files.example.com/receipts/0002.jpg",
				Currency:          "CNY",
				TotalAmount:       models.NewMoneyFromDecimal(decimal.NewFromInt(1280)),
			},
			items: []models.OrderItem{
				{ProductName: "空气净化器", SKU: "AP-220", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(1280)), Quantity: 1, TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(1280)), Weight: models.NewMoneyFromDecimal(decimal.NewFromInt(8)), WeightUnit: "kg"},
			},
		},
		{
			order: models.Order{
				OrderNo:                 fmt.Sprintf("OP%s0003", now.Format("20060102")),
				CustomerID:              customers[2].ID,
				FulfillmentStatus:       constants.FulfillmentStatusPending,
				PaymentStatus:           constants.PaymentStatusPartial,
				PaymentSource:           "manual",
				Currency:                "CNY",
				TotalAmount:             models.NewMoneyFromDecimal(decimal.NewFromInt(560)),
				ManualFinancialApproval: true,
			},
			items: []models.OrderItem{
				{ProductName: "露营帐篷", SKU: "CT-04", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(560)), Quantity: 1, TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(560)), Weight: models.NewMoneyFromDecimal(decimal.NewFromInt(4)), WeightUnit: "kg"},
			},
		},
		{
			order: models.Order{
				OrderNo:           fmt.Sprintf("OP%s0004", now.Format("20060102")),
				CustomerID:        customers[0].ID,
				FulfillmentStatus: constants.FulfillmentStatusWarehouseReady,
				PaymentStatus:     constants.PaymentStatusPaid,
				Currency:          "CNY",
				TotalAmount:       models.NewMoneyFromDecimal(decimal.NewFromInt(90)),
			},
			items: []models.OrderItem{
				{ProductName: "运动水杯", SKU: "CP-12", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(30)), Quantity: 3, TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(90)), Weight: models.NewMoneyFromDecimal(decimal.NewFromInt(300)), WeightUnit: "g"},
			},
		},
		{
			order: models.Order{
				OrderNo:           fmt.Sprintf("OP%s0005", now.Format("20060102")),
				CustomerID:        customers[1].ID,
				FulfillmentStatus: constants.FulfillmentStatusInTransit,
				PaymentStatus:     constants.PaymentStatusPaid,
				Currency:          "CNY",
				TotalAmount:       models.NewMoneyFromDecimal(decimal.NewFromInt(2400)),
			},
			items: []models.OrderItem{
				{ProductName: "实木书架", SKU: "SH-77", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(1200)), Quantity: 2, TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(2400)), Weight: models.NewMoneyFromDecimal(decimal.NewFromInt(15)), WeightUnit: "kg"},
			},
		},
		{
			order: models.Order{
				OrderNo:           fmt.Sprintf("OP%s0006", now.Format("20060102")),
				CustomerID:        customers[2].ID,
				FulfillmentStatus: constants.FulfillmentStatusDelivered,
				PaymentStatus:     constants.PaymentStatusPaid,
				Currency:          "CNY",
				TotalAmount:       models.NewMoneyFromDecimal(decimal.NewFromInt(150)),
			},
			items: []models.OrderItem{
				{ProductName: "陶瓷餐具套装", SKU: "DS-08", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(150)), Quantity: 1, TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(150)), Weight: models.NewMoneyFromDecimal(decimal.NewFromInt(2)), WeightUnit: "kg"},
			},
		},
		{
			order: models.Order{
				OrderNo:           fmt.Sprintf("OP%s0007", now.Format("20060102")),
				CustomerID:        customers[0].ID,
				FulfillmentStatus: constants.FulfillmentStatusCancelled,
				PaymentStatus:     constants.PaymentStatusRejected,
				Currency:          "CNY",
				TotalAmount:       models.NewMoneyFromDecimal(decimal.NewFromInt(75)),
			},
			items: []models.OrderItem{
				{ProductName: "桌面风扇", SKU: "FN-03", UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(75)), Quantity: 1, TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(75)), Weight: models.NewMoneyFromDecimal(decimal.NewFromInt(800)), WeightUnit: "g"},
			},
		},
	}
	for i := range orders {
		entry := &orders[i]
		if err := models.DB.Where("order_no = ?", entry.order.OrderNo).FirstOrCreate(&entry.order).Error; err != nil {
			stdLog.Fatalf("Failed to seed order %s: %v", entry.order.OrderNo, err)
		}
		for j := range entry.items {
			entry.items[j].OrderID = entry.order.ID
			if err := models.DB.Where("order_id = ? AND sku = ?", entry.order.ID, entry.items[j].SKU).FirstOrCreate(&entry.items[j]).Error; err != nil {
				stdLog.Fatalf("Failed to seed order item %s: %v", entry.items[j].SKU, err)
			}
		}
	}

	stdLog.Printf("Seed complete: %d admins, %d customers, %d orders", len(admins), len(customers), len(orders))
	stdLog.Printf("Default password for seeded admins: orderpulse123")
}
