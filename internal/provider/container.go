package provider

import (
	"github.com/orderpulse/internal/cache"
	"github.com/orderpulse/internal/config"
	"github.com/orderpulse/internal/logger"
	"github.com/orderpulse/internal/models"
	"github.com/orderpulse/internal/queue"
	"github.com/orderpulse/internal/repository"
	"github.com/orderpulse/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo             repository.AdminRepository
	CustomerRepo          repository.CustomerRepository
	OrderRepo             repository.OrderRepository
	ProjectionRepo        repository.ProjectionRepository
	TransitionRepo        repository.StatusTransitionRepository
	ConsolidatedOrderRepo repository.ConsolidatedOrderRepository
	DeliveryCodeRepo      repository.DeliveryCodeRepository

	// Services
	AuthService          *service.AuthService
	ManagementService    *service.ManagementService
	ConsolidationService *service.ConsolidationService
	DeliveryCodeService  *service.DeliveryCodeService
	SyncService          *service.SyncService
	Notifier             service.Notifier
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.CustomerRepo = repository.NewCustomerRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.ProjectionRepo = repository.NewProjectionRepository(db)
	c.TransitionRepo = repository.NewStatusTransitionRepository(db)
	c.ConsolidatedOrderRepo = repository.NewConsolidatedOrderRepository(db)
	c.DeliveryCodeRepo = repository.NewDeliveryCodeRepository(db)
}

func (c *Container) initServices() {
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.Notifier = service.NewLogNotifier(c.Config.SMS.Sender)
	c.ConsolidationService = service.NewConsolidationService(c.ConsolidatedOrderRepo, c.OrderRepo, c.ProjectionRepo, c.QueueClient)
	c.DeliveryCodeService = service.NewDeliveryCodeService(c.DeliveryCodeRepo, c.OrderRepo, c.QueueClient, c.Config.Delivery.Channel, c.Config.Delivery.CodeExpireHours)
	c.ManagementService = service.NewManagementService(c.ProjectionRepo, c.TransitionRepo, c.OrderRepo, c.ConsolidationService, c.DeliveryCodeService)
	c.SyncService = service.NewSyncService(c.OrderRepo, c.ProjectionRepo, c.TransitionRepo, c.ConsolidationService, &c.Config.Sync)
}
