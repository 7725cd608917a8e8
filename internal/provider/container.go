package provider

import (
	"github.com/diancan-next/internal/authz"
	"github.com/diancan-next/internal/cache"
	"github.com/diancan-next/internal/config"
	"github.com/diancan-next/internal/logger"
	"github.com/diancan-next/internal/models"
	"github.com/diancan-next/internal/payment"
	"github.com/diancan-next/internal/queue"
	"github.com/diancan-next/internal/repository"
	"github.com/diancan-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo         repository.AdminRepository
	CategoryRepo      repository.CategoryRepository
	ProductRepo       repository.ProductRepository
	PromotionRuleRepo repository.PromotionRuleRepository
	CouponUsageRepo   repository.CouponUsageRepository
	CartRepo          repository.CartRepository
	OrderRepo         repository.OrderRepository
	SettingRepo       repository.SettingRepository
	AuthzAuditRepo    repository.AuthzAuditLogRepository

	// Services
	AuthzService          *authz.Service
	AuthzAuditService     *service.AuthzAuditService
	AuthService           *service.AuthService
	UploadService         *service.UploadService
	SettingService        *service.SettingService
	CategoryService       *service.CategoryService
	ProductService        *service.ProductService
	PromotionService      *service.PromotionService
	PromotionAdminService *service.PromotionAdminService
	CartService           *service.CartService
	OrderService          *service.OrderService

	// 支付渠道（不透明协作方）
	PaymentProvider payment.Provider
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
	c.CategoryRepo = repository.NewCategoryRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.PromotionRuleRepo = repository.NewPromotionRuleRepository(db)
	c.CouponUsageRepo = repository.NewCouponUsageRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
	c.AuthzAuditRepo = repository.NewAuthzAuditLogRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditRepo)

	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UploadService = service.NewUploadService(c.Config)
	c.CategoryService = service.NewCategoryService(c.CategoryRepo)
	c.ProductService = service.NewProductService(c.ProductRepo, c.CategoryRepo)

	c.PromotionService = service.NewPromotionService(c.PromotionRuleRepo, c.ProductRepo, c.CategoryRepo, c.SettingService)
	if err := c.PromotionService.Reload(); err != nil {
		logger.Warnw("provider_promotion_engine_reload_failed", "error", err)
	}
	c.PromotionAdminService = service.NewPromotionAdminService(c.PromotionRuleRepo, c.PromotionService)

	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo, c.PromotionService, c.SettingService)

	c.PaymentProvider = payment.NewMockProvider()
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.CartRepo,
		c.PromotionRuleRepo,
		c.CouponUsageRepo,
		c.PromotionService,
		c.SettingService,
		c.QueueClient,
		c.PaymentProvider,
	)
}
