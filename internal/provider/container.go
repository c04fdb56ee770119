package provider

import (
	"github.com/vnshop-next/internal/cache"
	"github.com/vnshop-next/internal/config"
	"github.com/vnshop-next/internal/logger"
	"github.com/vnshop-next/internal/models"
	"github.com/vnshop-next/internal/payment/vnpay"
	"github.com/vnshop-next/internal/queue"
	"github.com/vnshop-next/internal/repository"
	"github.com/vnshop-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Gateway     *vnpay.Gateway

	// Repositories
	UserRepo    repository.UserRepository
	ProductRepo repository.ProductRepository
	VariantRepo repository.ProductVariantRepository
	CartRepo    repository.CartRepository
	OrderRepo   repository.OrderRepository

	// Services
	EmailService    *service.EmailService
	ProductService  *service.ProductService
	CartService     *service.CartService
	CheckoutService *service.CheckoutService
	OrderService    *service.OrderService
	PaymentService  *service.PaymentService
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

	// 初始化支付网关，未配置则留空，下单时拒绝网关支付
	var gateway *vnpay.Gateway
	gatewayCfg := vnpay.Config{
		TmnCode:    cfg.VNPay.TmnCode,
		HashSecret: cfg.VNPay.HashSecret,
		PayURL:     cfg.VNPay.PayURL,
		ReturnURL:  cfg.VNPay.ReturnURL,
	}
	if err := vnpay.ValidateConfig(&gatewayCfg); err != nil {
		logger.Warnw("provider_vnpay_gateway_disabled", "error", err)
	} else {
		gw, err := vnpay.New(gatewayCfg)
		if err != nil {
			logger.Errorw("provider_init_vnpay_gateway_failed", "error", err)
		} else {
			gateway = gw
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Gateway:     gateway,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.VariantRepo = repository.NewProductVariantRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
}

func (c *Container) initServices() {
	expireHours := c.Config.Order.PaymentExpireHours
	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.ProductService = service.NewProductService(c.ProductRepo, c.VariantRepo)
	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo, c.VariantRepo)
	c.CheckoutService = service.NewCheckoutService(c.OrderRepo, c.ProductRepo, c.VariantRepo, c.CartRepo, c.QueueClient, c.Gateway, expireHours)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.ProductRepo, c.VariantRepo, c.QueueClient, expireHours)
	c.PaymentService = service.NewPaymentService(c.OrderRepo, c.ProductRepo, c.VariantRepo, c.CartRepo, c.QueueClient, c.Gateway)
}
