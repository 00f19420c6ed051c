package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/lumastudio/server/internal/infra/events"
	"github.com/lumastudio/server/internal/model"
	"github.com/lumastudio/server/internal/module/billing"
	"github.com/lumastudio/server/internal/module/entitlement"
	"github.com/lumastudio/server/internal/module/spending"
	sharedcache "github.com/lumastudio/server/internal/shared/cache"
	"github.com/lumastudio/server/internal/shared/config"
	"github.com/lumastudio/server/internal/shared/database"
	"github.com/lumastudio/server/internal/shared/kvstore"
	"github.com/lumastudio/server/internal/shared/logger"
	"github.com/lumastudio/server/internal/shared/metrics"
	"github.com/lumastudio/server/internal/shared/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App wires configuration, storage, the event bus, and the modules together.
type App struct {
	config *config.Config
	logger *zap.Logger
	db     *gorm.DB
	redis  redis.UniversalClient
	router *gin.Engine

	eventBus *events.Bus
	store    kvstore.Store

	spendingHandler    *spending.Handler
	entitlementHandler *entitlement.Handler
	billingHandler     *billing.Handler
	webhookHandler     *billing.WebhookHandler

	entitlementService entitlement.ServiceInterface
	billingService     billing.ServiceInterface
	spendingService    spending.ServiceInterface
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &App{
		config: cfg,
		logger: log,
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	app.db = db

	if err := db.AutoMigrate(
		&model.NotificationRecord{},
		&model.WebhookEvent{},
		&kvstore.AggregateRow{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	// Redis is optional; only the redis storage backend needs it.
	if cfg.Redis.Address != "" {
		redisClient, err := sharedcache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("redis connection failed", zap.Error(err))
		} else {
			app.redis = redisClient
		}
	}

	store, err := app.buildStore()
	if err != nil {
		return nil, err
	}
	app.store = store

	app.router = app.setupRouter()

	if err := app.initModules(); err != nil {
		return nil, fmt.Errorf("init modules: %w", err)
	}

	app.registerRoutes()

	return app, nil
}

// buildStore selects the aggregate store backend from configuration.
func (a *App) buildStore() (kvstore.Store, error) {
	switch a.config.Storage.Backend {
	case "memory":
		return kvstore.NewMemoryStore(), nil
	case "redis":
		if a.redis == nil {
			return nil, fmt.Errorf("storage backend %q requires redis", a.config.Storage.Backend)
		}
		return kvstore.NewRedisStore(a.redis, a.config.Storage.KeyPrefix), nil
	case "", "postgres":
		return kvstore.NewGormStore(a.db), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", a.config.Storage.Backend)
	}
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.CORS(a.config.Server.CORSOrigins))
	r.Use(middleware.Metrics(metrics.Default()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// initModules initializes all application modules.
func (a *App) initModules() error {
	a.eventBus = events.NewBus(a.logger)

	// Spending module
	spendingRepo := spending.NewRepository(a.store)
	spendingService := spending.NewService(spendingRepo, a.eventBus, a.logger)
	a.spendingService = spendingService
	a.spendingHandler = spending.NewHandler(spendingService, a.config.Spending.ApproachThreshold)

	// Entitlement module
	entitlementRepo := entitlement.NewRepository(a.store)
	entitlementService := entitlement.NewService(entitlementRepo, a.logger)
	a.entitlementService = entitlementService
	a.entitlementHandler = entitlement.NewHandler(entitlementService)

	// Billing module
	billingRepo := billing.NewRepository(a.store, a.db)
	processor := billing.NewProcessor(a.logger)
	billingService := billing.NewService(billingRepo, processor, a.eventBus, a.logger)
	a.billingService = billingService

	provider := billing.NewSimulatedProvider(billing.SimulatedProviderConfig{
		Latency:     a.config.Billing.ProviderLatency,
		FailureRate: a.config.Billing.ProviderFailureRate,
	}, a.logger)

	a.billingHandler = billing.NewHandler(billingService, provider, a.logger)
	a.webhookHandler = billing.NewWebhookHandler(billingService, a.config.Billing.WebhookSecret, a.logger)

	a.registerEventHandlers()

	return nil
}

// registerEventHandlers registers all domain event handlers.
func (a *App) registerEventHandlers() {
	// Entitlement follows tier changes derived from billing events.
	a.eventBus.Register(entitlement.NewEventHandler(a.entitlementService, a.logger))

	// Spending alerts land in the notification outbox.
	a.eventBus.Register(spending.NewNotifier(a.db, a.logger))
}

// registerRoutes registers routes for all modules.
func (a *App) registerRoutes() {
	v1 := a.router.Group("/api/v1")

	jwtManager := middleware.NewJWTManager(a.config.Auth.JWTSecret, a.config.Auth.AccessTokenExpiry)
	protected := v1.Group("")
	protected.Use(middleware.Auth(jwtManager))

	a.spendingHandler.RegisterRoutes(protected)
	a.entitlementHandler.RegisterRoutes(protected)
	a.billingHandler.RegisterRoutes(protected.Group("/billing"))

	// Webhooks authenticate with a shared secret, not a bearer token.
	webhooks := a.router.Group("/webhooks")
	a.webhookHandler.RegisterRoutes(webhooks)
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop stops the application and releases resources.
func (a *App) Stop() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = database.Close(a.db)
	}
}
