package app

import (
	"context"
	"fmt"
	"time"

	"leadforge_backend/database"
	"leadforge_backend/internal/auth"
	"leadforge_backend/internal/cache"
	"leadforge_backend/internal/config"
	"leadforge_backend/internal/email"
	"leadforge_backend/internal/handlers"
	"leadforge_backend/internal/logger"
	"leadforge_backend/internal/metrics"
	"leadforge_backend/internal/middleware"
	"leadforge_backend/internal/repositories"
	"leadforge_backend/internal/routes"
	"leadforge_backend/internal/services"
	"leadforge_backend/internal/validator"
	"leadforge_backend/internal/workers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	auth.Init(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("Migration failed", "error", err)
	}
	if err := database.SeedPlans(gormDB, repositories.NewSubscriptionRepository()); err != nil {
		logger.Fatal("Plan seeding failed", "error", err)
	}

	registry := prometheus.NewRegistry()

	ginRouter, serviceContainer := SetupRouter(cfg, gormDB, registry)

	// Фоновые задачи биллингового цикла
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startWorkers(ctx, cfg, gormDB, serviceContainer)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

// SetupRouter собирает весь граф зависимостей и возвращает готовый роутер.
// Вынесен отдельно, чтобы тесты могли поднять приложение без Run()
func SetupRouter(cfg *config.Config, gormDB *gorm.DB, registry *prometheus.Registry) (*gin.Engine, *services.ServiceContainer) {
	serviceContainer := initializeServices(cfg, registry)
	appHandlers := initializeHandlers(serviceContainer)

	ginRouter := initializeGinRouter(cfg, gormDB)
	routes.RegisterRoutes(ginRouter, appHandlers, serviceContainer.EntitlementService, registry)

	return ginRouter, serviceContainer
}

func initializeServices(cfg *config.Config, registry *prometheus.Registry) *services.ServiceContainer {
	userRepo := repositories.NewUserRepository()
	subscriptionRepo := repositories.NewSubscriptionRepository()

	var planCache cache.PlanCache
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		planCache = cache.NewRedisPlanCache(client)
		logger.Info("Redis plan cache enabled", "addr", cfg.Redis.Addr)
	} else {
		planCache = cache.NewNoopPlanCache()
	}

	emailProvider := initializeEmailProvider(cfg)
	entitlementMetrics := metrics.NewEntitlementMetrics(registry)

	entitlementService := services.NewEntitlementService(subscriptionRepo, entitlementMetrics)
	subscriptionService := services.NewSubscriptionService(subscriptionRepo, userRepo, entitlementService, planCache, emailProvider)
	authService := services.NewAuthService(userRepo)

	return &services.ServiceContainer{
		AuthService:         authService,
		EntitlementService:  entitlementService,
		SubscriptionService: subscriptionService,
		EmailProvider:       emailProvider,
	}
}

func initializeEmailProvider(cfg *config.Config) email.Provider {
	if !cfg.Email.Enabled {
		logger.Warn("Email delivery disabled, using mock provider")
		return &MockEmailProvider{}
	}

	renderer, err := email.NewTemplateManager()
	if err != nil {
		logger.Fatal("Failed to load email templates", "error", err)
	}
	provider, err := email.NewGomailProvider(&email.SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
	}, renderer)
	if err != nil {
		logger.Fatal("Failed to initialize email provider", "error", err)
	}
	return provider
}

func initializeHandlers(container *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	return &handlers.AppHandlers{
		AuthHandler:         handlers.NewAuthHandler(baseHandler, container.AuthService),
		SubscriptionHandler: handlers.NewSubscriptionHandler(baseHandler, container.SubscriptionService, container.EntitlementService),
		BillingHandler:      handlers.NewBillingHandler(baseHandler, container.SubscriptionService, container.EntitlementService),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}

func startWorkers(ctx context.Context, cfg *config.Config, gormDB *gorm.DB, container *services.ServiceContainer) {
	worker := workers.NewSubscriptionWorker(
		gormDB,
		container.EntitlementService,
		repositories.NewSubscriptionRepository(),
		repositories.NewUserRepository(),
		container.EmailProvider,
		cfg.Billing.ExpirySweepIntervalHours,
		cfg.Billing.RenewalThresholdDays,
	)
	worker.Start(ctx)
	logger.Info("Subscription worker started",
		"sweep_interval_hours", cfg.Billing.ExpirySweepIntervalHours,
		"renewal_threshold_days", cfg.Billing.RenewalThresholdDays,
	)
}
