package database

import (
	"encoding/json"
	"errors"
	"fmt"

	"leadforge_backend/internal/config"
	"leadforge_backend/internal/logger"
	"leadforge_backend/internal/models"
	"leadforge_backend/internal/repositories"

	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var gormDB *gorm.DB

// ConnectGorm инициализирует GORM с драйвером и DSN из конфигурации
func ConnectGorm() (*gorm.DB, error) {
	if gormDB != nil {
		return gormDB, nil
	}

	cfg := config.GetConfig()

	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.Database.DSN)
	case "postgres", "":
		dialector = postgres.Open(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to GORM: %w", err)
	}

	gormDB = db
	return db, nil
}

// AutoMigrate выполняет миграцию всех моделей и создает индексы,
// которые GORM не умеет выражать тегами
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Plan{},
		&models.Subscription{},
		&models.PaymentHistory{},
		&models.UsageLog{},
		&models.TeamMember{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}

	// Инвариант "не больше одной текущей подписки на пользователя"
	// держит частичный уникальный индекс. Только postgres: mysql
	// частичных индексов не умеет, там инвариант держит код
	if db.Dialector.Name() == "postgres" {
		err = db.Exec(`
			CREATE UNIQUE INDEX IF NOT EXISTS uniq_current_subscription_per_user
			ON subscriptions (user_id)
			WHERE status IN ('active', 'trialing')
		`).Error
		if err != nil {
			return fmt.Errorf("failed to create partial unique index: %w", err)
		}
	}

	logger.Info("database migration completed")
	return nil
}

type seedPlan struct {
	name          string
	description   string
	price         float64
	leads         int
	teamMembers   int
	features      []string
	csvExport     bool
	crmSync       bool
	teamAccess    bool
	apiAccess     bool
	whiteLabeling bool
	enrichment    bool
}

var defaultPlans = []seedPlan{
	{
		name:        "Free",
		description: "Try the platform with a small monthly quota",
		price:       0,
		leads:       25,
		teamMembers: 1,
		features:    []string{"25 leads per month", "Basic search"},
	},
	{
		name:        "Starter",
		description: "For solo founders and small teams",
		price:       29,
		leads:       500,
		teamMembers: 1,
		features:    []string{"500 leads per month", "CSV export", "Email support"},
		csvExport:   true,
	},
	{
		name:        "Growth",
		description: "For growing sales teams",
		price:       79,
		leads:       2500,
		teamMembers: 5,
		features:    []string{"2500 leads per month", "CSV export", "CRM sync", "Team access", "Lead enrichment"},
		csvExport:   true,
		crmSync:     true,
		teamAccess:  true,
		enrichment:  true,
	},
	{
		name:          "Scale",
		description:   "Full access for agencies and large teams",
		price:         199,
		leads:         10000,
		teamMembers:   25,
		features:      []string{"10000 leads per month", "Everything in Growth", "API access", "White labeling"},
		csvExport:     true,
		crmSync:       true,
		teamAccess:    true,
		apiAccess:     true,
		whiteLabeling: true,
		enrichment:    true,
	},
}

// SeedPlans создает стартовый каталог тарифов. Идемпотентно:
// существующие планы (по имени) не трогаем
func SeedPlans(db *gorm.DB, repo repositories.SubscriptionRepository) error {
	for _, sp := range defaultPlans {
		_, err := repo.FindPlanByName(db, sp.name)
		if err == nil {
			continue
		}
		if !errors.Is(err, repositories.ErrPlanNotFound) {
			return err
		}

		featureList, err := json.Marshal(sp.features)
		if err != nil {
			return err
		}

		plan := &models.Plan{
			Name:                sp.name,
			Description:         sp.description,
			Price:               sp.price,
			BillingInterval:     "month",
			Features:            datatypes.JSON(featureList),
			LeadsPerMonth:       sp.leads,
			MaxTeamMembers:      sp.teamMembers,
			AllowsCSVExport:     sp.csvExport,
			AllowsCRMSync:       sp.crmSync,
			AllowsTeamAccess:    sp.teamAccess,
			AllowsAPIAccess:     sp.apiAccess,
			AllowsWhiteLabeling: sp.whiteLabeling,
			AllowsEnrichment:    sp.enrichment,
		}
		if err := repo.CreatePlan(db, plan); err != nil {
			return fmt.Errorf("failed to seed plan %s: %w", sp.name, err)
		}
		logger.Info("seeded plan", "name", sp.name, "price", sp.price)
	}
	return nil
}
