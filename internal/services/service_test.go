package services_test

import (
	"testing"
	"time"

	"leadforge_backend/internal/metrics"
	"leadforge_backend/internal/models"
	"leadforge_backend/internal/repositories"
	"leadforge_backend/internal/services"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB поднимает чистую in-memory базу на каждый тест
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Не удалось открыть in-memory базу")

	// In-memory база живет в рамках одного соединения: второе соединение
	// пула увидело бы пустую базу
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Plan{},
		&models.Subscription{},
		&models.PaymentHistory{},
		&models.UsageLog{},
		&models.TeamMember{},
	)
	require.NoError(t, err, "Миграция тестовой базы не должна падать")

	return db
}

func newEntitlementService() services.EntitlementService {
	repo := repositories.NewSubscriptionRepository()
	m := metrics.NewEntitlementMetrics(prometheus.NewRegistry())
	return services.NewEntitlementService(repo, m)
}

// seedPlan создает план с заданной квотой и флагами
func seedPlan(t *testing.T, db *gorm.DB, name string, price float64, leads, teamMembers int, features ...models.Feature) *models.Plan {
	t.Helper()

	plan := &models.Plan{
		Name:            name,
		Price:           price,
		BillingInterval: "month",
		LeadsPerMonth:   leads,
		MaxTeamMembers:  teamMembers,
	}
	for _, f := range features {
		switch f {
		case models.FeatureCSVExport:
			plan.AllowsCSVExport = true
		case models.FeatureCRMSync:
			plan.AllowsCRMSync = true
		case models.FeatureTeamAccess:
			plan.AllowsTeamAccess = true
		case models.FeatureAPIAccess:
			plan.AllowsAPIAccess = true
		case models.FeatureWhiteLabeling:
			plan.AllowsWhiteLabeling = true
		case models.FeatureEnrichment:
			plan.AllowsEnrichment = true
		}
	}

	require.NoError(t, db.Create(plan).Error)
	return plan
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		PasswordHash: "$2a$10$testhashtesthashtesthash",
		Role:         models.UserRoleMember,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// seedSubscription создает подписку с периодом "сейчас +/- 15 дней"
func seedSubscription(t *testing.T, db *gorm.DB, userID, planID string, status models.SubscriptionStatus, used int) *models.Subscription {
	t.Helper()

	start := time.Now().AddDate(0, 0, -15)
	end := time.Now().AddDate(0, 0, 15)
	sub := &models.Subscription{
		UserID:             userID,
		PlanID:             planID,
		Status:             status,
		LeadsUsedThisMonth: used,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}
