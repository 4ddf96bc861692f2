package repositories

import (
	"errors"
	"time"

	"leadforge_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrPlanNotFound         = errors.New("subscription plan not found")
	ErrPaymentNotFound      = errors.New("payment record not found")
)

// SubscriptionRepository - доступ к планам, подпискам, платежам и команде.
// Все методы принимают *gorm.DB первым аргументом: это либо общий пул,
// либо транзакция запроса из DBMiddleware
type SubscriptionRepository interface {
	// Plan operations
	CreatePlan(db *gorm.DB, plan *models.Plan) error
	FindPlanByID(db *gorm.DB, id string) (*models.Plan, error)
	FindPlanByName(db *gorm.DB, name string) (*models.Plan, error)
	FindPlansOrderedByPrice(db *gorm.DB) ([]models.Plan, error)

	// Subscription operations
	CreateSubscription(db *gorm.DB, sub *models.Subscription) error
	FindCurrentByUserID(db *gorm.DB, userID string) (*models.Subscription, error)
	FindByProviderSubscriptionID(db *gorm.DB, providerID string) (*models.Subscription, error)
	UpdateSubscription(db *gorm.DB, sub *models.Subscription) error
	IncrementLeadUsage(db *gorm.DB, subscriptionID string, count int) error
	ConsumeLeadsWithinQuota(db *gorm.DB, subscriptionID string, count, quota int) (bool, error)
	ResetMonthlyUsage(db *gorm.DB) (int64, error)
	ExpireCanceledSubscriptions(db *gorm.DB, now time.Time) (int64, error)
	FindDueForRenewal(db *gorm.DB, before time.Time) ([]models.Subscription, error)

	// PaymentHistory operations (журнал пишет только webhook-пайплайн)
	CreatePayment(db *gorm.DB, payment *models.PaymentHistory) error
	FindPaymentByProviderID(db *gorm.DB, providerID string) (*models.PaymentHistory, error)
	FindRecentPaymentsByUser(db *gorm.DB, userID string, limit int) ([]models.PaymentHistory, error)

	// UsageLog operations
	CreateUsageLog(db *gorm.DB, entry *models.UsageLog) error
	CountUserActions(db *gorm.DB, userID, action string, since time.Time) (int64, error)

	// Team operations
	CountTeamMembers(db *gorm.DB, ownerID string) (int64, error)
	CreateTeamMember(db *gorm.DB, member *models.TeamMember) error
}

type SubscriptionRepositoryImpl struct{}

func NewSubscriptionRepository() SubscriptionRepository {
	return &SubscriptionRepositoryImpl{}
}

// Plan operations

func (r *SubscriptionRepositoryImpl) CreatePlan(db *gorm.DB, plan *models.Plan) error {
	return db.Create(plan).Error
}

func (r *SubscriptionRepositoryImpl) FindPlanByID(db *gorm.DB, id string) (*models.Plan, error) {
	var plan models.Plan
	err := db.First(&plan, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *SubscriptionRepositoryImpl) FindPlanByName(db *gorm.DB, name string) (*models.Plan, error) {
	var plan models.Plan
	err := db.Where("name = ?", name).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// FindPlansOrderedByPrice возвращает все планы по возрастанию цены.
// Порядок важен: на нем построен подбор апгрейда
func (r *SubscriptionRepositoryImpl) FindPlansOrderedByPrice(db *gorm.DB) ([]models.Plan, error) {
	var plans []models.Plan
	err := db.Order("price ASC").Find(&plans).Error
	return plans, err
}

// Subscription operations

func (r *SubscriptionRepositoryImpl) CreateSubscription(db *gorm.DB, sub *models.Subscription) error {
	return db.Create(sub).Error
}

// FindCurrentByUserID - единое правило разрешения "текущей" подписки:
// статус active/trialing, при нескольких строках (нарушение инварианта,
// которое движок не чинит) детерминированно берем самую свежую по updated_at
func (r *SubscriptionRepositoryImpl) FindCurrentByUserID(db *gorm.DB, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := db.Preload("Plan").
		Where("user_id = ? AND status IN ?", userID, models.ActiveSubscriptionStatuses).
		Order("updated_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) FindByProviderSubscriptionID(db *gorm.DB, providerID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := db.Preload("Plan").Where("provider_subscription_id = ?", providerID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) UpdateSubscription(db *gorm.DB, sub *models.Subscription) error {
	result := db.Model(sub).Updates(map[string]interface{}{
		"plan_id":                  sub.PlanID,
		"status":                   sub.Status,
		"provider_customer_id":     sub.ProviderCustomerID,
		"provider_subscription_id": sub.ProviderSubscriptionID,
		"leads_used_this_month":    sub.LeadsUsedThisMonth,
		"current_period_start":     sub.CurrentPeriodStart,
		"current_period_end":       sub.CurrentPeriodEnd,
		"cancel_at_period_end":     sub.CancelAtPeriodEnd,
		"updated_at":               time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// IncrementLeadUsage - безусловное увеличение счетчика.
// Квоту НЕ проверяет: вызывающий обязан был проверить ее заранее
func (r *SubscriptionRepositoryImpl) IncrementLeadUsage(db *gorm.DB, subscriptionID string, count int) error {
	result := db.Model(&models.Subscription{}).
		Where("id = ?", subscriptionID).
		Updates(map[string]interface{}{
			"leads_used_this_month": gorm.Expr("leads_used_this_month + ?", count),
			"updated_at":            time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// ConsumeLeadsWithinQuota - атомарный условный инкремент:
// счетчик растет только если итог не превысит квоту. Одним UPDATE-ом,
// поэтому при конкурентных запросах БД сериализует списания и
// суммарно пройти может не больше quota лидов
func (r *SubscriptionRepositoryImpl) ConsumeLeadsWithinQuota(db *gorm.DB, subscriptionID string, count, quota int) (bool, error) {
	result := db.Model(&models.Subscription{}).
		Where("id = ? AND leads_used_this_month + ? <= ?", subscriptionID, count, quota).
		Updates(map[string]interface{}{
			"leads_used_this_month": gorm.Expr("leads_used_this_month + ?", count),
			"updated_at":            time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ResetMonthlyUsage обнуляет счетчики всех текущих подписок.
// Вызывается внешним планировщиком в начале биллингового цикла
func (r *SubscriptionRepositoryImpl) ResetMonthlyUsage(db *gorm.DB) (int64, error) {
	result := db.Model(&models.Subscription{}).
		Where("status IN ?", models.ActiveSubscriptionStatuses).
		Updates(map[string]interface{}{
			"leads_used_this_month": 0,
			"updated_at":            time.Now(),
		})
	return result.RowsAffected, result.Error
}

// ExpireCanceledSubscriptions - sweep: переводит в canceled только те
// подписки, чей период закончился И стоит cancel_at_period_end.
// Просроченные без флага не трогаем - их продлит биллинговое событие.
// Один UPDATE = одна транзакция, частичных переходов не бывает
func (r *SubscriptionRepositoryImpl) ExpireCanceledSubscriptions(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Model(&models.Subscription{}).
		Where("status IN ? AND current_period_end < ? AND cancel_at_period_end = ?",
			models.ActiveSubscriptionStatuses, now, true).
		Updates(map[string]interface{}{
			"status":     models.SubscriptionStatusCanceled,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

// FindDueForRenewal - текущие подписки с концом периода до указанной даты
func (r *SubscriptionRepositoryImpl) FindDueForRenewal(db *gorm.DB, before time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := db.Preload("Plan").
		Where("status IN ? AND current_period_end <= ?", models.ActiveSubscriptionStatuses, before).
		Find(&subs).Error
	return subs, err
}

// PaymentHistory operations

func (r *SubscriptionRepositoryImpl) CreatePayment(db *gorm.DB, payment *models.PaymentHistory) error {
	return db.Create(payment).Error
}

func (r *SubscriptionRepositoryImpl) FindPaymentByProviderID(db *gorm.DB, providerID string) (*models.PaymentHistory, error) {
	var payment models.PaymentHistory
	err := db.Where("provider_payment_id = ?", providerID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *SubscriptionRepositoryImpl) FindRecentPaymentsByUser(db *gorm.DB, userID string, limit int) ([]models.PaymentHistory, error) {
	var payments []models.PaymentHistory
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

// UsageLog operations

func (r *SubscriptionRepositoryImpl) CreateUsageLog(db *gorm.DB, entry *models.UsageLog) error {
	return db.Create(entry).Error
}

func (r *SubscriptionRepositoryImpl) CountUserActions(db *gorm.DB, userID, action string, since time.Time) (int64, error) {
	var count int64
	err := db.Model(&models.UsageLog{}).
		Where("user_id = ? AND action = ? AND created_at >= ?", userID, action, since).
		Count(&count).Error
	return count, err
}

// Team operations

func (r *SubscriptionRepositoryImpl) CountTeamMembers(db *gorm.DB, ownerID string) (int64, error) {
	var count int64
	err := db.Model(&models.TeamMember{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error
	return count, err
}

func (r *SubscriptionRepositoryImpl) CreateTeamMember(db *gorm.DB, member *models.TeamMember) error {
	return db.Create(member).Error
}
