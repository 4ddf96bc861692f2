package services

import (
	"errors"
	"math"
	"time"

	"leadforge_backend/internal/dto"
	"leadforge_backend/internal/logger"
	"leadforge_backend/internal/metrics"
	"leadforge_backend/internal/models"
	"leadforge_backend/internal/repositories"
	"leadforge_backend/pkg/apperrors"

	"gorm.io/gorm"
)

const (
	// Квота 0 трактуется как "исчерпано", а не "безлимит": отчет по
	// использованию показывает 100%, а любое списание отклоняется.
	// Продукт это решение пока не подтвердил, поэтому оно вынесено
	// в константу, а не зашито по месту
	zeroQuotaMeansExhausted = true

	// Сколько последних платежей отдаем в карточке подписки
	recentPaymentsLimit = 5

	// Окно для тренда поисковых действий, в днях
	usageTrendWindowDays = 30

	// Дефолтный порог "пора продлевать", в днях
	defaultRenewalThresholdDays = 7
)

// EntitlementService - движок entitlement-ов: отвечает на вопрос
// "может ли пользователь U сделать действие A прямо сейчас",
// ведет счетчик потребленных лидов и закрывает истекшие подписки
type EntitlementService interface {
	// Квота лидов
	CheckLeadLimit(db *gorm.DB, userID string, requested int) (bool, error)
	IncrementLeadUsage(db *gorm.DB, userID string, count int) (*dto.ConsumeLeadsResponse, error)
	ConsumeLeads(db *gorm.DB, userID string, count int) (*dto.ConsumeLeadsResponse, error)

	// Возможности плана
	RequireActiveSubscription(db *gorm.DB, userID string) error
	RequireFeature(db *gorm.DB, userID string, feature models.Feature) error
	CanAccessFeature(db *gorm.DB, userID string, feature models.Feature) bool
	GetFeatureAvailability(db *gorm.DB, userID string) (map[models.Feature]bool, error)

	// Отчеты
	GetSubscriptionStatusInfo(db *gorm.DB, userID string) (*dto.StatusInfo, error)
	GetSubscriptionDetails(db *gorm.DB, userID string) (*dto.SubscriptionDetails, error)
	CalculateLeadUsagePercentage(db *gorm.DB, userID string) (float64, error)
	CalculateNextBillingAmount(db *gorm.DB, userID string) (float64, error)

	// Продление и sweep
	IsSubscriptionDueForRenewal(db *gorm.DB, userID string, daysThreshold int) (bool, error)
	CheckSubscriptionExpiry(db *gorm.DB) (int64, error)

	// Команда и апгрейды
	CheckTeamMemberLimit(db *gorm.DB, userID string) (*dto.TeamLimitInfo, error)
	SuggestPlanUpgrade(db *gorm.DB, userID string, targetFeature models.Feature) (*dto.UpgradeSuggestion, error)
}

type entitlementService struct {
	subscriptionRepo repositories.SubscriptionRepository
	metrics          metrics.EntitlementMetrics
}

func NewEntitlementService(
	subscriptionRepo repositories.SubscriptionRepository,
	m metrics.EntitlementMetrics,
) EntitlementService {
	return &entitlementService{
		subscriptionRepo: subscriptionRepo,
		metrics:          m,
	}
}

// resolveSubscription применяет единое правило поиска текущей подписки.
// Отсутствие подписки превращается в доменную ошибку NO_SUBSCRIPTION
func (s *entitlementService) resolveSubscription(db *gorm.DB, userID string) (*models.Subscription, error) {
	sub, err := s.subscriptionRepo.FindCurrentByUserID(db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			s.metrics.IncNoSubscription()
			return nil, apperrors.ErrNoSubscription()
		}
		return nil, err
	}
	return sub, nil
}

// --- Квота лидов ---

// CheckLeadLimit - чистая проверка без мутаций: хватит ли остатка
// месячной квоты на requested лидов
func (s *entitlementService) CheckLeadLimit(db *gorm.DB, userID string, requested int) (bool, error) {
	if requested <= 0 {
		return false, apperrors.NewBadRequestError("Requested lead count must be positive")
	}

	sub, err := s.resolveSubscription(db, userID)
	if err != nil {
		return false, err
	}

	remaining := sub.Plan.LeadsPerMonth - sub.LeadsUsedThisMonth
	if remaining < requested {
		s.metrics.IncQuotaDenied()
		return false, apperrors.ErrQuotaExceeded(remaining, requested)
	}
	return true, nil
}

// IncrementLeadUsage - безусловная мутация счетчика. Квоту не
// перепроверяет: вызывающий обязан был пройти CheckLeadLimit.
// Для нового кода предпочтителен атомарный ConsumeLeads
func (s *entitlementService) IncrementLeadUsage(db *gorm.DB, userID string, count int) (*dto.ConsumeLeadsResponse, error) {
	if count <= 0 {
		return nil, apperrors.NewBadRequestError("Lead count must be positive")
	}

	sub, err := s.resolveSubscription(db, userID)
	if err != nil {
		return nil, err
	}

	if err := s.subscriptionRepo.IncrementLeadUsage(db, sub.ID, count); err != nil {
		return nil, apperrors.ErrUsageUpdateFailed(err)
	}

	s.metrics.AddLeadsConsumed(count)
	return s.usageAfterUpdate(db, userID, sub, count), nil
}

// ConsumeLeads - проверка и списание одним условным UPDATE-ом.
// Закрывает гонку check-then-act: при remaining = k конкурентные
// запросы суммарно спишут не больше k лидов
func (s *entitlementService) ConsumeLeads(db *gorm.DB, userID string, count int) (*dto.ConsumeLeadsResponse, error) {
	if count <= 0 {
		return nil, apperrors.NewBadRequestError("Lead count must be positive")
	}

	sub, err := s.resolveSubscription(db, userID)
	if err != nil {
		return nil, err
	}

	ok, err := s.subscriptionRepo.ConsumeLeadsWithinQuota(db, sub.ID, count, sub.Plan.LeadsPerMonth)
	if err != nil {
		return nil, apperrors.ErrUsageUpdateFailed(err)
	}
	if !ok {
		// Перечитываем счетчик: remaining в ошибке должен отражать
		// состояние на момент отказа, а не нашего старого чтения
		fresh, rerr := s.subscriptionRepo.FindCurrentByUserID(db, userID)
		remaining := 0
		if rerr == nil {
			remaining = fresh.Plan.LeadsPerMonth - fresh.LeadsUsedThisMonth
		}
		s.metrics.IncQuotaDenied()
		return nil, apperrors.ErrQuotaExceeded(remaining, count)
	}

	s.metrics.AddLeadsConsumed(count)
	return s.usageAfterUpdate(db, userID, sub, count), nil
}

// usageAfterUpdate перечитывает счетчик после успешной мутации: при
// конкурентных списаниях расчет от старого чтения занижал бы used.
// Если перечитать не удалось, списание все равно уже прошло - тогда
// отдаем расчет от старого снимка
func (s *entitlementService) usageAfterUpdate(db *gorm.DB, userID string, stale *models.Subscription, count int) *dto.ConsumeLeadsResponse {
	fresh, err := s.subscriptionRepo.FindCurrentByUserID(db, userID)
	if err != nil {
		logger.Warn("usage re-read failed after update", "user_id", userID, "error", err)
		used := stale.LeadsUsedThisMonth + count
		return &dto.ConsumeLeadsResponse{
			LeadsUsed:      used,
			LeadsRemaining: stale.Plan.LeadsPerMonth - used,
		}
	}
	return &dto.ConsumeLeadsResponse{
		LeadsUsed:      fresh.LeadsUsedThisMonth,
		LeadsRemaining: fresh.Plan.LeadsPerMonth - fresh.LeadsUsedThisMonth,
	}
}

// --- Возможности плана ---

// RequireActiveSubscription - гейт "есть хоть какая-то текущая подписка".
// Используется middleware-ом на платных маршрутах
func (s *entitlementService) RequireActiveSubscription(db *gorm.DB, userID string) error {
	_, err := s.resolveSubscription(db, userID)
	return err
}

// RequireFeature - гейт: ошибка, если план не включает возможность
func (s *entitlementService) RequireFeature(db *gorm.DB, userID string, feature models.Feature) error {
	sub, err := s.resolveSubscription(db, userID)
	if err != nil {
		return err
	}

	if !sub.Plan.Allows(feature) {
		s.metrics.IncFeatureDenied(string(feature))
		return apperrors.ErrFeatureNotAllowed(feature.Label())
	}
	return nil
}

// CanAccessFeature - программный вариант гейта: никогда не возвращает
// ошибку, "нет подписки" и "флаг выключен" схлопываются в false.
// Кому нужно различать - использует RequireFeature
func (s *entitlementService) CanAccessFeature(db *gorm.DB, userID string, feature models.Feature) bool {
	sub, err := s.subscriptionRepo.FindCurrentByUserID(db, userID)
	if err != nil {
		if !errors.Is(err, repositories.ErrSubscriptionNotFound) {
			logger.Error("feature check failed", "user_id", userID, "feature", feature, "error", err)
		}
		return false
	}
	return sub.Plan.Allows(feature)
}

// GetFeatureAvailability - карта возможностей для фронта.
// Без подписки все false, ошибки нет - дашборд должен рендериться всегда
func (s *entitlementService) GetFeatureAvailability(db *gorm.DB, userID string) (map[models.Feature]bool, error) {
	sub, err := s.subscriptionRepo.FindCurrentByUserID(db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			return models.EmptyFeatureMap(), nil
		}
		return nil, err
	}
	return sub.Plan.FeatureMap(), nil
}

// --- Отчеты ---

// usagePercentage вычисляет процент использования квоты.
// total == 0 дает ровно 100.0 (см. zeroQuotaMeansExhausted)
func usagePercentage(used, total int) float64 {
	if total == 0 {
		if zeroQuotaMeansExhausted {
			return 100.0
		}
		return 0.0
	}
	return math.Min(100.0, 100.0*float64(used)/float64(total))
}

// GetSubscriptionStatusInfo собирает сводку по подписке.
// Read-only; без подписки возвращает явные нулевые дефолты
func (s *entitlementService) GetSubscriptionStatusInfo(db *gorm.DB, userID string) (*dto.StatusInfo, error) {
	sub, err := s.subscriptionRepo.FindCurrentByUserID(db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			return &dto.StatusInfo{
				HasSubscription: false,
				Status:          "none",
				Features:        models.EmptyFeatureMap(),
			}, nil
		}
		return nil, err
	}

	info := &dto.StatusInfo{
		HasSubscription: true,
		PlanName:        sub.Plan.Name,
		Status:          string(sub.Status),
		IsTrial:         sub.Status == models.SubscriptionStatusTrialing,
		Features:        sub.Plan.FeatureMap(),
		LeadsUsed:       sub.LeadsUsedThisMonth,
		LeadsTotal:      sub.Plan.LeadsPerMonth,
		LeadsRemaining:  sub.Plan.LeadsPerMonth - sub.LeadsUsedThisMonth,
		UsagePercentage: usagePercentage(sub.LeadsUsedThisMonth, sub.Plan.LeadsPerMonth),
		RenewalDate:     sub.CurrentPeriodEnd,
		DueForRenewal:   dueForRenewal(sub, defaultRenewalThresholdDays),
		CancelAtEnd:     sub.CancelAtPeriodEnd,
		NextBilling:     nextBillingAmount(sub),
	}
	return info, nil
}

// GetSubscriptionDetails - сводка плюс последние платежи, снимок
// команды и тренд поисковых действий. Чистая read-through композиция
func (s *entitlementService) GetSubscriptionDetails(db *gorm.DB, userID string) (*dto.SubscriptionDetails, error) {
	info, err := s.GetSubscriptionStatusInfo(db, userID)
	if err != nil {
		return nil, err
	}

	payments, err := s.subscriptionRepo.FindRecentPaymentsByUser(db, userID, recentPaymentsLimit)
	if err != nil {
		return nil, err
	}

	team, err := s.CheckTeamMemberLimit(db, userID)
	if err != nil {
		return nil, err
	}

	since := time.Now().AddDate(0, 0, -usageTrendWindowDays)
	searches, err := s.subscriptionRepo.CountUserActions(db, userID, models.ActionSearch, since)
	if err != nil {
		return nil, err
	}

	return &dto.SubscriptionDetails{
		StatusInfo:     *info,
		RecentPayments: payments,
		Team:           *team,
		SearchTrend: dto.UsageTrend{
			Action: models.ActionSearch,
			Count:  searches,
			Days:   usageTrendWindowDays,
		},
	}, nil
}

func (s *entitlementService) CalculateLeadUsagePercentage(db *gorm.DB, userID string) (float64, error) {
	sub, err := s.subscriptionRepo.FindCurrentByUserID(db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			return 0.0, nil
		}
		return 0.0, err
	}
	return usagePercentage(sub.LeadsUsedThisMonth, sub.Plan.LeadsPerMonth), nil
}

// nextBillingAmount - цена плана, либо 0 если подписка доживает
// период после отмены
func nextBillingAmount(sub *models.Subscription) float64 {
	if sub == nil || sub.CancelAtPeriodEnd {
		return 0
	}
	return sub.Plan.Price
}

func (s *entitlementService) CalculateNextBillingAmount(db *gorm.DB, userID string) (float64, error) {
	sub, err := s.subscriptionRepo.FindCurrentByUserID(db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return nextBillingAmount(sub), nil
}

// --- Продление и sweep ---

func dueForRenewal(sub *models.Subscription, daysThreshold int) bool {
	if sub.CurrentPeriodEnd == nil {
		return false
	}
	deadline := time.Now().AddDate(0, 0, daysThreshold)
	return !sub.CurrentPeriodEnd.After(deadline)
}

// IsSubscriptionDueForRenewal - true, если конец периода не позже
// чем через daysThreshold дней. Без подписки - false, не ошибка
func (s *entitlementService) IsSubscriptionDueForRenewal(db *gorm.DB, userID string, daysThreshold int) (bool, error) {
	if daysThreshold <= 0 {
		daysThreshold = defaultRenewalThresholdDays
	}

	sub, err := s.subscriptionRepo.FindCurrentByUserID(db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			return false, nil
		}
		return false, err
	}
	return dueForRenewal(sub, daysThreshold), nil
}

// CheckSubscriptionExpiry - maintenance sweep, запускается планировщиком
// раз в сутки. Закрывает только явно отмененные подписки с истекшим
// периодом; остальные просроченные ждут события автопродления
func (s *entitlementService) CheckSubscriptionExpiry(db *gorm.DB) (int64, error) {
	count, err := s.subscriptionRepo.ExpireCanceledSubscriptions(db, time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.metrics.AddExpiredSubscriptions(count)
		logger.Info("expiry sweep finished", "transitioned", count)
	}
	return count, nil
}

// --- Команда и апгрейды ---

// CheckTeamMemberLimit сравнивает размер команды с лимитом плана.
// Без подписки лимит нулевой и считается достигнутым (fail-closed)
func (s *entitlementService) CheckTeamMemberLimit(db *gorm.DB, userID string) (*dto.TeamLimitInfo, error) {
	count, err := s.subscriptionRepo.CountTeamMembers(db, userID)
	if err != nil {
		return nil, err
	}

	sub, err := s.subscriptionRepo.FindCurrentByUserID(db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			return &dto.TeamLimitInfo{
				CurrentCount: int(count),
				MaxAllowed:   0,
				LimitReached: true,
			}, nil
		}
		return nil, err
	}

	return &dto.TeamLimitInfo{
		CurrentCount: int(count),
		MaxAllowed:   sub.Plan.MaxTeamMembers,
		LimitReached: int(count) >= sub.Plan.MaxTeamMembers,
	}, nil
}

// priceCents переводит цену в центы для сравнения без плавающей точки
func priceCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

// SuggestPlanUpgrade подбирает самый дешевый подходящий апгрейд.
// С targetFeature: первый по цене план, у которого флаг включен И цена
// строго выше текущей (для неподписанных подходит любой план с флагом).
// Без targetFeature: следующий план выше текущего в ценовом порядке;
// для неподписанных предложения нет - им показывается вся витрина
func (s *entitlementService) SuggestPlanUpgrade(db *gorm.DB, userID string, targetFeature models.Feature) (*dto.UpgradeSuggestion, error) {
	plans, err := s.subscriptionRepo.FindPlansOrderedByPrice(db)
	if err != nil {
		return nil, err
	}

	var currentPlan *models.Plan
	sub, err := s.subscriptionRepo.FindCurrentByUserID(db, userID)
	if err != nil && !errors.Is(err, repositories.ErrSubscriptionNotFound) {
		return nil, err
	}
	if err == nil {
		currentPlan = &sub.Plan
	}

	if targetFeature != "" {
		for i := range plans {
			plan := &plans[i]
			if !plan.Allows(targetFeature) {
				continue
			}
			if currentPlan != nil && priceCents(plan.Price) <= priceCents(currentPlan.Price) {
				continue
			}
			return &dto.UpgradeSuggestion{
				Plan:   plan,
				Reason: "cheapest plan with " + targetFeature.Label(),
			}, nil
		}
		return &dto.UpgradeSuggestion{Plan: nil}, nil
	}

	if currentPlan == nil {
		// Неподписанному пользователю "следующий план" не определен
		return &dto.UpgradeSuggestion{Plan: nil, Reason: "no current plan"}, nil
	}

	for i := range plans {
		if plans[i].ID == currentPlan.ID && i+1 < len(plans) {
			return &dto.UpgradeSuggestion{
				Plan:   &plans[i+1],
				Reason: "next tier above " + currentPlan.Name,
			}, nil
		}
	}
	return &dto.UpgradeSuggestion{Plan: nil}, nil
}
