package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"leadforge_backend/internal/cache"
	"leadforge_backend/internal/dto"
	"leadforge_backend/internal/email"
	"leadforge_backend/internal/logger"
	"leadforge_backend/internal/models"
	"leadforge_backend/internal/repositories"
	"leadforge_backend/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Типы событий провайдера, которые мы умеем применять
const (
	WebhookSubscriptionCreated = "subscription.created"
	WebhookSubscriptionUpdated = "subscription.updated"
	WebhookSubscriptionDeleted = "subscription.deleted"
	WebhookPaymentSucceeded    = "payment.succeeded"
	WebhookPaymentFailed       = "payment.failed"
)

// SubscriptionService - жизненный цикл подписок: витрина планов,
// применение событий биллинга, отмена, журнал действий.
// Проверки доступа живут отдельно, в EntitlementService
type SubscriptionService interface {
	ListPlans(ctx context.Context, db *gorm.DB) ([]models.Plan, error)
	GetPlan(db *gorm.DB, planID string) (*models.Plan, error)

	ApplyWebhookEvent(ctx context.Context, db *gorm.DB, event *dto.WebhookEvent) error
	CancelAtPeriodEnd(db *gorm.DB, userID string) (*models.Subscription, error)

	RecordAction(db *gorm.DB, userID, action string, details map[string]interface{}) error
	GetPaymentHistory(db *gorm.DB, userID string, limit int) ([]models.PaymentHistory, error)

	AddTeamMember(db *gorm.DB, ownerID, memberEmail string) (*models.TeamMember, error)
}

type subscriptionService struct {
	subscriptionRepo repositories.SubscriptionRepository
	userRepo         repositories.UserRepository
	entitlements     EntitlementService
	planCache        cache.PlanCache
	emailProvider    email.Provider
}

func NewSubscriptionService(
	subscriptionRepo repositories.SubscriptionRepository,
	userRepo repositories.UserRepository,
	entitlements EntitlementService,
	planCache cache.PlanCache,
	emailProvider email.Provider,
) SubscriptionService {
	return &subscriptionService{
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
		entitlements:     entitlements,
		planCache:        planCache,
		emailProvider:    emailProvider,
	}
}

// ListPlans - витрина тарифов, read-through через Redis.
// Порядок всегда по возрастанию цены
func (s *subscriptionService) ListPlans(ctx context.Context, db *gorm.DB) ([]models.Plan, error) {
	if plans, ok := s.planCache.GetPlans(ctx); ok {
		return plans, nil
	}

	plans, err := s.subscriptionRepo.FindPlansOrderedByPrice(db)
	if err != nil {
		return nil, err
	}

	s.planCache.SetPlans(ctx, plans)
	return plans, nil
}

func (s *subscriptionService) GetPlan(db *gorm.DB, planID string) (*models.Plan, error) {
	plan, err := s.subscriptionRepo.FindPlanByID(db, planID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlanNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, err
	}
	return plan, nil
}

// ApplyWebhookEvent применяет событие платежного провайдера к нашему
// состоянию. Идемпотентность: повторная доставка payment.* с тем же
// provider_payment_id не создает дубликат записи
func (s *subscriptionService) ApplyWebhookEvent(ctx context.Context, db *gorm.DB, event *dto.WebhookEvent) error {
	switch event.Type {
	case WebhookSubscriptionCreated, WebhookSubscriptionUpdated, WebhookSubscriptionDeleted:
		// Пустой subscription_id искал бы по пустому provider id и мог
		// зацепить чужую строку. Такое событие отклоняем сразу
		if event.Data.SubscriptionID == "" {
			return apperrors.NewBadRequestError("Webhook event is missing subscription_id")
		}
	}

	switch event.Type {
	case WebhookSubscriptionCreated:
		return s.applySubscriptionCreated(db, &event.Data)
	case WebhookSubscriptionUpdated:
		return s.applySubscriptionUpdated(db, &event.Data)
	case WebhookSubscriptionDeleted:
		return s.applySubscriptionDeleted(db, &event.Data)
	case WebhookPaymentSucceeded, WebhookPaymentFailed:
		return s.applyPaymentEvent(db, event.Type, &event.Data)
	default:
		// Незнакомые события подтверждаем, чтобы провайдер не ретраил
		logger.Warn("ignoring unknown webhook event", "type", event.Type)
		return nil
	}
}

func unixPtr(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

func (s *subscriptionService) applySubscriptionCreated(db *gorm.DB, data *dto.WebhookEventData) error {
	if data.UserID == "" || data.PlanID == "" {
		return apperrors.NewBadRequestError("Webhook event is missing user_id or plan_id")
	}

	if _, err := s.subscriptionRepo.FindPlanByID(db, data.PlanID); err != nil {
		if errors.Is(err, repositories.ErrPlanNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return err
	}

	// Повторная доставка created: обновляем существующую запись
	if existing, err := s.subscriptionRepo.FindByProviderSubscriptionID(db, data.SubscriptionID); err == nil {
		return s.updateFromEvent(db, existing, data)
	} else if !errors.Is(err, repositories.ErrSubscriptionNotFound) {
		return err
	}

	status := models.SubscriptionStatusActive
	if data.Status != "" {
		status = models.SubscriptionStatus(data.Status)
	}

	sub := &models.Subscription{
		UserID:                 data.UserID,
		PlanID:                 data.PlanID,
		Status:                 status,
		ProviderCustomerID:     data.CustomerID,
		ProviderSubscriptionID: data.SubscriptionID,
		CurrentPeriodStart:     unixPtr(data.CurrentPeriodStart),
		CurrentPeriodEnd:       unixPtr(data.CurrentPeriodEnd),
		CancelAtPeriodEnd:      data.CancelAtPeriodEnd,
	}
	if err := s.subscriptionRepo.CreateSubscription(db, sub); err != nil {
		return err
	}

	logger.Info("subscription created from webhook",
		"user_id", data.UserID, "plan_id", data.PlanID, "status", status)
	return nil
}

func (s *subscriptionService) updateFromEvent(db *gorm.DB, sub *models.Subscription, data *dto.WebhookEventData) error {
	if data.PlanID != "" && data.PlanID != sub.PlanID {
		if _, err := s.subscriptionRepo.FindPlanByID(db, data.PlanID); err != nil {
			if errors.Is(err, repositories.ErrPlanNotFound) {
				return apperrors.ErrNotFound(err)
			}
			return err
		}
		sub.PlanID = data.PlanID
		// Смена плана начинает новый биллинговый цикл
		sub.LeadsUsedThisMonth = 0
	}
	if data.Status != "" {
		sub.Status = models.SubscriptionStatus(data.Status)
	}
	if data.CustomerID != "" {
		sub.ProviderCustomerID = data.CustomerID
	}
	if start := unixPtr(data.CurrentPeriodStart); start != nil {
		// Новый период = обнуление месячного счетчика
		if sub.CurrentPeriodStart == nil || start.After(*sub.CurrentPeriodStart) {
			sub.LeadsUsedThisMonth = 0
		}
		sub.CurrentPeriodStart = start
	}
	if end := unixPtr(data.CurrentPeriodEnd); end != nil {
		sub.CurrentPeriodEnd = end
	}
	sub.CancelAtPeriodEnd = data.CancelAtPeriodEnd

	return s.subscriptionRepo.UpdateSubscription(db, sub)
}

func (s *subscriptionService) applySubscriptionUpdated(db *gorm.DB, data *dto.WebhookEventData) error {
	sub, err := s.subscriptionRepo.FindByProviderSubscriptionID(db, data.SubscriptionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			// updated раньше created - применяем как created
			return s.applySubscriptionCreated(db, data)
		}
		return err
	}
	return s.updateFromEvent(db, sub, data)
}

func (s *subscriptionService) applySubscriptionDeleted(db *gorm.DB, data *dto.WebhookEventData) error {
	sub, err := s.subscriptionRepo.FindByProviderSubscriptionID(db, data.SubscriptionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			// Уже нет - подтверждаем, событие терминальное
			return nil
		}
		return err
	}

	sub.Status = models.SubscriptionStatusCanceled
	if err := s.subscriptionRepo.UpdateSubscription(db, sub); err != nil {
		return err
	}

	logger.Info("subscription canceled from webhook", "user_id", sub.UserID)
	return nil
}

func (s *subscriptionService) applyPaymentEvent(db *gorm.DB, eventType string, data *dto.WebhookEventData) error {
	if data.PaymentID != "" {
		if _, err := s.subscriptionRepo.FindPaymentByProviderID(db, data.PaymentID); err == nil {
			// Дубль доставки
			return nil
		} else if !errors.Is(err, repositories.ErrPaymentNotFound) {
			return err
		}
	}

	status := models.PaymentStatusSucceeded
	if eventType == WebhookPaymentFailed {
		status = models.PaymentStatusFailed
	}

	payment := &models.PaymentHistory{
		UserID:            data.UserID,
		ProviderPaymentID: data.PaymentID,
		Amount:            data.Amount,
		Status:            status,
		Description:       data.Description,
	}
	if err := s.subscriptionRepo.CreatePayment(db, payment); err != nil {
		return err
	}

	if status == models.PaymentStatusFailed {
		logger.Warn("payment failed", "user_id", data.UserID, "amount", data.Amount)
		s.notifyPaymentFailed(db, data)
	}
	return nil
}

// notifyPaymentFailed шлет пользователю письмо о неуспешном списании.
// Best-effort: сбой доставки не должен ронять обработку события,
// провайдер все равно будет ретраить платеж
func (s *subscriptionService) notifyPaymentFailed(db *gorm.DB, data *dto.WebhookEventData) {
	user, err := s.userRepo.FindByID(db, data.UserID)
	if err != nil {
		logger.Warn("payment failed notice: user lookup failed", "user_id", data.UserID, "error", err)
		return
	}
	if err := s.emailProvider.SendPaymentFailed(user.Email, data.Amount); err != nil {
		logger.Warn("payment failed notice: send failed", "user_id", data.UserID, "error", err)
	}
}

// CancelAtPeriodEnd помечает подписку к закрытию в конце периода.
// Доступ сохраняется до конца оплаченного периода, дальше ее
// заберет ежедневный sweep
func (s *subscriptionService) CancelAtPeriodEnd(db *gorm.DB, userID string) (*models.Subscription, error) {
	sub, err := s.subscriptionRepo.FindCurrentByUserID(db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			return nil, apperrors.ErrNoSubscription()
		}
		return nil, err
	}

	if sub.CancelAtPeriodEnd {
		return sub, nil
	}

	sub.CancelAtPeriodEnd = true
	if err := s.subscriptionRepo.UpdateSubscription(db, sub); err != nil {
		return nil, err
	}

	logger.Info("subscription scheduled for cancellation",
		"user_id", userID, "period_end", sub.CurrentPeriodEnd)
	return sub, nil
}

// RecordAction пишет действие пользователя в журнал использования
func (s *subscriptionService) RecordAction(db *gorm.DB, userID, action string, details map[string]interface{}) error {
	entry := &models.UsageLog{
		UserID: userID,
		Action: action,
	}
	if details != nil {
		payload, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal usage details: %w", err)
		}
		entry.Details = datatypes.JSON(payload)
	}
	return s.subscriptionRepo.CreateUsageLog(db, entry)
}

func (s *subscriptionService) GetPaymentHistory(db *gorm.DB, userID string, limit int) ([]models.PaymentHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.subscriptionRepo.FindRecentPaymentsByUser(db, userID, limit)
}

// AddTeamMember добавляет участника команды после проверки лимита плана.
// Гейт двойной: сначала флаг team_access, затем численный лимит
func (s *subscriptionService) AddTeamMember(db *gorm.DB, ownerID, memberEmail string) (*models.TeamMember, error) {
	if err := s.entitlements.RequireFeature(db, ownerID, models.FeatureTeamAccess); err != nil {
		return nil, err
	}

	limit, err := s.entitlements.CheckTeamMemberLimit(db, ownerID)
	if err != nil {
		return nil, err
	}
	if limit.LimitReached {
		return nil, apperrors.New(
			apperrors.CodeTeamLimitReached,
			"subscription",
			fmt.Sprintf("Team member limit reached (%d of %d)", limit.CurrentCount, limit.MaxAllowed),
			http.StatusForbidden,
		)
	}

	member := &models.TeamMember{
		OwnerID:     ownerID,
		MemberEmail: memberEmail,
		Role:        models.TeamRoleMember,
	}
	if err := s.subscriptionRepo.CreateTeamMember(db, member); err != nil {
		return nil, err
	}
	return member, nil
}
