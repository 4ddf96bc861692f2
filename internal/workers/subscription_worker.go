package workers

import (
	"context"
	"time"

	"leadforge_backend/internal/email"
	"leadforge_backend/internal/logger"
	"leadforge_backend/internal/repositories"
	"leadforge_backend/internal/services"

	"gorm.io/gorm"
)

// SubscriptionWorker гоняет периодические задачи биллингового цикла:
// ежедневный sweep отмененных подписок, напоминания о продлении
// и месячный сброс счетчиков
type SubscriptionWorker struct {
	db               *gorm.DB
	entitlements     services.EntitlementService
	subscriptionRepo repositories.SubscriptionRepository
	userRepo         repositories.UserRepository
	emailProvider    email.Provider

	sweepInterval    time.Duration
	renewalThreshold time.Duration
}

func NewSubscriptionWorker(
	db *gorm.DB,
	entitlements services.EntitlementService,
	subscriptionRepo repositories.SubscriptionRepository,
	userRepo repositories.UserRepository,
	emailProvider email.Provider,
	sweepIntervalHours, renewalThresholdDays int,
) *SubscriptionWorker {
	if sweepIntervalHours <= 0 {
		sweepIntervalHours = 24
	}
	if renewalThresholdDays <= 0 {
		renewalThresholdDays = 7
	}
	return &SubscriptionWorker{
		db:               db,
		entitlements:     entitlements,
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
		emailProvider:    emailProvider,
		sweepInterval:    time.Duration(sweepIntervalHours) * time.Hour,
		renewalThreshold: time.Duration(renewalThresholdDays) * 24 * time.Hour,
	}
}

// Start запускает фоновые задачи для подписок
func (w *SubscriptionWorker) Start(ctx context.Context) {
	go w.runExpirySweep(ctx)
	go w.runRenewalReminders(ctx)
	go w.runMonthlyReset(ctx)
}

// runExpirySweep закрывает отмененные подписки с истекшим периодом
func (w *SubscriptionWorker) runExpirySweep(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("subscription worker stopped", "task", "expiry_sweep")
			return
		case <-ticker.C:
			_, err := w.entitlements.CheckSubscriptionExpiry(w.db)
			logger.WorkerLog("subscription", "expiry_sweep", err)
		}
	}
}

// runRenewalReminders раз в сутки шлет письма тем, у кого продление
// в пределах порога и не стоит отмена
func (w *SubscriptionWorker) runRenewalReminders(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("subscription worker stopped", "task", "renewal_reminders")
			return
		case <-ticker.C:
			w.sendRenewalReminders()
		}
	}
}

func (w *SubscriptionWorker) sendRenewalReminders() {
	before := time.Now().Add(w.renewalThreshold)
	subs, err := w.subscriptionRepo.FindDueForRenewal(w.db, before)
	if err != nil {
		logger.WorkerLog("subscription", "renewal_reminders", err)
		return
	}

	sent := 0
	for _, sub := range subs {
		if sub.CancelAtPeriodEnd || sub.CurrentPeriodEnd == nil {
			continue
		}

		user, err := w.userRepo.FindByID(w.db, sub.UserID)
		if err != nil {
			logger.Warn("renewal reminder: user lookup failed", "user_id", sub.UserID, "error", err)
			continue
		}

		err = w.emailProvider.SendRenewalReminder(user.Email, sub.Plan.Name, *sub.CurrentPeriodEnd, sub.Plan.Price)
		if err != nil {
			logger.Warn("renewal reminder: send failed", "user_id", sub.UserID, "error", err)
			continue
		}
		sent++
	}

	logger.Info("renewal reminders sent", "count", sent, "candidates", len(subs))
}

// runMonthlyReset обнуляет месячные счетчики первого числа.
// Подстраховка на случай, если провайдер не прислал событие
// нового периода для какой-то подписки
func (w *SubscriptionWorker) runMonthlyReset(ctx context.Context) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("subscription worker stopped", "task", "monthly_reset")
			return
		case <-timer.C:
			count, err := w.subscriptionRepo.ResetMonthlyUsage(w.db)
			logger.WorkerLog("subscription", "monthly_reset", err)
			if err == nil {
				logger.Info("monthly usage reset", "subscriptions", count)
			}
		}
	}
}
