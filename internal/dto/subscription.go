package dto

import (
	"time"

	"leadforge_backend/internal/models"
)

// StatusInfo - сводка по подписке для дашборда.
// Никогда не является ошибкой: без подписки возвращаются нулевые дефолты
type StatusInfo struct {
	HasSubscription bool                    `json:"has_subscription"`
	PlanName        string                  `json:"plan_name"`
	Status          string                  `json:"status"`
	IsTrial         bool                    `json:"is_trial"`
	Features        map[models.Feature]bool `json:"features"`
	LeadsUsed       int                     `json:"leads_used"`
	LeadsTotal      int                     `json:"leads_total"`
	LeadsRemaining  int                     `json:"leads_remaining"`
	UsagePercentage float64                 `json:"usage_percentage"`
	RenewalDate     *time.Time              `json:"renewal_date"`
	DueForRenewal   bool                    `json:"due_for_renewal"`
	CancelAtEnd     bool                    `json:"cancel_at_period_end"`
	NextBilling     float64                 `json:"next_billing_amount"`
}

// TeamLimitInfo - снимок лимита команды.
// Без подписки: MaxAllowed = 0 и LimitReached = true (fail-closed)
type TeamLimitInfo struct {
	CurrentCount int  `json:"current_count"`
	MaxAllowed   int  `json:"max_allowed"`
	LimitReached bool `json:"limit_reached"`
}

// UsageTrend - счетчик действий за отчетное окно
type UsageTrend struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
	Days   int    `json:"days"`
}

// SubscriptionDetails - полная карточка подписки:
// сводка + последние платежи + команда + тренд поиска
type SubscriptionDetails struct {
	StatusInfo
	RecentPayments []models.PaymentHistory `json:"recent_payments"`
	Team           TeamLimitInfo           `json:"team"`
	SearchTrend    UsageTrend              `json:"search_trend"`
}

// UpgradeSuggestion - результат подбора апгрейда.
// Plan == nil означает "предложения нет"
type UpgradeSuggestion struct {
	Plan   *models.Plan `json:"plan"`
	Reason string       `json:"reason,omitempty"`
}

// ConsumeLeadsRequest - запрос на списание лидов из квоты
type ConsumeLeadsRequest struct {
	Count int `json:"count" validate:"required,gt=0"`
}

// ConsumeLeadsResponse - результат успешного списания
type ConsumeLeadsResponse struct {
	LeadsUsed      int `json:"leads_used"`
	LeadsRemaining int `json:"leads_remaining"`
}

// WebhookEvent - событие от платежного провайдера (формат упрощенного
// provider-agnostic коллбека, см. billing_handler)
type WebhookEvent struct {
	Type string           `json:"type" validate:"required"`
	Data WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	UserID             string  `json:"user_id"`
	PlanID             string  `json:"plan_id"`
	CustomerID         string  `json:"customer_id"`
	SubscriptionID     string  `json:"subscription_id"`
	PaymentID          string  `json:"payment_id"`
	Status             string  `json:"status"`
	Amount             float64 `json:"amount"`
	Description        string  `json:"description"`
	CurrentPeriodStart int64   `json:"current_period_start"` // unix
	CurrentPeriodEnd   int64   `json:"current_period_end"`   // unix
	CancelAtPeriodEnd  bool    `json:"cancel_at_period_end"`
}
