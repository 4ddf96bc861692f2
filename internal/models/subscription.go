package models

import (
	"time"

	"gorm.io/datatypes"
)

// Plan - тарифный план. Справочные данные: создаются сидом или админом,
// движок entitlement-ов их только читает
type Plan struct {
	BaseModel
	Name            string         `gorm:"not null" json:"name"`
	Description     string         `json:"description"`
	Price           float64        `gorm:"not null" json:"price"`
	BillingInterval string         `gorm:"default:'month'" json:"billing_interval"` // month, year
	Features        datatypes.JSON `gorm:"type:jsonb" json:"features"`              // маркетинговый список для витрины
	LeadsPerMonth   int            `gorm:"not null" json:"leads_per_month"`
	MaxTeamMembers  int            `gorm:"default:0" json:"max_team_members"`

	// Флаги возможностей плана. Читаются только через Allows(),
	// см. feature.go
	AllowsCSVExport     bool `gorm:"default:false" json:"allows_csv_export"`
	AllowsCRMSync       bool `gorm:"default:false" json:"allows_crm_sync"`
	AllowsTeamAccess    bool `gorm:"default:false" json:"allows_team_access"`
	AllowsAPIAccess     bool `gorm:"default:false" json:"allows_api_access"`
	AllowsWhiteLabeling bool `gorm:"default:false" json:"allows_white_labeling"`
	AllowsEnrichment    bool `gorm:"default:false" json:"allows_enrichment"`
}

// Subscription - подписка пользователя на план.
// Инвариант: не больше одной подписки в статусе active/trialing на пользователя
// (частичный уникальный индекс, см. database/migrate.go).
// Строки никогда не удаляются - история нужна для сверки биллинга
type Subscription struct {
	BaseModel
	UserID                 string             `gorm:"type:uuid;not null;index" json:"user_id"`
	PlanID                 string             `gorm:"type:uuid;not null;index" json:"plan_id"`
	Status                 SubscriptionStatus `gorm:"not null;default:'active'" json:"status"`
	ProviderCustomerID     string             `json:"-"` // ID клиента у платежного провайдера
	ProviderSubscriptionID string             `gorm:"index" json:"-"`
	LeadsUsedThisMonth     int                `gorm:"not null;default:0" json:"leads_used_this_month"`
	CurrentPeriodStart     *time.Time         `json:"current_period_start"`
	CurrentPeriodEnd       *time.Time         `json:"current_period_end"`
	CancelAtPeriodEnd      bool               `gorm:"default:false" json:"cancel_at_period_end"`

	// Relations
	Plan Plan `gorm:"foreignKey:PlanID" json:"plan"`
}

// IsCurrent сообщает, дает ли подписка доступ прямо сейчас по статусу
func (s *Subscription) IsCurrent() bool {
	return s.Status == SubscriptionStatusActive || s.Status == SubscriptionStatusTrialing
}
