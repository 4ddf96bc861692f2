package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Константы для типов действий
const (
	ActionSearch = "search"
	ActionExport = "export"
	ActionEnrich = "enrich"
	ActionVerify = "verify"
)

// UsageLog - запись об одном действии пользователя.
// Append-only: пишется слоем приложения в момент действия,
// движок использует его только для отчетов по трендам
type UsageLog struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Action    string         `gorm:"type:varchar(100);not null;index" json:"action"`
	Details   datatypes.JSON `gorm:"type:jsonb" json:"details"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (UsageLog) TableName() string {
	return "usage_logs"
}

func (l *UsageLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
