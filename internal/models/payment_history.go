package models

// PaymentHistory - append-only журнал платежных событий.
// Пишется только обработчиком webhook-ов платежного провайдера,
// остальной код его только читает
type PaymentHistory struct {
	BaseModel
	UserID            string        `gorm:"type:uuid;not null;index" json:"user_id"`
	ProviderPaymentID string        `gorm:"index" json:"-"`
	Amount            float64       `gorm:"not null" json:"amount"`
	Status            PaymentStatus `gorm:"not null" json:"status"`
	Description       string        `json:"description"`
}

func (PaymentHistory) TableName() string {
	return "payment_history"
}
