package email

import "time"

// Email представляет структуру email сообщения
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// TemplateData представляет данные для шаблонов писем
type TemplateData map[string]interface{}

// Provider определяет интерфейс для отправки email
type Provider interface {
	// Send отправляет произвольное сообщение
	Send(email *Email) error

	// SendRenewalReminder отправляет напоминание о скором продлении
	SendRenewalReminder(to, planName string, periodEnd time.Time, amount float64) error

	// SendPaymentFailed уведомляет о неуспешном списании
	SendPaymentFailed(to string, amount float64) error

	// Close закрывает соединение с провайдером
	Close() error
}
