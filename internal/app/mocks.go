package app

import (
	"time"

	"leadforge_backend/internal/email"
)

// MockEmailProvider используется для тестов и локальной разработки
type MockEmailProvider struct{}

func (m *MockEmailProvider) Send(msg *email.Email) error { return nil }
func (m *MockEmailProvider) SendRenewalReminder(to, planName string, periodEnd time.Time, amount float64) error {
	return nil
}
func (m *MockEmailProvider) SendPaymentFailed(to string, amount float64) error { return nil }
func (m *MockEmailProvider) Close() error                                      { return nil }
