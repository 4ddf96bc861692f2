package email

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// SMTPConfig содержит конфигурацию SMTP сервера
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// GomailProvider реализует Provider поверх gomail
type GomailProvider struct {
	config   *SMTPConfig
	dialer   *gomail.Dialer
	renderer *TemplateManager
}

// NewGomailProvider создает SMTP провайдер
func NewGomailProvider(config *SMTPConfig, renderer *TemplateManager) (*GomailProvider, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if config.Port <= 0 || config.Port > 65535 {
		return nil, fmt.Errorf("invalid SMTP port: %d", config.Port)
	}

	return &GomailProvider{
		config:   config,
		dialer:   gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		renderer: renderer,
	}, nil
}

func (p *GomailProvider) from() string {
	if p.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", p.config.FromName, p.config.FromEmail)
	}
	return p.config.FromEmail
}

// Send отправляет email сообщение
func (p *GomailProvider) Send(email *Email) error {
	m := gomail.NewMessage()
	m.SetHeader("From", p.from())
	m.SetHeader("To", email.To...)
	m.SetHeader("Subject", email.Subject)

	if email.HTMLBody != "" {
		m.SetBody("text/html", email.HTMLBody)
	} else {
		m.SetBody("text/plain", email.Body)
	}

	if err := p.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendRenewalReminder отправляет напоминание о скором продлении
func (p *GomailProvider) SendRenewalReminder(to, planName string, periodEnd time.Time, amount float64) error {
	body, err := p.renderer.Render(TemplateRenewalReminder, TemplateData{
		"PlanName":    planName,
		"RenewalDate": periodEnd.Format("January 2, 2006"),
		"Amount":      amount,
	})
	if err != nil {
		return err
	}

	return p.Send(&Email{
		To:       []string{to},
		Subject:  "Your subscription renews soon",
		HTMLBody: body,
	})
}

// SendPaymentFailed уведомляет о неуспешном списании
func (p *GomailProvider) SendPaymentFailed(to string, amount float64) error {
	body, err := p.renderer.Render(TemplatePaymentFailed, TemplateData{
		"Amount": amount,
	})
	if err != nil {
		return err
	}

	return p.Send(&Email{
		To:       []string{to},
		Subject:  "Payment failed",
		HTMLBody: body,
	})
}

// Close закрывает соединение (gomail открывает его на каждую отправку)
func (p *GomailProvider) Close() error {
	return nil
}
