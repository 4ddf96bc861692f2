package email

import (
	"fmt"
	"html/template"
	"strings"
	"sync"
)

// Имена встроенных шаблонов
const (
	TemplateRenewalReminder = "renewal_reminder"
	TemplatePaymentFailed   = "payment_failed"
)

var defaultTemplates = map[string]string{
	TemplateRenewalReminder: `<html><body>
<p>Your <b>{{.PlanName}}</b> subscription renews on {{.RenewalDate}}.</p>
<p>Amount due: ${{printf "%.2f" .Amount}}</p>
<p>No action is needed if your payment method is up to date.</p>
</body></html>`,
	TemplatePaymentFailed: `<html><body>
<p>We could not process your payment of ${{printf "%.2f" .Amount}}.</p>
<p>Please update your payment method to keep your subscription active.</p>
</body></html>`,
}

// TemplateManager хранит и рендерит шаблоны писем
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

// NewTemplateManager создает менеджер с предзагруженными шаблонами
func NewTemplateManager() (*TemplateManager, error) {
	tm := &TemplateManager{
		templates: make(map[string]*template.Template),
	}
	for name, body := range defaultTemplates {
		if err := tm.AddTemplate(name, body); err != nil {
			return nil, err
		}
	}
	return tm, nil
}

// Render рендерит шаблон с данными
func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// AddTemplate добавляет или заменяет шаблон
func (tm *TemplateManager) AddTemplate(name string, templateStr string) error {
	tpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()

	return nil
}
