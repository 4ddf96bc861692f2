package validator

import (
	"log"

	"leadforge_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules регистрирует доменные правила валидации
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// Ошибка времени запуска: без правил стартовать нельзя
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-feature", validateFeature)
	mustRegister("is-subscription-status", validateSubscriptionStatus)
	mustRegister("is-payment-status", validatePaymentStatus)
	mustRegister("is-usage-action", validateUsageAction)
}

// Пустые значения не проверяем: для них есть 'required'

func validateFeature(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.Feature(value).Valid()
}

func validateSubscriptionStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.SubscriptionStatus(value) {
	case models.SubscriptionStatusTrialing, models.SubscriptionStatusActive, models.SubscriptionStatusCanceled:
		return true
	default:
		return false
	}
}

func validatePaymentStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.PaymentStatus(value) {
	case models.PaymentStatusPending, models.PaymentStatusSucceeded, models.PaymentStatusFailed:
		return true
	default:
		return false
	}
}

func validateUsageAction(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch value {
	case models.ActionSearch, models.ActionExport, models.ActionEnrich, models.ActionVerify:
		return true
	default:
		return false
	}
}
