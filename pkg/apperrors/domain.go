package apperrors

import (
	"net/http"
)

/*
Фабрики для доменных ошибок подписок и лимитов.
Все проверки entitlement-движка возвращают ошибки отсюда,
чтобы HTTP-слой отдавал единый формат.
*/

// QuotaDetails - детали для ошибки превышения лимита лидов
type QuotaDetails struct {
	Remaining int `json:"remaining"`
	Requested int `json:"requested"`
}

// ErrNoSubscription - у пользователя нет активной или триальной подписки.
// Отдаем 402, фронт по этому коду показывает экран оплаты.
func ErrNoSubscription() *AppError {
	return New(CodeNoSubscription, "subscription", "Active subscription required", http.StatusPaymentRequired)
}

// ErrQuotaExceeded - запрошено больше лидов, чем осталось в месячной квоте
func ErrQuotaExceeded(remaining, requested int) *AppError {
	return New(CodeQuotaExceeded, "subscription", "Lead limit exceeded for current plan", http.StatusForbidden).
		WithDetails(QuotaDetails{Remaining: remaining, Requested: requested})
}

// ErrFeatureNotAllowed - текущий план не включает запрошенную возможность
func ErrFeatureNotAllowed(featureLabel string) *AppError {
	return New(CodeFeatureNotAllowed, "subscription",
		"Your current plan does not include the "+featureLabel+" feature", http.StatusForbidden).
		WithDetails(map[string]string{"feature": featureLabel})
}

// ErrUsageUpdateFailed - не удалось записать счетчик использования.
// Это ошибка персистентности, а не клиента, поэтому 500
func ErrUsageUpdateFailed(err error) *AppError {
	return Wrap(err, CodeUsageUpdateFailed, "subscription", "Failed to update lead usage", http.StatusInternalServerError)
}

// ErrNotFound - фабрика для ошибки "не найдено" (404).
// Используется, когда ошибка репозитория (типа gorm.ErrRecordNotFound)
// должна быть преобразована в AppError
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists - фабрика для ошибки "уже существует" (409)
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}
