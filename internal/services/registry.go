package services

import "leadforge_backend/internal/email"

// ServiceContainer содержит все сервисы приложения
type ServiceContainer struct {
	AuthService         AuthService
	EntitlementService  EntitlementService
	SubscriptionService SubscriptionService

	// EmailProvider живет в контейнере: им пользуются и сервисы
	// (уведомления о платежах), и воркеры (напоминания о продлении)
	EmailProvider email.Provider
}
