package routes

import (
	"net/http"

	"leadforge_backend/internal/handlers"
	"leadforge_backend/internal/middleware"
	"leadforge_backend/internal/models"
	"leadforge_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes собирает все маршруты приложения
func RegisterRoutes(
	r *gin.Engine,
	h *handlers.AppHandlers,
	entitlements services.EntitlementService,
	registry *prometheus.Registry,
) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := r.Group("/api/v1")

	// Public: auth и витрина планов
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.AuthHandler.Register)
		auth.POST("/login", h.AuthHandler.Login)
	}

	plans := api.Group("/plans")
	{
		plans.GET("", h.SubscriptionHandler.GetPlans)
		plans.GET("/:planId", h.SubscriptionHandler.GetPlan)
	}

	// External callback платежного провайдера (без JWT)
	api.POST("/billing/webhook", h.BillingHandler.ProcessWebhook)

	// Protected: состояние подписки и квоты
	subs := api.Group("/subscriptions")
	subs.Use(middleware.AuthMiddleware())
	{
		subs.GET("/my", h.SubscriptionHandler.GetMySubscription)
		subs.GET("/my/details", h.SubscriptionHandler.GetMySubscriptionDetails)
		subs.GET("/my/features", h.SubscriptionHandler.GetFeatureAvailability)
		subs.GET("/my/usage", h.SubscriptionHandler.GetUsagePercentage)
		subs.GET("/check-feature", h.SubscriptionHandler.CheckFeature)
		subs.GET("/check-limit", h.SubscriptionHandler.CheckLeadLimit)
		subs.POST("/consume-leads", h.SubscriptionHandler.ConsumeLeads)
		subs.PUT("/cancel", h.SubscriptionHandler.CancelSubscription)
		subs.GET("/upgrade-suggestion", h.SubscriptionHandler.GetUpgradeSuggestion)
	}

	// Protected: команда. Добавление закрыто фичегейтом team_access
	team := api.Group("/team")
	team.Use(middleware.AuthMiddleware())
	{
		team.GET("/limit", h.SubscriptionHandler.GetTeamLimit)
		team.POST("/members", h.SubscriptionHandler.AddTeamMember)
	}

	// Protected: журнал действий. Требует активной подписки
	usage := api.Group("/usage")
	usage.Use(middleware.AuthMiddleware(), middleware.RequireSubscription(entitlements))
	{
		usage.POST("/actions", h.SubscriptionHandler.RecordAction)
	}

	// Protected: платежи
	billing := api.Group("/billing")
	billing.Use(middleware.AuthMiddleware())
	{
		billing.GET("/payments", h.BillingHandler.GetPaymentHistory)
	}

	// Admin: обслуживание
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.UserRoleAdmin))
	{
		admin.POST("/subscriptions/expire", h.BillingHandler.RunExpirySweep)
	}
}
