package handlers

import (
	"net/http"

	"leadforge_backend/internal/dto"
	"leadforge_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// BillingHandler - точка входа для платежного провайдера и
// администраторских операций обслуживания
type BillingHandler struct {
	*BaseHandler
	subscriptionService services.SubscriptionService
	entitlements        services.EntitlementService
}

func NewBillingHandler(
	base *BaseHandler,
	subscriptionService services.SubscriptionService,
	entitlements services.EntitlementService,
) *BillingHandler {
	return &BillingHandler{
		BaseHandler:         base,
		subscriptionService: subscriptionService,
		entitlements:        entitlements,
	}
}

// ProcessWebhook принимает событие провайдера. Без авторизации:
// внешний коллбек, подлинность проверяется подписью на уровне
// reverse proxy (провайдер-специфичная проверка вне зоны этого сервиса)
func (h *BillingHandler) ProcessWebhook(c *gin.Context) {
	var event dto.WebhookEvent
	if !h.BindAndValidate_JSON(c, &event) {
		return
	}

	if err := h.subscriptionService.ApplyWebhookEvent(c.Request.Context(), h.GetDB(c), &event); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Event processed"})
}

func (h *BillingHandler) GetPaymentHistory(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	limit := ParseQueryInt(c, "limit", 20)

	payments, err := h.subscriptionService.GetPaymentHistory(h.GetDB(c), userID, limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": payments,
		"total":    len(payments),
	})
}

// RunExpirySweep - ручной запуск sweep-а (админ). Обычно его
// гоняет воркер по расписанию
func (h *BillingHandler) RunExpirySweep(c *gin.Context) {
	if _, ok := h.GetAndAuthorizeUserID(c); !ok {
		return
	}

	count, err := h.entitlements.CheckSubscriptionExpiry(h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired": count})
}
