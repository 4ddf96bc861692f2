package handlers

import (
	"net/http"

	"leadforge_backend/internal/models"
	"leadforge_backend/internal/services"
	"leadforge_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	*BaseHandler
	subscriptionService services.SubscriptionService
	entitlements        services.EntitlementService
}

func NewSubscriptionHandler(
	base *BaseHandler,
	subscriptionService services.SubscriptionService,
	entitlements services.EntitlementService,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		BaseHandler:         base,
		subscriptionService: subscriptionService,
		entitlements:        entitlements,
	}
}

// --- Plan handlers ---

func (h *SubscriptionHandler) GetPlans(c *gin.Context) {
	plans, err := h.subscriptionService.ListPlans(c.Request.Context(), h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plans": plans,
		"total": len(plans),
	})
}

func (h *SubscriptionHandler) GetPlan(c *gin.Context) {
	planID := c.Param("planId")

	plan, err := h.subscriptionService.GetPlan(h.GetDB(c), planID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// --- Subscription status handlers ---

func (h *SubscriptionHandler) GetMySubscription(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	info, err := h.entitlements.GetSubscriptionStatusInfo(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *SubscriptionHandler) GetMySubscriptionDetails(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	details, err := h.entitlements.GetSubscriptionDetails(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

func (h *SubscriptionHandler) GetFeatureAvailability(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	features, err := h.entitlements.GetFeatureAvailability(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"features": features})
}

// CheckFeature - программная проверка одной возможности (?feature=csv_export)
func (h *SubscriptionHandler) CheckFeature(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	feature := models.Feature(c.Query("feature"))
	if !feature.Valid() {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Unknown or missing feature parameter"))
		return
	}

	allowed := h.entitlements.CanAccessFeature(h.GetDB(c), userID, feature)
	c.JSON(http.StatusOK, gin.H{
		"feature": feature,
		"allowed": allowed,
	})
}

// --- Quota handlers ---

func (h *SubscriptionHandler) CheckLeadLimit(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	requested := ParseQueryInt(c, "count", 1)

	allowed, err := h.entitlements.CheckLeadLimit(h.GetDB(c), userID, requested)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"allowed":   allowed,
		"requested": requested,
	})
}

func (h *SubscriptionHandler) ConsumeLeads(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req struct {
		Count int `json:"count" validate:"required,gt=0"`
	}
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.entitlements.ConsumeLeads(h.GetDB(c), userID, req.Count)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) GetUsagePercentage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	pct, err := h.entitlements.CalculateLeadUsagePercentage(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"usage_percentage": pct})
}

// --- Lifecycle handlers ---

func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	sub, err := h.subscriptionService.CancelAtPeriodEnd(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Subscription will be canceled at period end",
		"period_end": sub.CurrentPeriodEnd,
	})
}

func (h *SubscriptionHandler) GetUpgradeSuggestion(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	feature := models.Feature(c.Query("feature"))
	if feature != "" && !feature.Valid() {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Unknown feature parameter"))
		return
	}

	suggestion, err := h.entitlements.SuggestPlanUpgrade(h.GetDB(c), userID, feature)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, suggestion)
}

// --- Team handlers ---

func (h *SubscriptionHandler) GetTeamLimit(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	info, err := h.entitlements.CheckTeamMemberLimit(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *SubscriptionHandler) AddTeamMember(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	member, err := h.subscriptionService.AddTeamMember(h.GetDB(c), userID, req.Email)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, member)
}

// --- Usage log handlers ---

func (h *SubscriptionHandler) RecordAction(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req struct {
		Action  string                 `json:"action" validate:"required,is-usage-action"`
		Details map[string]interface{} `json:"details"`
	}
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.subscriptionService.RecordAction(h.GetDB(c), userID, req.Action, req.Details); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Action recorded"})
}
