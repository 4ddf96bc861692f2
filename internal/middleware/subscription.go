package middleware

import (
	"errors"

	"leadforge_backend/internal/models"
	"leadforge_backend/internal/services"
	"leadforge_backend/pkg/apperrors"
	"leadforge_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var errDBNotInContext = errors.New("db not found in request context")

// dbFromContext достает *gorm.DB, положенный DBMiddleware
func dbFromContext(c *gin.Context) (*gorm.DB, bool) {
	val, ok := c.Get(string(contextkeys.DBContextKey))
	if !ok {
		return nil, false
	}
	db, ok := val.(*gorm.DB)
	return db, ok
}

// RequireSubscription закрывает маршрут для пользователей без
// активной или триальной подписки (402)
func RequireSubscription(entitlements services.EntitlementService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == "" {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
			c.Abort()
			return
		}

		db, ok := dbFromContext(c)
		if !ok {
			apperrors.HandleError(c, apperrors.InternalError(errDBNotInContext))
			c.Abort()
			return
		}

		if err := entitlements.RequireActiveSubscription(db, userID); err != nil {
			apperrors.HandleError(c, err)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireFeature закрывает маршрут, если план пользователя
// не включает указанную возможность (403; без подписки - 402)
func RequireFeature(entitlements services.EntitlementService, feature models.Feature) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == "" {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
			c.Abort()
			return
		}

		db, ok := dbFromContext(c)
		if !ok {
			apperrors.HandleError(c, apperrors.InternalError(errDBNotInContext))
			c.Abort()
			return
		}

		if err := entitlements.RequireFeature(db, userID, feature); err != nil {
			apperrors.HandleError(c, err)
			c.Abort()
			return
		}

		c.Next()
	}
}
