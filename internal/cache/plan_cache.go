package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"leadforge_backend/internal/logger"
	"leadforge_backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	planCatalogKey = "leadforge:plans:catalog"
	planCatalogTTL = 10 * time.Minute
)

// PlanCache - кэш витрины планов. Справочник меняется редко,
// а читается на каждом рендере страницы тарифов
type PlanCache interface {
	GetPlans(ctx context.Context) ([]models.Plan, bool)
	SetPlans(ctx context.Context, plans []models.Plan)
	Invalidate(ctx context.Context)
}

type redisPlanCache struct {
	client *redis.Client
}

func NewRedisPlanCache(client *redis.Client) PlanCache {
	return &redisPlanCache{client: client}
}

// GetPlans возвращает (plans, true) при попадании в кэш.
// Любая ошибка Redis трактуется как промах: источник истины - БД
func (c *redisPlanCache) GetPlans(ctx context.Context) ([]models.Plan, bool) {
	data, err := c.client.Get(ctx, planCatalogKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("plan cache read failed", "error", err)
		}
		return nil, false
	}

	var plans []models.Plan
	if err := json.Unmarshal(data, &plans); err != nil {
		logger.Warn("plan cache payload corrupted", "error", err)
		return nil, false
	}
	return plans, true
}

func (c *redisPlanCache) SetPlans(ctx context.Context, plans []models.Plan) {
	data, err := json.Marshal(plans)
	if err != nil {
		logger.Warn("plan cache marshal failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, planCatalogKey, data, planCatalogTTL).Err(); err != nil {
		logger.Warn("plan cache write failed", "error", err)
	}
}

func (c *redisPlanCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, planCatalogKey).Err(); err != nil {
		logger.Warn("plan cache invalidation failed", "error", err)
	}
}

// noopPlanCache используется, когда Redis выключен конфигом
type noopPlanCache struct{}

func NewNoopPlanCache() PlanCache {
	return &noopPlanCache{}
}

func (noopPlanCache) GetPlans(ctx context.Context) ([]models.Plan, bool) { return nil, false }
func (noopPlanCache) SetPlans(ctx context.Context, plans []models.Plan)  {}
func (noopPlanCache) Invalidate(ctx context.Context)                     {}
