package services_test

import (
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"leadforge_backend/internal/models"
	"leadforge_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Разрешение текущей подписки ---

func TestEntitlement_NoSubscription(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "nosub@test.com")

	_, err := svc.CheckLeadLimit(db, user.ID, 1)
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "Ошибка должна быть AppError")
	assert.Equal(t, apperrors.CodeNoSubscription, appErr.Code)
	assert.Equal(t, http.StatusPaymentRequired, appErr.HTTPCode)
}

func TestEntitlement_CanceledSubscriptionIgnored(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "canceled@test.com")
	plan := seedPlan(t, db, "Starter", 29, 500, 1)
	seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusCanceled, 0)

	_, err := svc.CheckLeadLimit(db, user.ID, 1)
	require.Error(t, err)

	appErr, _ := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeNoSubscription, appErr.Code)
}

func TestEntitlement_TrialingCountsAsCurrent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "trial@test.com")
	plan := seedPlan(t, db, "Starter", 29, 500, 1)
	seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusTrialing, 0)

	ok, err := svc.CheckLeadLimit(db, user.ID, 100)
	require.NoError(t, err)
	assert.True(t, ok)

	info, err := svc.GetSubscriptionStatusInfo(db, user.ID)
	require.NoError(t, err)
	assert.True(t, info.IsTrial)
}

func TestEntitlement_NewestSubscriptionWins(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "two-subs@test.com")
	oldPlan := seedPlan(t, db, "Starter", 29, 500, 1)
	newPlan := seedPlan(t, db, "Growth", 79, 2500, 5)

	// Нарушение инварианта "одна текущая подписка": выигрывает свежая
	older := seedSubscription(t, db, user.ID, oldPlan.ID, models.SubscriptionStatusActive, 0)
	require.NoError(t, db.Model(older).UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)
	seedSubscription(t, db, user.ID, newPlan.ID, models.SubscriptionStatusActive, 0)

	info, err := svc.GetSubscriptionStatusInfo(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Growth", info.PlanName)
}

// --- Квота лидов ---

func TestCheckLeadLimit_Boundary(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "boundary@test.com")
	plan := seedPlan(t, db, "Starter", 29, 500, 1)
	seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusActive, 490)

	// Ровно остаток - проходит
	ok, err := svc.CheckLeadLimit(db, user.ID, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	// Остаток + 1 - отказ с деталями
	_, err = svc.CheckLeadLimit(db, user.ID, 11)
	require.Error(t, err)

	appErr, isApp := apperrors.AsAppError(err)
	require.True(t, isApp)
	assert.Equal(t, apperrors.CodeQuotaExceeded, appErr.Code)
	assert.Equal(t, http.StatusForbidden, appErr.HTTPCode)

	details, isQuota := appErr.Details.(apperrors.QuotaDetails)
	require.True(t, isQuota, "Детали должны быть QuotaDetails")
	assert.Equal(t, 10, details.Remaining)
	assert.Equal(t, 11, details.Requested)
}

func TestCheckLeadLimit_RejectsNonPositive(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "nonpos@test.com")
	plan := seedPlan(t, db, "Starter", 29, 500, 1)
	seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusActive, 0)

	_, err := svc.CheckLeadLimit(db, user.ID, 0)
	assert.Error(t, err)

	_, err = svc.CheckLeadLimit(db, user.ID, -5)
	assert.Error(t, err)
}

func TestCheckLeadLimit_ZeroQuotaExhausted(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "zeroquota@test.com")
	plan := seedPlan(t, db, "Paused", 0, 0, 0)
	seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusActive, 0)

	// Квота 0 - любое списание отклоняется
	_, err := svc.CheckLeadLimit(db, user.ID, 1)
	require.Error(t, err)
	appErr, _ := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeQuotaExceeded, appErr.Code)

	// И отчет показывает 100%
	pct, err := svc.CalculateLeadUsagePercentage(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pct)
}

func TestIncrementLeadUsage(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "incr@test.com")
	plan := seedPlan(t, db, "Starter", 29, 500, 1)
	sub := seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusActive, 10)

	resp, err := svc.IncrementLeadUsage(db, user.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 15, resp.LeadsUsed)
	assert.Equal(t, 485, resp.LeadsRemaining)

	var stored models.Subscription
	require.NoError(t, db.First(&stored, "id = ?", sub.ID).Error)
	assert.Equal(t, 15, stored.LeadsUsedThisMonth)
}

func TestConsumeLeads_StopsAtQuota(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "consume@test.com")
	plan := seedPlan(t, db, "Tiny", 9, 3, 1)
	seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusActive, 0)

	// Три списания по одному проходят
	for i := 1; i <= 3; i++ {
		resp, err := svc.ConsumeLeads(db, user.ID, 1)
		require.NoError(t, err, "Списание %d должно пройти", i)
		assert.Equal(t, i, resp.LeadsUsed)
	}

	// Четвертое упирается в квоту
	_, err := svc.ConsumeLeads(db, user.ID, 1)
	require.Error(t, err)

	appErr, _ := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeQuotaExceeded, appErr.Code)
	details := appErr.Details.(apperrors.QuotaDetails)
	assert.Equal(t, 0, details.Remaining)
	assert.Equal(t, 1, details.Requested)
}

func TestConsumeLeads_BatchOverRemaining(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "batch@test.com")
	plan := seedPlan(t, db, "Starter", 29, 500, 1)
	sub := seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusActive, 498)

	// Пакет больше остатка не проходит и счетчик не двигает
	_, err := svc.ConsumeLeads(db, user.ID, 3)
	require.Error(t, err)

	var stored models.Subscription
	require.NoError(t, db.First(&stored, "id = ?", sub.ID).Error)
	assert.Equal(t, 498, stored.LeadsUsedThisMonth, "Отказ не должен менять счетчик")

	// Пакет ровно в остаток проходит
	resp, err := svc.ConsumeLeads(db, user.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 500, resp.LeadsUsed)
	assert.Equal(t, 0, resp.LeadsRemaining)
}

func TestConsumeLeads_ConcurrentNeverOverQuota(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "concurrent@test.com")
	plan := seedPlan(t, db, "Micro", 9, 5, 1)
	seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusActive, 0)

	// 20 конкурентных списаний по 1 при остатке 5:
	// условный UPDATE пропускает ровно 5
	const attempts = 20
	var wg sync.WaitGroup
	var successes int64
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ConsumeLeads(db, user.ID, 1); err == nil {
				atomic.AddInt64(&successes, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), successes, "Успешных списаний должно быть ровно по остатку")

	var stored models.Subscription
	require.NoError(t, db.First(&stored, "user_id = ?", user.ID).Error)
	assert.Equal(t, 5, stored.LeadsUsedThisMonth, "Счетчик не должен превысить квоту")
}

func TestConsumeLeads_ReportsFreshCounters(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "fresh@test.com")
	plan := seedPlan(t, db, "Starter", 29, 10, 1)
	sub := seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusActive, 0)

	resp, err := svc.ConsumeLeads(db, user.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.LeadsUsed)

	// Параллельный потребитель успел поднять счетчик до 5
	require.NoError(t, db.Model(&models.Subscription{}).
		Where("id = ?", sub.ID).
		UpdateColumn("leads_used_this_month", 5).Error)

	// Ответ отражает фактическое состояние строки, а не наше старое чтение
	resp, err = svc.ConsumeLeads(db, user.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 7, resp.LeadsUsed)
	assert.Equal(t, 3, resp.LeadsRemaining)
}

// --- Возможности плана ---

func TestRequireFeature(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "feature@test.com")
	plan := seedPlan(t, db, "Starter", 29, 500, 1, models.FeatureCSVExport)
	seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusActive, 0)

	// Включенная возможность проходит
	require.NoError(t, svc.RequireFeature(db, user.ID, models.FeatureCSVExport))

	// Выключенная - 403 с человекочитаемым названием
	err := svc.RequireFeature(db, user.ID, models.FeatureCRMSync)
	require.Error(t, err)

	appErr, _ := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeFeatureNotAllowed, appErr.Code)
	assert.Equal(t, http.StatusForbidden, appErr.HTTPCode)
	assert.Contains(t, appErr.Message, "CRM sync")
}

func TestCanAccessFeature_NeverErrors(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "canaccess@test.com")

	// Без подписки - false, не ошибка
	assert.False(t, svc.CanAccessFeature(db, user.ID, models.FeatureCSVExport))

	plan := seedPlan(t, db, "Growth", 79, 2500, 5, models.FeatureCSVExport, models.FeatureCRMSync)
	seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusActive, 0)

	assert.True(t, svc.CanAccessFeature(db, user.ID, models.FeatureCRMSync))
	assert.False(t, svc.CanAccessFeature(db, user.ID, models.FeatureWhiteLabeling))
	// Неизвестное имя всегда false
	assert.False(t, svc.CanAccessFeature(db, user.ID, models.Feature("bogus")))
}

func TestGetFeatureAvailability_NoSubscription(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "featmap@test.com")

	features, err := svc.GetFeatureAvailability(db, user.ID)
	require.NoError(t, err)
	assert.Len(t, features, len(models.AllFeatures))
	for f, allowed := range features {
		assert.False(t, allowed, "Возможность %s должна быть false без подписки", f)
	}
}

// --- Отчеты ---

func TestGetSubscriptionStatusInfo_Defaults(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "defaults@test.com")

	info, err := svc.GetSubscriptionStatusInfo(db, user.ID)
	require.NoError(t, err, "Отчет без подписки - не ошибка")
	assert.False(t, info.HasSubscription)
	assert.Equal(t, "none", info.Status)
	assert.Zero(t, info.LeadsTotal)
	assert.Zero(t, info.UsagePercentage)
	assert.Zero(t, info.NextBilling)
	assert.Nil(t, info.RenewalDate)
}

func TestUsagePercentage_Clamped(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "pct@test.com")
	plan := seedPlan(t, db, "Starter", 29, 200, 1)
	sub := seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusActive, 50)

	pct, err := svc.CalculateLeadUsagePercentage(db, user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, pct, 0.001)

	// Счетчик выше квоты (легаси-данные) - не больше 100
	require.NoError(t, db.Model(sub).Update("leads_used_this_month", 250).Error)
	pct, err = svc.CalculateLeadUsagePercentage(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pct)
}

func TestCalculateNextBillingAmount(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "billing@test.com")
	plan := seedPlan(t, db, "Growth", 79, 2500, 5)
	sub := seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusActive, 0)

	amount, err := svc.CalculateNextBillingAmount(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 79.0, amount)

	// После отмены в конце периода следующего списания не будет
	require.NoError(t, db.Model(sub).Update("cancel_at_period_end", true).Error)
	amount, err = svc.CalculateNextBillingAmount(db, user.ID)
	require.NoError(t, err)
	assert.Zero(t, amount)
}

func TestGetSubscriptionDetails(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "details@test.com")
	plan := seedPlan(t, db, "Growth", 79, 2500, 5, models.FeatureTeamAccess)
	seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusActive, 100)

	require.NoError(t, db.Create(&models.PaymentHistory{
		UserID: user.ID,
		Amount: 79,
		Status: models.PaymentStatusSucceeded,
	}).Error)
	require.NoError(t, db.Create(&models.UsageLog{
		UserID: user.ID,
		Action: models.ActionSearch,
	}).Error)
	require.NoError(t, db.Create(&models.TeamMember{
		OwnerID:     user.ID,
		MemberEmail: "teammate@test.com",
	}).Error)

	details, err := svc.GetSubscriptionDetails(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Growth", details.PlanName)
	assert.Len(t, details.RecentPayments, 1)
	assert.Equal(t, 1, details.Team.CurrentCount)
	assert.False(t, details.Team.LimitReached)
	assert.Equal(t, int64(1), details.SearchTrend.Count)
	assert.Equal(t, models.ActionSearch, details.SearchTrend.Action)
}

// --- Продление и sweep ---

func TestIsSubscriptionDueForRenewal(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "renewal@test.com")
	plan := seedPlan(t, db, "Starter", 29, 500, 1)

	// Без подписки - false, не ошибка
	due, err := svc.IsSubscriptionDueForRenewal(db, user.ID, 7)
	require.NoError(t, err)
	assert.False(t, due)

	// Конец периода через 15 дней: при пороге 7 рано, при 30 - пора
	seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusActive, 0)

	due, err = svc.IsSubscriptionDueForRenewal(db, user.ID, 7)
	require.NoError(t, err)
	assert.False(t, due)

	due, err = svc.IsSubscriptionDueForRenewal(db, user.ID, 30)
	require.NoError(t, err)
	assert.True(t, due)
}

func TestCheckSubscriptionExpiry(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	plan := seedPlan(t, db, "Starter", 29, 500, 1)

	past := time.Now().AddDate(0, 0, -3)
	future := time.Now().AddDate(0, 0, 20)

	// Просрочена и помечена к отмене - закрывается
	flagged := seedUser(t, db, "flagged@test.com")
	flaggedSub := seedSubscription(t, db, flagged.ID, plan.ID, models.SubscriptionStatusActive, 0)
	require.NoError(t, db.Model(flaggedSub).Updates(map[string]interface{}{
		"current_period_end":   past,
		"cancel_at_period_end": true,
	}).Error)

	// Просрочена без флага - не трогаем, ждем автопродление
	expired := seedUser(t, db, "expired@test.com")
	expiredSub := seedSubscription(t, db, expired.ID, plan.ID, models.SubscriptionStatusActive, 0)
	require.NoError(t, db.Model(expiredSub).Update("current_period_end", past).Error)

	// Действующая с флагом - доживает период
	active := seedUser(t, db, "active@test.com")
	activeSub := seedSubscription(t, db, active.ID, plan.ID, models.SubscriptionStatusActive, 0)
	require.NoError(t, db.Model(activeSub).Updates(map[string]interface{}{
		"current_period_end":   future,
		"cancel_at_period_end": true,
	}).Error)

	count, err := svc.CheckSubscriptionExpiry(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var stored models.Subscription
	require.NoError(t, db.First(&stored, "id = ?", flaggedSub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusCanceled, stored.Status)

	stored = models.Subscription{}
	require.NoError(t, db.First(&stored, "id = ?", expiredSub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)

	stored = models.Subscription{}
	require.NoError(t, db.First(&stored, "id = ?", activeSub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)

	// Повторный запуск ничего не находит
	count, err = svc.CheckSubscriptionExpiry(db)
	require.NoError(t, err)
	assert.Zero(t, count)
}

// --- Команда ---

func TestCheckTeamMemberLimit(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "team@test.com")

	// Без подписки лимит нулевой и достигнут (fail-closed)
	info, err := svc.CheckTeamMemberLimit(db, user.ID)
	require.NoError(t, err)
	assert.Zero(t, info.MaxAllowed)
	assert.True(t, info.LimitReached)

	plan := seedPlan(t, db, "Growth", 79, 2500, 2, models.FeatureTeamAccess)
	seedSubscription(t, db, user.ID, plan.ID, models.SubscriptionStatusActive, 0)

	info, err = svc.CheckTeamMemberLimit(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, info.MaxAllowed)
	assert.False(t, info.LimitReached)

	require.NoError(t, db.Create(&models.TeamMember{OwnerID: user.ID, MemberEmail: "a@test.com"}).Error)
	require.NoError(t, db.Create(&models.TeamMember{OwnerID: user.ID, MemberEmail: "b@test.com"}).Error)

	info, err = svc.CheckTeamMemberLimit(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, info.CurrentCount)
	assert.True(t, info.LimitReached)
}

// --- Апгрейды ---

func TestSuggestPlanUpgrade_ByFeature(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "upgrade@test.com")

	free := seedPlan(t, db, "Free", 0, 25, 1)
	seedPlan(t, db, "Starter", 29, 500, 1, models.FeatureCSVExport)
	seedPlan(t, db, "Growth", 79, 2500, 5, models.FeatureCSVExport, models.FeatureCRMSync)

	seedSubscription(t, db, user.ID, free.ID, models.SubscriptionStatusActive, 0)

	// Самый дешевый план с csv_export - Starter
	suggestion, err := svc.SuggestPlanUpgrade(db, user.ID, models.FeatureCSVExport)
	require.NoError(t, err)
	require.NotNil(t, suggestion.Plan)
	assert.Equal(t, "Starter", suggestion.Plan.Name)

	// CRM есть только в Growth
	suggestion, err = svc.SuggestPlanUpgrade(db, user.ID, models.FeatureCRMSync)
	require.NoError(t, err)
	require.NotNil(t, suggestion.Plan)
	assert.Equal(t, "Growth", suggestion.Plan.Name)

	// White labeling не дает никто
	suggestion, err = svc.SuggestPlanUpgrade(db, user.ID, models.FeatureWhiteLabeling)
	require.NoError(t, err)
	assert.Nil(t, suggestion.Plan)
}

func TestSuggestPlanUpgrade_StrictlyMoreExpensive(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "strict@test.com")

	seedPlan(t, db, "Free", 0, 25, 1)
	starter := seedPlan(t, db, "Starter", 29, 500, 1, models.FeatureCSVExport)
	seedPlan(t, db, "Growth", 79, 2500, 5, models.FeatureCSVExport)

	seedSubscription(t, db, user.ID, starter.ID, models.SubscriptionStatusActive, 0)

	// Текущий план уже дает csv_export, но предложение должно быть
	// строго дороже - Growth, не сам Starter
	suggestion, err := svc.SuggestPlanUpgrade(db, user.ID, models.FeatureCSVExport)
	require.NoError(t, err)
	require.NotNil(t, suggestion.Plan)
	assert.Equal(t, "Growth", suggestion.Plan.Name)
}

func TestSuggestPlanUpgrade_NextTier(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "nexttier@test.com")

	seedPlan(t, db, "Free", 0, 25, 1)
	starter := seedPlan(t, db, "Starter", 29, 500, 1)
	seedPlan(t, db, "Growth", 79, 2500, 5)

	seedSubscription(t, db, user.ID, starter.ID, models.SubscriptionStatusActive, 0)

	// Без целевой возможности - следующий по цене план
	suggestion, err := svc.SuggestPlanUpgrade(db, user.ID, "")
	require.NoError(t, err)
	require.NotNil(t, suggestion.Plan)
	assert.Equal(t, "Growth", suggestion.Plan.Name)
}

func TestSuggestPlanUpgrade_TopTierHasNoNext(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "top@test.com")

	seedPlan(t, db, "Free", 0, 25, 1)
	growth := seedPlan(t, db, "Growth", 79, 2500, 5)
	seedSubscription(t, db, user.ID, growth.ID, models.SubscriptionStatusActive, 0)

	suggestion, err := svc.SuggestPlanUpgrade(db, user.ID, "")
	require.NoError(t, err)
	assert.Nil(t, suggestion.Plan)
}

func TestSuggestPlanUpgrade_Unsubscribed(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newEntitlementService()
	user := seedUser(t, db, "unsub-upgrade@test.com")

	seedPlan(t, db, "Free", 0, 25, 1)
	seedPlan(t, db, "Starter", 29, 500, 1, models.FeatureCSVExport)

	// С целевой возможностью - самый дешевый план, где она есть
	suggestion, err := svc.SuggestPlanUpgrade(db, user.ID, models.FeatureCSVExport)
	require.NoError(t, err)
	require.NotNil(t, suggestion.Plan)
	assert.Equal(t, "Starter", suggestion.Plan.Name)

	// Без возможности "следующий план" не определен
	suggestion, err = svc.SuggestPlanUpgrade(db, user.ID, "")
	require.NoError(t, err)
	assert.Nil(t, suggestion.Plan)
}
