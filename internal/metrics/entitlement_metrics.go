package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EntitlementMetrics - метрики движка подписок и лимитов
type EntitlementMetrics interface {
	IncQuotaDenied()
	IncFeatureDenied(feature string)
	IncNoSubscription()
	AddLeadsConsumed(count int)
	AddExpiredSubscriptions(count int64)
}

type entitlementMetrics struct {
	quotaDenied    prometheus.Counter
	featureDenied  *prometheus.CounterVec
	noSubscription prometheus.Counter
	leadsConsumed  prometheus.Counter
	expiredSwept   prometheus.Counter
}

// NewEntitlementMetrics регистрирует метрики в переданном registry
func NewEntitlementMetrics(registry *prometheus.Registry) EntitlementMetrics {
	return &entitlementMetrics{
		quotaDenied: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "entitlement_quota_denied_total",
			Help: "The total number of lead requests denied by the monthly quota",
		}),
		featureDenied: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "entitlement_feature_denied_total",
			Help: "The total number of feature gate denials by feature",
		}, []string{"feature"}),
		noSubscription: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "entitlement_no_subscription_total",
			Help: "The total number of checks that found no active subscription",
		}),
		leadsConsumed: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "entitlement_leads_consumed_total",
			Help: "The total number of leads consumed against quotas",
		}),
		expiredSwept: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "entitlement_subscriptions_expired_total",
			Help: "The total number of subscriptions transitioned to canceled by the expiry sweep",
		}),
	}
}

func (m *entitlementMetrics) IncQuotaDenied() {
	m.quotaDenied.Inc()
}

func (m *entitlementMetrics) IncFeatureDenied(feature string) {
	m.featureDenied.WithLabelValues(feature).Inc()
}

func (m *entitlementMetrics) IncNoSubscription() {
	m.noSubscription.Inc()
}

func (m *entitlementMetrics) AddLeadsConsumed(count int) {
	m.leadsConsumed.Add(float64(count))
}

func (m *entitlementMetrics) AddExpiredSubscriptions(count int64) {
	m.expiredSwept.Add(float64(count))
}
