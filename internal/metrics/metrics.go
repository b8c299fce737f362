// Package metrics содержит прометеевские коллекторы биллинга.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentsTotal считает завершенные операции над платежами по итоговому статусу.
	PaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_payments_total",
		Help: "Payments by resulting status.",
	}, []string{"status"})

	// GatewayRequestsTotal считает обращения к платежному шлюзу по операции и результату.
	GatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_gateway_requests_total",
		Help: "Payment gateway calls by operation and result.",
	}, []string{"operation", "result"})

	// GatewayRequestDuration измеряет длительность обращений к платежному шлюзу.
	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billing_gateway_request_duration_seconds",
		Help:    "Payment gateway call duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// SubscriptionsExpired считает подписки, переведенные планировщиком в expired.
	SubscriptionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_subscriptions_expired_total",
		Help: "Subscriptions marked expired by the scheduler.",
	})
)
