// Package metrics регистрирует метрики Prometheus сервиса.
// Все метрики создаются через promauto в реестре по умолчанию.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "escrow"

// OfferTransitionsTotal считает переходы статуса предложения.
// Метки: status (новый статус), result (ok / conflict / error).
var OfferTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "offer_transitions_total",
		Help:      "Total number of offer status transitions.",
	},
	[]string{"status", "result"},
)

// MessagesCreatedTotal считает сообщения по типу.
var MessagesCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_created_total",
		Help:      "Total number of project messages written.",
	},
	[]string{"type"},
)

// RealtimeEventsTotal считает события изменения строк, полученные из LISTEN/NOTIFY.
// Метки: table, result (published / dropped / error).
var RealtimeEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_events_total",
		Help:      "Total number of change notifications handled by the realtime listener.",
	},
	[]string{"table", "result"},
)

// WSClients - текущее количество websocket подписчиков.
var WSClients = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_clients",
		Help:      "Current number of connected websocket subscribers.",
	},
)

// PayoutsTotal считает выплаты продавцу после одобрения работы.
var PayoutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payouts_total",
		Help:      "Total number of payouts attempted after work approval.",
	},
	[]string{"result"},
)

// PaymentDedupTotal считает проверки повторной обработки платежей.
// Метки: kind (paypal_capture / stripe_event), result (hit / miss).
var PaymentDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_dedup_total",
		Help:      "Total number of payment deduplication checks.",
	},
	[]string{"kind", "result"},
)

// ChainTransactionsTotal считает транзакции к контракту эскроу.
var ChainTransactionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chain_transactions_total",
		Help:      "Total number of escrow contract transactions.",
	},
	[]string{"method", "result"},
)

// TryOnRequestsTotal считает запросы примерки.
var TryOnRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tryon_requests_total",
		Help:      "Total number of try-on inference requests.",
	},
	[]string{"result"},
)

// GoroutinePanicsTotal считает перехваченные panic в фоновых горутинах.
var GoroutinePanicsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "goroutine_panics_total",
		Help:      "Total number of recovered panics in background goroutines.",
	},
	[]string{"name"},
)

// HTTPRequestDuration - длительность обработки HTTP запросов.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests by route and status code.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "code"},
)
