package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics содержит метрики жизненного цикла заказа киоска.
type WorkflowMetrics struct {
	// Счётчики операций
	ordersCreated   prometheus.Counter
	ordersPaid      prometheus.Counter
	ordersFailed    prometheus.Counter
	composeStarted  prometheus.Counter
	composeRetries  prometheus.Counter
	webhooksHandled *prometheus.CounterVec
	deliveries      *prometheus.CounterVec

	// Гистограммы времени выполнения
	composeDuration prometheus.Histogram

	// Счётчики событий timeline и outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для активных генераций
	activeComposeJobs prometheus.Gauge
}

// NewWorkflowMetrics создаёт новый экземпляр метрик.
func NewWorkflowMetrics() *WorkflowMetrics {
	return newWorkflowMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newWorkflowMetricsWithRegisterer(registerer prometheus.Registerer) *WorkflowMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &WorkflowMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kiosk_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersPaid: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kiosk_orders_paid_total",
			Help: "Total number of orders marked as paid",
		}),
		ordersFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kiosk_orders_failed_total",
			Help: "Total number of orders terminally failed",
		}),
		composeStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kiosk_compose_jobs_started_total",
			Help: "Total number of compose jobs started",
		}),
		composeRetries: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kiosk_compose_retries_total",
			Help: "Total number of compose retries after transient failures",
		}),
		webhooksHandled: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "kiosk_payment_webhooks_total",
			Help: "Total number of payment webhooks processed, by resulting status",
		}, []string{"status"}),
		deliveries: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "kiosk_deliveries_total",
			Help: "Total number of delivery attempts, by channel and result",
		}, []string{"channel", "result"}),
		composeDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "kiosk_compose_duration_seconds",
			Help:    "Duration of compose jobs in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kiosk_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kiosk_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		activeComposeJobs: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "kiosk_active_compose_jobs",
			Help: "Number of currently running compose jobs",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *WorkflowMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOrderPaid увеличивает счётчик оплаченных заказов.
func (m *WorkflowMetrics) RecordOrderPaid() {
	m.ordersPaid.Inc()
}

// RecordOrderFailed увеличивает счётчик проваленных заказов.
func (m *WorkflowMetrics) RecordOrderFailed() {
	m.ordersFailed.Inc()
}

// RecordComposeStarted отмечает старт генерации.
func (m *WorkflowMetrics) RecordComposeStarted() {
	m.composeStarted.Inc()
	m.activeComposeJobs.Inc()
}

// RecordComposeFinished отмечает завершение генерации и её длительность.
func (m *WorkflowMetrics) RecordComposeFinished(duration time.Duration) {
	m.activeComposeJobs.Dec()
	m.composeDuration.Observe(duration.Seconds())
}

// RecordComposeRetry увеличивает счётчик повторов генерации.
func (m *WorkflowMetrics) RecordComposeRetry() {
	m.composeRetries.Inc()
}

// RecordWebhook увеличивает счётчик обработанных вебхуков по статусу.
func (m *WorkflowMetrics) RecordWebhook(status string) {
	m.webhooksHandled.WithLabelValues(status).Inc()
}

// RecordDelivery увеличивает счётчик доставок по каналу и результату.
func (m *WorkflowMetrics) RecordDelivery(channel, result string) {
	m.deliveries.WithLabelValues(channel, result).Inc()
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *WorkflowMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *WorkflowMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
