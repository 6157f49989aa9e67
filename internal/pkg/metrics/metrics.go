package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haifischbank_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "haifischbank_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Transaction metrics
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haifischbank_transactions_total",
			Help: "Total number of transaction records by type and status",
		},
		[]string{"type", "status"},
	)

	// Credit lifecycle metrics
	CreditsDisbursedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "haifischbank_credits_disbursed_total",
			Help: "Total number of credits disbursed",
		},
	)

	CreditsWrittenOffTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "haifischbank_credits_written_off_total",
			Help: "Total number of credits written off",
		},
	)

	CreditLossAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "haifischbank_credit_loss_amount_total",
			Help: "Accumulated write-off losses in CHF",
		},
	)

	// Scheduler metrics
	ClockAdvancesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "haifischbank_clock_advances_total",
			Help: "Total number of simulated clock advances",
		},
	)

	SchedulerPassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "haifischbank_scheduler_pass_duration_seconds",
			Help:    "Duration of periodic batch passes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"pass"},
	)

	// Ledger metrics
	LedgerBalanced = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "haifischbank_ledger_balanced",
			Help: "1 when the last ledger validation passed, 0 otherwise",
		},
	)

	// Authentication metrics
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haifischbank_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status"},
	)
)

// RecordHTTPRequest records HTTP request metrics.
func RecordHTTPRequest(method, endpoint string, status int, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordTransaction records a transaction record outcome.
func RecordTransaction(txnType, status string) {
	TransactionsTotal.WithLabelValues(txnType, status).Inc()
}

// RecordAuthAttempt records an authentication attempt.
func RecordAuthAttempt(success bool) {
	status := "failed"
	if success {
		status = "success"
	}
	AuthAttemptsTotal.WithLabelValues(status).Inc()
}

// SetLedgerBalanced publishes the outcome of the last ledger validation.
func SetLedgerBalanced(balanced bool) {
	if balanced {
		LedgerBalanced.Set(1)
	} else {
		LedgerBalanced.Set(0)
	}
}
