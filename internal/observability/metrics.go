package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "driftgate",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "driftgate",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	remediationActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "driftgate",
			Subsystem: "remediation",
			Name:      "actions_total",
			Help:      "Remediation actions by action and outcome.",
		},
		[]string{"action", "outcome"},
	)
	rehearsalVerdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "driftgate",
			Subsystem: "rehearsal",
			Name:      "verdicts_total",
			Help:      "Rehearsal verdicts by result and anchoring.",
		},
		[]string{"verdict", "anchored"},
	)
	guardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "driftgate",
			Subsystem: "guard",
			Name:      "decisions_total",
			Help:      "Guard decisions by state and admission.",
		},
		[]string{"state", "allowed"},
	)
	ledgerRetained = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "driftgate",
			Subsystem: "ledger",
			Name:      "retained_entries",
			Help:      "History entries currently retained.",
		},
	)
	ledgerEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "driftgate",
			Subsystem: "ledger",
			Name:      "evictions_total",
			Help:      "History entries evicted by retention trimming.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			remediationActions, rehearsalVerdicts, guardDecisions,
			ledgerRetained, ledgerEvictions,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordRemediationAction(action, outcome string) {
	RegisterMetrics()
	remediationActions.WithLabelValues(action, outcome).Inc()
}

func RecordRehearsalVerdict(verdict string, anchored bool) {
	RegisterMetrics()
	rehearsalVerdicts.WithLabelValues(verdict, strconv.FormatBool(anchored)).Inc()
}

func RecordGuardDecision(state string, allowed bool) {
	RegisterMetrics()
	guardDecisions.WithLabelValues(state, strconv.FormatBool(allowed)).Inc()
}

func SetLedgerRetained(entries int) {
	RegisterMetrics()
	ledgerRetained.Set(float64(entries))
}

func AddLedgerEvictions(entries int) {
	RegisterMetrics()
	ledgerEvictions.Add(float64(entries))
}
