package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики риск-проверок
// ============================================================
//
// Использование:
// - Grafana дашборды (длительность sweep, динамика margin calls)
// - Alertmanager: алерты на рост escalations и account errors

// ============ Метрики sweep ============

// SweepDuration - длительность полного прохода по счетам
var SweepDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "margincall",
		Subsystem: "risk",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of a full risk-check sweep in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
)

// SweepsTotal - количество запусков sweep по результату
var SweepsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "margincall",
		Subsystem: "risk",
		Name:      "sweeps_total",
		Help:      "Total number of risk-check sweeps",
	},
	[]string{"result"}, // ok, failed
)

// AccountsChecked - количество проверенных счетов
var AccountsChecked = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "margincall",
		Subsystem: "risk",
		Name:      "accounts_checked_total",
		Help:      "Total number of accounts evaluated by risk checks",
	},
)

// ============ Метрики margin calls ============

// MarginCallsCreated - открытые margin calls по серьезности
var MarginCallsCreated = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "margincall",
		Subsystem: "risk",
		Name:      "calls_created_total",
		Help:      "Total number of margin calls created",
	},
	[]string{"severity"},
)

// MarginCallsResolved - разрешенные margin calls
var MarginCallsResolved = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "margincall",
		Subsystem: "risk",
		Name:      "calls_resolved_total",
		Help:      "Total number of margin calls resolved",
	},
)

// EscalationsTotal - эскалации в принудительную ликвидацию
var EscalationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "margincall",
		Subsystem: "risk",
		Name:      "escalations_total",
		Help:      "Total number of margin calls escalated to liquidation",
	},
)

// AccountCheckErrors - ошибки обработки отдельных счетов
// Рост счетчика при стабильном sweep - повод для алерта
var AccountCheckErrors = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "margincall",
		Subsystem: "risk",
		Name:      "account_check_errors_total",
		Help:      "Total number of per-account evaluation errors",
	},
)

// ============ Метрики состояния ============

// AccountsInCall - количество счетов с активным margin call
// по результатам последнего sweep
var AccountsInCall = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "margincall",
		Subsystem: "risk",
		Name:      "accounts_in_call",
		Help:      "Number of accounts with an active margin call as of the last sweep",
	},
)
