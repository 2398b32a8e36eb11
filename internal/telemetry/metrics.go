package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики поллера. Регистрируются в default registry и отдаются
// бинарником на /metrics через promhttp.
var (
	// TickDuration — длительность одного тика поллера.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "conveyor_tick_duration_seconds",
		Help:    "Duration of one polling tick",
		Buckets: prometheus.DefBuckets,
	})

	// RecordsProcessed — количество записей, прошедших полный цикл
	// автоматизаций, по таблице и результату (ok/failed).
	RecordsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conveyor_records_processed_total",
		Help: "Records that completed an automation cycle",
	}, []string{"table", "result"})

	// ActionFailures — количество упавших автоматизаций по таблице и имени.
	ActionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conveyor_action_failures_total",
		Help: "Automation actions that reported failure",
	}, []string{"table", "action"})

	// WorkUnitErrors — ошибки уровня единицы работы (изолируются тиком).
	WorkUnitErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conveyor_work_unit_errors_total",
		Help: "Work units whose processing ended with an error",
	}, []string{"table"})

	// SupervisorState — состояние супервизора:
	// 0 — STOPPED, 1 — RUNNING, 2 — STOPPING.
	SupervisorState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "conveyor_supervisor_state",
		Help: "Polling supervisor state (0 stopped, 1 running, 2 stopping)",
	})

	// SweptRecords — записи, сброшенные recovery sweep из RUNNING_* в PENDING_*.
	SweptRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conveyor_swept_records_total",
		Help: "Stale RUNNING_* records reset back to PENDING_*",
	}, []string{"table"})
)
