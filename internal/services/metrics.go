package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "edupulse",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Wall-clock duration of each pipeline stage.",
	}, []string{"stage"})

	stageRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edupulse",
		Subsystem: "pipeline",
		Name:      "stage_rows_total",
		Help:      "Rows produced by each pipeline stage.",
	}, []string{"stage"})

	droppedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edupulse",
		Subsystem: "pipeline",
		Name:      "dropped_rows_total",
		Help:      "Rows dropped by merge joins, by diagnostic reason.",
	}, []string{"reason"})

	stageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edupulse",
		Subsystem: "pipeline",
		Name:      "stage_failures_total",
		Help:      "Stage executions that returned an error.",
	}, []string{"stage"})
)
