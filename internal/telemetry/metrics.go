package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики пайплайна.
var (
	// RunsTotal — количество завершённых runs по статусу.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conveyor_runs_total",
		Help: "Total pipeline runs by terminal status",
	}, []string{"status"})

	// StepDuration — длительность выполнения шага в секундах.
	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conveyor_step_duration_seconds",
		Help:    "Pipeline step execution duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})

	// AgentAttempts — попытки вызова агентов по исходу.
	AgentAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conveyor_agent_attempts_total",
		Help: "Agent invocation attempts by outcome",
	}, []string{"outcome"})

	// FallbackArtifacts — количество синтезированных fallback-артефактов.
	FallbackArtifacts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conveyor_fallback_artifacts_total",
		Help: "Synthesized fallback artifacts by step",
	}, []string{"step"})
)
