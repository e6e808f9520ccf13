package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Conveyor/internal/agent"
	"github.com/shaiso/Conveyor/internal/aggregate"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/store"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

// Имя завершающего шага агрегации в артефактах.
const aggregateStepName = "aggregate"

// Invoker — вызов агента. Реализуется agent.Client.
type Invoker interface {
	Invoke(ctx context.Context, endpoint string, payload map[string]any) (*agent.Result, error)
}

// Engine — движок выполнения пайплайна.
//
// Шаги одного run выполняются строго последовательно; разные runs
// могут выполняться конкурентно — единственное разделяемое состояние
// это Store, безопасный за счёт append-only записей с ключом run_id.
type Engine struct {
	spec      *domain.PipelineSpec
	store     store.Store
	agg       *aggregate.Aggregator
	logger    *slog.Logger
	newClient func(cfg *domain.PipelineConfig) Invoker
}

// Option — опция конструктора Engine.
type Option func(*Engine)

// WithClientFactory подменяет фабрику клиентов агентов (для тестов).
func WithClientFactory(f func(cfg *domain.PipelineConfig) Invoker) Option {
	return func(e *Engine) { e.newClient = f }
}

// New создаёт новый Engine.
func New(spec *domain.PipelineSpec, st store.Store, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		spec:   spec,
		store:  st,
		agg:    aggregate.New(st, logger),
		logger: logger,
		newClient: func(cfg *domain.PipelineConfig) Invoker {
			return agent.New(agent.Config{
				Timeout: cfg.Timeout(),
				Retry:   agent.RetryFromPolicy(cfg.Retry),
				Logger:  logger,
			})
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute выполняет run по канонической конфигурации.
//
// Мутирует статус run: RUNNING на входе, затем COMPLETED, PARTIAL
// (хотя бы один fallback-артефакт или placeholder-результат) или
// FAILED. Ошибка возвращается только для FAILED; уже записанные
// артефакты при этом сохраняются для диагностики.
func (e *Engine) Execute(ctx context.Context, run *domain.Run, cfg *domain.PipelineConfig) (*domain.AggregateResult, error) {
	logger := e.logger.With("run_id", run.ID, "user_id", cfg.UserID, "mode", cfg.Mode)

	run.MarkRunning()
	logger.Info("run started", "pipeline", e.spec.Name)

	fallbackUsed := false

	// Bypass-ребро: в development mode с bypass_agents шаги агентов
	// не выполняются, управление уходит сразу к агрегации.
	if cfg.Mode == domain.ModeDevelopment && cfg.BypassAgents {
		logger.Info("bypass edge taken, skipping agent steps")
	} else {
		client := e.newClient(cfg)
		// Read-only view артефактов предыдущих шагов, по типу.
		prior := make(map[string]any)

		for i := range e.spec.Steps {
			step := &e.spec.Steps[i]
			stepLogger := logger.With("step", step.Name)

			if err := ctx.Err(); err != nil {
				return e.fail(run, logger, fmt.Errorf("run cancelled before step %s: %w", step.Name, err))
			}

			data, usedFallback, err := e.runStep(ctx, client, run, cfg, step, prior, stepLogger)
			if err != nil {
				return e.fail(run, logger, err)
			}
			if usedFallback {
				fallbackUsed = true
			}
			prior[string(step.ArtifactType)] = data
		}
	}

	result, err := e.agg.Aggregate(ctx, run.ID, cfg.MaxItems)
	if err != nil {
		return e.fail(run, logger, fmt.Errorf("aggregate: %w", err))
	}
	if result.Fallback {
		fallbackUsed = true
	}

	if err := e.writeResult(ctx, run.ID, result); err != nil {
		return e.fail(run, logger, err)
	}

	if fallbackUsed {
		run.MarkPartial()
	} else {
		run.MarkCompleted()
	}
	telemetry.RunsTotal.WithLabelValues(string(run.Status)).Inc()
	logger.Info("run finished",
		"status", run.Status,
		"items", len(result.Items),
		"duration", run.Duration().Round(time.Millisecond),
	)
	return result, nil
}

// runStep выполняет один шаг: вызов агента и запись артефакта.
// Возвращает данные артефакта и признак fallback'а.
func (e *Engine) runStep(
	ctx context.Context,
	client Invoker,
	run *domain.Run,
	cfg *domain.PipelineConfig,
	step *domain.StepDef,
	prior map[string]any,
	logger *slog.Logger,
) (map[string]any, bool, error) {
	start := time.Now()
	defer func() {
		telemetry.StepDuration.WithLabelValues(step.Name).Observe(time.Since(start).Seconds())
	}()

	if cfg.Mode == domain.ModeDevelopment && step.SkipInDevMode {
		logger.Info("step skipped in development mode")
		data, err := e.writeFallback(ctx, run.ID, step, "skipped in development mode")
		return data, true, err
	}

	endpoint := cfg.Endpoints[step.Agent]
	result, invokeErr := e.invokeStep(ctx, client, run, cfg, step, endpoint, prior)
	if invokeErr == nil {
		artifact, err := e.store.Write(ctx, run.ID, step.Name, step.ArtifactType, result.Body)
		if err != nil {
			// Персистентность load-bearing для агрегатора:
			// ошибка записи фатальна в обоих режимах.
			return nil, false, &StepError{Step: step.Name, Err: fmt.Errorf("write artifact: %w", err)}
		}
		logger.Info("step completed", "artifact_id", artifact.ID, "attempts", result.Attempts)
		return result.Body, false, nil
	}

	if cfg.Mode == domain.ModeDevelopment {
		logger.Warn("step failed, synthesizing fallback artifact", "error", invokeErr)
		data, err := e.writeFallback(ctx, run.ID, step, invokeErr.Error())
		return data, true, err
	}

	return nil, false, &StepError{Step: step.Name, Err: invokeErr}
}

// invokeStep вызывает агента шага.
func (e *Engine) invokeStep(
	ctx context.Context,
	client Invoker,
	run *domain.Run,
	cfg *domain.PipelineConfig,
	step *domain.StepDef,
	endpoint string,
	prior map[string]any,
) (*agent.Result, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoEndpoint, step.Agent)
	}

	payload := map[string]any{
		"run_id":  run.ID,
		"user_id": cfg.UserID,
		"mode":    string(cfg.Mode),
	}
	if len(prior) > 0 {
		payload["artifacts"] = prior
	}

	return client.Invoke(ctx, endpoint, payload)
}

// writeFallback пишет синтезированный placeholder-артефакт шага.
func (e *Engine) writeFallback(ctx context.Context, runID string, step *domain.StepDef, reason string) (map[string]any, error) {
	data := map[string]any{
		domain.FallbackKey:       true,
		domain.FallbackReasonKey: reason,
	}
	if _, err := e.store.Write(ctx, runID, step.Name, step.ArtifactType, data); err != nil {
		return nil, &StepError{Step: step.Name, Err: fmt.Errorf("write fallback artifact: %w", err)}
	}
	telemetry.FallbackArtifacts.WithLabelValues(step.Name).Inc()
	return data, nil
}

// writeResult пишет финальный результат агрегации как артефакт run.
func (e *Engine) writeResult(ctx context.Context, runID string, result *domain.AggregateResult) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal aggregate result: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(encoded, &data); err != nil {
		return fmt.Errorf("unmarshal aggregate result: %w", err)
	}

	if _, err := e.store.Write(ctx, runID, aggregateStepName, domain.ArtifactTypeRecommendations, data); err != nil {
		return fmt.Errorf("write recommendations artifact: %w", err)
	}
	return nil
}

// fail переводит run в FAILED и возвращает ошибку.
func (e *Engine) fail(run *domain.Run, logger *slog.Logger, err error) (*domain.AggregateResult, error) {
	run.MarkFailed(err.Error())
	telemetry.RunsTotal.WithLabelValues(string(run.Status)).Inc()
	logger.Error("run failed", "error", err)
	return nil, err
}
