package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/Conveyor/internal/config"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/repo"
)

// handleRunRequested обрабатывает событие о новом run.
func (o *Orchestrator) handleRunRequested(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.RunRequestedPayload](&delivery.Message)
	if err != nil {
		o.logger.Error("failed to parse run.requested payload", "error", err)
		return err
	}

	o.logger.Debug("received run.requested event", "run_id", payload.RunID)

	if o.isRunActive(payload.RunID) {
		o.logger.Debug("run already active, skipping", "run_id", payload.RunID)
		return nil
	}

	if err := o.processRun(ctx, payload.RunID); err != nil {
		// Гонка с polling или повторная доставка — не повод для requeue
		if errors.Is(err, ErrRunNotPending) || errors.Is(err, ErrRunAlreadyActive) {
			o.logger.Debug("run not processed", "run_id", payload.RunID, "reason", err)
			return nil
		}
		o.logger.Error("failed to process run", "run_id", payload.RunID, "error", err)
		return err
	}

	return nil
}

// processRun выполняет один run от загрузки до терминального статуса.
func (o *Orchestrator) processRun(ctx context.Context, runID string) error {
	run, err := o.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return fmt.Errorf("get run: %w", err)
	}

	if run.Status != domain.RunStatusPending {
		return ErrRunNotPending
	}

	if err := o.addActiveRun(runID); err != nil {
		return err
	}
	defer o.removeActiveRun(runID)

	// Нормализация выполняется ровно один раз, до первого шага:
	// единственная ошибка валидации прерывает весь run.
	cfg, err := config.Normalize(o.runConfig(run))
	if err != nil {
		o.logger.Warn("run config validation failed", "run_id", runID, "error", err)
		run.MarkFailed(fmt.Sprintf("config validation: %v", err))
		return o.finalizeRun(ctx, run)
	}

	run.MarkRunning()
	if err := o.runStore.Update(ctx, run); err != nil {
		return fmt.Errorf("update run to running: %w", err)
	}

	if _, err := o.engine.Execute(ctx, run, cfg); err != nil {
		// Run уже переведён в FAILED движком; уже записанные
		// артефакты сохраняются для диагностики
		o.logger.Warn("run execution failed", "run_id", runID, "error", err)
	}

	return o.finalizeRun(ctx, run)
}

// finalizeRun сохраняет терминальный статус и публикует run.completed.
func (o *Orchestrator) finalizeRun(ctx context.Context, run *domain.Run) error {
	if err := o.runStore.Update(ctx, run); err != nil {
		return fmt.Errorf("update run status: %w", err)
	}

	if o.publisher != nil {
		err := o.publisher.PublishRunCompleted(ctx, mq.RunCompletedPayload{
			RunID:  run.ID,
			Status: string(run.Status),
			Error:  run.Error,
		})
		if err != nil {
			// Событие вторично по отношению к статусу в БД
			o.logger.Warn("failed to publish run.completed", "run_id", run.ID, "error", err)
		}
	}

	o.logger.Info("run finalized",
		"run_id", run.ID,
		"status", run.Status,
		"duration", run.Duration(),
	)
	return nil
}

// runConfig собирает сырую конфигурацию run для нормализации.
// Поля строки run (user_id, mode) дополняют config, если тот их
// не задаёт: run создаётся и через API с config, и scheduler'ом без.
// Адреса агентов из окружения подставляются, только когда config
// не несёт собственных endpoints.
func (o *Orchestrator) runConfig(run *domain.Run) map[string]any {
	raw := make(map[string]any, len(run.Config)+3)
	for k, v := range run.Config {
		raw[k] = v
	}
	if _, ok := raw["user_id"]; !ok && run.UserID != "" {
		raw["user_id"] = run.UserID
	}
	if _, ok := raw["mode"]; !ok && run.Mode != "" {
		raw["mode"] = string(run.Mode)
	}
	if _, ok := raw["endpoints"]; !ok && len(o.defaultEndpoints) > 0 {
		raw["endpoints"] = o.defaultEndpoints
	}
	return raw
}
