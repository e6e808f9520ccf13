package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/repo"
)

// RunCreator — создание runs. Реализуется repo.RunRepo.
type RunCreator interface {
	Create(ctx context.Context, run *domain.Run) error
}

// RequestPublisher — публикация событий run.requested.
// Реализуется mq.Publisher.
type RequestPublisher interface {
	PublishRunRequested(ctx context.Context, runID string) error
}

// Scheduler создаёт runs по cron-триггерам.
//
// Идентификатор run детерминирован: "{trigger}-{due_unix}". Два
// экземпляра scheduler'а, сработавшие на одном времени, создадут run
// с одним id — второй Create вернёт ErrAlreadyExists и будет
// проигнорирован. Это единственный механизм координации, отдельного
// leader election нет.
type Scheduler struct {
	runs      RunCreator
	publisher RequestPublisher
	triggers  []Trigger
	logger    *slog.Logger

	// next — следующее время срабатывания по имени триггера
	next map[string]time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Runs      RunCreator
	Publisher RequestPublisher // опционально
	Triggers  []Trigger
	Logger    *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		runs:      cfg.Runs,
		publisher: cfg.Publisher,
		triggers:  cfg.Triggers,
		logger:    logger,
		next:      make(map[string]time.Time, len(cfg.Triggers)),
	}
}

// Tick выполняет один тик планировщика.
//
// Для каждого due-триггера создаёт run и публикует run.requested.
// Ошибки одного триггера не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	var created int

	for i := range s.triggers {
		trigger := &s.triggers[i]

		due, fired, err := s.dueAt(trigger, now)
		if err != nil {
			s.logger.Error("failed to evaluate trigger", "trigger", trigger.Name, "error", err)
			continue
		}
		if !fired {
			continue
		}

		runCreated, err := s.fire(ctx, trigger, due)
		if err != nil {
			s.logger.Error("failed to fire trigger",
				"trigger", trigger.Name,
				"due", due,
				"error", err,
			)
			continue
		}
		if runCreated {
			created++
		}
	}

	if created > 0 {
		s.logger.Info("scheduler tick completed", "runs_created", created)
	}
	return nil
}

// Run запускает цикл планировщика до отмены контекста.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "triggers", len(s.triggers), "interval", interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case now := <-ticker.C:
			if err := s.Tick(ctx, now); err != nil {
				s.logger.Error("scheduler tick failed", "error", err)
			}
		}
	}
}

// dueAt проверяет, сработал ли триггер, и продвигает его расписание.
func (s *Scheduler) dueAt(trigger *Trigger, now time.Time) (time.Time, bool, error) {
	schedule, err := cronParser.Parse(trigger.Cron)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse cron %q: %w", trigger.Cron, err)
	}

	next, ok := s.next[trigger.Name]
	if !ok {
		// Первый тик: начинаем со следующего срабатывания,
		// прошлые времена не навёрстываем
		s.next[trigger.Name] = schedule.Next(now)
		return time.Time{}, false, nil
	}

	if now.Before(next) {
		return time.Time{}, false, nil
	}

	s.next[trigger.Name] = schedule.Next(now)
	return next, true, nil
}

// fire создаёт run для сработавшего триггера.
// Возвращает true, если run был создан (не был дубликатом).
func (s *Scheduler) fire(ctx context.Context, trigger *Trigger, due time.Time) (bool, error) {
	mode := trigger.Mode
	if mode == "" {
		mode = domain.ModeNormal
	}

	run := &domain.Run{
		ID:        RunID(trigger.Name, due),
		UserID:    trigger.UserID,
		Mode:      mode,
		Status:    domain.RunStatusPending,
		Config:    trigger.Config,
		CreatedAt: time.Now(),
	}

	if err := s.runs.Create(ctx, run); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			s.logger.Debug("run already created for this due time",
				"trigger", trigger.Name,
				"run_id", run.ID,
			)
			return false, nil
		}
		return false, fmt.Errorf("create run: %w", err)
	}

	s.logger.Info("created run from trigger",
		"run_id", run.ID,
		"trigger", trigger.Name,
		"due", due,
	)

	if s.publisher != nil {
		if err := s.publisher.PublishRunRequested(ctx, run.ID); err != nil {
			// Не фатально — run уже в БД, orchestrator подхватит
			// его через polling
			s.logger.Warn("failed to publish run.requested", "run_id", run.ID, "error", err)
		}
	}

	return true, nil
}

// RunID строит детерминированный идентификатор run для триггера
// и времени срабатывания.
func RunID(trigger string, due time.Time) string {
	return fmt.Sprintf("%s-%d", trigger, due.Unix())
}
