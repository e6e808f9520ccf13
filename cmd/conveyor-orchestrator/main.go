// Conveyor Orchestrator — выполняет рекомендательные пайплайны.
//
// Orchestrator:
//   - Ждёт готовности зависимостей (registry, БД) через readiness gate
//   - Получает новые runs из RabbitMQ (с polling fallback по БД)
//   - Нормализует конфигурацию и выполняет шаги пайплайна
//   - Агрегирует артефакты и финализирует runs
//
// Однократный режим: conveyor-orchestrator -user u-1 [-mode development]
// выполняет один run с in-memory хранилищем артефактов и выводит
// результат агрегации в stdout. Код возврата 0 при завершении run
// (включая PARTIAL), 1 при FAILED или ошибке валидации.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Conveyor/internal/config"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
	"github.com/shaiso/Conveyor/internal/gate"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/orchestrator"
	"github.com/shaiso/Conveyor/internal/repo"
	"github.com/shaiso/Conveyor/internal/store"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

func main() {
	var (
		userID       = flag.String("user", "", "run the pipeline once for this user and exit")
		mode         = flag.String("mode", string(domain.ModeDevelopment), "mode for the one-shot run: normal or development")
		bypass       = flag.Bool("bypass", false, "skip agent steps in the one-shot run (development mode only)")
		pipelineFile = flag.String("pipeline", os.Getenv("PIPELINE_FILE"), "pipeline definition YAML (built-in pipeline if empty)")
	)
	flag.Parse()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	spec, err := loadPipeline(*pipelineFile)
	if err != nil {
		logger.Error("failed to load pipeline", "path", *pipelineFile, "error", err)
		os.Exit(1)
	}

	if *userID != "" {
		os.Exit(runOnce(ctx, logger, spec, *userID, *mode, *bypass))
	}

	logger.Info("starting conveyor-orchestrator", "pipeline", spec.Name)

	// Readiness gate: registry health + TCP порт БД. Без готовых
	// зависимостей orchestrator не принимает runs.
	if err := awaitDependencies(ctx, logger); err != nil {
		var timeoutErr *gate.TimeoutError
		if errors.As(err, &timeoutErr) {
			logger.Error("dependency never became ready",
				"target", timeoutErr.Target,
				"attempts", timeoutErr.Attempts,
				"error", timeoutErr.LastErr,
			)
		} else {
			logger.Error("readiness gate failed", "error", err)
		}
		os.Exit(1)
	}

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Создаём репозитории
	runRepo := repo.NewRunRepo(pool)
	artifactRepo := repo.NewArtifactRepo(pool)

	// RabbitMQ
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Создаём orchestrator
	orch := orchestrator.New(orchestrator.Config{
		RunStore:         runRepo,
		Engine:           engine.New(spec, artifactRepo, logger),
		Publisher:        publisher,
		Conn:             mqConn,
		DefaultEndpoints: agentEndpoints(),
		Logger:           logger,
	})

	// Запускаем orchestrator
	if err := orch.Start(ctx); err != nil {
		logger.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("ORCH_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем orchestrator
	orch.Stop()
	logger.Info("conveyor-orchestrator stopped")
}

// loadPipeline возвращает спецификацию пайплайна: из YAML файла или
// встроенную рекомендательную.
func loadPipeline(path string) (*domain.PipelineSpec, error) {
	if path == "" {
		return config.DefaultPipeline(), nil
	}
	return config.LoadPipeline(path)
}

// awaitDependencies блокирует до готовности registry и БД.
//
// REGISTRY_URL пустой — registry не проверяется (например, в
// docker-compose без реестра агентов). Порт БД проверяется всегда.
func awaitDependencies(ctx context.Context, logger *slog.Logger) error {
	var targets []gate.Target

	if registryURL := os.Getenv("REGISTRY_URL"); registryURL != "" {
		targets = append(targets, gate.NewHTTPTarget(registryURL+"/health"))
	}

	dbAddr := os.Getenv("DB_ADDR")
	if dbAddr == "" {
		dbAddr = "localhost:55432"
	}
	targets = append(targets, gate.NewTCPTarget(dbAddr))

	return gate.AwaitReady(ctx, logger, targets, gate.DefaultMaxAttempts, gate.DefaultInterval)
}

// agentEndpoints собирает адреса агентов из переменных окружения.
// Отсутствующие агенты не попадают в map — в development mode их
// шаги завершатся fallback-артефактами.
func agentEndpoints() map[string]string {
	envByAgent := map[string]string{
		config.AgentProfile:    "AGENT_PROFILE_URL",
		config.AgentTrends:     "AGENT_TRENDS_URL",
		config.AgentCatalog:    "AGENT_CATALOG_URL",
		config.AgentValidation: "AGENT_VALIDATION_URL",
	}

	endpoints := make(map[string]string, len(envByAgent))
	for agentName, envName := range envByAgent {
		if v := os.Getenv(envName); v != "" {
			endpoints[agentName] = v
		}
	}
	return endpoints
}

// runOnce выполняет один run с in-memory хранилищем и выводит
// результат агрегации в stdout.
func runOnce(ctx context.Context, logger *slog.Logger, spec *domain.PipelineSpec, userID, mode string, bypass bool) int {
	raw := map[string]any{
		"user_id":   userID,
		"mode":      mode,
		"endpoints": agentEndpoints(),
	}
	if bypass {
		raw["bypass_agents"] = true
	}

	cfg, err := config.Normalize(raw)
	if err != nil {
		logger.Error("invalid run config", "error", err)
		return 1
	}

	run := &domain.Run{
		ID:        domain.NewRunID(),
		UserID:    cfg.UserID,
		Mode:      cfg.Mode,
		Status:    domain.RunStatusPending,
		CreatedAt: time.Now(),
	}

	eng := engine.New(spec, store.NewMemory(), logger)
	result, err := eng.Execute(ctx, run, cfg)
	if err != nil {
		logger.Error("run failed", "run_id", run.ID, "error", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(result)
	return 0
}
