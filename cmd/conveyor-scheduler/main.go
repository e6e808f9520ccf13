// Conveyor Scheduler — создаёт runs по cron-триггерам из YAML файла.
//
// Несколько экземпляров scheduler'а координируются через
// детерминированные run id: дубликат создания run по одному триггеру
// и времени отбрасывается уникальным ограничением БД.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/repo"
	"github.com/shaiso/Conveyor/internal/scheduler"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

const tickInterval = 10 * time.Second

func main() {
	triggersFile := flag.String("triggers", envOr("TRIGGERS_FILE", "triggers.yaml"), "triggers YAML file")
	flag.Parse()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting conveyor-scheduler", "triggers_file", *triggersFile)

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	triggers, err := scheduler.LoadTriggers(*triggersFile)
	if err != nil {
		logger.Error("failed to load triggers", "path", *triggersFile, "error", err)
		os.Exit(1)
	}
	logger.Info("triggers loaded", "count", len(triggers))

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	runRepo := repo.NewRunRepo(pool)

	// RabbitMQ: run.requested будит orchestrator сразу; без брокера
	// созданные runs подхватит polling
	var publisher *mq.Publisher
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available", "error", err)
	} else {
		defer mqConn.Close()
		publisher = mq.NewPublisher(mqConn, logger)
	}

	sched := scheduler.New(scheduler.Config{
		Runs:      runRepo,
		Publisher: publisher,
		Triggers:  triggers,
		Logger:    logger,
	})

	// scheduler loop
	go func() {
		if err := sched.Run(ctx, tickInterval); err != nil {
			logger.Error("scheduler stopped with error", "error", err)
			cancel()
		}
	}()

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("SCHED_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("conveyor-scheduler stopped")
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
