package api

import (
	"log/slog"

	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/repo"
	"github.com/shaiso/Conveyor/internal/store"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	runRepo   *repo.RunRepo
	artifacts store.Store
	publisher *mq.Publisher
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	RunRepo   *repo.RunRepo
	Artifacts store.Store
	Publisher *mq.Publisher
	Logger    *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		runRepo:   cfg.RunRepo,
		artifacts: cfg.Artifacts,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
	}
}
