package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/repo"
)

// ListRuns возвращает список runs с фильтрацией.
// GET /api/v1/runs?user_id=...&status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := repo.RunFilter{
		UserID: r.URL.Query().Get("user_id"),
		Status: domain.RunStatus(r.URL.Query().Get("status")),
		Limit:  parseIntOr(r.URL.Query().Get("limit"), 50),
		Offset: parseIntOr(r.URL.Query().Get("offset"), 0),
	}

	runs, err := h.runRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// CreateRun создаёт новый run и публикует событие run.requested.
// POST /api/v1/runs
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.UserID == "" {
		BadRequest(w, "user_id is required")
		return
	}

	mode := domain.Mode(req.Mode)
	if mode == "" {
		mode = domain.ModeNormal
	}
	if !mode.Valid() {
		BadRequest(w, "mode must be 'normal' or 'development'")
		return
	}

	runID := req.ID
	if runID == "" {
		runID = domain.NewRunID()
	}
	if len(runID) > domain.MaxRunIDLength {
		BadRequest(w, "run id exceeds 64 characters")
		return
	}

	run := &domain.Run{
		ID:        runID,
		UserID:    req.UserID,
		Mode:      mode,
		Status:    domain.RunStatusPending,
		Config:    req.Config,
		CreatedAt: time.Now(),
	}

	if err := h.runRepo.Create(r.Context(), run); err != nil {
		if HandleRepoError(w, h.logger, err, "") {
			return
		}
	}

	// Публикуем событие в очередь; при недоступности MQ run всё
	// равно будет подхвачен polling'ом оркестратора
	if h.publisher != nil {
		if err := h.publisher.PublishRunRequested(r.Context(), run.ID); err != nil {
			h.logger.Warn("failed to publish run.requested", "run_id", run.ID, "error", err)
		}
	}

	Created(w, RunFromDomain(*run))
}

// GetRun возвращает run по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runRepo.GetByID(r.Context(), r.PathValue("id"))
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	Success(w, RunFromDomain(*run))
}

// ListRunArtifacts возвращает артефакты run в порядке записи.
// GET /api/v1/runs/{id}/artifacts
func (h *Handler) ListRunArtifacts(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := h.runRepo.GetByID(r.Context(), id); HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	artifacts, err := h.artifacts.ReadAll(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ArtifactResponse, len(artifacts))
	for i, a := range artifacts {
		result[i] = ArtifactFromDomain(a)
	}

	List(w, result, len(result))
}

// GetRunResult возвращает финальный результат агрегации run.
// GET /api/v1/runs/{id}/result
func (h *Handler) GetRunResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	run, err := h.runRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	if !run.IsFinished() {
		NotFound(w, "run has not finished yet")
		return
	}

	artifact, err := h.artifacts.ReadLatest(r.Context(), id, domain.ArtifactTypeRecommendations)
	if HandleRepoError(w, h.logger, err, "run has no result") {
		return
	}

	Success(w, artifact.Data)
}

// parseIntOr парсит строку в int с дефолтным значением.
func parseIntOr(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}
