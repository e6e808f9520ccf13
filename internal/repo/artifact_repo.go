package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/store"
)

// ArtifactRepo — Postgres-реализация store.Store.
//
// Записи append-only; retry шага добавляет новую строку с тем же
// ключом (run_id, step_name, artifact_type). Конкурентные записи
// разных runs не требуют блокировок: строки не обновляются, ключ
// содержит run_id.
type ArtifactRepo struct {
	pool *pgxpool.Pool
}

// Проверка соответствия интерфейсу.
var _ store.Store = (*ArtifactRepo)(nil)

// NewArtifactRepo создаёт новый ArtifactRepo.
func NewArtifactRepo(pool *pgxpool.Pool) *ArtifactRepo {
	return &ArtifactRepo{pool: pool}
}

// Write добавляет артефакт и возвращает записанную строку.
func (r *ArtifactRepo) Write(ctx context.Context, runID, stepName string, artifactType domain.ArtifactType, data map[string]any) (*domain.Artifact, error) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal artifact data: %w", err)
	}

	query := `
		INSERT INTO artifacts (run_id, step_name, artifact_type, artifact_data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	artifact := domain.Artifact{
		RunID:    runID,
		StepName: stepName,
		Type:     artifactType,
		Data:     data,
	}
	err = r.pool.QueryRow(ctx, query, runID, stepName, artifactType, dataJSON).
		Scan(&artifact.ID, &artifact.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert artifact: %w", err)
	}

	return &artifact, nil
}

// ReadLatest возвращает последний артефакт по (run, type).
// Дубликаты от retry разрешаются по created_at, при равенстве — по id.
func (r *ArtifactRepo) ReadLatest(ctx context.Context, runID string, artifactType domain.ArtifactType) (*domain.Artifact, error) {
	query := `
		SELECT id, run_id, step_name, artifact_type, artifact_data, created_at
		FROM artifacts
		WHERE run_id = $1 AND artifact_type = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	return r.scanArtifact(r.pool.QueryRow(ctx, query, runID, artifactType))
}

// ReadAll возвращает все артефакты run в порядке записи.
func (r *ArtifactRepo) ReadAll(ctx context.Context, runID string) ([]domain.Artifact, error) {
	query := `
		SELECT id, run_id, step_name, artifact_type, artifact_data, created_at
		FROM artifacts
		WHERE run_id = $1
		ORDER BY id ASC
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []domain.Artifact
	for rows.Next() {
		artifact, err := r.scanArtifactFromRows(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, *artifact)
	}
	return artifacts, rows.Err()
}

// --- Helpers ---

func (r *ArtifactRepo) scanArtifact(row pgx.Row) (*domain.Artifact, error) {
	var artifact domain.Artifact
	var dataJSON []byte

	err := row.Scan(
		&artifact.ID,
		&artifact.RunID,
		&artifact.StepName,
		&artifact.Type,
		&dataJSON,
		&artifact.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan artifact: %w", err)
	}

	if dataJSON != nil {
		if err := json.Unmarshal(dataJSON, &artifact.Data); err != nil {
			return nil, fmt.Errorf("unmarshal artifact data: %w", err)
		}
	}

	return &artifact, nil
}

func (r *ArtifactRepo) scanArtifactFromRows(rows pgx.Rows) (*domain.Artifact, error) {
	var artifact domain.Artifact
	var dataJSON []byte

	err := rows.Scan(
		&artifact.ID,
		&artifact.RunID,
		&artifact.StepName,
		&artifact.Type,
		&dataJSON,
		&artifact.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan artifact: %w", err)
	}

	if dataJSON != nil {
		if err := json.Unmarshal(dataJSON, &artifact.Data); err != nil {
			return nil, fmt.Errorf("unmarshal artifact data: %w", err)
		}
	}

	return &artifact, nil
}
