// Package repo содержит Postgres-репозитории (pgx) для runs и артефактов.
//
// Схема:
//
//	CREATE TABLE runs (
//	    id          VARCHAR(64) PRIMARY KEY,
//	    user_id     VARCHAR(100) NOT NULL,
//	    mode        VARCHAR(20) NOT NULL,
//	    status      VARCHAR(20) NOT NULL,
//	    config      JSONB,
//	    started_at  TIMESTAMPTZ,
//	    finished_at TIMESTAMPTZ,
//	    error       TEXT,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//
//	CREATE TABLE artifacts (
//	    id            BIGSERIAL PRIMARY KEY,
//	    run_id        VARCHAR(64) NOT NULL,
//	    step_name     VARCHAR(100) NOT NULL,
//	    artifact_type VARCHAR(100) NOT NULL,
//	    artifact_data JSONB NOT NULL,
//	    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE INDEX idx_artifacts_run_type ON artifacts (run_id, artifact_type);
//	CREATE INDEX idx_runs_status ON runs (status);
package repo
