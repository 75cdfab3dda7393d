package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SchemaSQL creates the tables used by the search task store. Every
// statement is idempotent so Migrate can run on each startup.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS search_tasks (
    id            TEXT PRIMARY KEY,
    keyword       TEXT NOT NULL,
    location      TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL DEFAULT 'pending'
                  CHECK (status IN ('pending', 'running', 'completed', 'failed')),
    total_found   INTEGER NOT NULL DEFAULT 0,
    total_saved   INTEGER NOT NULL DEFAULT 0,
    error_message TEXT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS search_tasks_keyword_idx ON search_tasks (keyword);

CREATE TABLE IF NOT EXISTS crawled_jobs (
    id              TEXT PRIMARY KEY,
    task_id         TEXT NOT NULL REFERENCES search_tasks (id) ON DELETE CASCADE,
    title           TEXT NOT NULL,
    company         TEXT NOT NULL,
    location        TEXT NOT NULL DEFAULT '',
    salary_range    TEXT,
    description     TEXT NOT NULL DEFAULT '',
    source_url      TEXT,
    source_platform TEXT,
    publish_date    TEXT,
    experience_required TEXT,
    education       TEXT,
    detail_url      TEXT,
    job_hash        TEXT NOT NULL UNIQUE,
    parsed_data     JSONB,
    parse_status    TEXT NOT NULL DEFAULT 'pending'
                    CHECK (parse_status IN ('pending', 'parsed', 'failed')),
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS crawled_jobs_task_idx ON crawled_jobs (task_id);
CREATE INDEX IF NOT EXISTS crawled_jobs_title_idx ON crawled_jobs (title);

CREATE TABLE IF NOT EXISTS search_watches (
    id            TEXT PRIMARY KEY,
    keywords      TEXT[] NOT NULL,
    locations     TEXT[] NOT NULL DEFAULT '{}',
    max_results   INTEGER NOT NULL DEFAULT 20,
    exclude_terms TEXT[] NOT NULL DEFAULT '{}',
    salary_min    INTEGER,
    salary_max    INTEGER,
    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate applies SchemaSQL.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
