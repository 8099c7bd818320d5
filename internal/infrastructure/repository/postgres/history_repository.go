package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
)

// HistoryRepository persists answered queries so operators and the UI can
// review recent sessions. Sources are stored as one JSONB document; they are
// read back whole, never queried by field.
type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *HistoryRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent service startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS answer_history (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	answer TEXT NOT NULL,
	sources JSONB NOT NULL DEFAULT '[]'::jsonb,
	num_sources INTEGER NOT NULL DEFAULT 0,
	provider TEXT NOT NULL,
	degraded BOOLEAN NOT NULL DEFAULT FALSE,
	degraded_reason TEXT,
	elapsed_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_answer_history_created_at ON answer_history(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *HistoryRepository) Save(ctx context.Context, result *domain.QueryResult) error {
	sourcesJSON, err := json.Marshal(result.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO answer_history (
	id, query, answer, sources, num_sources, provider, degraded, degraded_reason, elapsed_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		result.ID, result.Query, result.Answer, sourcesJSON, result.NumSources,
		result.Provider, result.Degraded, result.DegradedReason, result.ElapsedMS, result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert answer history: %w", err)
	}
	return nil
}

func (r *HistoryRepository) ListRecent(ctx context.Context, limit int) ([]domain.QueryResult, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, query, answer, sources, num_sources, provider, degraded, degraded_reason, elapsed_ms, created_at
FROM answer_history
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query answer history: %w", err)
	}
	defer rows.Close()

	var results []domain.QueryResult
	for rows.Next() {
		var (
			result     domain.QueryResult
			sourcesRaw []byte
			reason     sql.NullString
		)
		err := rows.Scan(
			&result.ID, &result.Query, &result.Answer, &sourcesRaw, &result.NumSources,
			&result.Provider, &result.Degraded, &reason, &result.ElapsedMS, &result.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan answer history row: %w", err)
		}
		if err := json.Unmarshal(sourcesRaw, &result.Sources); err != nil {
			return nil, fmt.Errorf("unmarshal sources: %w", err)
		}
		result.DegradedReason = reason.String
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer history rows: %w", err)
	}
	return results, nil
}
