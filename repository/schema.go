package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateSchema creates the case_records table and its indexes. With drop set,
// an existing table is removed first.
func CreateSchema(ctx context.Context, db *pgxpool.Pool, dimensions int, drop bool) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}

	if _, err := db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		slog.Warn("failed to create pgvector extension, it may need superuser privileges", "error", err)
	}

	if drop {
		if _, err := db.Exec(ctx, "DROP TABLE IF EXISTS case_records CASCADE"); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
		slog.Info("dropped existing case_records table")
	}

	schemaSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS case_records (
    id TEXT PRIMARY KEY,
    document TEXT NOT NULL,
    metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
    embedding vector(%d),
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);`, dimensions)

	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create case_records table: %w", err)
	}

	indexes := []struct {
		name string
		sql  string
	}{
		{
			name: "vector similarity search (HNSW)",
			sql: `CREATE INDEX IF NOT EXISTS idx_case_embedding_hnsw ON case_records
USING hnsw (embedding vector_cosine_ops)
WITH (m = 16, ef_construction = 64);`,
		},
		{
			name: "category filtering",
			sql:  "CREATE INDEX IF NOT EXISTS idx_case_category ON case_records ((metadata->>'category'));",
		},
	}

	for _, idx := range indexes {
		if _, err := db.Exec(ctx, idx.sql); err != nil {
			return fmt.Errorf("failed to create index %q: %w", idx.name, err)
		}
		slog.Info("created index", "index", idx.name)
	}

	return nil
}
