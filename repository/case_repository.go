package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cyberlegal-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryEmbedder embeds search queries for nearest-neighbour lookup
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CaseRepository is the case store: embedded case records in Postgres with pgvector
type CaseRepository struct {
	db       *pgxpool.Pool
	embedder QueryEmbedder
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *pgxpool.Pool, embedder QueryEmbedder) *CaseRepository {
	return &CaseRepository{db: db, embedder: embedder}
}

// formatVector formats an embedding vector as a pgvector literal
func formatVector(embedding []float32) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', 6, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Query returns, for each text, the nResults nearest case records ordered by
// ascending cosine distance
func (r *CaseRepository) Query(ctx context.Context, texts []string, nResults int) (*models.CaseQueryResult, error) {
	if r.embedder == nil {
		return nil, errors.New("query embedder not set")
	}
	if nResults <= 0 {
		return nil, fmt.Errorf("n_results must be positive, got %d", nResults)
	}

	result := &models.CaseQueryResult{
		IDs:       make([][]string, 0, len(texts)),
		Documents: make([][]string, 0, len(texts)),
		Metadatas: make([][]map[string]any, 0, len(texts)),
		Distances: make([][]float64, 0, len(texts)),
	}

	for _, text := range texts {
		embedding, err := r.embedder.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}

		ids, docs, metas, dists, err := r.nearest(ctx, embedding, nResults)
		if err != nil {
			return nil, err
		}
		result.IDs = append(result.IDs, ids)
		result.Documents = append(result.Documents, docs)
		result.Metadatas = append(result.Metadatas, metas)
		result.Distances = append(result.Distances, dists)
	}

	return result, nil
}

func (r *CaseRepository) nearest(ctx context.Context, embedding []float32, limit int) ([]string, []string, []map[string]any, []float64, error) {
	query := `
		SELECT
			id,
			document,
			metadata,
			embedding <=> $1::vector AS distance
		FROM case_records
		WHERE embedding IS NOT NULL
		ORDER BY
			embedding <=> $1::vector
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, formatVector(embedding), limit)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to query case records: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	docs := make([]string, 0, limit)
	metas := make([]map[string]any, 0, limit)
	dists := make([]float64, 0, limit)

	for rows.Next() {
		var (
			id       string
			doc      string
			rawMeta  []byte
			distance float64
		)
		if err := rows.Scan(&id, &doc, &rawMeta, &distance); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to scan case record: %w", err)
		}
		ids = append(ids, id)
		docs = append(docs, doc)
		metas = append(metas, decodeMetadata(rawMeta))
		dists = append(dists, distance)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("error iterating case records: %w", err)
	}

	return ids, docs, metas, dists, nil
}

// decodeMetadata decodes JSONB metadata, never returning nil
func decodeMetadata(raw []byte) map[string]any {
	meta := map[string]any{}
	if len(raw) == 0 {
		return meta
	}
	if err := json.Unmarshal(raw, &meta); err != nil || meta == nil {
		return map[string]any{}
	}
	return meta
}

// Upsert inserts or replaces records with their embeddings in a single batch
func (r *CaseRepository) Upsert(ctx context.Context, records []models.CaseRecord, embeddings [][]float32) error {
	if len(records) != len(embeddings) {
		return fmt.Errorf("records and embeddings length mismatch: %d != %d", len(records), len(embeddings))
	}
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO case_records (id, document, metadata, embedding)
		VALUES ($1, $2, $3::jsonb, $4::vector)
		ON CONFLICT (id) DO UPDATE SET
			document = EXCLUDED.document,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for i, record := range records {
		if record.ID == "" {
			return fmt.Errorf("record %d has no id", i)
		}
		meta := record.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", record.ID, err)
		}
		batch.Queue(query, record.ID, record.Document, string(metaJSON), formatVector(embeddings[i]))
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for _, record := range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert case record %s: %w", record.ID, err)
		}
	}
	return nil
}

// Count returns the number of stored case records
func (r *CaseRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM case_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count case records: %w", err)
	}
	return n, nil
}

// Reset removes every case record
func (r *CaseRepository) Reset(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `TRUNCATE case_records`); err != nil {
		return fmt.Errorf("failed to reset case records: %w", err)
	}
	return nil
}
