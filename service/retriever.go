package service

import (
	"context"
	"errors"
	"time"

	"cyberlegal-backend/models"
)

// CaseStore answers nearest-neighbour queries over embedded case records.
// Inner slices of the result are parallel, one row per query text.
type CaseStore interface {
	Query(ctx context.Context, texts []string, nResults int) (*models.CaseQueryResult, error)
}

// Retriever fetches the cases most similar to a query
type Retriever struct {
	store   CaseStore
	timeout time.Duration
}

// NewRetriever creates a retriever over store. A zero timeout disables the per-call bound.
func NewRetriever(store CaseStore, timeout time.Duration) *Retriever {
	return &Retriever{store: store, timeout: timeout}
}

// Retrieve returns up to topK records ordered as the case store ranked them.
// An empty store response yields an empty slice, while store failures are
// reported as ErrCaseStoreUnavailable.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]models.RetrievedItem, error) {
	if topK <= 0 {
		return nil, ErrInvalidTopK
	}
	if r.store == nil {
		return nil, ErrCaseStoreUnavailable
	}

	callCtx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.store.Query(callCtx, []string{query}, topK)
	if err != nil {
		if errors.Is(err, ErrEmbeddingFailed) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, classify(ErrCaseStoreUnavailable, err)
	}

	return flattenQueryResult(result, topK), nil
}

// flattenQueryResult converts the first result row into retrieved items,
// tolerating short or missing parallel slices
func flattenQueryResult(result *models.CaseQueryResult, limit int) []models.RetrievedItem {
	items := make([]models.RetrievedItem, 0)
	if result == nil || len(result.IDs) == 0 || len(result.IDs[0]) == 0 {
		return items
	}

	ids := result.IDs[0]
	var documents []string
	if len(result.Documents) > 0 {
		documents = result.Documents[0]
	}
	var metadatas []map[string]any
	if len(result.Metadatas) > 0 {
		metadatas = result.Metadatas[0]
	}
	var distances []float64
	if len(result.Distances) > 0 {
		distances = result.Distances[0]
	}

	for i, id := range ids {
		if len(items) == limit {
			break
		}
		item := models.RetrievedItem{ID: id}
		if i < len(documents) {
			item.Document = documents[i]
		}
		if i < len(metadatas) && metadatas[i] != nil {
			item.Metadata = metadatas[i]
		} else {
			item.Metadata = map[string]any{}
		}
		if i < len(distances) {
			d := distances[i]
			item.Distance = &d
		}
		items = append(items, item)
	}

	return items
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
