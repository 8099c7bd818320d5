package usecase

import (
	"context"
	"fmt"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/ports"
)

// Retriever embeds the incoming question and fetches an overfetched candidate
// set from the vector index, leaving the reranker enough material to correct
// coarse similarity ordering.
type Retriever struct {
	embedder  ports.Embedder
	index     ports.VectorIndex
	overfetch int
}

// NewRetriever verifies at construction that the query-time embedding model
// matches the identity recorded on the index sidecar. A mismatch would make
// every similarity score meaningless, so it is a fatal configuration error
// rather than a silent degradation. An absent sidecar ("Unknown" identity) is
// tolerated, matching the graceful stats degradation.
func NewRetriever(ctx context.Context, embedder ports.Embedder, index ports.VectorIndex, overfetchFactor int) (*Retriever, error) {
	if overfetchFactor <= 1 {
		return nil, domain.WrapError(domain.ErrConfiguration, "build retriever",
			fmt.Errorf("overfetch factor must be > 1, got %d", overfetchFactor))
	}

	stats, err := index.Stats(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "build retriever", err)
	}
	if stats.ModelName != "" && stats.ModelName != "Unknown" && stats.ModelName != embedder.ModelName() {
		return nil, domain.WrapError(domain.ErrConfiguration, "build retriever",
			fmt.Errorf("index built with embedding model %q, query-time model is %q", stats.ModelName, embedder.ModelName()))
	}

	return &Retriever{
		embedder:  embedder,
		index:     index,
		overfetch: overfetchFactor,
	}, nil
}

// Retrieve returns up to overfetch*k candidates, best-first by similarity.
// An empty corpus yields an empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedCandidate, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := r.index.Search(ctx, vector, r.overfetch*k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return candidates, nil
}
