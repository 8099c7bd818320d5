package ports

import (
	"context"
	"io"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
)

// Embedder maps query text into the index's embedding space. ModelName is the
// configured embedding model identity and must match the identity recorded on
// the index sidecar.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// VectorIndex answers top-n nearest queries over the chunk corpus. Search
// returns candidates best-first with ties broken by chunk id ascending, and
// fails with domain.ErrIndexUnavailable when the backing store cannot be
// reached, so an empty result always means zero matches.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, topN int) ([]domain.RetrievedCandidate, error)
	Stats(ctx context.Context) (domain.IndexStats, error)
}

// Reranker scores passages against a query with a finer-grained relevance
// signal than vector similarity. Scores are returned in passage order. On
// error callers fall back to similarity ordering.
type Reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
	ModelName() string
}

// AnswerGenerator produces the final grounded answer from the assembled
// context block. Failures are reported as domain backend error kinds.
type AnswerGenerator interface {
	Generate(ctx context.Context, question, contextBlock string) (string, error)
	Provider() string
}

// ArtifactStore reads persisted index artifacts (vector dump and sidecar
// metadata) from durable storage.
type ArtifactStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// HistoryStore persists answered queries for the presentation layer. The
// pipeline core never writes to it.
type HistoryStore interface {
	Save(ctx context.Context, result *domain.QueryResult) error
	ListRecent(ctx context.Context, limit int) ([]domain.QueryResult, error)
}
