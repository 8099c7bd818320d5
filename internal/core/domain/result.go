package domain

import (
	"errors"
	"time"
)

// Degradation reasons attached to a QueryResult when a recoverable failure
// was absorbed by the pipeline.
const (
	DegradedRetrievalFailed     = "retrieval_failed"
	DegradedRerankerUnavailable = "reranker_unavailable"
	DegradedContextTruncated    = "context_truncated"
	DegradedGenerationFailed    = "generation_failed"
)

// QueryResult is the output of one pipeline invocation. It is created fresh
// per call, validated at construction and immutable once returned; the
// presentation layer owns it afterwards and may persist it in a history list.
type QueryResult struct {
	ID             string               `json:"id"`
	Query          string               `json:"query"`
	Answer         string               `json:"answer"`
	Sources        []RetrievedCandidate `json:"sources"`
	NumSources     int                  `json:"num_sources"`
	Provider       string               `json:"provider"`
	Degraded       bool                 `json:"degraded,omitempty"`
	DegradedReason string               `json:"degraded_reason,omitempty"`
	ElapsedMS      int64                `json:"elapsed_ms"`
	CreatedAt      time.Time            `json:"created_at"`
}

// NewQueryResult builds a validated QueryResult. Sources must be ordered most
// relevant first: rerank scores (where present) non-increasing, and no source
// with empty text.
func NewQueryResult(id, query, answer, provider string, sources []RetrievedCandidate) (*QueryResult, error) {
	for i, src := range sources {
		if src.Chunk.Text == "" {
			return nil, WrapError(ErrInvalidInput, "build query result", errors.New("source with empty text"))
		}
		if i > 0 && sources[i].Reranked && sources[i-1].Reranked &&
			sources[i].RerankScore > sources[i-1].RerankScore {
			return nil, WrapError(ErrInvalidInput, "build query result", errors.New("rerank scores not non-increasing"))
		}
	}

	return &QueryResult{
		ID:         id,
		Query:      query,
		Answer:     answer,
		Sources:    sources,
		NumSources: len(sources),
		Provider:   provider,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
