package domain

// DocumentChunk is the immutable unit of the indexed corpus. Chunks are
// produced by the offline ingestion job and never mutated while serving.
type DocumentChunk struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Embedding []float32         `json:"embedding,omitempty"`
}

// Title returns the human-readable label for the chunk, falling back to the
// source locator and finally a fixed placeholder so that a rendered source
// list never shows an empty name.
func (c DocumentChunk) Title() string {
	if t := c.Metadata["title"]; t != "" {
		return t
	}
	if s := c.Metadata["source"]; s != "" {
		return s
	}
	return "Untitled"
}

// RetrievedCandidate is a chunk reference with the coarse vector similarity
// from the index and, after the rerank stage, an independent rerank score.
// The two scores are not numerically comparable.
type RetrievedCandidate struct {
	Chunk       DocumentChunk `json:"chunk"`
	Similarity  float64       `json:"similarity"`
	RerankScore float64       `json:"rerank_score,omitempty"`
	Reranked    bool          `json:"reranked,omitempty"`
}

// Score returns the relevance score the final ordering is based on.
func (c RetrievedCandidate) Score() float64 {
	if c.Reranked {
		return c.RerankScore
	}
	return c.Similarity
}
