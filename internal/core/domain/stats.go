package domain

// IndexStats describes the loaded vector index for diagnostics. Values come
// from the sidecar metadata record written by the ingestion job.
type IndexStats struct {
	NumDocuments    int    `json:"num_documents"`
	EmbeddingDim    int    `json:"embedding_dim"`
	ModelName       string `json:"model_name"`
	VectorStoreKind string `json:"vector_store_kind"`
}

// UnknownIndexStats is the graceful-degradation value used when the sidecar
// metadata is absent or the backing store cannot be queried.
func UnknownIndexStats(kind string) IndexStats {
	return IndexStats{
		ModelName:       "Unknown",
		VectorStoreKind: kind,
	}
}
