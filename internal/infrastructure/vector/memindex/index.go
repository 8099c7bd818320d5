// Package memindex serves nearest-neighbor queries from an index artifact
// loaded fully into memory. The artifact is a JSON chunk dump produced by the
// offline indexing job, with an optional model_info.json sidecar describing
// the embedding model it was built with.
package memindex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync/atomic"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/ports"
)

const Kind = "memory"

type snapshot struct {
	chunks  []domain.DocumentChunk
	vectors [][]float32
	dim     int
	stats   domain.IndexStats
}

// Index is safe for concurrent use. Queries read an immutable snapshot
// through an atomic pointer; Reload builds a replacement snapshot off to the
// side and swaps it in, so in-flight searches always see a consistent corpus.
type Index struct {
	store       ports.ArtifactStore
	artifactKey string
	metaKey     string
	logger      *slog.Logger

	current atomic.Pointer[snapshot]
}

// New loads the artifact eagerly. A missing or unreadable artifact is fatal:
// the service must not come up answering from an empty index by accident.
func New(ctx context.Context, store ports.ArtifactStore, artifactKey, metaKey string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx := &Index{
		store:       store,
		artifactKey: artifactKey,
		metaKey:     metaKey,
		logger:      logger,
	}

	snap, err := idx.load(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "load index artifact", err)
	}
	idx.current.Store(snap)
	return idx, nil
}

func (idx *Index) Search(ctx context.Context, queryVector []float32, topN int) ([]domain.RetrievedCandidate, error) {
	snap := idx.current.Load()
	if snap == nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "search", fmt.Errorf("no index snapshot loaded"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topN <= 0 || len(snap.chunks) == 0 {
		return nil, nil
	}
	if snap.dim > 0 && len(queryVector) != snap.dim {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search",
			fmt.Errorf("query vector has %d dimensions, index has %d", len(queryVector), snap.dim))
	}

	query := normalize(queryVector)
	candidates := make([]domain.RetrievedCandidate, len(snap.chunks))
	for i := range snap.chunks {
		candidates[i] = domain.RetrievedCandidate{
			Chunk:      snap.chunks[i],
			Similarity: dot(query, snap.vectors[i]),
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].Chunk.ID < candidates[j].Chunk.ID
	})

	if topN < len(candidates) {
		candidates = candidates[:topN]
	}
	return candidates, nil
}

func (idx *Index) Stats(context.Context) (domain.IndexStats, error) {
	snap := idx.current.Load()
	if snap == nil {
		return domain.IndexStats{}, domain.WrapError(domain.ErrIndexUnavailable, "stats", fmt.Errorf("no index snapshot loaded"))
	}
	return snap.stats, nil
}

// Reload fetches the artifact again and swaps the serving snapshot. On
// failure the previous snapshot stays in place, so the index keeps serving
// stale but consistent data.
func (idx *Index) Reload(ctx context.Context) error {
	snap, err := idx.load(ctx)
	if err != nil {
		return fmt.Errorf("reload index artifact: %w", err)
	}
	idx.current.Store(snap)
	idx.logger.Info("index snapshot swapped",
		slog.Int("num_documents", snap.stats.NumDocuments),
		slog.Int("embedding_dim", snap.stats.EmbeddingDim))
	return nil
}

type artifactFile struct {
	Chunks []struct {
		ID        string            `json:"id"`
		Text      string            `json:"text"`
		Metadata  map[string]string `json:"metadata"`
		Embedding []float32         `json:"embedding"`
	} `json:"chunks"`
}

type sidecarFile struct {
	NumEmbeddings int    `json:"num_embeddings"`
	EmbeddingDim  int    `json:"embedding_dim"`
	ModelName     string `json:"model_name"`
}

func (idx *Index) load(ctx context.Context) (*snapshot, error) {
	reader, err := idx.store.Open(ctx, idx.artifactKey)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", idx.artifactKey, err)
	}
	defer reader.Close()

	var artifact artifactFile
	if err := json.NewDecoder(reader).Decode(&artifact); err != nil {
		return nil, fmt.Errorf("decode %s: %w", idx.artifactKey, err)
	}

	snap := &snapshot{
		chunks:  make([]domain.DocumentChunk, 0, len(artifact.Chunks)),
		vectors: make([][]float32, 0, len(artifact.Chunks)),
	}
	for _, c := range artifact.Chunks {
		if c.ID == "" || c.Text == "" || len(c.Embedding) == 0 {
			return nil, fmt.Errorf("chunk %q is missing id, text or embedding", c.ID)
		}
		if snap.dim == 0 {
			snap.dim = len(c.Embedding)
		}
		if len(c.Embedding) != snap.dim {
			return nil, fmt.Errorf("chunk %q has %d dimensions, expected %d", c.ID, len(c.Embedding), snap.dim)
		}
		snap.chunks = append(snap.chunks, domain.DocumentChunk{
			ID:       c.ID,
			Text:     c.Text,
			Metadata: c.Metadata,
		})
		snap.vectors = append(snap.vectors, normalize(c.Embedding))
	}

	snap.stats = idx.loadStats(ctx, snap)
	return snap, nil
}

// loadStats merges the sidecar into counted reality. The chunk count and
// dimension come from the artifact itself; the sidecar contributes the model
// identity. A missing sidecar degrades to "Unknown" instead of failing.
func (idx *Index) loadStats(ctx context.Context, snap *snapshot) domain.IndexStats {
	stats := domain.IndexStats{
		NumDocuments:    len(snap.chunks),
		EmbeddingDim:    snap.dim,
		ModelName:       "Unknown",
		VectorStoreKind: Kind,
	}

	reader, err := idx.store.Open(ctx, idx.metaKey)
	if err != nil {
		idx.logger.Warn("index sidecar unavailable",
			slog.String("key", idx.metaKey),
			slog.String("error", err.Error()))
		return stats
	}
	defer reader.Close()

	var sidecar sidecarFile
	if err := json.NewDecoder(reader).Decode(&sidecar); err != nil {
		idx.logger.Warn("index sidecar unreadable",
			slog.String("key", idx.metaKey),
			slog.String("error", err.Error()))
		return stats
	}
	if sidecar.ModelName != "" {
		stats.ModelName = sidecar.ModelName
	}
	return stats
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
