package memindex

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
)

type storeFake struct {
	files map[string]string
}

func (f *storeFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	content, ok := f.files[key]
	if !ok {
		return nil, errors.New("object not found: " + key)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

const artifactJSON = `{"chunks":[
	{"id":"c1","text":"Protected branches block force pushes.","metadata":{"title":"Branches"},"embedding":[1,0]},
	{"id":"c2","text":"Merge requests need approval.","metadata":{"title":"MRs"},"embedding":[0.9,0.1]},
	{"id":"c3","text":"CI runs on push.","metadata":{"title":"CI"},"embedding":[0,1]}
]}`

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestIndex(t *testing.T, files map[string]string) *Index {
	t.Helper()
	idx, err := New(context.Background(), &storeFake{files: files}, "index.json", "model_info.json", discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return idx
}

func TestNewFailsWhenArtifactMissing(t *testing.T) {
	_, err := New(context.Background(), &storeFake{files: map[string]string{}}, "index.json", "model_info.json", discard())
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSearchOrdersBySimilarity(t *testing.T) {
	idx := newTestIndex(t, map[string]string{"index.json": artifactJSON})

	got, err := idx.Search(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Chunk.ID != "c1" || got[1].Chunk.ID != "c2" {
		t.Fatalf("expected [c1 c2], got [%s %s]", got[0].Chunk.ID, got[1].Chunk.ID)
	}
	if got[0].Similarity < got[1].Similarity {
		t.Fatalf("expected non-increasing similarity, got %v then %v", got[0].Similarity, got[1].Similarity)
	}
}

func TestSearchCapsAtCorpusSize(t *testing.T) {
	idx := newTestIndex(t, map[string]string{"index.json": artifactJSON})

	got, err := idx.Search(context.Background(), []float32{1, 0}, 50)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected all 3 chunks, got %d", len(got))
	}
}

func TestSearchBreaksTiesByChunkID(t *testing.T) {
	artifact := `{"chunks":[
		{"id":"c2","text":"b","embedding":[1,0]},
		{"id":"c1","text":"a","embedding":[1,0]}
	]}`
	idx := newTestIndex(t, map[string]string{"index.json": artifact})

	got, err := idx.Search(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got[0].Chunk.ID != "c1" || got[1].Chunk.ID != "c2" {
		t.Fatalf("expected tie broken by id, got [%s %s]", got[0].Chunk.ID, got[1].Chunk.ID)
	}
}

func TestSearchRejectsDimensionMismatch(t *testing.T) {
	idx := newTestIndex(t, map[string]string{"index.json": artifactJSON})

	_, err := idx.Search(context.Background(), []float32{1, 0, 0}, 2)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestStatsReadsSidecar(t *testing.T) {
	idx := newTestIndex(t, map[string]string{
		"index.json":      artifactJSON,
		"model_info.json": `{"num_embeddings":3,"embedding_dim":2,"model_name":"nomic-embed-text"}`,
	})

	stats, err := idx.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.NumDocuments != 3 || stats.EmbeddingDim != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.ModelName != "nomic-embed-text" {
		t.Fatalf("expected sidecar model name, got %q", stats.ModelName)
	}
	if stats.VectorStoreKind != Kind {
		t.Fatalf("expected memory store kind, got %q", stats.VectorStoreKind)
	}
}

func TestStatsDegradeWithoutSidecar(t *testing.T) {
	idx := newTestIndex(t, map[string]string{"index.json": artifactJSON})

	stats, err := idx.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.ModelName != "Unknown" {
		t.Fatalf("expected Unknown model, got %q", stats.ModelName)
	}
	if stats.NumDocuments != 3 {
		t.Fatalf("counted stats must survive a missing sidecar, got %+v", stats)
	}
}

func TestReloadSwapsSnapshot(t *testing.T) {
	store := &storeFake{files: map[string]string{"index.json": artifactJSON}}
	idx, err := New(context.Background(), store, "index.json", "model_info.json", discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	store.files["index.json"] = `{"chunks":[{"id":"d1","text":"fresh","embedding":[1,0]}]}`
	if err := idx.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	got, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || got[0].Chunk.ID != "d1" {
		t.Fatalf("expected the reloaded corpus, got %v", got)
	}
}

func TestReloadFailureKeepsServingOldSnapshot(t *testing.T) {
	store := &storeFake{files: map[string]string{"index.json": artifactJSON}}
	idx, err := New(context.Background(), store, "index.json", "model_info.json", discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	store.files["index.json"] = `{"chunks":[{"id":"broken"`
	if err := idx.Reload(context.Background()); err == nil {
		t.Fatalf("expected reload error")
	}

	got, err := idx.Search(context.Background(), []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got[0].Chunk.ID != "c1" {
		t.Fatalf("expected the old snapshot to keep serving, got %s", got[0].Chunk.ID)
	}
}
