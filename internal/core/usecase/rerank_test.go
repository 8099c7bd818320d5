package usecase

import (
	"testing"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
)

func candidate(id string, similarity float64) domain.RetrievedCandidate {
	return domain.RetrievedCandidate{
		Chunk:      domain.DocumentChunk{ID: id, Text: "text for " + id},
		Similarity: similarity,
	}
}

func TestApplyRerankScoresOrdersByScoreDescending(t *testing.T) {
	candidates := []domain.RetrievedCandidate{
		candidate("c1", 0.9),
		candidate("c2", 0.8),
		candidate("c3", 0.7),
	}

	out := applyRerankScores(candidates, []float64{0.1, 0.95, 0.5})

	wantOrder := []string{"c2", "c3", "c1"}
	for i, want := range wantOrder {
		if out[i].Chunk.ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, out[i].Chunk.ID)
		}
		if !out[i].Reranked {
			t.Fatalf("position %d: expected Reranked to be set", i)
		}
	}
	if candidates[0].Reranked {
		t.Fatalf("input slice must not be mutated")
	}
}

func TestApplyRerankScoresBreaksTiesByChunkID(t *testing.T) {
	candidates := []domain.RetrievedCandidate{
		candidate("c9", 0.5),
		candidate("c2", 0.5),
		candidate("c5", 0.5),
	}

	out := applyRerankScores(candidates, []float64{0.7, 0.7, 0.7})

	wantOrder := []string{"c2", "c5", "c9"}
	for i, want := range wantOrder {
		if out[i].Chunk.ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, out[i].Chunk.ID)
		}
	}
}

func TestSortBySimilarityIsDeterministic(t *testing.T) {
	candidates := []domain.RetrievedCandidate{
		candidate("c3", 0.7),
		candidate("c1", 0.7),
		candidate("c2", 0.9),
	}

	first := sortBySimilarity(candidates)
	second := sortBySimilarity(candidates)

	wantOrder := []string{"c2", "c1", "c3"}
	for i, want := range wantOrder {
		if first[i].Chunk.ID != want || second[i].Chunk.ID != want {
			t.Fatalf("position %d: expected %s, got %s / %s", i, want, first[i].Chunk.ID, second[i].Chunk.ID)
		}
	}
}

func TestTrimCandidates(t *testing.T) {
	candidates := []domain.RetrievedCandidate{candidate("c1", 0.9), candidate("c2", 0.8)}

	if got := trimCandidates(candidates, 1); len(got) != 1 || got[0].Chunk.ID != "c1" {
		t.Fatalf("expected trimmed to [c1], got %v", got)
	}
	if got := trimCandidates(candidates, 5); len(got) != 2 {
		t.Fatalf("expected untouched slice, got %d", len(got))
	}
}
