package usecase

import (
	"sort"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
)

// applyRerankScores attaches independent per-candidate scores and orders the
// set by (rerank score desc, chunk id asc). The sort is stable and keyed on
// the chunk id last, so identical inputs always produce identical ordering.
func applyRerankScores(candidates []domain.RetrievedCandidate, scores []float64) []domain.RetrievedCandidate {
	out := make([]domain.RetrievedCandidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		out[i].RerankScore = scores[i]
		out[i].Reranked = true
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RerankScore != out[j].RerankScore {
			return out[i].RerankScore > out[j].RerankScore
		}
		return out[i].Chunk.ID < out[j].Chunk.ID
	})
	return out
}

// sortBySimilarity is the deterministic fallback ordering used when the
// reranking backend is unavailable: similarity desc, chunk id asc.
func sortBySimilarity(candidates []domain.RetrievedCandidate) []domain.RetrievedCandidate {
	out := make([]domain.RetrievedCandidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Chunk.ID < out[j].Chunk.ID
	})
	return out
}

func trimCandidates(candidates []domain.RetrievedCandidate, k int) []domain.RetrievedCandidate {
	if k <= 0 || len(candidates) <= k {
		return candidates
	}
	return candidates[:k]
}
