package usecase

import (
	"fmt"
	"strings"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
)

// Assembler selects and formats reranked passages into the generation context
// under a fixed token budget, preserving source attribution.
type Assembler struct {
	tokenBudget   int
	truncateChars int
}

// AssembledContext is the budget-fitted context block plus exactly the
// candidates that made it in. Truncated is set when even the top candidate
// exceeded the budget and had to be cut at a fixed character count.
type AssembledContext struct {
	Text      string
	Used      []domain.RetrievedCandidate
	Truncated bool
}

func NewAssembler(tokenBudget, truncateChars int) *Assembler {
	if tokenBudget <= 0 {
		tokenBudget = 3000
	}
	if truncateChars <= 0 {
		truncateChars = 2000
	}
	return &Assembler{
		tokenBudget:   tokenBudget,
		truncateChars: truncateChars,
	}
}

// Assemble greedily includes candidates in rank order until the next one
// would exceed the budget. A candidate's text is never split across the
// boundary; inclusion stops at the first overflow so ordering stays aligned
// with relevance. Candidates with empty text are skipped outright.
func (a *Assembler) Assemble(ranked []domain.RetrievedCandidate) AssembledContext {
	var (
		builder   strings.Builder
		used      []domain.RetrievedCandidate
		remaining = a.tokenBudget
		truncated bool
	)

	for _, candidate := range ranked {
		if candidate.Chunk.Text == "" {
			continue
		}

		block := formatContextBlock(len(used)+1, candidate)
		cost := estimateTokens(block)

		if cost > remaining {
			if len(used) > 0 {
				break
			}
			// Even the best passage alone is over budget: keep a
			// deterministic prefix so the answer still has grounding.
			candidate.Chunk.Text = truncateRunes(candidate.Chunk.Text, a.truncateChars)
			block = formatContextBlock(1, candidate)
			truncated = true
		}

		builder.WriteString(block)
		used = append(used, candidate)
		remaining -= estimateTokens(block)

		if truncated {
			break
		}
	}

	return AssembledContext{
		Text:      builder.String(),
		Used:      used,
		Truncated: truncated,
	}
}

func formatContextBlock(position int, candidate domain.RetrievedCandidate) string {
	return fmt.Sprintf("[%d] %s\n%s\n\n", position, candidate.Chunk.Title(), candidate.Chunk.Text)
}

// estimateTokens approximates the generation backend's tokenizer at roughly
// four characters per token. The budget is a tunable bound, not an exact
// accounting, so a cheap deterministic estimate is enough.
func estimateTokens(s string) int {
	runes := len([]rune(s))
	return (runes + 3) / 4
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
