package ports

import (
	"context"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
)

// AnswerService is the inbound contract the presentation layer depends on.
// GenerateAnswer never returns an error for backend failures; those surface
// as a degraded QueryResult. The only error paths are rejected input and a
// pipeline that was never constructed.
type AnswerService interface {
	GenerateAnswer(ctx context.Context, query string, k int) (*domain.QueryResult, error)
}

// StatsService is the read-only diagnostics contract. It degrades to
// zero/"Unknown" values rather than failing.
type StatsService interface {
	IndexStats(ctx context.Context) domain.IndexStats
}

// IndexReloader re-fetches the persisted index artifact and atomically swaps
// the serving snapshot.
type IndexReloader interface {
	Reload(ctx context.Context) error
}
