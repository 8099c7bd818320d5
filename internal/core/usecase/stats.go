package usecase

import (
	"context"
	"log/slog"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/ports"
)

// StatsUseCase exposes index diagnostics. Stats are best-effort: an index
// that cannot report them yields zero counts and an "Unknown" model rather
// than an error, so the endpoint stays useful during index trouble.
type StatsUseCase struct {
	index  ports.VectorIndex
	kind   string
	logger *slog.Logger
}

func NewStatsUseCase(index ports.VectorIndex, kind string, logger *slog.Logger) *StatsUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsUseCase{index: index, kind: kind, logger: logger}
}

func (s *StatsUseCase) IndexStats(ctx context.Context) domain.IndexStats {
	stats, err := s.index.Stats(ctx)
	if err != nil {
		s.logger.Warn("index stats unavailable", slog.String("error", err.Error()))
		return domain.UnknownIndexStats(s.kind)
	}
	if stats.VectorStoreKind == "" {
		stats.VectorStoreKind = s.kind
	}
	return stats
}
