package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/ports"
)

const (
	noMatchesAnswer = "I could not find any relevant documentation for your question. " +
		"Try rephrasing it, or check whether the topic is covered in the indexed sources."
	generationFailedAnswer = "No answer could be generated because the language model backend " +
		"did not respond. The sources below were retrieved for your question; please retry shortly."
	retrievalFailedAnswer = "No answer could be generated because document retrieval failed. " +
		"Please retry shortly."
)

// maxTopK caps caller-supplied k. Beyond this the context budget discards the
// tail anyway, and an unbounded k would overflow the overfetch multiplication.
const maxTopK = 50

// PipelineTimeouts bounds each externally-dependent stage independently, so a
// slow reranker cannot eat the generation budget.
type PipelineTimeouts struct {
	Retrieve time.Duration
	Rerank   time.Duration
	Generate time.Duration
}

// Pipeline sequences retrieval, reranking, context assembly and generation
// into one answer per query. Recoverable backend failures never surface as
// errors; they produce a degraded QueryResult instead. The pipeline holds
// only read-only handles and is safe for concurrent use.
type Pipeline struct {
	retriever *Retriever
	reranker  ports.Reranker
	assembler *Assembler
	generator ports.AnswerGenerator
	timeouts  PipelineTimeouts
	defaultK  int
	logger    *slog.Logger
}

// NewPipeline wires the stages together. reranker may be nil, in which case
// candidates keep similarity ordering without marking results degraded.
func NewPipeline(
	retriever *Retriever,
	reranker ports.Reranker,
	assembler *Assembler,
	generator ports.AnswerGenerator,
	timeouts PipelineTimeouts,
	defaultK int,
	logger *slog.Logger,
) (*Pipeline, error) {
	if retriever == nil || assembler == nil || generator == nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "build pipeline",
			errors.New("retriever, assembler and generator are required"))
	}
	if defaultK < 1 {
		defaultK = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		retriever: retriever,
		reranker:  reranker,
		assembler: assembler,
		generator: generator,
		timeouts:  timeouts,
		defaultK:  defaultK,
		logger:    logger,
	}, nil
}

// GenerateAnswer runs the full pipeline for one query. k <= 0 selects the
// configured default. The returned error is non-nil only for rejected input;
// every backend failure is absorbed into the result.
func (p *Pipeline) GenerateAnswer(ctx context.Context, query string, k int) (*domain.QueryResult, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "generate answer",
			errors.New("query must not be empty"))
	}
	if k < 1 {
		k = p.defaultK
	}
	if k > maxTopK {
		k = maxTopK
	}

	log := p.logger.With(slog.String("query_id", uuid.NewString()))

	candidates, err := p.retrieve(ctx, query, k)
	if err != nil {
		log.Error("retrieval failed", slog.String("error", err.Error()))
		return p.failedResult(query, retrievalFailedAnswer, domain.DegradedRetrievalFailed, nil, start), nil
	}
	if len(candidates) == 0 {
		log.Info("no matches for query", slog.Int("k", k))
		result, buildErr := domain.NewQueryResult(uuid.NewString(), query, noMatchesAnswer, p.generator.Provider(), nil)
		if buildErr != nil {
			return nil, buildErr
		}
		result.ElapsedMS = time.Since(start).Milliseconds()
		return result, nil
	}

	ranked, rerankDegraded := p.rerank(ctx, log, query, candidates)
	ranked = trimCandidates(ranked, k)

	assembled := p.assembler.Assemble(ranked)

	answer, err := p.generate(ctx, query, assembled.Text)
	if err != nil {
		log.Error("generation failed",
			slog.String("provider", p.generator.Provider()),
			slog.String("error", err.Error()))
		return p.failedResult(query, generationFailedAnswer, domain.DegradedGenerationFailed, assembled.Used, start), nil
	}

	result, err := domain.NewQueryResult(uuid.NewString(), query, answer, p.generator.Provider(), assembled.Used)
	if err != nil {
		return nil, err
	}
	switch {
	case rerankDegraded:
		result.Degraded = true
		result.DegradedReason = domain.DegradedRerankerUnavailable
	case assembled.Truncated:
		result.Degraded = true
		result.DegradedReason = domain.DegradedContextTruncated
	}
	result.ElapsedMS = time.Since(start).Milliseconds()

	log.Info("answer generated",
		slog.Int("num_sources", result.NumSources),
		slog.Bool("degraded", result.Degraded),
		slog.Int64("elapsed_ms", result.ElapsedMS))
	return result, nil
}

func (p *Pipeline) retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedCandidate, error) {
	if p.timeouts.Retrieve > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeouts.Retrieve)
		defer cancel()
	}
	return p.retriever.Retrieve(ctx, query, k)
}

// rerank orders candidates by cross-encoder score when a reranker is
// configured and reachable, falling back to similarity order otherwise. Only
// a failing reranker marks the result degraded; running without one is a
// deliberate deployment choice.
func (p *Pipeline) rerank(ctx context.Context, log *slog.Logger, query string, candidates []domain.RetrievedCandidate) ([]domain.RetrievedCandidate, bool) {
	if p.reranker == nil {
		return sortBySimilarity(candidates), false
	}

	if p.timeouts.Rerank > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeouts.Rerank)
		defer cancel()
	}

	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = c.Chunk.Text
	}

	scores, err := p.reranker.Score(ctx, query, passages)
	if err != nil || len(scores) != len(candidates) {
		if err == nil {
			err = errors.New("score count does not match passage count")
		}
		log.Warn("reranker unavailable, falling back to similarity order",
			slog.String("model", p.reranker.ModelName()),
			slog.String("error", err.Error()))
		return sortBySimilarity(candidates), true
	}
	return applyRerankScores(candidates, scores), false
}

func (p *Pipeline) generate(ctx context.Context, question, contextBlock string) (string, error) {
	if p.timeouts.Generate > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeouts.Generate)
		defer cancel()
	}
	return p.generator.Generate(ctx, question, contextBlock)
}

// failedResult packages an absorbed stage failure as a degraded result. The
// sources are whatever was salvaged before the failure, possibly none.
func (p *Pipeline) failedResult(query, answer, reason string, sources []domain.RetrievedCandidate, start time.Time) *domain.QueryResult {
	result, err := domain.NewQueryResult(uuid.NewString(), query, answer, p.generator.Provider(), sources)
	if err != nil {
		// Salvaged sources failed validation; drop them rather than fault.
		result, _ = domain.NewQueryResult(uuid.NewString(), query, answer, p.generator.Provider(), nil)
	}
	result.Degraded = true
	result.DegradedReason = reason
	result.ElapsedMS = time.Since(start).Milliseconds()
	return result
}
