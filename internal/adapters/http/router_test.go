package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/observability/metrics"
)

type answerServiceFake struct {
	result *domain.QueryResult
	err    error
	query  string
	k      int
}

func (f *answerServiceFake) GenerateAnswer(_ context.Context, query string, k int) (*domain.QueryResult, error) {
	f.query = query
	f.k = k
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type statsServiceFake struct {
	stats domain.IndexStats
}

func (f *statsServiceFake) IndexStats(context.Context) domain.IndexStats { return f.stats }

type historyFake struct {
	saved   []*domain.QueryResult
	recent  []domain.QueryResult
	saveErr error
	listErr error
	limit   int
}

func (f *historyFake) Save(_ context.Context, result *domain.QueryResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, result)
	return nil
}

func (f *historyFake) ListRecent(_ context.Context, limit int) ([]domain.QueryResult, error) {
	f.limit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.recent, nil
}

func testResult() *domain.QueryResult {
	return &domain.QueryResult{
		ID:         "r-1",
		Query:      "how do I get access?",
		Answer:     "Use the portal.",
		Sources:    []domain.RetrievedCandidate{{Chunk: domain.DocumentChunk{ID: "c1", Text: "t"}}},
		NumSources: 1,
		Provider:   "groq",
		ElapsedMS:  42,
	}
}

func newTestRouter(answers *answerServiceFake, stats *statsServiceFake, history *historyFake) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := NewRouter("onboarding-api", answers, stats, nil, metrics.NewServerMetrics("onboarding-api"), logger, TrafficConfig{})
	if history != nil {
		// Assign the concrete fake only when present; a typed nil would not
		// compare equal to a nil interface.
		rt.history = history
	}
	return rt.Handler()
}

func TestGenerateAnswerEndpoint(t *testing.T) {
	answers := &answerServiceFake{result: testResult()}
	history := &historyFake{}
	handler := newTestRouter(answers, &statsServiceFake{}, history)

	body := bytes.NewBufferString(`{"query":"how do I get access?","k":2}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/answers", body)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if answers.query != "how do I get access?" || answers.k != 2 {
		t.Fatalf("unexpected service call query=%q k=%d", answers.query, answers.k)
	}

	var got domain.QueryResult
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Answer != "Use the portal." || got.NumSources != 1 {
		t.Fatalf("unexpected response %+v", got)
	}
	if len(history.saved) != 1 {
		t.Fatalf("expected the result to be persisted, saved %d", len(history.saved))
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestGenerateAnswerRejectsInvalidJSON(t *testing.T) {
	handler := newTestRouter(&answerServiceFake{result: testResult()}, &statsServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/answers", bytes.NewBufferString("{broken"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGenerateAnswerMapsEmptyQueryTo400(t *testing.T) {
	answers := &answerServiceFake{
		err: domain.WrapError(domain.ErrInvalidInput, "generate answer", errors.New("query must not be empty")),
	}
	handler := newTestRouter(answers, &statsServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/answers", bytes.NewBufferString(`{"query":""}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGenerateAnswerSurvivesHistoryFailure(t *testing.T) {
	history := &historyFake{saveErr: errors.New("db down")}
	handler := newTestRouter(&answerServiceFake{result: testResult()}, &statsServiceFake{}, history)

	req := httptest.NewRequest(http.MethodPost, "/v1/answers", bytes.NewBufferString(`{"query":"q"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("history failure must not fail the answer, got %d", res.Code)
	}
}

func TestGenerateAnswerMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(&answerServiceFake{result: testResult()}, &statsServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/answers", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	stats := &statsServiceFake{stats: domain.IndexStats{
		NumDocuments:    12,
		EmbeddingDim:    768,
		ModelName:       "nomic-embed-text",
		VectorStoreKind: "memory",
	}}
	handler := newTestRouter(&answerServiceFake{result: testResult()}, stats, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var got domain.IndexStats
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.NumDocuments != 12 || got.ModelName != "nomic-embed-text" {
		t.Fatalf("unexpected stats %+v", got)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	history := &historyFake{recent: []domain.QueryResult{*testResult()}}
	handler := newTestRouter(&answerServiceFake{result: testResult()}, &statsServiceFake{}, history)

	req := httptest.NewRequest(http.MethodGet, "/v1/history?limit=5", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if history.limit != 5 {
		t.Fatalf("expected limit 5, got %d", history.limit)
	}

	var got struct {
		Results []domain.QueryResult `json:"results"`
	}
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got.Results))
	}
}

func TestHistoryEndpointRejectsBadLimit(t *testing.T) {
	history := &historyFake{}
	handler := newTestRouter(&answerServiceFake{result: testResult()}, &statsServiceFake{}, history)

	req := httptest.NewRequest(http.MethodGet, "/v1/history?limit=zero", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestHistoryEndpointWithoutStore(t *testing.T) {
	handler := newTestRouter(&answerServiceFake{result: testResult()}, &statsServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when history is not configured, got %d", res.Code)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(&answerServiceFake{result: testResult()}, &statsServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	handler := newTestRouter(&answerServiceFake{result: testResult()}, &statsServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}
