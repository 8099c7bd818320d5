package crossencoder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/infrastructure/resilience"
)

func noRetryRunner() *resilience.Runner {
	return resilience.NewRunner(resilience.Policy{
		MaxAttempts:    1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		BackoffFactor:  1.0,
	})
}

func TestScoreReturnsScoresInPassageOrder(t *testing.T) {
	var captured rerankRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rerank" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		// Results arrive sorted by relevance, not passage order.
		_, _ = w.Write([]byte(`{"results":[
			{"index":2,"relevance_score":0.91},
			{"index":0,"relevance_score":0.40},
			{"index":1,"relevance_score":0.13}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "bge-reranker-base", noRetryRunner())
	scores, err := client.Score(context.Background(), "q", []string{"p0", "p1", "p2"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	want := []float64{0.40, 0.13, 0.91}
	for i := range want {
		if scores[i] != want[i] {
			t.Fatalf("score[%d] = %v, want %v", i, scores[i], want[i])
		}
	}
	if captured.Model != "bge-reranker-base" || len(captured.Documents) != 3 {
		t.Fatalf("unexpected request %+v", captured)
	}
}

func TestScoreRejectsIncompleteResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"index":0,"relevance_score":0.5}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "bge-reranker-base", noRetryRunner())
	if _, err := client.Score(context.Background(), "q", []string{"p0", "p1"}); err == nil {
		t.Fatalf("expected error for missing scores")
	}
}

func TestScoreEmptyPassages(t *testing.T) {
	client := New("http://unused", "bge-reranker-base", noRetryRunner())
	scores, err := client.Score(context.Background(), "q", nil)
	if err != nil || scores != nil {
		t.Fatalf("expected nil, nil for empty passages, got %v, %v", scores, err)
	}
}

func TestScorePropagatesBackendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "bge-reranker-base", noRetryRunner())
	if _, err := client.Score(context.Background(), "q", []string{"p0"}); err == nil {
		t.Fatalf("expected error")
	}
}
