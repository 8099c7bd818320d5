// Package httpadapter exposes the answer pipeline over a small JSON API.
package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/ports"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/observability/metrics"
)

const historyMaxLimit = 100

type Router struct {
	service string
	answers ports.AnswerService
	stats   ports.StatsService
	history ports.HistoryStore
	metrics *metrics.ServerMetrics
	logger  *slog.Logger
	traffic TrafficConfig
}

// TrafficConfig bounds the inbound request flow. Zero values disable the
// corresponding gate.
type TrafficConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

// NewRouter wires the handlers. history may be nil when no database is
// configured; the history endpoint then reports that persistence is off.
func NewRouter(
	service string,
	answers ports.AnswerService,
	stats ports.StatsService,
	history ports.HistoryStore,
	serverMetrics *metrics.ServerMetrics,
	logger *slog.Logger,
	traffic TrafficConfig,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		service: service,
		answers: answers,
		stats:   stats,
		history: history,
		metrics: serverMetrics,
		logger:  logger,
		traffic: traffic,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/answers", rt.generateAnswer)
	mux.HandleFunc("/v1/stats", rt.indexStats)
	mux.HandleFunc("/v1/history", rt.listHistory)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.traffic.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.traffic.MaxInFlight, 100*time.Millisecond)
	}
	if rt.traffic.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.traffic.RateLimitRPS, rt.traffic.RateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) generateAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query string `json:"query"`
		K     int    `json:"k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	result, err := rt.answers.GenerateAnswer(r.Context(), req.Query, req.K)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordAnswer(rt.service, result.Provider, result.NumSources,
			result.Degraded, result.DegradedReason, time.Since(start))
	}
	rt.saveHistory(r, result)

	writeJSON(w, http.StatusOK, result)
}

// saveHistory is best effort. A history outage must not fail the answer that
// was already generated.
func (rt *Router) saveHistory(r *http.Request, result *domain.QueryResult) {
	if rt.history == nil {
		return
	}
	if err := rt.history.Save(r.Context(), result); err != nil {
		rt.logger.Warn("answer history save failed",
			slog.String("request_id", requestIDFromContext(r.Context())),
			slog.String("error", err.Error()))
	}
}

func (rt *Router) indexStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, rt.stats.IndexStats(r.Context()))
}

func (rt *Router) listHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "answer history is not configured"})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	if limit > historyMaxLimit {
		limit = historyMaxLimit
	}

	results, err := rt.history.ListRecent(r.Context(), limit)
	if err != nil {
		rt.logger.Error("answer history list failed",
			slog.String("request_id", requestIDFromContext(r.Context())),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "answer history is unavailable"})
		return
	}
	if results == nil {
		results = []domain.QueryResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
