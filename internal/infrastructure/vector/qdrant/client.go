// Package qdrant serves nearest-neighbor queries from a Qdrant collection
// populated by the offline indexing job. The client is read-only; writes
// happen out of band.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
)

const Kind = "qdrant"

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Search(ctx context.Context, queryVector []float32, topN int) ([]domain.RetrievedCandidate, error) {
	if topN <= 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        topN,
		"with_payload": true,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "qdrant search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "qdrant search", statusError(resp))
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.RetrievedCandidate, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		chunk := domain.DocumentChunk{
			ID:   getStringPayload(r.Payload, "chunk_id"),
			Text: getStringPayload(r.Payload, "text"),
		}
		if title := getStringPayload(r.Payload, "title"); title != "" {
			chunk.Metadata = map[string]string{"title": title}
		}
		if source := getStringPayload(r.Payload, "source"); source != "" {
			if chunk.Metadata == nil {
				chunk.Metadata = map[string]string{}
			}
			chunk.Metadata["source"] = source
		}
		out = append(out, domain.RetrievedCandidate{Chunk: chunk, Similarity: r.Score})
	}

	// Qdrant does not define tie order, so re-sort for a stable contract.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Chunk.ID < out[j].Chunk.ID
	})
	return out, nil
}

// Stats reads the collection description. Qdrant does not record the
// embedding model, so the identity stays "Unknown" and the retriever's
// startup check is skipped for this backend.
func (c *Client) Stats(ctx context.Context) (domain.IndexStats, error) {
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("create collection info request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.IndexStats{}, domain.WrapError(domain.ErrIndexUnavailable, "qdrant collection info", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.IndexStats{}, domain.WrapError(domain.ErrIndexUnavailable, "qdrant collection info", statusError(resp))
	}

	var infoResp struct {
		Result struct {
			PointsCount int `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&infoResp); err != nil {
		return domain.IndexStats{}, fmt.Errorf("decode collection info: %w", err)
	}

	return domain.IndexStats{
		NumDocuments:    infoResp.Result.PointsCount,
		EmbeddingDim:    infoResp.Result.Config.Params.Vectors.Size,
		ModelName:       "Unknown",
		VectorStoreKind: Kind,
	}, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("status %s: %s", resp.Status, msg)
	}
	return fmt.Errorf("status %s", resp.Status)
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
