// Package ollama talks to a local Ollama server for query embedding and
// answer generation.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/infrastructure/llm/prompt"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	runner     *resilience.Runner
}

func New(baseURL, genModel, embedModel string, runner *resilience.Runner) *Client {
	if runner == nil {
		runner = resilience.NewRunner(resilience.DefaultPolicy())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		runner:     runner,
	}
}

// Embedder maps query text into the embedding space of the configured model.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) ModelName() string { return e.client.embedModel }

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model": e.client.embedModel,
		"input": []string{text},
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.runner.Do(ctx, "ollama.embed", func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", request, &response, "embed")
	}, resilience.ClassifyTransport)
	if err != nil {
		return nil, mapBackendError("embed query", err)
	}
	if len(response.Embeddings) == 0 || len(response.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("embed query: empty embedding result")
	}
	return response.Embeddings[0], nil
}

// Generator produces grounded answers through /api/generate.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Provider() string { return "ollama" }

func (g *Generator) Generate(ctx context.Context, question, contextBlock string) (string, error) {
	request := map[string]any{
		"model":  g.client.genModel,
		"prompt": prompt.BuildAnswerPrompt(question, contextBlock),
		"stream": false,
	}

	var response struct {
		Response string `json:"response"`
	}
	err := g.client.runner.Do(ctx, "ollama.generate", func(ctx context.Context) error {
		return g.client.postJSON(ctx, "/api/generate", request, &response, "generate")
	}, resilience.ClassifyTransport)
	if err != nil {
		return "", mapBackendError("generate answer", err)
	}

	answer := strings.TrimSpace(response.Response)
	if answer == "" {
		return "", fmt.Errorf("generate answer: empty model response")
	}
	return answer, nil
}
