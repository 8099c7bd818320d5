package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string `yaml:"api_port"`
	LogLevel string `yaml:"log_level"`

	// Generation backend. One provider per pipeline instance.
	Provider       string `yaml:"provider"`
	GroqBaseURL    string `yaml:"groq_base_url"`
	GroqAPIKey     string `yaml:"-"`
	GroqModel      string `yaml:"groq_model"`
	OllamaURL      string `yaml:"ollama_url"`
	OllamaGenModel string `yaml:"ollama_gen_model"`

	// Query-time embedding. Model identity must match the index sidecar.
	OllamaEmbedModel string `yaml:"ollama_embed_model"`

	// Vector store backend and persisted artifact location.
	VectorStore      string `yaml:"vector_store"`
	UseRemoteStore   bool   `yaml:"use_remote_store"`
	RemoteEndpoint   string `yaml:"remote_endpoint"`
	Bucket           string `yaml:"bucket"`
	ProjectID        string `yaml:"project_id"`
	CredentialsPath  string `yaml:"credentials_path"`
	RemoteUseSSL     bool   `yaml:"remote_use_ssl"`
	IndexPath        string `yaml:"index_path"`
	IndexArtifactKey string `yaml:"index_artifact_key"`
	IndexMetaKey     string `yaml:"index_meta_key"`
	QdrantURL        string `yaml:"qdrant_url"`
	QdrantCollection string `yaml:"qdrant_collection"`

	// Reranking backend; empty URL disables cross-encoder reranking.
	RerankURL   string `yaml:"rerank_url"`
	RerankModel string `yaml:"rerank_model"`

	// Pipeline tunables.
	TopKDefault          int `yaml:"top_k_default"`
	OverfetchFactor      int `yaml:"overfetch_factor"`
	ContextTokenBudget   int `yaml:"context_token_budget"`
	ContextTruncateChars int `yaml:"context_truncate_chars"`

	EmbedTimeout    time.Duration `yaml:"embed_timeout"`
	RetrieveTimeout time.Duration `yaml:"retrieve_timeout"`
	RerankTimeout   time.Duration `yaml:"rerank_timeout"`
	GenerateTimeout time.Duration `yaml:"generate_timeout"`

	// Optional collaborators.
	PostgresDSN        string `yaml:"postgres_dsn"`
	NATSURL            string `yaml:"nats_url"`
	NATSRefreshSubject string `yaml:"nats_refresh_subject"`

	APIRateLimitRPS   int `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst int `yaml:"api_rate_limit_burst"`
	APIMaxInFlight    int `yaml:"api_max_in_flight"`
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		APIPort:  "8080",
		LogLevel: "info",

		Provider:       "groq",
		GroqBaseURL:    "https://api.groq.com/openai/v1",
		GroqModel:      "llama-3.1-8b-instant",
		OllamaURL:      "http://localhost:11434",
		OllamaGenModel: "llama3.1:8b",

		OllamaEmbedModel: "nomic-embed-text",

		VectorStore:      "memory",
		IndexPath:        "./data/index",
		IndexArtifactKey: "index.json",
		IndexMetaKey:     "model_info.json",
		QdrantURL:        "http://localhost:6333",
		QdrantCollection: "onboarding_chunks",

		TopKDefault:          3,
		OverfetchFactor:      4,
		ContextTokenBudget:   3000,
		ContextTruncateChars: 2000,

		EmbedTimeout:    10 * time.Second,
		RetrieveTimeout: 15 * time.Second,
		RerankTimeout:   10 * time.Second,
		GenerateTimeout: 45 * time.Second,

		NATSRefreshSubject: "index.rebuilt",

		APIRateLimitRPS:   20,
		APIRateLimitBurst: 40,
		APIMaxInFlight:    64,
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.APIPort, "API_PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	setString(&cfg.Provider, "PROVIDER")
	setString(&cfg.GroqBaseURL, "GROQ_BASE_URL")
	setString(&cfg.GroqAPIKey, "GROQ_API_KEY")
	setString(&cfg.GroqModel, "GROQ_MODEL")
	setString(&cfg.OllamaURL, "OLLAMA_URL")
	setString(&cfg.OllamaGenModel, "OLLAMA_GEN_MODEL")
	setString(&cfg.OllamaEmbedModel, "OLLAMA_EMBED_MODEL")

	setString(&cfg.VectorStore, "VECTOR_STORE")
	setBool(&cfg.UseRemoteStore, "USE_REMOTE_STORE")
	setString(&cfg.RemoteEndpoint, "REMOTE_ENDPOINT")
	setString(&cfg.Bucket, "BUCKET")
	setString(&cfg.ProjectID, "PROJECT_ID")
	setString(&cfg.CredentialsPath, "CREDENTIALS_PATH")
	setBool(&cfg.RemoteUseSSL, "REMOTE_USE_SSL")
	setString(&cfg.IndexPath, "INDEX_PATH")
	setString(&cfg.IndexArtifactKey, "INDEX_ARTIFACT_KEY")
	setString(&cfg.IndexMetaKey, "INDEX_META_KEY")
	setString(&cfg.QdrantURL, "QDRANT_URL")
	setString(&cfg.QdrantCollection, "QDRANT_COLLECTION")

	setString(&cfg.RerankURL, "RERANK_URL")
	setString(&cfg.RerankModel, "RERANK_MODEL")

	setInt(&cfg.TopKDefault, "RAG_TOP_K")
	setInt(&cfg.OverfetchFactor, "RETRIEVE_OVERFETCH_FACTOR")
	setInt(&cfg.ContextTokenBudget, "CONTEXT_TOKEN_BUDGET")
	setInt(&cfg.ContextTruncateChars, "CONTEXT_TRUNCATE_CHARS")

	setSeconds(&cfg.EmbedTimeout, "EMBED_TIMEOUT_SECONDS")
	setSeconds(&cfg.RetrieveTimeout, "RETRIEVE_TIMEOUT_SECONDS")
	setSeconds(&cfg.RerankTimeout, "RERANK_TIMEOUT_SECONDS")
	setSeconds(&cfg.GenerateTimeout, "GENERATE_TIMEOUT_SECONDS")

	setString(&cfg.PostgresDSN, "POSTGRES_DSN")
	setString(&cfg.NATSURL, "NATS_URL")
	setString(&cfg.NATSRefreshSubject, "NATS_REFRESH_SUBJECT")

	setInt(&cfg.APIRateLimitRPS, "API_RATE_LIMIT_RPS")
	setInt(&cfg.APIRateLimitBurst, "API_RATE_LIMIT_BURST")
	setInt(&cfg.APIMaxInFlight, "API_MAX_IN_FLIGHT")
}

func (c Config) validate() error {
	switch c.Provider {
	case "groq", "ollama":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	switch c.VectorStore {
	case "memory", "qdrant":
	default:
		return fmt.Errorf("unknown vector store %q", c.VectorStore)
	}
	if c.OverfetchFactor <= 1 {
		return fmt.Errorf("overfetch factor must be > 1, got %d", c.OverfetchFactor)
	}
	if c.TopKDefault < 1 {
		return fmt.Errorf("default top-k must be >= 1, got %d", c.TopKDefault)
	}
	if c.ContextTokenBudget <= 0 {
		return fmt.Errorf("context token budget must be positive, got %d", c.ContextTokenBudget)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func setBool(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if parsed, err := strconv.ParseBool(v); err == nil {
		*dst = parsed
	}
}

func setSeconds(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = time.Duration(n) * time.Second
	}
}
