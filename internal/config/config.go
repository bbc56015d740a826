// Package config loads the assistant configuration from YAML, .env and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultPath is read when HSE_CONFIG is unset.
const DefaultPath = "config.yaml"

// Provider and backend names.
const (
	ProviderOllama  = "ollama"
	ProviderOpenAI  = "openai"
	ProviderHashing = "hashing"

	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"

	ModeStdio = "stdio"
	ModeHTTP  = "http"
)

type SourcesConfig struct {
	Documents []string `yaml:"documents"`
	Records   string   `yaml:"records"`
}

type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
}

type IndexConfig struct {
	Backend string       `yaml:"backend"`
	Dir     string       `yaml:"dir"`
	Qdrant  QdrantConfig `yaml:"qdrant"`
}

type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type RetrievalConfig struct {
	K int `yaml:"k"`
}

// EmbeddingConfig selects the embedder. Dimension must match the model.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Dimension int           `yaml:"dimension"`
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	InteractionLog string `yaml:"interaction_log"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"`
}

// Config is the root configuration.
type Config struct {
	Sources   SourcesConfig   `yaml:"sources"`
	Index     IndexConfig     `yaml:"index"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Sources: SourcesConfig{
			Documents: []string{"data/HSE_AAOURIDA.pdf", "data/STEULER-HSE-Management.pdf"},
			Records:   "data/mining_safety_database.json",
		},
		Index: IndexConfig{
			Backend: BackendSQLite,
			Dir:     "db",
			Qdrant:  QdrantConfig{Host: "localhost", Port: 6334, Collection: "hse_chunks"},
		},
		Chunking:  ChunkingConfig{Size: 1000, Overlap: 200},
		Retrieval: RetrievalConfig{K: 3},
		Embedding: EmbeddingConfig{
			Provider:  ProviderOllama,
			Model:     "all-minilm",
			BaseURL:   "http://localhost:11434",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 384,
			BatchSize: 64,
			Timeout:   30 * time.Second,
		},
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			Model:       "llama-3.1-8b-instant",
			BaseURL:     "https://api.groq.com/openai/v1",
			APIKeyEnv:   "GROQ_API_KEY",
			Temperature: 0.1,
			MaxTokens:   1000,
			Timeout:     60 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text", InteractionLog: "logs/chatbot.log"},
		Server:  ServerConfig{Port: "8080", Mode: ModeStdio},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv loads .env if present, reads path (or, when empty, the file
// named by HSE_CONFIG or DefaultPath) and applies environment overrides.
func LoadFromEnv(path string) (*Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	if path == "" {
		path = getEnv("HSE_CONFIG", DefaultPath)
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides connection settings from the environment.
func (c *Config) ApplyEnv() {
	c.Index.Qdrant.Host = getEnv("QDRANT_HOST", c.Index.Qdrant.Host)
	c.Index.Qdrant.Port = getEnvInt("QDRANT_PORT", c.Index.Qdrant.Port)
	c.Index.Qdrant.APIKey = getEnv("QDRANT_API_KEY", c.Index.Qdrant.APIKey)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Mode = getEnv("SERVER_MODE", c.Server.Mode)
}

// LLMAPIKey returns the key named by LLM.APIKeyEnv.
func (c *Config) LLMAPIKey() string {
	return os.Getenv(c.LLM.APIKeyEnv)
}

// Validate checks every parameter once, before any component is built.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(len(c.Sources.Documents) > 0 || c.Sources.Records != "", "no sources configured")
	check(c.Chunking.Size > 0, "chunking.size must be positive, got %d", c.Chunking.Size)
	check(c.Chunking.Overlap >= 0 && c.Chunking.Overlap < c.Chunking.Size,
		"chunking.overlap must be in [0, size), got %d", c.Chunking.Overlap)
	check(c.Retrieval.K >= 1, "retrieval.k must be at least 1, got %d", c.Retrieval.K)

	switch c.Index.Backend {
	case BackendSQLite:
		check(c.Index.Dir != "", "index.dir is required")
	case BackendQdrant:
		check(c.Index.Qdrant.Host != "", "index.qdrant.host is required")
	default:
		check(false, "unknown index backend %q", c.Index.Backend)
	}

	switch c.Embedding.Provider {
	case ProviderOllama, ProviderOpenAI:
		check(c.Embedding.Model != "", "embedding.model is required")
		check(c.Embedding.Dimension > 0, "embedding.dimension must be positive")
	case ProviderHashing:
	default:
		check(false, "unknown embedding provider %q", c.Embedding.Provider)
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		check(c.LLMAPIKey() != "", "%s is not set", c.LLM.APIKeyEnv)
	case ProviderOllama:
	default:
		check(false, "unknown llm provider %q", c.LLM.Provider)
	}
	check(c.LLM.Model != "", "llm.model is required")
	check(c.LLM.Temperature >= 0 && c.LLM.Temperature <= 2,
		"llm.temperature must be in [0, 2], got %g", c.LLM.Temperature)
	check(c.LLM.MaxTokens > 0, "llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	check(c.LLM.Timeout > 0, "llm.timeout must be positive")

	switch c.Server.Mode {
	case ModeStdio, ModeHTTP:
	default:
		check(false, "unknown server mode %q", c.Server.Mode)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
