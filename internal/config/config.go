// Package config loads service settings from a .env file, an optional TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	OpenAI  OpenAIConfig  `toml:"openai"`
	Vector  VectorConfig  `toml:"vector"`
	Server  ServerConfig  `toml:"server"`
	Index   IndexConfig   `toml:"index"`
	Ingest  IngestConfig  `toml:"ingest"`
	Redis   RedisConfig   `toml:"redis"`
	Logging LoggingConfig `toml:"logging"`
}

type OpenAIConfig struct {
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	EmbedModel string `toml:"embed_model"`
	ChatModel  string `toml:"chat_model"`
}

type VectorConfig struct {
	// Backend is "qdrant" or "memory".
	Backend    string `toml:"backend"`
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	APIKey     string `toml:"api_key"`
	UseTLS     bool   `toml:"use_tls"`
	Collection string `toml:"collection"`
}

type ServerConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	GinMode        string `toml:"gin_mode"`
	AllowedOrigins string `toml:"allowed_origins"`
}

type IndexConfig struct {
	ChunkSize           int     `toml:"chunk_size"`
	BatchSize           int     `toml:"batch_size"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
}

type IngestConfig struct {
	DataDir        string `toml:"data_dir"`
	MaxPages       int    `toml:"max_pages"`
	SeedURL        string `toml:"seed_url"`
	AllowedDomain  string `toml:"allowed_domain"`
	ThrottleMillis int    `toml:"throttle_ms"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

// Load reads .env (if present), then CONFIG_FILE (default configs/config.toml, if present),
// then applies environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	return cfg, nil
}

// Validate checks the settings every entry point needs.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingRequired)
	}
	if c.Vector.Collection == "" {
		return fmt.Errorf("%w: QDRANT_COLLECTION", ErrMissingRequired)
	}
	if c.Vector.Backend != "qdrant" && c.Vector.Backend != "memory" {
		return fmt.Errorf("unknown VECTOR_BACKEND %q", c.Vector.Backend)
	}
	if c.Index.ChunkSize <= 0 || c.Index.BatchSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE and BATCH_SIZE must be positive")
	}
	if c.Index.SimilarityThreshold < 0 || c.Index.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be between 0 and 1, got %v", c.Index.SimilarityThreshold)
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AllowedOriginsList splits the comma-separated origin list.
func (c *Config) AllowedOriginsList() []string {
	var origins []string
	for _, origin := range strings.Split(c.Server.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c *Config) DocsPath() string {
	return filepath.Join(c.Ingest.DataDir, "uwp_docs.jsonl")
}

func (c *Config) StatsPath() string {
	return filepath.Join(c.Ingest.DataDir, "stats.json")
}

func (c *Config) StatusPath() string {
	return filepath.Join(c.Ingest.DataDir, "ingest_status.json")
}

func defaultConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			BaseURL:    "https://api.openai.com/v1",
			EmbedModel: "text-embedding-3-small",
			ChatModel:  "gpt-4o-mini",
		},
		Vector: VectorConfig{
			Backend:    "qdrant",
			Host:       "localhost",
			Port:       6334,
			Collection: "uwp",
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			GinMode:        "release",
			AllowedOrigins: "http://localhost:5173",
		},
		Index: IndexConfig{
			ChunkSize:           350,
			BatchSize:           100,
			SimilarityThreshold: 0.2,
		},
		Ingest: IngestConfig{
			DataDir:        "data",
			MaxPages:       600,
			SeedURL:        "https://www.uwp.edu/",
			AllowedDomain:  "uwp.edu",
			ThrottleMillis: 350,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.OpenAI.APIKey = getEnv("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.EmbedModel = getEnv("OPENAI_EMBED_MODEL", cfg.OpenAI.EmbedModel)
	cfg.OpenAI.ChatModel = getEnv("OPENAI_CHAT_MODEL", cfg.OpenAI.ChatModel)

	cfg.Vector.Backend = getEnv("VECTOR_BACKEND", cfg.Vector.Backend)
	cfg.Vector.Host = getEnv("QDRANT_HOST", cfg.Vector.Host)
	cfg.Vector.Port = getEnvAsInt("QDRANT_PORT", cfg.Vector.Port)
	cfg.Vector.APIKey = getEnv("QDRANT_API_KEY", cfg.Vector.APIKey)
	cfg.Vector.UseTLS = getEnvAsBool("QDRANT_USE_TLS", cfg.Vector.UseTLS)
	cfg.Vector.Collection = getEnv("QDRANT_COLLECTION", cfg.Vector.Collection)

	cfg.Server.Host = getEnv("BACKEND_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvAsInt("BACKEND_PORT", cfg.Server.Port)
	cfg.Server.GinMode = getEnv("GIN_MODE", cfg.Server.GinMode)
	cfg.Server.AllowedOrigins = getEnv("ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.Index.ChunkSize = getEnvAsInt("CHUNK_SIZE", cfg.Index.ChunkSize)
	cfg.Index.BatchSize = getEnvAsInt("BATCH_SIZE", cfg.Index.BatchSize)
	cfg.Index.SimilarityThreshold = getEnvAsFloat("SIMILARITY_THRESHOLD", cfg.Index.SimilarityThreshold)

	cfg.Ingest.DataDir = getEnv("DATA_DIR", cfg.Ingest.DataDir)
	cfg.Ingest.MaxPages = getEnvAsInt("INGEST_MAX_PAGES", cfg.Ingest.MaxPages)
	cfg.Ingest.SeedURL = getEnv("CRAWL_SEED_URL", cfg.Ingest.SeedURL)
	cfg.Ingest.AllowedDomain = getEnv("CRAWL_ALLOWED_DOMAIN", cfg.Ingest.AllowedDomain)
	cfg.Ingest.ThrottleMillis = getEnvAsInt("CRAWL_THROTTLE_MS", cfg.Ingest.ThrottleMillis)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
