package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_EMBED_MODEL", "OPENAI_CHAT_MODEL",
	"VECTOR_BACKEND", "QDRANT_HOST", "QDRANT_PORT", "QDRANT_API_KEY", "QDRANT_USE_TLS", "QDRANT_COLLECTION",
	"BACKEND_HOST", "BACKEND_PORT", "GIN_MODE", "ALLOWED_ORIGINS",
	"CHUNK_SIZE", "BATCH_SIZE", "SIMILARITY_THRESHOLD",
	"DATA_DIR", "INGEST_MAX_PAGES", "CRAWL_SEED_URL", "CRAWL_ALLOWED_DOMAIN", "CRAWL_THROTTLE_MS",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "LOG_LEVEL",
}

// clearEnv blanks every recognised variable; empty values fall back to defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbedModel)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ChatModel)
	assert.Equal(t, "qdrant", cfg.Vector.Backend)
	assert.Equal(t, 6334, cfg.Vector.Port)
	assert.Equal(t, "uwp", cfg.Vector.Collection)
	assert.Equal(t, 350, cfg.Index.ChunkSize)
	assert.Equal(t, 100, cfg.Index.BatchSize)
	assert.InDelta(t, 0.2, cfg.Index.SimilarityThreshold, 1e-9)
	assert.Equal(t, 600, cfg.Ingest.MaxPages)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.Equal(t, filepath.Join("data", "uwp_docs.jsonl"), cfg.DocsPath())
	assert.Equal(t, filepath.Join("data", "stats.json"), cfg.StatsPath())
	assert.Equal(t, filepath.Join("data", "ingest_status.json"), cfg.StatusPath())
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VECTOR_BACKEND", "memory")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("QDRANT_USE_TLS", "true")
	t.Setenv("BACKEND_PORT", "9090")
	t.Setenv("SIMILARITY_THRESHOLD", "0.35")
	t.Setenv("CHUNK_SIZE", "not-a-number")
	t.Setenv("DATA_DIR", "/var/lib/uwp")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "memory", cfg.Vector.Backend)
	assert.Equal(t, 7000, cfg.Vector.Port)
	assert.True(t, cfg.Vector.UseTLS)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 0.35, cfg.Index.SimilarityThreshold, 1e-9)
	assert.Equal(t, 350, cfg.Index.ChunkSize, "unparsable values keep the previous setting")
	assert.Equal(t, filepath.Join("/var/lib/uwp", "stats.json"), cfg.StatsPath())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_TOMLFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[openai]
api_key = "sk-file"
chat_model = "gpt-4o"

[vector]
collection = "uwp_test"

[ingest]
max_pages = 50
`), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OPENAI_CHAT_MODEL", "gpt-4.1-mini")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-file", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4.1-mini", cfg.OpenAI.ChatModel, "environment wins over the file")
	assert.Equal(t, "uwp_test", cfg.Vector.Collection)
	assert.Equal(t, 50, cfg.Ingest.MaxPages)
	assert.Equal(t, 6334, cfg.Vector.Port, "unset file keys keep defaults")
}

func TestLoad_BadTOML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[openai\napi_key = "), 0o644))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	assert.ErrorIs(t, cfg.Validate(), ErrMissingRequired)

	cfg.OpenAI.APIKey = "sk-test"
	assert.NoError(t, cfg.Validate())

	cfg.Vector.Backend = "pinecone"
	assert.Error(t, cfg.Validate())

	cfg.Vector.Backend = "memory"
	cfg.Index.BatchSize = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_SimilarityThreshold(t *testing.T) {
	cfg := defaultConfig()
	cfg.OpenAI.APIKey = "sk-test"

	cfg.Index.SimilarityThreshold = 0
	assert.NoError(t, cfg.Validate())

	cfg.Index.SimilarityThreshold = 1
	assert.NoError(t, cfg.Validate())

	cfg.Index.SimilarityThreshold = -0.1
	assert.Error(t, cfg.Validate())

	cfg.Index.SimilarityThreshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestLoad_ZeroThresholdIsKept(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIMILARITY_THRESHOLD", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Index.SimilarityThreshold)
}

func TestAllowedOriginsList(t *testing.T) {
	cfg := defaultConfig()

	cfg.Server.AllowedOrigins = " http://localhost:5173 , https://chat.uwp.edu,,"
	assert.Equal(t, []string{"http://localhost:5173", "https://chat.uwp.edu"}, cfg.AllowedOriginsList())

	cfg.Server.AllowedOrigins = ""
	assert.Empty(t, cfg.AllowedOriginsList())
}
