package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback-insights-go/internal/types"
)

func validConfig() Config {
	return Config{
		ModelName:           "gpt-4o-mini",
		UseMockScorer:       true,
		MaxBatchSize:        30,
		MaxTokensPerRequest: 12000,
		MaxWorkers:          12,
		RequestsPerMinute:   450,
		TokensPerMinute:     200000,
		MaxCommentLength:    2000,
		SupportedLangs:      []types.Language{types.LangES, types.LangEN, types.LangGN},
		DefaultLang:         types.LangES,
		RunDeadline:         600 * time.Second,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	cases := map[string]func(*Config){
		"batch size zero":          func(c *Config) { c.MaxBatchSize = 0 },
		"batch size huge":          func(c *Config) { c.MaxBatchSize = 1001 },
		"token cap tiny":           func(c *Config) { c.MaxTokensPerRequest = 50 },
		"too many workers":         func(c *Config) { c.MaxWorkers = 51 },
		"tpm below request cap":    func(c *Config) { c.TokensPerMinute = 100 },
		"comment length tiny":      func(c *Config) { c.MaxCommentLength = 10 },
		"unknown language":         func(c *Config) { c.SupportedLangs = []types.Language{"fr"} },
		"default outside support":  func(c *Config) { c.DefaultLang = types.LangGN; c.SupportedLangs = []types.Language{types.LangES} },
		"missing key without mock": func(c *Config) { c.UseMockScorer = false; c.APIKey = "" },
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("USE_MOCK_SCORER", "true")
	t.Setenv("MAX_BATCH_SIZE", "10")
	t.Setenv("MODEL_NAME", "gpt-4o")
	t.Setenv("SUPPORTED_LANGS", "es,en")
	t.Setenv("DEFAULT_LANG", "en")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxBatchSize)
	assert.Equal(t, "gpt-4o", cfg.ModelName)
	assert.Equal(t, types.LangEN, cfg.DefaultLang)
	assert.Equal(t, []types.Language{types.LangES, types.LangEN}, cfg.SupportedLangs)
	assert.Equal(t, 450, cfg.RequestsPerMinute, "unset values keep defaults")
}
