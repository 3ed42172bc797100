package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"feedback-insights-go/internal/logger"
	"feedback-insights-go/internal/types"
)

// Config is the typed view of the environment. Loaded once at startup and
// passed down by value; nothing reads os.Getenv past this point.
type Config struct {
	ModelName           string
	APIKey              string
	UseMockScorer       bool
	MaxBatchSize        int
	MaxTokensPerRequest int
	MaxWorkers          int
	RequestsPerMinute   int
	TokensPerMinute     int
	MaxCommentLength    int
	SupportedLangs      []types.Language
	DefaultLang         types.Language
	RunDeadline         time.Duration
}

// Load reads .env (if present) and the environment into a validated Config.
func Load() (Config, error) {
	_ = godotenv.Load() // loads .env

	log := logger.New().WithField("component", "config")

	cfg := Config{
		ModelName:           envOr("MODEL_NAME", "gpt-4o-mini"),
		APIKey:              os.Getenv("OPENAI_API_KEY"),
		UseMockScorer:       os.Getenv("USE_MOCK_SCORER") == "true",
		MaxBatchSize:        envInt("MAX_BATCH_SIZE", 30),
		MaxTokensPerRequest: envInt("MAX_TOKENS_PER_REQUEST", 12000),
		MaxWorkers:          envInt("MAX_WORKERS", 12),
		RequestsPerMinute:   envInt("REQUESTS_PER_MINUTE", 450),
		TokensPerMinute:     envInt("TOKENS_PER_MINUTE", 200000),
		MaxCommentLength:    envInt("MAX_COMMENT_LENGTH", 2000),
		DefaultLang:         types.Language(envOr("DEFAULT_LANG", "es")),
		RunDeadline:         time.Duration(envInt("RUN_DEADLINE_SEC", 600)) * time.Second,
	}

	for _, l := range strings.Split(envOr("SUPPORTED_LANGS", "es,en,gn"), ",") {
		l = strings.TrimSpace(l)
		if l != "" {
			cfg.SupportedLangs = append(cfg.SupportedLangs, types.Language(l))
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	log.WithField("model", cfg.ModelName).
		WithField("max_batch_size", cfg.MaxBatchSize).
		WithField("max_workers", cfg.MaxWorkers).
		WithField("mock_scorer", cfg.UseMockScorer).
		Info("config loaded")
	return cfg, nil
}

// Validate enforces the coherence ranges. Out-of-range values are refused
// rather than silently clamped.
func (c Config) Validate() error {
	var errs []string
	if c.MaxBatchSize < 1 || c.MaxBatchSize > 1000 {
		errs = append(errs, fmt.Sprintf("MAX_BATCH_SIZE must be in [1,1000], got %d", c.MaxBatchSize))
	}
	if c.MaxTokensPerRequest < 100 || c.MaxTokensPerRequest > 100000 {
		errs = append(errs, fmt.Sprintf("MAX_TOKENS_PER_REQUEST must be in [100,100000], got %d", c.MaxTokensPerRequest))
	}
	if c.MaxWorkers < 1 || c.MaxWorkers > 50 {
		errs = append(errs, fmt.Sprintf("MAX_WORKERS must be in [1,50], got %d", c.MaxWorkers))
	}
	if c.RequestsPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("REQUESTS_PER_MINUTE must be positive, got %d", c.RequestsPerMinute))
	}
	if c.TokensPerMinute < c.MaxTokensPerRequest {
		errs = append(errs, fmt.Sprintf("TOKENS_PER_MINUTE %d is below MAX_TOKENS_PER_REQUEST %d", c.TokensPerMinute, c.MaxTokensPerRequest))
	}
	if c.MaxCommentLength < 100 || c.MaxCommentLength > 100000 {
		errs = append(errs, fmt.Sprintf("MAX_COMMENT_LENGTH must be in [100,100000], got %d", c.MaxCommentLength))
	}
	valid := map[types.Language]bool{types.LangES: true, types.LangEN: true, types.LangGN: true}
	for _, l := range c.SupportedLangs {
		if !valid[l] {
			errs = append(errs, fmt.Sprintf("unsupported language %q in SUPPORTED_LANGS", l))
		}
	}
	if !containsLang(c.SupportedLangs, c.DefaultLang) {
		errs = append(errs, fmt.Sprintf("DEFAULT_LANG %q is not in SUPPORTED_LANGS", c.DefaultLang))
	}
	if !c.UseMockScorer && c.APIKey == "" {
		errs = append(errs, "OPENAI_API_KEY is required unless USE_MOCK_SCORER=true")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

func containsLang(langs []types.Language, l types.Language) bool {
	for _, x := range langs {
		if x == l {
			return true
		}
	}
	return false
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}
