package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// APIToken, when set, is required as a bearer token on every API request.
	APIToken string `envconfig:"API_TOKEN"`

	// Database. Required by serve; the CLI can run against a fixture instead.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`

	// S3 holds offloaded documentation bodies.
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"taskpilot-docs"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// OpenAI backs the answer gateway and documentation embeddings.
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIChatModel string `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-4o-mini"`

	// Context assembly
	ContextBudget         int     `envconfig:"CONTEXT_BUDGET" default:"16000"`
	BudgetUnit            string  `envconfig:"BUDGET_UNIT" default:"chars"`
	MaxChainDepth         int     `envconfig:"MAX_CHAIN_DEPTH" default:"10"`
	FuzzyThreshold        float64 `envconfig:"FUZZY_THRESHOLD" default:"0.6"`
	MeetingFuzzyThreshold float64 `envconfig:"MEETING_FUZZY_THRESHOLD" default:"0.5"`
	ParallelRetrieval     bool    `envconfig:"PARALLEL_RETRIEVAL" default:"true"`

	// Telemetry
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	EmbedPollInterval time.Duration `envconfig:"EMBED_POLL_INTERVAL" default:"30s"`
}

// Load reads .env (if present) and TASKPILOT_* environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("TASKPILOT", &cfg); err != nil {
		return nil, err
	}
	if cfg.BudgetUnit != "chars" && cfg.BudgetUnit != "tokens" {
		return nil, fmt.Errorf("TASKPILOT_BUDGET_UNIT must be chars or tokens, got %q", cfg.BudgetUnit)
	}
	if cfg.ContextBudget <= 0 {
		return nil, fmt.Errorf("TASKPILOT_CONTEXT_BUDGET must be positive, got %d", cfg.ContextBudget)
	}
	if cfg.FuzzyThreshold < 0 || cfg.FuzzyThreshold > 1 || cfg.MeetingFuzzyThreshold < 0 || cfg.MeetingFuzzyThreshold > 1 {
		return nil, fmt.Errorf("fuzzy thresholds must be within [0, 1]")
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// RequireDatabase reports an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("required key TASKPILOT_DATABASE_URL missing value")
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

// TracesSampleRate samples everything in development and 10% elsewhere.
func (c *Config) TracesSampleRate() float64 {
	if c.Environment == "development" {
		return 1.0
	}
	return 0.1
}
