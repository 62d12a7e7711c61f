package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Classify   ClassifyConfig   `yaml:"classify" mapstructure:"classify"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver          string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL     string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns        int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns        int32  `yaml:"min_conns" mapstructure:"min_conns"`
	ConnectAttempts int    `yaml:"connect_attempts" mapstructure:"connect_attempts"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	ClassifyModel     string `yaml:"classify_model" mapstructure:"classify_model"`
	ExtractModel      string `yaml:"extract_model" mapstructure:"extract_model"`
	ClassifyMaxTokens int64  `yaml:"classify_max_tokens" mapstructure:"classify_max_tokens"`
	ExtractMaxTokens  int64  `yaml:"extract_max_tokens" mapstructure:"extract_max_tokens"`
	MaxRetries        int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// PipelineConfig configures backlog processing.
type PipelineConfig struct {
	InternalDomain          string `yaml:"internal_domain" mapstructure:"internal_domain"`
	LLMDelayMs              int    `yaml:"llm_delay_ms" mapstructure:"llm_delay_ms"`
	RateLimitMode           string `yaml:"rate_limit_mode" mapstructure:"rate_limit_mode"`
	MinTranscriptChars      int    `yaml:"min_transcript_chars" mapstructure:"min_transcript_chars"`
	MaxInputChars           int    `yaml:"max_input_chars" mapstructure:"max_input_chars"`
	ClassifyTranscriptWords int    `yaml:"classify_transcript_words" mapstructure:"classify_transcript_words"`
	BatchLimit              int    `yaml:"batch_limit" mapstructure:"batch_limit"`
	PageSize                int    `yaml:"page_size" mapstructure:"page_size"`
}

// ClassifyConfig holds the rule-tier keyword vocabularies. Empty lists fall
// back to the built-in defaults in the classify package.
type ClassifyConfig struct {
	SalesKeywords        []string `yaml:"sales_keywords" mapstructure:"sales_keywords"`
	PartnerKeywords      []string `yaml:"partner_keywords" mapstructure:"partner_keywords"`
	InternalKeywords     []string `yaml:"internal_keywords" mapstructure:"internal_keywords"`
	SalesMeetingTypes    []string `yaml:"sales_meeting_types" mapstructure:"sales_meeting_types"`
	InternalMeetingTypes []string `yaml:"internal_meeting_types" mapstructure:"internal_meeting_types"`
}

// PricingConfig holds per-model token pricing.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// ServerConfig configures the ops API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures end-of-run alerting.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CALLPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("store.connect_attempts", 3)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.classify_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.extract_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.classify_max_tokens", 16)
	v.SetDefault("anthropic.extract_max_tokens", 4096)
	v.SetDefault("anthropic.max_retries", 0)
	v.SetDefault("pipeline.internal_domain", "example.com")
	v.SetDefault("pipeline.llm_delay_ms", 1000)
	v.SetDefault("pipeline.rate_limit_mode", "delay")
	v.SetDefault("pipeline.min_transcript_chars", 50)
	v.SetDefault("pipeline.max_input_chars", 100000)
	v.SetDefault("pipeline.classify_transcript_words", 500)
	v.SetDefault("pipeline.batch_limit", 0)
	v.SetDefault("pipeline.page_size", 100)
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.10)
	v.SetDefault("monitoring.cost_threshold_usd", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pricing.anthropic", map[string]any{
		"claude-haiku-4-5-20251001":  map[string]any{"input": 0.80, "output": 4.00},
		"claude-sonnet-4-5-20250929": map[string]any{"input": 3.00, "output": 15.00},
	})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command needs are present. mode is
// one of "process", "classify", "serve", or "store".
func (c *Config) Validate(mode string) error {
	var missing []string
	if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		missing = append(missing, "store.database_url")
	}

	switch mode {
	case "store":
	case "classify":
		if c.Pipeline.InternalDomain == "" {
			missing = append(missing, "pipeline.internal_domain")
		}
	case "process", "serve":
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key")
		}
		if c.Pipeline.InternalDomain == "" {
			missing = append(missing, "pipeline.internal_domain")
		}
		if c.Pipeline.RateLimitMode != "delay" && c.Pipeline.RateLimitMode != "bucket" {
			return eris.Errorf("config: pipeline.rate_limit_mode must be delay or bucket, got %q", c.Pipeline.RateLimitMode)
		}
		if c.Pipeline.LLMDelayMs < 0 {
			return eris.New("config: pipeline.llm_delay_ms must not be negative")
		}
		if c.Pipeline.PageSize < 0 {
			return eris.New("config: pipeline.page_size must not be negative")
		}
		if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
			return eris.Errorf("config: invalid server.port %d", c.Server.Port)
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
