package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/visibility-cli/internal/cost"
	"github.com/sells-group/visibility-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Model      ModelConfig      `yaml:"model" mapstructure:"model"`
	Provider   ProviderConfig   `yaml:"provider" mapstructure:"provider"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Pillars    PillarsConfig    `yaml:"pillars" mapstructure:"pillars"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Circuit    CircuitConfig    `yaml:"circuit" mapstructure:"circuit"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Pricing    cost.Rates       `yaml:"pricing" mapstructure:"pricing"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ModelConfig selects the answering models and how they are called.
type ModelConfig struct {
	Name              string   `yaml:"name" mapstructure:"name"`
	Mode              string   `yaml:"mode" mapstructure:"mode"`
	ComparisonModels  []string `yaml:"comparison_models" mapstructure:"comparison_models"`
	Temperature       float64  `yaml:"temperature" mapstructure:"temperature"`
	MaxOutputTokens   int      `yaml:"max_output_tokens" mapstructure:"max_output_tokens"`
	ReasoningEffort   string   `yaml:"reasoning_effort" mapstructure:"reasoning_effort"`
	MaxRetries        int      `yaml:"max_retries" mapstructure:"max_retries"`
	RetryBackoffSecs  float64  `yaml:"retry_backoff_secs" mapstructure:"retry_backoff_secs"`
	CallBudget        int      `yaml:"call_budget" mapstructure:"call_budget"`
	TimeoutSecs       int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// Models returns the primary model followed by the comparison models,
// deduplicated in first-seen order.
func (m ModelConfig) Models() []string {
	return Dedupe(append([]string{m.Name}, m.ComparisonModels...))
}

// ProviderConfig names the AI provider whose visibility is measured.
type ProviderConfig struct {
	Name    string   `yaml:"name" mapstructure:"name"`
	Aliases []string `yaml:"aliases" mapstructure:"aliases"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Org     string `yaml:"org" mapstructure:"org"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
	// SearchRecency restricts web results: day, week, month or year.
	SearchRecency string `yaml:"search_recency" mapstructure:"search_recency"`
}

// PillarsConfig configures pillar extraction.
type PillarsConfig struct {
	TargetCount  int    `yaml:"target_count" mapstructure:"target_count"`
	TaxonomyPath string `yaml:"taxonomy_path" mapstructure:"taxonomy_path"`
}

// StorageConfig configures where result artifacts are written.
type StorageConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	TimeoutSecs    int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CircuitConfig configures the per-provider circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// MonitoringConfig configures run alerting.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
	MinAvgCoverage       float64 `yaml:"min_avg_coverage" mapstructure:"min_avg_coverage"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultProviderAliases are the OpenAI names masked when none are configured.
var DefaultProviderAliases = []string{
	"OpenAI",
	"Open AI",
	"OpenAI, Inc.",
	"ChatGPT",
	"GPT-4o",
	"GPT-5",
	"Sora",
	"DALL·E",
}

// DefaultAllowedOrigins are the CORS origins used when none are configured.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"https://story-ai-visibility-fe.vercel.app",
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VISIBILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Vendor-standard key names are honored alongside the prefixed ones.
	for key, envs := range map[string][]string{
		"openai.key":     {"VISIBILITY_OPENAI_KEY", "OPENAI_API_KEY"},
		"openai.org":     {"VISIBILITY_OPENAI_ORG", "OPENAI_ORG_ID"},
		"anthropic.key":  {"VISIBILITY_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"},
		"perplexity.key": {"VISIBILITY_PERPLEXITY_KEY", "PERPLEXITY_API_KEY"},
	} {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("model.name", "gpt-5")
	v.SetDefault("model.mode", "stub")
	v.SetDefault("model.comparison_models", []string{"gpt-4o"})
	v.SetDefault("model.temperature", 1.0)
	v.SetDefault("model.max_output_tokens", 4096)
	v.SetDefault("model.reasoning_effort", "")
	v.SetDefault("model.max_retries", 2)
	v.SetDefault("model.retry_backoff_secs", 2.0)
	v.SetDefault("model.call_budget", 20)
	v.SetDefault("model.timeout_secs", 60)
	v.SetDefault("model.requests_per_second", 0)
	v.SetDefault("provider.name", "OpenAI")
	v.SetDefault("provider.aliases", DefaultProviderAliases)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("pillars.target_count", 3)
	v.SetDefault("storage.output_dir", "artifacts")
	v.SetDefault("store.driver", "none")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", DefaultAllowedOrigins)
	v.SetDefault("server.timeout_secs", 180)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

	cfg.Model.Mode = model.NormalizeMode(cfg.Model.Mode)

	// A list supplied as one env string may be JSON or comma-separated.
	for key, dst := range map[string]*[]string{
		"provider.aliases":        &cfg.Provider.Aliases,
		"model.comparison_models": &cfg.Model.ComparisonModels,
		"server.allowed_origins":  &cfg.Server.AllowedOrigins,
	} {
		if raw, ok := v.Get(key).(string); ok {
			list, err := ParseList(raw)
			if err != nil {
				return nil, eris.Wrapf(err, "config: parse %s", key)
			}
			*dst = list
		}
	}

	return &cfg, nil
}

// ParseList parses a JSON string array or a comma-separated list. Entries
// are trimmed and blanks dropped.
func ParseList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}

	var items []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, eris.Wrap(err, "invalid JSON list")
		}
	} else {
		items = strings.Split(raw, ",")
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

// Dedupe drops blank and repeated entries, keeping first-seen order.
// Comparison is exact after trimming.
func Dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// MissingCredentialError reports that a live call has no API key.
type MissingCredentialError struct {
	Provider string
	Model    string
}

func (e *MissingCredentialError) Error() string {
	if e.Provider == "" {
		return "live mode requires at least one of openai.key, anthropic.key or perplexity.key"
	}
	return fmt.Sprintf("live mode requires %s.key for model %s", e.Provider, e.Model)
}

// HasCredential reports whether an API key is configured for provider.
func (c *Config) HasCredential(provider string) bool {
	switch strings.ToLower(provider) {
	case cost.ProviderOpenAI:
		return c.OpenAI.Key != ""
	case cost.ProviderAnthropic:
		return c.Anthropic.Key != ""
	case cost.ProviderPerplexity:
		return c.Perplexity.Key != ""
	}
	return false
}

// CheckCredentials verifies every model has a key for the provider
// providerFor maps it to.
func (c *Config) CheckCredentials(models []string, providerFor func(string) string) error {
	for _, m := range models {
		p := providerFor(m)
		if !c.HasCredential(p) {
			return &MissingCredentialError{Provider: p, Model: m}
		}
	}
	return nil
}

// Validate checks that required configuration fields are present for the
// given command.
func (c *Config) Validate(command string) error {
	var errs []string

	switch c.Model.Mode {
	case "stub":
	case "live":
		if c.OpenAI.Key == "" && c.Anthropic.Key == "" && c.Perplexity.Key == "" {
			errs = append(errs, (&MissingCredentialError{}).Error())
		}
	default:
		errs = append(errs, fmt.Sprintf("model.mode must be 'stub' or 'live', got %q", c.Model.Mode))
	}
	if strings.TrimSpace(c.Model.Name) == "" {
		errs = append(errs, "model.name is required")
	}
	if c.Pillars.TargetCount < 1 {
		errs = append(errs, "pillars.target_count must be >= 1")
	}
	if c.Model.MaxRetries < 0 {
		errs = append(errs, "model.max_retries must be >= 0")
	}

	switch c.Store.Driver {
	case "", "none", "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be none, sqlite or postgres, got %q", c.Store.Driver))
	}

	switch command {
	case "analyze", "mcp":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.TimeoutSecs <= 0 {
			errs = append(errs, "server.timeout_secs must be > 0")
		}
	case "runs":
		if !c.StoreEnabled() {
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
	default:
		return eris.Errorf("config: unknown command %q", command)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// StoreEnabled reports whether run history is persisted.
func (c *Config) StoreEnabled() bool {
	return c.Store.Driver == "sqlite" || c.Store.Driver == "postgres"
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
