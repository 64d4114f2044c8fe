package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Log        LogConfig                 `mapstructure:"log"`
	Ranking    RankingConfig             `mapstructure:"ranking"`
	Enrichment EnrichmentConfig          `mapstructure:"enrichment"`
	Cache      CacheConfig               `mapstructure:"cache"`
	LLM        LLMConfig                 `mapstructure:"llm"`
	Insight    InsightConfig             `mapstructure:"insight"`
	Notifiers  map[string]NotifierConfig `mapstructure:"notifiers"`
	Storage    StorageConfig             `mapstructure:"storage"`
	Chart      ChartConfig               `mapstructure:"chart"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
	Schedule   ScheduleConfig            `mapstructure:"schedule"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// RankingConfig controls acquisition and filtering of the ranking table.
type RankingConfig struct {
	Source     string        `mapstructure:"source"` // "kabutan" or "buffett"
	URL        string        `mapstructure:"url"`    // overrides the source default
	MinVolume  int64         `mapstructure:"min_volume"`
	TopN       int           `mapstructure:"top_n"`
	RetryCount int           `mapstructure:"retry_count"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// EnrichmentConfig controls the per-symbol context fetches.
type EnrichmentConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	MaxNews        int           `mapstructure:"max_news"`
	MaxDisclosures int           `mapstructure:"max_disclosures"`
	RequestDelay   time.Duration `mapstructure:"request_delay"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Workers        int           `mapstructure:"workers"`
	ProfileTTL     time.Duration `mapstructure:"profile_ttl"`
}

type CacheConfig struct {
	Type  string      `mapstructure:"type"` // "memory", "redis" or "" to disable
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type ClaudeConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// InsightConfig holds the earnings deep-dive settings.
type InsightConfig struct {
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// NotifierConfig enables a channel. Everything else under the channel key is
// passed to the notifier as Params.
type NotifierConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Params  map[string]any `mapstructure:",remain"`
}

type StorageConfig struct {
	Hot  HotStorageConfig  `mapstructure:"hot"`
	Cold ColdStorageConfig `mapstructure:"cold"`
}

// HotStorageConfig selects the report store. An empty DSN uses the
// in-memory store.
type HotStorageConfig struct {
	DSN           string `mapstructure:"dsn"`
	RetentionDays int    `mapstructure:"retention_days"`
}

type ColdStorageConfig struct {
	Type string   `mapstructure:"type"` // "localfs", "s3" or "" to disable
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type ChartConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Width   int           `mapstructure:"width"`
	Height  int           `mapstructure:"height"`
	MaxAge  time.Duration `mapstructure:"max_age"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
	APIKey  string `mapstructure:"api_key"` // guards the history endpoints
}

type ScheduleConfig struct {
	Cron     string `mapstructure:"cron"`
	Timezone string `mapstructure:"timezone"`
}

// Load reads configuration from file on top of Defaults.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	return decode(v)
}

// FromEnv returns Defaults with environment overrides applied, for runs
// without a config file. A Claude key alone selects the claude provider and
// LINE_NOTIFY_TOKEN alone enables the line notifier.
func FromEnv() (*Config, error) {
	cfg, err := decode(newViper())
	if err != nil {
		return nil, err
	}
	if cfg.LLM.Provider == "" && cfg.LLM.Claude.APIKey != "" {
		cfg.LLM.Provider = "claude"
	}
	if token := os.Getenv("LINE_NOTIFY_TOKEN"); token != "" {
		if _, ok := cfg.Notifiers["line"]; !ok {
			if cfg.Notifiers == nil {
				cfg.Notifiers = make(map[string]NotifierConfig)
			}
			cfg.Notifiers["line"] = NotifierConfig{
				Enabled: true,
				Params:  map[string]any{"token": token},
			}
		}
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	// AutomaticEnv only resolves keys viper already knows about.
	setDefaults(v, "", reflect.ValueOf(*Defaults()))

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("ranking.min_volume", "MIN_VOLUME")
	_ = v.BindEnv("ranking.top_n", "TOP_N")
	_ = v.BindEnv("llm.claude.api_key", "LLM_CLAUDE_API_KEY", "ANTHROPIC_API_KEY")
	return v
}

// setDefaults registers every leaf of a config struct under its mapstructure
// key. Maps are skipped; their keys come from the config file only.
func setDefaults(v *viper.Viper, prefix string, rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "" || !field.IsExported() {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		fv := rv.Field(i)
		switch fv.Kind() {
		case reflect.Struct:
			setDefaults(v, key, fv)
		case reflect.Map:
		default:
			v.SetDefault(key, fv.Interface())
		}
	}
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Ranking: RankingConfig{
			Source:     "kabutan",
			MinVolume:  10000,
			TopN:       10,
			RetryCount: 3,
			RetryDelay: 2 * time.Second,
			Timeout:    30 * time.Second,
		},
		Enrichment: EnrichmentConfig{
			BaseURL:        "https://kabutan.jp",
			MaxNews:        3,
			MaxDisclosures: 5,
			RequestDelay:   time.Second,
			Timeout:        30 * time.Second,
			Workers:        1,
			ProfileTTL:     24 * time.Hour,
		},
		Cache: CacheConfig{
			Type: "memory",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "pts:",
			},
		},
		LLM: LLMConfig{
			Claude: ClaudeConfig{Model: "claude-3-5-sonnet-20241022"},
			OpenAI: OpenAIConfig{Model: "gpt-4o-mini"},
			Gemini: GeminiConfig{Model: "gemini-2.0-flash"},
		},
		Insight: InsightConfig{
			MaxTokens:   1024,
			Temperature: 0.3,
			Timeout:     60 * time.Second,
		},
		Storage: StorageConfig{
			Hot: HotStorageConfig{
				RetentionDays: 90,
			},
			Cold: ColdStorageConfig{
				Type: "localfs",
				Path: "data/archive",
			},
		},
		Chart: ChartConfig{
			Width:  800,
			Height: 400,
			MaxAge: 24 * time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
			Path:    "/metrics",
		},
		Schedule: ScheduleConfig{
			Cron:     "30 17 * * 1-5",
			Timezone: "Asia/Tokyo",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Ranking validation
	switch c.Ranking.Source {
	case "kabutan", "buffett":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown ranking source %q", c.Ranking.Source))
	}
	if c.Ranking.MinVolume < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_volume cannot be negative, got %d", c.Ranking.MinVolume))
	}
	if c.Ranking.TopN < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("top_n must be at least 1, got %d", c.Ranking.TopN))
	}
	if c.Ranking.RetryCount < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("retry_count must be at least 1, got %d", c.Ranking.RetryCount))
	}
	if c.Ranking.RetryDelay < 0 || c.Enrichment.RequestDelay < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("delays cannot be negative"))
	}

	// Enrichment validation
	if c.Enrichment.MaxNews < 0 || c.Enrichment.MaxDisclosures < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_news and max_disclosures cannot be negative"))
	}
	if c.Enrichment.Workers < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("workers must be at least 1, got %d", c.Enrichment.Workers))
	}

	// Cache validation
	switch c.Cache.Type {
	case "", "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("redis addr required when cache type is redis"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown cache type %q", c.Cache.Type))
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		case "gemini":
			if c.LLM.Gemini.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("gemini api_key required when provider is gemini"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
		}
	}

	// Archive validation
	switch c.Storage.Cold.Type {
	case "":
	case "localfs":
		if c.Storage.Cold.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("cold storage path required for localfs"))
		}
	case "s3":
		if c.Storage.Cold.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required for s3 cold storage"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown cold storage type %q", c.Storage.Cold.Type))
	}

	if c.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("invalid schedule timezone: %w", err))
		}
	}

	return nil
}
