package common

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// AppName names the config directory under XDG_CONFIG_HOME and the env prefix.
const AppName = "bookscan"

// Config holds all application configuration
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Image     ImageConfig     `mapstructure:"image"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	Aggregate AggregateConfig `mapstructure:"aggregate"`
	Judge     JudgeConfig     `mapstructure:"judge"`
	LogLevel  string          `mapstructure:"log_level" validate:"oneof=debug info warn error"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model       string        `mapstructure:"model" validate:"required"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	Temperature float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"gte=0"`
}

// ImageConfig bounds the upload re-encoding loop.
type ImageConfig struct {
	MaxUploadBytes int `mapstructure:"max_upload_bytes" validate:"gt=0"`
	MaxAttempts    int `mapstructure:"max_attempts" validate:"gt=0"`
	MinSide        int `mapstructure:"min_side" validate:"gt=0"`
}

type ExtractConfig struct {
	Workers              int           `mapstructure:"workers" validate:"gte=1"`
	RequestsPerMinute    int           `mapstructure:"requests_per_minute" validate:"gte=0"`
	PageNumberSecondPass bool          `mapstructure:"page_number_second_pass"`
	JobTimeout           time.Duration `mapstructure:"job_timeout" validate:"gte=0"`
}

type AggregateConfig struct {
	PreviewChars int `mapstructure:"preview_chars" validate:"gt=0"`
}

type JudgeConfig struct {
	SampleSize int    `mapstructure:"sample_size" validate:"gte=1"`
	Seed       uint64 `mapstructure:"seed"`
}

// DefaultConfig returns the values used when neither a config file nor the environment sets them.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0,
			Timeout:     90 * time.Second,
			MaxRetries:  2,
		},
		Image: ImageConfig{
			MaxUploadBytes: 5 * 1024 * 1024,
			MaxAttempts:    12,
			MinSide:        400,
		},
		Extract: ExtractConfig{
			Workers:              1,
			RequestsPerMinute:    60,
			PageNumberSecondPass: true,
			JobTimeout:           5 * time.Minute,
		},
		Aggregate: AggregateConfig{PreviewChars: 180},
		Judge:     JudgeConfig{SampleSize: 10},
		LogLevel:  "info",
	}
}

// DefaultConfigPath is $XDG_CONFIG_HOME/bookscan/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// LoadConfig layers defaults, the optional config file and the environment.
// A missing config file is not an error; an unreadable or malformed one is.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// BOOKSCAN_* first, then the conventional OpenAI variables.
	_ = v.BindEnv("llm.api_key", "BOOKSCAN_LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.model", "BOOKSCAN_LLM_MODEL", "OPENAI_MODEL")
	_ = v.BindEnv("llm.base_url", "BOOKSCAN_LLM_BASE_URL", "OPENAI_BASE_URL")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, AppName))
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, NewAppError("CONFIG_ERROR", "read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, NewAppError("CONFIG_ERROR", "decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	v.SetDefault("image.max_upload_bytes", d.Image.MaxUploadBytes)
	v.SetDefault("image.max_attempts", d.Image.MaxAttempts)
	v.SetDefault("image.min_side", d.Image.MinSide)
	v.SetDefault("extract.workers", d.Extract.Workers)
	v.SetDefault("extract.requests_per_minute", d.Extract.RequestsPerMinute)
	v.SetDefault("extract.page_number_second_pass", d.Extract.PageNumberSecondPass)
	v.SetDefault("extract.job_timeout", d.Extract.JobTimeout)
	v.SetDefault("aggregate.preview_chars", d.Aggregate.PreviewChars)
	v.SetDefault("judge.sample_size", d.Judge.SampleSize)
	v.SetDefault("judge.seed", d.Judge.Seed)
	v.SetDefault("log_level", d.LogLevel)
}

// Validate checks struct-level constraints. The API key is checked separately by RequireLLM
// so that offline commands (aggregate, audit) run without credentials.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return NewAppError("CONFIG_ERROR", "invalid configuration", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	return nil
}

// RequireLLM fails when no API key is configured.
func (c *Config) RequireLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	return nil
}

// LogValue keeps the API key out of structured logs.
func (c LLMConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("model", c.Model),
		slog.String("base_url", c.BaseURL),
		slog.Float64("temperature", c.Temperature),
		slog.Duration("timeout", c.Timeout),
		slog.Bool("key_configured", c.APIKey != ""),
	)
}
