package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	OCR      OCRConfig
	Pipeline PipelineConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// OCRConfig holds extraction provider settings. API keys are read from
// config or env; this package never writes them back to disk.
type OCRConfig struct {
	Provider      string
	Model         string
	Prompt        string
	OpenAIKey     string `mapstructure:"openai_key"`
	MistralKey    string `mapstructure:"mistral_key"`
	GeminiProject string `mapstructure:"gemini_project"`
	GeminiRegion  string `mapstructure:"gemini_region"`
}

// PipelineConfig bounds batch runs.
type PipelineConfig struct {
	Concurrency  int
	Retries      int
	CallTimeout  time.Duration `mapstructure:"call_timeout"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// Load reads configuration from file and env. Env var overrides use prefix SIGVERIFY_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "sigverify", "sigverify.db"))
	v.SetDefault("ocr.provider", "openai")
	v.SetDefault("ocr.model", "")
	v.SetDefault("ocr.prompt", "")
	v.SetDefault("ocr.openai_key", "")
	v.SetDefault("ocr.mistral_key", "")
	v.SetDefault("ocr.gemini_project", "")
	v.SetDefault("ocr.gemini_region", "us-central1")
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.retries", 2)
	v.SetDefault("pipeline.call_timeout", "90s")
	v.SetDefault("pipeline.batch_timeout", "15m")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("SIGVERIFY_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "sigverify"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SIGVERIFY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Pipeline.Concurrency < 1 {
		return Config{}, fmt.Errorf("pipeline.concurrency must be at least 1, got %d", c.Pipeline.Concurrency)
	}
	return c, nil
}
