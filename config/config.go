package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const EnvPrefix = "REVIEWCREW"

// Config holds runtime configuration. Values come from .reviewcrew.yaml,
// REVIEWCREW_* env vars and CLI flags, in increasing precedence.
type Config struct {
	Model           string `mapstructure:"model"`
	GeminiAPIKey    string `mapstructure:"gemini_api_key"`
	LLMCommand      string `mapstructure:"llm_command"`
	OutputDir       string `mapstructure:"output_dir"`
	StorageDir      string `mapstructure:"storage_dir"`
	DBPath          string `mapstructure:"db_path"`
	Telemetry       bool   `mapstructure:"telemetry"`
	MaxContentBytes int    `mapstructure:"max_content_bytes"`
	MaxLineLength   int    `mapstructure:"max_line_length"`
	Workers         int    `mapstructure:"workers"`
	AgentsFile      string `mapstructure:"agents_file"`
	TasksFile       string `mapstructure:"tasks_file"`
	Debug           bool   `mapstructure:"debug"`
}

// Load reads configuration from viper, applying built-in defaults for any
// value not set elsewhere.
func Load() (Config, error) {
	viper.SetDefault("model", "gemini-2.0-flash")
	viper.SetDefault("gemini_api_key", "")
	viper.SetDefault("llm_command", "")
	viper.SetDefault("output_dir", "output")
	viper.SetDefault("storage_dir", ".reviewcrew")
	viper.SetDefault("db_path", "")
	viper.SetDefault("telemetry", false)
	viper.SetDefault("max_content_bytes", 5000)
	viper.SetDefault("max_line_length", 120)
	viper.SetDefault("workers", 0)
	viper.SetDefault("agents_file", "")
	viper.SetDefault("tasks_file", "")
	viper.SetDefault("debug", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.StorageDir, "reviewcrew.db")
	}
	if cfg.MaxContentBytes <= 0 {
		return Config{}, fmt.Errorf("max_content_bytes must be positive, got %d", cfg.MaxContentBytes)
	}
	if cfg.MaxLineLength <= 0 {
		return Config{}, fmt.Errorf("max_line_length must be positive, got %d", cfg.MaxLineLength)
	}
	return cfg, nil
}

// EventLogPath is where crew telemetry goes when enabled.
func (c Config) EventLogPath() string {
	return filepath.Join(c.StorageDir, "events.jsonl")
}
