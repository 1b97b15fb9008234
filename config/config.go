// Package config loads application configuration from defaults, an
// optional nano.yaml file, and NANO_-prefixed environment variables. The
// loaded value is handed to constructors explicitly; nothing reads global
// state after startup.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Model    string        `mapstructure:"model"`
	Provider string        `mapstructure:"provider"`
	Agent    AgentConfig   `mapstructure:"agent"`
	Bench    BenchConfig   `mapstructure:"bench"`
	Swebench SwebenchConfig `mapstructure:"swebench"`
	LogLevel string        `mapstructure:"log_level"`
}

// AgentConfig holds the per-run loop budgets and limits.
type AgentConfig struct {
	MaxTurns       int     `mapstructure:"max_turns"`
	MaxToolCalls   int     `mapstructure:"max_tool_calls"`
	MaxCost        float64 `mapstructure:"max_cost"`
	WarningMargin  int     `mapstructure:"warning_margin"`
	ToolTimeoutSec int     `mapstructure:"tool_timeout"`
	TruncateChars  int     `mapstructure:"truncate_chars"`
}

// BenchConfig holds the local benchmark harness settings.
type BenchConfig struct {
	TasksDir string `mapstructure:"tasks_dir"`
	Parallel int    `mapstructure:"parallel"`
	DBPath   string `mapstructure:"db_path"`
}

// SwebenchConfig holds the Docker harness settings.
type SwebenchConfig struct {
	InstancesFile string `mapstructure:"instances_file"`
	OutputDir     string `mapstructure:"output_dir"`
	Slice         string `mapstructure:"slice"`
}

// Load reads configuration. A .env file and the config file are both
// optional; their absence is not an error. Environment variables use the
// NANO_ prefix with underscores for nesting (NANO_AGENT_MAX_TURNS).
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NANO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("nano")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model", "claude-sonnet-4-5")
	v.SetDefault("provider", "")
	v.SetDefault("log_level", "info")

	v.SetDefault("agent.max_turns", 50)
	v.SetDefault("agent.max_tool_calls", 50)
	v.SetDefault("agent.max_cost", 0.0)
	v.SetDefault("agent.warning_margin", 5)
	v.SetDefault("agent.tool_timeout", 120)
	v.SetDefault("agent.truncate_chars", 30000)

	v.SetDefault("bench.tasks_dir", "")
	v.SetDefault("bench.parallel", 1)
	v.SetDefault("bench.db_path", "nano-bench.db")

	v.SetDefault("swebench.instances_file", "")
	v.SetDefault("swebench.output_dir", "results")
	v.SetDefault("swebench.slice", "")
}
