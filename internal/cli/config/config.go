package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the cimbios configuration
type Config struct {
	Schema  string        `mapstructure:"schema"`
	Compare CompareConfig `mapstructure:"compare"`
	Log     LogConfig     `mapstructure:"log"`
	Output  OutputConfig  `mapstructure:"output"`
}

// CompareConfig represents graph comparison settings
type CompareConfig struct {
	Strict  bool `mapstructure:"strict"`
	Workers int  `mapstructure:"workers"`
}

// LogConfig represents logging settings
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// OutputConfig represents document output settings
type OutputConfig struct {
	Indent bool `mapstructure:"indent"`
}

// EnvPrefix prefixes environment overrides, e.g. CIMBIOS_LOG_LEVEL
const EnvPrefix = "CIMBIOS"

var logLevels = []string{"debug", "info", "warn", "error", "off"}

// Load loads the configuration from path, or from cimbios.yml or
// cimbios.yaml in the working directory when path is empty. A missing
// default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("schema", "")
	v.SetDefault("compare.strict", true)
	v.SetDefault("compare.workers", 0)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.development", false)
	v.SetDefault("output.indent", true)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("cimbios")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	valid := false
	for _, level := range logLevels {
		if cfg.Log.Level == level {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("log.level must be one of %s, got: %s", strings.Join(logLevels, ", "), cfg.Log.Level)
	}

	if cfg.Compare.Workers < 0 {
		return fmt.Errorf("compare.workers must not be negative, got: %d", cfg.Compare.Workers)
	}
	return nil
}
