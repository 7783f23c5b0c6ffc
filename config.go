package flow

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables read by LoadConfig,
// e.g. FLOW_DEFAULTS_PARALLELISM or FLOW_LOG_LEVEL.
const EnvPrefix = "FLOW"

// StageConfig holds the runtime knobs of a stage.
type StageConfig struct {
	Capacity    int `yaml:"capacity" mapstructure:"capacity" validate:"gte=0"`
	Parallelism int `yaml:"parallelism" mapstructure:"parallelism" validate:"gte=0"`
}

// LogConfig configures the logger built by NewLogger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=json console"`
}

// Config is the file representation of a graph's runtime settings.
//
//	log:
//	  level: info
//	  format: console
//	defaults:
//	  capacity: 64
//	  parallelism: 1
//	stages:
//	  enrich:
//	    parallelism: 8
type Config struct {
	Log      LogConfig              `yaml:"log" mapstructure:"log"`
	Defaults StageConfig            `yaml:"defaults" mapstructure:"defaults"`
	Stages   map[string]StageConfig `yaml:"stages" mapstructure:"stages" validate:"dive"`
}

// ConfigOption is a functional option for LoadConfig.
type ConfigOption func(*configLoader)

type configLoader struct {
	envFile string
}

// WithEnvFile overlays the FLOW_* variables of a .env file. Variables already set in
// the environment win over the file.
func WithEnvFile(path string) ConfigOption {
	return func(l *configLoader) { l.envFile = path }
}

// LoadConfig reads path (any format viper supports, empty for none), then applies the
// .env overlay and FLOW_* environment variables.
func LoadConfig(path string, opts ...ConfigOption) (*Config, error) {
	var l configLoader
	for _, opt := range opts {
		opt(&l)
	}

	v := viper.New()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("defaults.capacity", DefaultCapacity)
	v.SetDefault("defaults.parallelism", 1)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if l.envFile != "" {
		env, err := godotenv.Read(l.envFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", l.envFile, err)
		}
		for key, value := range env {
			if !strings.HasPrefix(key, EnvPrefix+"_") {
				continue
			}
			if _, set := os.LookupEnv(key); set {
				continue
			}
			v.Set(envKey(key), value)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps FLOW_DEFAULTS_CAPACITY to defaults.capacity. Under stages, only the last
// underscore separates the field, so FLOW_STAGES_MY_STAGE_PARALLELISM maps to
// stages.my_stage.parallelism.
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix+"_"))
	section, rest, _ := strings.Cut(key, "_")
	if section != "stages" {
		return section + "." + rest
	}
	i := strings.LastIndex(rest, "_")
	if i < 0 {
		return section + "." + rest
	}
	return section + "." + rest[:i] + "." + rest[i+1:]
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Stage returns the settings of the named stage, defaults filling what it leaves unset.
func (c *Config) Stage(name string) StageConfig {
	cfg := c.Defaults
	override, ok := c.Stages[strings.ToLower(name)]
	if !ok {
		return cfg
	}
	if override.Capacity > 0 {
		cfg.Capacity = override.Capacity
	}
	if override.Parallelism > 0 {
		cfg.Parallelism = override.Parallelism
	}
	return cfg
}

// Options returns the block options of the named stage: its name, settings and a logger.
func (c *Config) Options(name string, w io.Writer) []Option {
	return []Option{
		WithName(name),
		WithConfig(c.Stage(name)),
		WithLogger(NewLogger(c.Log, w)),
	}
}

// NewLogger builds a zerolog logger writing to w. Unknown levels fall back to info.
func NewLogger(cfg LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if strings.ToLower(cfg.Format) == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("component", "flow").Logger()
}
