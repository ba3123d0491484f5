// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/trpt/internal/core"
)

// Config represents the top-level configuration.
// Maps to the `trpt:` root key in YAML.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Collector CollectorConfig `mapstructure:"collector"`
	Flow      FlowConfig      `mapstructure:"flow"`
	Output    OutputConfig    `mapstructure:"output"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"`  // debug / info / warn / error
	Format  string           `mapstructure:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Collector ───

// CollectorConfig selects which datagrams are telemetry reports.
type CollectorConfig struct {
	Ports      []int `mapstructure:"ports"`       // Collector UDP ports; empty accepts any port
	BPF        bool  `mapstructure:"bpf"`         // Pre-filter frames on Ports with classic BPF
	SnapLen    int   `mapstructure:"snaplen"`     // Bytes of each frame the filter may inspect
	MinVersion int   `mapstructure:"min_version"` // Lowest accepted report header version
}

// ─── Flow index ───

// FlowConfig configures the correlation-key index.
type FlowConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// ─── Output ───

// OutputConfig configures how records are written.
type OutputConfig struct {
	Format string   `mapstructure:"format"` // json / yaml / text
	Fields []string `mapstructure:"fields"` // Dotted paths to project; empty writes everything
	Match  []string `mapstructure:"match"`  // label=value pairs a report must carry to be written
}

// MatchLabels parses Match into a label map.
func (o OutputConfig) MatchLabels() (map[string]string, error) {
	labels := make(map[string]string, len(o.Match))
	for _, m := range o.Match {
		k, v, ok := strings.Cut(m, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: output.match %q is not label=value", core.ErrConfigInvalid, m)
		}
		labels[k] = v
	}
	return labels, nil
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Textfile string `mapstructure:"textfile"` // Written once when a run ends
}

// ─── Pipeline ───

// PipelineConfig tunes the capture pipeline.
type PipelineConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `trpt: ...`.
type configRoot struct {
	Trpt Config `mapstructure:"trpt"`
}

// Load loads configuration from file. An empty path yields Default.
// The YAML file uses `trpt:` as root key; env vars use the TRPT_ prefix
// (e.g., TRPT_LOG_LEVEL).
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return load(v)
}

// Default returns the default configuration with environment overrides
// applied.
func Default() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	// The `trpt.` key prefix maps to `TRPT_` in env vars via the key replacer
	// (e.g., key "trpt.log.level" → env "TRPT_LOG_LEVEL").
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Trpt

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "trpt." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("trpt.log.level", "info")
	v.SetDefault("trpt.log.format", "text")
	v.SetDefault("trpt.log.outputs.file.enabled", false)
	v.SetDefault("trpt.log.outputs.file.path", "/var/log/trpt/trpt.log")
	v.SetDefault("trpt.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("trpt.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("trpt.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("trpt.log.outputs.file.rotation.compress", true)

	// Collector defaults
	v.SetDefault("trpt.collector.ports", []int{})
	v.SetDefault("trpt.collector.bpf", true)
	v.SetDefault("trpt.collector.snaplen", 65535)
	v.SetDefault("trpt.collector.min_version", 0)

	// Flow index defaults
	v.SetDefault("trpt.flow.enabled", true)
	v.SetDefault("trpt.flow.ttl", "10m")
	v.SetDefault("trpt.flow.cleanup_interval", "1m")

	// Output defaults
	v.SetDefault("trpt.output.format", "json")
	v.SetDefault("trpt.output.fields", []string{})
	v.SetDefault("trpt.output.match", []string{})

	// Metrics defaults
	v.SetDefault("trpt.metrics.enabled", false)
	v.SetDefault("trpt.metrics.textfile", "")

	// Pipeline defaults
	v.SetDefault("trpt.pipeline.buffer_size", 1024)
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: invalid log format: %s (must be json/text)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("%w: log.outputs.file.path is required when file output is enabled", core.ErrConfigInvalid)
	}

	// ── Collector validation ──
	for _, p := range cfg.Collector.Ports {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("%w: collector port %d out of range", core.ErrConfigInvalid, p)
		}
	}
	if cfg.Collector.SnapLen <= 0 {
		cfg.Collector.SnapLen = 65535
	}
	if cfg.Collector.MinVersion < 0 || cfg.Collector.MinVersion > 15 {
		return fmt.Errorf("%w: collector.min_version %d outside 0-15", core.ErrConfigInvalid, cfg.Collector.MinVersion)
	}

	// ── Flow validation ──
	if cfg.Flow.TTL < 0 || cfg.Flow.CleanupInterval < 0 {
		return fmt.Errorf("%w: flow durations must not be negative", core.ErrConfigInvalid)
	}

	// ── Output validation ──
	switch cfg.Output.Format {
	case "json", "yaml", "text":
	default:
		return fmt.Errorf("%w: invalid output format: %s (must be json/yaml/text)", core.ErrConfigInvalid, cfg.Output.Format)
	}
	if _, err := cfg.Output.MatchLabels(); err != nil {
		return err
	}

	// ── Metrics validation ──
	if cfg.Metrics.Enabled && cfg.Metrics.Textfile == "" {
		return fmt.Errorf("%w: metrics.textfile is required when metrics.enabled=true", core.ErrConfigInvalid)
	}

	if cfg.Pipeline.BufferSize <= 0 {
		cfg.Pipeline.BufferSize = 1024
	}
	return nil
}
