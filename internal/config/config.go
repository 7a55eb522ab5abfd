// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"firestige.xyz/sniffer/internal/capture"
	"firestige.xyz/sniffer/internal/core"
	"firestige.xyz/sniffer/internal/log"
)

// Config is the top-level configuration. It maps to the `sniffer:` root key in YAML.
type Config struct {
	Log     log.Config    `mapstructure:"log" yaml:"log"`
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
}

// CaptureConfig configures capture sessions and the record queue.
type CaptureConfig struct {
	SnapLen         int           `mapstructure:"snap_len" yaml:"snap_len"`
	Promiscuous     bool          `mapstructure:"promiscuous" yaml:"promiscuous"`
	FilterByAddress bool          `mapstructure:"filter_by_address" yaml:"filter_by_address"`
	IncludeLoopback bool          `mapstructure:"include_loopback" yaml:"include_loopback"`
	IncludeIPv6     bool          `mapstructure:"include_ipv6" yaml:"include_ipv6"`
	QueueCapacity   int           `mapstructure:"queue_capacity" yaml:"queue_capacity"`
	StopTimeout     time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// OutputConfig selects how the CLI prints records.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"` // text | json | hex
}

const (
	minSnapLen = 20
	maxSnapLen = 262144
)

type configRoot struct {
	Sniffer Config `mapstructure:"sniffer"`
}

// Load loads configuration from path. An empty path loads the defaults.
// The YAML file uses `sniffer:` as root key; env vars use the SNIFFER_ prefix
// (e.g., SNIFFER_CAPTURE_SNAP_LEN).
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// key "sniffer.capture.snap_len" -> env "SNIFFER_CAPTURE_SNAP_LEN"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Sniffer

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use "sniffer." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("sniffer.log.level", log.DefaultLevel)
	v.SetDefault("sniffer.log.format", log.FormatPattern)
	v.SetDefault("sniffer.log.pattern", log.DefaultPattern)
	v.SetDefault("sniffer.log.time", log.DefaultTime)
	v.SetDefault("sniffer.log.caller", false)

	// Capture defaults
	v.SetDefault("sniffer.capture.snap_len", capture.DefaultSnapLen)
	v.SetDefault("sniffer.capture.promiscuous", true)
	v.SetDefault("sniffer.capture.filter_by_address", true)
	v.SetDefault("sniffer.capture.include_loopback", false)
	v.SetDefault("sniffer.capture.include_ipv6", false)
	v.SetDefault("sniffer.capture.queue_capacity", capture.DefaultQueueCapacity)
	v.SetDefault("sniffer.capture.stop_timeout", "2s")

	// Metrics defaults
	v.SetDefault("sniffer.metrics.enabled", false)
	v.SetDefault("sniffer.metrics.listen", ":9091")
	v.SetDefault("sniffer.metrics.path", "/metrics")

	// Output defaults
	v.SetDefault("sniffer.output.format", "text")
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	cfg.Log.ApplyDefaults()
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("%w: invalid log level: %s", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != log.FormatPattern && cfg.Log.Format != log.FormatJSON {
		return fmt.Errorf("%w: invalid log format: %s (must be pattern/json)", core.ErrConfigInvalid, cfg.Log.Format)
	}

	// ── Capture validation ──
	if cfg.Capture.SnapLen == 0 {
		cfg.Capture.SnapLen = capture.DefaultSnapLen
	}
	if cfg.Capture.SnapLen < minSnapLen || cfg.Capture.SnapLen > maxSnapLen {
		return fmt.Errorf("%w: capture.snap_len must be within [%d, %d], got %d",
			core.ErrConfigInvalid, minSnapLen, maxSnapLen, cfg.Capture.SnapLen)
	}
	if cfg.Capture.QueueCapacity == 0 {
		cfg.Capture.QueueCapacity = capture.DefaultQueueCapacity
	}
	if cfg.Capture.QueueCapacity < 0 {
		return fmt.Errorf("%w: capture.queue_capacity must be positive, got %d", core.ErrConfigInvalid, cfg.Capture.QueueCapacity)
	}
	if cfg.Capture.StopTimeout <= 0 {
		cfg.Capture.StopTimeout = 2 * time.Second
	}

	// ── Metrics validation ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics.enabled=true", core.ErrConfigInvalid)
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// ── Output validation ──
	switch cfg.Output.Format {
	case "":
		cfg.Output.Format = "text"
	case "text", "json", "hex":
	default:
		return fmt.Errorf("%w: invalid output format: %s (must be text/json/hex)", core.ErrConfigInvalid, cfg.Output.Format)
	}

	return nil
}

// CoordinatorOptions converts the capture section into coordinator options.
func (c CaptureConfig) CoordinatorOptions() capture.Options {
	return capture.Options{
		Socket: capture.SocketOptions{
			SnapLen:         c.SnapLen,
			Promiscuous:     c.Promiscuous,
			FilterByAddress: c.FilterByAddress,
		},
		IncludeLoopback: c.IncludeLoopback,
		IncludeIPv6:     c.IncludeIPv6,
		QueueCapacity:   c.QueueCapacity,
	}
}

// YAML renders cfg under the `sniffer:` root key.
func (cfg *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(map[string]*Config{"sniffer": cfg})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}
