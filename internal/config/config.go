package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/errors"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/paths"
)

// EnvPrefix is prepended to every environment override, e.g.
// I18N_BATCH_SCHEDULER_MAXCONCURRENCY=4.
const EnvPrefix = "I18N_BATCH"

// Config represents the pipeline configuration
type Config struct {
	Scan       ScanConfig       `json:"scan" mapstructure:"scan" yaml:"scan" toml:"scan"`
	Cache      CacheConfig      `json:"cache" mapstructure:"cache" yaml:"cache" toml:"cache"`
	Scheduler  SchedulerConfig  `json:"scheduler" mapstructure:"scheduler" yaml:"scheduler" toml:"scheduler"`
	Monitor    MonitorConfig    `json:"monitor" mapstructure:"monitor" yaml:"monitor" toml:"monitor"`
	Translator TranslatorConfig `json:"translator" mapstructure:"translator" yaml:"translator" toml:"translator"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging" yaml:"logging" toml:"logging"`
}

// ScanConfig controls file discovery
type ScanConfig struct {
	SrcDir       string   `json:"srcDir" mapstructure:"srcDir" yaml:"srcDir" toml:"srcDir"`
	Patterns     []string `json:"patterns" mapstructure:"patterns" yaml:"patterns" toml:"patterns"`
	Ignore       []string `json:"ignore" mapstructure:"ignore" yaml:"ignore" toml:"ignore"`
	PrioritizeBy string   `json:"prioritizeBy" mapstructure:"prioritizeBy" yaml:"prioritizeBy" toml:"prioritizeBy"`
	TextPattern  string   `json:"textPattern" mapstructure:"textPattern" yaml:"textPattern" toml:"textPattern"`
}

// CacheConfig controls the cache directory and response cache limits
type CacheConfig struct {
	Dir                string `json:"dir" mapstructure:"dir" yaml:"dir" toml:"dir"`
	DefaultTtlSeconds  int    `json:"defaultTtlSeconds" mapstructure:"defaultTtlSeconds" yaml:"defaultTtlSeconds" toml:"defaultTtlSeconds"`
	MaxResponseEntries int    `json:"maxResponseEntries" mapstructure:"maxResponseEntries" yaml:"maxResponseEntries" toml:"maxResponseEntries"`
	MaxAgeDays         int    `json:"maxAgeDays" mapstructure:"maxAgeDays" yaml:"maxAgeDays" toml:"maxAgeDays"`
	TrackRevision      bool   `json:"trackRevision" mapstructure:"trackRevision" yaml:"trackRevision" toml:"trackRevision"`
	BatchWrites        bool   `json:"batchWrites" mapstructure:"batchWrites" yaml:"batchWrites" toml:"batchWrites"`
}

// SchedulerConfig controls concurrency and timeouts
type SchedulerConfig struct {
	MaxConcurrency int  `json:"maxConcurrency" mapstructure:"maxConcurrency" yaml:"maxConcurrency" toml:"maxConcurrency"`
	TaskTimeoutMs  int  `json:"taskTimeoutMs" mapstructure:"taskTimeoutMs" yaml:"taskTimeoutMs" toml:"taskTimeoutMs"`
	Isolation      bool `json:"isolation" mapstructure:"isolation" yaml:"isolation" toml:"isolation"`
	RunDeadlineMs  int  `json:"runDeadlineMs" mapstructure:"runDeadlineMs" yaml:"runDeadlineMs" toml:"runDeadlineMs"` // 0 = 2x taskTimeoutMs
}

// MonitorConfig controls progress snapshots and session history
type MonitorConfig struct {
	ProgressIntervalMs int `json:"progressIntervalMs" mapstructure:"progressIntervalMs" yaml:"progressIntervalMs" toml:"progressIntervalMs"`
	HistorySize        int `json:"historySize" mapstructure:"historySize" yaml:"historySize" toml:"historySize"`
}

// TranslatorConfig describes the external translator command
type TranslatorConfig struct {
	Command string            `json:"command" mapstructure:"command" yaml:"command" toml:"command"`
	Args    []string          `json:"args" mapstructure:"args" yaml:"args" toml:"args"`
	Env     map[string]string `json:"env" mapstructure:"env" yaml:"env" toml:"env"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format" yaml:"format" toml:"format"` // "human" or "json"
	Level      string `json:"level" mapstructure:"level" yaml:"level" toml:"level"`     // "debug", "info", "warn", "error"
	File       bool   `json:"file" mapstructure:"file" yaml:"file" toml:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize" yaml:"maxSize" toml:"maxSize"` // e.g. "10MB"
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups" yaml:"maxBackups" toml:"maxBackups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			SrcDir:       "src",
			Patterns:     []string{"**/*.{js,ts,jsx,tsx}"},
			Ignore:       []string{"**/node_modules/**", "**/build/**", "**/dist/**"},
			PrioritizeBy: "count",
			TextPattern:  `[\x{4e00}-\x{9fff}]`,
		},
		Cache: CacheConfig{
			Dir:                paths.DefaultCacheDirName,
			DefaultTtlSeconds:  7 * 24 * 60 * 60,
			MaxResponseEntries: 1000,
			MaxAgeDays:         30,
			TrackRevision:      true,
		},
		Scheduler: SchedulerConfig{
			MaxConcurrency: 3,
			TaskTimeoutMs:  300000,
		},
		Monitor: MonitorConfig{
			ProgressIntervalMs: 10000,
			HistorySize:        5,
		},
		Translator: TranslatorConfig{
			Args: []string{},
			Env:  map[string]string{},
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			File:       true,
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from <root>/.i18n-batch/config.{json,yaml,toml}
// or from explicitPath when given. Environment variables override file values.
// A missing config file is not an error.
func LoadConfig(root, explicitPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(paths.ConfigDir(root))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || explicitPath != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("scan.srcDir", d.Scan.SrcDir)
	v.SetDefault("scan.patterns", d.Scan.Patterns)
	v.SetDefault("scan.ignore", d.Scan.Ignore)
	v.SetDefault("scan.prioritizeBy", d.Scan.PrioritizeBy)
	v.SetDefault("scan.textPattern", d.Scan.TextPattern)

	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.defaultTtlSeconds", d.Cache.DefaultTtlSeconds)
	v.SetDefault("cache.maxResponseEntries", d.Cache.MaxResponseEntries)
	v.SetDefault("cache.maxAgeDays", d.Cache.MaxAgeDays)
	v.SetDefault("cache.trackRevision", d.Cache.TrackRevision)
	v.SetDefault("cache.batchWrites", d.Cache.BatchWrites)

	v.SetDefault("scheduler.maxConcurrency", d.Scheduler.MaxConcurrency)
	v.SetDefault("scheduler.taskTimeoutMs", d.Scheduler.TaskTimeoutMs)
	v.SetDefault("scheduler.isolation", d.Scheduler.Isolation)
	v.SetDefault("scheduler.runDeadlineMs", d.Scheduler.RunDeadlineMs)

	v.SetDefault("monitor.progressIntervalMs", d.Monitor.ProgressIntervalMs)
	v.SetDefault("monitor.historySize", d.Monitor.HistorySize)

	v.SetDefault("translator.command", d.Translator.Command)
	v.SetDefault("translator.args", d.Translator.Args)
	v.SetDefault("translator.env", d.Translator.Env)

	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// Save writes the configuration as JSON to <root>/.i18n-batch/config.json
func (c *Config) Save(root string) error {
	return c.SaveAs(filepath.Join(paths.ConfigDir(root), "config.json"))
}

// SaveAs writes the configuration to path in the format named by its
// extension: .json, .yaml/.yml or .toml.
func (c *Config) SaveAs(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var buf bytes.Buffer
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return err
		}
		buf.Write(data)
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
	case ".toml":
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Validate checks the configuration. The returned error is always coded
// CONFIGURATION_INVALID so callers can treat it as fatal.
func (c *Config) Validate() error {
	if c.Scheduler.MaxConcurrency < 1 {
		return invalid("scheduler.maxConcurrency", "must be at least 1")
	}
	if c.Scheduler.TaskTimeoutMs <= 0 {
		return invalid("scheduler.taskTimeoutMs", "must be positive")
	}
	if c.Scheduler.RunDeadlineMs < 0 {
		return invalid("scheduler.runDeadlineMs", "must not be negative")
	}
	switch c.Scan.PrioritizeBy {
	case "count", "size", "modified":
	default:
		return invalid("scan.prioritizeBy", fmt.Sprintf("unknown sort key %q", c.Scan.PrioritizeBy))
	}
	if len(c.Scan.Patterns) == 0 {
		return invalid("scan.patterns", "at least one pattern is required")
	}
	if _, err := regexp.Compile(c.Scan.TextPattern); err != nil {
		return invalid("scan.textPattern", err.Error())
	}
	if c.Cache.MaxResponseEntries < 1 {
		return invalid("cache.maxResponseEntries", "must be at least 1")
	}
	if c.Cache.DefaultTtlSeconds <= 0 {
		return invalid("cache.defaultTtlSeconds", "must be positive")
	}
	if c.Monitor.HistorySize < 1 {
		return invalid("monitor.historySize", "must be at least 1")
	}
	return nil
}

// TaskTimeout returns the per-task timeout.
func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.Scheduler.TaskTimeoutMs) * time.Millisecond
}

// RunDeadline returns the whole-run deadline used in isolation mode.
func (c *Config) RunDeadline() time.Duration {
	if c.Scheduler.RunDeadlineMs > 0 {
		return time.Duration(c.Scheduler.RunDeadlineMs) * time.Millisecond
	}
	return 2 * c.TaskTimeout()
}

// DefaultTTL returns the response cache default time-to-live.
func (c *Config) DefaultTTL() time.Duration {
	return time.Duration(c.Cache.DefaultTtlSeconds) * time.Second
}

// ProgressInterval returns the snapshot interval of the progress monitor.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Monitor.ProgressIntervalMs) * time.Millisecond
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

func invalid(field, msg string) error {
	return errors.New(errors.ConfigurationInvalid, "invalid configuration", &ConfigError{Field: field, Message: msg})
}
