// Package config handles configuration loading and defaults.
package config

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// Default values.
const (
	DefaultTaskFile   = "tasks.txt"
	DefaultLoadPolicy = "abort"
	DefaultLogDir     = "~/.taskmgr"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultJournal    = true
)

// Config holds the full configuration for taskmgr.
type Config struct {
	// Paths
	TaskFile string `toml:"task_file"`
	LogDir   string `toml:"log_dir"`

	// Loading behavior for malformed task lines (abort or skip)
	LoadPolicy string `toml:"load_policy"`

	// Journal enables the per-run JSONL journal under LogDir
	Journal bool `toml:"journal"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`

	// Project root (computed)
	ProjectRoot string `toml:"-"`

	// ConfigFiles lists the config files that were applied, in order.
	ConfigFiles []string `toml:"-"`

	// Sources records where each field's final value came from, keyed by TOML name.
	Sources map[string]ConfigSource `toml:"-"`
}

// configFields returns the list of configurable field names for source tracking.
func configFields() []string {
	return []string{
		"task_file",
		"log_dir",
		"load_policy",
		"journal",
		"log_level",
		"log_format",
		"log_timestamps",
	}
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	cfg.TaskFile = DefaultTaskFile
	cfg.LogDir = DefaultLogDir
	cfg.LoadPolicy = DefaultLoadPolicy
	cfg.Journal = DefaultJournal
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
	cfg.LogTimestamps = false

	cfg.Sources = make(map[string]ConfigSource)
	for _, field := range configFields() {
		cfg.Sources[field] = SourceDefault
	}
}
