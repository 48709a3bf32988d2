package config

import (
	"os"
	"strings"
)

// loadFromEnv overrides config from environment variables.
func loadFromEnv(cfg *Config) {
	setString := func(field, key string, target *string) {
		if v := os.Getenv(key); v != "" {
			*target = v
			cfg.Sources[field] = SourceEnv
		}
	}
	setBool := func(field, key string, target *bool) {
		if v := os.Getenv(key); v != "" {
			*target = boolFromString(v)
			cfg.Sources[field] = SourceEnv
		}
	}

	setString("task_file", "TASKMGR_FILE", &cfg.TaskFile)
	setString("load_policy", "TASKMGR_LOAD_POLICY", &cfg.LoadPolicy)
	setString("log_dir", "TASKMGR_LOG_DIR", &cfg.LogDir)
	setBool("journal", "TASKMGR_JOURNAL", &cfg.Journal)
	setString("log_level", "TASKMGR_LOG_LEVEL", &cfg.LogLevel)
	setString("log_format", "TASKMGR_LOG_FORMAT", &cfg.LogFormat)
	setBool("log_timestamps", "TASKMGR_LOG_TIMESTAMPS", &cfg.LogTimestamps)
}

// boolFromString parses a boolean from a string.
func boolFromString(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}
