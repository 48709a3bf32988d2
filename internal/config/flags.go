package config

import "flag"

// flagToSource maps flag names to source field names.
var flagToSource = map[string]string{
	"file":           "task_file",
	"load-policy":    "load_policy",
	"log-dir":        "log_dir",
	"journal":        "journal",
	"log-level":      "log_level",
	"log-format":     "log_format",
	"log-timestamps": "log_timestamps",
}

// parseFlags defines and parses CLI flags.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) error {
	if fs == nil {
		fs = flag.NewFlagSet("taskmgr", flag.ContinueOnError)
	}

	// Paths
	fs.StringVar(&cfg.TaskFile, "file", cfg.TaskFile, "Path to the task file")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Journal directory")

	// Loading
	fs.StringVar(&cfg.LoadPolicy, "load-policy", cfg.LoadPolicy, "Malformed line handling (abort|skip)")

	// Logging
	fs.BoolVar(&cfg.Journal, "journal", cfg.Journal, "Record store changes in the run journal")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, logfmt)")
	fs.BoolVar(&cfg.LogTimestamps, "log-timestamps", cfg.LogTimestamps, "Show timestamps in logs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if field, ok := flagToSource[f.Name]; ok {
			cfg.Sources[field] = SourceFlag
		}
	})

	return nil
}
