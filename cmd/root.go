// Package cmd implements the CLI command structure for taskmgr.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/taskmgr-go/internal/config"
	"github.com/nibzard/taskmgr-go/internal/logging"
	"github.com/nibzard/taskmgr-go/internal/menu"
	"github.com/nibzard/taskmgr-go/internal/snapshot"
	"github.com/nibzard/taskmgr-go/internal/store"
	"github.com/nibzard/taskmgr-go/internal/task"
	"github.com/nibzard/taskmgr-go/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Standard streams, replaced in tests.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Run executes the taskmgr CLI.
func Run(ctx context.Context, args []string) error {
	// Create a flag set for global options
	fs := flag.NewFlagSet("taskmgr", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		printUsage(fs, stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	// Global flags
	cfg, err := config.Load(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	// With no subcommand the interactive menu runs.
	subcommand := "menu"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 && !strings.HasPrefix(remainingArgs[0], "-") {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "menu":
		return withApp(cfg, true, func(a *app) error {
			return menuCommand(ctx, a, remainingArgs)
		})
	case "ls":
		return withApp(cfg, false, func(a *app) error {
			return lsCommand(a, remainingArgs)
		})
	case "add":
		return withApp(cfg, true, func(a *app) error {
			return addCommand(a, remainingArgs)
		})
	case "rm":
		return withApp(cfg, true, func(a *app) error {
			return rmCommand(a, remainingArgs)
		})
	case "process":
		return withApp(cfg, true, func(a *app) error {
			return processCommand(a, remainingArgs)
		})
	case "export":
		return withApp(cfg, false, func(a *app) error {
			return exportCommand(a, remainingArgs)
		})
	case "import":
		return withApp(cfg, true, func(a *app) error {
			return importCommand(a, remainingArgs)
		})
	case "tui":
		return withApp(cfg, true, func(a *app) error {
			return tuiCommand(ctx, a, remainingArgs)
		})
	case "doctor":
		return doctorCommand(cfg, remainingArgs)
	case "tail":
		return tailCommand(ctx, cfg, remainingArgs)
	case "version", "--version", "-v":
		return versionCommand()
	case "help", "--help", "-h":
		printUsage(fs, stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// app bundles what a store-backed command needs.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	store   *store.Store
	journal *logging.RunLogger
}

// withApp opens the task store described by cfg, runs fn and releases the
// journal. Commands that change the store pass journal=true.
func withApp(cfg *config.Config, journal bool, fn func(*app) error) error {
	logger := logging.NewConsoleFromConfig(stderr, cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps)

	policy, err := store.ParseLoadPolicy(cfg.LoadPolicy)
	if err != nil {
		return err
	}

	a := &app{cfg: cfg, logger: logger}
	opts := []store.Option{store.WithLogger(logger), store.WithLoadPolicy(policy)}
	if journal && cfg.Journal {
		rl, err := logging.NewRunLogger(cfg.LogDir, cfg.ProjectRoot)
		if err != nil {
			logger.Warn("Journal disabled", "err", err)
		} else {
			a.journal = rl
			opts = append(opts, store.WithRecorder(rl))
			logger.Debug("Journal opened", "path", rl.LogPath)
		}
	}
	defer func() {
		if err := a.journal.Close(); err != nil {
			logger.Warn("Failed to close journal", "err", err)
		}
	}()

	// Load problems are already logged by the store and never fatal; the
	// store keeps whatever loaded before the problem.
	a.store, _ = store.Open(cfg.TaskFile, opts...)
	return fn(a)
}

// menuCommand runs the interactive numbered menu.
func menuCommand(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	return menu.New(a.store, stdin, stdout, a.logger).Run(ctx)
}

// lsCommand prints every task, optionally filtered by priority.
func lsCommand(a *app, args []string) error {
	fs := flag.NewFlagSet("taskmgr ls", flag.ContinueOnError)
	fs.SetOutput(stderr)
	priorityFilter := fs.String("priority", "", "Only show tasks with this priority (high|medium|low)")
	ordered := fs.Bool("ordered", false, "List in processing order (high, medium, low)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	tasks := a.store.List()
	if *ordered {
		tasks = a.store.Ordered()
	}
	if *priorityFilter != "" {
		p, err := task.ParsePriority(*priorityFilter)
		if err != nil {
			return err
		}
		var filtered []task.Task
		for _, t := range tasks {
			if t.Priority() == p {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	menu.ShowTasks(stdout, tasks)
	return nil
}

// addCommand adds one task without the menu.
func addCommand(a *app, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: taskmgr add NAME DESCRIPTION PRIORITY")
	}
	if _, err := a.store.AddText(args[0], args[1], args[2]); err != nil {
		return err
	}
	fmt.Fprintln(stdout, menu.MsgAdded)
	return nil
}

// rmCommand removes every task with the given name.
func rmCommand(a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: taskmgr rm NAME")
	}
	removed, err := a.store.Remove(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Removed %d task(s) named %q.\n", removed, args[0])
	return nil
}

// processCommand processes and clears every task.
func processCommand(a *app, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	return menu.ProcessAll(stdout, a.store)
}

// exportCommand writes the task list as a JSON snapshot.
func exportCommand(a *app, args []string) error {
	fs := flag.NewFlagSet("taskmgr export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("o", "", "Output file (default stdout)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	snap := snapshot.FromTasks(a.store.List())
	snap.Source = a.store.Path()
	if *output == "" || *output == "-" {
		return snap.Write(stdout)
	}
	if err := snap.Save(*output); err != nil {
		return err
	}
	a.logger.Info("Exported tasks", "path", *output, "count", len(snap.Entries))
	return nil
}

// importCommand reads a JSON snapshot into the store.
func importCommand(a *app, args []string) error {
	fs := flag.NewFlagSet("taskmgr import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	replace := fs.Bool("replace", false, "Replace the current tasks instead of appending")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: taskmgr import [-replace] FILE")
	}

	var snap *snapshot.Snapshot
	var err error
	if path := fs.Arg(0); path == "-" {
		snap, err = snapshot.Read(stdin)
	} else {
		snap, err = snapshot.Load(path)
	}
	if err != nil {
		return err
	}

	tasks, err := snap.Tasks()
	if err != nil {
		return err
	}
	if err := a.store.Import(tasks, *replace); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Imported %d task(s).\n", len(tasks))
	return nil
}

// tuiCommand launches the terminal viewer.
func tuiCommand(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	return ui.RunTUI(ctx, a.store)
}

// doctorCommand checks the configuration, every line of the task file and
// any snapshot files given as arguments.
func doctorCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("taskmgr doctor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintln(stdout, "Task Manager Doctor")
	fmt.Fprintln(stdout, "===================")
	fmt.Fprintln(stdout)

	allOK := true

	// Configuration
	if len(cfg.ConfigFiles) == 0 {
		fmt.Fprintln(stdout, "Config files: none (using defaults)")
	} else {
		fmt.Fprintf(stdout, "Config files: %s\n", strings.Join(cfg.ConfigFiles, ", "))
	}
	if _, err := store.ParseLoadPolicy(cfg.LoadPolicy); err != nil {
		fmt.Fprintf(stdout, "  ❌ %v\n", err)
		allOK = false
	}
	if *verbose {
		fmt.Fprintf(stdout, "  task_file   = %s (%s)\n", cfg.TaskFile, cfg.Describe("task_file"))
		fmt.Fprintf(stdout, "  load_policy = %s (%s)\n", cfg.LoadPolicy, cfg.Describe("load_policy"))
		fmt.Fprintf(stdout, "  log_dir     = %s (%s)\n", cfg.LogDir, cfg.Describe("log_dir"))
		fmt.Fprintf(stdout, "  journal     = %t (%s)\n", cfg.Journal, cfg.Describe("journal"))
	}
	fmt.Fprintln(stdout)

	// Task file, read in full so every bad line is reported
	fmt.Fprintf(stdout, "Task file: %s\n", cfg.TaskFile)
	_, result := store.Open(cfg.TaskFile, store.WithLoadPolicy(store.PolicySkip))
	switch {
	case result.Missing:
		fmt.Fprintln(stdout, "  ⚠️  Not found (will be created on first change)")
	case result.OK():
		fmt.Fprintf(stdout, "  ✅ OK (%d tasks)\n", result.Loaded)
	default:
		allOK = false
		fmt.Fprintf(stdout, "  ❌ %d valid tasks, %d problem(s):\n", result.Loaded, len(result.Problems()))
		for _, problem := range result.Problems() {
			fmt.Fprintf(stdout, "     - %v\n", problem)
		}
	}

	// Snapshots
	for _, path := range fs.Args() {
		fmt.Fprintln(stdout)
		fmt.Fprintf(stdout, "Snapshot: %s\n", path)
		snap, err := snapshot.Load(path)
		if err == nil {
			_, err = snap.Tasks()
		}
		if err != nil {
			allOK = false
			var schemaErr *snapshot.SchemaError
			if errors.As(err, &schemaErr) {
				for _, e := range schemaErr.Errors {
					fmt.Fprintf(stdout, "  ❌ %v\n", e)
				}
			} else {
				fmt.Fprintf(stdout, "  ❌ %v\n", err)
			}
			continue
		}
		fmt.Fprintf(stdout, "  ✅ OK (%d tasks)\n", len(snap.Entries))
	}

	fmt.Fprintln(stdout)
	if allOK {
		fmt.Fprintln(stdout, "✅ All checks passed!")
		return nil
	}
	fmt.Fprintln(stdout, "⚠️  Some checks failed.")
	return fmt.Errorf("doctor checks failed")
}

// tailCommand prints the latest journal file.
func tailCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("taskmgr tail", flag.ContinueOnError)
	fs.SetOutput(stderr)
	follow := fs.Bool("f", false, "Follow the journal (like tail -f)")
	fs.BoolVar(follow, "follow", false, "Follow the journal (like tail -f)")
	n := fs.Int("n", 0, "Number of lines to show (0 = all)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	logDir, err := logging.FindLogDir(cfg.LogDir, cfg.ProjectRoot)
	if err != nil {
		return fmt.Errorf("finding log directory: %w", err)
	}

	logPath, err := logging.FindLatestLog(logDir)
	if err != nil {
		return fmt.Errorf("finding latest journal: %w", err)
	}
	if logPath == "" {
		fmt.Fprintln(stdout, "No journal files found.")
		return nil
	}

	fmt.Fprintf(stdout, "Tailing: %s\n", logPath)
	if *follow {
		fmt.Fprintln(stdout, "(Ctrl+C to stop)")
	}
	fmt.Fprintln(stdout)

	return logging.TailLog(ctx, stdout, logPath, *n, *follow)
}

// versionCommand prints version information.
func versionCommand() error {
	fmt.Fprintf(stdout, "taskmgr version %s\n", Version)
	return nil
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Task Manager - a single-user task list")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  taskmgr [options] [command] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  menu                      Interactive menu (default command)")
	fmt.Fprintln(w, "  ls [-priority P]          List tasks")
	fmt.Fprintln(w, "  add NAME DESC PRIORITY    Add a task")
	fmt.Fprintln(w, "  rm NAME                   Delete every task with this name")
	fmt.Fprintln(w, "  process                   Process all tasks, high priority first")
	fmt.Fprintln(w, "  export [-o FILE]          Write tasks as a JSON snapshot")
	fmt.Fprintln(w, "  import [-replace] FILE    Read tasks from a JSON snapshot")
	fmt.Fprintln(w, "  tui                       Launch terminal UI")
	fmt.Fprintln(w, "  doctor [SNAPSHOT...]      Check config, task file and snapshots")
	fmt.Fprintln(w, "  tail [-n N] [-f]          Show the latest journal")
	fmt.Fprintln(w, "  version                   Show version information")
	fmt.Fprintln(w, "  help                      Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  TASKMGR_FILE, TASKMGR_LOAD_POLICY, TASKMGR_LOG_DIR, TASKMGR_JOURNAL,")
	fmt.Fprintln(w, "  TASKMGR_LOG_LEVEL, TASKMGR_LOG_FORMAT, TASKMGR_LOG_TIMESTAMPS")
}
