// Package cmd provides tests for CLI command handlers.
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nibzard/taskmgr-go/internal/snapshot"
)

// setupCLI isolates the CLI from the user's config, points it at a fresh
// task file and captures its output streams.
func setupCLI(t *testing.T, input string) (taskFile string, out *bytes.Buffer) {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	wd := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(wd); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })

	taskFile = filepath.Join(wd, "tasks.txt")
	t.Setenv("TASKMGR_FILE", taskFile)
	t.Setenv("TASKMGR_LOG_DIR", filepath.Join(home, "journal"))
	t.Setenv("TASKMGR_JOURNAL", "true")
	t.Setenv("TASKMGR_LOAD_POLICY", "")
	t.Setenv("TASKMGR_LOG_LEVEL", "error")
	t.Setenv("TASKMGR_LOG_FORMAT", "")
	t.Setenv("TASKMGR_LOG_TIMESTAMPS", "")

	origIn, origOut, origErr := stdin, stdout, stderr
	out = &bytes.Buffer{}
	stdin = strings.NewReader(input)
	stdout = out
	stderr = &bytes.Buffer{}
	t.Cleanup(func() {
		stdin, stdout, stderr = origIn, origOut, origErr
	})
	return taskFile, out
}

func run(t *testing.T, args ...string) {
	t.Helper()
	if err := Run(context.Background(), args); err != nil {
		t.Fatalf("Run(%v) failed: %v", args, err)
	}
}

func readTaskFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// TestRun tests the main Run function.
func TestRun(t *testing.T) {
	t.Run("shows help with --help flag", func(t *testing.T) {
		_, out := setupCLI(t, "")
		run(t, "--help")
		if !strings.Contains(out.String(), "Usage:") {
			t.Errorf("expected usage, got %q", out.String())
		}
	})

	t.Run("shows help with help command", func(t *testing.T) {
		_, out := setupCLI(t, "")
		run(t, "help")
		if !strings.Contains(out.String(), "Commands:") {
			t.Errorf("expected usage, got %q", out.String())
		}
	})

	t.Run("shows version with -v flag", func(t *testing.T) {
		_, out := setupCLI(t, "")
		run(t, "-v")
		if !strings.Contains(out.String(), "taskmgr version "+Version) {
			t.Errorf("expected version, got %q", out.String())
		}
	})

	t.Run("unknown command returns error", func(t *testing.T) {
		setupCLI(t, "")
		err := Run(context.Background(), []string{"unknown-command"})
		if err == nil || !strings.Contains(err.Error(), "unknown command") {
			t.Errorf("expected 'unknown command' error, got %v", err)
		}
	})

	t.Run("invalid load policy returns error", func(t *testing.T) {
		setupCLI(t, "")
		err := Run(context.Background(), []string{"-load-policy", "ignore", "ls"})
		if err == nil || !strings.Contains(err.Error(), "invalid load policy") {
			t.Errorf("expected load policy error, got %v", err)
		}
	})
}

func TestMenuIsDefaultCommand(t *testing.T) {
	taskFile, out := setupCLI(t, "1\nDeploy\nShip it\nhigh\n3\n5\n")
	run(t)

	if !strings.Contains(out.String(), "Task: Deploy || Priority: high") {
		t.Errorf("expected task listing, got:\n%s", out.String())
	}
	if got := readTaskFile(t, taskFile); got != "Deploy|Ship it|high\n" {
		t.Errorf("task file: got %q", got)
	}
}

func TestFileFlagOverridesEnv(t *testing.T) {
	taskFile, _ := setupCLI(t, "")
	other := filepath.Join(t.TempDir(), "other.txt")

	run(t, "-file", other, "add", "A", "a", "low")

	if got := readTaskFile(t, other); got != "A|a|low\n" {
		t.Errorf("flag file: got %q", got)
	}
	if _, err := os.Stat(taskFile); !os.IsNotExist(err) {
		t.Errorf("env task file should be untouched, stat err = %v", err)
	}
}

func TestAddListRemoveProcess(t *testing.T) {
	taskFile, out := setupCLI(t, "")

	run(t, "add", "A", "first", "low")
	run(t, "add", "B", "second", "HIGH")
	run(t, "add", "C", "third", "media")
	if got := readTaskFile(t, taskFile); got != "A|first|low\nB|second|high\nC|third|medium\n" {
		t.Fatalf("task file: got %q", got)
	}

	out.Reset()
	run(t, "ls", "-priority", "high")
	if !strings.Contains(out.String(), "Task: B") || strings.Contains(out.String(), "Task: A") {
		t.Errorf("ls -priority high: got %q", out.String())
	}

	out.Reset()
	run(t, "rm", "A")
	if !strings.Contains(out.String(), "Removed 1 task(s)") {
		t.Errorf("rm: got %q", out.String())
	}

	out.Reset()
	run(t, "process")
	processed := strings.Index(out.String(), "Processing Task: B")
	medium := strings.Index(out.String(), "Processing Task: C")
	if processed < 0 || medium < 0 || processed > medium {
		t.Errorf("process order: got %q", out.String())
	}
	if got := readTaskFile(t, taskFile); got != "" {
		t.Errorf("task file after process: got %q", got)
	}

	out.Reset()
	run(t, "ls")
	if strings.TrimSpace(out.String()) != "No pending tasks." {
		t.Errorf("ls after process: got %q", out.String())
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing args", []string{"add", "A"}, "usage"},
		{"bad priority", []string{"add", "A", "a", "urgent"}, "invalid priority"},
		{"delimiter in name", []string{"add", "A|B", "a", "low"}, "name:"},
		{"empty description", []string{"add", "A", "", "low"}, "description: must not be empty"},
		{"empty name before bad priority", []string{"add", "", "a", "urgent"}, "name: must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taskFile, _ := setupCLI(t, "")
			err := Run(context.Background(), tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error: got %v, want it to contain %q", err, tt.want)
			}
			if _, err := os.Stat(taskFile); !os.IsNotExist(err) {
				t.Errorf("task file should not be written, stat err = %v", err)
			}
		})
	}
}

func TestExportImport(t *testing.T) {
	taskFile, out := setupCLI(t, "")
	run(t, "add", "A", "first", "low")
	run(t, "add", "B", "second", "high")

	exported := filepath.Join(t.TempDir(), "tasks.json")
	run(t, "export", "-o", exported)

	snap, err := snapshot.Load(exported)
	if err != nil {
		t.Fatalf("exported snapshot invalid: %v", err)
	}
	if len(snap.Entries) != 2 || snap.Source != taskFile {
		t.Errorf("snapshot: %+v", snap)
	}

	out.Reset()
	run(t, "import", exported)
	if !strings.Contains(out.String(), "Imported 2 task(s).") {
		t.Errorf("import: got %q", out.String())
	}
	if got := readTaskFile(t, taskFile); got != "A|first|low\nB|second|high\nA|first|low\nB|second|high\n" {
		t.Errorf("after append import: got %q", got)
	}

	run(t, "import", "-replace", exported)
	if got := readTaskFile(t, taskFile); got != "A|first|low\nB|second|high\n" {
		t.Errorf("after replace import: got %q", got)
	}
}

func TestExportToStdout(t *testing.T) {
	_, out := setupCLI(t, "")
	run(t, "add", "A", "first", "low")

	out.Reset()
	run(t, "export")
	if _, err := snapshot.Read(strings.NewReader(out.String())); err != nil {
		t.Errorf("stdout export invalid: %v\n%s", err, out.String())
	}
}

func TestImportRejectsInvalidSnapshot(t *testing.T) {
	taskFile, _ := setupCLI(t, "")
	bad := filepath.Join(t.TempDir(), "bad.json")
	content := `{"schema_version": 1, "tasks": [{"name": "A|B", "description": "x", "priority": "high"}]}`
	if err := os.WriteFile(bad, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Run(context.Background(), []string{"import", bad}); err == nil {
		t.Fatal("expected schema error")
	}
	if _, err := os.Stat(taskFile); !os.IsNotExist(err) {
		t.Errorf("task file should not be written, stat err = %v", err)
	}
}

func TestDoctor(t *testing.T) {
	t.Run("clean file passes", func(t *testing.T) {
		taskFile, out := setupCLI(t, "")
		if err := os.WriteFile(taskFile, []byte("A|a|high\n"), 0644); err != nil {
			t.Fatal(err)
		}
		run(t, "doctor")
		if !strings.Contains(out.String(), "OK (1 tasks)") {
			t.Errorf("doctor: got %q", out.String())
		}
	})

	t.Run("reports every bad line", func(t *testing.T) {
		taskFile, out := setupCLI(t, "")
		content := "A|a|high\nbroken\nB|b|urgent\nC|c|low\n"
		if err := os.WriteFile(taskFile, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		if err := Run(context.Background(), []string{"doctor"}); err == nil {
			t.Fatal("expected doctor to fail")
		}
		for _, want := range []string{"2 valid tasks, 2 problem(s)", "line 2", "line 3"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("doctor output missing %q:\n%s", want, out.String())
			}
		}
	})

	t.Run("validates snapshot arguments", func(t *testing.T) {
		_, out := setupCLI(t, "")
		bad := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(bad, []byte(`{"schema_version": 2, "tasks": []}`), 0644); err != nil {
			t.Fatal(err)
		}
		if err := Run(context.Background(), []string{"doctor", bad}); err == nil {
			t.Fatal("expected doctor to fail")
		}
		if !strings.Contains(out.String(), "Snapshot: "+bad) {
			t.Errorf("doctor output: %s", out.String())
		}
	})
}

func TestTail(t *testing.T) {
	t.Run("no journal yet", func(t *testing.T) {
		_, out := setupCLI(t, "")
		run(t, "tail")
		if !strings.Contains(out.String(), "No journal files found.") {
			t.Errorf("tail: got %q", out.String())
		}
	})

	t.Run("shows recorded changes", func(t *testing.T) {
		_, out := setupCLI(t, "")
		run(t, "add", "A", "first", "low")
		run(t, "rm", "A")

		out.Reset()
		run(t, "tail", "-n", "1")
		if !strings.Contains(out.String(), `"op":"remove"`) {
			t.Errorf("tail: got %q", out.String())
		}
		if strings.Contains(out.String(), `"op":"add"`) {
			t.Errorf("tail -n 1 should only show the last entry: %q", out.String())
		}
	})

	t.Run("journal disabled", func(t *testing.T) {
		_, out := setupCLI(t, "")
		t.Setenv("TASKMGR_JOURNAL", "false")
		run(t, "add", "A", "first", "low")

		out.Reset()
		run(t, "tail")
		if !strings.Contains(out.String(), "No journal files found.") {
			t.Errorf("tail: got %q", out.String())
		}
	})
}
