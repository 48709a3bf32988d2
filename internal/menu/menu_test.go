package menu

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nibzard/taskmgr-go/internal/store"
	"github.com/nibzard/taskmgr-go/internal/task"
)

func newStore(t *testing.T, content string) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.txt")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	s, result := store.Open(path)
	if !result.OK() {
		t.Fatalf("load problems: %v", result.Problems())
	}
	return s, path
}

func run(t *testing.T, s *store.Store, input string) string {
	t.Helper()
	var out bytes.Buffer
	m := New(s, strings.NewReader(input), &out, nil)
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return out.String()
}

func TestRunExit(t *testing.T) {
	s, _ := newStore(t, "")
	out := run(t, s, "5\n")

	for _, want := range []string{"--- Task Manager ---", "1. Add task", "5. Exit", MsgExit} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunAdd(t *testing.T) {
	s, path := newStore(t, "")
	out := run(t, s, "1\nDeploy\nShip the release\nHigh\n5\n")

	if !strings.Contains(out, MsgAdded) {
		t.Errorf("output missing %q:\n%s", MsgAdded, out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Deploy|Ship the release|high\n" {
		t.Errorf("file: got %q", data)
	}
}

func TestRunAddValidationErrorKeepsLooping(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		notWant string
	}{
		{"empty name", "1\n\ndesc\nhigh\n5\n", "name: must not be empty", ""},
		{"empty description", "1\nname\n\nhigh\n5\n", "description: must not be empty", ""},
		{"bad priority", "1\nname\ndesc\nurgent\n5\n", "invalid priority", ""},
		{"empty name and bad priority", "1\n\ndesc\nurgent\n5\n", "name: must not be empty", "invalid priority"},
		{"bad description and bad priority", "1\nname\na|b\nurgent\n5\n", "description: must not contain", "invalid priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newStore(t, "")
			out := run(t, s, tt.input)
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
			if !strings.Contains(out, MsgExit) {
				t.Error("menu should continue after a validation error")
			}
			if tt.notWant != "" && strings.Contains(out, tt.notWant) {
				t.Errorf("output should not contain %q:\n%s", tt.notWant, out)
			}
			if s.Len() != 0 {
				t.Errorf("Len: got %d, want 0", s.Len())
			}
		})
	}
}

func TestRunDelete(t *testing.T) {
	s, _ := newStore(t, "A|a|high\nB|b|low\nA|c|low\n")
	out := run(t, s, "2\nA\n2\nmissing\n5\n")

	if strings.Count(out, MsgDeleted) != 2 {
		t.Errorf("expected success reported twice:\n%s", out)
	}
	list := s.List()
	if len(list) != 1 || list[0].Name() != "B" {
		t.Errorf("remaining: %+v", list)
	}
}

func TestRunShow(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		s, _ := newStore(t, "")
		out := run(t, s, "3\n5\n")
		if !strings.Contains(out, MsgNoTasks) {
			t.Errorf("output missing %q:\n%s", MsgNoTasks, out)
		}
	})

	t.Run("lists tasks in insertion order", func(t *testing.T) {
		s, _ := newStore(t, "Z|last added first|low\nA|second|high\n")
		out := run(t, s, "3\n5\n")
		z := strings.Index(out, "Task: Z")
		a := strings.Index(out, "Task: A")
		if z < 0 || a < 0 || z > a {
			t.Errorf("expected Z before A:\n%s", out)
		}
	})
}

func TestRunProcess(t *testing.T) {
	s, path := newStore(t, "A|a|high\nB|b|low\nC|c|high\nD|d|medium\n")
	out := run(t, s, "4\n3\n5\n")

	var order []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Processing Task: ") {
			fields := strings.Fields(strings.TrimPrefix(line, "Processing Task: "))
			order = append(order, fields[0])
		}
	}
	if got := strings.Join(order, ","); got != "A,C,D,B" {
		t.Errorf("process order: got %s, want A,C,D,B", got)
	}
	if !strings.Contains(out, MsgNoTasks) {
		t.Error("store should be empty after processing")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("file after process: got %q, want empty", data)
	}
}

func TestRunInvalidOption(t *testing.T) {
	s, _ := newStore(t, "")
	out := run(t, s, "9\nabc\n\n5\n")

	if got := strings.Count(out, MsgInvalidOption); got != 3 {
		t.Errorf("invalid option count: got %d, want 3\n%s", got, out)
	}
}

func TestRunEndOfInput(t *testing.T) {
	t.Run("no exit choice", func(t *testing.T) {
		s, _ := newStore(t, "")
		run(t, s, "3\n")
	})

	t.Run("input ends mid add", func(t *testing.T) {
		s, _ := newStore(t, "")
		run(t, s, "1\nname\n")
		if s.Len() != 0 {
			t.Errorf("Len: got %d, want 0", s.Len())
		}
	})

	t.Run("final line without newline", func(t *testing.T) {
		s, _ := newStore(t, "")
		run(t, s, "1\nname\ndesc\nlow")
		if s.Len() != 1 {
			t.Errorf("Len: got %d, want 1", s.Len())
		}
	})
}

func TestRunCRLFInput(t *testing.T) {
	s, _ := newStore(t, "")
	run(t, s, "1\r\nname\r\ndesc\r\nmedium\r\n5\r\n")

	list := s.List()
	if len(list) != 1 || list[0].Name() != "name" || list[0].Priority() != task.PriorityMedium {
		t.Errorf("tasks: %+v", list)
	}
}

func TestRunWriteErrorIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "tasks.txt")
	s, _ := store.Open(path)

	var out bytes.Buffer
	m := New(s, strings.NewReader("1\nname\ndesc\nhigh\n5\n"), &out, nil)
	if err := m.Run(context.Background()); err == nil {
		t.Fatal("expected write error")
	}
}

func TestRunCanceled(t *testing.T) {
	s, _ := newStore(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := New(s, strings.NewReader("5\n"), &out, nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run: got %v, want context.Canceled", err)
	}
}

func TestRunCanceledWhileWaitingForInput(t *testing.T) {
	s, _ := newStore(t, "")
	ctx, cancel := context.WithCancel(context.Background())

	in, w := io.Pipe()
	defer w.Close()

	var out bytes.Buffer
	errCh := make(chan error, 1)
	go func() {
		errCh <- New(s, in, &out, nil).Run(ctx)
	}()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run: got %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestShowTasks(t *testing.T) {
	var buf bytes.Buffer
	ShowTasks(&buf, nil)
	if strings.TrimSpace(buf.String()) != MsgNoTasks {
		t.Errorf("empty: got %q", buf.String())
	}

	buf.Reset()
	a, _ := task.New("A", "first", task.PriorityLow)
	ShowTasks(&buf, []task.Task{a})
	if !strings.Contains(buf.String(), "Task: A || Priority: low") {
		t.Errorf("rendering: got %q", buf.String())
	}
}
