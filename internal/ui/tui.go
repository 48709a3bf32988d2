// Package ui provides an optional terminal interface.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nibzard/taskmgr-go/internal/store"
	"github.com/nibzard/taskmgr-go/internal/task"
)

const (
	// maxProcessed bounds the processed-task history shown in the viewer.
	maxProcessed = 10
	// maxDescription is the widest description shown in a row, in runes.
	maxDescription = 60
)

// TUIOption configures the TUI behavior.
type TUIOption func(*tuiConfig)

type tuiConfig struct {
	input  io.Reader
	output io.Writer
}

// WithIO sets the terminal streams. It is mainly useful for tests.
func WithIO(in io.Reader, out io.Writer) TUIOption {
	return func(c *tuiConfig) {
		c.input = in
		c.output = out
	}
}

// RunTUI starts the full-screen viewer over s.
func RunTUI(ctx context.Context, s *store.Store, opts ...TUIOption) error {
	c := &tuiConfig{}
	for _, opt := range opts {
		opt(c)
	}

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if c.input != nil || c.output != nil {
		programOpts = append(programOpts, tea.WithInput(c.input), tea.WithOutput(c.output))
	} else {
		if !IsTTY(os.Stdout) {
			return fmt.Errorf("tui requires a TTY")
		}
		programOpts = append(programOpts, tea.WithAltScreen())
	}

	program := tea.NewProgram(newModel(s), programOpts...)
	finalModel, err := program.Run()
	if err != nil {
		return err
	}
	if m, ok := finalModel.(*model); ok && m.err != nil {
		return m.err
	}
	return nil
}

type model struct {
	store     *store.Store
	tasks     []task.Task
	cursor    int
	status    string
	processed []task.Task
	showHelp  bool
	err       error // fatal store error; ends the program
}

func newModel(s *store.Store) *model {
	m := &model{store: s}
	m.sync()
	return m
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
	case "h", "?":
		m.showHelp = !m.showHelp
	case "r", "f5":
		result := m.store.Reload()
		m.sync()
		m.status = describeLoad(result)
	case "d", "delete":
		if len(m.tasks) == 0 {
			m.status = "Nothing to delete."
			return m, nil
		}
		name := m.tasks[m.cursor].Name()
		removed, err := m.store.Remove(name)
		if err != nil {
			m.err = err
			return m, tea.Quit
		}
		m.sync()
		m.status = fmt.Sprintf("Deleted %d task(s) named %q.", removed, name)
	case "p":
		var processed []task.Task
		err := m.store.ProcessAll(func(t task.Task) {
			processed = append(processed, t)
		})
		if err != nil {
			m.err = err
			return m, tea.Quit
		}
		m.sync()
		m.processed = append(processed, m.processed...)
		if len(m.processed) > maxProcessed {
			m.processed = m.processed[:maxProcessed]
		}
		m.status = fmt.Sprintf("Processed %d task(s).", len(processed))
	}
	return m, nil
}

// sync refreshes the cached task list and clamps the cursor.
func (m *model) sync() {
	m.tasks = m.store.List()
	if m.cursor >= len(m.tasks) {
		m.cursor = len(m.tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *model) View() string {
	var b strings.Builder
	writeTitle(&b)

	if m.showHelp {
		writeHelp(&b)
		writeFooter(&b)
		return b.String()
	}

	writeOverview(&b, m.tasks)
	writeTasks(&b, m.tasks, m.cursor)
	writeProcessed(&b, m.processed)
	if m.status != "" {
		b.WriteString(m.status + "\n\n")
	}
	b.WriteString(fmt.Sprintf("Task File: %s\n\n", m.store.Path()))
	writeFooter(&b)
	return b.String()
}

func describeLoad(result *store.LoadResult) string {
	switch {
	case result.Err != nil:
		return fmt.Sprintf("Reloaded %d task(s), stopped early: %v", result.Loaded, result.Err)
	case len(result.Skipped) > 0:
		return fmt.Sprintf("Reloaded %d task(s), skipped %d bad line(s).", result.Loaded, len(result.Skipped))
	case result.Missing:
		return "Task file does not exist yet."
	default:
		return fmt.Sprintf("Reloaded %d task(s).", result.Loaded)
	}
}

func writeTitle(b *strings.Builder) {
	title := "Task Manager"
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")
}

func writeOverview(b *strings.Builder, tasks []task.Task) {
	counts := make(map[task.Priority]int)
	for _, t := range tasks {
		counts[t.Priority()]++
	}
	b.WriteString(fmt.Sprintf("  High: %d  Medium: %d  Low: %d\n\n",
		counts[task.PriorityHigh],
		counts[task.PriorityMedium],
		counts[task.PriorityLow],
	))
}

func writeTasks(b *strings.Builder, tasks []task.Task, cursor int) {
	b.WriteString("Pending Tasks\n\n")
	if len(tasks) == 0 {
		b.WriteString("  No pending tasks.\n\n")
		return
	}
	for i, t := range tasks {
		marker := " "
		if i == cursor {
			marker = ">"
		}
		b.WriteString(formatTask(marker, t) + "\n")
	}
	b.WriteString("\n")
}

func writeProcessed(b *strings.Builder, processed []task.Task) {
	if len(processed) == 0 {
		return
	}
	b.WriteString("Recently Processed\n\n")
	for _, t := range processed {
		b.WriteString(formatTask("x", t) + "\n")
	}
	b.WriteString("\n")
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  q, ctrl+c    Quit\n")
	b.WriteString("  up/k, down/j Move selection\n")
	b.WriteString("  d            Delete every task named like the selection\n")
	b.WriteString("  p            Process all tasks (high, medium, low) and clear the list\n")
	b.WriteString("  r, F5        Reload the task file\n")
	b.WriteString("  h, ?         Toggle this help screen\n\n")
}

func writeFooter(b *strings.Builder) {
	b.WriteString("Press h for help | q to quit\n")
}

func formatTask(marker string, t task.Task) string {
	description := t.Description()
	if runes := []rune(description); len(runes) > maxDescription {
		description = string(runes[:maxDescription-3]) + "..."
	}
	return fmt.Sprintf("  %s [%-6s] %s: %s", marker, t.Priority(), t.Name(), description)
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
