// Package menu runs the interactive numbered-option loop over a task store.
package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/taskmgr-go/internal/logging"
	"github.com/nibzard/taskmgr-go/internal/store"
	"github.com/nibzard/taskmgr-go/internal/task"
)

// Messages printed by the menu.
const (
	MsgNoTasks       = "No pending tasks."
	MsgDeleted       = "Task deleted."
	MsgAdded         = "Task added."
	MsgExit          = "Exiting."
	MsgInvalidOption = "Invalid option."
)

// Menu reads choices from an input stream and applies them to a store.
type Menu struct {
	store  *store.Store
	in     *bufio.Reader
	out    io.Writer
	logger *log.Logger
	lines  chan inputLine
}

type inputLine struct {
	text string
	err  error
}

// New creates a menu over s reading from in and printing to out.
func New(s *store.Store, in io.Reader, out io.Writer, logger *log.Logger) *Menu {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Menu{
		store:  s,
		in:     bufio.NewReader(in),
		out:    out,
		logger: logger,
	}
}

// Run shows the menu until the user exits, the input ends or ctx is done.
// A Menu must not be run more than once.
// Validation problems are printed and the loop continues; a failure to
// write the task file is returned.
func (m *Menu) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	m.lines = make(chan inputLine)
	go m.readLines(done)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.printMenu()
		choice, err := m.prompt(ctx, "Select an option: ")
		if err != nil {
			return m.endOfInput(err)
		}

		switch strings.TrimSpace(choice) {
		case "1":
			if err := m.add(ctx); err != nil {
				return m.endOfInput(err)
			}
		case "2":
			if err := m.remove(ctx); err != nil {
				return m.endOfInput(err)
			}
		case "3":
			ShowTasks(m.out, m.store.List())
		case "4":
			if err := ProcessAll(m.out, m.store); err != nil {
				return err
			}
		case "5":
			fmt.Fprintln(m.out, MsgExit)
			return nil
		default:
			fmt.Fprintln(m.out, MsgInvalidOption)
		}
	}
}

func (m *Menu) printMenu() {
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "--- Task Manager ---")
	fmt.Fprintln(m.out, "1. Add task")
	fmt.Fprintln(m.out, "2. Delete task")
	fmt.Fprintln(m.out, "3. Show all tasks")
	fmt.Fprintln(m.out, "4. Process all tasks")
	fmt.Fprintln(m.out, "5. Exit")
}

func (m *Menu) add(ctx context.Context) error {
	name, err := m.prompt(ctx, "Task name: ")
	if err != nil {
		return err
	}
	description, err := m.prompt(ctx, "Task description: ")
	if err != nil {
		return err
	}
	priorityText, err := m.prompt(ctx, "Priority (high/medium/low): ")
	if err != nil {
		return err
	}

	_, err = m.store.AddText(name, description, priorityText)
	var ve *task.ValidationError
	if errors.As(err, &ve) {
		fmt.Fprintln(m.out, ve.Error())
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(m.out, MsgAdded)
	return nil
}

func (m *Menu) remove(ctx context.Context) error {
	name, err := m.prompt(ctx, "Name of the task to delete: ")
	if err != nil {
		return err
	}
	removed, err := m.store.Remove(name)
	if err != nil {
		return err
	}
	m.logger.Debug("Removed tasks", "name", name, "count", removed)
	fmt.Fprintln(m.out, MsgDeleted)
	return nil
}

// readLines feeds input lines to m.lines until the input fails or done
// is closed. A final line without a newline is sent before io.EOF.
func (m *Menu) readLines(done <-chan struct{}) {
	for {
		text, err := m.in.ReadString('\n')
		if text != "" {
			select {
			case m.lines <- inputLine{text: text}:
			case <-done:
				return
			}
		}
		if err != nil {
			select {
			case m.lines <- inputLine{err: err}:
			case <-done:
			}
			return
		}
	}
}

// prompt prints label and waits for one line without its terminator.
func (m *Menu) prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(m.out, label)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line := <-m.lines:
		if line.err != nil {
			return "", line.err
		}
		return strings.TrimRight(line.text, "\r\n"), nil
	}
}

// endOfInput turns a closed input stream into a normal exit.
func (m *Menu) endOfInput(err error) error {
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(m.out)
		m.logger.Debug("Input closed, leaving menu")
		return nil
	}
	return err
}

// ShowTasks prints the rendering of every task, or MsgNoTasks if there
// are none.
func ShowTasks(w io.Writer, tasks []task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, MsgNoTasks)
		return
	}
	for _, t := range tasks {
		fmt.Fprintln(w, t.String())
	}
}

// ProcessAll prints every task as it is processed, high priority first,
// and empties the store.
func ProcessAll(w io.Writer, s *store.Store) error {
	return s.ProcessAll(func(t task.Task) {
		fmt.Fprintf(w, "Processing %s\n", t)
	})
}
