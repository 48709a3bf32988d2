// Package store keeps a task list in memory and mirrors it to a task file.
package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/taskmgr-go/internal/task"
)

// maxLineSize bounds a single task line when loading.
const maxLineSize = 1024 * 1024

// Store owns the in-memory task list and its backing file. The file is
// rewritten after every mutation, so it always reflects the list once a
// mutating call returns.
//
// A Store is not safe for concurrent use.
type Store struct {
	path     string
	tasks    []task.Task
	policy   LoadPolicy
	logger   *log.Logger
	recorder Recorder
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets a recorder that receives an event after each mutation.
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		s.recorder = r
	}
}

// WithLoadPolicy sets how malformed lines are handled when loading.
func WithLoadPolicy(p LoadPolicy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// Open creates a store for path and loads its tasks. The returned store
// is always usable; the LoadResult describes what was loaded and any
// problem that stopped loading early.
func Open(path string, opts ...Option) (*Store, *LoadResult) {
	s := &Store{
		path:   path,
		policy: PolicyAbort,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, s.load()
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	return len(s.tasks)
}

// List returns the tasks in insertion order. The slice is a copy.
func (s *Store) List() []task.Task {
	out := make([]task.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Ordered returns the tasks in processing order: high, then medium,
// then low, each tier keeping insertion order.
func (s *Store) Ordered() []task.Task {
	out := s.List()
	slices.SortStableFunc(out, func(a, b task.Task) int {
		return a.Priority().Rank() - b.Priority().Rank()
	})
	return out
}

// Reload discards the in-memory list and loads the backing file again.
func (s *Store) Reload() *LoadResult {
	s.tasks = nil
	return s.load()
}

// Add validates a new task, appends it and saves the file. Validation
// errors are returned unchanged and leave the store untouched.
func (s *Store) Add(name, description string, priority task.Priority) (task.Task, error) {
	t, err := task.New(name, description, priority)
	if err != nil {
		return task.Task{}, err
	}
	return s.insert(t)
}

// AddText is like Add but takes the priority as text. The name and
// description are checked before the priority.
func (s *Store) AddText(name, description, priority string) (task.Task, error) {
	t, err := task.Parse(name, description, priority)
	if err != nil {
		return task.Task{}, err
	}
	return s.insert(t)
}

func (s *Store) insert(t task.Task) (task.Task, error) {
	s.tasks = append(s.tasks, t)
	if err := s.Save(); err != nil {
		return t, err
	}
	s.record(Event{Op: OpAdd, Task: &t, Name: t.Name(), Count: 1})
	return t, nil
}

// Remove deletes every task named name and saves the file. It returns the
// number of tasks removed; removing nothing is not an error.
func (s *Store) Remove(name string) (int, error) {
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.Name() != name {
			kept = append(kept, t)
		}
	}
	removed := len(s.tasks) - len(kept)
	// Zero the tail so dropped tasks are not retained by the backing array.
	for i := len(kept); i < len(s.tasks); i++ {
		s.tasks[i] = task.Task{}
	}
	s.tasks = kept

	if err := s.Save(); err != nil {
		return removed, err
	}
	s.record(Event{Op: OpRemove, Name: name, Count: removed})
	return removed, nil
}

// ProcessAll visits every task in processing order, then clears the list
// and saves the now empty file. The list is cleared unconditionally.
func (s *Store) ProcessAll(visit func(task.Task)) error {
	ordered := s.Ordered()
	for _, t := range ordered {
		if visit != nil {
			visit(t)
		}
	}
	s.tasks = nil

	if err := s.Save(); err != nil {
		return err
	}
	s.record(Event{Op: OpProcess, Count: len(ordered)})
	return nil
}

// Import appends tasks, or replaces the list when replace is set, and
// saves the file. The tasks must already be valid.
func (s *Store) Import(tasks []task.Task, replace bool) error {
	if replace {
		s.tasks = nil
	}
	s.tasks = append(s.tasks, tasks...)

	if err := s.Save(); err != nil {
		return err
	}
	s.record(Event{Op: OpImport, Count: len(tasks)})
	return nil
}

// Save writes every task to the backing file, one per line, replacing
// the previous contents.
func (s *Store) Save() error {
	var b strings.Builder
	for _, t := range s.tasks {
		b.WriteString(encodeLine(t))
		b.WriteByte('\n')
	}

	if err := os.WriteFile(s.path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write task file: %w", err)
	}

	s.logger.Info("Tasks saved", "path", s.path, "count", len(s.tasks))
	return nil
}

// load reads the backing file into the in-memory list.
func (s *Store) load() *LoadResult {
	result := &LoadResult{Path: s.path}

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			result.Missing = true
			s.logger.Info("Task file does not exist yet, starting empty", "path", s.path)
			return result
		}
		result.Err = fmt.Errorf("open task file: %w", err)
		s.logger.Error("Failed to load task file", "path", s.path, "err", result.Err)
		return result
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		t, err := decodeLine(line)
		if err != nil {
			lineErr := &LineError{Line: lineNo, Text: line, Err: err}
			if s.policy == PolicySkip {
				result.Skipped = append(result.Skipped, lineErr)
				s.logger.Warn("Skipping malformed task line", "path", s.path, "line", lineNo, "err", err)
				continue
			}
			result.Err = lineErr
			s.logger.Error("Stopped loading task file", "path", s.path, "line", lineNo, "err", err, "loaded", result.Loaded)
			return result
		}

		s.tasks = append(s.tasks, t)
		result.Loaded++
	}
	if err := scanner.Err(); err != nil {
		result.Err = fmt.Errorf("read task file: %w", err)
		s.logger.Error("Failed to read task file", "path", s.path, "err", result.Err, "loaded", result.Loaded)
		return result
	}

	s.logger.Debug("Loaded task file", "path", s.path, "count", result.Loaded)
	return result
}

func (s *Store) record(e Event) {
	if s.recorder == nil {
		return
	}
	e.Time = time.Now().UTC()
	if err := s.recorder.Record(e); err != nil {
		s.logger.Warn("Failed to record event", "op", e.Op, "err", err)
	}
}
