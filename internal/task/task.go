package task

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates fields in a serialized task line.
const Delimiter = "|"

// Priority represents a task priority tier.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists the tiers in processing order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// legacyPriorities maps spellings written by older task files.
var legacyPriorities = map[string]Priority{
	"alta":  PriorityHigh,
	"media": PriorityMedium,
	"baja":  PriorityLow,
}

var (
	// ErrEmpty is returned when a required field is empty.
	ErrEmpty = errors.New("must not be empty")
	// ErrInvalidPriority is returned for a priority outside high, medium, low.
	ErrInvalidPriority = errors.New("invalid priority")
	// ErrDelimiter is returned when a field contains a character the task file cannot store.
	ErrDelimiter = errors.New("must not contain '|' or line breaks")
)

// ParsePriority parses a priority name. Matching is case-insensitive and
// ignores surrounding whitespace.
func ParsePriority(s string) (Priority, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	switch p := Priority(normalized); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	}
	if p, ok := legacyPriorities[normalized]; ok {
		return p, nil
	}
	return "", &ValidationError{
		Field: "priority",
		Err:   fmt.Errorf("%w %q, must be one of: high, medium, low", ErrInvalidPriority, s),
	}
}

// Valid reports whether p is one of the three tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank returns the processing position of p (0 for high). Unknown
// priorities rank after low.
func (p Priority) Rank() int {
	for i, tier := range Priorities {
		if p == tier {
			return i
		}
	}
	return len(Priorities)
}

func (p Priority) String() string {
	return string(p)
}

// ValidationError reports an invalid task field.
type ValidationError struct {
	Field string // Field name (name, description, priority)
	Err   error  // Underlying error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Task is a named, described and prioritized unit of work.
// The zero value is not a valid task; use New or Parse.
type Task struct {
	name        string
	description string
	priority    Priority
}

// New validates the fields and returns a task.
func New(name, description string, priority Priority) (Task, error) {
	if err := validateText("name", name); err != nil {
		return Task{}, err
	}
	if err := validateText("description", description); err != nil {
		return Task{}, err
	}
	if !priority.Valid() {
		return Task{}, &ValidationError{
			Field: "priority",
			Err:   fmt.Errorf("%w %q, must be one of: high, medium, low", ErrInvalidPriority, string(priority)),
		}
	}
	return Task{name: name, description: description, priority: priority}, nil
}

// Parse is like New but accepts the priority as text.
func Parse(name, description, priority string) (Task, error) {
	if err := validateText("name", name); err != nil {
		return Task{}, err
	}
	if err := validateText("description", description); err != nil {
		return Task{}, err
	}
	p, err := ParsePriority(priority)
	if err != nil {
		return Task{}, err
	}
	return New(name, description, p)
}

func validateText(field, value string) *ValidationError {
	if value == "" {
		return &ValidationError{Field: field, Err: ErrEmpty}
	}
	if strings.ContainsAny(value, Delimiter+"\n\r") {
		return &ValidationError{Field: field, Err: ErrDelimiter}
	}
	return nil
}

// Name returns the task name.
func (t Task) Name() string { return t.name }

// Description returns the task description.
func (t Task) Description() string { return t.description }

// Priority returns the task priority.
func (t Task) Priority() Priority { return t.priority }

// String renders the task for display.
func (t Task) String() string {
	return fmt.Sprintf("Task: %s || Priority: %s \nDescription: %s", t.name, t.priority, t.description)
}
