package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nibzard/taskmgr-go/internal/task"
)

// fieldCount is the number of fields in a serialized task line.
const fieldCount = 3

// ErrFieldCount is returned for a line that does not split into
// name, description and priority.
var ErrFieldCount = errors.New("expected 3 fields separated by '|'")

// LineError reports a task file line that could not be loaded.
type LineError struct {
	Line int    // 1-based line number
	Text string // Raw line content
	Err  error  // Underlying error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

// Unwrap returns the underlying error.
func (e *LineError) Unwrap() error {
	return e.Err
}

// encodeLine serializes a task as name|description|priority without a
// line terminator.
func encodeLine(t task.Task) string {
	return strings.Join([]string{t.Name(), t.Description(), t.Priority().String()}, task.Delimiter)
}

// decodeLine parses a line produced by encodeLine.
func decodeLine(line string) (task.Task, error) {
	fields := strings.Split(line, task.Delimiter)
	if len(fields) != fieldCount {
		return task.Task{}, fmt.Errorf("%w, got %d", ErrFieldCount, len(fields))
	}
	return task.Parse(fields[0], fields[1], fields[2])
}
