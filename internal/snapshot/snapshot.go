// Package snapshot exports and imports task lists as schema-validated JSON.
//
// A snapshot looks like:
//
//	{
//	  "schema_version": 1,
//	  "exported_at": "2024-01-01T00:00:00Z",
//	  "source": "/home/me/project/tasks.txt",
//	  "tasks": [
//	    {"name": "Deploy", "description": "Ship it", "priority": "high"}
//	  ]
//	}
//
// Snapshots are written with 2-space indentation and a trailing newline.
// Reading validates the document against the embedded JSON Schema before
// any task is built.
package snapshot

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nibzard/taskmgr-go/internal/task"
)

// SchemaVersion is the snapshot format version written by this package.
const SchemaVersion = 1

const schemaURL = "https://github.com/nibzard/taskmgr-go/snapshot.schema.json"

//go:embed snapshot.schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Snapshot is the JSON form of a task list.
type Snapshot struct {
	SchemaVersion int        `json:"schema_version"`
	ExportedAt    *time.Time `json:"exported_at,omitempty"`
	Source        string     `json:"source,omitempty"`
	Entries       []Entry    `json:"tasks"`
}

// Entry is one task in a snapshot.
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// SchemaError collects schema violations found while reading a snapshot.
type SchemaError struct {
	Errors []error
}

func (e *SchemaError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return "invalid snapshot: " + strings.Join(msgs, "; ")
}

// Unwrap returns the individual violations.
func (e *SchemaError) Unwrap() []error {
	return e.Errors
}

// FromTasks builds a snapshot of tasks in their given order.
func FromTasks(tasks []task.Task) *Snapshot {
	now := time.Now().UTC()
	s := &Snapshot{
		SchemaVersion: SchemaVersion,
		ExportedAt:    &now,
		Entries:       make([]Entry, 0, len(tasks)),
	}
	for _, t := range tasks {
		s.Entries = append(s.Entries, Entry{
			Name:        t.Name(),
			Description: t.Description(),
			Priority:    t.Priority().String(),
		})
	}
	return s
}

// Tasks converts the entries back to validated tasks.
func (s *Snapshot) Tasks() ([]task.Task, error) {
	out := make([]task.Task, 0, len(s.Entries))
	for i, e := range s.Entries {
		t, err := task.Parse(e.Name, e.Description, e.Priority)
		if err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Write encodes the snapshot to w.
func (s *Snapshot) Write(w io.Writer) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Save writes the snapshot to path.
func (s *Snapshot) Save(path string) error {
	var buf bytes.Buffer
	if err := s.Write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	return nil
}

// Read decodes and validates a snapshot.
func Read(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if err := validate(doc); err != nil {
		return nil, err
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &s, nil
}

// Load reads and validates the snapshot at path.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("load snapshot schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile snapshot schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

func validate(doc interface{}) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(doc); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return err
		}
		result := &SchemaError{}
		collectSchemaErrors(result, ve)
		return result
	}
	return nil
}

func collectSchemaErrors(result *SchemaError, err *jsonschema.ValidationError) {
	if len(err.Causes) == 0 {
		result.Errors = append(result.Errors, &task.ValidationError{
			Field: jsonPointerToPath(err.InstanceLocation),
			Err:   fmt.Errorf("%s", err.Message),
		})
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(result, cause)
	}
}

// jsonPointerToPath converts "/tasks/0/name" to "tasks[0].name".
func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	path := ""
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			path += fmt.Sprintf("[%d]", idx)
			continue
		}
		if path == "" {
			path = part
		} else {
			path += "." + part
		}
	}
	return path
}
