package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/nibzard/taskmgr-go/internal/task"
)

// LoadPolicy controls what happens when a task file line cannot be parsed.
type LoadPolicy string

const (
	// PolicyAbort stops at the first bad line and keeps the tasks loaded before it.
	PolicyAbort LoadPolicy = "abort"
	// PolicySkip records the bad line and keeps loading.
	PolicySkip LoadPolicy = "skip"
)

// ParseLoadPolicy parses a policy name. An empty string selects PolicyAbort.
func ParseLoadPolicy(s string) (LoadPolicy, error) {
	switch p := LoadPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyAbort, nil
	case PolicyAbort, PolicySkip:
		return p, nil
	default:
		return "", fmt.Errorf("invalid load policy %q, must be one of: abort, skip", s)
	}
}

// LoadResult describes the outcome of loading a task file.
type LoadResult struct {
	Path    string
	Missing bool         // true if the file did not exist (the store starts empty)
	Loaded  int          // number of tasks loaded
	Skipped []*LineError // lines dropped under PolicySkip
	Err     error        // error that stopped loading, if any
}

// OK reports whether every line of the file was loaded.
func (r *LoadResult) OK() bool {
	return r.Err == nil && len(r.Skipped) == 0
}

// Problems returns the stopping error and every skipped line as a flat list.
func (r *LoadResult) Problems() []error {
	var errs []error
	for _, lineErr := range r.Skipped {
		errs = append(errs, lineErr)
	}
	if r.Err != nil {
		errs = append(errs, r.Err)
	}
	return errs
}

// Op names a store mutation.
type Op string

const (
	OpAdd     Op = "add"
	OpRemove  Op = "remove"
	OpProcess Op = "process"
	OpImport  Op = "import"
)

// Event describes a completed store mutation.
type Event struct {
	Time  time.Time
	Op    Op
	Task  *task.Task // added task (OpAdd only)
	Name  string     // task name for OpAdd and OpRemove
	Count int        // tasks added, removed, processed or imported
}

// Recorder receives store events after the task file has been written.
type Recorder interface {
	Record(Event) error
}
