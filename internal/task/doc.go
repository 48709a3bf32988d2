// Package task defines the task value stored in a task file.
//
// A task has a name, a description and one of three priority tiers:
//
//   - "high": processed first
//   - "medium": processed after every high task
//   - "low": processed last
//
// Tasks are validated when they are constructed and cannot be changed
// afterwards. To change a task, remove it from the store and add it again.
//
// # Field Restrictions
//
// The task file stores one task per line with fields joined by '|'.
// The format has no escaping, so names and descriptions may not contain
// '|', '\n' or '\r'. Such values are rejected with ErrDelimiter.
package task
