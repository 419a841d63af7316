package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrTableExists is matched by TableExistsError via errors.Is.
var ErrTableExists = errors.New("destination table already exists")

// ConnectionError means the pre-flight connection to the target database failed.
type ConnectionError struct {
	Host     string
	Port     int
	Database string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to database %q at %s:%d: %v", e.Database, e.Host, e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError means the catalog query failed or returned an unexpected shape.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("catalog query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// TableExistsError reports that the destination table is already present.
// The import is aborted before any conversion runs.
type TableExistsError struct {
	Database string
	Schema   string
	Table    string
}

func (e *TableExistsError) Error() string {
	return fmt.Sprintf("table %s.%s already exists in database %q", e.Schema, e.Table, e.Database)
}

func (e *TableExistsError) Is(target error) bool { return target == ErrTableExists }

// PipelineError means the conversion pipeline failed. Stderr holds everything the
// tools wrote to their error stream during the invocation.
type PipelineError struct {
	Stage    string // tool that failed first: "shp2pgsql", "psql" or "pipeline"
	ExitCode int    // -1 when the tool could not be started or was killed
	Stderr   string
	Err      error
}

func (e *PipelineError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited with status %d: %s", e.Stage, e.ExitCode, e.Stderr)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s exited with status %d", e.Stage, e.ExitCode)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// StreamIOError means a capture file could not be created, written or read back.
type StreamIOError struct {
	Op   string // "create", "close", "read"
	Path string
	Err  error
}

func (e *StreamIOError) Error() string {
	return fmt.Sprintf("capture stream %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StreamIOError) Unwrap() error { return e.Err }

// ClassifyOutcome maps an import error to its user-facing category.
// A nil error is a success; an existing table is a warning; anything else is an error.
func ClassifyOutcome(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrTableExists):
		return OutcomeWarning
	default:
		return OutcomeError
	}
}

// isContextErr reports whether err stems from cancellation or a deadline.
func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
