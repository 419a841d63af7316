package core

// capture.go holds the diagnostic capture for one pipeline invocation.
//
// The tools' output streams are redirected into two hidden files that belong
// to this invocation alone. The lifecycle is:
//
//	OpenCapture -> (tools write) -> Restore -> ReadStderr -> Remove
//
// Restore closes the handles and must run on every exit path; it is
// idempotent so it can sit in a defer. Remove is best-effort.

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
)

const (
	stdoutPattern = ".shp2pg-stdout-*"
	stderrPattern = ".shp2pg-stderr-*"
)

// Capture owns the stdout/stderr capture files of one invocation.
type Capture struct {
	stdout *os.File
	stderr *os.File

	mu       sync.Mutex
	restored bool
	restErr  error
}

// OpenCapture creates fresh capture files in dir.
func OpenCapture(dir string) (*Capture, error) {
	stdout, err := os.CreateTemp(dir, stdoutPattern)
	if err != nil {
		return nil, &StreamIOError{Op: "create", Path: dir, Err: err}
	}

	stderr, err := os.CreateTemp(dir, stderrPattern)
	if err != nil {
		stdout.Close()
		os.Remove(stdout.Name())
		return nil, &StreamIOError{Op: "create", Path: dir, Err: err}
	}

	return &Capture{stdout: stdout, stderr: stderr}, nil
}

// Stdout is the writer standing in for the tools' standard output.
func (c *Capture) Stdout() io.Writer { return c.stdout }

// Stderr is the writer standing in for the tools' standard error.
func (c *Capture) Stderr() io.Writer { return c.stderr }

// Paths returns the capture file paths.
func (c *Capture) Paths() (stdout, stderr string) {
	return c.stdout.Name(), c.stderr.Name()
}

// Restore closes both capture handles. Only the first call does any work.
func (c *Capture) Restore() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.restored {
		return c.restErr
	}
	c.restored = true

	var errs []error
	for _, f := range []*os.File{c.stdout, c.stderr} {
		if err := f.Close(); err != nil {
			errs = append(errs, &StreamIOError{Op: "close", Path: f.Name(), Err: err})
		}
	}
	c.restErr = errors.Join(errs...)
	return c.restErr
}

// Restored reports whether Restore has run.
func (c *Capture) Restored() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restored
}

// ReadStderr reads back everything written to the error capture and returns
// its lines joined by newlines, without a trailing newline. Line contents,
// carriage returns included, are kept as written. It restores the
// capture first if that has not happened yet.
func (c *Capture) ReadStderr() (string, error) {
	if err := c.Restore(); err != nil {
		return "", err
	}

	path := c.stderr.Name()
	f, err := os.Open(path)
	if err != nil {
		return "", &StreamIOError{Op: "read", Path: path, Err: err}
	}
	defer f.Close()

	var lines []string
	br := bufio.NewReader(f)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lines = append(lines, strings.TrimSuffix(line, "\n"))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", &StreamIOError{Op: "read", Path: path, Err: err}
		}
	}

	return strings.Join(lines, "\n"), nil
}

// Remove restores the capture if needed and deletes both files.
// Files that are already gone are not an error.
func (c *Capture) Remove() error {
	c.Restore()

	var errs []error
	for _, f := range []*os.File{c.stdout, c.stderr} {
		if err := os.Remove(f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
