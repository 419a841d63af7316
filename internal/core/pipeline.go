package core

// pipeline.go runs the conversion pipeline
//
//	shp2pgsql -s <srid> -I <shapefile> <table> | psql -U <user> -d <db> -h <host> -p <port>
//
// as two child processes joined by an OS pipe. Commands are built from
// argument slices; no shell is involved, so paths and names are never
// reinterpreted. Run blocks until both processes exit.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
)

const (
	stageConverter = "shp2pgsql"
	stageLoader    = "psql"
	stagePipeline  = "pipeline"
)

// PipelineSpec is one invocation of the pipeline.
type PipelineSpec struct {
	Request ImportRequest
	Stdout  io.Writer // loader standard output
	Stderr  io.Writer // standard error of both tools
}

// PipelineRunner runs the conversion pipeline for a request.
// A nil error means every stage exited with status 0.
type PipelineRunner interface {
	Run(ctx context.Context, spec PipelineSpec) error
}

// ExecRunner runs shp2pgsql and psql as local processes.
type ExecRunner struct {
	Shp2pgsqlPath string
	PsqlPath      string
	CreateIndex   bool     // pass -I to shp2pgsql
	OnErrorStop   bool     // pass -v ON_ERROR_STOP=1 to psql
	Env           []string // extra environment for both tools, appended to os.Environ()
}

// NewExecRunner creates a runner with the default tool names resolved via PATH.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Shp2pgsqlPath: "shp2pgsql",
		PsqlPath:      "psql",
		CreateIndex:   true,
		OnErrorStop:   true,
	}
}

// ConverterArgs returns the shp2pgsql arguments for req.
func (r *ExecRunner) ConverterArgs(req ImportRequest) []string {
	args := []string{"-s", strconv.Itoa(req.SRID)}
	if r.CreateIndex {
		args = append(args, "-I")
	}
	return append(args, req.ShapefilePath, req.Table)
}

// LoaderArgs returns the psql arguments for req.
func (r *ExecRunner) LoaderArgs(req ImportRequest) []string {
	args := []string{
		"-U", req.Username,
		"-d", req.Database,
		"-h", req.Host,
		"-p", strconv.Itoa(req.Port),
	}
	if r.OnErrorStop {
		args = append(args, "-v", "ON_ERROR_STOP=1")
	}
	return args
}

// Run starts both tools, waits for them and reports the first failing stage.
// Cancelling ctx kills both processes.
func (r *ExecRunner) Run(ctx context.Context, spec PipelineSpec) error {
	converter := exec.CommandContext(ctx, r.Shp2pgsqlPath, r.ConverterArgs(spec.Request)...)
	loader := exec.CommandContext(ctx, r.PsqlPath, r.LoaderArgs(spec.Request)...)

	if len(r.Env) > 0 {
		env := append(os.Environ(), r.Env...)
		converter.Env = env
		loader.Env = env
	}

	stderr := lockedWriter(spec.Stderr)
	converter.Stderr = stderr
	loader.Stderr = stderr
	loader.Stdout = spec.Stdout

	pipe, err := converter.StdoutPipe()
	if err != nil {
		return &PipelineError{Stage: stagePipeline, ExitCode: -1, Err: fmt.Errorf("create pipe: %w", err)}
	}
	loader.Stdin = pipe

	if err := loader.Start(); err != nil {
		pipe.Close()
		return &PipelineError{Stage: stageLoader, ExitCode: -1, Err: err}
	}

	// The loader holds its own copy of the read end. Dropping ours lets the
	// converter see a broken pipe as soon as the loader exits.
	pipe.Close()

	// Once the converter fails to start, the pipe's write end is closed and
	// the loader sees EOF; it still has to be reaped.
	if err := converter.Start(); err != nil {
		loader.Wait()
		return &PipelineError{Stage: stageConverter, ExitCode: -1, Err: err}
	}

	convErr := converter.Wait()
	loadErr := loader.Wait()

	// A converter killed by the broken pipe only failed because the loader
	// stopped reading; the loader's status carries the cause.
	if loadErr != nil && brokenPipe(convErr) {
		return stageError(ctx, stageLoader, loadErr)
	}
	if err := stageError(ctx, stageConverter, convErr); err != nil {
		return err
	}
	return stageError(ctx, stageLoader, loadErr)
}

// sigpipeExitCode is how a shell wrapper reports a child killed by SIGPIPE.
const sigpipeExitCode = 128 + 13

// brokenPipe reports whether err is a process exit caused by writing to a
// pipe with no reader.
func brokenPipe(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() && ws.Signal() == syscall.SIGPIPE {
		return true
	}
	return exitErr.ExitCode() == sigpipeExitCode
}

// stageError converts a Wait error into a PipelineError.
func stageError(ctx context.Context, stage string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &PipelineError{Stage: stage, ExitCode: -1, Err: ctxErr}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &PipelineError{Stage: stage, ExitCode: exitErr.ExitCode(), Err: err}
	}
	return &PipelineError{Stage: stage, ExitCode: -1, Err: err}
}

// lockedWriter serializes writes from both tools when w is not a file.
// Files are handed to the children directly and need no locking.
func lockedWriter(w io.Writer) io.Writer {
	if w == nil {
		return nil
	}
	if _, ok := w.(*os.File); ok {
		return w
	}
	return &syncWriter{w: w}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
