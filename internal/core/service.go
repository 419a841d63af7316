package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/shp2pg/internal/config"
	"github.com/JonMunkholm/shp2pg/internal/logging"
	"github.com/google/uuid"
)

// DefaultImportTimeout bounds an import when the configuration leaves it unset.
const DefaultImportTimeout = 30 * time.Minute

// Service orchestrates shapefile imports: validation, the pre-flight table
// check, the tool pipeline and outcome reporting.
type Service struct {
	validator *Validator
	checker   TableChecker
	runner    PipelineRunner
	limiter   *ImportLimiter
	history   *History

	schema     string
	captureDir string
	timeout    time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithTableChecker replaces the catalog checker.
func WithTableChecker(c TableChecker) Option {
	return func(s *Service) { s.checker = c }
}

// WithRunner replaces the pipeline runner.
func WithRunner(r PipelineRunner) Option {
	return func(s *Service) { s.runner = r }
}

// WithValidator replaces the validator.
func WithValidator(v *Validator) Option {
	return func(s *Service) { s.validator = v }
}

// NewService creates a Service from configuration.
func NewService(cfg *config.Config, opts ...Option) (*Service, error) {
	platform, err := ParsePlatform(cfg.Import.TargetPlatform)
	if err != nil {
		return nil, fmt.Errorf("target platform: %w", err)
	}

	captureDir, err := filepath.Abs(cfg.Import.CaptureDir)
	if err != nil {
		return nil, fmt.Errorf("resolve capture directory: %w", err)
	}
	if err := os.MkdirAll(captureDir, 0o755); err != nil {
		return nil, fmt.Errorf("create capture directory: %w", err)
	}

	timeout := cfg.Import.Timeout
	if timeout <= 0 {
		timeout = DefaultImportTimeout
	}

	s := &Service{
		validator: NewValidator(platform, WithDefaults(cfg.Import.DefaultSRID, cfg.Import.DefaultPort)),
		checker:   NewPgTableChecker(cfg.Database.ConnectTimeout, cfg.Database.SSLMode),
		runner: &ExecRunner{
			Shp2pgsqlPath: cfg.Tools.Shp2pgsqlPath,
			PsqlPath:      cfg.Tools.PsqlPath,
			CreateIndex:   cfg.Tools.CreateIndex,
			OnErrorStop:   cfg.Tools.OnErrorStop,
		},
		limiter:    NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		history:    NewHistory(cfg.Import.HistorySize),
		schema:     cfg.Database.Schema,
		captureDir: captureDir,
		timeout:    timeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Defaults returns the SRID and port applied to empty form fields.
func (s *Service) Defaults() (srid, port int) {
	return s.validator.defaultSRID, s.validator.defaultPort
}

// Platform returns the username rule set in effect.
func (s *Service) Platform() Platform {
	return s.validator.Platform()
}

// Validate checks a submission without importing anything.
func (s *Service) Validate(in FormInput) (ImportRequest, error) {
	return s.validator.Validate(in)
}

// Submit runs one import and translates the result into a Report.
// It never returns an error: every failure becomes a user-facing message.
func (s *Service) Submit(ctx context.Context, in FormInput) Report {
	res, err := s.Import(ctx, in)
	return NewReport(res, err)
}

// Import validates in, checks that the destination table does not exist yet,
// then runs the conversion pipeline and waits for it. The returned result is
// never nil. Errors are one of *ValidationError, *ConnectionError,
// *QueryError, *TableExistsError, *PipelineError, *StreamIOError,
// ErrTooManyImports or a context error.
func (s *Service) Import(ctx context.Context, in FormInput) (res *ImportResult, err error) {
	res = &ImportResult{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
	}
	logger := logging.WithFields(ctx, "import_id", res.ID)

	defer func() {
		if p := recover(); p != nil {
			logger.Error("import panicked", "panic", p)
			err = fmt.Errorf("import panicked: %v", p)
		}

		res.Duration = time.Since(res.StartedAt)
		if err != nil {
			s.advance(logger, res, StageFailed)
		} else {
			s.advance(logger, res, StageSucceeded)
		}
		s.record(ctx, logger, res, err)
	}()

	s.advance(logger, res, StageValidating)
	req, err := s.validator.Validate(in)
	if err != nil {
		return res, err
	}
	res.Request = req
	logger = logger.With("database", req.Database, "table", req.Table, "host", req.Host)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	release, err := s.limiter.Acquire(ctx)
	if err != nil {
		return res, err
	}
	defer release()

	s.advance(logger, res, StageCheckingExistence)
	exists, err := s.checker.TableExists(ctx, req.ConnParams(), s.schema, req.Table)
	if err != nil {
		return res, err
	}
	if exists {
		return res, &TableExistsError{Database: req.Database, Schema: s.schema, Table: req.Table}
	}

	return res, s.runPipeline(ctx, logger, res, req)
}

// runPipeline runs the tools with their output captured for this invocation.
// The capture is restored on every path before the outcome is decided, and
// the capture files are removed afterwards.
func (s *Service) runPipeline(ctx context.Context, logger *slog.Logger, res *ImportResult, req ImportRequest) error {
	capture, err := OpenCapture(s.captureDir)
	if err != nil {
		return err
	}
	s.advance(logger, res, StageRedirected)

	defer func() {
		if rmErr := capture.Remove(); rmErr != nil {
			logger.Warn("failed to remove capture files", "error", rmErr)
		}
	}()

	runErr, restoreErr := s.runCaptured(ctx, logger, res, capture, req)
	if runErr == nil {
		return restoreErr
	}

	var perr *PipelineError
	if !errors.As(runErr, &perr) {
		perr = &PipelineError{Stage: stagePipeline, ExitCode: -1, Err: runErr}
	}

	stderr, readErr := capture.ReadStderr()
	if readErr != nil {
		return readErr
	}
	perr.Stderr = stderr
	return perr
}

// runCaptured runs the pipeline and restores the capture even if the runner panics.
func (s *Service) runCaptured(ctx context.Context, logger *slog.Logger, res *ImportResult, capture *Capture, req ImportRequest) (runErr, restoreErr error) {
	defer func() {
		restoreErr = capture.Restore()
		s.advance(logger, res, StageRestored)
	}()

	s.advance(logger, res, StageRunning)
	return s.runner.Run(ctx, PipelineSpec{
		Request: req,
		Stdout:  capture.Stdout(),
		Stderr:  capture.Stderr(),
	}), nil
}

func (s *Service) advance(logger *slog.Logger, res *ImportResult, st Stage) {
	res.Stages = append(res.Stages, st)
	logger.Debug("import stage", "stage", st)
}

// record logs the final outcome and stores it in history.
func (s *Service) record(ctx context.Context, logger *slog.Logger, res *ImportResult, err error) {
	rep := NewReport(res, err)

	s.history.Add(ImportRecord{
		ID:        res.ID,
		Request:   res.Request,
		Stage:     res.Stage(),
		Outcome:   rep.Outcome,
		Code:      rep.Code,
		Message:   rep.Message,
		ClientIP:  GetIPAddressFromContext(ctx),
		UserAgent: GetUserAgentFromContext(ctx),
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
	})

	switch rep.Outcome {
	case OutcomeSuccess:
		logger.Info("import succeeded", "duration_ms", res.Duration.Milliseconds())
	case OutcomeWarning:
		logger.Warn("import skipped", "reason", err.Error(), "code", rep.Code)
	default:
		logger.Error("import failed", "error", err.Error(), "code", rep.Code,
			"duration_ms", res.Duration.Milliseconds())
	}
}

// History returns recent import attempts, newest first.
func (s *Service) History() []ImportRecord {
	return s.history.List()
}

// Record returns one import attempt by ID.
func (s *Service) Record(id string) (ImportRecord, bool) {
	return s.history.Get(id)
}

// LimiterStatus returns the current pipeline slot usage.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
