package core

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "missing field", err: &ValidationError{Field: FieldTable, Rule: RuleRequired}, wantCode: "VAL001"},
		{name: "missing file", err: &ValidationError{Rule: RuleFileExists}, wantCode: "VAL002"},
		{name: "bad identifier", err: &ValidationError{Rule: RuleIdentifier}, wantCode: "VAL003"},
		{name: "bad host", err: &ValidationError{Rule: RuleIPv4}, wantCode: "VAL004"},
		{name: "bad username", err: &ValidationError{Rule: RuleUsername}, wantCode: "VAL005"},
		{name: "out of range", err: &ValidationError{Rule: RuleRange}, wantCode: "VAL006"},
		{
			name:     "connection error",
			err:      &ConnectionError{Host: "10.0.0.1", Port: 5432, Database: "gis", Err: errors.New("dial tcp: i/o timeout")},
			wantCode: "DB001",
		},
		{name: "catalog query error", err: &QueryError{Err: errors.New("bad row")}, wantCode: "DB002"},
		{name: "table exists", err: &TableExistsError{Database: "gis", Schema: "public", Table: "roads"}, wantCode: "TBL001"},
		{name: "wrapped table exists", err: fmt.Errorf("pre-flight: %w", ErrTableExists), wantCode: "TBL001"},
		{name: "tool failed", err: &PipelineError{Stage: "psql", ExitCode: 3}, wantCode: "PIPE001"},
		{
			name:     "tool missing",
			err:      &PipelineError{Stage: "shp2pgsql", ExitCode: -1, Err: &exec.Error{Name: "shp2pgsql", Err: exec.ErrNotFound}},
			wantCode: "PIPE002",
		},
		{name: "capture failed", err: &StreamIOError{Op: "create", Err: errors.New("read-only file system")}, wantCode: "IO001"},
		{name: "too many imports", err: ErrTooManyImports, wantCode: "IMP001"},
		{name: "cancelled", err: context.Canceled, wantCode: "IMP002"},
		{
			name:     "pipeline killed by deadline",
			err:      &PipelineError{Stage: "psql", ExitCode: -1, Err: context.DeadlineExceeded},
			wantCode: "IMP002",
		},
		{name: "untyped connection refused", err: errors.New("dial tcp 127.0.0.1:5432: connection refused"), wantCode: "DB001"},
		{name: "untyped unknown", err: errors.New("something odd"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && (got.Message == "" || got.Action == "") {
				t.Errorf("MapError() = %+v, want message and action", got)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(ErrTooManyImports)
	want := "Too many imports are running (Code: IMP001). Please wait a moment and try again"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true")
	}
	if !IsUserFacing(&TableExistsError{}) {
		t.Error("IsUserFacing(TableExistsError) = false")
	}
	if IsUserFacing(errors.New("mystery")) {
		t.Error("IsUserFacing(unknown) = true")
	}
}

func TestClassifyOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want Outcome
	}{
		{nil, OutcomeSuccess},
		{&TableExistsError{Table: "roads"}, OutcomeWarning},
		{&ValidationError{Rule: RuleRequired}, OutcomeError},
		{&PipelineError{Stage: "psql", ExitCode: 1}, OutcomeError},
		{&ConnectionError{Err: errors.New("refused")}, OutcomeError},
	}
	for _, tt := range tests {
		if got := ClassifyOutcome(tt.err); got != tt.want {
			t.Errorf("ClassifyOutcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestNewReport(t *testing.T) {
	res := &ImportResult{
		ID:       "abc",
		Duration: 2 * time.Second,
		Request: ImportRequest{
			ShapefilePath: "/data/roads.shp",
			Database:      "gis",
			Table:         "roads",
		},
	}

	t.Run("success", func(t *testing.T) {
		rep := NewReport(res, nil)
		if rep.Outcome != OutcomeSuccess || rep.Title != "Successful!" {
			t.Errorf("Outcome/Title = %q/%q", rep.Outcome, rep.Title)
		}
		if rep.ID != "abc" || rep.Duration != 2*time.Second {
			t.Errorf("ID/Duration not carried: %+v", rep)
		}
		if !strings.Contains(rep.Message, "/data/roads.shp") || rep.Code != "" {
			t.Errorf("unexpected success report: %+v", rep)
		}
	})

	t.Run("validation names the field", func(t *testing.T) {
		rep := NewReport(res, &ValidationError{
			Field:   FieldHost,
			Rule:    RuleIPv4,
			Message: "invalid syntax for host IP address",
		})
		if rep.Outcome != OutcomeError || rep.Code != "VAL004" {
			t.Errorf("Outcome/Code = %q/%q", rep.Outcome, rep.Code)
		}
		if rep.Message != "Invalid syntax for host IP address" || rep.Field != FieldHost {
			t.Errorf("Message/Field = %q/%q", rep.Message, rep.Field)
		}
	})

	t.Run("table exists is a warning", func(t *testing.T) {
		rep := NewReport(res, &TableExistsError{Database: "gis", Schema: "public", Table: "roads"})
		if rep.Outcome != OutcomeWarning || rep.Title != "Table Exists" || rep.Code != "TBL001" {
			t.Errorf("unexpected report: %+v", rep)
		}
		if !strings.Contains(rep.Message, `"roads"`) {
			t.Errorf("Message = %q, want table name", rep.Message)
		}
	})

	t.Run("pipeline failure carries stderr verbatim", func(t *testing.T) {
		stderr := "ERROR:  relation \"roads\" already exists\nrollback"
		rep := NewReport(res, &PipelineError{Stage: "psql", ExitCode: 3, Stderr: stderr})
		if rep.Detail != stderr {
			t.Errorf("Detail = %q, want %q", rep.Detail, stderr)
		}
		if rep.Code != "PIPE001" || rep.Title != "Import Failed" {
			t.Errorf("Code/Title = %q/%q", rep.Code, rep.Title)
		}
	})

	t.Run("unknown error keeps technical detail", func(t *testing.T) {
		rep := NewReport(nil, errors.New("boom"))
		if rep.Code != "ERR000" || rep.Detail != "boom" || rep.ID != "" {
			t.Errorf("unexpected report: %+v", rep)
		}
	})
}
