package core

import (
	"strings"
	"time"
)

// FormInput is an import request exactly as a user typed it.
// Every field is a string so the validator owns parsing and defaults.
type FormInput struct {
	ShapefilePath string `json:"shapefile_path"`
	SRID          string `json:"srid"`
	Database      string `json:"database"`
	Table         string `json:"table"`
	Host          string `json:"host"`
	Port          string `json:"port"`
	Username      string `json:"username"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (in FormInput) Trimmed() FormInput {
	return FormInput{
		ShapefilePath: strings.TrimSpace(in.ShapefilePath),
		SRID:          strings.TrimSpace(in.SRID),
		Database:      strings.TrimSpace(in.Database),
		Table:         strings.TrimSpace(in.Table),
		Host:          strings.TrimSpace(in.Host),
		Port:          strings.TrimSpace(in.Port),
		Username:      strings.TrimSpace(in.Username),
	}
}

// ImportRequest is a validated import request. Only the Validator creates one
// from user input; the orchestrator treats it as trusted.
type ImportRequest struct {
	ShapefilePath string `json:"shapefile_path"`
	SRID          int    `json:"srid"`
	Database      string `json:"database"`
	Table         string `json:"table"`
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Username      string `json:"username"`
}

// ConnParams returns the connection parameters for the target database.
func (r ImportRequest) ConnParams() ConnParams {
	return ConnParams{
		Host:     r.Host,
		Port:     r.Port,
		User:     r.Username,
		Database: r.Database,
	}
}

// ConnParams identifies a PostgreSQL database. No password is carried;
// authentication relies on the environment (PGPASSWORD, .pgpass, trust).
type ConnParams struct {
	Host     string
	Port     int
	User     string
	Database string
}

// Stage is a step in the lifecycle of one import attempt.
type Stage string

const (
	StageIdle              Stage = "idle"
	StageValidating        Stage = "validating"
	StageCheckingExistence Stage = "checking_existence"
	StageRedirected        Stage = "redirected"
	StageRunning           Stage = "running"
	StageRestored          Stage = "restored"
	StageSucceeded         Stage = "succeeded"
	StageFailed            Stage = "failed"
)

// Outcome is the user-facing category of a finished import.
type Outcome string

const (
	OutcomeSuccess Outcome = "success" // informational
	OutcomeWarning Outcome = "warning" // destination table already exists
	OutcomeError   Outcome = "error"
)

// ImportResult describes one import attempt. It is returned even when the
// attempt fails so callers can correlate by ID.
type ImportResult struct {
	ID        string        `json:"id"`
	Request   ImportRequest `json:"request"`
	Stages    []Stage       `json:"stages"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Stage returns the most recent stage reached.
func (r *ImportResult) Stage() Stage {
	if len(r.Stages) == 0 {
		return StageIdle
	}
	return r.Stages[len(r.Stages)-1]
}

// Reached reports whether the attempt passed through stage s.
func (r *ImportResult) Reached(s Stage) bool {
	for _, st := range r.Stages {
		if st == s {
			return true
		}
	}
	return false
}

// Report is the orchestration boundary's answer to a submission:
// every error has already been translated into a user message.
type Report struct {
	ID       string        `json:"id"`
	Outcome  Outcome       `json:"outcome"`
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Action   string        `json:"action,omitempty"`
	Code     string        `json:"code,omitempty"`
	Detail   string        `json:"detail,omitempty"` // captured tool diagnostics, verbatim
	Field    string        `json:"field,omitempty"`  // offending form field for validation failures
	Duration time.Duration `json:"duration"`
}
