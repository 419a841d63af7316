package core

// # Error Codes Reference
//
// Every import failure is shown to the user with a code they can quote to
// support. Typed errors are matched first (errors.As / errors.Is); plain
// errors fall back to case-insensitive substring patterns.
//
// # Validation Errors (VAL001-VAL006)
//
//	VAL001 - Missing field: a required form field is empty
//	VAL002 - File not found: the shapefile path does not name a file
//	VAL003 - Bad identifier: database or table name is not a valid identifier
//	VAL004 - Bad host: host is not an IPv4 address with octets 0-255
//	VAL005 - Bad username: username breaks the platform convention
//	VAL006 - Out of range: SRID or port is not a valid number
//
// # Database Errors (DB001-DB002, TBL001)
//
//	DB001  - Connection failed: the target database could not be reached
//	DB002  - Catalog query failed: the existence check returned something unexpected
//	TBL001 - Table exists: the destination table is already in the public schema
//
// # Pipeline Errors (PIPE001-PIPE002, IO001)
//
//	PIPE001 - Tool failed: shp2pgsql or psql exited nonzero; detail carries stderr
//	PIPE002 - Tool missing: shp2pgsql or psql could not be found
//	IO001   - Capture failed: a diagnostic capture file could not be used
//
// # Import Errors (IMP001-IMP002)
//
//	IMP001 - Busy: too many imports are already running
//	IMP002 - Interrupted: the import was cancelled or timed out
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: check the application log for the technical error

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var validationMessages = map[Rule]UserMessage{
	RuleRequired: {
		Message: "A required field is empty",
		Action:  "Fill in every field of the form",
		Code:    "VAL001",
	},
	RuleFileExists: {
		Message: "The shapefile could not be found",
		Action:  "Check the path points to an existing .shp file",
		Code:    "VAL002",
	},
	RuleIdentifier: {
		Message: "The name is not a valid PostgreSQL identifier",
		Action:  "Start with a letter and use only letters, digits and underscores (max 63)",
		Code:    "VAL003",
	},
	RuleIPv4: {
		Message: "The host is not a valid IPv4 address",
		Action:  "Use a dotted address like 127.0.0.1 with each part between 0 and 255",
		Code:    "VAL004",
	},
	RuleUsername: {
		Message: "The username is not valid for this platform",
		Action:  "Use the database role name as it exists on the server",
		Code:    "VAL005",
	},
	RuleRange: {
		Message: "A numeric field is out of range",
		Action:  "Use a non-negative SRID and a port between 1 and 65535",
		Code:    "VAL006",
	},
}

var (
	msgConnection = UserMessage{
		Message: "Unable to connect to the database",
		Action:  "Check host, port, username and that the server accepts connections",
		Code:    "DB001",
	}
	msgQuery = UserMessage{
		Message: "The database catalog returned an unexpected result",
		Action:  "Check the server version; this may be a bug",
		Code:    "DB002",
	}
	msgTableExists = UserMessage{
		Message: "The destination table already exists",
		Action:  "Choose another table name or drop the existing table first",
		Code:    "TBL001",
	}
	msgPipeline = UserMessage{
		Message: "The import tools reported an error",
		Action:  "Review the tool output below",
		Code:    "PIPE001",
	}
	msgToolMissing = UserMessage{
		Message: "shp2pgsql or psql could not be found",
		Action:  "Install the PostGIS client tools or set SHP2PGSQL_PATH / PSQL_PATH",
		Code:    "PIPE002",
	}
	msgStreamIO = UserMessage{
		Message: "Tool output could not be captured",
		Action:  "Check the capture directory is writable",
		Code:    "IO001",
	}
	msgTooMany = UserMessage{
		Message: "Too many imports are running",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}
	msgInterrupted = UserMessage{
		Message: "The import was cancelled or timed out",
		Action:  "Try again; large shapefiles may need a longer IMPORT_TIMEOUT",
		Code:    "IMP002",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch untyped errors. The first match wins.
var errorPatterns = []errorPattern{
	{pattern: "connection refused", msg: msgConnection},
	{pattern: "no such host", msg: msgConnection},
	{pattern: "already exists", msg: msgTableExists},
	{pattern: "executable file not found", msg: msgToolMissing},
	{pattern: "too many imports", msg: msgTooMany},
	{pattern: "context canceled", msg: msgInterrupted},
	{pattern: "context deadline exceeded", msg: msgInterrupted},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed errors are checked first, then string patterns, then ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		verr *ValidationError
		cerr *ConnectionError
		qerr *QueryError
		perr *PipelineError
		serr *StreamIOError
	)

	switch {
	case errors.As(err, &verr):
		if msg, ok := validationMessages[verr.Rule]; ok {
			return msg
		}
	case errors.Is(err, ErrTableExists):
		return msgTableExists
	case errors.Is(err, ErrTooManyImports):
		return msgTooMany
	case isContextErr(err):
		return msgInterrupted
	case errors.As(err, &cerr):
		return msgConnection
	case errors.As(err, &qerr):
		return msgQuery
	case errors.As(err, &serr):
		return msgStreamIO
	case errors.As(err, &perr):
		if errors.Is(perr.Err, exec.ErrNotFound) {
			return msgToolMissing
		}
		return msgPipeline
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// NewReport translates an import attempt into what the user sees.
// res may be nil when the attempt never started.
func NewReport(res *ImportResult, err error) Report {
	rep := Report{Outcome: ClassifyOutcome(err)}
	if res != nil {
		rep.ID = res.ID
		rep.Duration = res.Duration
	}

	switch rep.Outcome {
	case OutcomeSuccess:
		rep.Title = "Successful!"
		rep.Message = "The operation was run successfully!"
		if res != nil {
			rep.Message = fmt.Sprintf("Imported %s into table %q of database %q.",
				res.Request.ShapefilePath, res.Request.Table, res.Request.Database)
		}
		return rep
	case OutcomeWarning:
		rep.Title = "Table Exists"
	default:
		rep.Title = "Import Failed"
	}

	msg := MapError(err)
	rep.Message = msg.Message
	rep.Action = msg.Action
	rep.Code = msg.Code

	var verr *ValidationError
	var perr *PipelineError
	var terr *TableExistsError
	switch {
	case errors.As(err, &verr):
		// The validator's own text names the field.
		rep.Message = capitalize(verr.Message)
		rep.Field = verr.Field
	case errors.As(err, &terr):
		rep.Message = fmt.Sprintf("Table %q already exists in the %s schema of %q", terr.Table, terr.Schema, terr.Database)
	case errors.As(err, &perr):
		rep.Detail = perr.Stderr
		if rep.Detail == "" && perr.Err != nil {
			rep.Detail = perr.Err.Error()
		}
	case rep.Code == defaultMessage.Code:
		rep.Detail = err.Error()
	}

	return rep
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
