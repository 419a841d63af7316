package core

// validation.go turns raw form input into a trusted ImportRequest.
//
// Checks run in a fixed order and stop at the first failure:
//  1. Required fields are non-empty (path, database, table, host, username)
//  2. The shapefile exists and is a regular file
//  3. Database name follows PostgreSQL identifier syntax
//  4. Table name follows the same syntax
//  5. Host is a dotted-quad IPv4 address with every octet in 0-255
//  6. Username follows the configured platform's convention
//  7. Optional SRID and port parse and are in range (defaults apply when empty)

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Form field names used in ValidationError.Field.
const (
	FieldShapefilePath = "shapefile_path"
	FieldSRID          = "srid"
	FieldDatabase      = "database"
	FieldTable         = "table"
	FieldHost          = "host"
	FieldPort          = "port"
	FieldUsername      = "username"
)

// Rule identifies which check a ValidationError comes from.
type Rule string

const (
	RuleRequired   Rule = "required"
	RuleFileExists Rule = "file_exists"
	RuleIdentifier Rule = "identifier"
	RuleIPv4       Rule = "ipv4"
	RuleUsername   Rule = "username"
	RuleRange      Rule = "range"
)

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,62}$`)
	ipv4Shape         = regexp.MustCompile(`^[0-9]{1,3}(\.[0-9]{1,3}){3}$`)
)

// ValidationError represents the first failed check for a request.
type ValidationError struct {
	Field   string // Form field name
	Value   string // The rejected value
	Rule    Rule   // Which check failed
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// requiredField pairs a form field with its missing-value message.
type requiredField struct {
	name    string
	label   string
	value   func(FormInput) string
	message string
}

// requiredFields is ordered; the first empty one is reported.
var requiredFields = []requiredField{
	{FieldShapefilePath, "Shapefile Path", func(in FormInput) string { return in.ShapefilePath }, "you should fill the shapefile path field"},
	{FieldDatabase, "Database Name", func(in FormInput) string { return in.Database }, "you should fill the database name field"},
	{FieldTable, "Table Name", func(in FormInput) string { return in.Table }, "you should fill the table name field"},
	{FieldHost, "Host IP Address", func(in FormInput) string { return in.Host }, "you should fill the host IP address field"},
	{FieldUsername, "Username", func(in FormInput) string { return in.Username }, "you should fill the username field"},
}

// FieldLabel returns the form label for a field name.
func FieldLabel(field string) string {
	for _, rf := range requiredFields {
		if rf.name == field {
			return rf.label
		}
	}
	switch field {
	case FieldSRID:
		return "SRID"
	case FieldPort:
		return "Port"
	}
	return field
}

// Validator checks import requests against a fixed platform rule set.
type Validator struct {
	platform    Platform
	defaultSRID int
	defaultPort int
	stat        func(string) (os.FileInfo, error)
}

// ValidatorOption customizes a Validator.
type ValidatorOption func(*Validator)

// WithDefaults sets the SRID and port used when the form leaves them empty.
func WithDefaults(srid, port int) ValidatorOption {
	return func(v *Validator) {
		v.defaultSRID = srid
		v.defaultPort = port
	}
}

// WithStat replaces the filesystem lookup used for the shapefile check.
func WithStat(stat func(string) (os.FileInfo, error)) ValidatorOption {
	return func(v *Validator) {
		v.stat = stat
	}
}

// NewValidator creates a validator for the given platform.
// Defaults are SRID 4326 and port 5432 unless overridden.
func NewValidator(platform Platform, opts ...ValidatorOption) *Validator {
	v := &Validator{
		platform:    platform,
		defaultSRID: 4326,
		defaultPort: 5432,
		stat:        os.Stat,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Platform returns the username rule set in effect.
func (v *Validator) Platform() Platform {
	return v.platform
}

// Validate checks in and returns the parsed request, or a *ValidationError
// describing the first failed check.
func (v *Validator) Validate(in FormInput) (ImportRequest, error) {
	in = in.Trimmed()

	for _, rf := range requiredFields {
		if rf.value(in) == "" {
			return ImportRequest{}, &ValidationError{
				Field:   rf.name,
				Rule:    RuleRequired,
				Message: rf.message,
			}
		}
	}

	if err := v.checkShapefile(in.ShapefilePath); err != nil {
		return ImportRequest{}, err
	}

	if !ValidIdentifier(in.Database) {
		return ImportRequest{}, &ValidationError{
			Field:   FieldDatabase,
			Value:   in.Database,
			Rule:    RuleIdentifier,
			Message: "the database name is not a valid PostgreSQL database name",
		}
	}

	if !ValidIdentifier(in.Table) {
		return ImportRequest{}, &ValidationError{
			Field:   FieldTable,
			Value:   in.Table,
			Rule:    RuleIdentifier,
			Message: "the table name is not a valid PostgreSQL table name",
		}
	}

	if !ValidIPv4(in.Host) {
		return ImportRequest{}, &ValidationError{
			Field:   FieldHost,
			Value:   in.Host,
			Rule:    RuleIPv4,
			Message: "invalid syntax for host IP address",
		}
	}

	if !v.platform.ValidUsername(in.Username) {
		return ImportRequest{}, &ValidationError{
			Field:   FieldUsername,
			Value:   in.Username,
			Rule:    RuleUsername,
			Message: fmt.Sprintf("the username is not a valid username for %s systems", v.platform),
		}
	}

	srid, err := parseOptionalInt(in.SRID, v.defaultSRID, 0, -1)
	if err != nil {
		return ImportRequest{}, &ValidationError{
			Field:   FieldSRID,
			Value:   in.SRID,
			Rule:    RuleRange,
			Message: "the SRID must be a non-negative integer",
		}
	}

	port, err := parseOptionalInt(in.Port, v.defaultPort, 1, 65535)
	if err != nil {
		return ImportRequest{}, &ValidationError{
			Field:   FieldPort,
			Value:   in.Port,
			Rule:    RuleRange,
			Message: "the port must be an integer between 1 and 65535",
		}
	}

	return ImportRequest{
		ShapefilePath: in.ShapefilePath,
		SRID:          srid,
		Database:      in.Database,
		Table:         in.Table,
		Host:          in.Host,
		Port:          port,
		Username:      in.Username,
	}, nil
}

func (v *Validator) checkShapefile(path string) error {
	info, err := v.stat(path)
	if err != nil {
		return &ValidationError{
			Field:   FieldShapefilePath,
			Value:   path,
			Rule:    RuleFileExists,
			Message: "the shapefile path does not exist",
		}
	}
	if info.IsDir() {
		return &ValidationError{
			Field:   FieldShapefilePath,
			Value:   path,
			Rule:    RuleFileExists,
			Message: "the shapefile path is a directory, not a file",
		}
	}
	return nil
}

// ValidIdentifier reports whether s is a plain PostgreSQL identifier:
// a letter followed by up to 62 letters, digits or underscores.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// ValidIPv4 reports whether s is a dotted-quad IPv4 address whose octets
// are each 1-3 digits with a value of at most 255.
func ValidIPv4(s string) bool {
	if !ipv4Shape.MatchString(s) {
		return false
	}
	for _, octet := range strings.Split(s, ".") {
		n, err := strconv.Atoi(octet)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}

// parseOptionalInt parses s, returning def when s is empty.
// hi < 0 means no upper bound.
func parseOptionalInt(s string, def, lo, hi int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < lo || (hi >= 0 && n > hi) {
		return 0, fmt.Errorf("%d out of range", n)
	}
	return n, nil
}
