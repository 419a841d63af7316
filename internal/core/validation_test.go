package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeShapefile creates an empty file standing in for a shapefile.
func writeShapefile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roads.shp")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write shapefile: %v", err)
	}
	return path
}

func validInput(path string) FormInput {
	return FormInput{
		ShapefilePath: path,
		SRID:          "4326",
		Database:      "gis",
		Table:         "roads",
		Host:          "127.0.0.1",
		Port:          "5432",
		Username:      "postgres",
	}
}

func TestValidate_Valid(t *testing.T) {
	path := writeShapefile(t)
	v := NewValidator(PlatformLinux)

	req, err := v.Validate(validInput(path))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	want := ImportRequest{
		ShapefilePath: path,
		SRID:          4326,
		Database:      "gis",
		Table:         "roads",
		Host:          "127.0.0.1",
		Port:          5432,
		Username:      "postgres",
	}
	if req != want {
		t.Errorf("Validate() = %+v, want %+v", req, want)
	}
}

func TestValidate_TrimsWhitespace(t *testing.T) {
	path := writeShapefile(t)
	in := validInput(" " + path + "\t")
	in.Table = "  roads "

	req, err := NewValidator(PlatformLinux).Validate(in)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if req.ShapefilePath != path || req.Table != "roads" {
		t.Errorf("fields not trimmed: %+v", req)
	}
}

func TestValidate_RequiredOrder(t *testing.T) {
	// Every field empty: the shapefile path is reported first, and each
	// subsequent fill moves the report to the next field.
	steps := []struct {
		fill      func(*FormInput)
		wantField string
		wantMsg   string
	}{
		{func(*FormInput) {}, FieldShapefilePath, "you should fill the shapefile path field"},
		{func(in *FormInput) { in.ShapefilePath = "/x.shp" }, FieldDatabase, "you should fill the database name field"},
		{func(in *FormInput) { in.Database = "gis" }, FieldTable, "you should fill the table name field"},
		{func(in *FormInput) { in.Table = "roads" }, FieldHost, "you should fill the host IP address field"},
		{func(in *FormInput) { in.Host = "10.0.0.1" }, FieldUsername, "you should fill the username field"},
	}

	v := NewValidator(PlatformLinux)
	var in FormInput
	for _, step := range steps {
		step.fill(&in)
		_, err := v.Validate(in)

		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Validate(%+v) error = %v, want *ValidationError", in, err)
		}
		if verr.Field != step.wantField || verr.Rule != RuleRequired {
			t.Errorf("Field/Rule = %s/%s, want %s/%s", verr.Field, verr.Rule, step.wantField, RuleRequired)
		}
		if verr.Message != step.wantMsg {
			t.Errorf("Message = %q, want %q", verr.Message, step.wantMsg)
		}
	}
}

func TestValidate_EmptySRIDAndPortUseDefaults(t *testing.T) {
	in := validInput(writeShapefile(t))
	in.SRID = ""
	in.Port = ""

	tests := []struct {
		name     string
		v        *Validator
		wantSRID int
		wantPort int
	}{
		{"built-in defaults", NewValidator(PlatformLinux), 4326, 5432},
		{"configured defaults", NewValidator(PlatformLinux, WithDefaults(2154, 6543)), 2154, 6543},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := tt.v.Validate(in)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if req.SRID != tt.wantSRID || req.Port != tt.wantPort {
				t.Errorf("SRID/Port = %d/%d, want %d/%d", req.SRID, req.Port, tt.wantSRID, tt.wantPort)
			}
		})
	}
}

func TestValidate_Failures(t *testing.T) {
	path := writeShapefile(t)

	tests := []struct {
		name      string
		platform  Platform
		modify    func(*FormInput)
		wantField string
		wantRule  Rule
		wantMsg   string
	}{
		{
			name:      "missing shapefile",
			modify:    func(in *FormInput) { in.ShapefilePath = filepath.Join(filepath.Dir(path), "missing.shp") },
			wantField: FieldShapefilePath,
			wantRule:  RuleFileExists,
			wantMsg:   "the shapefile path does not exist",
		},
		{
			name:      "shapefile is a directory",
			modify:    func(in *FormInput) { in.ShapefilePath = filepath.Dir(path) },
			wantField: FieldShapefilePath,
			wantRule:  RuleFileExists,
		},
		{
			name:      "database starts with digit",
			modify:    func(in *FormInput) { in.Database = "1gis" },
			wantField: FieldDatabase,
			wantRule:  RuleIdentifier,
			wantMsg:   "the database name is not a valid PostgreSQL database name",
		},
		{
			name:      "database with hyphen",
			modify:    func(in *FormInput) { in.Database = "my-db" },
			wantField: FieldDatabase,
			wantRule:  RuleIdentifier,
		},
		{
			name:      "table too long",
			modify:    func(in *FormInput) { in.Table = "t" + strings.Repeat("a", 63) },
			wantField: FieldTable,
			wantRule:  RuleIdentifier,
			wantMsg:   "the table name is not a valid PostgreSQL table name",
		},
		{
			name:      "table with quote",
			modify:    func(in *FormInput) { in.Table = `roads"; drop` },
			wantField: FieldTable,
			wantRule:  RuleIdentifier,
		},
		{
			name:      "octet above 255",
			modify:    func(in *FormInput) { in.Host = "999.1.1.1" },
			wantField: FieldHost,
			wantRule:  RuleIPv4,
			wantMsg:   "invalid syntax for host IP address",
		},
		{
			name:      "hostname instead of address",
			modify:    func(in *FormInput) { in.Host = "localhost" },
			wantField: FieldHost,
			wantRule:  RuleIPv4,
		},
		{
			name:      "linux rejects uppercase",
			platform:  PlatformLinux,
			modify:    func(in *FormInput) { in.Username = "Postgres" },
			wantField: FieldUsername,
			wantRule:  RuleUsername,
			wantMsg:   "the username is not a valid username for Linux systems",
		},
		{
			name:      "windows rejects long name",
			platform:  PlatformWindows,
			modify:    func(in *FormInput) { in.Username = "a" + strings.Repeat("b", 20) },
			wantField: FieldUsername,
			wantRule:  RuleUsername,
			wantMsg:   "the username is not a valid username for Windows systems",
		},
		{
			name:      "macos rejects leading digit",
			platform:  PlatformMacOS,
			modify:    func(in *FormInput) { in.Username = "1admin" },
			wantField: FieldUsername,
			wantRule:  RuleUsername,
			wantMsg:   "the username is not a valid username for MacOS systems",
		},
		{
			name:      "negative srid",
			modify:    func(in *FormInput) { in.SRID = "-1" },
			wantField: FieldSRID,
			wantRule:  RuleRange,
		},
		{
			name:      "non-numeric port",
			modify:    func(in *FormInput) { in.Port = "http" },
			wantField: FieldPort,
			wantRule:  RuleRange,
		},
		{
			name:      "port out of range",
			modify:    func(in *FormInput) { in.Port = "70000" },
			wantField: FieldPort,
			wantRule:  RuleRange,
		},
		{
			name: "first failure wins",
			modify: func(in *FormInput) {
				in.Database = "1bad"
				in.Host = "999.0.0.1"
			},
			wantField: FieldDatabase,
			wantRule:  RuleIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(path)
			tt.modify(&in)

			_, err := NewValidator(tt.platform).Validate(in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
			if verr.Rule != tt.wantRule {
				t.Errorf("Rule = %q, want %q", verr.Rule, tt.wantRule)
			}
			if tt.wantMsg != "" && verr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", verr.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"roads", true},
		{"Roads_2024", true},
		{"a", true},
		{"a" + strings.Repeat("b", 62), true},
		{"a" + strings.Repeat("b", 63), false},
		{"", false},
		{"_roads", false},
		{"9roads", false},
		{"roads table", false},
		{"schema.roads", false},
	}
	for _, tt := range tests {
		if got := ValidIdentifier(tt.in); got != tt.want {
			t.Errorf("ValidIdentifier(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidIPv4(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"127.0.0.1", true},
		{"0.0.0.0", true},
		{"255.255.255.255", true},
		{"010.1.1.1", true},
		{"256.0.0.1", false},
		{"999.1.1.1", false},
		{"1.2.3", false},
		{"1.2.3.4.5", false},
		{"1.2.3.1234", false},
		{"a.b.c.d", false},
		{"::1", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidIPv4(tt.in); got != tt.want {
			t.Errorf("ValidIPv4(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPlatformValidUsername(t *testing.T) {
	tests := []struct {
		platform Platform
		name     string
		want     bool
	}{
		{PlatformLinux, "postgres", true},
		{PlatformLinux, "_svc-gis", true},
		{PlatformLinux, "gis.admin", false},
		{PlatformLinux, strings.Repeat("a", 33), false},
		{PlatformWindows, "Admin.User", true},
		{PlatformWindows, "_admin", false},
		{PlatformMacOS, "Jane.Doe", true},
		{PlatformMacOS, strings.Repeat("a", 31), true},
		{PlatformMacOS, strings.Repeat("a", 32), false},
	}
	for _, tt := range tests {
		if got := tt.platform.ValidUsername(tt.name); got != tt.want {
			t.Errorf("%s.ValidUsername(%q) = %v, want %v", tt.platform, tt.name, got, tt.want)
		}
	}
}

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		in      string
		want    Platform
		wantErr bool
	}{
		{"linux", PlatformLinux, false},
		{"Unix", PlatformLinux, false},
		{"windows", PlatformWindows, false},
		{"darwin", PlatformMacOS, false},
		{"macOS", PlatformMacOS, false},
		{"auto", HostPlatform(), false},
		{"", HostPlatform(), false},
		{"plan9", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePlatform(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePlatform(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParsePlatform(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
