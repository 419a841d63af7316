package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPgTableChecker_ConnString(t *testing.T) {
	tests := []struct {
		name    string
		checker *PgTableChecker
		params  ConnParams
		want    string
	}{
		{
			name:    "plain values",
			checker: NewPgTableChecker(10*time.Second, "prefer"),
			params:  ConnParams{Host: "127.0.0.1", Port: 5432, User: "postgres", Database: "gis"},
			want:    "host=127.0.0.1 port=5432 user=postgres dbname=gis application_name=shp2pg sslmode=prefer connect_timeout=10",
		},
		{
			name:    "no sslmode or timeout",
			checker: NewPgTableChecker(0, ""),
			params:  ConnParams{Host: "10.1.2.3", Port: 6543, User: "gis_admin", Database: "maps"},
			want:    "host=10.1.2.3 port=6543 user=gis_admin dbname=maps application_name=shp2pg",
		},
		{
			name:    "quoted values",
			checker: NewPgTableChecker(0, ""),
			params:  ConnParams{Host: "127.0.0.1", Port: 5432, User: `o'brien`, Database: ""},
			want:    `host=127.0.0.1 port=5432 user='o\'brien' dbname='' application_name=shp2pg`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.checker.ConnString(tt.params); got != tt.want {
				t.Errorf("ConnString() =\n  %s\nwant\n  %s", got, tt.want)
			}
		})
	}
}

func TestQuoteConnValue(t *testing.T) {
	tests := map[string]string{
		"gis":      "gis",
		"":         "''",
		"my db":    "'my db'",
		`a\b`:      `'a\\b'`,
		`it's`:     `'it\'s'`,
		"tab\there": "'tab\there'",
	}
	for in, want := range tests {
		if got := quoteConnValue(in); got != want {
			t.Errorf("quoteConnValue(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPgTableChecker_UnreachableIsConnectionError(t *testing.T) {
	checker := NewPgTableChecker(time.Second, "disable")
	// Port 1 on loopback is reserved and refuses connections.
	params := ConnParams{Host: "127.0.0.1", Port: 1, User: "postgres", Database: "gis"}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := checker.TableExists(ctx, params, "public", "roads")
	if exists {
		t.Error("TableExists() = true for unreachable server")
	}
	var cerr *ConnectionError
	if !errors.As(err, &cerr) {
		t.Fatalf("TableExists() error = %v, want *ConnectionError", err)
	}
	if cerr.Port != 1 || cerr.Database != "gis" {
		t.Errorf("ConnectionError = %+v", cerr)
	}
}
