package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// tableExistsQuery looks for a table of the given name in one schema only.
// shp2pgsql folds the table name to lower case, so the match ignores case.
const tableExistsQuery = `SELECT EXISTS (
	SELECT 1 FROM information_schema.tables
	WHERE table_schema = $1 AND lower(table_name) = lower($2)
)`

// TableChecker answers whether a destination table already exists.
type TableChecker interface {
	TableExists(ctx context.Context, conn ConnParams, schema, table string) (bool, error)
}

// PgTableChecker checks the PostgreSQL catalog over a short-lived connection.
type PgTableChecker struct {
	ConnectTimeout time.Duration
	SSLMode        string
}

// NewPgTableChecker creates a checker with the given connect timeout and sslmode.
func NewPgTableChecker(connectTimeout time.Duration, sslMode string) *PgTableChecker {
	return &PgTableChecker{ConnectTimeout: connectTimeout, SSLMode: sslMode}
}

// ConnString builds a keyword/value connection string for p. There is no
// password; libpq-style environment variables and .pgpass still apply.
func (c *PgTableChecker) ConnString(p ConnParams) string {
	parts := []string{
		"host=" + quoteConnValue(p.Host),
		"port=" + strconv.Itoa(p.Port),
		"user=" + quoteConnValue(p.User),
		"dbname=" + quoteConnValue(p.Database),
		"application_name=shp2pg",
	}
	if c.SSLMode != "" {
		parts = append(parts, "sslmode="+quoteConnValue(c.SSLMode))
	}
	if secs := int(c.ConnectTimeout / time.Second); secs > 0 {
		parts = append(parts, "connect_timeout="+strconv.Itoa(secs))
	}
	return strings.Join(parts, " ")
}

// TableExists reports whether schema.table exists in the target database.
func (c *PgTableChecker) TableExists(ctx context.Context, p ConnParams, schema, table string) (bool, error) {
	cfg, err := pgx.ParseConfig(c.ConnString(p))
	if err != nil {
		return false, &ConnectionError{Host: p.Host, Port: p.Port, Database: p.Database, Err: err}
	}

	connectCtx := ctx
	if c.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, c.ConnectTimeout)
		defer cancel()
	}

	conn, err := pgx.ConnectConfig(connectCtx, cfg)
	if err != nil {
		return false, &ConnectionError{Host: p.Host, Port: p.Port, Database: p.Database, Err: err}
	}
	defer conn.Close(context.Background())

	var exists bool
	if err := conn.QueryRow(ctx, tableExistsQuery, schema, table).Scan(&exists); err != nil {
		return false, &QueryError{Query: tableExistsQuery, Err: err}
	}
	return exists, nil
}

// quoteConnValue quotes a connection string value when it is empty or
// contains characters that would split it.
func quoteConnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n'\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return fmt.Sprintf("'%s'", v)
}
