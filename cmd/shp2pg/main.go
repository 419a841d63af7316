// shp2pg - import an ESRI shapefile into a PostGIS table
//
// Runs shp2pgsql | psql for one shapefile after validating the request and
// making sure the destination table does not exist yet.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/shp2pg/internal/config"
	"github.com/JonMunkholm/shp2pg/internal/core"
	"github.com/JonMunkholm/shp2pg/internal/logging"
)

var (
	progname = "shp2pg"
	version  = "0.1.0"
	date     = "2026-10-19"
)

// Exit codes.
const (
	exitSuccess = 0
	exitError   = 1
	exitWarning = 2 // destination table already exists
)

// OptsT defines the command-line options. Empty values are left to the
// validator, which reports them with the same messages as the web form.
type OptsT struct {
	File     string `short:"f" long:"file" env:"SHP2PG_FILE" description:"Shapefile (.shp) to import"`
	SRID     string `short:"s" long:"srid" env:"SHP2PG_SRID" description:"Spatial reference ID (default: IMPORT_DEFAULT_SRID or 4326)"`
	DBName   string `short:"d" long:"dbname" env:"SHP2PG_DBNAME" description:"Target database name"`
	Table    string `short:"t" long:"table" env:"SHP2PG_TABLE" description:"Destination table; must not exist yet"`
	Host     string `short:"H" long:"host" env:"SHP2PG_HOST" description:"Database server IPv4 address"`
	Port     string `short:"p" long:"port" env:"SHP2PG_PORT" description:"Database server port (default: IMPORT_DEFAULT_PORT or 5432)"`
	Username string `short:"U" long:"username" env:"SHP2PG_USERNAME" description:"Database user"`
	Platform string `long:"platform" env:"IMPORT_TARGET_PLATFORM" description:"Username convention to enforce" choice:"auto" choice:"linux" choice:"windows" choice:"macos"`
	Verbose  []bool `short:"v" long:"verbose" description:"Verbose mode (Multiple -v options increase the verbosity)"`
	Version  bool   `long:"version" description:"Show program version and exit"`
}

func (o OptsT) formInput() core.FormInput {
	return core.FormInput{
		ShapefilePath: o.File,
		SRID:          o.SRID,
		Database:      o.DBName,
		Table:         o.Table,
		Host:          o.Host,
		Port:          o.Port,
		Username:      o.Username,
	}
}

func main() {
	// .env fills in settings without overriding the caller's environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args, performs one import and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...core.Option) int {
	var o OptsT
	parser := flags.NewParser(&o, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = progname

	if _, err := parser.ParseArgs(args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, err)
			return exitSuccess
		}
		fmt.Fprintf(stderr, "%s: %v\n\n", progname, err)
		parser.WriteHelp(stderr)
		return exitError
	}

	if o.Version {
		showVersion(stdout)
		return exitSuccess
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", progname, err)
		return exitError
	}
	if o.Platform != "" {
		cfg.Import.TargetPlatform = o.Platform
	}

	level := "warn"
	switch {
	case len(o.Verbose) >= 2:
		level = "debug"
	case len(o.Verbose) == 1:
		level = "info"
	}
	logging.SetupWriter(level, cfg.Logging.Format, stderr)

	service, err := core.NewService(cfg, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", progname, err)
		return exitError
	}

	rep := service.Submit(ctx, o.formInput())
	printReport(stdout, rep)

	switch rep.Outcome {
	case core.OutcomeSuccess:
		return exitSuccess
	case core.OutcomeWarning:
		return exitWarning
	default:
		return exitError
	}
}

// printReport writes the outcome the way the form's result panel shows it.
func printReport(w io.Writer, rep core.Report) {
	fmt.Fprintln(w, rep.Title)
	if rep.Code != "" {
		fmt.Fprintf(w, "%s (Code: %s)\n", rep.Message, rep.Code)
	} else {
		fmt.Fprintln(w, rep.Message)
	}
	if rep.Action != "" {
		fmt.Fprintln(w, rep.Action)
	}
	if rep.Detail != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, strings.TrimRight(rep.Detail, "\n"))
	}
}

func showVersion(w io.Writer) {
	fmt.Fprintf(w, "%s - shapefile to PostGIS importer, version %s\n", progname, version)
	fmt.Fprintf(w, "Built on %s\n", date)
}
