package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/shp2pg/internal/config"
	"github.com/JonMunkholm/shp2pg/internal/core"
	"github.com/JonMunkholm/shp2pg/internal/logging"
	"github.com/JonMunkholm/shp2pg/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if cfg.Logging.File != "" {
		logFile := logging.RotatingFile(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups, cfg.Logging.MaxAgeDays)
		defer logFile.Close()
		logging.SetupWriter(cfg.Logging.Level, cfg.Logging.Format, logFile)
	} else {
		logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	}

	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"platform", cfg.Import.TargetPlatform,
		"schema", cfg.Database.Schema,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Missing tools are reported per import as PIPE002; warn early as well.
	for _, tool := range []string{cfg.Tools.Shp2pgsqlPath, cfg.Tools.PsqlPath} {
		if path, err := exec.LookPath(tool); err != nil {
			slog.Warn("import tool not found", "tool", tool, "error", err)
		} else {
			slog.Debug("import tool found", "tool", tool, "path", path)
		}
	}

	service, err := core.NewService(cfg)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(cfg, service)

	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop accepting work, then give running pipelines the rest of the budget.
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
