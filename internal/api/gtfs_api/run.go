package gtfs_api

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tarediiran-industries.com/gtfs-board/internal/common"
	"tarediiran-industries.com/gtfs-board/internal/db"
	"tarediiran-industries.com/gtfs-board/internal/logging"
)

func Run(cfg Config, logger *slog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	location, err := cfg.Location()
	if err != nil {
		logging.LogError(logger, "invalid timezone", err, slog.String("timezone", cfg.Timezone))
		return 2
	}

	database, err := db.NewDatabaseConnection(ctx, cfg.DatabaseConnection)
	if err != nil {
		logging.LogError(logger, "failed to open database", err)
		return 1
	}
	defer logging.SafeCloseWithLogging(database, logger, "database")

	logging.LogOperation(logger, "database_connected", slog.String("driver", database.Driver()))

	if cfg.MetricsAddress != "" {
		telemetry := common.NewTelemetryServer(cfg.MetricsAddress, logger)
		if err := telemetry.Start(); err != nil {
			logging.LogError(logger, "failed to start telemetry server", err)
			return 1
		}
		defer telemetry.Stop()
	}

	server := NewGtfsApiServer(NewSQLRepository(database), ServerOptions{
		ListenAddress:  cfg.ListenAddress,
		AllowedOrigins: cfg.AllowedOrigins,
		Location:       location,
		ScheduledLimit: cfg.ScheduledLimit,
	}, logger)

	if err := server.Serve(ctx); err != nil {
		logging.LogError(logger, "api server failed", err)
		return 1
	}
	return 0
}
