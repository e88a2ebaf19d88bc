package gtfs_board

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tarediiran-industries.com/gtfs-board/internal/board"
	"tarediiran-industries.com/gtfs-board/internal/common"
	"tarediiran-industries.com/gtfs-board/internal/feeds"
	"tarediiran-industries.com/gtfs-board/internal/logging"
	"tarediiran-industries.com/gtfs-board/internal/schedule"
)

func NewDecoder(cfg Config, location *time.Location) feeds.Decoder {
	if cfg.FeedDecoder == FeedDecoderStatic {
		return feeds.StaticDecoder{Update: cfg.StaticFeed}
	}
	return feeds.TripUpdateDecoder{Location: location}
}

func Run(cfg Config, logger *slog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	location, err := cfg.Location()
	if err != nil {
		logging.LogError(logger, "invalid timezone", err, slog.String("timezone", cfg.Timezone))
		return 2
	}

	var metrics *common.Metrics
	if cfg.MetricsAddress != "" {
		telemetry := common.NewTelemetryServer(cfg.MetricsAddress, logger)
		metrics = common.NewMetrics(telemetry.GetRegistry())
		if err := telemetry.Start(); err != nil {
			logging.LogError(logger, "failed to start telemetry server", err)
			return 1
		}
		defer telemetry.Stop()
	}

	httpClient := &http.Client{Timeout: 15 * time.Second}
	fetcher := feeds.NewFetcher(cfg.FeedUrl, NewDecoder(cfg, location),
		feeds.WithHTTPClient(httpClient),
		feeds.WithMetrics(metrics),
		feeds.WithLogger(logger))
	scheduleClient := schedule.NewClient(cfg.ApiBaseUrl, httpClient, metrics, logger)

	store := NewBoardStore()
	controller := board.NewController(
		&board.Cycle{Schedule: scheduleClient, Feed: fetcher},
		store,
		cfg.RefreshInterval(),
		metrics,
		logger)
	defer controller.Stop()

	selector := board.NewSelector(scheduleClient, newStationSelection(store, controller), logger)
	// A failure is kept by the selector and shown on the page.
	_ = selector.Load(ctx)

	server, err := NewGtfsBoardServer(cfg.ListenAddress, selector, store, location, cfg.PollSeconds(), logger)
	if err != nil {
		logging.LogError(logger, "failed to create board server", err)
		return 1
	}

	logging.LogOperation(logger, "board_started",
		slog.String("api", cfg.ApiBaseUrl),
		slog.String("feed", cfg.FeedUrl),
		slog.String("decoder", cfg.FeedDecoder),
		slog.Duration("refresh_interval", cfg.RefreshInterval()))

	if err := server.Serve(ctx); err != nil {
		logging.LogError(logger, "board server failed", err)
		return 1
	}
	return 0
}
