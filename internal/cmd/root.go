package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tarediiran-industries.com/gtfs-board/internal/common"
	"tarediiran-industries.com/gtfs-board/internal/feeds"
	"tarediiran-industries.com/gtfs-board/internal/logging"
	"tarediiran-industries.com/gtfs-board/internal/schedule"
	"tarediiran-industries.com/gtfs-board/internal/web/gtfs_board"
)

type GtfsCtlApp struct {
	ConfigPath string
	ApiBaseUrl string
	FeedUrl    string
	Timezone   string
	LogLevel   string
}

// session bundles the clients every subcommand talks through.
type session struct {
	cfg      gtfs_board.Config
	location *time.Location
	schedule *schedule.Client
	fetcher  *feeds.Fetcher
	logger   *slog.Logger
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &GtfsCtlApp{}
	rootCmd := NewRootCmd(app)
	return rootCmd.ExecuteContext(ctx)
}

func NewRootCmd(app *GtfsCtlApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gtfs-ctl",
		Short:         "CLI tool used to inspect the station board backend and real-time feed",
		Version:       fmt.Sprintf("%s (%s)", common.Version, common.GitCommit),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "toml", "", "Path to a gtfs-board configuration file")
	cmd.PersistentFlags().StringVar(&app.ApiBaseUrl, "api", "", "Backend API base URL")
	cmd.PersistentFlags().StringVar(&app.FeedUrl, "feed", "", "GTFS-Realtime trip updates URL")
	cmd.PersistentFlags().StringVar(&app.Timezone, "timezone", "", "Timezone for feed times")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(NewStationsCmd(app))
	cmd.AddCommand(NewBoardCmd(app))
	cmd.AddCommand(NewFeedCmd(app))
	cmd.AddCommand(NewHealthCmd(app))

	return cmd
}

// Config resolves the board configuration the same way gtfs-board does, so
// both binaries read the same TOML file.
func (app *GtfsCtlApp) Config() (gtfs_board.Config, error) {
	args := []string{}
	if app.ConfigPath != "" {
		args = append(args, "-toml", app.ConfigPath)
	}
	if app.ApiBaseUrl != "" {
		args = append(args, "-api", app.ApiBaseUrl)
	}
	if app.FeedUrl != "" {
		args = append(args, "-feed", app.FeedUrl)
	}
	if app.Timezone != "" {
		args = append(args, "-timezone", app.Timezone)
	}
	return gtfs_board.ParseArgs("gtfs-ctl", args, io.Discard)
}

func (app *GtfsCtlApp) backend(cmd *cobra.Command) (*session, error) {
	cfg, err := app.Config()
	if err != nil {
		return nil, err
	}

	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	logger := logging.NewStructuredLogger(cmd.ErrOrStderr(), logging.ParseLevel(app.LogLevel))
	httpClient := &http.Client{Timeout: 15 * time.Second}

	return &session{
		cfg:      cfg,
		location: location,
		schedule: schedule.NewClient(cfg.ApiBaseUrl, httpClient, nil, logger),
		fetcher: feeds.NewFetcher(cfg.FeedUrl, gtfs_board.NewDecoder(cfg, location),
			feeds.WithHTTPClient(httpClient),
			feeds.WithLogger(logger)),
		logger: logger,
	}, nil
}
