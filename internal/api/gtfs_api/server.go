package gtfs_api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"tarediiran-industries.com/gtfs-board/internal/logging"
)

type GtfsApiServer struct {
	repository     Repository
	server         *http.Server
	router         chi.Router
	logger         *slog.Logger
	location       *time.Location
	scheduledLimit int
	now            func() time.Time
}

type ServerOptions struct {
	ListenAddress  string
	AllowedOrigins []string
	Location       *time.Location
	ScheduledLimit int
	Now            func() time.Time
}

func NewGtfsApiServer(repository Repository, options ServerOptions, logger *slog.Logger) *GtfsApiServer {
	if options.Location == nil {
		options.Location = time.Local
	}
	if options.ScheduledLimit <= 0 {
		options.ScheduledLimit = DefaultScheduledLimit
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	if len(options.AllowedOrigins) == 0 {
		options.AllowedOrigins = []string{"*"}
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.NewRequestLoggingMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: options.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	server := &GtfsApiServer{
		repository: repository,
		server: &http.Server{
			Addr:              options.ListenAddress,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		router:         router,
		logger:         logger,
		location:       options.Location,
		scheduledLimit: options.ScheduledLimit,
		now:            options.Now,
	}

	router.Get("/health", server.handleHealth)
	router.Get("/api/stations", server.handleStations)
	router.Get("/api/station/{stop_id}/scheduled", server.handleScheduled)

	return server
}

func (server *GtfsApiServer) Handler() http.Handler {
	return server.router
}

func (server *GtfsApiServer) Serve(ctx context.Context) error {
	errs := make(chan error, 1)
	go func() {
		server.logger.Info("listening", slog.String("addr", server.server.Addr))
		errs <- server.server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	server.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.server.Shutdown(shutdownCtx)
}
