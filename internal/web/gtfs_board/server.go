package gtfs_board

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tarediiran-industries.com/gtfs-board/internal/logging"
	"tarediiran-industries.com/gtfs-board/internal/transit"
)

// StationPicker is the part of board.Selector the pages use.
type StationPicker interface {
	Stations() []transit.Station
	ErrorMessage() string
	Select(stopID string) (transit.Station, error)
}

type GtfsBoardServer struct {
	selector    StationPicker
	store       *BoardStore
	renderer    *Renderer
	location    *time.Location
	pollSeconds int
	logger      *slog.Logger

	router chi.Router
	server *http.Server
}

func NewGtfsBoardServer(listenAddr string, selector StationPicker, store *BoardStore, location *time.Location, pollSeconds int, logger *slog.Logger) (*GtfsBoardServer, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.NewRequestLoggingMiddleware(logger))
	router.Use(middleware.Recoverer)

	server := &GtfsBoardServer{
		selector:    selector,
		store:       store,
		renderer:    renderer,
		location:    location,
		pollSeconds: pollSeconds,
		logger:      logger,
		router:      router,
		server: &http.Server{
			Addr:              listenAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	router.Get("/", func(writer http.ResponseWriter, request *http.Request) {
		http.Redirect(writer, request, "/board", http.StatusFound)
	})
	router.Get("/board", server.handleBoardPage)
	router.Post("/board/select", server.handleSelect)
	router.Get("/board/partial", server.handleTrainsPartial)
	router.Get("/api/board", server.handleBoardSnapshot)

	return server, nil
}

func (server *GtfsBoardServer) Handler() http.Handler {
	return server.router
}

func (server *GtfsBoardServer) Serve(ctx context.Context) error {
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
