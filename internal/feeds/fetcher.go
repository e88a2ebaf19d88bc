package feeds

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tarediiran-industries.com/gtfs-board/internal/common"
	"tarediiran-industries.com/gtfs-board/internal/logging"
	"tarediiran-industries.com/gtfs-board/internal/transit"
)

const metricsEndpoint = "gtfs_rt_feed"

type Fetcher struct {
	url     string
	client  *http.Client
	decoder Decoder
	metrics *common.Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.RWMutex
	lastUpdate time.Time
}

type FetcherOption func(*Fetcher)

func WithHTTPClient(client *http.Client) FetcherOption {
	return func(fetcher *Fetcher) { fetcher.client = client }
}

func WithMetrics(metrics *common.Metrics) FetcherOption {
	return func(fetcher *Fetcher) { fetcher.metrics = metrics }
}

func WithLogger(logger *slog.Logger) FetcherOption {
	return func(fetcher *Fetcher) { fetcher.logger = logger }
}

func WithClock(now func() time.Time) FetcherOption {
	return func(fetcher *Fetcher) { fetcher.now = now }
}

func NewFetcher(url string, decoder Decoder, opts ...FetcherOption) *Fetcher {
	fetcher := &Fetcher{
		url:     url,
		client:  &http.Client{Timeout: 15 * time.Second},
		decoder: decoder,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	fetcher.logger = fetcher.logger.With(slog.String("component", "feed_fetcher"))
	return fetcher
}

func (fetcher *Fetcher) URL() string {
	return fetcher.url
}

// Fetch downloads and decodes the feed. Any failure is logged and yields an
// empty update, so callers can always reconcile against the result.
func (fetcher *Fetcher) Fetch(ctx context.Context) transit.RealtimeUpdate {
	data, err := fetcher.FetchRaw(ctx)
	if err != nil {
		fetcher.metrics.CountError(metricsEndpoint)
		logging.LogError(fetcher.logger, "failed to fetch real-time feed", err,
			slog.String("url", fetcher.url))
		return transit.RealtimeUpdate{}
	}

	update, err := fetcher.decoder.Decode(data)
	if err != nil {
		fetcher.metrics.CountError(metricsEndpoint)
		logging.LogError(fetcher.logger, "failed to decode real-time feed", err,
			slog.String("url", fetcher.url),
			slog.Int("bytes", len(data)))
		return transit.RealtimeUpdate{}
	}
	if update == nil {
		update = transit.RealtimeUpdate{}
	}

	fetcher.mu.Lock()
	fetcher.lastUpdate = fetcher.now()
	fetcher.mu.Unlock()

	fetcher.logger.Debug("fetched real-time feed",
		slog.Int("bytes", len(data)),
		slog.Int("trips", len(update)))
	return update
}

// FetchRaw returns the undecoded payload.
func (fetcher *Fetcher) FetchRaw(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetcher.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := fetcher.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, fetcher.logger, "http_response_body")
	ttfb := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	readStart := time.Now()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	fetcher.metrics.ObserveFetch(metricsEndpoint, ttfb, time.Since(readStart), len(body))
	return body, nil
}

// LastUpdate is the time of the last fetch that was both downloaded and
// decoded. Failed attempts leave it unchanged, so it is zero until the first
// success and the board shows N/A.
func (fetcher *Fetcher) LastUpdate() time.Time {
	fetcher.mu.RLock()
	defer fetcher.mu.RUnlock()
	return fetcher.lastUpdate
}
