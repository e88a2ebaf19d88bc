package common

import (
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer; every observation is then dropped.
type Metrics struct {
	HttpTTFBSeconds     *prometheus.HistogramVec
	HttpReadBodySeconds *prometheus.HistogramVec
	HttpBytesTotal      *prometheus.CounterVec
	HttpErrorsTotal     *prometheus.CounterVec
	CyclesTotal         *prometheus.CounterVec
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		HttpTTFBSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gtfs_http_ttfb_seconds",
				Help:    "Time from HTTP GET to first byte for upstream requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		HttpReadBodySeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gtfs_http_read_body_seconds",
				Help:    "Time to read the body of an upstream HTTP response",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		HttpBytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gtfs_http_bytes_total",
				Help: "Bytes downloaded per upstream endpoint",
			},
			[]string{"endpoint"},
		),
		HttpErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gtfs_http_errors_total",
				Help: "Failed fetches or decodes per upstream endpoint",
			},
			[]string{"endpoint"},
		),
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gtfs_board_cycles_total",
				Help: "Reconciliation cycles by outcome (published, discarded)",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		metrics.HttpTTFBSeconds,
		metrics.HttpReadBodySeconds,
		metrics.HttpBytesTotal,
		metrics.HttpErrorsTotal,
		metrics.CyclesTotal,
	)

	return metrics
}

func (metrics *Metrics) ObserveFetch(endpoint string, ttfb, readBody time.Duration, bytes int) {
	if metrics == nil {
		return
	}
	metrics.HttpTTFBSeconds.WithLabelValues(endpoint).Observe(ttfb.Seconds())
	metrics.HttpReadBodySeconds.WithLabelValues(endpoint).Observe(readBody.Seconds())
	metrics.HttpBytesTotal.WithLabelValues(endpoint).Add(float64(bytes))
}

func (metrics *Metrics) CountError(endpoint string) {
	if metrics == nil {
		return
	}
	metrics.HttpErrorsTotal.WithLabelValues(endpoint).Inc()
}

func (metrics *Metrics) CountCycle(outcome string) {
	if metrics == nil {
		return
	}
	metrics.CyclesTotal.WithLabelValues(outcome).Inc()
}

type TelemetryServer struct {
	addr     string
	mux      *http.ServeMux
	registry *prometheus.Registry
	logger   *slog.Logger

	server   *http.Server
	listener net.Listener
}

func NewTelemetryServer(addr string, logger *slog.Logger) *TelemetryServer {
	telemetry := &TelemetryServer{
		addr:     addr,
		registry: prometheus.NewRegistry(),
		mux:      http.NewServeMux(),
		logger:   logger,
	}

	telemetry.mux.Handle(
		"/metrics",
		promhttp.HandlerFor(telemetry.registry, promhttp.HandlerOpts{}),
	)

	buildInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gtfs_build_info",
			Help: "Build metadata",
		},
		[]string{"version", "git_commit"},
	)

	telemetry.registry.MustRegister(
		collectors.NewGoCollector(), // Go runtime metrics
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		buildInfo,
	)

	buildInfo.WithLabelValues(Version, GitCommit).Set(1)

	telemetry.mux.HandleFunc("/debug/pprof/", pprof.Index)
	telemetry.mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	telemetry.mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	telemetry.mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	telemetry.mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return telemetry
}

func (telemetry *TelemetryServer) GetRegistry() *prometheus.Registry {
	return telemetry.registry
}

func (telemetry *TelemetryServer) Handler() http.Handler {
	return telemetry.mux
}

func (telemetry *TelemetryServer) Start() error {
	telemetry.server = &http.Server{
		Addr:              telemetry.addr,
		Handler:           telemetry.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", telemetry.addr)
	if err != nil {
		return err
	}

	telemetry.listener = listener

	go telemetry.server.Serve(telemetry.listener)

	if telemetry.logger != nil {
		telemetry.logger.Info("telemetry server started", slog.String("addr", listener.Addr().String()))
	}
	return nil
}

func (telemetry *TelemetryServer) Stop() error {
	if telemetry.server == nil {
		return nil
	}

	return telemetry.server.Close()
}
