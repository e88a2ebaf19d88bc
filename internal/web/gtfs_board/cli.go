package gtfs_board

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"

	"tarediiran-industries.com/gtfs-board/internal/common"
	"tarediiran-industries.com/gtfs-board/internal/logging"
	"tarediiran-industries.com/gtfs-board/internal/transit"
)

const (
	DefaultListenAddress     = ":8000"
	DefaultApiBaseUrl        = "http://localhost:8080"
	DefaultFeedUrl           = "https://gtfsrt.renfe.com/trip_updates.pb"
	DefaultRefreshIntervalMs = 30000
	DefaultTimezone          = "Europe/Madrid"

	FeedDecoderGtfsRt = "gtfs-rt"
	FeedDecoderStatic = "static"
)

type ConfigFile struct {
	ListenAddress     string `toml:"listen"`
	ApiBaseUrl        string `toml:"api_base_url"`
	FeedUrl           string `toml:"feed_url"`
	RefreshIntervalMs int    `toml:"refresh_interval_ms"`
	FeedDecoder       string `toml:"feed_decoder"`
	Timezone          string `toml:"timezone"`
	MetricsAddress    string `toml:"metrics"`
	LogLevel          string `toml:"log_level"`

	// trip_id -> stop_id -> "HH:MM:SS", used by the static decoder
	StaticFeed map[string]map[string]string `toml:"static_feed"`
}

type Config struct {
	Version bool

	TomlConfigPath string

	ListenAddress     string `validate:"required"`
	ApiBaseUrl        string `validate:"required,url"`
	FeedUrl           string `validate:"required,url"`
	RefreshIntervalMs int    `validate:"gt=0"`
	FeedDecoder       string `validate:"oneof=gtfs-rt static"`
	Timezone          string `validate:"required,timezone"`
	MetricsAddress    string
	LogLevel          string

	StaticFeed transit.RealtimeUpdate
}

func LoadConfigFromToml(path string) (ConfigFile, error) {
	var cfg ConfigFile
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return ConfigFile{}, err
	}

	return cfg, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func ParseArgs(programName string, args []string, errOut io.Writer) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errOut)

	fs.Usage = func() {
		fmt.Fprintf(errOut, "Usage: %s [options]\n\n", programName)
		fmt.Fprintln(errOut, "Options")
		fs.PrintDefaults()
	}

	fs.BoolVar(&cfg.Version, "version", false, "Prints CLI version")

	fs.StringVar(&cfg.TomlConfigPath, "toml", "", "Configuration file; flags take precedence")
	fs.StringVar(&cfg.ListenAddress, "listen", "", "Listen address (default \":8000\")")
	fs.StringVar(&cfg.ApiBaseUrl, "api", "", "Backend API base URL (default http://localhost:8080)")
	fs.StringVar(&cfg.FeedUrl, "feed", "", "GTFS-Realtime trip updates URL")
	fs.IntVar(&cfg.RefreshIntervalMs, "refresh-ms", 0, "Refresh interval in milliseconds (default 30000)")
	fs.StringVar(&cfg.FeedDecoder, "decoder", "", "Feed decoder: gtfs-rt or static (default gtfs-rt)")
	fs.StringVar(&cfg.Timezone, "timezone", "", "Timezone for estimated and last-update times (default Europe/Madrid)")
	fs.StringVar(&cfg.MetricsAddress, "metrics", "", "Prometheus/pprof listen address; disabled when empty")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Version {
		fmt.Fprintf(errOut, "%s: version %s (%s)\n", programName, common.Version, common.GitCommit)
		return Config{}, flag.ErrHelp
	}

	var tomlCfg ConfigFile
	if cfg.TomlConfigPath != "" {
		loaded, err := LoadConfigFromToml(cfg.TomlConfigPath)
		if err != nil {
			return Config{}, fmt.Errorf("LoadConfigFromToml: %w", err)
		}
		tomlCfg = loaded
	}

	cfg.ListenAddress = orDefault(orDefault(cfg.ListenAddress, tomlCfg.ListenAddress), DefaultListenAddress)
	cfg.ApiBaseUrl = orDefault(orDefault(cfg.ApiBaseUrl, tomlCfg.ApiBaseUrl), DefaultApiBaseUrl)
	cfg.FeedUrl = orDefault(orDefault(cfg.FeedUrl, tomlCfg.FeedUrl), DefaultFeedUrl)
	cfg.FeedDecoder = orDefault(orDefault(cfg.FeedDecoder, tomlCfg.FeedDecoder), FeedDecoderGtfsRt)
	cfg.Timezone = orDefault(orDefault(cfg.Timezone, tomlCfg.Timezone), DefaultTimezone)
	cfg.MetricsAddress = orDefault(cfg.MetricsAddress, tomlCfg.MetricsAddress)
	cfg.LogLevel = orDefault(cfg.LogLevel, tomlCfg.LogLevel)

	if cfg.RefreshIntervalMs == 0 {
		cfg.RefreshIntervalMs = tomlCfg.RefreshIntervalMs
	}
	if cfg.RefreshIntervalMs == 0 {
		cfg.RefreshIntervalMs = DefaultRefreshIntervalMs
	}

	cfg.StaticFeed = transit.RealtimeUpdate(tomlCfg.StaticFeed).Clone()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (cfg Config) Validate() error {
	return common.ValidateStruct(cfg)
}

func (cfg Config) RefreshInterval() time.Duration {
	return time.Duration(cfg.RefreshIntervalMs) * time.Millisecond
}

// PollSeconds is how often the page asks for the trains partial; at least once a second.
func (cfg Config) PollSeconds() int {
	seconds := cfg.RefreshIntervalMs / 1000
	if seconds < 1 {
		return 1
	}
	return seconds
}

func (cfg Config) Location() (*time.Location, error) {
	return time.LoadLocation(cfg.Timezone)
}

func Main(programName string, args []string, stdOut, errOut io.Writer) int {
	cfg, err := ParseArgs(programName, args, errOut)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(errOut, "Error:", err)
		return 2
	}

	logger := logging.NewStructuredLogger(errOut, logging.ParseLevel(cfg.LogLevel))
	return Run(cfg, logger)
}
