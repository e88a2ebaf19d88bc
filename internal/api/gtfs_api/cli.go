package gtfs_api

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"tarediiran-industries.com/gtfs-board/internal/common"
	"tarediiran-industries.com/gtfs-board/internal/logging"
)

const (
	DefaultListenAddress  = ":8080"
	DefaultDatabase       = "horarios.db"
	DefaultTimezone       = "Europe/Madrid"
	DefaultScheduledLimit = 10
)

type ConfigFile struct {
	ListenAddress  string   `toml:"listen"`
	Database       string   `toml:"database"`
	Timezone       string   `toml:"timezone"`
	ScheduledLimit int      `toml:"scheduled_limit"`
	AllowedOrigins []string `toml:"allowed_origins"`
	MetricsAddress string   `toml:"metrics"`
	LogLevel       string   `toml:"log_level"`
}

type Config struct {
	Version bool

	TomlConfigPath string
	EnvFile        string

	ListenAddress      string `validate:"required"`
	DatabaseConnection string `validate:"required"`
	Timezone           string `validate:"required,timezone"`
	ScheduledLimit     int    `validate:"gt=0"`
	AllowedOrigins     []string
	MetricsAddress     string
	LogLevel           string
}

func LoadConfigFromToml(path string) (ConfigFile, error) {
	var cfg ConfigFile
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return ConfigFile{}, err
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// Precedence: flags, then environment (.env included), then the TOML file, then defaults.
func ParseArgs(programName string, args []string, errOut io.Writer) (Config, error) {
	var cfg Config
	var origins string

	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errOut)

	fs.Usage = func() {
		fmt.Fprintf(errOut, "Usage: %s [options]\n\n", programName)
		fmt.Fprintln(errOut, "Options")
		fs.PrintDefaults()
	}

	fs.BoolVar(&cfg.Version, "version", false, "Prints CLI version")

	fs.StringVar(&cfg.TomlConfigPath, "toml", "", "Configuration file")
	fs.StringVar(&cfg.EnvFile, "env-file", ".env", "Optional dotenv file providing PORT and DATABASE_URL")
	fs.StringVar(&cfg.ListenAddress, "listen", "", "Listen address (default \":8080\", or :$PORT)")
	fs.StringVar(&cfg.DatabaseConnection, "database", "", "postgres:// URL or SQLite file path (default horarios.db, or $DATABASE_URL)")
	fs.StringVar(&cfg.Timezone, "timezone", "", "Timezone used to pick upcoming departures (default Europe/Madrid)")
	fs.IntVar(&cfg.ScheduledLimit, "limit", 0, "Maximum scheduled departures per station (default 10)")
	fs.StringVar(&origins, "allowed-origins", "", "Comma separated CORS origins (default *)")
	fs.StringVar(&cfg.MetricsAddress, "metrics", "", "Prometheus/pprof listen address; disabled when empty")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Version {
		fmt.Fprintf(errOut, "%s: version %s (%s)\n", programName, common.Version, common.GitCommit)
		return Config{}, flag.ErrHelp
	}

	if cfg.EnvFile != "" {
		if err := godotenv.Load(cfg.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("godotenv.Load: %w", err)
		}
	}

	var tomlCfg ConfigFile
	if cfg.TomlConfigPath != "" {
		loaded, err := LoadConfigFromToml(cfg.TomlConfigPath)
		if err != nil {
			return Config{}, fmt.Errorf("LoadConfigFromToml: %w", err)
		}
		tomlCfg = loaded
	}

	var envListen string
	if port := os.Getenv("PORT"); port != "" {
		envListen = ":" + port
	}
	cfg.ListenAddress = firstNonEmpty(cfg.ListenAddress, envListen, tomlCfg.ListenAddress, DefaultListenAddress)
	cfg.DatabaseConnection = firstNonEmpty(cfg.DatabaseConnection, os.Getenv("DATABASE_URL"), tomlCfg.Database, DefaultDatabase)
	cfg.Timezone = firstNonEmpty(cfg.Timezone, tomlCfg.Timezone, DefaultTimezone)
	cfg.MetricsAddress = firstNonEmpty(cfg.MetricsAddress, tomlCfg.MetricsAddress)
	cfg.LogLevel = firstNonEmpty(cfg.LogLevel, tomlCfg.LogLevel)

	if cfg.ScheduledLimit == 0 {
		cfg.ScheduledLimit = tomlCfg.ScheduledLimit
	}
	if cfg.ScheduledLimit == 0 {
		cfg.ScheduledLimit = DefaultScheduledLimit
	}

	if origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	} else {
		cfg.AllowedOrigins = tomlCfg.AllowedOrigins
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (cfg Config) Validate() error {
	return common.ValidateStruct(cfg)
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
