package gtfs_static

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"

	"tarediiran-industries.com/gtfs-board/internal/common"
	"tarediiran-industries.com/gtfs-board/internal/logging"
)

const DefaultGtfsUrl = "https://ssl.renfe.com/ftransit/Fichero_CER_FOMENTO/fomento_transit.zip"

type ConfigFile struct {
	DefaultUrl      string `toml:"default_url"`
	DefaultDatabase string `toml:"default_database"`
	LogLevel        string `toml:"log_level"`
}

type Config struct {
	Version bool

	// Values from the TOML file fill in whatever the flags left empty
	TomlConfigPath string

	// Input args - either can accept from zip or url (but not both)
	ZipPath string `validate:"omitempty,file"`
	Url     string `validate:"omitempty,url"`

	// Output args - either can dry-run or write to a database connection
	DryRun             bool
	DatabaseConnection string

	LogLevel string
}

func LoadConfigFromToml(path string) (ConfigFile, error) {
	var cfg ConfigFile
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return ConfigFile{}, err
	}

	return cfg, nil
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
	fs.StringVar(&cfg.ZipPath, "zip", "", "Path to zip file for offline ingest")
	fs.StringVar(&cfg.Url, "url", "", "GTFS URL for online ingest")

	fs.BoolVar(&cfg.DryRun, "dry-run", false, "If specified, shows what would be ingested without performing any DB writes")
	fs.StringVar(&cfg.DatabaseConnection, "database", "", "Target database: postgres:// URL or SQLite file path")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Version {
		fmt.Fprintf(errOut, "%s: version %s (%s)\n", programName, common.Version, common.GitCommit)
		return Config{}, flag.ErrHelp
	}

	if cfg.TomlConfigPath != "" {
		tomlCfg, err := LoadConfigFromToml(cfg.TomlConfigPath)
		if err != nil {
			return Config{}, fmt.Errorf("LoadConfigFromToml: %w", err)
		}

		if cfg.Url == "" && cfg.ZipPath == "" {
			cfg.Url = tomlCfg.DefaultUrl
		}
		if cfg.DatabaseConnection == "" && !cfg.DryRun {
			cfg.DatabaseConnection = tomlCfg.DefaultDatabase
		}
		if cfg.LogLevel == "" {
			cfg.LogLevel = tomlCfg.LogLevel
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (cfg Config) Validate() error {
	if err := common.ValidateStruct(cfg); err != nil {
		return err
	}

	hasZipPath := cfg.ZipPath != ""
	hasUrl := cfg.Url != ""
	if hasZipPath == hasUrl {
		return fmt.Errorf("exactly one of -zip or -url must be specified")
	}

	hasDatabaseConnection := cfg.DatabaseConnection != ""
	if hasDatabaseConnection == cfg.DryRun {
		return fmt.Errorf("exactly one of -dry-run or -database must be specified")
	}

	return nil
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
	return Run(cfg, stdOut, logger)
}
