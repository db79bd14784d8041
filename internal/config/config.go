package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for tradrx.
type Config struct {
	Storage Storage `yaml:"storage"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
	Trading Trading `yaml:"trading"`
	Client  Client  `yaml:"client"`
}

// Storage selects and locates the ledger's backing store.
type Storage struct {
	// Backend is "json" (single snapshot file) or "sqlite".
	Backend    string `yaml:"backend"`
	DataFile   string `yaml:"data_file"`
	SQLitePath string `yaml:"sqlite_path"`
	ArchiveDir string `yaml:"archive_dir"`
}

// Server holds network listener configuration.
type Server struct {
	Host            string  `yaml:"host"`
	Port            int     `yaml:"port"`
	GRPCPort        int     `yaml:"grpc_port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CORSOrigin      string  `yaml:"cors_origin"`
}

// Addr returns host:port for the HTTP listener.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Trading holds pre-trade risk limits. Zero disables a limit.
type Trading struct {
	MaxTradeQuantity float64 `yaml:"max_trade_quantity"`
	MaxPosition      float64 `yaml:"max_position"`
}

// Client configures the CLI and SDK.
type Client struct {
	APIURL string `yaml:"api_url"`
}

// Storage backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Storage: Storage{
			Backend:    BackendJSON,
			DataFile:   "tradrx_data.json",
			SQLitePath: "tradrx.db",
			ArchiveDir: "archive",
		},
		Server: Server{
			Host:           "0.0.0.0",
			Port:           5001,
			RateLimitBurst: 1,
			CORSOrigin:     "*",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Client: Client{
			APIURL: "http://localhost:5001",
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at path on top of Default() and then
// applies environment variable overrides. A missing file is not an error; an
// unreadable or malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none are
// given) into the process environment without overriding variables that are
// already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendJSON:
		if c.Storage.DataFile == "" {
			return errors.New("storage.data_file is required for the json backend")
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("storage.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Server.Port < 0 || c.Server.GRPCPort < 0 {
		return errors.New("server ports must not be negative")
	}
	if c.Trading.MaxTradeQuantity < 0 || c.Trading.MaxPosition < 0 {
		return errors.New("trading limits must not be negative")
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("TRADRX_DATA_FILE"); v != "" {
		cfg.Storage.DataFile = v
	}
	if v := os.Getenv("TRADRX_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("TRADRX_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("TRADRX_ARCHIVE_DIR"); v != "" {
		cfg.Storage.ArchiveDir = v
	}

	if v := os.Getenv("TRADRX_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("TRADRX_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRADRX_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("TRADRX_GRPC_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRADRX_GRPC_PORT: %w", err)
		}
		cfg.Server.GRPCPort = port
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("API_URL"); v != "" {
		cfg.Client.APIURL = v
	}
	return nil
}
