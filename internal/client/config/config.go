package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/apiclient/internal/common"
)

// Store drivers understood by the client composition root.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

// Config holds runtime settings for the API client.
//
// RequestTimeout is the per-attempt budget the pipeline applies when a call
// does not override it; zero disables the pipeline timer entirely.
type Config struct {
	BaseURL         string
	RequestTimeout  time.Duration
	RefreshTimeout  time.Duration
	RefreshPath     string
	StoreDriver     string
	StorePath       string
	RedisAddr       string
	RedisPrefix     string
	StorePassphrase string
	CookieChannel   bool
	LogLevel        string
	LogFormat       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://127.0.0.1:8080/api"
	c.RequestTimeout = 60 * time.Second
	c.RefreshTimeout = 10 * time.Second
	c.RefreshPath = common.RefreshPath
	c.StoreDriver = StoreDriverSQLite
	c.StorePath = "session.db"
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisPrefix = "apiclient:"
	c.StorePassphrase = ""
	c.CookieChannel = true
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Load builds a Config from defaults, the environment (optionally seeded
// from a dotenv file), a JSON file and finally the flags found in args.
// Later sources take precedence. Malformed input panics.
func Load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg, args)
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}

// LoadConfig is Load over the process arguments.
func LoadConfig() *Config {
	return Load(os.Args[1:])
}
