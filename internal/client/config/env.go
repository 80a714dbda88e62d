package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/apiclient/internal/flagx"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// Environment variable names read by parseEnv.
const (
	envBaseURL         = "API_BASE_URL"
	envRequestTimeout  = "API_REQUEST_TIMEOUT"
	envRefreshTimeout  = "API_REFRESH_TIMEOUT"
	envRefreshPath     = "API_REFRESH_PATH"
	envStoreDriver     = "API_STORE_DRIVER"
	envStorePath       = "API_STORE_PATH"
	envRedisAddr       = "API_REDIS_ADDR"
	envRedisPrefix     = "API_REDIS_PREFIX"
	envStorePassphrase = "API_STORE_PASSPHRASE"
	envCookieChannel   = "API_COOKIE_CHANNEL"
	envLogLevel        = "API_LOG_LEVEL"
	envLogFormat       = "API_LOG_FORMAT"
)

// parseEnv overlays Config with API_* environment variables.
//
// A dotenv file named by -e/-env is loaded first; without the flag, ./.env is
// loaded when it exists. godotenv never overrides variables that are already
// set in the real environment. Durations use Go syntax ("30s"). Malformed
// values panic, like the JSON and flag loaders.
func parseEnv(cfg *Config, args []string) {
	loadDotenv(flagx.EnvFileFlag(args))

	setString(&cfg.BaseURL, envBaseURL)
	setDuration(&cfg.RequestTimeout, envRequestTimeout)
	setDuration(&cfg.RefreshTimeout, envRefreshTimeout)
	setString(&cfg.RefreshPath, envRefreshPath)
	setString(&cfg.StoreDriver, envStoreDriver)
	setString(&cfg.StorePath, envStorePath)
	setString(&cfg.RedisAddr, envRedisAddr)
	setString(&cfg.RedisPrefix, envRedisPrefix)
	setString(&cfg.StorePassphrase, envStorePassphrase)
	setString(&cfg.LogLevel, envLogLevel)
	setString(&cfg.LogFormat, envLogFormat)

	if v, ok := os.LookupEnv(envCookieChannel); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		cfg.CookieChannel = b
	}
}

func loadDotenv(path string) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
		return
	}

	if _, err := os.Stat(defaultEnvFile); errors.Is(err, fs.ErrNotExist) {
		return
	}
	_ = godotenv.Load(defaultEnvFile)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
