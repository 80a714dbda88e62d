package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/apiclient/internal/flagx"
	"github.com/dmitrijs2005/apiclient/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Timeouts and
// the cookie flag are pointers so an explicit zero ("0s", false) can be told
// apart from an absent key.
type JsonConfig struct {
	BaseURL         string          `json:"base_url"`
	RequestTimeout  *timex.Duration `json:"request_timeout"`
	RefreshTimeout  *timex.Duration `json:"refresh_timeout"`
	RefreshPath     string          `json:"refresh_path"`
	StoreDriver     string          `json:"store_driver"`
	StorePath       string          `json:"store_path"`
	RedisAddr       string          `json:"redis_addr"`
	RedisPrefix     string          `json:"redis_prefix"`
	StorePassphrase string          `json:"store_passphrase"`
	CookieChannel   *bool           `json:"cookie_channel"`
	LogLevel        string          `json:"log_level"`
	LogFormat       string          `json:"log_format"`
}

// parseJson overlays Config with the JSON file named by -c/-config.
// Without the flag nothing happens; read or decode errors panic.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	overlay(&cfg.BaseURL, jc.BaseURL)
	overlay(&cfg.RefreshPath, jc.RefreshPath)
	overlay(&cfg.StoreDriver, jc.StoreDriver)
	overlay(&cfg.StorePath, jc.StorePath)
	overlay(&cfg.RedisAddr, jc.RedisAddr)
	overlay(&cfg.RedisPrefix, jc.RedisPrefix)
	overlay(&cfg.StorePassphrase, jc.StorePassphrase)
	overlay(&cfg.LogLevel, jc.LogLevel)
	overlay(&cfg.LogFormat, jc.LogFormat)

	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.RefreshTimeout != nil {
		cfg.RefreshTimeout = jc.RefreshTimeout.Duration
	}
	if jc.CookieChannel != nil {
		cfg.CookieChannel = *jc.CookieChannel
	}
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
