// Package config loads runtime configuration for the API client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. API_* environment variables, optionally seeded from a dotenv file
//     (-e / -env, or ./.env when present).
//  3. Optional JSON file selected via -c or -config.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   base URL of the remote API
//	-t int      default request timeout (seconds, 0 disables)
//	-s string   token store driver (sqlite, redis, memory)
//	-p string   SQLite database path
//	-l string   log level
//
// # JSON schema
//
//	{
//	  "base_url": "https://api.example.com/api",
//	  "request_timeout": "60s",
//	  "refresh_timeout": "10s",
//	  "refresh_path": "/auth/refresh",
//	  "store_driver": "sqlite",
//	  "store_path": "session.db",
//	  "redis_addr": "127.0.0.1:6379",
//	  "redis_prefix": "apiclient:",
//	  "store_passphrase": "",
//	  "cookie_channel": true,
//	  "log_level": "info",
//	  "log_format": "text"
//	}
package config
