package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/apiclient/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   base URL of the remote API
//	-t int      default request timeout in seconds (0 disables it)
//	-s string   token store driver: sqlite, redis or memory
//	-p string   SQLite database path
//	-l string   log level
//
// Only these flags are taken from args (see flagx.FilterArgs) so other
// loaders' flags do not break parsing. A parse error panics.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-t", "-s", "-p", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.BaseURL, "a", cfg.BaseURL, "base URL of the remote API")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "default request timeout (in seconds)")
	fs.StringVar(&cfg.StoreDriver, "s", cfg.StoreDriver, "token store driver")
	fs.StringVar(&cfg.StorePath, "p", cfg.StorePath, "SQLite database path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if isSet(fs, "t") {
		cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	}
}

func isSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
