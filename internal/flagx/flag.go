// Package flagx helps several independent loaders share os.Args: each loader
// picks out only the flags it owns and parses them with its own FlagSet.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns the subset of args that belongs to allowedFlags.
//
// Both "-c conf.json" and "-c=conf.json" forms are recognised. A separate
// value is consumed only when it does not itself start with '-'.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigFileFlag returns the JSON config path given via -c or -config, or "".
func ConfigFileFlag(args []string) string {
	return stringFlag(args, "config", "c")
}

// EnvFileFlag returns the dotenv path given via -e or -env, or "".
func EnvFileFlag(args []string) string {
	return stringFlag(args, "env", "e")
}

func stringFlag(args []string, long, short string) string {
	var value string

	filtered := FilterArgs(args, []string{"-" + short, "-" + long, "--" + long})

	fs := flag.NewFlagSet(long, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&value, long, "", "path to "+long+" file")
	fs.StringVar(&value, short, "", "path to "+long+" file (short)")
	_ = fs.Parse(filtered)

	return value
}
