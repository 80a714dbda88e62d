package logging

import (
	"strings"

	"github.com/dmitrijs2005/apiclient/internal/common"
)

// sensitiveKeys are attribute keys whose string values never reach a sink
// in full.
var sensitiveKeys = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"token":         true,
	"authorization": true,
	"password":      true,
}

// redactArgs returns args with sensitive string values shortened by
// common.Redact. The input slice is never modified.
func redactArgs(args []any) []any {
	var out []any
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok || !sensitiveKeys[strings.ToLower(key)] {
			continue
		}
		v, ok := args[i+1].(string)
		if !ok {
			continue
		}
		if out == nil {
			out = append([]any(nil), args...)
		}
		out[i+1] = common.Redact(strings.TrimPrefix(v, common.BearerPrefix))
	}
	if out == nil {
		return args
	}
	return out
}
