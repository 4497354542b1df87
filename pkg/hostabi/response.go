// Package hostabi defines what crosses the boundary between the host mod and
// the extension: the response format of synchronous calls and the outbound
// callback channel.
package hostabi

import (
	"encoding/json"
	"strings"
)

// quote renders s as a host string literal. The host escapes a double quote
// by doubling it.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// encode renders v for the host: strings verbatim as literals, everything
// else as JSON, which the host parses as arrays and hashmaps.
func encode(v any) (string, error) {
	if s, ok := v.(string); ok {
		return quote(s), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FormatResponse formats a command result as ["ok", result], ["ok"] or
// ["error", message].
func FormatResponse(result any, err error) string {
	if err != nil {
		return `["error", ` + quote(err.Error()) + `]`
	}
	if result == nil {
		return `["ok"]`
	}
	data, encErr := encode(result)
	if encErr != nil {
		return `["error", ` + quote("failed to encode result: "+encErr.Error()) + `]`
	}
	return `["ok", ` + data + `]`
}
