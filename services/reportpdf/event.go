package reportpdf

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Event is a raw invocation payload. API Gateway proxy requests carry
// parameters under queryStringParameters; direct invocations put them at the top level.
type Event map[string]any

// Param returns a parameter as a trimmed string, preferring the query string
// over top-level fields. Strings, numbers and booleans are accepted.
func (e Event) Param(name string) (string, bool) {
	if v, ok := e.queryParams()[name]; ok && v != nil {
		return formatValue(v)
	}
	if v, ok := e[name]; ok && v != nil {
		return formatValue(v)
	}
	return "", false
}

// Debug reports whether the caller asked for the JSON status payload
func (e Event) Debug() bool {
	v, ok := e.Param("debug")
	if !ok {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func (e Event) queryParams() map[string]any {
	switch qs := e["queryStringParameters"].(type) {
	case map[string]any:
		return qs
	case map[string]string:
		out := make(map[string]any, len(qs))
		for k, v := range qs {
			out[k] = v
		}
		return out
	}
	return nil
}

func formatValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprint(t), true
	case json.Number:
		return t.String(), true
	}
	return "", false
}
