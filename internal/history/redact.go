package history

import "strings"

const redacted = "***REDACTED***"

var redactKeys = map[string]struct{}{
	"password":      {},
	"passcode":      {},
	"otp":           {},
	"pin":           {},
	"cvv":           {},
	"api_key":       {},
	"apikey":        {},
	"access_token":  {},
	"refresh_token": {},
	"private_key":   {},
	"secret":        {},
}

// RedactContext returns a copy of an action context with values under
// sensitive keys masked, at any depth.
func RedactContext(ctx map[string]any) map[string]any {
	if ctx == nil {
		return nil
	}
	return redactValue(ctx).(map[string]any)
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			if _, ok := redactKeys[strings.ToLower(k)]; ok && vv != nil {
				out[k] = redacted
				continue
			}
			out[k] = redactValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = redactValue(t[i])
		}
		return out
	default:
		return v
	}
}
