// Package masking redacts credentials before they reach logs.
package masking

import (
	"encoding/json"
	"strings"
)

const (
	maskToken    = "****"
	maxPrefixLen = 12
)

var sensitiveKeys = map[string]struct{}{
	"value":    {},
	"api_key":  {},
	"content":  {},
	"password": {},
	"token":    {},
	"secret":   {},
}

// Secret redacts a credential while keeping its type prefix and a short
// suffix, so "sk-svcacct-abcdef123456" becomes "sk-svcacct-****3456".
func Secret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= 8 {
		return prefix + maskToken
	}
	return prefix + maskToken + remainder[len(remainder)-4:]
}

// JSON returns a copy of input with the values of credential-bearing keys
// masked. Other values are copied as is.
func JSON(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if isSensitive(trimmedKey) {
			masked[trimmedKey] = maskAll(value)
			continue
		}
		masked[trimmedKey] = maskNested(value)
	}
	return masked
}

// Payload masks an encoded JSON request or response body for logging.
// Bodies that are not JSON objects are replaced entirely.
func Payload(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return maskToken
	}
	encoded, err := json.Marshal(JSON(decoded))
	if err != nil {
		return maskToken
	}
	return string(encoded)
}

func isSensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}

func maskNested(value any) any {
	switch cast := value.(type) {
	case map[string]any:
		return JSON(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskNested(item))
		}
		return out
	default:
		return value
	}
}

func maskAll(value any) any {
	switch cast := value.(type) {
	case string:
		return Secret(cast)
	case map[string]any:
		out := make(map[string]any, len(cast))
		for k, v := range cast {
			out[k] = maskAll(v)
		}
		return out
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskAll(item))
		}
		return out
	default:
		return value
	}
}

// splitPrefix separates a short key-type prefix such as "sk-proj-".
func splitPrefix(value string) (string, string) {
	last := strings.LastIndex(value, "-")
	if last == -1 || last == len(value)-1 || last > maxPrefixLen {
		return "", value
	}
	return value[:last+1], value[last+1:]
}
