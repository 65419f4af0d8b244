package telemetry

import "strings"

var sensitiveKeys = []string{
	"token",
	"secret",
	"authorization",
	"signature",
	"api_key",
	"apikey",
	"cookie",
}

// RedactValue masks the value if the key is sensitive.
func RedactValue(key, value string) string {
	if ContainsSensitiveKey(key) {
		return "***"
	}
	return value
}

// ContainsSensitiveKey reports whether the key should be redacted.
func ContainsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, needle := range sensitiveKeys {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

// TruncateString truncates the value to limit bytes and appends a suffix when needed.
func TruncateString(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}
