package logger

import (
	"log/slog"
	"strings"
)

// Key patterns whose string values are always fully redacted. Wire
// tokens carry no distinguishing prefix, so redaction is keyed on the
// attribute name.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"cookie",
	"credential",
	"auth",
	"bearer",
	"otp",
	"code",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive replaces the value of any attribute whose key
// suggests credential material. Nested groups are walked recursively.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		if IsSensitiveKey(a.Key) && a.Value.String() != "" {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// IsSensitiveKey checks whether a key name suggests credential content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// MaskToken partially masks an opaque token for diagnostics, keeping
// the first and last three characters. Values too short to mask
// safely are replaced entirely.
func MaskToken(value string) string {
	if len(value) <= 10 {
		return redactedValue
	}
	return value[:3] + "..." + value[len(value)-3:]
}
