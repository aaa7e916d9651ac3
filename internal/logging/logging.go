// Package logging configures structured JSON logging for Hubgate with
// redaction of sensitive attribute values.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// sensitiveKeys are attribute name fragments whose values must never appear
// in logs.
var sensitiveKeys = []string{
	"password",
	"api_key",
	"authorization",
	"token",
	"secret",
	"key",
}

func redactSensitive(_ []string, a slog.Attr) slog.Attr {
	lower := strings.ToLower(a.Key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lower, sensitive) {
			a.Value = slog.StringValue("***")
			break
		}
	}
	return a
}

// New returns a JSON slog.Logger writing to w at the given level, with
// sensitive attribute values replaced by "***".
func New(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactSensitive,
	})
	return slog.New(handler)
}
