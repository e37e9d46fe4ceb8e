// Package obslog provides the process-wide structured logger and the
// header-redaction helper used when logging request metadata.
package obslog

import (
	"log/slog"
	"os"
	"strings"
)

// Log is the global logger. Init must be called once at process startup
// before any other package logs through it; until then Log writes at info
// level to stdout, so tests and early init paths never nil-panic.
var Log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Init reconfigures Log from environment variables: HTTPCORED_LOG_SINK
// ("file:<path>" or unset for stdout) and HTTPCORED_LOG_LEVEL
// (debug|info|warn|error).
func Init() {
	sink := os.Getenv("HTTPCORED_LOG_SINK")
	level := parseLevel(os.Getenv("HTTPCORED_LOG_LEVEL"))

	if strings.HasPrefix(sink, "file:") {
		path := strings.TrimPrefix(sink, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err == nil {
			Log = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
			return
		}
		Log.Warn("failed to open log sink, falling back to stdout", "path", path, "error", err)
	}
	Log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// redactedHeaders is the set of header names (already lower-cased) whose
// values are never logged.
var redactedHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
}

// SafeHeaders returns a copy of headers with redacted entries replaced by
// "[redacted]", suitable for passing to a logger.
func SafeHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if redactedHeaders[strings.ToLower(k)] {
			out[k] = "[redacted]"
			continue
		}
		out[k] = v
	}
	return out
}

// LogRequest logs a single terminal parse outcome for a connection.
func LogRequest(connID, method, target, version, status string, durationMS int64, headers map[string]string) {
	Log.Info("request",
		"conn_id", connID,
		"method", method,
		"target", target,
		"version", version,
		"status", status,
		"duration_ms", durationMS,
		"headers", SafeHeaders(headers),
	)
}
