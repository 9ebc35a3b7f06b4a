package logger

import "strings"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

var statusNames = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"skip":         {},
	"retry":        {},
	"rejected":     {},
	"rate_limited": {},
	"cancelled":    {},
}

func normalizeLevel(level string) string {
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	if level == "" {
		return "INFO"
	}
	return strings.ToUpper(level)
}

// normalizeStatus lowercases known statuses and passes unknown ones through.
func normalizeStatus(status string) string {
	lower := strings.ToLower(strings.TrimSpace(status))
	if _, ok := statusNames[lower]; ok {
		return lower
	}
	return status
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"session_id",
	"truck",
	"trip_id",
	"state",
	"from",
	"to",
	"trip_event",
	"km",
	"min_km",
	"weight",
	"code",
	"op",
	"cb_key",
	"duration_ms",
	"driver",
	"path",
	"listen",
	"mode",
	"db",
	"host",
	"port",
	"err",
	"cause",
	"attempts",
	"backoff_ms",
	"rate_limited",
}
