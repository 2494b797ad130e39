package logger

import (
	"log/slog"
	"strings"
)

// Component names shared by the service.
const (
	CompApp      = "app"
	CompDB       = "db"
	CompMigrate  = "db.migrate"
	CompSeed     = "db.seed"
	CompLine     = "line"
	CompTelegram = "tg"
	CompHTTP     = "http"
	CompWire     = "wire"
	CompSender   = "sender"
	CompRouter   = "router"
	CompLeads    = "service.leads"
	CompPending  = "service.pending"
	CompNotify   = "service.notify"
	CompAPI      = "api"
)

// defaultKeyOrder lists the keys printed first, in this order. Everything
// else follows alphabetically.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "ts_unix_nano",
	"event_id", "channel", "user_id", "chat_id", "source_type", "handler",
	"action", "client_id", "lead_status", "owner_id",
	"duration_ms", "messages", "card", "count",
	"method", "path", "http_code",
	"err", "err_code", "attempts",
}

// levelName prints anything above ERROR as FATAL.
func levelName(l slog.Level) string {
	switch {
	case l > slog.LevelError:
		return "FATAL"
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// durationKey makes every duration key end in _ms.
func durationKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}
