package utils

import (
	"log/slog"
	"os"
	"sync"
)

var Logger *slog.Logger
var once sync.Once

// Init configures the process-wide structured logger. Safe to call more
// than once; only the first call takes effect.
func Init(level string) {
	once.Do(func() {
		Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: parseLevel(level),
		}))
	})
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
