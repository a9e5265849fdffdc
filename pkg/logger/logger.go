package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/config"
)

const appName = "exchange-rates-bot"

// New создаёт slog-логгер в stdout и делает его логгером по умолчанию
func New(cfg *config.LoggerConfig) *slog.Logger {
	logger := NewWithWriter(cfg, os.Stdout)
	slog.SetDefault(logger)
	return logger
}

// NewWithWriter - то же, но с произвольным приёмником (удобно в тестах)
func NewWithWriter(cfg *config.LoggerConfig, w io.Writer) *slog.Logger {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttrs,
		AddSource:   true,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(slog.String("app", appName))
}

// ParseLevel преобразует строковый уровень в slog.Level.
func ParseLevel(logLevel string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %q", logLevel)
	}
}

func replaceAttrs(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		if tt, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(tt.UTC().Format(time.RFC3339))
		}
	case slog.LevelKey:
		if lv, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(strings.ToUpper(lv.String()))
		}
	case slog.SourceKey:
		// base + :строка вместо полного пути
		if src, ok := a.Value.Any().(*slog.Source); ok && src != nil {
			a.Value = slog.StringValue(filepath.Base(src.File) + ":" + strconv.Itoa(src.Line))
		}
	}
	return a
}
