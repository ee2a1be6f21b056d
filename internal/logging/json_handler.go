package logging

import (
	"io"
	"log/slog"
	"time"
)

func newJSONHandler(writer io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return attr
			}
			switch attr.Key {
			case slog.TimeKey:
				if t, ok := attr.Value.Any().(time.Time); ok {
					attr.Key = "ts"
					attr.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
				}
			case slog.LevelKey:
				attr.Key = "level"
			case slog.MessageKey:
				attr.Key = "msg"
			}
			return attr
		},
	})
}
