package main

import (
	"io"
	"log/slog"

	"github.com/signadot/objbridge/config"
)

// newLogger is the configured logger, except that text output also drops
// the INFO level label.
func newLogger(conf *config.Config, w io.Writer) *slog.Logger {
	if conf.Log.Format == "json" {
		return conf.Logger(w)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: conf.Level(),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			if a.Key == slog.LevelKey {
				if a.Value.String() == "INFO" {
					return slog.Attr{}
				}
			}
			return a
		},
	}))
}
