package telemetry

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/freekieb7/httpd/config"
)

// NewLogger returns the process logger. With telemetry enabled records go to
// the global OpenTelemetry logger provider, so call it after Setup.
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	if cfg.Telemetry.Enabled {
		return slog.New(&levelHandler{
			level:   cfg.LogLevel,
			Handler: otelslog.NewHandler(cfg.Telemetry.ServiceName),
		})
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

// levelHandler drops records below level before they reach the wrapped handler.
type levelHandler struct {
	level slog.Leveler
	slog.Handler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.Handler.Enabled(ctx, level)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, Handler: h.Handler.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, Handler: h.Handler.WithGroup(name)}
}
