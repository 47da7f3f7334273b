package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/skekre98/modhost/config"
)

// Level is shared by every logger New returns, so a config reload can
// change verbosity without rebuilding loggers.
var Level = new(slog.LevelVar)

// New builds the process logger from cfg. Text is the default format; json
// suits log shippers. A nil w writes to stdout.
func New(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	SetLevel(cfg.Level)

	opts := &slog.HandlerOptions{Level: Level}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// SetLevel parses name ("debug", "info", "warn", "error") into Level,
// keeping the current level if name does not parse.
func SetLevel(name string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return
	}
	Level.Set(lvl)
}

// Follow applies logging level changes from config events until events is
// closed.
func Follow(events <-chan config.Event, logger *slog.Logger) {
	for evt := range events {
		if !evt.Changed("Logging.Level") {
			continue
		}
		if root, ok := evt.NewConfig.(*config.Root); ok {
			SetLevel(root.Logging.Level)
			logger.Info("log level changed", "level", Level.Level().String())
		}
	}
}
