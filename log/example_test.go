package log_test

import (
	"context"
	"log/slog"
	"os"

	"github.com/ardnew/atsub/log"
)

func Example() {
	logger := log.Make(os.Stdout, log.WithTimeLayout("none"))
	logger.Info("template parsed", slog.Int("spans", 3))
	// Output: level=INFO msg="template parsed" spans=3
}

func Example_levels() {
	logger := log.Make(os.Stdout,
		log.WithLevel(log.LevelWarn),
		log.WithTimeLayout("none"))

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("undefined variable", slog.String("name", "z"))
	// Output: level=WARN msg="undefined variable" name=z
}

func Example_json() {
	logger := log.Make(os.Stdout,
		log.WithFormat(log.FormatJSON),
		log.WithTimeLayout("none"))

	logger.With(slog.String("file", "page.tmpl")).
		ErrorContext(context.Background(), "expansion failed")
	// Output: {"level":"ERROR","msg":"expansion failed","file":"page.tmpl"}
}
