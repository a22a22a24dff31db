package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ardnew/atsub/log"
	"github.com/ardnew/atsub/subst"
)

// Check parses the template and reports every diagnostic.
type Check struct {
	Quiet bool `help:"Only set the exit status" short:"q"`
}

// Run executes the check command.
func (c *Check) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	// Collect diagnostics without failing on the first, and report them here
	// instead of through the logger.
	reg, err := loadRegistry(ctx,
		subst.WithLenient(true),
		subst.WithLogger(log.Make(io.Discard)),
	)
	if err != nil {
		return err
	}

	tmpl, err := parseSource(ctx, reg)
	if err != nil {
		return err
	}

	diags := tmpl.Diagnostics()

	if !c.Quiet {
		w := stdout(ctx)
		for _, d := range diags {
			if _, err := fmt.Fprintln(w, d.Error()); err != nil {
				return ErrWriteOutput.Wrap(err)
			}
		}
	}

	spans := 0
	for range tmpl.Spans() {
		spans++
	}

	log.DebugContext(ctx, "checked template",
		slog.Int("spans", spans),
		slog.Int("diagnostics", len(diags)),
	)

	if len(diags) > 0 && !optionsFrom(ctx).Lenient {
		return ErrCheckFailed.With(slog.Int("count", len(diags)))
	}

	return nil
}
