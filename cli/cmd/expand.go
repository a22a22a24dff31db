package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ardnew/atsub/log"
	"github.com/ardnew/atsub/subst"
)

// Expand expands the template once per context tuple.
type Expand struct {
	Context []string `arg:"" help:"YAML context stream(s); each document is one tuple" optional:"" type:"existingfile"`
	Jobs    int      `       help:"Maximum concurrent expansions (0 for GOMAXPROCS)"      default:"0"  short:"j"`
}

// Run executes the expand command.
func (e *Expand) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	reg, err := loadRegistry(ctx)
	if err != nil {
		return err
	}

	tmpl, err := parseSource(ctx, reg)
	if err != nil {
		return err
	}

	tuples, err := loadContexts(e.Context, reg.Shape())
	if err != nil {
		return err
	}

	return Render(ctx, stdout(ctx), tmpl, tuples, e.Jobs)
}

// Render expands tmpl against every tuple concurrently, using at most jobs
// goroutines, and writes the results to w in tuple order. Nothing is written
// if any expansion fails.
func Render(
	ctx context.Context,
	w io.Writer,
	tmpl *subst.Template,
	tuples []subst.Context,
	jobs int,
) error {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	out := make([]bytes.Buffer, len(tuples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i := range tuples {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			err := tmpl.ExpandSink(subst.NewSink(&out[i]), tuples[i])
			if err != nil {
				return ErrExpand.Wrap(err).With(slog.Int("tuple", i))
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.TraceContext(ctx, "rendered",
		slog.Int("tuples", len(tuples)),
		slog.Int("jobs", jobs),
	)

	for i := range out {
		if _, err := out[i].WriteTo(w); err != nil {
			return ErrWriteOutput.Wrap(err)
		}
	}

	return nil
}

// parseSource parses the --source files with reg.
func parseSource(ctx context.Context, reg *subst.Registry) (*subst.Template, error) {
	src := sourceFilesFrom(ctx)
	if src == nil {
		return nil, ErrNoSource
	}
	defer src.Close()

	return reg.ParseReader(ctx, src)
}
