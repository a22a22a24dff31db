package cmd

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/ardnew/atsub/cli/cmd/preview"
	"github.com/ardnew/atsub/log"
	"github.com/ardnew/atsub/subst"
)

// Preview edits a template line interactively, expanding it as it is typed.
type Preview struct {
	Context string `arg:"" help:"YAML context stream; the first document is expanded" optional:"" type:"existingfile"`
}

// Run executes the preview command.
func (p *Preview) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	ktx := kongContextFrom(ctx)
	if ktx == nil {
		return ErrNoKongContext
	}

	reg, err := loadRegistry(ctx,
		subst.WithLenient(true),
		subst.WithLogger(log.Make(io.Discard)),
	)
	if err != nil {
		return err
	}

	var paths []string
	if p.Context != "" {
		paths = append(paths, p.Context)
	}

	tuples, err := loadContexts(paths, reg.Shape())
	if err != nil {
		return err
	}

	if len(tuples) == 0 {
		return ErrContextDoc.With(
			slog.String("file", p.Context),
			slog.String("issue", "no documents"),
		)
	}

	initial, err := initialLine(ctx)
	if err != nil {
		return err
	}

	err = preview.Run(ctx, reg, tuples[0], initial,
		ktx.Model.Vars()[CacheIdentifier], log.Default(),
	)
	if err != nil {
		return ErrPreviewFailure.Wrap(err)
	}

	return nil
}

// initialLine returns the first line of the --source text, or "" when no
// source was given.
func initialLine(ctx context.Context) (string, error) {
	src := sourceFilesFrom(ctx)
	if src == nil {
		return "", nil
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", ErrOpenFile.Wrap(err).With(slog.String("source", "reader"))
	}

	line, _, _ := strings.Cut(string(data), "\n")

	return line, nil
}
