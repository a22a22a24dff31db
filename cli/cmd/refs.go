package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/ardnew/atsub/log"
	"github.com/ardnew/atsub/subst"
)

// Refs lists the defined variables and whether the template refers to each.
type Refs struct {
	Used bool `help:"List only referenced variables, in order of first use" short:"u"`
}

// Run executes the refs command.
func (r *Refs) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

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

	w := stdout(ctx)

	if r.Used {
		for name := range tmpl.Refs() {
			if _, err := fmt.Fprintln(w, name); err != nil {
				return ErrWriteOutput.Wrap(err)
			}
		}

		return nil
	}

	for name := range reg.Names() {
		mark := " "
		if tmpl.RefersTo(name) {
			mark = "*"
		}

		if _, err := fmt.Fprintf(w, "%s %s\n", mark, name); err != nil {
			return ErrWriteOutput.Wrap(err)
		}
	}

	return nil
}
