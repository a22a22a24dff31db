package cmd

import (
	"errors"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/atsub/subst"
)

// DecodeContexts reads a stream of YAML documents from r, returning one
// context tuple per document. Each document maps slot names of shape to
// values; slots a document omits are nil.
func DecodeContexts(r io.Reader, shape subst.Shape) ([]subst.Context, error) {
	var tuples []subst.Context

	dec := yaml.NewDecoder(r)

	for n := 0; ; n++ {
		var doc map[string]any

		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return tuples, nil
		}

		if err != nil {
			return nil, ErrContextDoc.Wrap(err).With(slog.Int("document", n))
		}

		tuple, terr := makeTuple(doc, shape)
		if terr != nil {
			return nil, terr.With(slog.Int("document", n))
		}

		tuples = append(tuples, tuple)
	}
}

func makeTuple(doc map[string]any, shape subst.Shape) (subst.Context, *Error) {
	tuple := make(subst.Context, len(shape))

	for _, key := range slices.Sorted(maps.Keys(doc)) {
		i, ok := shape.Index(key)
		if !ok {
			return nil, ErrUnknownSlot.With(slog.String("slot", key))
		}

		tuple[i] = doc[key]
	}

	return tuple, nil
}

// loadContexts decodes the context tuples of every file in paths, in order.
// Without paths it returns a single tuple with every slot nil.
func loadContexts(paths []string, shape subst.Shape) ([]subst.Context, error) {
	if len(paths) == 0 {
		return []subst.Context{make(subst.Context, len(shape))}, nil
	}

	var tuples []subst.Context

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, ErrOpenFile.Wrap(err).With(slog.String("file", path))
		}

		t, err := DecodeContexts(f, shape)
		_ = f.Close()

		if err != nil {
			return nil, WrapFile(err, path)
		}

		tuples = append(tuples, t...)
	}

	return tuples, nil
}
