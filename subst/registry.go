package subst

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ardnew/atsub/log"
)

// Definition is one named variable of a [Registry].
type Definition struct {
	name string
	eval Evaluator
}

// Name returns the variable name.
func (d *Definition) Name() string { return d.name }

// Eval writes the definition's value for ctx to s. The sink's format is
// restored on every exit path, and evaluator failures are reported as
// ErrEvaluate. ctx is not checked against the registry's shape.
func (d *Definition) Eval(s *Sink, ctx Context) (err error) {
	defer s.SetFormat(s.Format())

	if err = d.eval(s, ctx); err != nil {
		return ErrEvaluate.Wrap(err).With(slog.String("name", d.name))
	}

	return nil
}

// Option configures a [Builder].
type Option func(config) config

type config struct {
	lenient bool
	logger  log.Logger
}

// WithLenient selects lenient parsing: templates are built despite
// malformed or undefined references, which are logged as warnings.
func WithLenient(lenient bool) Option {
	return func(c config) config {
		c.lenient = lenient

		return c
	}
}

// WithLogger sets the logger receiving parse diagnostics.
// Without it the package default logger ([log.Default]) is used.
func WithLogger(logger log.Logger) Option {
	return func(c config) config {
		c.logger = logger

		return c
	}
}

// Builder collects definitions for a [Registry].
// A Builder is not safe for concurrent use.
type Builder struct {
	shape  Shape
	config config
	defs   map[string]*Definition
	frozen bool
}

// NewBuilder returns a Builder for registries whose templates are expanded
// against context tuples of the given shape. Slots with a nil Type accept
// values of any type.
func NewBuilder(shape Shape, opts ...Option) *Builder {
	sh := slices.Clone(shape)
	for i := range sh {
		if sh[i].Type == nil {
			sh[i].Type = reflect.TypeFor[any]()
		}
	}

	var cfg config
	for _, opt := range opts {
		cfg = opt(cfg)
	}

	return &Builder{
		shape:  sh,
		config: cfg,
		defs:   make(map[string]*Definition),
	}
}

// Define binds b against the builder's shape and registers the result under
// name.
func (b *Builder) Define(name string, binder Binder) error {
	if b.frozen {
		return ErrFrozen.With(slog.String("name", name))
	}

	if name == "" {
		return ErrEmptyName
	}

	if _, ok := b.defs[name]; ok {
		return ErrDuplicateDefinition.With(slog.String("name", name))
	}

	if binder == nil {
		return ErrNilBinder.With(slog.String("name", name))
	}

	eval, err := binder.Bind(b.shape)
	if err != nil {
		return WrapError(err).With(slog.String("name", name))
	}

	if eval == nil {
		return ErrNilBinder.With(slog.String("name", name))
	}

	b.defs[name] = &Definition{name: name, eval: eval}

	return nil
}

// MustDefine is like [Builder.Define] but panics on error.
func (b *Builder) MustDefine(name string, binder Binder) *Builder {
	if err := b.Define(name, binder); err != nil {
		panic(err)
	}

	return b
}

// Registry freezes the builder and returns the resulting Registry.
// Further calls to Define fail with ErrFrozen.
func (b *Builder) Registry() *Registry {
	b.frozen = true

	names := make([]string, 0, len(b.defs))
	for name := range b.defs {
		names = append(names, name)
	}

	slices.Sort(names)

	return &Registry{
		shape:  b.shape,
		config: b.config,
		defs:   b.defs,
		names:  names,
	}
}

// Registry is a frozen set of definitions. It is safe for concurrent use.
type Registry struct {
	shape  Shape
	config config
	defs   map[string]*Definition
	names  []string
	cache  sync.Map // uint64 -> *cacheEntry
}

// Lookup returns the definition named name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	d, ok := r.defs[name]

	return d, ok
}

// Names returns the defined variable names in sorted order.
func (r *Registry) Names() iter.Seq[string] {
	return slices.Values(r.names)
}

// Len returns the number of definitions.
func (r *Registry) Len() int { return len(r.defs) }

// Shape returns a copy of the context shape.
func (r *Registry) Shape() Shape { return slices.Clone(r.shape) }

// Lenient reports whether parsing is lenient.
func (r *Registry) Lenient() bool { return r.config.lenient }

func (r *Registry) logger() log.Logger {
	if r.config.logger.IsZero() {
		return log.Default()
	}

	return r.config.logger
}

// Expand parses text and expands the result once against args.
// It reports false, with the parse error, when no template could be built.
func (r *Registry) Expand(
	ctx context.Context,
	w io.Writer,
	text string,
	args ...any,
) (bool, error) {
	t, err := r.Parse(ctx, text)
	if err != nil {
		return false, err
	}

	return true, t.Expand(w, args...)
}

// Holder holds the template currently installed by its owner.
// The zero Holder is empty and ready to use.
type Holder struct {
	p atomic.Pointer[Template]
}

// Load returns the installed template, or nil if none is installed.
func (h *Holder) Load() *Template { return h.p.Load() }

// Store installs t.
func (h *Holder) Store(t *Template) { h.p.Store(t) }

// Reparse parses text with r and installs the result. When parsing fails the
// previously installed template is kept and the error returned.
func (h *Holder) Reparse(ctx context.Context, r *Registry, text string) error {
	t, err := r.Parse(ctx, text)
	if err != nil {
		return err
	}

	h.p.Store(t)

	return nil
}
