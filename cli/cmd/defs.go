package cmd

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/atsub/log"
	"github.com/ardnew/atsub/subst"
)

// Definitions is the YAML document declaring the context slots and the
// variables available to templates.
//
//	slots: [req, conn]
//	vars:
//	  m:    {field: req.method}
//	  id:   {field: conn.id, base: 16, width: 8, fill: "0"}
//	  who:  {env: USER}
//	  ver:  {value: 1.2}
//	  host: {expr: 'upper(hostname)'}
type Definitions struct {
	Slots []string           `yaml:"slots"`
	Vars  map[string]VarSpec `yaml:"vars"`
}

// VarSpec declares one variable. Exactly one of Value, Field, Expr, and Env
// must be set; the remaining keys select the output format.
type VarSpec struct {
	Value any    `yaml:"value"`
	Field string `yaml:"field"`
	Expr  string `yaml:"expr"`
	Env   string `yaml:"env"`

	Base      int    `yaml:"base"`
	Width     int    `yaml:"width"`
	Precision int    `yaml:"precision"`
	Fill      string `yaml:"fill"`
	Float     string `yaml:"float"`
	Left      bool   `yaml:"left"`
	Upper     bool   `yaml:"upper"`
	Sign      bool   `yaml:"sign"`
}

// DecodeDefinitions reads a definitions document from r.
// Unknown keys are rejected.
func DecodeDefinitions(r io.Reader) (*Definitions, error) {
	var defs Definitions

	err := yaml.NewDecoder(r, yaml.DisallowUnknownField()).Decode(&defs)
	if err != nil && err != io.EOF {
		return nil, ErrDefinitions.Wrap(err)
	}

	seen := make(map[string]struct{}, len(defs.Slots))
	for _, slot := range defs.Slots {
		if slot == "" {
			return nil, ErrDefinitions.With(slog.String("issue", "empty slot name"))
		}

		if _, ok := seen[slot]; ok {
			return nil, ErrDefinitions.With(
				slog.String("issue", "duplicate slot"),
				slog.String("slot", slot),
			)
		}

		seen[slot] = struct{}{}
	}

	return &defs, nil
}

// Shape returns the context shape declared by d. Every slot accepts any
// value decoded from a context document.
func (d *Definitions) Shape() subst.Shape {
	shape := make(subst.Shape, len(d.Slots))
	for i, name := range d.Slots {
		shape[i] = subst.SlotOf[any](name)
	}

	return shape
}

// Registry defines every variable of d in a new registry.
func (d *Definitions) Registry(opts ...subst.Option) (*subst.Registry, error) {
	b := subst.NewBuilder(d.Shape(), opts...)

	for _, name := range slices.Sorted(maps.Keys(d.Vars)) {
		binder, err := d.Vars[name].Binder()
		if err != nil {
			return nil, ErrDefinition.Wrap(err).With(slog.String("name", name))
		}

		if err := b.Define(name, binder); err != nil {
			return nil, ErrDefinition.Wrap(err).With(slog.String("name", name))
		}
	}

	return b.Registry(), nil
}

// Binder returns the binder described by v.
func (v VarSpec) Binder() (subst.Binder, error) {
	var (
		binder subst.Binder
		kinds  []string
	)

	if v.Value != nil {
		binder = subst.Var(subst.Snapshot(v.Value))
		kinds = append(kinds, "value")
	}

	if v.Field != "" {
		slot, path, _ := strings.Cut(v.Field, ".")
		binder = subst.FieldIn(slot, path)
		kinds = append(kinds, "field")
	}

	if v.Expr != "" {
		binder = subst.Expr(v.Expr)
		kinds = append(kinds, "expr")
	}

	if v.Env != "" {
		name := v.Env
		binder = subst.Var(subst.LiveFunc(func() any { return os.Getenv(name) }))
		kinds = append(kinds, "env")
	}

	if len(kinds) != 1 {
		return nil, ErrDefinition.With(
			slog.String("issue", "need exactly one of value, field, expr, env"),
			slog.String("got", strings.Join(kinds, ",")),
		)
	}

	f, ok, err := v.Format()
	if err != nil {
		return nil, err
	}

	if ok {
		binder = subst.Formatted(f, binder)
	}

	return binder, nil
}

// Format returns the output format selected by v, and whether any format key
// was set.
func (v VarSpec) Format() (subst.Format, bool, error) {
	f := subst.Format{
		Base:      v.Base,
		Width:     v.Width,
		Precision: v.Precision,
		Left:      v.Left,
		Upper:     v.Upper,
		Sign:      v.Sign,
	}

	if v.Base != 0 && (v.Base < 2 || v.Base > 36) {
		return f, false, ErrDefinition.With(slog.Int("base", v.Base))
	}

	if v.Fill != "" {
		r, size := utf8.DecodeRuneInString(v.Fill)
		if size != len(v.Fill) {
			return f, false, ErrDefinition.With(slog.String("fill", v.Fill))
		}

		f.Fill = r
	}

	if v.Float != "" {
		if len(v.Float) != 1 || !strings.Contains("beEfgGxX", v.Float) {
			return f, false, ErrDefinition.With(slog.String("float", v.Float))
		}

		f.Float = v.Float[0]
	}

	return f, f != subst.Format{}, nil
}

// loadRegistry builds the registry described by the --defs document, or an
// empty registry without slots when none was given.
func loadRegistry(ctx context.Context, opts ...subst.Option) (*subst.Registry, error) {
	o := optionsFrom(ctx)

	opts = append([]subst.Option{
		subst.WithLenient(o.Lenient),
		subst.WithLogger(log.Default()),
	}, opts...)

	if o.Defs == "" {
		return subst.NewBuilder(nil, opts...).Registry(), nil
	}

	f, err := os.Open(o.Defs)
	if err != nil {
		return nil, ErrOpenFile.Wrap(err).With(slog.String("file", o.Defs))
	}
	defer f.Close()

	defs, err := DecodeDefinitions(f)
	if err != nil {
		return nil, WrapFile(err, o.Defs)
	}

	reg, err := defs.Registry(opts...)
	if err != nil {
		return nil, WrapFile(err, o.Defs)
	}

	log.DebugContext(ctx, "definitions loaded",
		slog.String("file", o.Defs),
		slog.Int("slots", len(defs.Slots)),
		slog.Int("vars", reg.Len()),
	)

	return reg, nil
}

// WrapFile attaches the offending file name to err.
func WrapFile(err error, file string) error {
	if e, ok := err.(*Error); ok {
		return e.With(slog.String("file", file))
	}

	return err
}
