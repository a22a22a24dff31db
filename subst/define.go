package subst

import (
	"log/slog"
	"reflect"
	"strings"
)

// Evaluator writes the substituted output of one variable to s.
// ctx has already been checked against the registry's [Shape].
type Evaluator func(s *Sink, ctx Context) error

// Binder turns a variable description into an [Evaluator] for a given
// context shape. Binding happens once, in [Builder.Define]; every problem a
// Binder can detect statically is reported there and never during expansion.
type Binder interface {
	Bind(shape Shape) (Evaluator, error)
}

// BinderFunc adapts an ordinary function to the [Binder] interface.
type BinderFunc func(shape Shape) (Evaluator, error)

// Bind implements [Binder].
func (f BinderFunc) Bind(shape Shape) (Evaluator, error) { return f(shape) }

// Var returns a Binder that writes the value of src.
func Var(src Source) Binder {
	return BinderFunc(func(Shape) (Evaluator, error) {
		if !src.IsValid() {
			return nil, ErrNilSource
		}

		return func(s *Sink, _ Context) error {
			return s.Print(src.Load())
		}, nil
	})
}

// Func returns a Binder for a free-form evaluator that may read any number
// of context values.
func Func(fn Evaluator) Binder {
	return BinderFunc(func(Shape) (Evaluator, error) {
		if fn == nil {
			return nil, ErrNilBinder
		}

		return fn, nil
	})
}

// Field returns a Binder that writes the value found at path inside the
// unique context slot whose values can be read as a C (see [Shape.Resolve]).
//
// Path is a dot-separated list of struct field names or string map keys; an
// empty path writes the slot value itself.
func Field[C any](path string) Binder {
	return BinderFunc(func(shape Shape) (Evaluator, error) {
		i, err := shape.Resolve(reflect.TypeFor[C]())
		if err != nil {
			return nil, err
		}

		return bindField(shape, i, path)
	})
}

// FieldAt is like [Field] with the slot given by its index.
func FieldAt(index int, path string) Binder {
	return BinderFunc(func(shape Shape) (Evaluator, error) {
		if index < 0 || index >= len(shape) {
			return nil, slotRange(shape, index)
		}

		return bindField(shape, index, path)
	})
}

// FieldIn is like [Field] with the slot given by its name.
func FieldIn(slot, path string) Binder {
	return BinderFunc(func(shape Shape) (Evaluator, error) {
		i, ok := shape.Index(slot)
		if !ok {
			return nil, ErrNoSuchSlot.With(
				slog.String("slot", slot),
				slog.String("shape", shape.String()),
			)
		}

		for j := i + 1; j < len(shape); j++ {
			if shape[j].Name == slot {
				return nil, ErrAmbiguousSlot.With(slog.String("slot", slot))
			}
		}

		return bindField(shape, i, path)
	})
}

// Formatted returns a Binder that applies f to the sink before delegating to
// b. The expander restores the previous format afterwards.
func Formatted(f Format, b Binder) Binder {
	return BinderFunc(func(shape Shape) (Evaluator, error) {
		if b == nil {
			return nil, ErrNilBinder
		}

		eval, err := b.Bind(shape)
		if err != nil {
			return nil, err
		}

		return func(s *Sink, ctx Context) error {
			s.SetFormat(f)

			return eval(s, ctx)
		}, nil
	})
}

// stepKind selects how an accessor step descends into a value.
type stepKind uint8

const (
	stepField   stepKind = iota // struct field by index, checked statically
	stepKey                     // string-keyed map lookup
	stepDynamic                 // resolved against the dynamic value
)

type step struct {
	kind  stepKind
	name  string
	index []int
}

// bindField compiles path against the static type of slot i.
func bindField(shape Shape, i int, path string) (Evaluator, error) {
	steps, err := compilePath(shape[i].Type, path)
	if err != nil {
		return nil, err.With(
			slog.String("slot", shape[i].Name),
			slog.String("path", path),
		)
	}

	return func(s *Sink, ctx Context) error {
		v, ok := walk(reflect.ValueOf(ctx[i]), steps)
		if !ok {
			return nil
		}

		return s.Print(v.Interface())
	}, nil
}

func compilePath(t reflect.Type, path string) ([]step, *Error) {
	if path == "" {
		return nil, nil
	}

	names := strings.Split(path, ".")
	steps := make([]step, 0, len(names))

	for n, name := range names {
		if name == "" {
			return nil, ErrNoSuchField.With(slog.String("field", path))
		}

		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}

		switch t.Kind() {
		case reflect.Struct:
			f, ok := t.FieldByName(name)
			if !ok || !f.IsExported() {
				return nil, ErrNoSuchField.With(
					slog.String("field", name),
					slog.String("type", t.String()),
				)
			}

			steps = append(steps, step{kind: stepField, name: name, index: f.Index})
			t = f.Type

		case reflect.Map:
			if t.Key().Kind() != reflect.String {
				return nil, ErrNoSuchField.With(
					slog.String("field", name),
					slog.String("type", t.String()),
				)
			}

			steps = append(steps, step{kind: stepKey, name: name})
			t = t.Elem()

		case reflect.Interface:
			// The rest of the path depends on the dynamic value.
			for _, rest := range names[n:] {
				if rest == "" {
					return nil, ErrNoSuchField.With(slog.String("field", path))
				}

				steps = append(steps, step{kind: stepDynamic, name: rest})
			}

			return steps, nil

		default:
			return nil, ErrNoSuchField.With(
				slog.String("field", name),
				slog.String("type", t.String()),
			)
		}
	}

	return steps, nil
}

// walk follows steps from v. It reports false when a nil pointer,
// interface, or map is met (including an embedded pointer on the way to a
// promoted field) or a key or dynamic field is missing.
func walk(v reflect.Value, steps []step) (reflect.Value, bool) {
	for _, st := range steps {
		v = indirect(v)
		if !v.IsValid() {
			return v, false
		}

		switch st.kind {
		case stepField:
			f, err := v.FieldByIndexErr(st.index)
			if err != nil {
				return v, false
			}

			v = f

		case stepKey:
			if v.IsNil() {
				return v, false
			}

			v = v.MapIndex(reflect.ValueOf(st.name).Convert(v.Type().Key()))
			if !v.IsValid() {
				return v, false
			}

		case stepDynamic:
			switch v.Kind() {
			case reflect.Map:
				if v.Type().Key().Kind() != reflect.String || v.IsNil() {
					return v, false
				}

				v = v.MapIndex(reflect.ValueOf(st.name).Convert(v.Type().Key()))

			case reflect.Struct:
				f, ok := v.Type().FieldByName(st.name)
				if !ok || !f.IsExported() {
					return v, false
				}

				fv, err := v.FieldByIndexErr(f.Index)
				if err != nil {
					return v, false
				}

				v = fv

			default:
				return v, false
			}

			if !v.IsValid() {
				return v, false
			}
		}
	}

	v = indirect(v)

	return v, v.IsValid()
}

// indirect dereferences pointers and interfaces until reaching a concrete
// value, returning the invalid Value on nil.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}

		v = v.Elem()
	}

	return v
}
