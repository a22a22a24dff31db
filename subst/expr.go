package subst

import (
	"log/slog"
	"maps"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Expr returns a Binder evaluating the expr-lang expression source and
// writing its result. Every context slot is visible by name, in addition to
// the built-in environment ([BuiltinEnv]).
//
// The expression is compiled once, when defined; compilation errors are
// reported as ErrExprCompile.
func Expr(source string) Binder {
	return BinderFunc(func(shape Shape) (Evaluator, error) {
		if source == "" {
			return nil, ErrExprCompile.With(slog.String("issue", "empty expression"))
		}

		base := BuiltinEnv()

		env := maps.Clone(base)
		for _, slot := range shape {
			env[slot.Name] = exemplar(slot.Type)
		}

		program, err := expr.Compile(source, expr.Env(env))
		if err != nil {
			return nil, ErrExprCompile.Wrap(err).With(slog.String("source", source))
		}

		return func(s *Sink, ctx Context) error {
			return runExpr(s, program, base, shape, ctx)
		}, nil
	})
}

func runExpr(
	s *Sink,
	program *vm.Program,
	base map[string]any,
	shape Shape,
	ctx Context,
) error {
	env := maps.Clone(base)
	for i, slot := range shape {
		env[slot.Name] = ctx.At(i)
	}

	result, err := vm.Run(program, env)
	if err != nil {
		return err
	}

	return s.Print(result)
}

// exemplar returns a value of type t for type-checking expressions, or nil
// for interface types whose dynamic type is only known at expansion time.
func exemplar(t reflect.Type) any {
	if t == nil || t.Kind() == reflect.Interface {
		return nil
	}

	return reflect.Zero(t).Interface()
}
