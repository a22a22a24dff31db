// Package subst implements `@`-reference variable substitution.
//
// A [Registry] maps variable names to evaluators. Text is parsed against a
// registry once into an immutable [Template], which is then expanded any
// number of times against a tuple of context values ([Context]).
//
// # Reference syntax
//
//	@x       variable with the one-character name "x"
//	@{name}  variable with any name not containing '}'
//	@@       a literal '@'
//
// # Example
//
//	type conn struct{ ID int }
//	type req struct{ ID int }
//
//	b := subst.NewBuilder(subst.Shape{
//		subst.SlotOf[*conn]("conn"),
//		subst.SlotOf[*req]("req"),
//	})
//	b.MustDefine("c", subst.Field[conn]("ID"))
//	b.MustDefine("r", subst.Field[req]("ID"))
//
//	t, err := b.Registry().Parse(ctx, "<@c:@r>\n")
//	if err != nil {
//		return err
//	}
//
//	err = t.Expand(os.Stdout, &conn{ID: 2}, &req{ID: 1}) // <2:1>
//
// # Strict and lenient parsing
//
// By default a template containing an undefined variable, an unterminated
// `@{`, or a trailing `@` is rejected with a [*ParseError]. With
// [WithLenient] the template is built anyway: offending references are kept
// as literal text, and scanning stops at a trailing `@`. In both modes each
// problem is logged as a [Diagnostic].
//
// # Formatting
//
// Evaluators write through a [Sink] whose [Format] controls how numbers are
// rendered and padded. A format set by one evaluator, for example with
// [Formatted], applies only to that variable.
package subst
