package subst

import (
	"bytes"
	"io"
	"iter"
	"slices"
)

// Span is a range of template text replaced during expansion.
type Span struct {
	Start, End int
	// Def is the referenced definition, or nil for the `@@` escape.
	Def *Definition
}

// IsEscape reports whether s is an `@@` escape.
func (s Span) IsEscape() bool { return s.Def == nil }

// Name returns the referenced variable name, or "" for an escape.
func (s Span) Name() string {
	if s.Def == nil {
		return ""
	}

	return s.Def.name
}

// Template is parsed text ready to be expanded. A Template is immutable and
// safe for concurrent expansion, provided each call has its own writer and
// context. The nil *Template represents an absent template.
type Template struct {
	text     string
	spans    []Span
	diags    []Diagnostic
	registry *Registry
}

// Expand writes the template to w, substituting every reference with the
// output of its evaluator applied to the context tuple ctx.
//
// ctx is checked against the registry's shape before anything is written.
// Each argument is one slot value; to expand with an existing [Context],
// spread it (t.Expand(w, ctx...)) or call [Template.ExpandSink].
func (t *Template) Expand(w io.Writer, ctx ...any) error {
	if t == nil {
		return ErrNoTemplate
	}

	return t.ExpandSink(NewSink(w), Context(ctx))
}

// ExpandSink is like [Template.Expand] for a caller-owned Sink. The sink's
// format is the same after the call as before.
func (t *Template) ExpandSink(s *Sink, ctx Context) error {
	if t == nil {
		return ErrNoTemplate
	}

	if err := t.registry.shape.Check(ctx); err != nil {
		return err
	}

	curr := 0

	for _, span := range t.spans {
		if _, err := s.WriteString(t.text[curr:span.Start]); err != nil {
			return err
		}

		curr = span.End

		if span.Def == nil {
			if _, err := s.WriteString("@"); err != nil {
				return err
			}

			continue
		}

		if err := span.Def.Eval(s, ctx); err != nil {
			return err
		}
	}

	_, err := s.WriteString(t.text[curr:])

	return err
}

// String returns the expansion of t as a string.
func (t *Template) String(ctx ...any) (string, error) {
	var buf bytes.Buffer
	if err := t.Expand(&buf, ctx...); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// RefersTo reports whether t substitutes the variable named name.
// Escapes never match, nor do names only defined in the registry.
func (t *Template) RefersTo(name string) bool {
	if t == nil {
		return false
	}

	for _, span := range t.spans {
		if span.Def != nil && span.Def.name == name {
			return true
		}
	}

	return false
}

// Refs returns the distinct referenced variable names in order of first use.
func (t *Template) Refs() iter.Seq[string] {
	return func(yield func(string) bool) {
		if t == nil {
			return
		}

		seen := make(map[string]struct{}, len(t.spans))

		for _, span := range t.spans {
			if span.Def == nil {
				continue
			}

			if _, ok := seen[span.Def.name]; ok {
				continue
			}

			seen[span.Def.name] = struct{}{}

			if !yield(span.Def.name) {
				return
			}
		}
	}
}

// Spans returns the template's spans in ascending order.
func (t *Template) Spans() iter.Seq[Span] {
	if t == nil {
		return func(func(Span) bool) {}
	}

	return slices.Values(t.spans)
}

// Diagnostics returns the problems tolerated by a lenient parse.
func (t *Template) Diagnostics() []Diagnostic {
	if t == nil {
		return nil
	}

	return slices.Clone(t.diags)
}

// Text returns the source text.
func (t *Template) Text() string {
	if t == nil {
		return ""
	}

	return t.text
}

// Registry returns the registry t was parsed against.
func (t *Template) Registry() *Registry {
	if t == nil {
		return nil
	}

	return t.registry
}
