package subst

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values).
//
// Errors returned by this package can be matched against these with
// [errors.Is], including errors derived from them with [Error.Wrap] and
// [Error.With].
var (
	// Setup-time errors. These always abort registry construction.
	ErrDuplicateDefinition = NewError("multiple definitions for same variable name")
	ErrEmptyName           = NewError("empty variable name")
	ErrFrozen              = NewError("registry is frozen")
	ErrNilBinder           = NewError("nil binder")
	ErrNilSource           = NewError("nil live source")
	ErrNoSuchSlot          = NewError("no context slot satisfies type")
	ErrAmbiguousSlot       = NewError("multiple context slots satisfy type")
	ErrSlotRange           = NewError("context slot index out of range")
	ErrNoSuchField         = NewError("no such field")
	ErrExprCompile         = NewError("expression compilation failed")

	// Parse-time errors. These are collected as diagnostics.
	ErrUnterminatedToken = NewError("unterminated `@` at end of text")
	ErrUnterminatedBrace = NewError("unterminated `@{`")
	ErrUndefinedVariable = NewError("undefined variable")

	// Expansion-time errors.
	ErrNoTemplate   = NewError("no template")
	ErrContextShape = NewError("context does not match registry shape")
	ErrEvaluate     = NewError("evaluation failed")
	ErrWrite        = NewError("write failed")
	ErrReadInput    = NewError("failed to read input")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg   string
	err   error       // wrapped error (for errors.Unwrap)
	attrs []slog.Attr // attributes for structured logging
	base  *Error      // sentinel this error was derived from
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError wraps a standard error into an Error.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	// Build error message using the first available format,
	// depending on which fields are set:
	//
	//   1. "<msg>: <err>" // base and wrapped error both set
	//   2. "<msg>"        // wrapped error is nil
	//   3. "<err>"        // base error message is empty
	//   4. ""             // no fields are set
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether e was derived from the same sentinel as target.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.origin() == t.origin()
}

func (e *Error) origin() *Error {
	if e.base != nil {
		return e.base
	}

	return e
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.Any("cause", e.err))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Attrs returns the structured logging attributes attached to e.
func (e *Error) Attrs() []slog.Attr {
	return append([]slog.Attr(nil), e.attrs...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs, // share attrs
		base:  e.origin(),
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
		base:  e.origin(),
	}
}

// Diagnostic describes one problem found while parsing template text.
type Diagnostic struct {
	// Kind is one of ErrUnterminatedToken, ErrUnterminatedBrace, or
	// ErrUndefinedVariable.
	Kind *Error
	// Offset is the byte offset of the `@` that starts the reference.
	Offset int
	// Line and Column locate Offset (both 1-based; Column counts runes).
	Line, Column int
	// Token is the offending text, e.g. "@{missing}".
	Token string
	// Name is the referenced variable name, if any.
	Name string
	// Suggest lists defined names similar to Name, best match first.
	Suggest []string
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	var sb strings.Builder

	sb.WriteString(strconv.Itoa(d.Line))
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(d.Column))
	sb.WriteString(": ")
	sb.WriteString(d.Kind.msg)

	if d.Name != "" || d.Kind.Is(ErrUndefinedVariable) {
		sb.WriteString(" `")
		sb.WriteString(d.Name)
		sb.WriteString("` in substitution `")
		sb.WriteString(d.Token)
		sb.WriteByte('`')
	}

	if len(d.Suggest) > 0 {
		sb.WriteString(" (did you mean ")
		sb.WriteString(strings.Join(d.Suggest, ", "))
		sb.WriteByte(')')
	}

	return sb.String()
}

// Unwrap returns the diagnostic's kind so errors.Is matches the sentinel.
func (d Diagnostic) Unwrap() error { return d.Kind }

// Attrs returns the structured logging attributes describing d.
func (d Diagnostic) Attrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.Int("offset", d.Offset),
		slog.Int("line", d.Line),
		slog.Int("column", d.Column),
	}

	if d.Token != "" {
		attrs = append(attrs, slog.String("token", d.Token))
	}

	if d.Name != "" {
		attrs = append(attrs, slog.String("name", d.Name))
	}

	if len(d.Suggest) > 0 {
		attrs = append(attrs, slog.String("suggest", strings.Join(d.Suggest, ",")))
	}

	return attrs
}

// LogValue implements slog.LogValuer.
func (d Diagnostic) LogValue() slog.Value {
	return slog.GroupValue(
		append([]slog.Attr{slog.String("error", d.Kind.msg)}, d.Attrs()...)...,
	)
}

// ParseError is returned by strict parsing when the text contains at least
// one malformed or undefined reference. It carries every diagnostic found.
type ParseError struct {
	Diagnostics []Diagnostic
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	switch len(e.Diagnostics) {
	case 0:
		return "parse error"
	case 1:
		return "parse error: " + e.Diagnostics[0].Error()
	default:
		return "parse error: " + e.Diagnostics[0].Error() +
			" (and " + strconv.Itoa(len(e.Diagnostics)-1) + " more)"
	}
}

// Unwrap returns each diagnostic so errors.Is matches any of their kinds.
func (e *ParseError) Unwrap() []error {
	errs := make([]error, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		errs[i] = d
	}

	return errs
}

// LogValue implements slog.LogValuer.
func (e *ParseError) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.Diagnostics)+1)
	attrs = append(attrs, slog.Int("count", len(e.Diagnostics)))

	for i, d := range e.Diagnostics {
		attrs = append(attrs, slog.Any(strconv.Itoa(i), d))
	}

	return slog.GroupValue(attrs...)
}
