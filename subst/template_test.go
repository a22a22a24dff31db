package subst

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type connCtx struct{ Y int }

type reqCtx struct{ X int }

// scenario returns a registry over (conn, req) defining x as a field of the
// request and y as a field of the connection.
func scenario(t testing.TB, opts ...Option) *Registry {
	t.Helper()

	opts = append([]Option{WithLogger(quiet())}, opts...)

	b := NewBuilder(Shape{
		SlotOf[*connCtx]("conn"),
		SlotOf[*reqCtx]("req"),
	}, opts...)

	b.MustDefine("x", Field[reqCtx]("X"))
	b.MustDefine("y", Field[connCtx]("Y"))

	return b.Registry()
}

func TestTemplate_ChangingContext(t *testing.T) {
	tmpl, err := scenario(t).Parse(context.Background(), "<@x:@y>\n")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	a, b := &connCtx{Y: 0}, &reqCtx{X: 0}

	for _, step := range []struct {
		y, x int
		want string
	}{
		{0, 0, "<0:0>\n"},
		{1, 2, "<2:1>\n"},
		{2, 4, "<4:2>\n"},
	} {
		a.Y, b.X = step.y, step.x

		got, err := tmpl.String(a, b)
		if err != nil {
			t.Fatalf("expand error: %v", err)
		}

		if got != step.want {
			t.Errorf("expected %q, got %q", step.want, got)
		}
	}
}

func TestTemplate_NoReferences(t *testing.T) {
	reg := scenario(t)

	for _, text := range []string{"", "plain", "multi\nline\ttext", "{braces} and }"} {
		tmpl, err := reg.Parse(context.Background(), text)
		if err != nil {
			t.Fatalf("parse %q: %v", text, err)
		}

		for _, ctx := range [][]any{
			{&connCtx{}, &reqCtx{}},
			{&connCtx{Y: 9}, &reqCtx{X: 7}},
			{(*connCtx)(nil), (*reqCtx)(nil)},
		} {
			got, err := tmpl.String(ctx...)
			if err != nil {
				t.Fatalf("expand %q: %v", text, err)
			}

			if got != text {
				t.Errorf("expected %q, got %q", text, got)
			}
		}
	}
}

func TestTemplate_Escape(t *testing.T) {
	reg := letters(t, false, "x")

	tests := []struct {
		input string
		want  string
	}{
		{"@@", "@"},
		{"user@@host", "user@host"},
		{"@@x", "@x"},
		{"@@@x", "@X"},
		{"@@@@", "@@"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tmpl, err := reg.Parse(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}

			got, err := tmpl.String()
			if err != nil {
				t.Fatalf("expand error: %v", err)
			}

			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}

			for s := range tmpl.Spans() {
				if s.IsEscape() && s.Name() != "" {
					t.Errorf("escape span %+v has a name", s)
				}
			}
		})
	}
}

func TestTemplate_ShorthandEqualsBraced(t *testing.T) {
	reg := scenario(t)
	ctx := []any{&connCtx{Y: 3}, &reqCtx{X: 5}}

	short, err := reg.Parse(context.Background(), "[@x|@y]")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	braced, err := reg.Parse(context.Background(), "[@{x}|@{y}]")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	a, err := short.String(ctx...)
	if err != nil {
		t.Fatalf("expand error: %v", err)
	}

	b, err := braced.String(ctx...)
	if err != nil {
		t.Fatalf("expand error: %v", err)
	}

	if a != b || a != "[5|3]" {
		t.Errorf("expected identical %q, got %q and %q", "[5|3]", a, b)
	}
}

func TestTemplate_Lenient(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"undefined", "@{missing}", "@{missing}"},
		{"undefined shorthand", "a@qb", "a@qb"},
		{"trailing", "Trailing @", "Trailing @"},
		{"trailing after variable", "@x @", "5 @"},
		{"unterminated brace", "@{x", "@{x"},
		{"brace then variable", "@{ @x", "@{ 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strict := scenario(t)
			if tmpl, err := strict.Parse(context.Background(), tt.input); err == nil || tmpl != nil {
				t.Fatalf("strict parse of %q succeeded", tt.input)
			}

			lenient := scenario(t, WithLenient(true))

			tmpl, err := lenient.Parse(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("lenient parse error: %v", err)
			}

			got, err := tmpl.String(&connCtx{}, &reqCtx{X: 5})
			if err != nil {
				t.Fatalf("expand error: %v", err)
			}

			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTemplate_RefersTo(t *testing.T) {
	b := NewBuilder(nil, WithLenient(true), WithLogger(quiet()))
	for _, name := range []string{"a", "b", "long", "unused"} {
		b.MustDefine(name, Var(Snapshot(name)))
	}

	tmpl, err := b.Registry().Parse(context.Background(), "@a @{long} @@ @b @a @{nope}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	for name, want := range map[string]bool{
		"a":      true,
		"b":      true,
		"long":   true,
		"unused": false,
		"nope":   false,
		"@":      false,
		"":       false,
	} {
		if got := tmpl.RefersTo(name); got != want {
			t.Errorf("RefersTo(%q) = %v, want %v", name, got, want)
		}
	}

	if diff := cmp.Diff([]string{"a", "long", "b"}, slices.Collect(tmpl.Refs())); diff != "" {
		t.Errorf("refs mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplate_Nil(t *testing.T) {
	var tmpl *Template

	if err := tmpl.Expand(&bytes.Buffer{}); !errors.Is(err, ErrNoTemplate) {
		t.Errorf("expected ErrNoTemplate, got %v", err)
	}

	if tmpl.RefersTo("x") {
		t.Error("nil template refers to x")
	}

	if tmpl.Text() != "" || tmpl.Registry() != nil || tmpl.Diagnostics() != nil {
		t.Error("nil template has state")
	}

	for range tmpl.Spans() {
		t.Error("nil template has spans")
	}

	for range tmpl.Refs() {
		t.Error("nil template has refs")
	}
}

func TestTemplate_ContextShape(t *testing.T) {
	tmpl, err := scenario(t).Parse(context.Background(), "before @x after")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	tests := []struct {
		name string
		ctx  []any
	}{
		{"empty", nil},
		{"short", []any{&connCtx{}}},
		{"long", []any{&connCtx{}, &reqCtx{}, 1}},
		{"swapped", []any{&reqCtx{}, &connCtx{}}},
		{"value not pointer", []any{connCtx{}, &reqCtx{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			err := tmpl.Expand(&buf, tt.ctx...)
			if !errors.Is(err, ErrContextShape) {
				t.Errorf("expected ErrContextShape, got %v", err)
			}

			if buf.Len() != 0 {
				t.Errorf("expected no output, got %q", buf.String())
			}
		})
	}
}

func TestTemplate_ExpandWithContext(t *testing.T) {
	tmpl, err := scenario(t).Parse(context.Background(), "@x@y")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	ctx := Context{&connCtx{Y: 2}, &reqCtx{X: 1}}

	var buf bytes.Buffer

	if err := tmpl.Expand(&buf, ctx...); err != nil {
		t.Fatalf("spread expand error: %v", err)
	}

	if err := tmpl.ExpandSink(NewSink(&buf), ctx); err != nil {
		t.Fatalf("sink expand error: %v", err)
	}

	if buf.String() != "1212" {
		t.Errorf("expected %q, got %q", "1212", buf.String())
	}

	// A Context passed as one argument is a one-slot tuple.
	buf.Reset()

	if err := tmpl.Expand(&buf, ctx); !errors.Is(err, ErrContextShape) {
		t.Errorf("expected ErrContextShape, got %v", err)
	}

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestTemplate_NilPointerContext(t *testing.T) {
	tmpl, err := scenario(t).Parse(context.Background(), "[@x]")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	got, err := tmpl.String(&connCtx{}, (*reqCtx)(nil))
	if err != nil {
		t.Fatalf("expand error: %v", err)
	}

	if got != "[]" {
		t.Errorf("expected %q, got %q", "[]", got)
	}
}

func TestTemplate_FormatRestored(t *testing.T) {
	errBoom := errors.New("boom")

	b := NewBuilder(nil, WithLogger(quiet()))
	b.MustDefine("h", Formatted(Format{Base: 16, Width: 4, Fill: '0'}, Var(Snapshot(255))))
	b.MustDefine("n", Var(Snapshot(255)))
	b.MustDefine("f", Func(func(s *Sink, _ Context) error {
		s.SetFormat(Format{Width: 8, Fill: '*'})

		return errBoom
	}))

	reg := b.Registry()

	tmpl, err := reg.Parse(context.Background(), "@h @n @h @n")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	got, err := tmpl.String()
	if err != nil {
		t.Fatalf("expand error: %v", err)
	}

	if want := "00ff 255 00ff 255"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	failing, err := reg.Parse(context.Background(), "@n@f@n")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	var buf bytes.Buffer

	sink := NewSink(&buf)
	sink.SetFormat(Format{Width: 5})

	err = failing.ExpandSink(sink, nil)
	if !errors.Is(err, errBoom) || !errors.Is(err, ErrEvaluate) {
		t.Errorf("expected wrapped evaluation error, got %v", err)
	}

	if diff := cmp.Diff(Format{Width: 5}, sink.Format()); diff != "" {
		t.Errorf("format not restored (-want +got):\n%s", diff)
	}

	if want := "  255"; buf.String() != want {
		t.Errorf("expected partial output %q, got %q", want, buf.String())
	}
}

func TestTemplate_FormatRestoredOnPanic(t *testing.T) {
	b := NewBuilder(nil, WithLogger(quiet()))
	b.MustDefine("p", Func(func(s *Sink, _ Context) error {
		s.SetFormat(Format{Base: 2})
		panic("evaluator panic")
	}))

	tmpl, err := b.Registry().Parse(context.Background(), "@p")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	sink := NewSink(&bytes.Buffer{})

	func() {
		defer func() { _ = recover() }()

		_ = tmpl.ExpandSink(sink, nil)
	}()

	if sink.Format() != (Format{}) {
		t.Errorf("format not restored after panic: %+v", sink.Format())
	}
}

func TestTemplate_ConcurrentExpand(t *testing.T) {
	tmpl, err := scenario(t).Parse(context.Background(), "<@x:@y>")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	const n = 64

	var wg sync.WaitGroup

	got := make([]string, n)

	for i := range n {
		wg.Go(func() {
			got[i], _ = tmpl.String(&connCtx{Y: i}, &reqCtx{X: -i})
		})
	}

	wg.Wait()

	for i, s := range got {
		if want := fmt.Sprintf("<%d:%d>", -i, i); s != want {
			t.Errorf("expansion %d: expected %q, got %q", i, want, s)
		}
	}
}

func TestTemplate_WriteError(t *testing.T) {
	tmpl, err := letters(t, false, "x").Parse(context.Background(), "a@xb")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	err = tmpl.Expand(failWriter{})
	if !errors.Is(err, ErrWrite) {
		t.Errorf("expected ErrWrite, got %v", err)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestTemplate_Text(t *testing.T) {
	reg := scenario(t)

	text := strings.Repeat("@x-", 3)

	tmpl, err := reg.Parse(context.Background(), text)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if tmpl.Text() != text {
		t.Errorf("expected text %q, got %q", text, tmpl.Text())
	}

	if tmpl.Registry() != reg {
		t.Error("template bound to wrong registry")
	}
}
