package subst

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ardnew/atsub/log"
)

// quiet is a logger discarding all diagnostics.
func quiet() log.Logger { return log.Make(io.Discard) }

// letters returns a registry defining each name as a snapshot of its
// upper-case form.
func letters(t testing.TB, lenient bool, names ...string) *Registry {
	t.Helper()

	b := NewBuilder(nil, WithLenient(lenient), WithLogger(quiet()))
	for _, name := range names {
		if err := b.Define(name, Var(Snapshot(strings.ToUpper(name)))); err != nil {
			t.Fatalf("define %q: %v", name, err)
		}
	}

	return b.Registry()
}

type spanRef struct {
	Start, End int
	Name       string
}

func spanRefs(tmpl *Template) []spanRef {
	var out []spanRef
	for s := range tmpl.Spans() {
		out = append(out, spanRef{s.Start, s.End, s.Name()})
	}

	return out
}

func TestParse_Spans(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []spanRef
	}{
		{name: "empty", input: "", want: nil},
		{name: "no references", input: "hello, world", want: nil},
		{
			name:  "shorthand",
			input: "a@xb",
			want:  []spanRef{{1, 3, "x"}},
		},
		{
			name:  "braced",
			input: "<@{long}>",
			want:  []spanRef{{1, 8, "long"}},
		},
		{
			name:  "escape",
			input: "me@@example",
			want:  []spanRef{{2, 4, ""}},
		},
		{
			name:  "adjacent",
			input: "@x@y@@@{long}",
			want: []spanRef{
				{0, 2, "x"},
				{2, 4, "y"},
				{4, 6, ""},
				{6, 13, "long"},
			},
		},
		{
			name:  "escape before name",
			input: "@@x",
			want:  []spanRef{{0, 2, ""}},
		},
	}

	reg := letters(t, false, "x", "y", "long")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := reg.Parse(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}

			if diff := cmp.Diff(tt.want, spanRefs(tmpl)); diff != "" {
				t.Errorf("spans mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Diagnostics(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Diagnostic
		spans []spanRef
	}{
		{
			name:  "trailing at",
			input: "Trailing @",
			want: []Diagnostic{{
				Kind: ErrUnterminatedToken, Offset: 9, Line: 1, Column: 10,
				Token: "@",
			}},
		},
		{
			name:  "trailing at stops scan",
			input: "@x @",
			want: []Diagnostic{{
				Kind: ErrUnterminatedToken, Offset: 3, Line: 1, Column: 4,
				Token: "@",
			}},
			spans: []spanRef{{0, 2, "x"}},
		},
		{
			name:  "unterminated brace continues",
			input: "@{x @y",
			want: []Diagnostic{{
				Kind: ErrUnterminatedBrace, Offset: 0, Line: 1, Column: 1,
				Token: "@{x @y",
			}},
			spans: []spanRef{{4, 6, "y"}},
		},
		{
			name:  "undefined braced",
			input: "@{missing}",
			want: []Diagnostic{{
				Kind: ErrUndefinedVariable, Offset: 0, Line: 1, Column: 1,
				Token: "@{missing}", Name: "missing",
			}},
		},
		{
			name:  "undefined shorthand",
			input: "a\nb @q @x",
			want: []Diagnostic{{
				Kind: ErrUndefinedVariable, Offset: 4, Line: 2, Column: 3,
				Token: "@q", Name: "q",
			}},
			spans: []spanRef{{7, 9, "x"}},
		},
		{
			name:  "empty braces",
			input: "@{}",
			want: []Diagnostic{{
				Kind: ErrUndefinedVariable, Offset: 0, Line: 1, Column: 1,
				Token: "@{}",
			}},
		},
		{
			name:  "multibyte shorthand",
			input: "é@λ",
			want: []Diagnostic{{
				Kind: ErrUndefinedVariable, Offset: 2, Line: 1, Column: 2,
				Token: "@λ", Name: "λ",
			}},
		},
		{
			name:  "several",
			input: "@{a\n@z\n@",
			want: []Diagnostic{
				{
					Kind: ErrUnterminatedBrace, Offset: 0, Line: 1, Column: 1,
					Token: "@{a\n@z\n@",
				},
				{
					Kind: ErrUndefinedVariable, Offset: 4, Line: 2, Column: 1,
					Token: "@z", Name: "z",
				},
				{
					Kind: ErrUnterminatedToken, Offset: 7, Line: 3, Column: 1,
					Token: "@",
				},
			},
		},
	}

	opts := cmp.Options{
		cmpopts.IgnoreFields(Diagnostic{}, "Suggest"),
		cmp.Comparer(func(a, b *Error) bool { return a == b }),
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strict := letters(t, false, "x", "y")

			tmpl, err := strict.Parse(context.Background(), tt.input)
			if tmpl != nil {
				t.Errorf("strict parse returned a template")
			}

			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %v", err)
			}

			if diff := cmp.Diff(tt.want, perr.Diagnostics, opts); diff != "" {
				t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
			}

			lenient := letters(t, true, "x", "y")

			tmpl, err = lenient.Parse(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("lenient parse error: %v", err)
			}

			if diff := cmp.Diff(tt.want, tmpl.Diagnostics(), opts); diff != "" {
				t.Errorf("lenient diagnostics mismatch (-want +got):\n%s", diff)
			}

			if diff := cmp.Diff(tt.spans, spanRefs(tmpl)); diff != "" {
				t.Errorf("lenient spans mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_ErrorsIs(t *testing.T) {
	reg := letters(t, false)

	_, err := reg.Parse(context.Background(), "@{oops @y")
	if !errors.Is(err, ErrUnterminatedBrace) {
		t.Errorf("expected ErrUnterminatedBrace in %v", err)
	}

	if !errors.Is(err, ErrUndefinedVariable) {
		t.Errorf("expected ErrUndefinedVariable in %v", err)
	}

	if errors.Is(err, ErrUnterminatedToken) {
		t.Errorf("unexpected ErrUnterminatedToken in %v", err)
	}
}

func TestParse_Suggestions(t *testing.T) {
	reg := letters(t, true, "request_id", "response", "connection", "x")

	tmpl, err := reg.Parse(context.Background(), "@{reqid}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	diags := tmpl.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diags))
	}

	if len(diags[0].Suggest) == 0 || diags[0].Suggest[0] != "request_id" {
		t.Errorf("expected request_id first, got %v", diags[0].Suggest)
	}

	if len(diags[0].Suggest) > maxSuggest {
		t.Errorf("too many suggestions: %v", diags[0].Suggest)
	}

	if !strings.Contains(diags[0].Error(), "did you mean request_id") {
		t.Errorf("message lacks suggestion: %q", diags[0].Error())
	}
}

func TestParse_LogLevel(t *testing.T) {
	tests := []struct {
		name    string
		lenient bool
		want    string
	}{
		{name: "strict", lenient: false, want: "level=ERROR"},
		{name: "lenient", lenient: true, want: "level=WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			b := NewBuilder(nil,
				WithLenient(tt.lenient),
				WithLogger(log.Make(&buf, log.WithTimeLayout("none"))),
			)

			_, _ = b.Registry().Parse(context.Background(), "@{missing}")

			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("expected %q in log output %q", tt.want, out)
			}

			if !strings.Contains(out, ErrUndefinedVariable.Error()) {
				t.Errorf("expected diagnostic message in log output %q", out)
			}
		})
	}
}

func TestParseWith_Logger(t *testing.T) {
	var buf bytes.Buffer

	reg := letters(t, true)

	_, err := reg.ParseWith(context.Background(), "@q", log.Make(&buf))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if !strings.Contains(buf.String(), "name=q") {
		t.Errorf("diagnostic not logged to override logger: %q", buf.String())
	}
}

func TestParseReader(t *testing.T) {
	reg := letters(t, false, "x")

	tmpl, err := reg.ParseReader(context.Background(), strings.NewReader("[@x]"))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	got, err := tmpl.String()
	if err != nil {
		t.Fatalf("expand error: %v", err)
	}

	if got != "[X]" {
		t.Errorf("expected %q, got %q", "[X]", got)
	}
}

func TestParseReader_Error(t *testing.T) {
	reg := letters(t, false)

	_, err := reg.ParseReader(context.Background(), failReader{})
	if !errors.Is(err, ErrReadInput) {
		t.Errorf("expected ErrReadInput, got %v", err)
	}
}

type failReader struct{}

func (failReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"", "@", "@@", "@x", "@{x}", "@{", "@{}", "a@{b@c}d@", "@é", "x@@@y",
	} {
		f.Add(seed)
	}

	reg := letters(f, true, "x", "y", "b@c")

	f.Fuzz(func(t *testing.T, text string) {
		tmpl, err := reg.Parse(context.Background(), text)
		if err != nil {
			t.Fatalf("lenient parse failed: %v", err)
		}

		prev := 0
		for s := range tmpl.Spans() {
			if s.Start < prev || s.End <= s.Start || s.End > len(text) {
				t.Fatalf("bad span %+v after %d in %q", s, prev, text)
			}

			if text[s.Start] != '@' {
				t.Fatalf("span %+v does not start at '@' in %q", s, text)
			}

			prev = s.End
		}

		if !strings.Contains(text, "@") {
			got, err := tmpl.String()
			if err != nil || got != text {
				t.Fatalf("expand %q = %q, %v", text, got, err)
			}
		}
	})
}
