package subst

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/readahead"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/atsub/log"
)

// maxSuggest bounds the number of names suggested for an undefined variable.
const maxSuggest = 3

// Parse compiles text into a [Template] bound to r.
//
// In strict mode any malformed or undefined reference makes Parse return a
// *[ParseError] carrying every diagnostic and a nil Template. In lenient
// mode the Template is always built: undefined references and unterminated
// braces are left as literal text, and a trailing `@` ends the scan.
// Diagnostics are logged at Warn (lenient) or Error (strict).
func (r *Registry) Parse(ctx context.Context, text string) (*Template, error) {
	return r.ParseWith(ctx, text, r.logger())
}

// ParseWith is like [Registry.Parse] but logs diagnostics to logger.
func (r *Registry) ParseWith(
	ctx context.Context,
	text string,
	logger log.Logger,
) (*Template, error) {
	if logger.IsZero() {
		logger = r.logger()
	}

	p := parser{registry: r, text: text}
	p.scan()

	level := log.LevelError
	if r.config.lenient {
		level = log.LevelWarn
	}

	for _, d := range p.diags {
		logger.LogContext(ctx, level, d.Kind.msg, d.Attrs()...)
	}

	if len(p.diags) > 0 && !r.config.lenient {
		return nil, &ParseError{Diagnostics: p.diags}
	}

	logger.TraceContext(
		ctx,
		"template parsed",
		slog.Int("text_bytes", len(text)),
		slog.Int("spans", len(p.spans)),
		slog.Int("diagnostics", len(p.diags)),
	)

	return &Template{
		text:     text,
		spans:    p.spans,
		diags:    p.diags,
		registry: r,
	}, nil
}

// ParseReader reads all of rd and parses it as [Registry.Parse] does.
func (r *Registry) ParseReader(ctx context.Context, rd io.Reader) (*Template, error) {
	ra := readahead.NewReader(rd)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("source", "reader"))
	}

	return r.Parse(ctx, string(data))
}

type parser struct {
	registry *Registry
	text     string
	spans    []Span
	diags    []Diagnostic

	// position of the last diagnostic, advanced incrementally
	line, lineStart, scanned int
}

func (p *parser) scan() {
	text := p.text
	end := len(text)
	curr := 0

	for {
		i := strings.IndexByte(text[curr:], '@')
		if i < 0 {
			return
		}

		i += curr

		if i+1 == end {
			p.report(ErrUnterminatedToken, i, "@", "")

			return
		}

		var name string

		ch := text[i+1]

		switch ch {
		case '{':
			j := strings.IndexByte(text[i+2:], '}')
			if j < 0 {
				p.report(ErrUnterminatedBrace, i, text[i:], "")
				curr = i + 2

				continue
			}

			j += i + 2
			name = text[i+2 : j]
			curr = j + 1

		case '@':
			curr = i + 2
			p.spans = append(p.spans, Span{Start: i, End: curr})

			continue

		default:
			_, size := utf8.DecodeRuneInString(text[i+1:])
			name = text[i+1 : i+1+size]
			curr = i + 1 + size
		}

		def, ok := p.registry.Lookup(name)
		if !ok {
			p.report(ErrUndefinedVariable, i, text[i:curr], name)

			continue
		}

		p.spans = append(p.spans, Span{Start: i, End: curr, Def: def})
	}
}

func (p *parser) report(kind *Error, offset int, token, name string) {
	line, col := p.position(offset)

	d := Diagnostic{
		Kind:   kind,
		Offset: offset,
		Line:   line,
		Column: col,
		Token:  token,
		Name:   name,
	}

	if kind == ErrUndefinedVariable {
		d.Suggest = p.registry.suggest(name)
	}

	p.diags = append(p.diags, d)
}

// position returns the 1-based line and rune column of offset. Offsets must
// be passed in ascending order.
func (p *parser) position(offset int) (int, int) {
	if p.line == 0 {
		p.line = 1
	}

	for i := p.scanned; i < offset; i++ {
		if p.text[i] == '\n' {
			p.line++
			p.lineStart = i + 1
		}
	}

	p.scanned = offset

	return p.line, utf8.RuneCountInString(p.text[p.lineStart:offset]) + 1
}

// suggest returns the defined names most similar to name.
func (r *Registry) suggest(name string) []string {
	if name == "" || len(r.names) == 0 {
		return nil
	}

	matches := fuzzy.Find(name, r.names)
	if len(matches) == 0 {
		return nil
	}

	out := make([]string, 0, min(len(matches), maxSuggest))
	for _, m := range matches[:min(len(matches), maxSuggest)] {
		out = append(out, m.Str)
	}

	return out
}
