package subst

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Format is the formatting state of a [Sink]. The zero Format selects the
// defaults: decimal integers, shortest floats, no padding.
type Format struct {
	// Base is the radix for integers (2 to 36). Zero means 10.
	Base int
	// Width is the minimum number of runes written per value.
	Width int
	// Precision is the number of digits for floats. Zero (or negative) means
	// the smallest number necessary to represent the value exactly, so a
	// fixed 'f' format cannot drop the fraction entirely; print an integer
	// for that.
	Precision int
	// Fill pads values shorter than Width. Zero means space.
	Fill rune
	// Left pads on the right instead of the left.
	Left bool
	// Upper writes digits and float exponents in upper case.
	Upper bool
	// Float is the strconv verb for floats ('e', 'f', 'g', ...). Zero means 'g'.
	Float byte
	// Sign writes a leading '+' for non-negative numbers.
	Sign bool
}

func (f Format) base() int {
	if f.Base < 2 || f.Base > 36 {
		return 10
	}

	return f.Base
}

func (f Format) fill() rune {
	if f.Fill == 0 {
		return ' '
	}

	return f.Fill
}

func (f Format) verb() byte {
	if f.Float == 0 {
		return 'g'
	}

	return f.Float
}

func (f Format) precision() int {
	if f.Precision <= 0 {
		return -1
	}

	return f.Precision
}

// Sink is the output target of an expansion. It wraps an io.Writer with the
// format state evaluators may change for the value they write.
type Sink struct {
	w      io.Writer
	format Format
	n      int64
}

// NewSink returns a Sink writing to w with the default format.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// Write implements io.Writer. Bytes are written unformatted.
func (s *Sink) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.n += int64(n)

	if err != nil {
		return n, ErrWrite.Wrap(err)
	}

	return n, nil
}

// WriteString writes str unformatted.
func (s *Sink) WriteString(str string) (int, error) {
	n, err := io.WriteString(s.w, str)
	s.n += int64(n)

	if err != nil {
		return n, ErrWrite.Wrap(err)
	}

	return n, nil
}

// Print writes v using the current format.
//
// Integers honor Base and Sign, floats honor Float, Precision and Sign, and
// every value is padded to Width with Fill. Values of other kinds are
// written as by fmt.Sprint.
func (s *Sink) Print(v any) error {
	str := s.format.render(v)

	if pad := s.format.Width - utf8.RuneCountInString(str); pad > 0 {
		fill := strings.Repeat(string(s.format.fill()), pad)
		if s.format.Left {
			str += fill
		} else {
			str = fill + str
		}
	}

	_, err := s.WriteString(str)

	return err
}

// Printf writes a string formatted by fmt.Sprintf, padded as [Sink.Print].
func (s *Sink) Printf(format string, args ...any) error {
	return s.Print(fmt.Sprintf(format, args...))
}

// Format returns the current format.
func (s *Sink) Format() Format { return s.format }

// SetFormat replaces the current format and returns the previous one.
func (s *Sink) SetFormat(f Format) Format {
	prev := s.format
	s.format = f

	return prev
}

// Written returns the number of bytes written to the underlying writer.
func (s *Sink) Written() int64 { return s.n }

func (f Format) render(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	case bool:
		return strconv.FormatBool(v)
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()

		return f.sign(i >= 0) + f.digits(strconv.FormatInt(i, f.base()))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr:
		return f.sign(true) + f.digits(strconv.FormatUint(rv.Uint(), f.base()))

	case reflect.Float32, reflect.Float64:
		x := rv.Float()
		str := strconv.FormatFloat(x, f.verb(), f.precision(), rv.Type().Bits())

		return f.sign(x >= 0) + f.digits(str)

	case reflect.String:
		return rv.String()

	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())

	default:
		return fmt.Sprint(v)
	}
}

func (f Format) sign(nonNegative bool) string {
	if f.Sign && nonNegative {
		return "+"
	}

	return ""
}

func (f Format) digits(s string) string {
	if f.Upper {
		return strings.ToUpper(s)
	}

	return s
}
