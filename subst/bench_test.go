package subst

import (
	"context"
	"io"
	"strings"
	"testing"
)

var benchText = strings.Repeat("request @x on connection @y: @@ status ok\n", 32)

func BenchmarkParse(b *testing.B) {
	reg := scenario(b)
	ctx := context.Background()

	b.ReportAllocs()

	for b.Loop() {
		if _, err := reg.Parse(ctx, benchText); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParseCached(b *testing.B) {
	reg := scenario(b)
	ctx := context.Background()

	b.ReportAllocs()

	for b.Loop() {
		if _, err := reg.ParseCached(ctx, benchText); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkExpand(b *testing.B) {
	tmpl, err := scenario(b).Parse(context.Background(), benchText)
	if err != nil {
		b.Fatal(err)
	}

	conn, req := &connCtx{Y: 12}, &reqCtx{X: 34}

	b.ReportAllocs()

	for b.Loop() {
		if err := tmpl.Expand(io.Discard, conn, req); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkExpandExpr(b *testing.B) {
	bld := NewBuilder(Shape{SlotOf[*reqCtx]("req")}, WithLogger(quiet()))
	bld.MustDefine("e", Expr(`req.X * 2`))

	tmpl, err := bld.Registry().Parse(context.Background(), "doubled request id: @e @@ status ok\n")
	if err != nil {
		b.Fatal(err)
	}

	req := &reqCtx{X: 21}

	b.ReportAllocs()

	for b.Loop() {
		if err := tmpl.Expand(io.Discard, req); err != nil {
			b.Fatal(err)
		}
	}
}
