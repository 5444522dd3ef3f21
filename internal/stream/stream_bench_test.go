package stream_test

import (
	"testing"

	"github.com/dshills/mdstream/internal/bench"
	"github.com/dshills/mdstream/internal/parser"
	"github.com/dshills/mdstream/internal/stream"
)

// appendSteps grows a document in block-aligned pieces
func appendSteps(size, steps int) []string {
	parts := bench.SplitSteps(bench.Sections(size), steps)
	docs := make([]string, len(parts))
	text := ""
	for i, p := range parts {
		text += p
		docs[i] = text
	}
	return docs
}

func BenchmarkParse_AppendWorkload(b *testing.B) {
	docs := appendSteps(50_000, 20)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := stream.New(parser.New(), stream.DefaultOptions())
		for _, d := range docs {
			if _, err := p.Parse(d, nil); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkParse_FullWorkload(b *testing.B) {
	docs := appendSteps(50_000, 20)
	tok := parser.New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, d := range docs {
			if _, err := tok.Tokenize(d, nil); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkParse_CacheHit(b *testing.B) {
	text := bench.Document(50_000)
	p := stream.New(parser.New(), stream.DefaultOptions())
	if _, err := p.Parse(text, nil); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Parse(text, nil); err != nil {
			b.Fatal(err)
		}
	}
}
