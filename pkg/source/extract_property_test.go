package source

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

var statementTemplates = []string{
	"let a%d = %d;",
	"var b%d = [1, 2, 3]",
	"function f%d(x) {\n  return x * 2;\n}",
	"const o%d = { k: 'v', n: 1 };",
	"console.log(%d)",
	"if (true) { %d; }",
	"// comment %d",
	"1 + %d",
	"class C%d {}",
}

var separators = []string{"\n", "\n\n", " \n", "\r\n", "\t\n", "  "}

func genDocument(t *rapid.T) (string, int) {
	n := rapid.IntRange(0, 8).Draw(t, "statements")
	var b strings.Builder
	units := 0
	for i := 0; i < n; i++ {
		tmpl := rapid.SampledFrom(statementTemplates).Draw(t, "template")
		args := []any{i}
		if strings.Count(tmpl, "%d") == 2 {
			args = append(args, i)
		}
		stmt := fmt.Sprintf(tmpl, args...)
		if !strings.HasPrefix(stmt, "//") {
			units++
		}
		sep := rapid.SampledFrom(separators).Draw(t, "separator")
		if !strings.ContainsAny(sep, "\r\n") && !strings.HasSuffix(stmt, ";") && !strings.HasSuffix(stmt, "}") {
			// Only terminated statements may share a line with the next one.
			sep = "\n"
		}
		b.WriteString(stmt)
		b.WriteString(sep)
	}
	return b.String(), units
}

func TestExtractRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text, wantUnits := genDocument(t)
		doc := NewDocument(text)
		res := ExtractDocument(doc)

		if len(res.Diagnostics) != 0 {
			t.Fatalf("unexpected diagnostics for %q: %+v", text, res.Diagnostics)
		}
		if len(res.Units) != wantUnits {
			t.Fatalf("got %d units, want %d for %q", len(res.Units), wantUnits, text)
		}

		var rebuilt strings.Builder
		prev := 0
		for i, u := range res.Units {
			start := doc.OffsetAt(u.Range.Start)
			end := doc.OffsetAt(u.Range.End)
			if start < prev {
				t.Fatalf("unit %d overlaps its predecessor in %q", i, text)
			}
			if text[start:end] != u.Text {
				t.Fatalf("unit %d text %q does not match its range %q", i, u.Text, text[start:end])
			}
			rebuilt.WriteString(text[prev:start])
			rebuilt.WriteString(u.Text)
			prev = end
		}
		rebuilt.WriteString(text[prev:])

		if rebuilt.String() != text {
			t.Fatalf("round trip mismatch:\n got %q\nwant %q", rebuilt.String(), text)
		}
	})
}
