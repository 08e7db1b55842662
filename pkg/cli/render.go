package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/rewind/pkg/session"
	"github.com/dshills/rewind/pkg/source"
)

// styles colors annotation comments by kind.
type styles struct {
	result lipgloss.Style
	log    lipgloss.Style
	err    lipgloss.Style
	dim    lipgloss.Style
}

func newStyles(noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{result: plain, log: plain, err: plain, dim: plain}
	}
	return styles{
		result: lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
		log:    lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Italic(true),
		err:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Italic(true),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

func (s styles) annotation(a session.Annotation) string {
	switch a.Kind {
	case session.KindLog:
		return s.log.Render(a.Render())
	case session.KindError:
		return s.err.Render(a.Render())
	default:
		return s.result.Render(a.Render())
	}
}

// writeListing prints every line of text, followed by the annotations of
// the units ending on that line.
func writeListing(w io.Writer, text string, pass *session.Pass, st styles) {
	byLine := make(map[int][]session.Annotation)
	for _, a := range pass.Annotations {
		byLine[a.Range.End.Line] = append(byLine[a.Range.End.Line], a)
	}

	doc := source.NewDocument(text)
	for i := 0; i < doc.LineCount(); i++ {
		line := doc.LineAt(i)
		if i == doc.LineCount()-1 && line == "" && len(byLine[i]) == 0 {
			break
		}
		var b strings.Builder
		b.WriteString(line)
		for _, a := range byLine[i] {
			b.WriteString(st.annotation(a))
		}
		_, _ = fmt.Fprintln(w, b.String())
	}
}

// writeDiagnostics prints diagnostics in file:line:col form.
func writeDiagnostics(w io.Writer, name string, diags []source.Diagnostic, st styles) {
	for _, d := range diags {
		_, _ = fmt.Fprintf(w, "%s:%d:%d: %s %s\n",
			name, d.Range.Start.Line+1, d.Range.Start.Column+1,
			st.err.Render(d.Severity.String()+":"), d.Message)
	}
}

// truncate shortens s to at most n runes for table cells.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
