package query

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// HighlightSpan is the slice of a speech to mark up.
type HighlightSpan struct {
	Label     string
	StartChar int
	EndChar   int
}

// Highlight renders a speech with its spans wrapped in labeled <mark>
// elements. All literal text, highlighted or not, is HTML-escaped.
// Spans are processed in ascending start order; a span that starts
// before the previous kept span ends would nest markup, so overlapping
// spans are skipped and counted in the second return value (the kept
// span is always the earlier-starting one). Spans with offsets outside
// the text are skipped the same way.
func Highlight(text string, hs []HighlightSpan) (string, int) {
	if len(hs) == 0 {
		return html.EscapeString(text), 0
	}

	sorted := make([]HighlightSpan, len(hs))
	copy(sorted, hs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartChar < sorted[j].StartChar
	})

	runes := []rune(text)
	var b strings.Builder
	last := 0
	skipped := 0
	for _, sp := range sorted {
		if sp.StartChar < last || sp.StartChar > sp.EndChar || sp.EndChar > len(runes) {
			skipped++
			continue
		}
		b.WriteString(html.EscapeString(string(runes[last:sp.StartChar])))
		b.WriteString(fmt.Sprintf(
			`<mark class="label-%s">%s<span class="badge">%s</span></mark>`,
			html.EscapeString(sp.Label),
			html.EscapeString(string(runes[sp.StartChar:sp.EndChar])),
			html.EscapeString(sp.Label),
		))
		last = sp.EndChar
	}
	b.WriteString(html.EscapeString(string(runes[last:])))
	return b.String(), skipped
}
