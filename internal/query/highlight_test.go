package query

import (
	"strings"
	"testing"
)

func TestHighlight_SingleSpan(t *testing.T) {
	got, skipped := Highlight("The fox runs fast", []HighlightSpan{
		{Label: "metafora", StartChar: 4, EndChar: 7},
	})
	want := `The <mark class="label-metafora">fox<span class="badge">metafora</span></mark> runs fast`
	if got != want {
		t.Fatalf("highlight=\n%s\nwant\n%s", got, want)
	}
	if skipped != 0 {
		t.Fatalf("skipped=%d want 0", skipped)
	}
}

func TestHighlight_EscapesEverything(t *testing.T) {
	got, _ := Highlight(`a <b> & "c" d`, []HighlightSpan{
		{Label: "ironia", StartChar: 2, EndChar: 5},
	})
	if strings.Contains(got, "<b>") {
		t.Fatalf("unescaped literal markup in output:\n%s", got)
	}
	if !strings.Contains(got, "&lt;b&gt;") {
		t.Fatalf("highlighted slice not escaped:\n%s", got)
	}
	if !strings.Contains(got, "&amp;") || !strings.Contains(got, "&#34;c&#34;") {
		t.Fatalf("surrounding text not escaped:\n%s", got)
	}
}

func TestHighlight_RuneOffsets(t *testing.T) {
	got, skipped := Highlight("o coração bate", []HighlightSpan{
		{Label: "metafora", StartChar: 2, EndChar: 9},
	})
	if skipped != 0 {
		t.Fatalf("skipped=%d want 0", skipped)
	}
	if !strings.Contains(got, ">coração<span") {
		t.Fatalf("accented slice wrong:\n%s", got)
	}
}

func TestHighlight_OverlapKeepsEarlierSpan(t *testing.T) {
	got, skipped := Highlight("um dois tres quatro", []HighlightSpan{
		{Label: "anafora", StartChar: 3, EndChar: 12},
		{Label: "ironia", StartChar: 8, EndChar: 19}, // starts inside the first
	})
	if skipped != 1 {
		t.Fatalf("skipped=%d want 1", skipped)
	}
	if !strings.Contains(got, `label-anafora`) || strings.Contains(got, `label-ironia`) {
		t.Fatalf("overlap resolution wrong:\n%s", got)
	}
}

func TestHighlight_OutOfBoundsSkipped(t *testing.T) {
	text := "curto"
	cases := [][]HighlightSpan{
		{{Label: "x", StartChar: 3, EndChar: 99}},
		{{Label: "x", StartChar: 4, EndChar: 2}},
	}
	for _, hs := range cases {
		got, skipped := Highlight(text, hs)
		if skipped != 1 {
			t.Errorf("spans=%+v skipped=%d want 1", hs, skipped)
		}
		if got != "curto" {
			t.Errorf("spans=%+v output=%q want untouched text", hs, got)
		}
	}
}

func TestHighlight_NoSpans(t *testing.T) {
	got, skipped := Highlight("a < b", nil)
	if got != "a &lt; b" || skipped != 0 {
		t.Fatalf("got=%q skipped=%d", got, skipped)
	}
}

func TestHighlight_AdjacentSpansBothKept(t *testing.T) {
	got, skipped := Highlight("abcdef", []HighlightSpan{
		{Label: "a", StartChar: 0, EndChar: 3},
		{Label: "b", StartChar: 3, EndChar: 6},
	})
	if skipped != 0 {
		t.Fatalf("skipped=%d want 0 for touching spans", skipped)
	}
	if !strings.Contains(got, "label-a") || !strings.Contains(got, "label-b") {
		t.Fatalf("adjacent spans dropped:\n%s", got)
	}
}
