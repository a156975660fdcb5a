package corpus

import (
	"strings"
	"testing"
)

func TestWordCount(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"uma", 1},
		{"uma fala curta", 3},
		{"quebra\nde linha\te tab", 5},
	}
	for _, tc := range cases {
		if got := WordCount(tc.text); got != tc.want {
			t.Errorf("WordCount(%q)=%d want %d", tc.text, got, tc.want)
		}
	}
}

func TestAttachmentRule_StripsMarkers(t *testing.T) {
	rule := DefaultAttachmentRule()
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "stars separator",
			in:   "Sr. Presidente, encerro aqui. **** anexo completo do documento",
			want: "Sr. Presidente, encerro aqui.",
		},
		{
			name: "segue na integra with commas",
			in:   "Muito obrigado. SEGUE, NA ÍNTEGRA, PRONUNCIAMENTO do orador.",
			want: "Muito obrigado.",
		},
		{
			name: "segue na integra without commas",
			in:   "Muito obrigado. SEGUE NA ÍNTEGRA PRONUNCIAMENTO do orador.",
			want: "Muito obrigado.",
		},
		{
			name: "documento encaminhado",
			in:   "Era o que tinha a dizer. DOCUMENTO ENCAMINHADO PELO orador anexo.",
			want: "Era o que tinha a dizer.",
		},
		{
			name: "quoted marker",
			in:   `Concluo. "SEGUE, NA ÍNTEGRA, PRONUNCIAMENTO" texto anexado`,
			want: "Concluo.",
		},
		{
			name: "case insensitive",
			in:   "Concluo. segue na íntegra pronunciamento anexado",
			want: "Concluo.",
		},
		{
			name: "no marker",
			in:   "  Discurso limpo sem anexos.  ",
			want: "Discurso limpo sem anexos.",
		},
	}
	for _, tc := range cases {
		if got := rule.Clean(tc.in); got != tc.want {
			t.Errorf("%s: Clean(%q)=%q want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestAttachmentRule_MarkerSpansLines(t *testing.T) {
	rule := DefaultAttachmentRule()
	in := "Fala principal.\n****\nlinha um do anexo\nlinha dois do anexo"
	if got := rule.Clean(in); got != "Fala principal." {
		t.Fatalf("Clean=%q want %q", got, "Fala principal.")
	}
}

func TestNewAttachmentRule_BadPattern(t *testing.T) {
	if _, err := NewAttachmentRule("("); err == nil {
		t.Fatalf("NewAttachmentRule(\"(\") returned nil error")
	}
}

func TestParseYear(t *testing.T) {
	cases := []struct {
		in   string
		year int
		ok   bool
	}{
		{"2021-03-15", 2021, true},
		{"2021-03-15T10:30:00", 2021, true},
		{" 1999-01-01", 1999, true},
		{"", 0, false},
		{"15/03/2021", 0, false},
		{"9999-01-01", 0, false},
	}
	for _, tc := range cases {
		year, ok := parseYear(tc.in)
		if year != tc.year || ok != tc.ok {
			t.Errorf("parseYear(%q)=(%d,%v) want (%d,%v)", tc.in, year, ok, tc.year, tc.ok)
		}
	}
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "palavra"
	}
	return strings.Join(parts, " ")
}
