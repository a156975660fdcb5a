package artifact

import (
	"path/filepath"
	"testing"

	"github.com/senadolab/figuras/internal/corpus"
	"github.com/senadolab/figuras/internal/spans"
)

func TestFromParsedRow_SpanShape(t *testing.T) {
	rationale := "comparacao implicita"
	row := spans.Row{
		CustomID:   "disc-42",
		SpeechID:   42,
		SpeechIDOK: true,
		Span: &spans.Span{
			Label:      "metafora",
			StartChar:  10,
			EndChar:    25,
			Text:       "mar de problemas",
			Rationale:  &rationale,
			Cues:       []string{"mar"},
			Confidence: 0.85,
		},
	}

	out := FromParsedRow(row)
	if out.SpeechID == nil || *out.SpeechID != 42 {
		t.Fatalf("speech id=%v want 42", out.SpeechID)
	}
	if out.Label == nil || *out.Label != "metafora" {
		t.Fatalf("label=%v", out.Label)
	}
	if *out.StartChar != 10 || *out.EndChar != 25 {
		t.Fatalf("offsets=[%d:%d]", *out.StartChar, *out.EndChar)
	}
	if out.Rationale == nil || *out.Rationale != rationale {
		t.Fatalf("rationale=%v", out.Rationale)
	}
	if out.FreeText != nil || out.ParseError != nil {
		t.Fatalf("span row carries free text or parse error: %+v", out)
	}
}

func TestFromParsedRow_ErrorShape(t *testing.T) {
	row := spans.Row{
		CustomID:   "disc-bad",
		ParseError: "decode spans payload: boom",
		RawRecord:  "{...}",
	}
	out := FromParsedRow(row)
	if out.SpeechID != nil || out.Label != nil {
		t.Fatalf("error row carries span fields: %+v", out)
	}
	if out.ParseError == nil || *out.ParseError == "" {
		t.Fatalf("parse error not carried: %+v", out)
	}
}

func TestFromSampledSpeech_DerivesWordCount(t *testing.T) {
	out := FromSampledSpeech(corpus.SampledSpeech{
		SpeechID:    7,
		SpeakerName: "Senadora Alfa",
		Party:       "PT",
		Date:        "2021-05-01",
		Text:        "uma fala com cinco palavras",
	})
	if out.WordCount != 5 {
		t.Fatalf("word count=%d want 5", out.WordCount)
	}
	if out.SpeechID != 7 || out.Party != "PT" {
		t.Fatalf("meta=%+v", out)
	}
}

func TestSpansArtifact_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans_long.parquet")
	label := "hiperbole"
	id := int64(42)
	start, end := int32(0), int32(4)
	text := "mil!"
	conf := 0.7
	freeText := "resposta solta"

	in := []SpanRow{
		{CustomID: "disc-42", SpeechID: &id, Label: &label, StartChar: &start, EndChar: &end, Text: &text, Cues: []string{"mil"}, Confidence: &conf},
		{CustomID: "disc-43", FreeText: &freeText},
	}
	if err := WriteSpans(path, in); err != nil {
		t.Fatalf("write spans: %v", err)
	}

	out, err := ReadSpans(path)
	if err != nil {
		t.Fatalf("read spans: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("rows=%d want 2", len(out))
	}
	if out[0].Label == nil || *out[0].Label != label || *out[0].Confidence != conf {
		t.Fatalf("row 0=%+v", out[0])
	}
	if out[1].Label != nil || out[1].FreeText == nil || *out[1].FreeText != freeText {
		t.Fatalf("row 1=%+v want free-text only", out[1])
	}
}

func TestMetaArtifact_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "amostra_meta.parquet")
	in := []MetaRow{
		{SpeechID: 1, SpeakerName: "Senadora Alfa", Party: "PT", Date: "2021-05-01", WordCount: 312, Text: "texto"},
	}
	if err := WriteMeta(path, in); err != nil {
		t.Fatalf("write meta: %v", err)
	}
	out, err := ReadMeta(path)
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	if len(out) != 1 || out[0].SpeakerName != "Senadora Alfa" || out[0].WordCount != 312 {
		t.Fatalf("rows=%+v", out)
	}
}
