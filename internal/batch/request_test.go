package batch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/senadolab/figuras/internal/corpus"
)

func TestBuildEnvelope_Shape(t *testing.T) {
	speech := corpus.SampledSpeech{SpeechID: 42, Text: "Srs. Senadores, a pátria chama."}

	envelope, truncated := BuildEnvelope(speech, "gpt-5", 0)
	if truncated {
		t.Fatalf("truncated=true with no limit")
	}
	if envelope.CustomID != "disc-42" {
		t.Fatalf("custom id=%q want disc-42", envelope.CustomID)
	}
	if envelope.Method != "POST" || envelope.URL != ResponsesEndpoint {
		t.Fatalf("method=%q url=%q want POST %s", envelope.Method, envelope.URL, ResponsesEndpoint)
	}
	if envelope.Body.Model != "gpt-5" {
		t.Fatalf("model=%q want gpt-5", envelope.Body.Model)
	}
	if len(envelope.Body.Input) != 2 {
		t.Fatalf("input turns=%d want 2", len(envelope.Body.Input))
	}
	if envelope.Body.Input[0].Role != "developer" || envelope.Body.Input[1].Role != "user" {
		t.Fatalf("roles=%q,%q want developer,user", envelope.Body.Input[0].Role, envelope.Body.Input[1].Role)
	}
	userText := envelope.Body.Input[1].Content[0].Text
	if !strings.HasPrefix(userText, UserPromptPrefix) || !strings.HasSuffix(userText, speech.Text) {
		t.Fatalf("user turn=%q want prefix+speech", userText)
	}
	format := envelope.Body.Text.Format
	if format.Type != "json_schema" || format.Name != "FigurasLinguagem" || !format.Strict {
		t.Fatalf("format=%+v want strict FigurasLinguagem json_schema", format)
	}
	if envelope.Body.Reasoning.Effort != "medium" {
		t.Fatalf("reasoning effort=%q want medium", envelope.Body.Reasoning.Effort)
	}
	if envelope.Body.Tools == nil || len(envelope.Body.Tools) != 0 {
		t.Fatalf("tools=%v want empty non-nil list", envelope.Body.Tools)
	}
	if !envelope.Body.Store {
		t.Fatalf("store=false want true")
	}
}

func TestBuildEnvelope_TruncatesRunes(t *testing.T) {
	speech := corpus.SampledSpeech{SpeechID: 1, Text: "coração valente"}

	envelope, truncated := BuildEnvelope(speech, "gpt-5", 7)
	if !truncated {
		t.Fatalf("truncated=false want true")
	}
	userText := envelope.Body.Input[1].Content[0].Text
	got := strings.TrimPrefix(userText, UserPromptPrefix)
	if got != "coração" {
		t.Fatalf("truncated text=%q want %q (7 characters, not bytes)", got, "coração")
	}
}

func TestBuildEnvelope_NoTruncationWhenShort(t *testing.T) {
	speech := corpus.SampledSpeech{SpeechID: 1, Text: "curto"}
	if _, truncated := BuildEnvelope(speech, "gpt-5", 100); truncated {
		t.Fatalf("truncated=true for text under the limit")
	}
}

func TestWriteJSONL_OneLinePerSpeech(t *testing.T) {
	speeches := []corpus.SampledSpeech{
		{SpeechID: 1, Text: "primeiro discurso"},
		{SpeechID: 2, Text: strings.Repeat("x", 50)},
		{SpeechID: 3, Text: "terceiro"},
	}

	var buf bytes.Buffer
	written, truncated, err := WriteJSONL(&buf, speeches, "gpt-5", 10)
	if err != nil {
		t.Fatalf("write jsonl: %v", err)
	}
	if written != 3 || truncated != 2 {
		t.Fatalf("written=%d truncated=%d want 3 and 2", written, truncated)
	}

	var customIDs []string
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var envelope Envelope
		if err := json.Unmarshal(scanner.Bytes(), &envelope); err != nil {
			t.Fatalf("line not valid json: %v", err)
		}
		customIDs = append(customIDs, envelope.CustomID)
	}
	want := []string{"disc-1", "disc-2", "disc-3"}
	if len(customIDs) != len(want) {
		t.Fatalf("lines=%d want %d", len(customIDs), len(want))
	}
	for i := range want {
		if customIDs[i] != want[i] {
			t.Fatalf("line %d custom id=%q want %q", i, customIDs[i], want[i])
		}
	}
}

func TestAnnotationPrompt_ContainsBothParts(t *testing.T) {
	prompt := AnnotationPrompt()
	if !strings.Contains(prompt, DeveloperPrompt) || !strings.Contains(prompt, UserPromptPrefix) {
		t.Fatalf("prompt=%q missing fixed parts", prompt)
	}
}
