// Package batch builds request envelopes for the asynchronous batch
// endpoint, submits them, and waits for the job to finish.
package batch

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/senadolab/figuras/internal/corpus"
	"github.com/senadolab/figuras/internal/spans"
)

// ResponsesEndpoint is the per-line target of every batch request.
const ResponsesEndpoint = "/v1/responses"

// DeveloperPrompt states the analytical persona; UserPromptPrefix frames
// the speech text. Both are fixed and sent with every speech.
const (
	DeveloperPrompt  = "Você é um linguista que analisa figuras de linguagem em discursos no Senado."
	UserPromptPrefix = "Analise a seguinte fala:\n\n"
)

// AnnotationPrompt is the fixed instruction text, used by the cost
// estimator to count prompt tokens the way the batch sends them.
func AnnotationPrompt() string {
	return DeveloperPrompt + "\n\n" + UserPromptPrefix
}

// Envelope is one self-describing request line of the batch input file.
type Envelope struct {
	CustomID string      `json:"custom_id"`
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Body     RequestBody `json:"body"`
}

// RequestBody mirrors the /v1/responses request shape.
type RequestBody struct {
	Model     string        `json:"model"`
	Input     []inputTurn   `json:"input"`
	Text      textFormat    `json:"text"`
	Reasoning reasoningKnob `json:"reasoning"`
	Tools     []any         `json:"tools"`
	Store     bool          `json:"store"`
}

type inputTurn struct {
	Role    string         `json:"role"`
	Content []inputContent `json:"content"`
}

type inputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type textFormat struct {
	Format    schemaFormat `json:"format"`
	Verbosity string       `json:"verbosity"`
}

type schemaFormat struct {
	Type   string         `json:"type"`
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type reasoningKnob struct {
	Effort string `json:"effort"`
}

// BuildEnvelope builds the request for one sampled speech. With a
// positive maxChars the speech text is truncated to that many
// characters before embedding; the returned flag records it, because
// span offsets in the response are then only valid against the
// truncated text, and the validator must not check them against the
// full original.
func BuildEnvelope(speech corpus.SampledSpeech, model string, maxChars int) (Envelope, bool) {
	text := speech.Text
	truncated := false
	if maxChars > 0 {
		if runes := []rune(text); len(runes) > maxChars {
			text = string(runes[:maxChars])
			truncated = true
		}
	}

	return Envelope{
		CustomID: fmt.Sprintf("%s%d", spans.CustomIDPrefix, speech.SpeechID),
		Method:   "POST",
		URL:      ResponsesEndpoint,
		Body: RequestBody{
			Model: model,
			Input: []inputTurn{
				{
					Role: "developer",
					Content: []inputContent{
						{Type: "input_text", Text: DeveloperPrompt},
					},
				},
				{
					Role: "user",
					Content: []inputContent{
						{Type: "input_text", Text: UserPromptPrefix + text},
					},
				},
			},
			Text: textFormat{
				Format: schemaFormat{
					Type:   "json_schema",
					Name:   spans.SchemaName,
					Strict: true,
					Schema: spans.FigureSchema,
				},
				Verbosity: "medium",
			},
			Reasoning: reasoningKnob{Effort: "medium"},
			Tools:     []any{},
			Store:     true,
		},
	}, truncated
}

// WriteJSONL serializes envelopes one JSON object per line. It returns
// the number of lines written and how many had their text truncated.
func WriteJSONL(w io.Writer, speeches []corpus.SampledSpeech, model string, maxChars int) (written, truncated int, err error) {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	for _, speech := range speeches {
		envelope, wasTruncated := BuildEnvelope(speech, model, maxChars)
		if err := encoder.Encode(envelope); err != nil {
			return written, truncated, fmt.Errorf("write request %s: %w", envelope.CustomID, err)
		}
		written++
		if wasTruncated {
			truncated++
		}
	}
	return written, truncated, nil
}
