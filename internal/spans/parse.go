// Package spans decodes batch output into a long-form span table and
// checks decoded spans against their source texts.
package spans

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CustomIDPrefix is the correlation-id convention: "disc-{speech id}".
const CustomIDPrefix = "disc-"

// Span is one detected figure occurrence. Offsets are character (rune)
// positions into the text that was sent for annotation.
type Span struct {
	Label      string   `json:"label"`
	StartChar  int      `json:"start_char"`
	EndChar    int      `json:"end_char"`
	Text       string   `json:"text"`
	Rationale  *string  `json:"rationale"`
	Cues       []string `json:"cues"`
	Confidence float64  `json:"confidence"`
}

// Row is one long-form output row. Exactly one of three shapes:
// a structured span row (Span set), a free-text row (FreeText set), or
// a decode-failure row (ParseError set, RawRecord retained). A record
// whose payload holds zero spans produces a single placeholder row with
// none of the three set, so the record stays visible downstream.
type Row struct {
	CustomID   string
	SpeechID   int64
	SpeechIDOK bool

	Span       *Span
	FreeText   string
	ParseError string
	RawRecord  string
}

// Stats counts what one parse pass produced.
type Stats struct {
	Records   int
	SpanRows  int
	TextRows  int
	EmptyRows int
	ErrorRows int
}

type batchLine struct {
	CustomID string          `json:"custom_id"`
	Response json.RawMessage `json:"response"`
}

type responseEnvelope struct {
	Body   json.RawMessage `json:"body"`
	Output []outputItem    `json:"output"`
}

type outputItem struct {
	Type    string         `json:"type"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string          `json:"type"`
	JSON json.RawMessage `json:"json"`
	Text string          `json:"text"`
}

type spansPayload struct {
	Spans []Span `json:"spans"`
}

// ParseOutput reads a batch output artifact (one JSON object per line)
// and flattens it into span rows. Per-record failures become error rows
// and never abort the pass; parse failures are data.
func ParseOutput(r io.Reader) ([]Row, Stats, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	var rows []Row
	var stats Stats
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		stats.Records++
		for _, row := range parseLine(line) {
			switch {
			case row.Span != nil:
				stats.SpanRows++
			case row.ParseError != "":
				stats.ErrorRows++
			case row.FreeText != "":
				stats.TextRows++
			default:
				stats.EmptyRows++
			}
			rows = append(rows, row)
		}
	}
	if err := scanner.Err(); err != nil {
		return rows, stats, fmt.Errorf("read batch output: %w", err)
	}
	return rows, stats, nil
}

func parseLine(line string) []Row {
	var record batchLine
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return []Row{{
			ParseError: fmt.Sprintf("invalid json: %v", err),
			RawRecord:  line,
		}}
	}

	base := Row{CustomID: record.CustomID}
	base.SpeechID, base.SpeechIDOK = ParseCustomID(record.CustomID)

	block, err := firstContentBlock(record.Response)
	if err != nil {
		row := base
		row.ParseError = err.Error()
		row.RawRecord = line
		return []Row{row}
	}

	switch block.Type {
	case "output_json":
		var payload spansPayload
		if err := json.Unmarshal(block.JSON, &payload); err != nil {
			row := base
			row.ParseError = fmt.Sprintf("decode spans payload: %v", err)
			row.RawRecord = line
			return []Row{row}
		}
		if len(payload.Spans) == 0 {
			// Valid payload, nothing detected.
			return []Row{base}
		}
		rows := make([]Row, 0, len(payload.Spans))
		for i := range payload.Spans {
			row := base
			row.Span = &payload.Spans[i]
			rows = append(rows, row)
		}
		return rows
	case "output_text":
		row := base
		row.FreeText = block.Text
		return []Row{row}
	default:
		row := base
		row.ParseError = fmt.Sprintf("unexpected content block type %q", block.Type)
		row.RawRecord = line
		return []Row{row}
	}
}

// firstContentBlock walks the response output for the first json or text
// content block. Reasoning items carry no content and are skipped. The
// batch endpoint sometimes nests the response under a "body" key; both
// shapes are accepted.
func firstContentBlock(raw json.RawMessage) (contentBlock, error) {
	if len(raw) == 0 {
		return contentBlock{}, fmt.Errorf("record has no response")
	}
	var envelope responseEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return contentBlock{}, fmt.Errorf("decode response envelope: %v", err)
	}
	if len(envelope.Output) == 0 && len(envelope.Body) > 0 {
		if err := json.Unmarshal(envelope.Body, &envelope); err != nil {
			return contentBlock{}, fmt.Errorf("decode response body: %v", err)
		}
	}
	for _, item := range envelope.Output {
		for _, block := range item.Content {
			if block.Type == "output_json" || block.Type == "output_text" {
				return block, nil
			}
		}
	}
	return contentBlock{}, fmt.Errorf("response has no output content block")
}

// ParseCustomID extracts the speech id from a "disc-{int}" correlation
// id. Ids outside the convention yield a null back-reference rather
// than an error; the row's span data is still kept.
func ParseCustomID(customID string) (int64, bool) {
	rest, ok := strings.CutPrefix(customID, CustomIDPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
