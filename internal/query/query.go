// Package query joins the span artifact with speech metadata and
// projects it for reporting: faceted filters, density weighting, and
// aggregate summaries.
package query

import (
	"sort"
	"strings"
	"time"

	"github.com/senadolab/figuras/internal/artifact"
)

// Record is one span row enriched with speech metadata. Rows whose
// speech id has no metadata match keep empty metadata fields; they are
// never dropped by the join.
type Record struct {
	CustomID   string
	SpeechID   int64
	SpeechIDOK bool

	HasSpan    bool
	Label      string
	StartChar  int
	EndChar    int
	Excerpt    string
	Rationale  string
	Cues       []string
	Confidence float64

	FreeText   string
	ParseError string

	HasMeta     bool
	SpeakerName string
	Party       string
	Date        time.Time
	HasDate     bool
	WordCount   int
	SpeechText  string

	// Weight is 1 in raw mode or 1000/words in density mode; set by
	// Weigh.
	Weight float64
}

// Join left-joins span rows with metadata on the speech id.
func Join(spanRows []artifact.SpanRow, metaRows []artifact.MetaRow) []Record {
	meta := make(map[int64]artifact.MetaRow, len(metaRows))
	for _, m := range metaRows {
		meta[m.SpeechID] = m
	}

	records := make([]Record, 0, len(spanRows))
	for _, row := range spanRows {
		rec := Record{CustomID: row.CustomID, Weight: 1}
		if row.SpeechID != nil {
			rec.SpeechID = *row.SpeechID
			rec.SpeechIDOK = true
		}
		if row.Label != nil {
			rec.HasSpan = true
			rec.Label = *row.Label
			if row.StartChar != nil {
				rec.StartChar = int(*row.StartChar)
			}
			if row.EndChar != nil {
				rec.EndChar = int(*row.EndChar)
			}
			if row.Text != nil {
				rec.Excerpt = *row.Text
			}
			if row.Rationale != nil {
				rec.Rationale = *row.Rationale
			}
			rec.Cues = row.Cues
			if row.Confidence != nil {
				rec.Confidence = *row.Confidence
			}
		}
		if row.FreeText != nil {
			rec.FreeText = *row.FreeText
		}
		if row.ParseError != nil {
			rec.ParseError = *row.ParseError
		}

		if rec.SpeechIDOK {
			if m, ok := meta[rec.SpeechID]; ok {
				rec.HasMeta = true
				rec.SpeakerName = m.SpeakerName
				rec.Party = m.Party
				rec.WordCount = int(m.WordCount)
				rec.SpeechText = m.Text
				if t, ok := parseDate(m.Date); ok {
					rec.Date = t
					rec.HasDate = true
				}
			}
		}
		records = append(records, rec)
	}
	return records
}

// Filters are the faceted predicates of the explorer view. Zero values
// disable the corresponding predicate.
type Filters struct {
	Labels        []string
	Speakers      []string
	Parties       []string
	MinConfidence float64
	DateFrom      *time.Time
	DateTo        *time.Time
	// Query is a case-insensitive substring match on the span excerpt.
	// Rows without an excerpt never match a non-empty query.
	Query string
}

// Apply filters the joined records. Only structured span rows pass;
// free-text and decode-failure rows are not annotations and are kept
// out of analytics.
func Apply(records []Record, f Filters) []Record {
	labels := toSet(f.Labels)
	speakers := toSet(f.Speakers)
	parties := toSet(f.Parties)
	needle := strings.ToLower(strings.TrimSpace(f.Query))

	var out []Record
	for _, rec := range records {
		if !rec.HasSpan {
			continue
		}
		if len(labels) > 0 && !labels[rec.Label] {
			continue
		}
		if len(speakers) > 0 && !speakers[rec.SpeakerName] {
			continue
		}
		if len(parties) > 0 && !parties[rec.Party] {
			continue
		}
		if rec.Confidence < f.MinConfidence {
			continue
		}
		if f.DateFrom != nil || f.DateTo != nil {
			if !rec.HasDate {
				continue
			}
			if f.DateFrom != nil && rec.Date.Before(*f.DateFrom) {
				continue
			}
			if f.DateTo != nil && rec.Date.After(*f.DateTo) {
				continue
			}
		}
		if needle != "" {
			if rec.Excerpt == "" || !strings.Contains(strings.ToLower(rec.Excerpt), needle) {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

// Weigh sets every record's weight: 1 per span in raw mode, or spans
// per 1000 words in density mode, with the word count clamped to 1 so a
// zero-length speech cannot divide by zero.
func Weigh(records []Record, normalized bool) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	for i := range out {
		if !normalized {
			out[i].Weight = 1
			continue
		}
		words := out[i].WordCount
		if words < 1 {
			words = 1
		}
		out[i].Weight = 1000.0 / float64(words)
	}
	return out
}

// Totals are the panorama headline numbers.
type Totals struct {
	Speeches int
	Spans    int
	Speakers int
	Parties  int
}

// Summarize counts distinct speeches, speakers and parties over the
// filtered span rows.
func Summarize(records []Record) Totals {
	speeches := map[int64]bool{}
	speakers := map[string]bool{}
	parties := map[string]bool{}
	totals := Totals{}
	for _, rec := range records {
		totals.Spans++
		if rec.SpeechIDOK {
			speeches[rec.SpeechID] = true
		}
		if rec.SpeakerName != "" {
			speakers[rec.SpeakerName] = true
		}
		if rec.Party != "" {
			parties[rec.Party] = true
		}
	}
	totals.Speeches = len(speeches)
	totals.Speakers = len(speakers)
	totals.Parties = len(parties)
	return totals
}

// GroupWeight is one aggregation bucket.
type GroupWeight struct {
	Key    string
	Weight float64
}

// SumBy aggregates record weights by an arbitrary key, descending by
// weight with a stable key tiebreak.
func SumBy(records []Record, key func(Record) string) []GroupWeight {
	sums := map[string]float64{}
	for _, rec := range records {
		sums[key(rec)] += rec.Weight
	}
	out := make([]GroupWeight, 0, len(sums))
	for k, w := range sums {
		out = append(out, GroupWeight{Key: k, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight == out[j].Weight {
			return out[i].Key < out[j].Key
		}
		return out[i].Weight > out[j].Weight
	})
	return out
}

// ByLabel sums weights per figure label.
func ByLabel(records []Record) []GroupWeight {
	return SumBy(records, func(r Record) string { return r.Label })
}

// ByParty sums weights per party.
func ByParty(records []Record) []GroupWeight {
	return SumBy(records, func(r Record) string { return r.Party })
}

// BySpeaker sums weights per speaker display name.
func BySpeaker(records []Record) []GroupWeight {
	return SumBy(records, func(r Record) string { return r.SpeakerName })
}

// ByMonth sums weights per year-month bucket; undated rows group under
// an empty key.
func ByMonth(records []Record) []GroupWeight {
	return SumBy(records, func(r Record) string {
		if !r.HasDate {
			return ""
		}
		return r.Date.Format("2006-01")
	})
}

var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
