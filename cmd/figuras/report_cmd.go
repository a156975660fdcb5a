package main

import (
	"fmt"
	"html"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/senadolab/figuras/internal/artifact"
	"github.com/senadolab/figuras/internal/config"
	"github.com/senadolab/figuras/internal/query"
	"github.com/senadolab/figuras/internal/spans"
)

func runReportCmd(args []string) error {
	fs, configPath := newFlagSet("report")
	spansPath := fs.String("spans", "", "span artifact path")
	metaPath := fs.String("meta", "", "metadata artifact path")
	labels := fs.String("label", "", "comma-separated figure labels")
	parties := fs.String("party", "", "comma-separated party codes")
	speakers := fs.String("speaker", "", "comma-separated speaker names")
	minConfidence := fs.Float64("min_confidence", 0, "minimum span confidence")
	from := fs.String("from", "", "inclusive start date (YYYY-MM-DD)")
	to := fs.String("to", "", "inclusive end date (YYYY-MM-DD)")
	search := fs.String("query", "", "substring match on span excerpts")
	normalized := fs.Bool("normalized", false, "weight spans per 1000 words instead of counting")
	by := fs.String("by", "label", "aggregation axis: label, party, speaker or month")
	validate := fs.Bool("validate", false, "check span offsets against speech texts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	records, err := loadRecords(cfg, *spansPath, *metaPath)
	if err != nil {
		return err
	}

	if *validate {
		valid, invalid := 0, 0
		for _, rec := range records {
			if !rec.HasSpan || !rec.HasMeta {
				continue
			}
			sp := spans.Span{
				Label:     rec.Label,
				StartChar: rec.StartChar,
				EndChar:   rec.EndChar,
				Text:      rec.Excerpt,
			}
			if err := spans.Validate(sp, rec.SpeechText); err != nil {
				invalid++
				log.Printf("invalid span speech=%d label=%s: %v", rec.SpeechID, rec.Label, err)
			} else {
				valid++
			}
		}
		log.Printf("validation valid=%d invalid=%d", valid, invalid)
	}

	filters := query.Filters{
		Labels:        splitList(*labels),
		Parties:       splitList(*parties),
		Speakers:      splitList(*speakers),
		MinConfidence: *minConfidence,
		Query:         *search,
	}
	if filters.DateFrom, err = parseDateFlag(*from); err != nil {
		return err
	}
	if filters.DateTo, err = parseDateFlag(*to); err != nil {
		return err
	}

	filtered := query.Weigh(query.Apply(records, filters), *normalized)
	if len(filtered) == 0 {
		log.Printf("no spans match the filters")
		return nil
	}

	var groups []query.GroupWeight
	switch *by {
	case "label":
		groups = query.ByLabel(filtered)
	case "party":
		groups = query.ByParty(filtered)
	case "speaker":
		groups = query.BySpeaker(filtered)
	case "month":
		groups = query.ByMonth(filtered)
	default:
		return fmt.Errorf("unknown aggregation axis %q", *by)
	}

	unit := "spans"
	if *normalized {
		unit = "spans/1000 words"
	}
	for _, g := range groups {
		key := g.Key
		if key == "" {
			key = "(none)"
		}
		log.Printf("%-28s %10.2f %s", key, g.Weight, unit)
	}
	totals := query.Summarize(filtered)
	log.Printf("totals spans=%d speeches=%d speakers=%d parties=%d",
		totals.Spans, totals.Speeches, totals.Speakers, totals.Parties)
	return nil
}

func runHighlightCmd(args []string) error {
	fs, configPath := newFlagSet("highlight")
	spansPath := fs.String("spans", "", "span artifact path")
	metaPath := fs.String("meta", "", "metadata artifact path")
	speechID := fs.Int64("codigo", 0, "speech id to render (required)")
	outPath := fs.String("out", "", "HTML output path; empty writes to stdout")
	minConfidence := fs.Float64("min_confidence", 0, "minimum span confidence")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *speechID == 0 {
		return fmt.Errorf("--codigo is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	records, err := loadRecords(cfg, *spansPath, *metaPath)
	if err != nil {
		return err
	}

	var speech *query.Record
	var hs []query.HighlightSpan
	invalid := 0
	for i, rec := range records {
		if !rec.SpeechIDOK || rec.SpeechID != *speechID {
			continue
		}
		if rec.HasMeta && speech == nil {
			speech = &records[i]
		}
		if !rec.HasSpan || rec.Confidence < *minConfidence {
			continue
		}
		sp := spans.Span{
			Label:     rec.Label,
			StartChar: rec.StartChar,
			EndChar:   rec.EndChar,
			Text:      rec.Excerpt,
		}
		if rec.HasMeta {
			if err := spans.Validate(sp, rec.SpeechText); err != nil {
				invalid++
				log.Printf("skipping invalid span label=%s: %v", rec.Label, err)
				continue
			}
		}
		hs = append(hs, query.HighlightSpan{
			Label:     rec.Label,
			StartChar: rec.StartChar,
			EndChar:   rec.EndChar,
		})
	}
	if speech == nil {
		return fmt.Errorf("speech %d not found in metadata artifact", *speechID)
	}

	body, skipped := query.Highlight(speech.SpeechText, hs)
	page := renderSpeechPage(*speech, body)
	log.Printf("highlight speech=%d spans=%d invalid=%d overlapping_skipped=%d",
		*speechID, len(hs), invalid, skipped)

	if *outPath == "" {
		fmt.Println(page)
		return nil
	}
	if err := os.WriteFile(*outPath, []byte(page), 0o644); err != nil {
		return fmt.Errorf("write highlight page: %w", err)
	}
	log.Printf("highlight page written to %s", *outPath)
	return nil
}

func renderSpeechPage(speech query.Record, body string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>Discurso `)
	b.WriteString(fmt.Sprintf("%d", speech.SpeechID))
	b.WriteString(`</title>
<style>
body { font-family: Georgia, serif; max-width: 52rem; margin: 2rem auto; line-height: 1.6; }
mark { background: #ffe9a8; padding: 0 .15em; border-radius: .2em; }
mark .badge { font-size: .65em; font-family: sans-serif; vertical-align: super; color: #7a5c00; margin-left: .25em; }
.meta { color: #555; margin-bottom: 1.5rem; }
.speech { white-space: pre-wrap; }
</style>
</head>
<body>
`)
	b.WriteString(fmt.Sprintf("<h1>Discurso %d</h1>\n", speech.SpeechID))
	b.WriteString(`<p class="meta">`)
	b.WriteString(html.EscapeString(speech.SpeakerName))
	if speech.Party != "" {
		b.WriteString(" (" + html.EscapeString(speech.Party) + ")")
	}
	if speech.HasDate {
		b.WriteString(" — " + speech.Date.Format("2006-01-02"))
	}
	b.WriteString("</p>\n")
	b.WriteString(`<div class="speech">`)
	b.WriteString(body)
	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String()
}

func loadRecords(cfg config.Config, spansPath, metaPath string) ([]query.Record, error) {
	if spansPath == "" {
		spansPath = filepath.Join(cfg.OutDir, spansFileName)
	}
	if metaPath == "" {
		metaPath = filepath.Join(cfg.OutDir, metaFileName)
	}
	spanRows, err := artifact.ReadSpans(spansPath)
	if err != nil {
		return nil, err
	}
	metaRows, err := artifact.ReadMeta(metaPath)
	if err != nil {
		return nil, err
	}
	return query.Join(spanRows, metaRows), nil
}

func parseDateFlag(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", raw)
	}
	return &t, nil
}
