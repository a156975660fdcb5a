// Package cost predicts the dollar cost of annotating a sample before
// any request is submitted. Estimates gate the pipeline: a run over the
// full corpus is only worth submitting when the projected spend is
// acceptable.
package cost

import (
	"fmt"
	"sort"

	"github.com/senadolab/figuras/internal/corpus"
)

// Pricing is USD per one million tokens for one model.
type Pricing struct {
	Input       float64
	CachedInput float64
	Output      float64
}

// PriceTable maps model names to prices. It is passed in explicitly so
// runs and tests can swap price sheets; there is no package-level table.
type PriceTable map[string]Pricing

// For returns the pricing entry for a model. A missing entry is a
// configuration error — the estimator never falls back to another
// model's prices.
func (t PriceTable) For(model string) (Pricing, error) {
	p, ok := t[model]
	if !ok {
		return Pricing{}, fmt.Errorf("no pricing entry for model %q", model)
	}
	return p, nil
}

// Options configure one estimation run.
type Options struct {
	Model string
	// Prompt is the fixed instruction text sent with every speech; its
	// tokens are counted once and charged per item.
	Prompt string
	// ExpectedOutputTokensPerItem of 0 leaves output cost at zero.
	ExpectedOutputTokensPerItem int
	// PromptCached prices prompt tokens at the cached-input rate; speech
	// tokens are always plain input.
	PromptCached bool
}

// ItemEstimate is the token and cost breakdown for one sampled speech.
type ItemEstimate struct {
	SpeechID      int64
	Year          int
	PromptTokens  int
	TextTokens    int
	InputTokens   int
	InputCostUSD  float64
	OutputTokens  int
	OutputCostUSD float64
	TotalCostUSD  float64
}

// Summary aggregates token counts and costs over a set of items.
type Summary struct {
	Year          int
	Items         int
	PromptTokens  int
	TextTokens    int
	InputTokens   int
	InputCostUSD  float64
	OutputCostUSD float64
	TotalCostUSD  float64
}

// Report is the full estimation output: per item, per year stratum, and
// one overall total.
type Report struct {
	Items  []ItemEstimate
	ByYear []Summary
	Total  Summary
}

// Estimate tokenizes every sampled text plus the fixed prompt and prices
// the run under the supplied table.
func Estimate(sampled map[int][]corpus.YearText, tok Tokenizer, prices PriceTable, opts Options) (Report, error) {
	pricing, err := prices.For(opts.Model)
	if err != nil {
		return Report{}, err
	}

	perTokenInput := pricing.Input / 1e6
	perTokenCached := pricing.CachedInput / 1e6
	perTokenOutput := pricing.Output / 1e6

	promptTokens := tok.Count(opts.Prompt)
	promptRate := perTokenInput
	if opts.PromptCached && promptTokens > 0 {
		promptRate = perTokenCached
	}

	years := make([]int, 0, len(sampled))
	for year := range sampled {
		years = append(years, year)
	}
	sort.Ints(years)

	report := Report{}
	byYear := map[int]*Summary{}

	for _, year := range years {
		for _, row := range sampled[year] {
			textTokens := tok.Count(row.Text)
			item := ItemEstimate{
				SpeechID:     row.SpeechID,
				Year:         year,
				PromptTokens: promptTokens,
				TextTokens:   textTokens,
				InputTokens:  promptTokens + textTokens,
				InputCostUSD: float64(textTokens)*perTokenInput + float64(promptTokens)*promptRate,
			}
			if opts.ExpectedOutputTokensPerItem > 0 {
				item.OutputTokens = opts.ExpectedOutputTokensPerItem
				item.OutputCostUSD = float64(item.OutputTokens) * perTokenOutput
			}
			item.TotalCostUSD = item.InputCostUSD + item.OutputCostUSD
			report.Items = append(report.Items, item)

			s := byYear[year]
			if s == nil {
				s = &Summary{Year: year}
				byYear[year] = s
			}
			s.add(item)
			report.Total.add(item)
		}
	}

	for _, year := range years {
		if s := byYear[year]; s != nil {
			report.ByYear = append(report.ByYear, *s)
		}
	}
	return report, nil
}

func (s *Summary) add(item ItemEstimate) {
	s.Items++
	s.PromptTokens += item.PromptTokens
	s.TextTokens += item.TextTokens
	s.InputTokens += item.InputTokens
	s.InputCostUSD += item.InputCostUSD
	s.OutputCostUSD += item.OutputCostUSD
	s.TotalCostUSD += item.TotalCostUSD
}
