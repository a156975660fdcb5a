// Package sampling draws reproducible stratified samples from the
// corpus. Two policies coexist and are deliberately not unified: the
// party sample uses a floor rule for small strata, the year sample used
// for cost estimation takes a flat percentage with no floor special
// case. Each answers a different question and each must keep its exact
// historical behavior.
package sampling

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/senadolab/figuras/internal/corpus"
)

// Policy maps a stratum size to a sample size.
type Policy interface {
	SampleSize(n int) int
	Name() string
}

// PartyFloorPolicy selects 1% of a stratum, rounded up, guaranteeing at
// least one pick for any non-empty stratum under 100 records.
type PartyFloorPolicy struct{}

func (PartyFloorPolicy) Name() string { return "party_floor_1pct" }

func (PartyFloorPolicy) SampleSize(n int) int {
	if n <= 0 {
		return 0
	}
	if n < 100 {
		return 1
	}
	k := int(math.Ceil(0.01 * float64(n)))
	if k < 1 {
		k = 1
	}
	return k
}

// YearPercentPolicy selects a flat fraction of each stratum, never less
// than one item. A Pct above 1 is read as a percentage (10 means 10%).
type YearPercentPolicy struct {
	Pct float64
}

func (YearPercentPolicy) Name() string { return "year_flat_pct" }

func (p YearPercentPolicy) SampleSize(n int) int {
	if n <= 0 {
		return 0
	}
	pct := p.Pct
	if pct > 1 {
		pct = pct / 100.0
	}
	k := int(math.Floor(float64(n) * pct))
	if k < 1 {
		k = 1
	}
	return k
}

// Validate rejects a non-positive percentage before any sampling runs.
func (p YearPercentPolicy) Validate() error {
	if p.Pct <= 0 {
		return fmt.Errorf("year sampling percentage must be > 0, got %v", p.Pct)
	}
	return nil
}

// StratumStat records what one stratum contributed to a draw.
type StratumStat struct {
	Key      string
	Eligible int
	Selected int
}

// Selection is one completed draw with its provenance.
type Selection struct {
	SpeechIDs []int64
	Strata    []StratumStat
	Seeded    bool
	Seed      int64
}

// Total returns the number of selected speeches.
func (s Selection) Total() int {
	return len(s.SpeechIDs)
}

// Draw samples uniformly without replacement inside each stratum. The
// generator is seeded exactly once per run and strata are visited in
// sorted key order, so a given seed over the same eligible mapping
// always reproduces the same selection regardless of map iteration
// order. A nil seed yields a non-deterministic draw, flagged in the
// returned provenance.
func Draw(eligible map[string][]corpus.EligiblePair, policy Policy, seed *int64) Selection {
	sel := Selection{}
	var rng *rand.Rand
	if seed != nil {
		sel.Seeded = true
		sel.Seed = *seed
		rng = rand.New(rand.NewSource(*seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	keys := make([]string, 0, len(eligible))
	for key := range eligible {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		pairs := eligible[key]
		n := len(pairs)
		k := policy.SampleSize(n)
		if k > n {
			k = n
		}
		sel.Strata = append(sel.Strata, StratumStat{Key: key, Eligible: n, Selected: k})
		if k == 0 {
			continue
		}
		for _, idx := range rng.Perm(n)[:k] {
			sel.SpeechIDs = append(sel.SpeechIDs, pairs[idx].SpeechID)
		}
	}
	return sel
}

// DrawYears is Draw specialized for the year-keyed cost estimation
// sample; it returns the chosen rows themselves since the estimator
// needs the texts, not just ids.
func DrawYears(rowsByYear map[int][]corpus.YearText, policy YearPercentPolicy, seed int64) (map[int][]corpus.YearText, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))

	years := make([]int, 0, len(rowsByYear))
	for year := range rowsByYear {
		years = append(years, year)
	}
	sort.Ints(years)

	picked := make(map[int][]corpus.YearText, len(years))
	for _, year := range years {
		rows := rowsByYear[year]
		n := len(rows)
		k := policy.SampleSize(n)
		if k > n {
			k = n
		}
		if k == 0 {
			continue
		}
		chosen := make([]corpus.YearText, 0, k)
		for _, idx := range rng.Perm(n)[:k] {
			chosen = append(chosen, rows[idx])
		}
		picked[year] = chosen
	}
	return picked, nil
}

// GroupByYear buckets estimation rows by their speech year.
func GroupByYear(rows []corpus.YearText) map[int][]corpus.YearText {
	out := map[int][]corpus.YearText{}
	for _, row := range rows {
		out[row.Year] = append(out[row.Year], row)
	}
	return out
}
