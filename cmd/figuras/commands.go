package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/senadolab/figuras/internal/batch"
	"github.com/senadolab/figuras/internal/config"
	"github.com/senadolab/figuras/internal/corpus"
	"github.com/senadolab/figuras/internal/cost"
	"github.com/senadolab/figuras/internal/sampling"
)

func runCleanCmd(args []string) error {
	fs, configPath := newFlagSet("clean")
	dbPath := fs.String("db", "", "corpus SQLite path")
	pattern := fs.String("pattern", "", "override the attachment regex")
	where := fs.String("where", "", "extra SQL predicate limiting the pass")
	commitEvery := fs.Int("commit_every", 0, "updates per transaction")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dbPath == "" {
		*dbPath = cfg.CorpusDB
	}

	rule := corpus.DefaultAttachmentRule()
	if *pattern != "" {
		rule, err = corpus.NewAttachmentRule(*pattern)
		if err != nil {
			return err
		}
	}

	store, err := corpus.OpenStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	log.Printf("cleaning attachments db=%s", *dbPath)
	stats, err := store.CleanAttachments(context.Background(), rule, corpus.CleanOptions{
		Where:       *where,
		CommitEvery: *commitEvery,
	})
	if err != nil {
		return fmt.Errorf("clean attachments: %w", err)
	}
	log.Printf("clean done examined=%d updated=%d unchanged=%d",
		stats.Examined, stats.Updated, stats.Unchanged)
	return nil
}

func runSampleCmd(args []string) error {
	fs, configPath := newFlagSet("sample")
	dbPath := fs.String("db", "", "corpus SQLite path")
	senatorsPath := fs.String("senators_db", "", "senators SQLite path")
	outPath := fs.String("out_db", "", "sample SQLite path (overwritten)")
	seedFlag := fs.String("seed", "", "RNG seed; empty means non-deterministic")
	minWords := fs.Int("min_words", 0, "word-count eligibility threshold")
	chunkSize := fs.Int("chunk_size", 0, "ids per copy batch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dbPath == "" {
		*dbPath = cfg.CorpusDB
	}
	if *senatorsPath == "" {
		*senatorsPath = cfg.SenatorsDB
	}
	if *outPath == "" {
		*outPath = cfg.SampleDB
	}
	if *minWords <= 0 {
		*minWords = cfg.MinWords
	}
	if *chunkSize <= 0 {
		*chunkSize = cfg.ChunkSize
	}
	seed := cfg.Seed
	if *seedFlag != "" {
		v, err := strconv.ParseInt(*seedFlag, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid --seed %q: %w", *seedFlag, err)
		}
		seed = &v
	}

	store, err := corpus.OpenStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	eligible, err := store.EligibleByParty(*minWords)
	if err != nil {
		return err
	}
	if len(eligible) == 0 {
		log.Printf("no speeches above %d words; nothing to sample", *minWords)
		return nil
	}

	selection := sampling.Draw(eligible, sampling.PartyFloorPolicy{}, seed)
	for _, st := range selection.Strata {
		log.Printf("stratum %-12s eligible=%d selected=%d", st.Key, st.Eligible, st.Selected)
	}
	if selection.Seeded {
		log.Printf("sampled %d speeches from %d strata seed=%d",
			selection.Total(), len(selection.Strata), selection.Seed)
	} else {
		log.Printf("sampled %d speeches from %d strata seed=none (not reproducible)",
			selection.Total(), len(selection.Strata))
	}
	if selection.Total() == 0 {
		log.Printf("empty selection; sample db untouched")
		return nil
	}

	if err := store.CopySampleWithJoin(context.Background(), *senatorsPath, *outPath, selection.SpeechIDs, *chunkSize); err != nil {
		return err
	}
	log.Printf("sample written db=%s rows=%d", *outPath, selection.Total())
	return nil
}

func runEstimateCmd(args []string) error {
	fs, configPath := newFlagSet("estimate")
	dbPath := fs.String("db", "", "corpus SQLite path")
	pct := fs.Float64("pct", 10, "percentage sampled per year")
	seed := fs.Int64("seed", 42, "RNG seed for the year draw")
	minWords := fs.Int("min_words", 0, "word-count eligibility threshold")
	model := fs.String("model", "", "model to price")
	expectedOutput := fs.Int("expected_output_tokens", 0, "assumed output tokens per speech")
	promptCached := fs.Bool("prompt_cached", false, "price the fixed prompt at the cached-input rate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dbPath == "" {
		*dbPath = cfg.CorpusDB
	}
	if *minWords <= 0 {
		*minWords = cfg.MinWords
	}
	if *model == "" {
		*model = cfg.Model
	}
	if *expectedOutput <= 0 {
		*expectedOutput = cfg.ExpectedOutputTokens
	}

	store, err := corpus.OpenStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := store.TextsByYear(*minWords)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		log.Printf("no speeches above %d words; nothing to estimate", *minWords)
		return nil
	}

	picked, err := sampling.DrawYears(sampling.GroupByYear(rows), sampling.YearPercentPolicy{Pct: *pct}, *seed)
	if err != nil {
		return err
	}

	tok, err := cost.NewTokenizer(*model)
	if err != nil {
		return err
	}
	report, err := cost.Estimate(picked, tok, priceTable(cfg), cost.Options{
		Model:                       *model,
		Prompt:                      batch.AnnotationPrompt(),
		ExpectedOutputTokensPerItem: *expectedOutput,
		PromptCached:                *promptCached || cfg.PromptCached,
	})
	if err != nil {
		return err
	}

	for _, s := range report.ByYear {
		log.Printf("year %d items=%d input_tokens=%d input_usd=%.4f output_usd=%.4f total_usd=%.4f",
			s.Year, s.Items, s.InputTokens, s.InputCostUSD, s.OutputCostUSD, s.TotalCostUSD)
	}
	t := report.Total
	log.Printf("total items=%d input_tokens=%d input_usd=%.4f output_usd=%.4f total_usd=%.4f",
		t.Items, t.InputTokens, t.InputCostUSD, t.OutputCostUSD, t.TotalCostUSD)
	return nil
}

func priceTable(cfg config.Config) cost.PriceTable {
	table := make(cost.PriceTable, len(cfg.Pricing))
	for model, p := range cfg.Pricing {
		table[model] = cost.Pricing{
			Input:       p.Input,
			CachedInput: p.CachedInput,
			Output:      p.Output,
		}
	}
	return table
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
