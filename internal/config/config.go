package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults mirror the paths and knobs the pipeline scripts historically used.
const (
	DefaultCorpusDB   = "data/Discursos.sqlite"
	DefaultSenatorsDB = "data/Senadores.sqlite"
	DefaultSampleDB   = "data/Amostra_1.sqlite"
	DefaultOutDir     = "data/batch_figuras"
	DefaultModel      = "gpt-5"

	DefaultMinWords         = 200
	DefaultChunkSize        = 800
	DefaultCompletionWindow = "24h"
)

// ModelPricing is USD per one million tokens, by billing category.
type ModelPricing struct {
	Input       float64 `yaml:"input"`
	CachedInput float64 `yaml:"cached_input"`
	Output      float64 `yaml:"output"`
}

// Config is the full run configuration. Zero values are replaced by
// defaults in Normalize; flags may override individual fields afterwards.
type Config struct {
	CorpusDB   string `yaml:"corpus_db"`
	SenatorsDB string `yaml:"senators_db"`
	SampleDB   string `yaml:"sample_db"`
	OutDir     string `yaml:"out_dir"`

	Model            string `yaml:"model"`
	CompletionWindow string `yaml:"completion_window"`

	// Seed is optional: nil means non-deterministic sampling, which the
	// sampler flags in its provenance output.
	Seed *int64 `yaml:"seed"`

	MinWords  int `yaml:"min_words"`
	ChunkSize int `yaml:"chunk_size"`
	MaxChars  int `yaml:"max_chars"`

	ExpectedOutputTokens int  `yaml:"expected_output_tokens"`
	PromptCached         bool `yaml:"prompt_cached"`

	Pricing map[string]ModelPricing `yaml:"pricing"`
}

// Load reads a YAML config file. A missing path returns defaults only.
func Load(path string) (Config, error) {
	cfg := Config{}
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config file %q not found", path)
			}
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", path, err)
		}
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize fills defaults for unset fields.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.CorpusDB) == "" {
		c.CorpusDB = DefaultCorpusDB
	}
	if strings.TrimSpace(c.SenatorsDB) == "" {
		c.SenatorsDB = DefaultSenatorsDB
	}
	if strings.TrimSpace(c.SampleDB) == "" {
		c.SampleDB = DefaultSampleDB
	}
	if strings.TrimSpace(c.OutDir) == "" {
		c.OutDir = DefaultOutDir
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultModel
	}
	if strings.TrimSpace(c.CompletionWindow) == "" {
		c.CompletionWindow = DefaultCompletionWindow
	}
	if c.MinWords <= 0 {
		c.MinWords = DefaultMinWords
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.Pricing == nil {
		c.Pricing = DefaultPricing()
	}
}

// DefaultPricing is the published gpt-5 price sheet. Runs against other
// models must supply their own entries; the estimator refuses to guess.
func DefaultPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"gpt-5": {
			Input:       0.625,
			CachedInput: 0.0625,
			Output:      5.00,
		},
	}
}
