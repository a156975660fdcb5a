package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/senadolab/figuras/internal/artifact"
	"github.com/senadolab/figuras/internal/batch"
	"github.com/senadolab/figuras/internal/config"
	"github.com/senadolab/figuras/internal/corpus"
	"github.com/senadolab/figuras/internal/spans"
)

const (
	inputFileName = "batch_input.jsonl"
	metaFileName  = "amostra_meta.parquet"
	spansFileName = "spans_long.parquet"
)

// runBatchCmd drives the whole annotation round trip: build the request
// file from the sample, upload, submit, poll, download, and parse into
// the span artifact. --dry_run stops after writing the request file;
// --batch_id resumes polling an already submitted batch.
func runBatchCmd(args []string) error {
	fs, configPath := newFlagSet("batch")
	samplePath := fs.String("sample_db", "", "sample SQLite path")
	outDir := fs.String("out_dir", "", "artifact directory")
	model := fs.String("model", "", "model name")
	limit := fs.Int("limit", 0, "annotate at most N speeches (0 = all)")
	shuffle := fs.Bool("shuffle", false, "read the sample in random order")
	maxChars := fs.Int("max_chars", 0, "truncate speech text to N characters (0 = no limit)")
	completionWindow := fs.String("completion_window", "", "batch completion window")
	pollInterval := fs.Duration("poll_interval", 30*time.Second, "status poll interval")
	maxWait := fs.Duration("max_wait", 0, "give up waiting after this long (0 = no limit)")
	dryRun := fs.Bool("dry_run", false, "write the request file and stop")
	batchID := fs.String("batch_id", "", "resume an already submitted batch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *samplePath == "" {
		*samplePath = cfg.SampleDB
	}
	if *outDir == "" {
		*outDir = cfg.OutDir
	}
	if *model == "" {
		*model = cfg.Model
	}
	if *maxChars <= 0 {
		*maxChars = cfg.MaxChars
	}
	if *completionWindow == "" {
		*completionWindow = cfg.CompletionWindow
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	config.LoadDotEnv(".env")
	ctx := context.Background()
	client := batch.NewClient(os.Getenv("OPENAI_API_KEY"), "", nil)

	if *batchID == "" {
		speeches, err := corpus.SampledSpeeches(*samplePath, *limit, *shuffle)
		if err != nil {
			return err
		}
		if len(speeches) == 0 {
			log.Printf("sample %s is empty; nothing to annotate", *samplePath)
			return nil
		}

		inputPath := filepath.Join(*outDir, inputFileName)
		file, err := os.Create(inputPath)
		if err != nil {
			return fmt.Errorf("create request file: %w", err)
		}
		written, truncated, err := batch.WriteJSONL(file, speeches, *model, *maxChars)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return err
		}
		log.Printf("request file %s requests=%d truncated=%d", inputPath, written, truncated)
		if truncated > 0 {
			log.Printf("warning: %d speeches truncated to %d chars; their span offsets refer to the truncated text", truncated, *maxChars)
		}

		metaRows := make([]artifact.MetaRow, 0, len(speeches))
		for _, sp := range speeches {
			metaRows = append(metaRows, artifact.FromSampledSpeech(sp))
		}
		metaPath := filepath.Join(*outDir, metaFileName)
		if err := artifact.WriteMeta(metaPath, metaRows); err != nil {
			return err
		}
		log.Printf("metadata artifact %s rows=%d", metaPath, len(metaRows))

		if *dryRun {
			log.Printf("dry run; batch not submitted")
			return nil
		}

		payload, err := os.ReadFile(inputPath)
		if err != nil {
			return fmt.Errorf("reread request file: %w", err)
		}
		fileID, err := client.UploadBatchFile(ctx, inputFileName, payload)
		if err != nil {
			return err
		}
		job, err := client.CreateJob(ctx, fileID, *completionWindow)
		if err != nil {
			return err
		}
		*batchID = job.ID
		log.Printf("batch submitted id=%s input_file=%s window=%s", job.ID, fileID, *completionWindow)
	}

	job, err := batch.WaitForJob(ctx, client, *batchID, batch.PollOptions{
		Interval: *pollInterval,
		MaxWait:  *maxWait,
		OnStatus: func(j batch.Job) {
			log.Printf("batch %s status=%s", j.ID, j.Status)
		},
	})
	if err != nil {
		if errors.Is(err, batch.ErrPollBudget) {
			log.Printf("batch %s still running; resume with --batch_id %s", *batchID, *batchID)
			return err
		}
		var terminal *batch.TerminalError
		if errors.As(err, &terminal) && terminal.Job.ErrorFileID != "" {
			if content, ferr := client.FileContent(ctx, terminal.Job.ErrorFileID); ferr == nil {
				errPath := filepath.Join(*outDir, terminal.Job.ID+"_error.jsonl")
				if werr := os.WriteFile(errPath, content, 0o644); werr == nil {
					log.Printf("error file saved to %s", errPath)
				}
			}
		}
		return err
	}
	if job.OutputFileID == "" {
		return fmt.Errorf("batch %s completed without an output file", job.ID)
	}

	content, err := client.FileContent(ctx, job.OutputFileID)
	if err != nil {
		return err
	}
	outputPath := filepath.Join(*outDir, job.ID+"_output.jsonl")
	if err := os.WriteFile(outputPath, content, 0o644); err != nil {
		return fmt.Errorf("save batch output: %w", err)
	}
	log.Printf("batch output saved to %s", outputPath)

	return parseIntoArtifact(outputPath, filepath.Join(*outDir, spansFileName))
}

// runParseCmd parses a batch output file already on disk, for runs where
// the download happened elsewhere. With --sample_db it also regenerates
// the metadata artifact next to the span table.
func runParseCmd(args []string) error {
	fs, configPath := newFlagSet("parse")
	inPath := fs.String("in_jsonl", "", "downloaded batch output (required)")
	outPath := fs.String("out", "", "span artifact path")
	samplePath := fs.String("sample_db", "", "sample SQLite path; regenerates the metadata artifact")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return fmt.Errorf("--in_jsonl is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *outPath == "" {
		*outPath = filepath.Join(cfg.OutDir, spansFileName)
	}
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if *samplePath != "" {
		speeches, err := corpus.SampledSpeeches(*samplePath, 0, false)
		if err != nil {
			return err
		}
		metaRows := make([]artifact.MetaRow, 0, len(speeches))
		for _, sp := range speeches {
			metaRows = append(metaRows, artifact.FromSampledSpeech(sp))
		}
		metaPath := filepath.Join(filepath.Dir(*outPath), metaFileName)
		if err := artifact.WriteMeta(metaPath, metaRows); err != nil {
			return err
		}
		log.Printf("metadata artifact %s rows=%d", metaPath, len(metaRows))
	}

	return parseIntoArtifact(*inPath, *outPath)
}

func parseIntoArtifact(inPath, outPath string) error {
	file, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("open batch output: %w", err)
	}
	defer file.Close()

	rows, stats, err := spans.ParseOutput(file)
	if err != nil {
		return err
	}

	spanRows := make([]artifact.SpanRow, 0, len(rows))
	for _, row := range rows {
		spanRows = append(spanRows, artifact.FromParsedRow(row))
	}
	if err := artifact.WriteSpans(outPath, spanRows); err != nil {
		return err
	}
	log.Printf("span artifact %s records=%d spans=%d free_text=%d empty=%d errors=%d",
		outPath, stats.Records, stats.SpanRows, stats.TextRows, stats.EmptyRows, stats.ErrorRows)
	return nil
}
