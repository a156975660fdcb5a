package main

/*
figuras runs the Senate speech figures-of-speech pipeline.

Usage:
  figuras clean     --db data/Discursos.sqlite
  figuras sample    --seed 42
  figuras estimate  --pct 10 --expected_output_tokens 800
  figuras batch     --model gpt-5 --max_wait 24h
  figuras parse     --in_jsonl data/batch_figuras/batch_xyz_output.jsonl
  figuras report    --label metafora --normalized
  figuras highlight --codigo 12345 --out discurso.html

Every subcommand accepts --config pointing at a YAML run config;
explicit flags override config values. OPENAI_API_KEY is read from the
environment (a local .env file is honored).
*/

import (
	"flag"
	"fmt"
	"log"
	"os"
)

func main() {
	log.SetFlags(0)
	if err := runCLI(); err != nil {
		log.Fatalf("error: %v", err)
	}
}

func runCLI() error {
	if len(os.Args) < 2 {
		printUsage()
		return nil
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "clean":
		return runCleanCmd(args)
	case "sample":
		return runSampleCmd(args)
	case "estimate":
		return runEstimateCmd(args)
	case "batch":
		return runBatchCmd(args)
	case "parse":
		return runParseCmd(args)
	case "report":
		return runReportCmd(args)
	case "highlight":
		return runHighlightCmd(args)
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  figuras clean     [--db PATH] [--pattern REGEX]        strip attachment boilerplate in place")
	fmt.Println("  figuras sample    [--seed N]                           draw the stratified party sample")
	fmt.Println("  figuras estimate  [--pct P] [--seed N]                 estimate batch cost on a year sample")
	fmt.Println("  figuras batch     [--model M] [--max_wait D]           build, submit and collect the batch")
	fmt.Println("  figuras parse     --in_jsonl PATH                      parse a downloaded batch output")
	fmt.Println("  figuras report    [--label L ...] [--normalized]       summarize the span table")
	fmt.Println("  figuras highlight --codigo ID [--out PATH]             render one annotated speech as HTML")
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML run config")
	return fs, configPath
}
