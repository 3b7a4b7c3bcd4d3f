package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/fxnatic/jsdeob-go/config"
	"github.com/fxnatic/jsdeob-go/pipeline"
	"github.com/fxnatic/jsdeob-go/source"
)

var (
	ErrNoInput     = errors.New("an input file or --url is required")
	ErrInputAndURL = errors.New("an input file and --url are mutually exclusive")
)

const fetchTimeoutSecs = 30

// CLI represents the command-line interface
var CLI struct {
	Input   string `arg:"" optional:"" help:"Obfuscated script to read (\"-\" for stdin)"`
	URL     string `help:"Download the script from this URL instead of reading a file" name:"url"`
	Output  string `help:"Write the result here instead of stdout" short:"o"`
	Config  string `help:"Configuration file path" short:"c" default:"jsdeob.yaml"`
	Report  bool   `help:"Print the pass report as JSON to stderr"`
	Verbose bool   `help:"Log every pass walk to stderr" short:"v"`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("jsdeob"),
		kong.Description("Statically deobfuscate string tables, proxy functions and constant objects in JavaScript."),
	)

	// stdout carries the script.
	color.Output = os.Stderr

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	src, origin, err := readInput()
	if err != nil {
		return err
	}

	opts := pipeline.Options{Config: cfg}
	if CLI.Verbose {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		color.Blue("Deobfuscating %s", origin)
	}

	out, report, err := pipeline.Deobfuscate(src, opts)
	if err != nil {
		var parseErr *pipeline.ParseError
		if errors.As(err, &parseErr) {
			color.Red("Failed to parse %s", origin)
		}
		return err
	}

	if err := source.WriteFile(CLI.Output, out); err != nil {
		return err
	}

	if CLI.Report {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		fmt.Fprintln(os.Stderr, string(data))
	}

	if CLI.Output != "" && CLI.Output != "-" {
		color.Green("Wrote %s (%d rewrites)", CLI.Output, report.Total())
	}
	return nil
}

func readInput() (string, string, error) {
	switch {
	case CLI.Input != "" && CLI.URL != "":
		return "", "", ErrInputAndURL
	case CLI.URL != "":
		fetcher, err := source.NewFetcher(fetchTimeoutSecs)
		if err != nil {
			return "", "", err
		}
		if CLI.Verbose {
			color.Cyan("Fetching %s", CLI.URL)
		}
		src, err := fetcher.Fetch(CLI.URL)
		if err != nil {
			return "", "", fmt.Errorf("failed to fetch script: %w", err)
		}
		return src, CLI.URL, nil
	case CLI.Input != "":
		src, err := source.ReadFile(CLI.Input)
		return src, CLI.Input, err
	}
	return "", "", ErrNoInput
}
