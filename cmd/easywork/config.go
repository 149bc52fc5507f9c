package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// config holds the parsed command-line settings for one run of the sample
// graph.
type config struct {
	logFormat string
	logLevel  string
	workers   int
	limit     int
	factor    int
}

// exitError carries a process exit code alongside its message, the same
// shape the engine's older CLI front-end used.
type exitError struct {
	Code    int
	Message string
}

func (e *exitError) Error() string { return e.Message }

// parseArgs processes command-line arguments for the sample graph runner.
// It returns a populated config, a boolean indicating a clean early exit
// (e.g. -help), or an *exitError.
func parseArgs(args []string, output io.Writer) (*config, bool, error) {
	flagSet := flag.NewFlagSet("easywork", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, `
easywork - a repeated-pass dataflow graph execution engine.

Usage:
  easywork [options]

Runs a small built-in sample graph: a counter source feeding a
multiplier, joined with text formatting into a sink, until the
counter's limit stops the graph.

Options:
`)
		flagSet.PrintDefaults()
	}

	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 4, "Worker-pool size per dispatch layer.")
	limitFlag := flagSet.Int("limit", 5, "Number of values the sample counter emits before stopping. 0 means unbounded.")
	factorFlag := flagSet.Int("factor", 2, "Multiplier factor applied to each counter value.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &exitError{Code: 2, Message: err.Error()}
	}

	return &config{
		logFormat: strings.ToLower(*logFormatFlag),
		logLevel:  strings.ToLower(*logLevelFlag),
		workers:   *workersFlag,
		limit:     *limitFlag,
		factor:    *factorFlag,
	}, false, nil
}
