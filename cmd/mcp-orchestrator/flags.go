// ABOUTME: CLI flag parsing using stdlib flag package
// ABOUTME: Supports --config, --timeout, --verbose, --version

package main

import (
	"flag"
	"time"
)

type cliArgs struct {
	config  string
	timeout time.Duration
	verbose bool
	version bool
}

func parseFlags() cliArgs {
	var args cliArgs

	flag.StringVar(&args.config, "config", "", "Path to orchestrator.yaml (overrides discovery)")
	flag.DurationVar(&args.timeout, "timeout", 0, "Per-call timeout (overrides config)")
	flag.BoolVar(&args.verbose, "verbose", false, "Enable debug logging")
	flag.BoolVar(&args.version, "version", false, "Show version and exit")

	flag.Parse()
	return args
}

// remaining returns the non-flag command-line arguments.
func (a cliArgs) remaining() []string {
	return flag.Args()
}
