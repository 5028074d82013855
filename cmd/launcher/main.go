package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"pbs-orchestrator/core/launcher"
)

// The launcher is the single command a rendered submission script runs.
// Everything after "--" is the payload command line.
func main() {
	logPath := flag.String("log", "", "file the payload's merged stdout/stderr is appended to")
	flag.Parse()

	if *logPath == "" {
		fmt.Fprintln(os.Stderr, "launcher: -log is required")
		os.Exit(2)
	}

	argv := flag.Args()
	if len(argv) == 0 {
		fmt.Fprintln(os.Stderr, "launcher: no payload command after --")
		os.Exit(2)
	}

	code, err := launcher.New(*logPath).Run(context.Background(), argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "launcher: %v\n", err)
		os.Exit(127)
	}

	// The payload's exit code becomes the job's exit code
	os.Exit(code)
}
