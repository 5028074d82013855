package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Launcher runs the payload inside a granted allocation. It performs the
// script body's work: one invocation, merged output appended to the log,
// exit code passed through untouched.
type Launcher struct {
	logPath string
}

// New creates a launcher appending payload output to logPath
func New(logPath string) *Launcher {
	return &Launcher{logPath: logPath}
}

// Run executes the payload command exactly once. Stdout and stderr share a
// single append-mode file descriptor, so the log preserves the order the
// payload produced its output in. Returns the payload's exit code.
func (l *Launcher) Run(ctx context.Context, argv []string) (int, error) {
	if len(argv) == 0 {
		return -1, fmt.Errorf("no payload command given")
	}

	logFile, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return -1, fmt.Errorf("failed to open log %s: %w", l.logPath, err)
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	err = cmd.Run()
	if err == nil {
		return 0, nil
	}

	// A non-zero payload exit is the job's result, not a launcher error
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("failed to start payload %s: %w", argv[0], err)
}
