package util

import (
	"errors"
	"os"
	"os/exec"
)

// RunAttached runs cmd with the controlling terminal's stdin, stdout and
// stderr and blocks until it exits. Streams already set on cmd are kept.
func RunAttached(cmd *exec.Cmd) error {
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}

// ExitCode extracts the process exit status from an error returned by
// RunAttached. It returns 0 for nil and -1 when no status is available.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
