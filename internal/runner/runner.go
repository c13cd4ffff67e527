// Package runner invokes the configured player command on selected files.
package runner

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Runner executes a shell command template per file. An empty template
// makes Play a no-op, which is the print-only mode of the CLI.
type Runner struct {
	Command string
	Logger  *slog.Logger
}

// New creates a Runner for the given command template.
func New(command string, logger *slog.Logger) *Runner {
	return &Runner{Command: command, Logger: logger}
}

// Play runs the command on the file at path. A single %s in the template
// is substituted with the shell-quoted path; otherwise the path is
// appended. A non-zero exit reports an error.
func (r *Runner) Play(path string) error {
	if r.Command == "" {
		return nil
	}

	command := Expand(r.Command, path)
	r.Logger.Debug("executing command", "command", command)

	cmd := exec.Command("sh", "-c", command)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

// Expand builds the shell command for a file path from the template.
func Expand(command, path string) string {
	quoted := Shellquote(path)
	if strings.Count(command, "%s") == 1 {
		return strings.Replace(command, "%s", quoted, 1)
	}
	return command + " " + quoted
}

// Shellquote returns path quoted for a sh-like shell.
func Shellquote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}
