// Package sandbox provides the isolated execution contexts agent runs
// operate against: a path-confined local directory or a dedicated Docker
// container. Both variants expose the same tool surface, so the agent loop
// never knows which one it is driving.
package sandbox

import (
	"context"
	"time"
)

// Entry is one filesystem entry returned by ListDir and Glob. For Glob
// results Name is the path relative to the sandbox root.
type Entry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size,omitempty"`
}

// ExecResult holds the outcome of a command execution. A timed-out command
// is a result, not an error; the run continues.
type ExecResult struct {
	Output   string `json:"output"`
	ExitCode int    `json:"exit_code"`
	TimedOut bool   `json:"timed_out"`
}

// Sandbox is the execution environment tools run against. One sandbox is
// exclusively owned by one run; Close must be called on every exit path.
type Sandbox interface {
	// ReadFile returns the raw content of a file.
	ReadFile(path string) (string, error)

	// WriteFile overwrites a file, creating parent directories as needed.
	WriteFile(path, content string) error

	// FileExists reports whether a file or directory exists.
	FileExists(path string) bool

	// ListDir returns the entries of a directory.
	ListDir(path string) ([]Entry, error)

	// Exec runs a shell command with the sandbox root as working directory.
	// Output is combined stdout and stderr.
	Exec(ctx context.Context, command string, timeout time.Duration) (*ExecResult, error)

	// Glob returns entries matching a glob pattern under path.
	Glob(pattern, path string) ([]Entry, error)

	// Grep searches file contents for a regex pattern, returning matching
	// lines with context. include is an optional file glob filter.
	Grep(ctx context.Context, pattern, path, include string, contextLines int) (string, error)

	// Diff returns the current version-control diff of the sandbox, the
	// run's artifact. Empty when there is nothing to report.
	Diff(ctx context.Context) (string, error)

	// WorkingDir returns the sandbox root (local path or container workdir).
	WorkingDir() string

	// Platform describes the execution platform for the system prompt.
	Platform() string

	// Close tears the sandbox down. Unconditional on every exit path.
	Close(ctx context.Context) error
}
