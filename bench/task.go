// Package bench contains the evaluation harnesses: a local task suite run
// in throwaway directories and a SWE-bench runner driving Docker
// containers. Results are persisted to SQLite.
package bench

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/martinemde/nanoagent/sandbox"
)

// Task is one benchmark case: files to materialize, a prompt, and the
// checks that decide pass or fail.
type Task struct {
	ID          string            `yaml:"id"`
	Category    string            `yaml:"category"`
	Description string            `yaml:"description"`
	Setup       map[string]string `yaml:"setup"`
	Task        string            `yaml:"task"`
	Verify      []Check           `yaml:"verify"`
}

// Check is one verification rule. Exactly one of the rule fields is used:
// Contains requires every string, ContainsAny requires at least one,
// Exists requires the file to exist, MinQuotes counts docstring markers,
// Command passes when the shell command exits zero.
type Check struct {
	Path        string   `yaml:"path,omitempty"`
	Contains    []string `yaml:"contains,omitempty"`
	ContainsAny []string `yaml:"contains_any,omitempty"`
	Exists      bool     `yaml:"exists,omitempty"`
	MinQuotes   int      `yaml:"min_quotes,omitempty"`
	Command     string   `yaml:"command,omitempty"`
}

// Evaluate runs one check against the sandbox.
func (c Check) Evaluate(ctx context.Context, sb sandbox.Sandbox) (bool, error) {
	if c.Command != "" {
		result, err := sb.Exec(ctx, c.Command, 60*time.Second)
		if err != nil {
			return false, err
		}
		return !result.TimedOut && result.ExitCode == 0, nil
	}

	if c.Path == "" {
		return false, fmt.Errorf("check has neither path nor command")
	}
	if c.Exists {
		return sb.FileExists(c.Path), nil
	}

	content, err := sb.ReadFile(c.Path)
	if err != nil {
		return false, nil // missing file fails the check, not the run
	}
	if c.MinQuotes > 0 {
		return strings.Count(content, `"""`) >= c.MinQuotes, nil
	}
	if len(c.ContainsAny) > 0 {
		for _, want := range c.ContainsAny {
			if strings.Contains(content, want) {
				return true, nil
			}
		}
		return false, nil
	}
	for _, want := range c.Contains {
		if !strings.Contains(content, want) {
			return false, nil
		}
	}
	return len(c.Contains) > 0, nil
}

// VerifyAll runs all checks; every check must pass.
func (t Task) VerifyAll(ctx context.Context, sb sandbox.Sandbox) (bool, error) {
	if len(t.Verify) == 0 {
		return false, fmt.Errorf("task %s has no verification checks", t.ID)
	}
	for _, check := range t.Verify {
		passed, err := check.Evaluate(ctx, sb)
		if err != nil {
			return false, err
		}
		if !passed {
			return false, nil
		}
	}
	return true, nil
}

// LoadTasks reads every .yaml/.yml file in dir as one task.
func LoadTasks(dir string) ([]Task, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading tasks directory: %w", err)
	}

	var tasks []Task
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading task file %s: %w", entry.Name(), err)
		}
		var task Task
		if err := yaml.Unmarshal(data, &task); err != nil {
			return nil, fmt.Errorf("parsing task file %s: %w", entry.Name(), err)
		}
		if task.ID == "" {
			return nil, fmt.Errorf("task file %s has no id", entry.Name())
		}
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// BuiltinTasks is the default five-task suite covering one task per
// category.
func BuiltinTasks() []Task {
	return []Task{
		{
			ID:          "calc-001",
			Category:    "add_feature",
			Description: "Add power/exponent function",
			Setup: map[string]string{
				"calc.py": "def add(a, b):\n    return a + b\n\ndef subtract(a, b):\n    return a - b\n",
			},
			Task: "Add a power function to calc.py that raises a to the power of b. Follow the existing code style.",
			Verify: []Check{
				{Path: "calc.py", Contains: []string{"def power", "**"}},
			},
		},
		{
			ID:          "bug-001",
			Category:    "bug_fix",
			Description: "Fix off-by-one error",
			Setup: map[string]string{
				"range_utils.py": "def get_range(start, end):\n    \"\"\"Return list from start to end inclusive.\"\"\"\n    return list(range(start, end))\n",
			},
			Task: "There's a bug in range_utils.py - get_range should return values from start to end INCLUSIVE, but it's missing the end value. Fix the bug.",
			Verify: []Check{
				{Path: "range_utils.py", ContainsAny: []string{"end + 1", "end+1"}},
			},
		},
		{
			ID:          "refactor-001",
			Category:    "refactor",
			Description: "Add error handling",
			Setup: map[string]string{
				"file_utils.py": "def read_file(path):\n    with open(path) as f:\n        return f.read()\n",
			},
			Task: "Add try-except error handling to file_utils.py. If the file doesn't exist, return an empty string instead of crashing.",
			Verify: []Check{
				{Path: "file_utils.py", Contains: []string{"except"}},
				{Path: "file_utils.py", ContainsAny: []string{"FileNotFoundError", "Exception"}},
			},
		},
		{
			ID:          "test-001",
			Category:    "add_tests",
			Description: "Create unit tests",
			Setup: map[string]string{
				"string_utils.py": "def reverse(s):\n    return s[::-1]\n\ndef uppercase(s):\n    return s.upper()\n",
			},
			Task: "Create a test file called test_string_utils.py with unit tests for the reverse and uppercase functions in string_utils.py. Use pytest style.",
			Verify: []Check{
				{Path: "test_string_utils.py", Exists: true},
				{Path: "test_string_utils.py", Contains: []string{"def test_"}},
			},
		},
		{
			ID:          "doc-001",
			Category:    "documentation",
			Description: "Add docstrings",
			Setup: map[string]string{
				"math_ops.py": "def factorial(n):\n    if n <= 1:\n        return 1\n    return n * factorial(n - 1)\n\ndef fibonacci(n):\n    if n <= 1:\n        return n\n    return fibonacci(n-1) + fibonacci(n-2)\n",
			},
			Task: "Add docstrings to all functions in math_ops.py explaining what they do, their parameters, and return values.",
			Verify: []Check{
				{Path: "math_ops.py", MinQuotes: 4},
			},
		},
	}
}
