package bench

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/martinemde/nanoagent/sandbox"
)

func taskSandbox(t *testing.T, files map[string]string) *sandbox.Local {
	t.Helper()
	sb, err := sandbox.NewLocal(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	for name, content := range files {
		if err := sb.WriteFile(name, content); err != nil {
			t.Fatalf("WriteFile(%q): %v", name, err)
		}
	}
	return sb
}

func TestCheckContains(t *testing.T) {
	sb := taskSandbox(t, map[string]string{"calc.py": "def power(a, b):\n    return a ** b\n"})

	check := Check{Path: "calc.py", Contains: []string{"def power", "**"}}
	passed, err := check.Evaluate(context.Background(), sb)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !passed {
		t.Error("expected pass")
	}

	check = Check{Path: "calc.py", Contains: []string{"def power", "math.pow"}}
	passed, _ = check.Evaluate(context.Background(), sb)
	if passed {
		t.Error("expected fail when one required string is missing")
	}
}

func TestCheckContainsAny(t *testing.T) {
	sb := taskSandbox(t, map[string]string{"r.py": "return list(range(start, end + 1))\n"})

	check := Check{Path: "r.py", ContainsAny: []string{"end + 1", "end+1"}}
	passed, err := check.Evaluate(context.Background(), sb)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !passed {
		t.Error("expected pass on first alternative")
	}
}

func TestCheckExistsAndMissingFile(t *testing.T) {
	sb := taskSandbox(t, map[string]string{"present.py": "x"})

	passed, _ := Check{Path: "present.py", Exists: true}.Evaluate(context.Background(), sb)
	if !passed {
		t.Error("expected pass for existing file")
	}
	passed, _ = Check{Path: "absent.py", Exists: true}.Evaluate(context.Background(), sb)
	if passed {
		t.Error("expected fail for missing file")
	}
	// A contains check against a missing file fails without erroring.
	passed, err := Check{Path: "absent.py", Contains: []string{"x"}}.Evaluate(context.Background(), sb)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if passed {
		t.Error("expected fail for missing file")
	}
}

func TestCheckMinQuotes(t *testing.T) {
	sb := taskSandbox(t, map[string]string{
		"doc.py": "def f():\n    \"\"\"One.\"\"\"\n\ndef g():\n    \"\"\"Two.\"\"\"\n",
	})

	passed, _ := Check{Path: "doc.py", MinQuotes: 4}.Evaluate(context.Background(), sb)
	if !passed {
		t.Error("expected pass with 4 docstring markers")
	}
	passed, _ = Check{Path: "doc.py", MinQuotes: 6}.Evaluate(context.Background(), sb)
	if passed {
		t.Error("expected fail with fewer markers than required")
	}
}

func TestCheckCommand(t *testing.T) {
	sb := taskSandbox(t, nil)

	passed, err := Check{Command: "true"}.Evaluate(context.Background(), sb)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !passed {
		t.Error("expected pass on exit 0")
	}
	passed, _ = Check{Command: "false"}.Evaluate(context.Background(), sb)
	if passed {
		t.Error("expected fail on nonzero exit")
	}
}

func TestVerifyAllRequiresEveryCheck(t *testing.T) {
	sb := taskSandbox(t, map[string]string{"f.py": "except FileNotFoundError:\n"})
	task := Task{
		ID: "t",
		Verify: []Check{
			{Path: "f.py", Contains: []string{"except"}},
			{Path: "f.py", ContainsAny: []string{"FileNotFoundError", "Exception"}},
		},
	}

	passed, err := task.VerifyAll(context.Background(), sb)
	if err != nil {
		t.Fatalf("VerifyAll: %v", err)
	}
	if !passed {
		t.Error("expected pass")
	}

	task.Verify = append(task.Verify, Check{Path: "f.py", Contains: []string{"missing"}})
	passed, _ = task.VerifyAll(context.Background(), sb)
	if passed {
		t.Error("expected fail when any check fails")
	}
}

func TestBuiltinTasksCoverAllCategories(t *testing.T) {
	tasks := BuiltinTasks()
	if len(tasks) != 5 {
		t.Fatalf("expected 5 builtin tasks, got %d", len(tasks))
	}
	categories := make(map[string]bool)
	for _, task := range tasks {
		if task.ID == "" || task.Task == "" || len(task.Verify) == 0 {
			t.Errorf("task %q is incomplete", task.ID)
		}
		categories[task.Category] = true
	}
	for _, want := range []string{"add_feature", "bug_fix", "refactor", "add_tests", "documentation"} {
		if !categories[want] {
			t.Errorf("missing category %q", want)
		}
	}
}

func TestLoadTasksFromYAML(t *testing.T) {
	dir := t.TempDir()
	taskYAML := `id: yaml-001
category: bug_fix
description: Example task
setup:
  main.py: |
    print("hi")
task: Fix the thing.
verify:
  - path: main.py
    contains:
      - print
`
	if err := os.WriteFile(filepath.Join(dir, "yaml-001.yaml"), []byte(taskYAML), 0644); err != nil {
		t.Fatalf("writing task file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatalf("writing extra file: %v", err)
	}

	tasks, err := LoadTasks(dir)
	if err != nil {
		t.Fatalf("LoadTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.ID != "yaml-001" || task.Category != "bug_fix" {
		t.Errorf("parsed task = %+v", task)
	}
	if task.Setup["main.py"] != "print(\"hi\")\n" {
		t.Errorf("setup content = %q", task.Setup["main.py"])
	}
	if len(task.Verify) != 1 || task.Verify[0].Contains[0] != "print" {
		t.Errorf("verify = %+v", task.Verify)
	}
}

func TestLoadTasksRejectsMissingID(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("category: x\n"), 0644); err != nil {
		t.Fatalf("writing task file: %v", err)
	}
	if _, err := LoadTasks(dir); err == nil {
		t.Error("expected error for task without id")
	}
}

func TestSummarize(t *testing.T) {
	results := []TaskResult{
		{Task: Task{ID: "a", Category: "bug_fix"}, Passed: true},
		{Task: Task{ID: "b", Category: "bug_fix"}, Passed: false},
		{Task: Task{ID: "c", Category: "refactor"}, Passed: true},
	}

	byCat, passed, total := Summarize(results)
	if passed != 2 || total != 3 {
		t.Errorf("passed/total = %d/%d", passed, total)
	}
	if len(byCat) != 2 {
		t.Fatalf("categories = %d", len(byCat))
	}
	if byCat[0].Category != "bug_fix" || byCat[0].Passed != 1 || byCat[0].Total != 2 {
		t.Errorf("bug_fix summary = %+v", byCat[0])
	}
	if byCat[1].PassRate != 1.0 {
		t.Errorf("refactor pass rate = %f", byCat[1].PassRate)
	}
}
