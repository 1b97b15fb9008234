package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/martinemde/nanoagent/llm"
	"github.com/martinemde/nanoagent/sandbox"
)

// SubmitToolName is the termination tool; the loop detects it by name.
const SubmitToolName = "submit"

// ToolConfig carries the knobs shared by the core tools.
type ToolConfig struct {
	DefaultTimeout time.Duration // shell default, 120s
	MaxTimeout     time.Duration // shell ceiling, 600s
}

// DefaultToolConfig returns the historical defaults.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		DefaultTimeout: 120 * time.Second,
		MaxTimeout:     600 * time.Second,
	}
}

// CoreTools returns the full tool set in presentation order. WithSubmit
// controls whether the termination tool is included; the interactive REPL
// leaves it out, harness runs include it.
func CoreTools(cfg ToolConfig, withSubmit bool) []Tool {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 120 * time.Second
	}
	if cfg.MaxTimeout <= 0 {
		cfg.MaxTimeout = 600 * time.Second
	}
	tools := []Tool{
		readTool{},
		writeTool{},
		editTool{},
		multiEditTool{},
		bashTool{cfg: cfg},
		runTestsTool{},
		grepTool{},
		findDefinitionTool{},
		globTool{},
		lsTool{},
		treeTool{},
		gitStatusTool{},
		gitDiffTool{},
		gitLogTool{},
		thinkTool{},
	}
	if withSubmit {
		tools = append(tools, submitTool{})
	}
	return tools
}

func invalidArgs() ToolOutcome {
	return fail(ErrUserInput, "Invalid JSON arguments")
}

// readTool returns line-numbered file content, optionally ranged.
type readTool struct{}

func (readTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "read",
		Description: "Read file contents with line numbers. Use start/end for large files.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path":  map[string]interface{}{"type": "string", "description": "File path"},
				"start": map[string]interface{}{"type": "integer", "description": "Start line (1-indexed)"},
				"end":   map[string]interface{}{"type": "integer", "description": "End line"},
			},
			"required": []string{"path"},
		},
	}
}

func (readTool) Execute(_ context.Context, raw json.RawMessage, sb sandbox.Sandbox) ToolOutcome {
	var args struct {
		Path  string `json:"path"`
		Start int    `json:"start"`
		End   int    `json:"end"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArgs()
	}
	if args.Path == "" {
		return fail(ErrUserInput, "path is required")
	}

	content, err := sb.ReadFile(args.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fail(ErrPrecondition, "File not found: %s", args.Path)
		}
		return fail(ErrPrecondition, "Error: %v", err)
	}

	lines := strings.Split(content, "\n")
	startNum := 1
	if args.Start > 0 || args.End > 0 {
		start := args.Start
		if start < 1 {
			start = 1
		}
		end := args.End
		if end <= 0 || end > len(lines) {
			end = len(lines)
		}
		if start > len(lines) || end < start {
			return ok("")
		}
		lines = lines[start-1 : end]
		startNum = start
	}

	var sb2 strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&sb2, "%4d| %s\n", startNum+i, line)
	}
	return ok("%s", strings.TrimSuffix(sb2.String(), "\n"))
}

// writeTool creates or overwrites a file, making parent directories.
type writeTool struct{}

func (writeTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "write",
		Description: "Create or overwrite a file.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path":    map[string]interface{}{"type": "string", "description": "File path"},
				"content": map[string]interface{}{"type": "string", "description": "File content"},
			},
			"required": []string{"path", "content"},
		},
	}
}

func (writeTool) Execute(_ context.Context, raw json.RawMessage, sb sandbox.Sandbox) ToolOutcome {
	var args struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArgs()
	}
	if args.Path == "" {
		return fail(ErrUserInput, "path is required")
	}
	if err := sb.WriteFile(args.Path, args.Content); err != nil {
		return fail(ErrPrecondition, "Error: %v", err)
	}
	return ok("Written: %s (%d bytes)", args.Path, len(args.Content))
}

// editTool replaces exact text that occurs exactly once. The file is left
// byte-identical when the search text is absent or ambiguous.
type editTool struct{}

func (editTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "edit",
		Description: "Replace exact text in file. Search must match exactly once. If fails, use read first.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path":    map[string]interface{}{"type": "string", "description": "File path"},
				"search":  map[string]interface{}{"type": "string", "description": "Exact text to find (including whitespace)"},
				"replace": map[string]interface{}{"type": "string", "description": "Text to replace with"},
			},
			"required": []string{"path", "search", "replace"},
		},
	}
}

func (editTool) Execute(_ context.Context, raw json.RawMessage, sb sandbox.Sandbox) ToolOutcome {
	var args struct {
		Path    string `json:"path"`
		Search  string `json:"search"`
		Replace string `json:"replace"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArgs()
	}
	if args.Path == "" || args.Search == "" {
		return fail(ErrUserInput, "path and search are required")
	}

	if !sb.FileExists(args.Path) {
		return fail(ErrPrecondition, "File not found: %s", args.Path)
	}
	content, err := sb.ReadFile(args.Path)
	if err != nil {
		return fail(ErrPrecondition, "Error: %v", err)
	}

	count := strings.Count(content, args.Search)
	if count == 0 {
		return fail(ErrPrecondition, "Search not found. Use 'read' to see exact content.")
	}
	if count > 1 {
		return fail(ErrPrecondition, "Found %d matches. Add more context to make unique.", count)
	}

	if err := sb.WriteFile(args.Path, strings.Replace(content, args.Search, args.Replace, 1)); err != nil {
		return fail(ErrPrecondition, "Error: %v", err)
	}
	return ok("Patch applied")
}

// multiEditTool applies a batch of edits atomically: every precondition is
// validated against a snapshot before anything is written, and a mid-apply
// failure restores every touched file from that snapshot.
type multiEditTool struct{}

type editSpec struct {
	Path    string `json:"path"`
	Search  string `json:"search"`
	Replace string `json:"replace"`
}

func (multiEditTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "multi_edit",
		Description: "Apply multiple edits atomically. All edits succeed or all fail.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"edits": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"path":    map[string]interface{}{"type": "string"},
							"search":  map[string]interface{}{"type": "string"},
							"replace": map[string]interface{}{"type": "string"},
						},
						"required": []string{"path", "search", "replace"},
					},
				},
			},
			"required": []string{"edits"},
		},
	}
}

func (multiEditTool) Execute(_ context.Context, raw json.RawMessage, sb sandbox.Sandbox) ToolOutcome {
	var args struct {
		Edits []editSpec `json:"edits"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArgs()
	}
	if len(args.Edits) == 0 {
		return fail(ErrUserInput, "edits is required")
	}

	// Validate every precondition against a snapshot before mutating.
	snapshot := make(map[string]string)
	for _, edit := range args.Edits {
		if edit.Path == "" || edit.Search == "" {
			return fail(ErrUserInput, "each edit needs path, search and replace")
		}
		content, seen := snapshot[edit.Path]
		if !seen {
			if !sb.FileExists(edit.Path) {
				return fail(ErrPrecondition, "File not found: %s", edit.Path)
			}
			var err error
			content, err = sb.ReadFile(edit.Path)
			if err != nil {
				return fail(ErrPrecondition, "Error: %v", err)
			}
			snapshot[edit.Path] = content
		}
		if !strings.Contains(content, edit.Search) {
			return fail(ErrPrecondition, "Search not found in %s. Use 'read' to see exact content.", edit.Path)
		}
	}

	// Apply in order, reading fresh content so edits to one file compose.
	for _, edit := range args.Edits {
		content, err := sb.ReadFile(edit.Path)
		if err == nil {
			err = sb.WriteFile(edit.Path, strings.Replace(content, edit.Search, edit.Replace, 1))
		}
		if err != nil {
			for path, original := range snapshot {
				_ = sb.WriteFile(path, original)
			}
			return fail(ErrPrecondition, "Error: %v (rolled back all changes)", err)
		}
	}
	return ok("Applied %d edits", len(args.Edits))
}

// bashTool runs a shell command with the sandbox root as working directory.
// A timeout is a text result, not a run-fatal condition.
type bashTool struct {
	cfg ToolConfig
}

func (bashTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "bash",
		Description: "Run shell command. Use for: git, tests, builds, installing packages. Output truncated.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"command": map[string]interface{}{"type": "string", "description": "Command to execute"},
				"timeout": map[string]interface{}{"type": "integer", "description": "Timeout in seconds (default: 120)"},
			},
			"required": []string{"command"},
		},
	}
}

func (t bashTool) Execute(ctx context.Context, raw json.RawMessage, sb sandbox.Sandbox) ToolOutcome {
	var args struct {
		Command string `json:"command"`
		Timeout int    `json:"timeout"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArgs()
	}
	if args.Command == "" {
		return fail(ErrUserInput, "command is required")
	}

	timeout := t.cfg.DefaultTimeout
	if args.Timeout > 0 {
		timeout = time.Duration(args.Timeout) * time.Second
	}
	if timeout > t.cfg.MaxTimeout {
		timeout = t.cfg.MaxTimeout
	}

	result, err := sb.Exec(ctx, args.Command, timeout)
	if err != nil {
		return fail(ErrPrecondition, "Error: %v", err)
	}
	if result.TimedOut {
		return fail(ErrTimeout, "Timeout after %ds", int(timeout.Seconds()))
	}

	out := strings.TrimSpace(result.Output)
	if out == "" {
		if result.ExitCode == 0 {
			return ok("Command completed (no output)")
		}
		return ok("Failed (exit %d)", result.ExitCode)
	}
	return ok("%s", out)
}

// runTestsTool runs the project test suite, detecting the framework from
// marker files at the sandbox root.
type runTestsTool struct{}

func (runTestsTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "run_tests",
		Description: "Run test suite and return results.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"test_path": map[string]interface{}{"type": "string", "description": "Test file/dir (default: auto-detect)"},
				"pattern":   map[string]interface{}{"type": "string", "description": "Test name pattern"},
				"verbose":   map[string]interface{}{"type": "boolean", "description": "Verbose output"},
			},
			"required": []string{},
		},
	}
}

func (runTestsTool) Execute(ctx context.Context, raw json.RawMessage, sb sandbox.Sandbox) ToolOutcome {
	var args struct {
		TestPath string `json:"test_path"`
		Pattern  string `json:"pattern"`
		Verbose  bool   `json:"verbose"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArgs()
	}

	verbose := ""
	if args.Verbose {
		verbose = " -v"
	}

	pytest := func() string {
		cmd := "python -m pytest"
		if args.TestPath != "" {
			cmd += " " + shellWord(args.TestPath)
		}
		if args.Pattern != "" {
			cmd += " -k " + shellWord(args.Pattern)
		}
		return cmd + verbose + " --tb=short 2>&1"
	}

	var cmd string
	switch {
	case sb.FileExists("pytest.ini") || sb.FileExists("pyproject.toml") || sb.FileExists("setup.py"):
		cmd = pytest()
	case sb.FileExists("package.json"):
		cmd = "npm test"
		if args.TestPath != "" {
			cmd += " -- " + shellWord(args.TestPath)
		}
		cmd += " 2>&1"
	case sb.FileExists("Cargo.toml"):
		cmd = "cargo test"
		if args.TestPath != "" {
			cmd += " " + shellWord(args.TestPath)
		}
		cmd += " 2>&1"
	case sb.FileExists("go.mod"):
		cmd = "go test ./..." + verbose + " 2>&1"
	default:
		cmd = pytest()
	}

	result, err := sb.Exec(ctx, cmd, 300*time.Second)
	if err != nil {
		return fail(ErrPrecondition, "Error: %v", err)
	}
	if result.TimedOut {
		return fail(ErrTimeout, "Timeout after 300s")
	}
	out := strings.TrimSpace(result.Output)
	if out == "" {
		if result.ExitCode == 0 {
			return ok("Command completed (no output)")
		}
		return ok("Failed (exit %d)", result.ExitCode)
	}
	return ok("%s", out)
}

// grepTool searches file contents with a regex pattern.
type grepTool struct{}

func (grepTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "grep",
		Description: "Search file contents with regex. Returns matching lines with context.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"pattern": map[string]interface{}{"type": "string", "description": "Regex pattern"},
				"path":    map[string]interface{}{"type": "string", "description": "Directory to search (default: .)"},
				"include": map[string]interface{}{"type": "string", "description": "File glob (e.g., *.py)"},
				"context": map[string]interface{}{"type": "integer", "description": "Lines of context (default: 2)"},
			},
			"required": []string{"pattern"},
		},
	}
}

func (grepTool) Execute(ctx context.Context, raw json.RawMessage, sb sandbox.Sandbox) ToolOutcome {
	var args struct {
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
		Include string `json:"include"`
		Context *int   `json:"context"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArgs()
	}
	if args.Pattern == "" {
		return fail(ErrUserInput, "pattern is required")
	}
	contextLines := 2
	if args.Context != nil && *args.Context >= 0 {
		contextLines = *args.Context
	}

	out, err := sb.Grep(ctx, args.Pattern, args.Path, args.Include, contextLines)
	if err != nil {
		return fail(ErrPrecondition, "Error: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		return ok("No matches")
	}
	return ok("%s", strings.TrimRight(out, "\n"))
}

// definitionPatterns maps a symbol kind to a regex template covering the
// declaration keywords of the common languages.
var definitionPatterns = map[string]string{
	"function": `(def|function|fn|func)\s+%s\s*\(`,
	"class":    `(class|struct|interface|type)\s+%s`,
	"variable": `(let|const|var|val)\s+%s\s*=`,
	"any":      `(def|class|function|fn|func|struct|interface|type|let|const|var)\s+%s`,
}

// findDefinitionTool locates where a symbol is declared.
type findDefinitionTool struct{}

func (findDefinitionTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "find_definition",
		Description: "Find function/class/variable definition in codebase.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "string", "description": "Symbol name to find"},
				"type": map[string]interface{}{"type": "string", "enum": []string{"function", "class", "variable", "any"}, "description": "Symbol type"},
			},
			"required": []string{"name"},
		},
	}
}

func (findDefinitionTool) Execute(ctx context.Context, raw json.RawMessage, sb sandbox.Sandbox) ToolOutcome {
	var args struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArgs()
	}
	if args.Name == "" {
		return fail(ErrUserInput, "name is required")
	}

	template, found := definitionPatterns[args.Type]
	if !found {
		template = definitionPatterns["any"]
	}
	pattern := fmt.Sprintf(template, regexp.QuoteMeta(args.Name))

	cmd := fmt.Sprintf("grep -rn -E %s . --include='*.py' --include='*.js' --include='*.ts' --include='*.go' --include='*.rs' --include='*.java' 2>/dev/null | head -50", shellWord(pattern))
	result, err := sb.Exec(ctx, cmd, 30*time.Second)
	if err != nil {
		return fail(ErrPrecondition, "Error: %v", err)
	}
	if result.TimedOut {
		return fail(ErrTimeout, "Timeout after 30s")
	}
	out := strings.TrimSpace(result.Output)
	if out == "" {
		return ok("No definition found for '%s'", args.Name)
	}
	return ok("%s", out)
}

// globTool lists files matching a glob pattern, bounded at 100 entries.
type globTool struct{}

func (globTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "glob",
		Description: "Find files matching a glob pattern (e.g., **/*.py).",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"pattern": map[string]interface{}{"type": "string", "description": "Glob pattern (e.g., **/*.py)"},
				"path":    map[string]interface{}{"type": "string", "description": "Directory (default: .)"},
			},
			"required": []string{"pattern"},
		},
	}
}

func (globTool) Execute(_ context.Context, raw json.RawMessage, sb sandbox.Sandbox) ToolOutcome {
	var args struct {
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArgs()
	}
	if args.Pattern == "" {
		return fail(ErrUserInput, "pattern is required")
	}

	entries, err := sb.Glob(args.Pattern, args.Path)
	if err != nil {
		return fail(ErrPrecondition, "Error: %v", err)
	}
	if len(entries) == 0 {
		return ok("No files found")
	}

	var lines []string
	for i, e := range entries {
		if i >= 100 {
			lines = append(lines, fmt.Sprintf("... and %d more", len(entries)-100))
			break
		}
		prefix := "F "
		if e.IsDir {
			prefix = "D "
		}
		lines = append(lines, prefix+e.Name)
	}
	return ok("%s", strings.Join(lines, "\n"))
}

// lsTool lists a directory with type and size per entry.
type lsTool struct{}

func (lsTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "ls",
		Description: "List directory contents with file sizes.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{"type": "string", "description": "Directory path (default: .)"},
			},
			"required": []string{},
		},
	}
}

func (lsTool) Execute(_ context.Context, raw json.RawMessage, sb sandbox.Sandbox) ToolOutcome {
	var args struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArgs()
	}
	if args.Path == "" {
		args.Path = "."
	}

	entries, err := sb.ListDir(args.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fail(ErrPrecondition, "Directory not found: %s", args.Path)
		}
		return fail(ErrPrecondition, "Error: %v", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	var lines []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name, ".") {
			continue
		}
		typ := "-"
		if e.IsDir {
			typ = "d"
		}
		lines = append(lines, fmt.Sprintf("%s %8d  %s", typ, e.Size, e.Name))
	}
	if len(lines) == 0 {
		return ok("(empty directory)")
	}
	return ok("%s", strings.Join(lines, "\n"))
}

// treeTool shows the directory hierarchy, falling back to find when the
// tree binary is absent.
type treeTool struct{}

func (treeTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "tree",
		Description: "Show directory tree structure.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path":      map[string]interface{}{"type": "string", "description": "Directory path (default: .)"},
				"max_depth": map[string]interface{}{"type": "integer", "description": "Max depth (default: 3)"},
				"include":   map[string]interface{}{"type": "string", "description": "Include pattern (e.g. '*.py')"},
			},
			"required": []string{},
		},
	}
}

func (treeTool) Execute(ctx context.Context, raw json.RawMessage, sb sandbox.Sandbox) ToolOutcome {
	var args struct {
		Path     string `json:"path"`
		MaxDepth int    `json:"max_depth"`
		Include  string `json:"include"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArgs()
	}
	if args.Path == "" {
		args.Path = "."
	}
	if args.MaxDepth <= 0 {
		args.MaxDepth = 3
	}

	include := ""
	if args.Include != "" {
		include = "-P " + shellWord(args.Include) + " "
	}
	cmd := fmt.Sprintf("tree -L %d %s--noreport %s 2>/dev/null || find %s -maxdepth %d -print 2>/dev/null",
		args.MaxDepth, include, shellWord(args.Path), shellWord(args.Path), args.MaxDepth)
	return runShell(ctx, sb, cmd, 30*time.Second)
}

// Version-control inspection tools: read-only passthrough to the sandbox.

type gitStatusTool struct{}

func (gitStatusTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "git_status",
		Description: "Show git status (modified, staged, untracked files).",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
			"required":   []string{},
		},
	}
}

func (gitStatusTool) Execute(ctx context.Context, _ json.RawMessage, sb sandbox.Sandbox) ToolOutcome {
	return runGit(ctx, sb, "git status --short && echo '---' && git diff --stat HEAD 2>/dev/null")
}

type gitDiffTool struct{}

func (gitDiffTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "git_diff",
		Description: "Show git diff of changes.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path":   map[string]interface{}{"type": "string", "description": "File path (optional, default: all)"},
				"staged": map[string]interface{}{"type": "boolean", "description": "Show staged changes"},
			},
			"required": []string{},
		},
	}
}

func (gitDiffTool) Execute(ctx context.Context, raw json.RawMessage, sb sandbox.Sandbox) ToolOutcome {
	var args struct {
		Path   string `json:"path"`
		Staged bool   `json:"staged"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArgs()
	}
	cmd := "git diff"
	if args.Staged {
		cmd += " --staged"
	}
	if args.Path != "" {
		cmd += " -- " + shellWord(args.Path)
	}
	return runGit(ctx, sb, cmd)
}

type gitLogTool struct{}

func (gitLogTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "git_log",
		Description: "Show recent commits.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"count": map[string]interface{}{"type": "integer", "description": "Number of commits (default: 10)"},
				"path":  map[string]interface{}{"type": "string", "description": "File path (optional)"},
			},
			"required": []string{},
		},
	}
}

func (gitLogTool) Execute(ctx context.Context, raw json.RawMessage, sb sandbox.Sandbox) ToolOutcome {
	var args struct {
		Count int    `json:"count"`
		Path  string `json:"path"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArgs()
	}
	if args.Count <= 0 {
		args.Count = 10
	}
	cmd := fmt.Sprintf("git log --oneline -n %d", args.Count)
	if args.Path != "" {
		cmd += " -- " + shellWord(args.Path)
	}
	return runGit(ctx, sb, cmd)
}

func runGit(ctx context.Context, sb sandbox.Sandbox, command string) ToolOutcome {
	return runShell(ctx, sb, command, 30*time.Second)
}

func runShell(ctx context.Context, sb sandbox.Sandbox, command string, timeout time.Duration) ToolOutcome {
	result, err := sb.Exec(ctx, command, timeout)
	if err != nil {
		return fail(ErrPrecondition, "Error: %v", err)
	}
	if result.TimedOut {
		return fail(ErrTimeout, "Timeout after %ds", int(timeout.Seconds()))
	}
	out := strings.TrimSpace(result.Output)
	if out == "" {
		return ok("(no output)")
	}
	return ok("%s", out)
}

func shellWord(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\"'\"'") + "'"
}

// thinkTool records reasoning without touching the sandbox.
type thinkTool struct{}

func (thinkTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "think",
		Description: "Record your reasoning without taking action. Use for complex problems.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"thought": map[string]interface{}{"type": "string", "description": "Your analysis or reasoning"},
			},
			"required": []string{"thought"},
		},
	}
}

func (thinkTool) Execute(_ context.Context, raw json.RawMessage, _ sandbox.Sandbox) ToolOutcome {
	var args struct {
		Thought string `json:"thought"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArgs()
	}
	thought := args.Thought
	if len(thought) > 100 {
		thought = thought[:100]
	}
	return ok("[Thought recorded: %s...]", thought)
}

// submitTool ends the run; the loop captures the diff the moment it sees
// this tool in a batch.
type submitTool struct{}

func (submitTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        SubmitToolName,
		Description: "Submit the solution when you have fixed the issue.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"summary": map[string]interface{}{"type": "string", "description": "Brief summary of what you fixed"},
			},
			"required": []string{},
		},
	}
}

func (submitTool) Execute(_ context.Context, raw json.RawMessage, _ sandbox.Sandbox) ToolOutcome {
	var args struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArgs()
	}
	return ok("Submitted! Summary: %s", args.Summary)
}
