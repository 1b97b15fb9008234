package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/martinemde/nanoagent/sandbox"
)

// Profile pairs a system-prompt builder with a task wrapper. The interactive
// profile works against a local checkout; the swebench profile targets a
// container with the repository in /testbed.
type Profile struct {
	Name     string
	System   func(ctx context.Context, sb sandbox.Sandbox, reg *Registry) string
	WrapTask func(task string) string
}

const interactiveSystem = `You are Nano, an expert software engineer operating in a terminal.

## Workflow
1. EXPLORE - Understand the codebase, find relevant files
2. ANALYZE - Read code to understand patterns and style
3. PLAN - Design minimal, precise changes
4. EXECUTE - Apply changes using edit (exact replacements) or write (new files)
5. VERIFY - Run tests/linters to confirm changes work

## Rules
- State your intent before each tool call
- Keep changes minimal and atomic
- Match existing code style exactly
- Verify changes work before declaring success
- If an edit fails, re-read the file to get exact content`

const swebenchSystem = `You are an expert software engineer. You can read, write, and edit code.

The repository is in /testbed. Use the available tools to explore and modify the code.

When you're done with a task, use the 'submit' tool.`

// projectContextFiles are probed in order; the first hit wins.
var projectContextFiles = []string{"AGENT.md", ".agent.md", "CLAUDE.md", ".claude.md"}

const maxProjectContextBytes = 32 * 1024

// InteractiveProfile builds the local-checkout prompt: workflow rules, the
// generated tool list, environment and git context, and a project context
// file when one exists.
func InteractiveProfile() Profile {
	return Profile{
		Name: "interactive",
		System: func(ctx context.Context, sb sandbox.Sandbox, reg *Registry) string {
			var b strings.Builder
			b.WriteString(interactiveSystem)
			b.WriteString("\n\n")
			b.WriteString(toolsSection(reg))
			b.WriteString("\n\n")
			b.WriteString(environmentContext(sb))
			if git := gitContext(ctx, sb); git != "" {
				b.WriteString("\n\n")
				b.WriteString(git)
			}
			if project := projectContext(sb); project != "" {
				b.WriteString("\n")
				b.WriteString(project)
			}
			return b.String()
		},
		WrapTask: func(task string) string { return task },
	}
}

// SwebenchProfile builds the container prompt and wraps the problem
// statement the way the harness expects.
func SwebenchProfile() Profile {
	return Profile{
		Name: "swebench",
		System: func(_ context.Context, _ sandbox.Sandbox, _ *Registry) string {
			return swebenchSystem
		},
		WrapTask: func(problem string) string {
			return fmt.Sprintf("<problem>\n%s\n</problem>\n\nPlease fix this issue. The repository is in /testbed.", problem)
		},
	}
}

func toolsSection(reg *Registry) string {
	var b strings.Builder
	b.WriteString("# Available Tools\n")
	for _, def := range reg.Definitions() {
		fmt.Fprintf(&b, "- %s: %s\n", def.Name, def.Description)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func environmentContext(sb sandbox.Sandbox) string {
	var b strings.Builder
	b.WriteString("<environment>\n")
	fmt.Fprintf(&b, "Working directory: %s\n", sb.WorkingDir())
	fmt.Fprintf(&b, "Platform: %s\n", sb.Platform())
	fmt.Fprintf(&b, "Today's date: %s\n", time.Now().Format("2006-01-02"))
	b.WriteString("</environment>")
	return b.String()
}

// gitContext summarizes repository state, best effort: a sandbox without
// git yields an empty block.
func gitContext(ctx context.Context, sb sandbox.Sandbox) string {
	branch := execLine(ctx, sb, "git rev-parse --abbrev-ref HEAD")
	if branch == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("<git_context>\n")
	fmt.Fprintf(&b, "Branch: %s\n", branch)
	if status := execLine(ctx, sb, "git status --short | wc -l"); status != "" && status != "0" {
		fmt.Fprintf(&b, "Modified/untracked files: %s\n", status)
	}
	if log := execOutput(ctx, sb, "git log --oneline -5"); log != "" {
		b.WriteString("Recent commits:\n")
		b.WriteString(log)
		b.WriteString("\n")
	}
	b.WriteString("</git_context>")
	return b.String()
}

func projectContext(sb sandbox.Sandbox) string {
	for _, name := range projectContextFiles {
		if !sb.FileExists(name) {
			continue
		}
		content, err := sb.ReadFile(name)
		if err != nil {
			continue
		}
		if len(content) > maxProjectContextBytes {
			content = content[:maxProjectContextBytes] + "\n[Project context truncated at 32KB]"
		}
		return fmt.Sprintf("\n## Project Context\n%s", content)
	}
	return ""
}

func execOutput(ctx context.Context, sb sandbox.Sandbox, command string) string {
	result, err := sb.Exec(ctx, command, 10*time.Second)
	if err != nil || result.TimedOut || result.ExitCode != 0 {
		return ""
	}
	return strings.TrimSpace(result.Output)
}

func execLine(ctx context.Context, sb sandbox.Sandbox, command string) string {
	out := execOutput(ctx, sb, command)
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		out = out[:i]
	}
	return out
}
