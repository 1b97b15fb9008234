package agent

import (
	"fmt"
	"strings"
)

// DefaultTruncateChars is the default ceiling for tool result text.
const DefaultTruncateChars = 30_000

// Per-tool ceiling overrides. Tools absent here use the configured default.
var toolTruncateLimits = map[string]int{
	"read":     30_000,
	"bash":     30_000,
	"grep":     20_000,
	"git_diff": 20_000,
	"glob":     10_000,
	"ls":       10_000,
}

// Truncate shortens text over maxChars to its first quarter and last three
// quarters, with an elision marker reporting the omitted character count.
// Trailing content is preserved because errors typically surface at the end.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	head := maxChars / 4
	tail := maxChars - head
	omitted := len(text) - maxChars
	return fmt.Sprintf("%s\n\n... [%s chars truncated] ...\n\n%s",
		text[:head], groupDigits(omitted), text[len(text)-tail:])
}

// TruncateFor applies the per-tool ceiling, falling back to defaultMax.
func TruncateFor(toolName, text string, defaultMax int) string {
	if defaultMax <= 0 {
		defaultMax = DefaultTruncateChars
	}
	max, ok := toolTruncateLimits[toolName]
	if !ok {
		max = defaultMax
	}
	return Truncate(text, max)
}

// groupDigits formats n with comma-grouped thousands.
func groupDigits(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	return s + "," + strings.Join(parts, ",")
}
