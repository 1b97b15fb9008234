package agent

import (
	"strings"
	"testing"
)

func TestTruncateShortTextUnchanged(t *testing.T) {
	text := "short output"
	if got := Truncate(text, 100); got != text {
		t.Errorf("expected unchanged text, got %q", got)
	}
	if got := Truncate(text, len(text)); got != text {
		t.Errorf("text at exactly maxChars should be unchanged, got %q", got)
	}
}

func TestTruncatePreservesHeadAndTail(t *testing.T) {
	head := strings.Repeat("H", 5_000)
	middle := strings.Repeat("M", 50_000)
	tail := "FAILED tests/test_parser.py::test_nested - AssertionError"
	text := head + middle + tail

	got := Truncate(text, 1_000)

	if !strings.HasPrefix(got, strings.Repeat("H", 250)) {
		t.Error("head quarter not preserved")
	}
	if !strings.HasSuffix(got, tail) {
		t.Error("tail not preserved; trailing errors must survive truncation")
	}
	if !strings.Contains(got, "chars truncated] ...") {
		t.Errorf("missing elision marker: %q", got[:200])
	}
}

func TestTruncateMarkerReportsOmittedCount(t *testing.T) {
	text := strings.Repeat("x", 31_000)
	got := Truncate(text, 30_000)
	if !strings.Contains(got, "... [1,000 chars truncated] ...") {
		t.Errorf("marker missing or miscounted in %q", got[7_400:7_600])
	}
}

func TestTruncateForUsesPerToolCeiling(t *testing.T) {
	text := strings.Repeat("x", 15_000)

	// ls caps at 10k even when the default is higher.
	if got := TruncateFor("ls", text, 30_000); len(got) >= len(text) {
		t.Error("ls output not truncated at its own ceiling")
	}
	// read allows 30k, so 15k passes through.
	if got := TruncateFor("read", text, 30_000); got != text {
		t.Error("read output truncated below its ceiling")
	}
	// Unknown tools use the configured default.
	if got := TruncateFor("think", text, 10_000); len(got) >= len(text) {
		t.Error("default ceiling not applied to unlisted tool")
	}
}

func TestGroupDigits(t *testing.T) {
	cases := map[int]string{
		0:          "0",
		999:        "999",
		1_000:      "1,000",
		12_345:     "12,345",
		1_234_567:  "1,234,567",
		10_000_000: "10,000,000",
	}
	for n, want := range cases {
		if got := groupDigits(n); got != want {
			t.Errorf("groupDigits(%d) = %q, want %q", n, got, want)
		}
	}
}
