package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/martinemde/nanoagent/llm"
)

func TestRegistryPreservesOrder(t *testing.T) {
	reg := NewRegistry(CoreTools(DefaultToolConfig(), true)...)

	names := reg.Names()
	if len(names) != 16 {
		t.Fatalf("expected 16 tools, got %d: %v", len(names), names)
	}
	if names[0] != "read" {
		t.Errorf("first tool = %q, want read", names[0])
	}
	if names[len(names)-1] != "submit" {
		t.Errorf("last tool = %q, want submit", names[len(names)-1])
	}
}

func TestRegistryWithoutSubmit(t *testing.T) {
	reg := NewRegistry(CoreTools(DefaultToolConfig(), false)...)

	for _, name := range reg.Names() {
		if name == SubmitToolName {
			t.Fatal("submit registered in interactive tool set")
		}
	}
	if len(reg.Names()) != 15 {
		t.Errorf("expected 15 tools, got %d", len(reg.Names()))
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	reg := NewRegistry(CoreTools(DefaultToolConfig(), true)...)

	out := reg.Dispatch(context.Background(), llm.ToolCall{ID: "c1", Name: "fly"}, newMemSandbox(nil))
	if !out.IsError() {
		t.Fatal("expected error outcome")
	}
	if out.Render() != "Unknown tool: fly" {
		t.Errorf("unexpected message: %q", out.Render())
	}
}

func TestDispatchInvalidJSON(t *testing.T) {
	reg := NewRegistry(CoreTools(DefaultToolConfig(), true)...)

	call := llm.ToolCall{ID: "c1", Name: "read", Arguments: json.RawMessage(`{"path": `)}
	out := reg.Dispatch(context.Background(), call, newMemSandbox(nil))
	if !out.IsError() {
		t.Fatal("expected error outcome")
	}
	if out.Render() != "Invalid JSON arguments" {
		t.Errorf("unexpected message: %q", out.Render())
	}
}

func TestDispatchEmptyArguments(t *testing.T) {
	reg := NewRegistry(CoreTools(DefaultToolConfig(), true)...)

	// A call with no arguments decodes as an empty object.
	out := reg.Dispatch(context.Background(), llm.ToolCall{ID: "c1", Name: "ls"}, newMemSandbox(nil))
	if out.IsError() {
		t.Fatalf("unexpected error: %s", out.Render())
	}
}

func TestDefinitionsMatchNames(t *testing.T) {
	reg := NewRegistry(CoreTools(DefaultToolConfig(), true)...)

	defs := reg.Definitions()
	names := reg.Names()
	for i, def := range defs {
		if def.Name != names[i] {
			t.Errorf("definition %d = %q, names %d = %q", i, def.Name, i, names[i])
		}
		if def.Parameters["type"] != "object" {
			t.Errorf("%s schema type = %v", def.Name, def.Parameters["type"])
		}
	}
}
