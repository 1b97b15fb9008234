package llm

import "testing"

func TestGetModelInfo(t *testing.T) {
	// By exact ID.
	info := GetModelInfo("claude-sonnet-4-5")
	if info == nil {
		t.Fatal("expected to find claude-sonnet-4-5")
	}
	if info.Provider != "anthropic" {
		t.Errorf("expected provider %q, got %q", "anthropic", info.Provider)
	}
	if info.ContextWindow != 200000 {
		t.Errorf("expected context window 200000, got %d", info.ContextWindow)
	}
	if !info.SupportsTools {
		t.Error("expected supports_tools = true")
	}

	// By alias.
	info = GetModelInfo("sonnet")
	if info == nil {
		t.Fatal("expected to find model by alias 'sonnet'")
	}
	if info.ID != "claude-sonnet-4-5" {
		t.Errorf("expected id %q, got %q", "claude-sonnet-4-5", info.ID)
	}

	info = GetModelInfo("opus")
	if info == nil {
		t.Fatal("expected to find model by alias 'opus'")
	}
	if info.ID != "claude-opus-4-6" {
		t.Errorf("expected id %q, got %q", "claude-opus-4-6", info.ID)
	}

	// Unknown model.
	if info = GetModelInfo("nonexistent-model"); info != nil {
		t.Errorf("expected nil for unknown model, got %v", info)
	}
}

func TestListModels(t *testing.T) {
	all := ListModels("")
	if len(all) != len(Models) {
		t.Errorf("expected %d models, got %d", len(Models), len(all))
	}

	anthropic := ListModels("anthropic")
	if len(anthropic) != 2 {
		t.Errorf("expected 2 Anthropic models, got %d", len(anthropic))
	}
	for _, m := range anthropic {
		if m.Provider != "anthropic" {
			t.Errorf("expected provider anthropic, got %q", m.Provider)
		}
	}

	gemini := ListModels("gemini")
	if len(gemini) != 2 {
		t.Errorf("expected 2 Gemini models, got %d", len(gemini))
	}

	if unknown := ListModels("no-such-provider"); len(unknown) != 0 {
		t.Errorf("expected 0 models for unknown provider, got %d", len(unknown))
	}
}

func TestDefaultModel(t *testing.T) {
	tests := []struct {
		provider string
		expected string
	}{
		{"anthropic", "claude-opus-4-6"},
		{"openai", "gpt-5.2"},
		{"gemini", "gemini-3-pro-preview"},
	}
	for _, tt := range tests {
		info := DefaultModel(tt.provider)
		if info == nil {
			t.Fatalf("expected default model for %q", tt.provider)
		}
		if info.ID != tt.expected {
			t.Errorf("provider %q: expected %q, got %q", tt.provider, tt.expected, info.ID)
		}
	}

	if info := DefaultModel("no-such-provider"); info != nil {
		t.Errorf("expected nil for unknown provider, got %v", info)
	}
}

func TestCostFor(t *testing.T) {
	info := GetModelInfo("claude-sonnet-4-5")
	if info == nil {
		t.Fatal("expected to find claude-sonnet-4-5")
	}

	// 1M input at $3 + 1M output at $15.
	cost := info.CostFor(Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000})
	if cost != 18.0 {
		t.Errorf("expected cost 18.0, got %f", cost)
	}

	cost = info.CostFor(Usage{InputTokens: 100_000, OutputTokens: 10_000})
	expected := float64(100_000)/1e6*3.0 + float64(10_000)/1e6*15.0
	if cost != expected {
		t.Errorf("expected cost %f, got %f", expected, cost)
	}

	// Nil receiver and unpriced models cost zero.
	var nilInfo *ModelInfo
	if got := nilInfo.CostFor(Usage{InputTokens: 1000}); got != 0 {
		t.Errorf("expected zero cost for nil model, got %f", got)
	}
	unpriced := &ModelInfo{ID: "custom"}
	if got := unpriced.CostFor(Usage{InputTokens: 1000, OutputTokens: 1000}); got != 0 {
		t.Errorf("expected zero cost for unpriced model, got %f", got)
	}
}
