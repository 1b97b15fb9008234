package agent

import "github.com/martinemde/nanoagent/llm"

// Budget defaults, matching the historical tool limits.
const (
	DefaultMaxTurns      = 50
	DefaultMaxToolCalls  = 50
	DefaultWarningMargin = 5
)

// Budget tracks the ceilings and consumed counters for exactly one run.
// Counters only ever grow; remaining budget is never replenished. A zero
// ceiling means unlimited.
type Budget struct {
	MaxTurns      int
	MaxToolCalls  int
	MaxCost       float64
	WarningMargin int

	turns     int
	toolCalls int
	usage     llm.Usage
	cost      float64
}

// NewBudget creates a budget with zero ceilings replaced by defaults.
func NewBudget(maxTurns, maxToolCalls int, maxCost float64, warningMargin int) *Budget {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if maxToolCalls <= 0 {
		maxToolCalls = DefaultMaxToolCalls
	}
	if warningMargin <= 0 {
		warningMargin = DefaultWarningMargin
	}
	return &Budget{
		MaxTurns:      maxTurns,
		MaxToolCalls:  maxToolCalls,
		MaxCost:       maxCost,
		WarningMargin: warningMargin,
	}
}

// TurnAllowed reports whether another model call fits the budget.
func (b *Budget) TurnAllowed() bool {
	if b.turns >= b.MaxTurns {
		return false
	}
	if b.MaxCost > 0 && b.cost >= b.MaxCost {
		return false
	}
	return true
}

// ConsumeTurn records one model call.
func (b *Budget) ConsumeTurn() { b.turns++ }

// ToolCallAllowed reports whether another tool dispatch fits the budget.
func (b *Budget) ToolCallAllowed() bool { return b.toolCalls < b.MaxToolCalls }

// ConsumeToolCall records one tool dispatch and returns the remaining count.
func (b *Budget) ConsumeToolCall() int {
	b.toolCalls++
	return b.MaxToolCalls - b.toolCalls
}

// NearLimit reports whether the remaining tool-call budget is within the
// warning margin.
func (b *Budget) NearLimit() bool {
	return b.MaxToolCalls-b.toolCalls <= b.WarningMargin
}

// AddUsage accumulates token usage and its dollar cost at the model's
// catalog prices. A nil model info costs zero; that is a known precision
// gap, not an error.
func (b *Budget) AddUsage(u llm.Usage, info *llm.ModelInfo) {
	b.usage = b.usage.Add(u)
	b.cost += info.CostFor(u)
}

// Snapshot is the read-only view of consumed budget, reported in Result.
type Snapshot struct {
	Turns     int       `json:"turns"`
	ToolCalls int       `json:"tool_calls"`
	Usage     llm.Usage `json:"usage"`
	Cost      float64   `json:"cost"`
}

// Snapshot returns the current consumed counters.
func (b *Budget) Snapshot() Snapshot {
	return Snapshot{
		Turns:     b.turns,
		ToolCalls: b.toolCalls,
		Usage:     b.usage,
		Cost:      b.cost,
	}
}
