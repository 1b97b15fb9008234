package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/martinemde/nanoagent/llm"
	"github.com/martinemde/nanoagent/sandbox"
)

// StopReason is the closed set of ways a run ends.
type StopReason string

const (
	StopSubmitted StopReason = "submitted"
	StopEndTurn   StopReason = "end_turn"
	StopMaxTurns  StopReason = "max_turns_exceeded"
	StopError     StopReason = "error"
)

// Result is the outcome of one run. Artifact is the sandbox diff when the
// run changed anything, otherwise the final assistant text. Running out of
// budget is a deliberate outcome, not a failure: Err is set only for
// StopError.
type Result struct {
	Reason    StopReason
	Artifact  string
	FinalText string
	Err       error
	Budget    Snapshot
}

// Completer is the slice of the model client the loop needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Config holds the per-loop knobs. Zero values fall back to defaults.
type Config struct {
	Model         string
	Provider      string
	MaxTurns      int
	MaxToolCalls  int
	MaxCost       float64
	WarningMargin int
	TruncateChars int
	Profile       Profile
}

func (c *Config) applyDefaults() {
	if c.MaxTurns <= 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	if c.MaxToolCalls <= 0 {
		c.MaxToolCalls = DefaultMaxToolCalls
	}
	if c.WarningMargin <= 0 {
		c.WarningMargin = DefaultWarningMargin
	}
	if c.TruncateChars <= 0 {
		c.TruncateChars = DefaultTruncateChars
	}
	if c.Model == "" {
		if info := llm.DefaultModel("anthropic"); info != nil {
			c.Model = info.ID
		}
	}
	if c.Profile.System == nil {
		c.Profile = InteractiveProfile()
	}
}

// Loop drives one conversation against one sandbox. History persists across
// Run calls so an interactive session keeps its context; Clear resets it.
type Loop struct {
	id       string
	client   Completer
	sb       sandbox.Sandbox
	registry *Registry
	cfg      Config
	emitter  *Emitter
	repeats  repeatTracker
	log      zerolog.Logger

	modelInfo *llm.ModelInfo
	history   []llm.Message

	totalUsage llm.Usage
	totalCost  float64
}

// New builds a Loop. The registry's definitions are sent to the model on
// every call; the sandbox receives every dispatch.
func New(client Completer, sb sandbox.Sandbox, registry *Registry, cfg Config, log zerolog.Logger) *Loop {
	cfg.applyDefaults()
	id := uuid.NewString()
	return &Loop{
		id:        id,
		client:    client,
		sb:        sb,
		registry:  registry,
		cfg:       cfg,
		emitter:   NewEmitter(id, 0),
		log:       log.With().Str("run_id", id).Logger(),
		modelInfo: llm.GetModelInfo(cfg.Model),
	}
}

// ID returns the run identifier.
func (l *Loop) ID() string { return l.id }

// Events returns the lifecycle event stream.
func (l *Loop) Events() <-chan Event { return l.emitter.Events() }

// Close releases the event stream.
func (l *Loop) Close() { l.emitter.Close() }

// TotalUsage reports token consumption across all runs of this loop.
func (l *Loop) TotalUsage() llm.Usage { return l.totalUsage }

// TotalCost reports accumulated model cost in dollars across all runs.
func (l *Loop) TotalCost() float64 { return l.totalCost }

// Model returns the model the next Run will use.
func (l *Loop) Model() string { return l.cfg.Model }

// SetModel switches the model for subsequent runs. History is kept.
func (l *Loop) SetModel(model string) {
	l.cfg.Model = model
	l.modelInfo = llm.GetModelInfo(model)
}

// Clear drops conversation history. The next Run reseeds the system prompt.
func (l *Loop) Clear() {
	l.history = nil
	l.repeats.Reset()
}

// Run executes one task to termination. The turn and tool-call budgets are
// fresh per run; history and accumulated cost carry over.
func (l *Loop) Run(ctx context.Context, task string) *Result {
	budget := NewBudget(l.cfg.MaxTurns, l.cfg.MaxToolCalls, l.cfg.MaxCost, l.cfg.WarningMargin)

	if len(l.history) == 0 {
		system := l.cfg.Profile.System(ctx, l.sb, l.registry)
		l.history = append(l.history, llm.SystemMessage(system))
	}
	l.history = append(l.history, llm.UserMessage(l.cfg.Profile.WrapTask(task)))

	l.emitter.Emit(EventRunStarted, map[string]interface{}{"task": task, "model": l.cfg.Model})

	var finalText string
	for {
		// Budget gate before every model call. An exhausted tool-call
		// budget also ends the run here: another model turn could only
		// produce calls that would be refused.
		if !budget.TurnAllowed() || !budget.ToolCallAllowed() {
			l.log.Info().Int("turns", budget.Snapshot().Turns).Msg("turn budget exhausted")
			return l.finish(ctx, StopMaxTurns, l.diff(ctx), finalText, nil, budget)
		}
		budget.ConsumeTurn()
		l.emitter.Emit(EventTurnStarted, map[string]interface{}{"turn": budget.Snapshot().Turns})

		resp, err := l.client.Complete(ctx, llm.Request{
			Model:    l.cfg.Model,
			Provider: l.cfg.Provider,
			Messages: l.history,
			Tools:    l.registry.Definitions(),
		})
		if err != nil {
			// Transport and provider errors are fatal for the run.
			l.log.Error().Err(err).Msg("model call failed")
			return l.finish(ctx, StopError, "", finalText, err, budget)
		}
		budget.AddUsage(resp.Usage, l.modelInfo)
		l.totalUsage = l.totalUsage.Add(resp.Usage)
		if l.modelInfo != nil {
			l.totalCost += l.modelInfo.CostFor(resp.Usage)
		}

		l.history = append(l.history, resp.Message)
		if text := resp.Text(); text != "" {
			finalText = text
			l.emitter.Emit(EventAssistantText, map[string]interface{}{"text": text})
		}

		calls := resp.ToolCallsFromResponse()
		if len(calls) == 0 {
			artifact := l.diff(ctx)
			if artifact == "" {
				artifact = finalText
			}
			return l.finish(ctx, StopEndTurn, artifact, finalText, nil, budget)
		}

		submitted := false
		var submitDiff string
		for _, call := range calls {
			if !budget.ToolCallAllowed() {
				l.history = append(l.history, llm.ToolResultMessage(call.ID, "Error: tool call budget exhausted", true))
				continue
			}
			remaining := budget.ConsumeToolCall()

			l.emitter.Emit(EventToolStarted, map[string]interface{}{"tool": call.Name})
			outcome := l.registry.Dispatch(ctx, call, l.sb)
			text := TruncateFor(call.Name, outcome.Render(), l.cfg.TruncateChars)
			if l.repeats.Observe(call.Name, call.Arguments) {
				text += repeatNudge
			}
			l.emitter.Emit(EventToolFinished, map[string]interface{}{
				"tool":  call.Name,
				"error": outcome.IsError(),
			})

			// Submit marks the run done; the rest of the batch still runs,
			// but the diff is captured at this instant.
			if call.Name == SubmitToolName && !outcome.IsError() {
				submitted = true
				submitDiff = l.diff(ctx)
			}

			if remaining <= l.cfg.WarningMargin {
				text += fmt.Sprintf("\n\nWarning: %d tool calls remaining.", remaining)
				l.emitter.Emit(EventBudgetWarning, map[string]interface{}{"remaining": remaining})
			}
			l.history = append(l.history, llm.ToolResultMessage(call.ID, text, outcome.IsError()))
		}

		if submitted {
			artifact := submitDiff
			if artifact == "" {
				artifact = finalText
			}
			return l.finish(ctx, StopSubmitted, artifact, finalText, nil, budget)
		}
	}
}

func (l *Loop) finish(ctx context.Context, reason StopReason, artifact, finalText string, err error, budget *Budget) *Result {
	snap := budget.Snapshot()
	l.emitter.Emit(EventRunFinished, map[string]interface{}{
		"reason":     string(reason),
		"turns":      snap.Turns,
		"tool_calls": snap.ToolCalls,
		"cost":       snap.Cost,
	})
	l.log.Info().
		Str("reason", string(reason)).
		Int("turns", snap.Turns).
		Int("tool_calls", snap.ToolCalls).
		Float64("cost", snap.Cost).
		Msg("run finished")
	return &Result{
		Reason:    reason,
		Artifact:  artifact,
		FinalText: finalText,
		Err:       err,
		Budget:    snap,
	}
}

// diff is best effort: an environment without version control reports an
// empty artifact rather than an error.
func (l *Loop) diff(ctx context.Context) string {
	out, err := l.sb.Diff(ctx)
	if err != nil {
		return ""
	}
	return out
}
