// Package agent implements the conversation loop that pairs a language
// model with a small, closed set of developer tools.
//
// A Loop holds one conversation against one sandbox. Each turn it sends the
// full history to the model, executes any requested tool calls in order,
// and feeds the results back until the model stops asking for tools,
// submits, or runs out of budget. Every run ends in one of four ways:
// submitted, end of turn, budget exhausted, or a model-call error.
//
// # Architecture
//
//   - Loop: the orchestrator; owns history, the budget, and the event
//     stream.
//   - Registry: tool registration and dispatch; unknown names and malformed
//     arguments become error results, never panics.
//   - Tool: one capability (read, edit, bash, ...) executing against a
//     sandbox.Sandbox.
//   - Budget: turn, tool-call, and cost ceilings; exhaustion is a reported
//     outcome, not an error.
//   - Profile: system-prompt assembly for local checkouts or containers.
//
// # Quick Start
//
//	sb, _ := sandbox.NewLocal("/path/to/project", log)
//	reg := agent.NewRegistry(agent.CoreTools(agent.DefaultToolConfig(), false)...)
//	loop := agent.New(client, sb, reg, agent.Config{Model: "claude-sonnet-4-5"}, log)
//	defer loop.Close()
//
//	result := loop.Run(ctx, "Fix the failing test in pkg/parser")
//	fmt.Println(result.Reason, result.Artifact)
package agent
