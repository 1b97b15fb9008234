// Package llm provides the completion client the agent loop talks to: a
// provider-agnostic interface over chat-completion endpoints with tool
// calling.
//
// # Architecture
//
//   - ProviderAdapter: the per-provider backend contract (Complete only;
//     the agent prints after each completion, so there is no streaming)
//   - AnthropicAdapter: a native Messages API adapter over HTTP
//   - GollmAdapter: wraps gollm for every other provider
//   - Client: provider routing plus middleware
//
// # Quick Start
//
//	adapter, _ := llm.NewAnthropicAdapter(llm.AnthropicConfig{APIKey: key})
//	client := llm.NewClient(llm.WithProvider("anthropic", adapter))
//
//	resp, err := client.Complete(ctx, llm.Request{
//	    Model:    "claude-sonnet-4-5",
//	    Messages: []llm.Message{llm.UserMessage("Hello")},
//	})
//
// Any transport or API failure surfaces as a typed error (ProviderError and
// friends); callers decide policy. The agent loop treats every one of them
// as fatal for the run.
//
// # Model Catalog
//
// A built-in catalog of known models carries context windows and per-token
// pricing; the loop's budget accounting uses CostFor to turn usage into
// dollars:
//
//	info := llm.GetModelInfo("claude-sonnet-4-5")
//	cost := info.CostFor(resp.Usage)
package llm
