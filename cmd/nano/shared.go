package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/martinemde/nanoagent/agent"
	"github.com/martinemde/nanoagent/config"
	"github.com/martinemde/nanoagent/llm"
)

// loadConfig resolves configuration, with the --model flag taking priority
// over file and environment values.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	return cfg, nil
}

func setupLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// buildClient registers every provider an API key is configured for.
func buildClient(cfg *config.Config, log zerolog.Logger) (*llm.Client, error) {
	client := llm.NewClient(llm.WithMiddleware(llm.RequestLogger(log)))

	registered := 0
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		adapter, err := llm.NewAnthropicAdapter(llm.AnthropicConfig{
			APIKey:  key,
			BaseURL: os.Getenv("ANTHROPIC_BASE_URL"),
		})
		if err != nil {
			return nil, err
		}
		client.RegisterProvider("anthropic", adapter)
		registered++
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		adapter, err := llm.NewGollmAdapter("openai", key)
		if err != nil {
			return nil, err
		}
		client.RegisterProvider("openai", adapter)
		registered++
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		adapter, err := llm.NewGollmAdapter("gemini", key)
		if err != nil {
			return nil, err
		}
		client.RegisterProvider("gemini", adapter)
		registered++
	}
	if registered == 0 {
		return nil, fmt.Errorf("no API keys configured; set ANTHROPIC_API_KEY, OPENAI_API_KEY, or GEMINI_API_KEY")
	}
	return client, nil
}

func agentConfig(cfg *config.Config) agent.Config {
	return agent.Config{
		Model:         cfg.Model,
		Provider:      cfg.Provider,
		MaxTurns:      cfg.Agent.MaxTurns,
		MaxToolCalls:  cfg.Agent.MaxToolCalls,
		MaxCost:       cfg.Agent.MaxCost,
		WarningMargin: cfg.Agent.WarningMargin,
		TruncateChars: cfg.Agent.TruncateChars,
	}
}

// renderEvents prints the loop's event stream until the channel closes.
// The returned function blocks until rendering has drained.
func renderEvents(events <-chan agent.Event) func() {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for event := range events {
			switch event.Kind {
			case agent.EventAssistantText:
				if text, ok := event.Data["text"].(string); ok {
					fmt.Println(text)
				}
			case agent.EventToolStarted:
				if tool, ok := event.Data["tool"].(string); ok {
					fmt.Printf("→ %s\n", tool)
				}
			case agent.EventBudgetWarning:
				if remaining, ok := event.Data["remaining"].(int); ok {
					fmt.Printf("Warning: %d tool calls remaining.\n", remaining)
				}
			}
		}
	}()
	return wg.Wait
}
