package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/martinemde/nanoagent/agent"
	"github.com/martinemde/nanoagent/sandbox"
)

const replHelp = `
Commands:
  /help     Show this help
  /cost     Show token usage
  /clear    Clear conversation
  /model X  Switch model
  /quit     Exit
`

func runREPL(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := setupLogger(cfg)

	client, err := buildClient(cfg, log)
	if err != nil {
		return err
	}
	defer client.Close()

	sb, err := sandbox.NewLocal("", log)
	if err != nil {
		return err
	}

	reg := agent.NewRegistry(agent.CoreTools(agent.DefaultToolConfig(), false)...)
	loop := agent.New(client, sb, reg, agentConfig(cfg), log)
	wait := renderEvents(loop.Events())
	defer func() {
		loop.Close()
		wait()
	}()

	fmt.Printf("nano | %s | /help for commands\n\n", loop.Model())

	// First Ctrl+C warns, second exits.
	var interrupts atomic.Int32
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			if interrupts.Add(1) > 1 {
				fmt.Println("\nExiting...")
				os.Exit(0)
			}
			fmt.Println("\n(Ctrl+C again to exit)")
		}
	}()

	var totalCalls int
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("nano> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		interrupts.Store(0)

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if handleCommand(input, loop, totalCalls) {
				return nil
			}
			continue
		}

		result := loop.Run(cmd.Context(), input)
		totalCalls += result.Budget.ToolCalls
		if result.Err != nil {
			fmt.Printf("Error: %v\n", result.Err)
		}
		fmt.Println()
	}
}

// handleCommand processes one slash command; true means exit.
func handleCommand(input string, loop *agent.Loop, totalCalls int) bool {
	parts := strings.SplitN(input, " ", 2)
	switch strings.ToLower(parts[0]) {
	case "/quit", "/exit", "/q":
		return true
	case "/help":
		fmt.Print(replHelp)
	case "/cost":
		usage := loop.TotalUsage()
		fmt.Printf("Tokens: %d | Tool calls: %d | Cost: $%.4f\n",
			usage.TotalTokens, totalCalls, loop.TotalCost())
	case "/clear":
		loop.Clear()
		fmt.Println("Cleared")
	case "/model":
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			loop.SetModel(strings.TrimSpace(parts[1]))
			fmt.Printf("Model: %s\n", loop.Model())
		} else {
			fmt.Printf("Current: %s\n", loop.Model())
		}
	default:
		fmt.Printf("Unknown: %s. Type /help\n", parts[0])
	}
	return false
}
