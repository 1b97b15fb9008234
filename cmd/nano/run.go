package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/martinemde/nanoagent/agent"
	"github.com/martinemde/nanoagent/sandbox"
)

var runCmd = &cobra.Command{
	Use:   "run task...",
	Short: "Run one task against the current directory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTask,
}

func runTask(cmd *cobra.Command, args []string) error {
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
	result := loop.Run(cmd.Context(), strings.Join(args, " "))
	loop.Close()
	wait()

	if result.Err != nil {
		return result.Err
	}
	if result.Reason == agent.StopMaxTurns {
		fmt.Println("Stopped: turn budget exhausted.")
	}
	return nil
}
