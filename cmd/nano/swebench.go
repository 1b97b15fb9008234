package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/martinemde/nanoagent/agent"
	"github.com/martinemde/nanoagent/bench"
)

var (
	swebenchInstances string
	swebenchSlice     string
	swebenchOutput    string
)

var swebenchCmd = &cobra.Command{
	Use:   "swebench",
	Short: "Run SWE-bench instances in Docker containers",
	RunE:  runSwebench,
}

func init() {
	swebenchCmd.Flags().StringVar(&swebenchInstances, "instances", "", "JSON or JSONL file of instances (required)")
	swebenchCmd.Flags().StringVar(&swebenchSlice, "slice", "", "instance slice, e.g. 0:5")
	swebenchCmd.Flags().StringVarP(&swebenchOutput, "output", "o", "", "output directory")
	_ = swebenchCmd.MarkFlagRequired("instances")
}

func runSwebench(cmd *cobra.Command, _ []string) error {
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

	instances, err := bench.LoadInstances(swebenchInstances)
	if err != nil {
		return err
	}
	sliceSpec := swebenchSlice
	if sliceSpec == "" {
		sliceSpec = cfg.Swebench.Slice
	}
	if instances, err = bench.ApplySlice(instances, sliceSpec); err != nil {
		return err
	}
	if len(instances) == 0 {
		return fmt.Errorf("no instances to run")
	}

	outputDir := swebenchOutput
	if outputDir == "" {
		outputDir = cfg.Swebench.OutputDir
	}

	// Container runs get the full tool set including submit.
	loopCfg := agentConfig(cfg)
	loopCfg.Profile = agent.SwebenchProfile()

	fmt.Printf("Model: %s | Instances: %d | Output: %s\n", cfg.Model, len(instances), outputDir)
	runner := bench.NewSwebenchRunner(client, loopCfg, outputDir, log)
	if err := runner.Run(cmd.Context(), instances); err != nil {
		return err
	}
	fmt.Printf("Predictions: %s/preds.json\n", outputDir)
	return nil
}
