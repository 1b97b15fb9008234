package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/martinemde/nanoagent/bench"
)

var (
	benchTasksDir string
	benchParallel int
	benchDBPath   string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the local benchmark suite",
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().StringVar(&benchTasksDir, "tasks", "", "directory of YAML task files (default: built-in suite)")
	benchCmd.Flags().IntVar(&benchParallel, "parallel", 0, "max concurrent tasks")
	benchCmd.Flags().StringVar(&benchDBPath, "db", "", "SQLite results database path")
}

func runBench(cmd *cobra.Command, _ []string) error {
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

	tasksDir := benchTasksDir
	if tasksDir == "" {
		tasksDir = cfg.Bench.TasksDir
	}
	tasks := bench.BuiltinTasks()
	if tasksDir != "" {
		if tasks, err = bench.LoadTasks(tasksDir); err != nil {
			return err
		}
	}

	parallel := benchParallel
	if parallel <= 0 {
		parallel = cfg.Bench.Parallel
	}
	dbPath := benchDBPath
	if dbPath == "" {
		dbPath = cfg.Bench.DBPath
	}
	store, err := bench.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("Model: %s | Tasks: %d | Parallel: %d\n\n", cfg.Model, len(tasks), parallel)

	runner := bench.NewRunner(client, agentConfig(cfg), parallel, store, log)
	results := runner.RunSuite(cmd.Context(), tasks)

	printBenchReport(results)
	return nil
}

func printBenchReport(results []bench.TaskResult) {
	fmt.Printf("\n%-15s %-15s %-8s %-8s %-8s\n", "ID", "Category", "Status", "Time", "Tokens")
	for _, res := range results {
		status := "FAIL"
		if res.Passed {
			status = "PASS"
		}
		if res.Err != nil {
			status = "ERROR"
		}
		fmt.Printf("%-15s %-15s %-8s %-8s %-8d\n",
			res.Task.ID, res.Task.Category, status,
			fmt.Sprintf("%.1fs", res.Duration.Seconds()), res.Tokens)
	}

	byCategory, passed, total := bench.Summarize(results)
	fmt.Println("\nBy category:")
	for _, cs := range byCategory {
		fmt.Printf("  %s: %d/%d (%.0f%%)\n", cs.Category, cs.Passed, cs.Total, cs.PassRate*100)
	}

	rate := 0.0
	if total > 0 {
		rate = float64(passed) / float64(total)
	}
	fmt.Printf("\nOverall: %d/%d (%.1f%%)", passed, total, rate*100)
	if rate >= bench.PassTarget {
		fmt.Printf(" | meets %.0f%% target\n", bench.PassTarget*100)
	} else {
		fmt.Printf(" | below %.0f%% target\n", bench.PassTarget*100)
	}
}
