package bench

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/martinemde/nanoagent/agent"
	"github.com/martinemde/nanoagent/sandbox"
)

// PassTarget is the suite-level pass rate the summary reports against.
const PassTarget = 0.70

// TaskResult is the outcome of one task run.
type TaskResult struct {
	Task      Task
	RunID     string
	Passed    bool
	Reason    agent.StopReason
	Turns     int
	ToolCalls int
	Tokens    int
	Cost      float64
	Duration  time.Duration
	Artifact  string
	Err       error
}

// Runner executes benchmark tasks, each in its own throwaway sandbox.
// Tasks run concurrently up to Parallel; runs never share state.
type Runner struct {
	client   agent.Completer
	cfg      agent.Config
	parallel int
	store    *Store
	log      zerolog.Logger
}

// NewRunner creates a runner. The store is optional; nil skips persistence.
func NewRunner(client agent.Completer, cfg agent.Config, parallel int, store *Store, log zerolog.Logger) *Runner {
	if parallel <= 0 {
		parallel = 1
	}
	cfg.Profile = agent.InteractiveProfile()
	return &Runner{
		client:   client,
		cfg:      cfg,
		parallel: parallel,
		store:    store,
		log:      log.With().Str("component", "bench").Logger(),
	}
}

// RunSuite executes all tasks and returns results in task order.
func (r *Runner) RunSuite(ctx context.Context, tasks []Task) []TaskResult {
	results := make([]TaskResult, len(tasks))

	p := pool.New().WithMaxGoroutines(r.parallel)
	for i, task := range tasks {
		i, task := i, task
		p.Go(func() {
			results[i] = r.runTask(ctx, task)
		})
	}
	p.Wait()

	if r.store != nil {
		for _, res := range results {
			run := &Run{
				ID:         res.RunID,
				TaskID:     res.Task.ID,
				Category:   res.Task.Category,
				Model:      r.cfg.Model,
				Passed:     res.Passed,
				Reason:     string(res.Reason),
				Turns:      res.Turns,
				ToolCalls:  res.ToolCalls,
				Tokens:     res.Tokens,
				Cost:       res.Cost,
				DurationMS: res.Duration.Milliseconds(),
				Artifact:   res.Artifact,
			}
			if err := r.store.SaveRun(run); err != nil {
				r.log.Warn().Err(err).Str("task", res.Task.ID).Msg("saving run failed")
			}
		}
	}
	return results
}

func (r *Runner) runTask(ctx context.Context, task Task) TaskResult {
	start := time.Now()
	res := TaskResult{Task: task}

	workDir, err := os.MkdirTemp("", "bench_"+task.ID+"_")
	if err != nil {
		res.Err = fmt.Errorf("creating work dir: %w", err)
		return res
	}
	defer os.RemoveAll(workDir)

	sb, err := sandbox.NewLocal(workDir, r.log)
	if err != nil {
		res.Err = fmt.Errorf("creating sandbox: %w", err)
		return res
	}
	for name, content := range task.Setup {
		if err := sb.WriteFile(name, content); err != nil {
			res.Err = fmt.Errorf("materializing %s: %w", name, err)
			return res
		}
	}

	reg := agent.NewRegistry(agent.CoreTools(agent.DefaultToolConfig(), false)...)
	loop := agent.New(r.client, sb, reg, r.cfg, r.log)
	defer loop.Close()

	r.log.Info().Str("task", task.ID).Str("category", task.Category).Msg("task started")
	outcome := loop.Run(ctx, task.Task)

	res.RunID = loop.ID()
	res.Reason = outcome.Reason
	res.Turns = outcome.Budget.Turns
	res.ToolCalls = outcome.Budget.ToolCalls
	res.Tokens = outcome.Budget.Usage.TotalTokens
	res.Cost = outcome.Budget.Cost
	res.Artifact = outcome.Artifact
	res.Duration = time.Since(start)

	if outcome.Err != nil {
		res.Err = outcome.Err
		r.log.Warn().Err(outcome.Err).Str("task", task.ID).Msg("task errored")
		return res
	}

	passed, err := task.VerifyAll(ctx, sb)
	if err != nil {
		res.Err = err
		return res
	}
	res.Passed = passed
	r.log.Info().
		Str("task", task.ID).
		Bool("passed", passed).
		Dur("duration", res.Duration).
		Int("tool_calls", res.ToolCalls).
		Msg("task finished")
	return res
}

// Summarize aggregates results per category plus an overall count.
func Summarize(results []TaskResult) (byCategory []CategorySummary, passed, total int) {
	byCat := make(map[string]*CategorySummary)
	for _, res := range results {
		total++
		cs, found := byCat[res.Task.Category]
		if !found {
			cs = &CategorySummary{Category: res.Task.Category}
			byCat[res.Task.Category] = cs
		}
		cs.Total++
		if res.Passed {
			cs.Passed++
			passed++
		}
	}
	for _, cs := range byCat {
		if cs.Total > 0 {
			cs.PassRate = float64(cs.Passed) / float64(cs.Total)
		}
		byCategory = append(byCategory, *cs)
	}
	sort.Slice(byCategory, func(i, j int) bool { return byCategory[i].Category < byCategory[j].Category })
	return byCategory, passed, total
}
