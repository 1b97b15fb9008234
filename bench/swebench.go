package bench

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/martinemde/nanoagent/agent"
	"github.com/martinemde/nanoagent/sandbox"
)

// Instance is one SWE-bench problem.
type Instance struct {
	InstanceID       string `json:"instance_id"`
	ProblemStatement string `json:"problem_statement"`
	Repo             string `json:"repo,omitempty"`
	BaseCommit       string `json:"base_commit,omitempty"`
	ImageName        string `json:"image_name,omitempty"`
}

// Prediction is the per-instance entry in preds.json, keyed by instance ID.
type Prediction struct {
	ModelNameOrPath string `json:"model_name_or_path"`
	InstanceID      string `json:"instance_id"`
	ModelPatch      string `json:"model_patch"`
}

// InstanceResult is the full per-instance record written next to the
// trajectory.
type InstanceResult struct {
	InstanceID      string  `json:"instance_id"`
	ModelNameOrPath string  `json:"model_name_or_path"`
	ModelPatch      string  `json:"model_patch"`
	ExitStatus      string  `json:"exit_status"`
	Cost            float64 `json:"cost"`
	ToolCalls       int     `json:"tool_calls"`
	TimeSeconds     float64 `json:"time"`
}

// ImageName maps an instance to its evaluation image. Docker rejects double
// underscores in repository names, so they become the "_1776_" marker.
func ImageName(inst Instance) string {
	if inst.ImageName != "" {
		return inst.ImageName
	}
	id := strings.ReplaceAll(inst.InstanceID, "__", "_1776_")
	return strings.ToLower(fmt.Sprintf("docker.io/swebench/sweb.eval.x86_64.%s:latest", id))
}

// LoadInstances reads instances from a JSON array or JSONL file.
func LoadInstances(path string) ([]Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading instances file: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var instances []Instance
		if err := json.Unmarshal(data, &instances); err != nil {
			return nil, fmt.Errorf("parsing instances: %w", err)
		}
		return instances, nil
	}

	var instances []Instance
	scanner := bufio.NewScanner(strings.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var inst Instance
		if err := json.Unmarshal([]byte(line), &inst); err != nil {
			return nil, fmt.Errorf("parsing instance line: %w", err)
		}
		instances = append(instances, inst)
	}
	return instances, scanner.Err()
}

// ApplySlice cuts instances by a "start:end" spec; either side may be
// empty ("0:5", ":5", "3:").
func ApplySlice(instances []Instance, spec string) ([]Instance, error) {
	if spec == "" {
		return instances, nil
	}
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid slice spec %q", spec)
	}

	start, end := 0, len(instances)
	var err error
	if parts[0] != "" {
		if start, err = strconv.Atoi(parts[0]); err != nil {
			return nil, fmt.Errorf("invalid slice start %q", parts[0])
		}
	}
	if parts[1] != "" {
		if end, err = strconv.Atoi(parts[1]); err != nil {
			return nil, fmt.Errorf("invalid slice end %q", parts[1])
		}
	}
	if start < 0 {
		start = 0
	}
	if end > len(instances) {
		end = len(instances)
	}
	if start >= end {
		return nil, nil
	}
	return instances[start:end], nil
}

// SwebenchRunner drives the agent against SWE-bench instances, one
// container per instance.
type SwebenchRunner struct {
	client    agent.Completer
	cfg       agent.Config
	outputDir string
	log       zerolog.Logger
}

// NewSwebenchRunner creates a runner writing trajectories and predictions
// under outputDir.
func NewSwebenchRunner(client agent.Completer, cfg agent.Config, outputDir string, log zerolog.Logger) *SwebenchRunner {
	cfg.Profile = agent.SwebenchProfile()
	return &SwebenchRunner{
		client:    client,
		cfg:       cfg,
		outputDir: outputDir,
		log:       log.With().Str("component", "swebench").Logger(),
	}
}

// Run processes instances sequentially, skipping any already present in
// preds.json so interrupted runs resume where they stopped.
func (r *SwebenchRunner) Run(ctx context.Context, instances []Instance) error {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	preds, err := r.loadPredictions()
	if err != nil {
		return err
	}
	var pending []Instance
	for _, inst := range instances {
		if _, done := preds[inst.InstanceID]; !done {
			pending = append(pending, inst)
		}
	}
	r.log.Info().
		Int("total", len(instances)).
		Int("already_predicted", len(instances)-len(pending)).
		Int("pending", len(pending)).
		Msg("starting swebench run")

	for i, inst := range pending {
		r.log.Info().
			Str("instance", inst.InstanceID).
			Int("index", i+1).
			Int("of", len(pending)).
			Msg("instance started")

		result := r.runInstance(ctx, inst)
		if err := r.saveInstanceResult(result); err != nil {
			r.log.Warn().Err(err).Str("instance", inst.InstanceID).Msg("saving result failed")
		}

		preds[result.InstanceID] = Prediction{
			ModelNameOrPath: result.ModelNameOrPath,
			InstanceID:      result.InstanceID,
			ModelPatch:      result.ModelPatch,
		}
		if err := r.savePredictions(preds); err != nil {
			return fmt.Errorf("updating preds.json: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (r *SwebenchRunner) runInstance(ctx context.Context, inst Instance) InstanceResult {
	start := time.Now()
	result := InstanceResult{
		InstanceID:      inst.InstanceID,
		ModelNameOrPath: r.cfg.Model,
		ExitStatus:      "Error",
	}
	defer func() { result.TimeSeconds = time.Since(start).Seconds() }()

	image := ImageName(inst)
	r.log.Info().Str("image", image).Msg("pulling image")
	if err := sandbox.Pull(ctx, image); err != nil {
		r.log.Warn().Err(err).Msg("pull failed; the image may be cached locally")
	}

	sb, err := sandbox.StartDocker(ctx, image, r.log)
	if err != nil {
		result.ExitStatus = fmt.Sprintf("Error: %v", err)
		return result
	}
	defer sb.Close(context.Background())

	reg := agent.NewRegistry(agent.CoreTools(agent.DefaultToolConfig(), true)...)
	loop := agent.New(r.client, sb, reg, r.cfg, r.log)
	defer loop.Close()

	outcome := loop.Run(ctx, inst.ProblemStatement)
	// The artifact falls back to assistant text when nothing changed;
	// predictions carry only real patches.
	if strings.HasPrefix(outcome.Artifact, "diff --git") {
		result.ModelPatch = outcome.Artifact
	}
	result.Cost = outcome.Budget.Cost
	result.ToolCalls = outcome.Budget.ToolCalls

	switch outcome.Reason {
	case agent.StopSubmitted:
		result.ExitStatus = "Submitted"
	case agent.StopEndTurn:
		result.ExitStatus = "EndTurn"
	case agent.StopMaxTurns:
		result.ExitStatus = "MaxTurnsExceeded"
	case agent.StopError:
		result.ExitStatus = fmt.Sprintf("Error: %v", outcome.Err)
	}

	r.log.Info().
		Str("instance", inst.InstanceID).
		Str("status", result.ExitStatus).
		Int("tool_calls", result.ToolCalls).
		Float64("cost", result.Cost).
		Int("patch_chars", len(result.ModelPatch)).
		Msg("instance finished")
	return result
}

func (r *SwebenchRunner) predsPath() string {
	return filepath.Join(r.outputDir, "preds.json")
}

func (r *SwebenchRunner) loadPredictions() (map[string]Prediction, error) {
	data, err := os.ReadFile(r.predsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]Prediction), nil
		}
		return nil, fmt.Errorf("reading preds.json: %w", err)
	}
	preds := make(map[string]Prediction)
	if err := json.Unmarshal(data, &preds); err != nil {
		return nil, fmt.Errorf("parsing preds.json: %w", err)
	}
	return preds, nil
}

func (r *SwebenchRunner) savePredictions(preds map[string]Prediction) error {
	data, err := json.MarshalIndent(preds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.predsPath(), data, 0644)
}

func (r *SwebenchRunner) saveInstanceResult(result InstanceResult) error {
	dir := filepath.Join(r.outputDir, result.InstanceID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, result.InstanceID+".result.json"), data, 0644)
}
