package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/martinemde/nanoagent/retry"
)

const dockerWorkdir = "/testbed"

// Docker drives one pre-provisioned container exclusively owned by one run.
// Every operation is a shell command executed inside the container; the
// final artifact is the git diff of the working tree.
type Docker struct {
	dockerBin   string
	containerID string
	name        string
	workdir     string
	log         zerolog.Logger
}

// findDocker locates the docker binary, checking PATH first and then
// well-known install locations.
func findDocker() string {
	if p, err := exec.LookPath("docker"); err == nil {
		return p
	}
	candidates := []string{
		"/Applications/Docker.app/Contents/Resources/bin/docker",
		"/usr/local/bin/docker",
		"/opt/homebrew/bin/docker",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return "docker"
}

// isRetryableDockerError reports whether a failed container start is worth
// another attempt. Missing images are permanent; daemon hiccups are not.
func isRetryableDockerError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "no such image") || strings.Contains(msg, "not found") ||
		strings.Contains(msg, "manifest unknown") {
		return false
	}
	return true
}

// StartDocker starts a fresh container from image and blocks until it is
// ready. The container sleeps until Close stops it; every tool operation is
// a docker exec against it. Start is retried on transient daemon failures.
func StartDocker(ctx context.Context, image string, log zerolog.Logger) (*Docker, error) {
	d := &Docker{
		dockerBin: findDocker(),
		name:      "nano-" + uuid.New().String()[:8],
		workdir:   dockerWorkdir,
	}
	d.log = log.With().Str("component", "sandbox").Str("container", d.name).Logger()

	policy := retry.DefaultPolicy()
	policy.Retryable = isRetryableDockerError
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		d.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("container start failed, retrying")
	}

	id, err := retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		cmd := exec.CommandContext(ctx, d.dockerBin,
			"run", "-d", "--name", d.name, "-w", d.workdir, "--rm", image, "sleep", "4h")
		output, err := cmd.CombinedOutput()
		if err != nil {
			return "", fmt.Errorf("starting container: %w\noutput: %s", err, strings.TrimSpace(string(output)))
		}
		return strings.TrimSpace(string(output)), nil
	})
	if err != nil {
		return nil, err
	}
	d.containerID = id

	// Readiness probe; the container must accept execs before the run starts.
	if _, err := d.execCollect(ctx, "true", 30*time.Second); err != nil {
		_ = d.Close(ctx)
		return nil, fmt.Errorf("container not ready: %w", err)
	}

	d.log.Info().Str("image", image).Str("id", shortID(id)).Msg("container started")
	return d, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// ContainerID returns the opaque container identifier.
func (d *Docker) ContainerID() string { return d.containerID }

func (d *Docker) WorkingDir() string { return d.workdir }

func (d *Docker) Platform() string { return "linux (container)" }

// execCollect runs a shell command in the container and returns combined
// output, with a non-nil error only on non-zero exit or exec failure.
func (d *Docker) execCollect(ctx context.Context, command string, timeout time.Duration) (string, error) {
	result, err := d.Exec(ctx, command, timeout)
	if err != nil {
		return "", err
	}
	if result.TimedOut {
		return result.Output, fmt.Errorf("Timeout after %ds", int(timeout.Seconds()))
	}
	if result.ExitCode != 0 {
		return result.Output, fmt.Errorf("exit %d: %s", result.ExitCode, strings.TrimSpace(result.Output))
	}
	return result.Output, nil
}

func (d *Docker) Exec(ctx context.Context, command string, timeout time.Duration) (*ExecResult, error) {
	return d.execStdin(ctx, command, "", timeout)
}

func (d *Docker) execStdin(ctx context.Context, command, stdin string, timeout time.Duration) (*ExecResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := []string{"exec"}
	if stdin != "" {
		args = append(args, "-i")
	}
	args = append(args, d.containerID, "bash", "-c", command)
	cmd := exec.CommandContext(ctx, d.dockerBin, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	result := &ExecResult{Output: buf.String()}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			result.TimedOut = true
			result.ExitCode = -1
			return result, nil
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("docker exec: %w", err)
	}
	return result, nil
}

func (d *Docker) ReadFile(path string) (string, error) {
	out, err := d.execCollect(context.Background(), fmt.Sprintf("cat %s", shellQuote(path)), 60*time.Second)
	if err != nil {
		// Distinguish a missing file from other cat failures so callers
		// see the same precondition as the local sandbox.
		if !d.FileExists(path) {
			return "", fmt.Errorf("%s: %w", path, fs.ErrNotExist)
		}
		return "", err
	}
	return out, nil
}

func (d *Docker) WriteFile(path, content string) error {
	dir := path
	if idx := strings.LastIndex(path, "/"); idx > 0 {
		dir = path[:idx]
	} else {
		dir = "."
	}
	command := fmt.Sprintf("mkdir -p %s && cat > %s", shellQuote(dir), shellQuote(path))
	result, err := d.execStdin(context.Background(), command, content, 60*time.Second)
	if err != nil {
		return err
	}
	if result.TimedOut || result.ExitCode != 0 {
		return fmt.Errorf("writing %s: %s", path, strings.TrimSpace(result.Output))
	}
	return nil
}

func (d *Docker) FileExists(path string) bool {
	_, err := d.execCollect(context.Background(), fmt.Sprintf("test -e %s", shellQuote(path)), 30*time.Second)
	return err == nil
}

func (d *Docker) ListDir(path string) ([]Entry, error) {
	if path == "" {
		path = "."
	}
	out, err := d.execCollect(context.Background(),
		fmt.Sprintf("cd %s && for f in * .[!.]*; do [ -e \"$f\" ] || continue; if [ -d \"$f\" ]; then echo \"d 0 $f\"; else echo \"f $(stat -c %%s \"$f\" 2>/dev/null || echo 0) $f\"; fi; done", shellQuote(path)),
		60*time.Second)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.SplitN(line, " ", 3)
		if len(fields) != 3 {
			continue
		}
		e := Entry{Name: fields[2], IsDir: fields[0] == "d"}
		fmt.Sscanf(fields[1], "%d", &e.Size)
		entries = append(entries, e)
	}
	return entries, nil
}

func (d *Docker) Glob(pattern, path string) ([]Entry, error) {
	if path == "" {
		path = "."
	}
	// find -name matches base names, which covers the common patterns.
	name := pattern
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	out, err := d.execCollect(context.Background(),
		fmt.Sprintf("find %s -name %s 2>/dev/null | head -100", shellQuote(path), shellQuote(name)),
		60*time.Second)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		entries = append(entries, Entry{Name: strings.TrimPrefix(line, "./")})
	}
	return entries, nil
}

func (d *Docker) Grep(ctx context.Context, pattern, path, include string, contextLines int) (string, error) {
	if path == "" {
		path = "."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "grep -rn -E %s %s", shellQuote(pattern), shellQuote(path))
	if include != "" {
		fmt.Fprintf(&sb, " --include=%s", shellQuote(include))
	}
	if contextLines > 0 {
		fmt.Fprintf(&sb, " -B%d -A%d", contextLines, contextLines)
	}
	fmt.Fprintf(&sb, " 2>/dev/null | head -%d", maxGrepLines)

	result, err := d.Exec(ctx, sb.String(), 60*time.Second)
	if err != nil {
		return "", err
	}
	return result.Output, nil
}

// Diff captures every file mutation in the working tree as a git diff,
// regardless of which tool produced it.
func (d *Docker) Diff(ctx context.Context) (string, error) {
	result, err := d.Exec(ctx, "git diff", 60*time.Second)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", nil
	}
	return result.Output, nil
}

// Close stops and removes the container. Best effort, unconditional.
func (d *Docker) Close(ctx context.Context) error {
	if d.containerID == "" {
		return nil
	}
	_ = exec.CommandContext(ctx, d.dockerBin, "stop", d.containerID).Run()
	_ = exec.CommandContext(ctx, d.dockerBin, "rm", "-f", d.containerID).Run()
	d.log.Info().Str("id", shortID(d.containerID)).Msg("container stopped")
	d.containerID = ""
	return nil
}

// Pull fetches an image ahead of StartDocker. Failures are returned so the
// caller can decide whether a locally cached image may still work.
func Pull(ctx context.Context, image string) error {
	cmd := exec.CommandContext(ctx, findDocker(), "pull", image)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("docker pull %s: %w\noutput: %s", image, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\"'\"'") + "'"
}
