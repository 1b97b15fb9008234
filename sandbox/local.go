package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	ignore "github.com/sabhiram/go-gitignore"
)

const maxGrepLines = 200

// sensitiveEnvSuffixes are case-insensitive suffixes for environment
// variables that are never passed to sandboxed commands.
var sensitiveEnvSuffixes = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

// safeEnvVars are always passed through regardless of suffix filtering.
var safeEnvVars = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "SHELL": true,
	"LANG": true, "TERM": true, "TMPDIR": true,
	"GOPATH": true, "GOROOT": true, "CARGO_HOME": true,
	"NVM_DIR": true, "RUSTUP_HOME": true, "PYENV_ROOT": true,
	"XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true, "XDG_CACHE_HOME": true,
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, suffix := range sensitiveEnvSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

func filterEnvironment() []string {
	var filtered []string
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		if safeEnvVars[parts[0]] || !isSensitiveEnvVar(parts[0]) {
			filtered = append(filtered, env)
		}
	}
	return filtered
}

// Local confines every operation to a fixed root directory. Paths are
// resolved against the root and checked for containment before any I/O.
type Local struct {
	root      string
	canonRoot string
	gitignore *ignore.GitIgnore
	log       zerolog.Logger
}

// NewLocal creates a local sandbox rooted at dir. The directory is created
// if it does not exist. A .gitignore at the root, if present, filters glob
// and grep results.
func NewLocal(dir string, log zerolog.Logger) (*Local, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving sandbox root: %w", err)
	}
	abs = filepath.Clean(abs)
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("creating sandbox root: %w", err)
	}

	canon := abs
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		canon = resolved
	}

	l := &Local{
		root:      abs,
		canonRoot: canon,
		log:       log.With().Str("component", "sandbox").Str("root", abs).Logger(),
	}
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(abs, ".gitignore")); err == nil {
		l.gitignore = gi
	}
	return l, nil
}

// safe resolves path against the root and rejects anything that escapes it.
// The check is lexical first, then canonical: symlinks are resolved so a
// link inside the root cannot point an operation outside it. The containment
// checks run before any file I/O.
func (l *Local) safe(p string) (string, error) {
	resolved := p
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(l.root, resolved)
	}
	resolved = filepath.Clean(resolved)

	if !descendsFrom(l.root, resolved) {
		return "", fmt.Errorf("Path outside repo: %s", p)
	}

	// Not-yet-existing paths canonicalize their deepest existing ancestor,
	// which keeps the check meaningful on the write side.
	canon, err := evalExisting(resolved)
	if err != nil || !descendsFrom(l.canonRoot, canon) {
		return "", fmt.Errorf("Path outside repo: %s", p)
	}
	return resolved, nil
}

func descendsFrom(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// evalExisting canonicalizes p, walking up to the deepest existing ancestor
// when the full path does not exist yet and rejoining the remainder.
func evalExisting(p string) (string, error) {
	suffix := ""
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(resolved, suffix), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", err
		}
		suffix = filepath.Join(filepath.Base(cur), suffix)
		cur = parent
	}
}

func (l *Local) ignored(rel string) bool {
	if rel == "" || rel == "." {
		return false
	}
	first := strings.SplitN(rel, string(filepath.Separator), 2)[0]
	if first == ".git" {
		return true
	}
	return l.gitignore != nil && l.gitignore.MatchesPath(rel)
}

func (l *Local) WorkingDir() string { return l.root }

func (l *Local) Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

func (l *Local) ReadFile(p string) (string, error) {
	resolved, err := l.safe(p)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (l *Local) WriteFile(p, content string) error {
	resolved, err := l.safe(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return err
	}
	return os.WriteFile(resolved, []byte(content), 0644)
}

func (l *Local) FileExists(p string) bool {
	resolved, err := l.safe(p)
	if err != nil {
		return false
	}
	_, err = os.Stat(resolved)
	return err == nil
}

func (l *Local) ListDir(p string) ([]Entry, error) {
	resolved, err := l.safe(p)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, err
	}

	var result []Entry
	for _, entry := range entries {
		e := Entry{Name: entry.Name(), IsDir: entry.IsDir()}
		if info, err := entry.Info(); err == nil && !entry.IsDir() {
			e.Size = info.Size()
		}
		result = append(result, e)
	}
	return result, nil
}

func (l *Local) Exec(ctx context.Context, command string, timeout time.Duration) (*ExecResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	cmd.Dir = l.root
	cmd.Env = filterEnvironment()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	result := &ExecResult{Output: buf.String()}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			result.TimedOut = true
			result.ExitCode = -1
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
			return result, nil
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("exec: %w", err)
	}
	return result, nil
}

func (l *Local) Glob(pattern, p string) ([]Entry, error) {
	if p == "" {
		p = "."
	}
	base, err := l.safe(p)
	if err != nil {
		return nil, err
	}

	var result []Entry
	walkErr := filepath.WalkDir(base, func(fp string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(l.root, fp)
		if relErr != nil || rel == "." {
			return nil
		}
		if l.ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if matchGlob(pattern, rel, d.Name()) {
			e := Entry{Name: rel, IsDir: d.IsDir()}
			if info, err := d.Info(); err == nil && !d.IsDir() {
				e.Size = info.Size()
			}
			result = append(result, e)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// matchGlob matches a relative path against a glob pattern. Patterns with a
// "**/" prefix match against the base name at any depth; plain patterns are
// tried against both the relative path and the base name.
func matchGlob(pattern, rel, base string) bool {
	if idx := strings.LastIndex(pattern, "**/"); idx >= 0 {
		suffix := pattern[idx+len("**/"):]
		ok, err := path.Match(suffix, base)
		return err == nil && ok
	}
	if ok, err := path.Match(pattern, filepath.ToSlash(rel)); err == nil && ok {
		return true
	}
	ok, err := path.Match(pattern, base)
	return err == nil && ok
}

func (l *Local) Grep(ctx context.Context, pattern, p, include string, contextLines int) (string, error) {
	if p == "" {
		p = "."
	}
	base, err := l.safe(p)
	if err != nil {
		return "", err
	}

	if rgPath, err := exec.LookPath("rg"); err == nil {
		return l.grepRipgrep(ctx, rgPath, pattern, base, include, contextLines)
	}
	return l.grepWalk(pattern, base, include, contextLines)
}

func (l *Local) grepRipgrep(ctx context.Context, rgPath, pattern, base, include string, contextLines int) (string, error) {
	args := []string{"--line-number", "--no-heading", "--max-count", fmt.Sprintf("%d", maxGrepLines)}
	if contextLines > 0 {
		args = append(args, "-C", fmt.Sprintf("%d", contextLines))
	}
	if include != "" {
		args = append(args, "--glob", include)
	}
	args = append(args, pattern, base)

	cmd := exec.CommandContext(ctx, rgPath, args...)
	cmd.Dir = l.root
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	_ = cmd.Run() // rg exits 1 on no matches, which is not an error here.
	return boundLines(stdout.String(), maxGrepLines), nil
}

// grepWalk is the pure-Go fallback when ripgrep is not installed. It honors
// the root .gitignore like the rg path does.
func (l *Local) grepWalk(pattern, base, include string, contextLines int) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	var sb strings.Builder
	matched := 0
	walkErr := filepath.WalkDir(base, func(fp string, d os.DirEntry, err error) error {
		if err != nil || matched >= maxGrepLines {
			if matched >= maxGrepLines {
				return filepath.SkipAll
			}
			return nil
		}
		rel, relErr := filepath.Rel(l.root, fp)
		if relErr != nil {
			return nil
		}
		if l.ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if include != "" {
			if ok, err := path.Match(include, d.Name()); err != nil || !ok {
				return nil
			}
		}
		data, readErr := os.ReadFile(fp)
		if readErr != nil || bytes.IndexByte(data, 0) >= 0 {
			return nil
		}
		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			if matched >= maxGrepLines {
				return filepath.SkipAll
			}
			if !re.MatchString(line) {
				continue
			}
			matched++
			start := i - contextLines
			if start < 0 {
				start = 0
			}
			end := i + contextLines
			if end >= len(lines) {
				end = len(lines) - 1
			}
			for j := start; j <= end; j++ {
				sep := "-"
				if j == i {
					sep = ":"
				}
				fmt.Fprintf(&sb, "%s%s%d%s%s\n", rel, sep, j+1, sep, lines[j])
			}
		}
		return nil
	})
	if walkErr != nil && walkErr != filepath.SkipAll {
		return "", walkErr
	}
	return sb.String(), nil
}

// Diff returns the git diff at the root, empty when the root is not a
// repository or nothing changed.
func (l *Local) Diff(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "diff")
	cmd.Dir = l.root
	out, err := cmd.Output()
	if err != nil {
		return "", nil
	}
	return string(out), nil
}

func (l *Local) Close(ctx context.Context) error {
	l.log.Debug().Msg("local sandbox closed")
	return nil
}

func boundLines(s string, max int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= max {
		return s
	}
	return strings.Join(lines[:max], "\n") + fmt.Sprintf("\n[... %d more lines ...]", len(lines)-max)
}
