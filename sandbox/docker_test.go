package sandbox

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// newFakeDocker builds a Docker sandbox whose docker binary is a stub that
// strips the exec preamble and runs the inner bash command on the host.
func newFakeDocker(t *testing.T) (*Docker, string) {
	t.Helper()
	dir := t.TempDir()
	stub := filepath.Join(dir, "docker")
	script := "#!/bin/sh\nwhile [ $# -gt 0 ] && [ \"$1\" != \"bash\" ]; do shift; done\nexec \"$@\"\n"
	if err := os.WriteFile(stub, []byte(script), 0755); err != nil {
		t.Fatalf("writing docker stub: %v", err)
	}
	workdir := t.TempDir()
	return &Docker{
		dockerBin:   stub,
		containerID: "stub",
		name:        "stub",
		workdir:     workdir,
	}, workdir
}

func TestDockerReadFileMissingIsNotExist(t *testing.T) {
	d, workdir := newFakeDocker(t)

	_, err := d.ReadFile(filepath.Join(workdir, "missing.txt"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestDockerReadFileReturnsContent(t *testing.T) {
	d, workdir := newFakeDocker(t)
	path := filepath.Join(workdir, "a.txt")
	if err := os.WriteFile(path, []byte("container data"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	got, err := d.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got != "container data" {
		t.Errorf("content = %q", got)
	}
}
