package bench

import (
	"os"
	"path/filepath"
	"testing"
)

func TestImageName(t *testing.T) {
	inst := Instance{InstanceID: "astropy__astropy-12907"}
	want := "docker.io/swebench/sweb.eval.x86_64.astropy_1776_astropy-12907:latest"
	if got := ImageName(inst); got != want {
		t.Errorf("ImageName = %q, want %q", got, want)
	}
}

func TestImageNameLowercased(t *testing.T) {
	inst := Instance{InstanceID: "Django__Django-11099"}
	want := "docker.io/swebench/sweb.eval.x86_64.django_1776_django-11099:latest"
	if got := ImageName(inst); got != want {
		t.Errorf("ImageName = %q, want %q", got, want)
	}
}

func TestImageNameExplicitOverride(t *testing.T) {
	inst := Instance{InstanceID: "x__y-1", ImageName: "my.registry/custom:tag"}
	if got := ImageName(inst); got != "my.registry/custom:tag" {
		t.Errorf("ImageName = %q", got)
	}
}

func TestApplySlice(t *testing.T) {
	instances := make([]Instance, 10)
	for i := range instances {
		instances[i].InstanceID = string(rune('a' + i))
	}

	cases := []struct {
		spec      string
		wantLen   int
		wantFirst string
	}{
		{"", 10, "a"},
		{"0:5", 5, "a"},
		{":3", 3, "a"},
		{"7:", 3, "h"},
		{"3:20", 7, "d"},
	}
	for _, tc := range cases {
		got, err := ApplySlice(instances, tc.spec)
		if err != nil {
			t.Fatalf("ApplySlice(%q): %v", tc.spec, err)
		}
		if len(got) != tc.wantLen {
			t.Errorf("ApplySlice(%q) len = %d, want %d", tc.spec, len(got), tc.wantLen)
			continue
		}
		if tc.wantLen > 0 && got[0].InstanceID != tc.wantFirst {
			t.Errorf("ApplySlice(%q) first = %q, want %q", tc.spec, got[0].InstanceID, tc.wantFirst)
		}
	}

	if _, err := ApplySlice(instances, "bogus"); err == nil {
		t.Error("expected error for spec without colon")
	}
	if _, err := ApplySlice(instances, "x:2"); err == nil {
		t.Error("expected error for non-numeric bound")
	}
}

func TestLoadInstancesJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instances.json")
	content := `[
		{"instance_id": "repo__repo-1", "problem_statement": "fix a"},
		{"instance_id": "repo__repo-2", "problem_statement": "fix b"}
	]`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	instances, err := LoadInstances(path)
	if err != nil {
		t.Fatalf("LoadInstances: %v", err)
	}
	if len(instances) != 2 || instances[1].ProblemStatement != "fix b" {
		t.Errorf("instances = %+v", instances)
	}
}

func TestLoadInstancesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instances.jsonl")
	content := `{"instance_id": "repo__repo-1", "problem_statement": "fix a"}
{"instance_id": "repo__repo-2", "problem_statement": "fix b"}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	instances, err := LoadInstances(path)
	if err != nil {
		t.Fatalf("LoadInstances: %v", err)
	}
	if len(instances) != 2 || instances[0].InstanceID != "repo__repo-1" {
		t.Errorf("instances = %+v", instances)
	}
}
