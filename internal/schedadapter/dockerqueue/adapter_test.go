package dockerqueue

import (
	"testing"

	"github.com/docker/docker/api/types/container"
)

func TestAdapter_OutputFnamesSubstitutesJobName(t *testing.T) {
	a := &Adapter{OutputPatterns: []string{"docker-logs/${JOB_NAME}.log"}}
	out, err := a.OutputFnames("job1")
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != "docker-logs/job1.log" {
		t.Errorf("expected substituted job name, got %s", out[0])
	}
}

func TestFirstOrEmpty(t *testing.T) {
	if firstOrEmpty(nil) != "" {
		t.Error("expected empty string for nil slice")
	}
	if firstOrEmpty([]string{"/a", "/b"}) != "/a" {
		t.Error("expected first element")
	}
}

func TestFirstPortEndpoint(t *testing.T) {
	if got := firstPortEndpoint(nil); got != "" {
		t.Errorf("expected empty string for no ports, got %q", got)
	}

	ports := []container.Port{
		{IP: "0.0.0.0", PrivatePort: 8080, PublicPort: 0, Type: "tcp"},
		{IP: "0.0.0.0", PrivatePort: 9090, PublicPort: 32768, Type: "tcp"},
	}
	got := firstPortEndpoint(ports)
	want := "0.0.0.0:32768->9090/tcp"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

// TestAdapter_Probe requires a local Docker daemon and is always
// skipped; no build tag or flag enables it.
func TestAdapter_Probe(t *testing.T) {
	t.Skip("requires a local docker daemon; not exercised in unit test runs")
}
