// Package dockerqueue is a local-development stand-in for a real
// cluster scheduler: it treats running containers carrying a given
// label as "cluster jobs", so the reconciler's release path can be
// exercised without SLURM/PBS. It never starts, stops, or schedules
// containers — listing is the only operation the core needs.
package dockerqueue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/jackzampolin/hpcledger/internal/schedadapter"
)

// Adapter lists labeled Docker containers as if they were cluster jobs.
type Adapter struct {
	cli   *client.Client
	label string // "key=value", e.g. "hpcledger.job=true"

	// OutputPatterns are templates containing "${JOB_NAME}", resolved by
	// OutputFnames the same way textqueue does.
	OutputPatterns []string
}

// New creates a dockerqueue adapter against the local Docker daemon.
func New(label string, outputPatterns []string) (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("dockerqueue: creating docker client: %w", err)
	}
	return &Adapter{cli: cli, label: label, OutputPatterns: outputPatterns}, nil
}

// Close releases the underlying Docker client.
func (a *Adapter) Close() error {
	return a.cli.Close()
}

// Probe lists running containers carrying the configured label. meOnly
// has no meaning for this adapter (Docker has no concept of "my jobs")
// and is ignored.
func (a *Adapter) Probe(ctx context.Context, meOnly bool) (map[string]schedadapter.JobInfo, error) {
	if _, err := a.cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("dockerqueue: docker is not running: %w", err)
	}

	filterArgs := filters.NewArgs()
	filterArgs.Add("label", a.label)

	containers, err := a.cli.ContainerList(ctx, container.ListOptions{
		Filters: filterArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("dockerqueue: listing containers: %w", err)
	}

	jobs := make(map[string]schedadapter.JobInfo, len(containers))
	for _, c := range containers {
		jobID := c.ID[:12]
		name := strings.TrimPrefix(firstOrEmpty(c.Names), "/")
		jobs[jobID] = schedadapter.JobInfo{
			JobName:  name,
			State:    c.State,
			Endpoint: firstPortEndpoint(c.Ports),
		}
	}
	return jobs, nil
}

// firstPortEndpoint formats the first published port a container exposes
// as "ip:public->private/proto" (e.g. "0.0.0.0:32768->9090/tcp"), the way
// `docker ps` prints a binding; the private side is a nat.Port string.
func firstPortEndpoint(ports []container.Port) string {
	for _, p := range ports {
		if p.PublicPort == 0 {
			continue
		}
		port, err := nat.NewPort(p.Type, strconv.Itoa(int(p.PrivatePort)))
		if err != nil {
			continue
		}
		return fmt.Sprintf("%s:%d->%s", p.IP, p.PublicPort, port)
	}
	return ""
}

// OutputFnames substitutes "${JOB_NAME}" into each configured pattern.
func (a *Adapter) OutputFnames(jobName string) ([]string, error) {
	out := make([]string, len(a.OutputPatterns))
	for i, pattern := range a.OutputPatterns {
		out[i] = strings.ReplaceAll(pattern, "${JOB_NAME}", jobName)
	}
	return out, nil
}

func firstOrEmpty(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

var _ schedadapter.Prober = (*Adapter)(nil)
