package textqueue

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/jackzampolin/hpcledger/internal/schedadapter"
)

// Adapter shells out to a configured queue-listing command and parses
// its stdout. It is what a real SLURM/PBS deployment wires up: the
// command itself ("squeue --me --noheader -o '%i|%j|%T'" or a qstat
// equivalent) is the caller's responsibility to get right for their
// cluster — this adapter only parses the agreed-upon column shape.
type Adapter struct {
	// Command is run through "sh -c" and its stdout parsed as
	// pipe-delimited job_id|job_name|state lines.
	Command string

	// OutputPatterns are templates containing the literal "${JOB_NAME}"
	// placeholder, resolved by OutputFnames. Any "${JOB_ID}" left in the
	// result is substituted by the request handler at claim time.
	OutputPatterns []string
}

// New constructs a textqueue adapter.
func New(command string, outputPatterns []string) *Adapter {
	return &Adapter{Command: command, OutputPatterns: outputPatterns}
}

// Probe runs Command and parses its output. meOnly is not applied here:
// restricting the query to the caller's own jobs is expected to already
// be baked into Command (e.g. "squeue --me").
func (a *Adapter) Probe(ctx context.Context, meOnly bool) (map[string]schedadapter.JobInfo, error) {
	if a.Command == "" {
		return nil, fmt.Errorf("textqueue: no queue command configured")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", a.Command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("textqueue: running %q: %w: %s", a.Command, err, stderr.String())
	}

	return ParseQueueOutput(&stdout)
}

// OutputFnames substitutes "${JOB_NAME}" into each configured pattern.
func (a *Adapter) OutputFnames(jobName string) ([]string, error) {
	out := make([]string, len(a.OutputPatterns))
	for i, pattern := range a.OutputPatterns {
		out[i] = strings.ReplaceAll(pattern, "${JOB_NAME}", jobName)
	}
	return out, nil
}

var _ schedadapter.Prober = (*Adapter)(nil)
