// Package textqueue implements a schedadapter.Prober that parses the
// pipe-delimited tabular stdout a real squeue/qstat wrapper produces.
// It never shells out to sbatch/qsub itself — submission and
// cancellation are handled entirely outside this package.
package textqueue

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jackzampolin/hpcledger/internal/schedadapter"
)

// ParseQueueOutput parses lines of the form "job_id|job_name|state",
// matching the column order of the default queue_command
// ("squeue --me --noheader -o '%i|%j|%T'"). Blank lines are skipped.
func ParseQueueOutput(r io.Reader) (map[string]schedadapter.JobInfo, error) {
	jobs := make(map[string]schedadapter.JobInfo)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < 3 {
			return nil, fmt.Errorf("textqueue: line %d: expected 3 pipe-delimited fields, got %d: %q", lineNo, len(fields), line)
		}
		jobID := strings.TrimSpace(fields[0])
		if jobID == "" {
			continue
		}
		jobs[jobID] = schedadapter.JobInfo{
			JobName: strings.TrimSpace(fields[1]),
			State:   strings.TrimSpace(fields[2]),
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("textqueue: reading queue output: %w", err)
	}
	return jobs, nil
}
