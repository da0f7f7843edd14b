// Package schedadapter defines the interface the reconciliation core
// depends on to observe a cluster batch scheduler, and ships two
// concrete adapters (textqueue, dockerqueue). The core never drives
// sbatch/qsub or any submit/cancel path — it only reads.
package schedadapter

import "context"

// JobInfo is the opaque per-job metadata a Prober returns. Only the key
// set of the map a Probe call returns is semantically meaningful to the
// reconciler; State is carried through as reported and is not
// interpreted (running vs pending is scheduler-specific).
type JobInfo struct {
	JobName string
	State   string
	// Endpoint is an optional "ip:public->private/proto"-shaped address the
	// adapter can report when a job exposes one (only dockerqueue
	// populates this; a batch scheduler job has no such concept).
	Endpoint string
}

// Prober is supplied by the caller; the core depends on only these two
// methods.
type Prober interface {
	// Probe returns the set of job ids the scheduler currently knows
	// about. meOnly restricts the query to jobs owned by the calling
	// user where the adapter supports that distinction.
	Probe(ctx context.Context, meOnly bool) (map[string]JobInfo, error)

	// OutputFnames returns the ordered scheduler stdout/stderr paths
	// that should be attributed to a job at claim time. Occurrences of
	// the literal "${JOB_ID}" in a returned path are substituted by the
	// caller with the job's actual id.
	OutputFnames(jobName string) ([]string, error)
}
