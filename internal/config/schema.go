package config

import "time"

// Config holds hpcledger configuration.
// Stored at: {home}/config.yaml
type Config struct {
	// DBFname is the path of the ledger append-log file.
	DBFname string `mapstructure:"db_fname" yaml:"db_fname" json:"db_fname"`
	// Endpoint is the socket bind address, e.g. "tcp://0.0.0.0:8910" or "unix:///tmp/hpcledger.sock".
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	// LearnersFnames is the ordered list of learner filenames to populate the ledger with on init.
	LearnersFnames []string `mapstructure:"learners_fnames" yaml:"learners_fnames" json:"learners_fnames"`
	// ReconcileInterval is the tick period for the reconciler.
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval" yaml:"reconcile_interval" json:"reconcile_interval"`
	// OverwriteDB recreates the ledger on start if true.
	OverwriteDB bool `mapstructure:"overwrite_db" yaml:"overwrite_db" json:"overwrite_db"`
	// StrictStop makes stop() on an unknown fname an error instead of a no-op.
	StrictStop bool `mapstructure:"strict_stop" yaml:"strict_stop" json:"strict_stop"`
	// StatusAddr is the bind address for the read-only HTTP status surface. Empty disables it.
	StatusAddr string `mapstructure:"status_addr" yaml:"status_addr" json:"status_addr"`
	// Scheduler selects and configures the queue probe adapter.
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler" json:"scheduler"`
}

// SchedulerConfig configures the scheduler adapter used for reconciliation.
type SchedulerConfig struct {
	// Kind is "textqueue" or "docker".
	Kind string `mapstructure:"kind" yaml:"kind" json:"kind"`
	// QueueCommand is the shell command whose stdout is parsed (textqueue adapter).
	QueueCommand string `mapstructure:"queue_command" yaml:"queue_command" json:"queue_command"`
	// ContainerLabel selects which containers count as "jobs" (docker adapter).
	ContainerLabel string `mapstructure:"container_label" yaml:"container_label" json:"container_label"`
	// OutputPatterns are the output_fnames() templates, each allowed to
	// contain a "${JOB_NAME}" placeholder (substituted by the adapter) and a
	// "${JOB_ID}" placeholder (substituted by the manager at claim time).
	OutputPatterns []string `mapstructure:"output_patterns" yaml:"output_patterns" json:"output_patterns"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DBFname:           "ledger.jsonl",
		Endpoint:          "tcp://127.0.0.1:8910",
		LearnersFnames:    []string{},
		ReconcileInterval: 30 * time.Second,
		OverwriteDB:       false,
		StrictStop:        false,
		StatusAddr:        "127.0.0.1:8911",
		Scheduler: SchedulerConfig{
			Kind:           "textqueue",
			QueueCommand:   "squeue --me --noheader -o '%i|%j|%T'",
			ContainerLabel: "hpcledger.job=true",
			OutputPatterns: []string{"${JOB_NAME}-${JOB_ID}.out", "${JOB_NAME}-${JOB_ID}.err"},
		},
	}
}
