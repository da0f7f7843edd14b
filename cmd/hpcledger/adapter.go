package main

import (
	"fmt"

	"github.com/jackzampolin/hpcledger/internal/config"
	"github.com/jackzampolin/hpcledger/internal/schedadapter"
	"github.com/jackzampolin/hpcledger/internal/schedadapter/dockerqueue"
	"github.com/jackzampolin/hpcledger/internal/schedadapter/textqueue"
)

// buildProber constructs the scheduler adapter named by cfg.Scheduler.Kind.
func buildProber(cfg config.SchedulerConfig) (schedadapter.Prober, error) {
	switch cfg.Kind {
	case "textqueue":
		return textqueue.New(cfg.QueueCommand, cfg.OutputPatterns), nil
	case "docker":
		return dockerqueue.New(cfg.ContainerLabel, cfg.OutputPatterns)
	default:
		return nil, fmt.Errorf("unknown scheduler.kind %q: must be textqueue or docker", cfg.Kind)
	}
}
