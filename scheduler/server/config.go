package server

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/ngageoint/scale/common/retry"
	"github.com/ngageoint/scale/scheduler/task"
)

const (
	// Caps the queued executions admitted in one iteration, bounding iteration latency.
	DefaultMaxNewWorkPerIteration = 500

	// How long the loop sleeps after an iteration that launched nothing.
	DefaultIdleDelay = 5 * time.Second

	DefaultNodeSyncInterval = 10 * time.Second

	DefaultReconcileRate  = rate.Limit(1)
	DefaultReconcileBurst = 10
)

// Config holds the typed scheduler settings, usually built by the config package.
//
// MaxNewWorkPerIteration - queued executions admitted per iteration at most.
// IdleDelay - sleep after an iteration that launched no task.
// NodeSyncInterval - how often nodes are synced with the store when no new agent shows up.
// StoreRetry - retry policy of store writes.
// DriverRetry - retry policy of task launches.
// ReconcileRate, ReconcileBurst - limit on reconciliation requests sent to the cluster manager.
// ScaleImage - image of the node maintenance and pre/post steps, pulled on every node.
// StagingTimeout, RunningTimeout - timeouts of job tasks, zero keeps the task defaults.
type Config struct {
	MaxNewWorkPerIteration int
	IdleDelay              time.Duration
	NodeSyncInterval       time.Duration
	StoreRetry             retry.Policy
	DriverRetry            retry.Policy
	ReconcileRate          rate.Limit
	ReconcileBurst         int
	ScaleImage             string
	StagingTimeout         time.Duration
	RunningTimeout         time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxNewWorkPerIteration: DefaultMaxNewWorkPerIteration,
		IdleDelay:              DefaultIdleDelay,
		NodeSyncInterval:       DefaultNodeSyncInterval,
		StoreRetry:             retry.DefaultPolicy(),
		DriverRetry:            retry.DefaultPolicy(),
		ReconcileRate:          DefaultReconcileRate,
		ReconcileBurst:         DefaultReconcileBurst,
		StagingTimeout:         task.DefaultStagingTimeout,
		RunningTimeout:         task.DefaultRunningTimeout,
	}
}

// withDefaults fills in zero values that must never be left uninitialized.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxNewWorkPerIteration <= 0 {
		c.MaxNewWorkPerIteration = d.MaxNewWorkPerIteration
	}
	if c.IdleDelay <= 0 {
		c.IdleDelay = d.IdleDelay
	}
	if c.NodeSyncInterval <= 0 {
		c.NodeSyncInterval = d.NodeSyncInterval
	}
	if c.StoreRetry.Attempts <= 0 {
		c.StoreRetry = d.StoreRetry
	}
	if c.DriverRetry.Attempts <= 0 {
		c.DriverRetry = d.DriverRetry
	}
	if c.ReconcileRate <= 0 {
		c.ReconcileRate = d.ReconcileRate
	}
	if c.ReconcileBurst <= 0 {
		c.ReconcileBurst = d.ReconcileBurst
	}
	return c
}

func (c Config) String() string {
	return fmt.Sprintf("Config: MaxNewWorkPerIteration: %d, IdleDelay: %s, NodeSyncInterval: %s, StoreRetry: %+v, "+
		"DriverRetry: %+v, ReconcileRate: %v, ReconcileBurst: %d, ScaleImage: %q, StagingTimeout: %s, RunningTimeout: %s",
		c.MaxNewWorkPerIteration, c.IdleDelay, c.NodeSyncInterval, c.StoreRetry, c.DriverRetry,
		c.ReconcileRate, c.ReconcileBurst, c.ScaleImage, c.StagingTimeout, c.RunningTimeout)
}
