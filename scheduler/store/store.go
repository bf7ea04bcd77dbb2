// Package store defines the persistence and queue collaborator of the scheduler: node records,
// the job queue, scheduled executions and the work-type catalog.
package store

//go:generate mockgen -source=store.go -package=store -destination=store_mock.go

import (
	"context"
	"time"

	"github.com/ngageoint/scale/scheduler/job"
)

// NodeRecord is the persisted identity of a node.
type NodeRecord struct {
	ID          int    `json:"id"`
	Hostname    string `json:"hostname"`
	AgentID     string `json:"agent_id"`
	IsActive    bool   `json:"is_active"`
	IsPaused    bool   `json:"is_paused"`
	PauseReason string `json:"pause_reason,omitempty"`
}

// QueueFilter narrows LoadQueuedWork.
type QueueFilter struct {
	// Job types to leave out, usually the paused ones.
	ExcludeTypes map[string]bool
}

// Includes reports whether the filter lets the queued execution through.
func (f QueueFilter) Includes(q *job.QueuedExecution) bool {
	return !f.ExcludeTypes[q.JobType]
}

// Assignment is the node a queued execution was admitted on.
type Assignment struct {
	AgentID  string
	Hostname string
}

// ExecutionRecord is the persisted summary of a scheduled execution.
type ExecutionRecord struct {
	ID          string    `json:"id"`
	JobType     string    `json:"job_type"`
	Priority    int       `json:"priority"`
	AgentID     string    `json:"agent_id"`
	Hostname    string    `json:"hostname"`
	Status      string    `json:"status"`
	ErrorName   string    `json:"error,omitempty"`
	ExitCode    *int      `json:"exit_code,omitempty"`
	ScheduledAt time.Time `json:"scheduled"`
	EndedAt     time.Time `json:"ended,omitempty"`
}

func NewExecutionRecord(e *job.RunningExecution) ExecutionRecord {
	rec := ExecutionRecord{
		ID:          e.ID(),
		JobType:     e.JobType(),
		Priority:    e.Priority(),
		AgentID:     e.AgentID(),
		Hostname:    e.Hostname(),
		Status:      e.Status().String(),
		ErrorName:   e.ErrorName(),
		ScheduledAt: e.ScheduledAt(),
		EndedAt:     e.EndedAt(),
	}
	if code, ok := e.ExitCode(); ok {
		rec.ExitCode = &code
	}
	return rec
}

// Store is implemented by store/memory and store/bolt.
type Store interface {
	// LoadActiveNodes returns every active node plus the nodes with the given hostnames.
	LoadActiveNodes(ctx context.Context, hostnames []string) ([]NodeRecord, error)

	// CreateNodes creates active node records, hostnames[i] paired with agentIDs[i].
	CreateNodes(ctx context.Context, hostnames, agentIDs []string) ([]NodeRecord, error)

	// UpdateNodePause persists a pause or resume of a node.
	UpdateNodePause(ctx context.Context, hostname string, paused bool, reason string) error

	// LoadQueuedWork calls fn for each queued execution the filter includes, in priority then
	// queue time order, until fn returns false.
	LoadQueuedWork(ctx context.Context, filter QueueFilter, fn func(*job.QueuedExecution) bool) error

	// ScheduleWork removes the items from the queue and returns them as running executions on
	// their assigned nodes. Items without an assignment are left queued.
	ScheduleWork(ctx context.Context, items []*job.QueuedExecution, assignments map[string]Assignment) ([]*job.RunningExecution, error)

	// LoadWorkTypeLimitsAndCounts returns the catalog with the number of executions scheduled per type.
	LoadWorkTypeLimitsAndCounts(ctx context.Context) (*job.TypeLimits, error)

	// CompleteWork records finished executions, freeing their type's scheduling slot.
	CompleteWork(ctx context.Context, finished []*job.RunningExecution) error
}

// Seeder is implemented by stores that accept job types and queued work directly. The demo
// binary and tests use it in place of the external queue producer.
type Seeder interface {
	PutJobTypes(ctx context.Context, types ...*job.JobType) error
	Enqueue(ctx context.Context, items ...*job.QueuedExecution) error
}
