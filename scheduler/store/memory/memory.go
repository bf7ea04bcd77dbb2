// Package memory is an in-process store.Store used by tests and the local demo.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/ngageoint/scale/scheduler/job"
	"github.com/ngageoint/scale/scheduler/store"
)

type Store struct {
	clk clock.Clock

	mu         sync.Mutex
	nextNodeID int
	nodes      map[string]store.NodeRecord
	queue      map[string]*job.QueuedExecution
	running    map[string]store.ExecutionRecord
	finished   []store.ExecutionRecord
	types      map[string]*job.JobType
}

func New(clk clock.Clock) *Store {
	return &Store{
		clk:        clk,
		nextNodeID: 1,
		nodes:      make(map[string]store.NodeRecord),
		queue:      make(map[string]*job.QueuedExecution),
		running:    make(map[string]store.ExecutionRecord),
		types:      make(map[string]*job.JobType),
	}
}

var _ store.Store = (*Store)(nil)
var _ store.Seeder = (*Store)(nil)

func (s *Store) LoadActiveNodes(ctx context.Context, hostnames []string) ([]store.NodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[string]bool, len(hostnames))
	for _, h := range hostnames {
		wanted[h] = true
	}
	var records []store.NodeRecord
	for _, rec := range s.nodes {
		if rec.IsActive || wanted[rec.Hostname] {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (s *Store) CreateNodes(ctx context.Context, hostnames, agentIDs []string) ([]store.NodeRecord, error) {
	if len(hostnames) != len(agentIDs) {
		return nil, errors.Errorf("%d hostnames but %d agent IDs", len(hostnames), len(agentIDs))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range hostnames {
		if _, ok := s.nodes[h]; ok {
			return nil, errors.Errorf("node %s already exists", h)
		}
	}
	created := make([]store.NodeRecord, 0, len(hostnames))
	for i, h := range hostnames {
		rec := store.NodeRecord{ID: s.nextNodeID, Hostname: h, AgentID: agentIDs[i], IsActive: true}
		s.nextNodeID++
		s.nodes[h] = rec
		created = append(created, rec)
	}
	return created, nil
}

func (s *Store) UpdateNodePause(ctx context.Context, hostname string, paused bool, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.nodes[hostname]
	if !ok {
		return errors.Errorf("no node %s", hostname)
	}
	rec.IsPaused = paused
	rec.PauseReason = ""
	if paused {
		rec.PauseReason = reason
	}
	s.nodes[hostname] = rec
	return nil
}

// SetNodeActive flips the active flag of a node record, as an administrator would.
func (s *Store) SetNodeActive(hostname string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.nodes[hostname]
	if !ok {
		return errors.Errorf("no node %s", hostname)
	}
	rec.IsActive = active
	s.nodes[hostname] = rec
	return nil
}

// Node returns the stored record for a hostname.
func (s *Store) Node(hostname string) (store.NodeRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.nodes[hostname]
	return rec, ok
}

func (s *Store) LoadQueuedWork(ctx context.Context, filter store.QueueFilter, fn func(*job.QueuedExecution) bool) error {
	s.mu.Lock()
	queued := make([]*job.QueuedExecution, 0, len(s.queue))
	for _, q := range s.queue {
		if filter.Includes(q) {
			c := *q
			queued = append(queued, &c)
		}
	}
	s.mu.Unlock()

	sort.Slice(queued, func(i, j int) bool { return queued[i].Before(queued[j]) })
	for _, q := range queued {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(q) {
			break
		}
	}
	return nil
}

func (s *Store) ScheduleWork(ctx context.Context, items []*job.QueuedExecution, assignments map[string]store.Assignment) ([]*job.RunningExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clk.Now()
	var scheduled []*job.RunningExecution
	for _, item := range items {
		a, ok := assignments[item.ID]
		if !ok {
			continue
		}
		q, ok := s.queue[item.ID]
		if !ok {
			// Removed from the queue since it was loaded.
			continue
		}
		delete(s.queue, item.ID)
		e := q.Schedule(a.AgentID, a.Hostname, now)
		s.running[e.ID()] = store.NewExecutionRecord(e)
		scheduled = append(scheduled, e)
	}
	return scheduled, nil
}

func (s *Store) LoadWorkTypeLimitsAndCounts(ctx context.Context) (*job.TypeLimits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]*job.JobType, 0, len(s.types))
	for _, jt := range s.types {
		c := *jt
		types = append(types, &c)
	}
	counts := make(map[string]int)
	for _, rec := range s.running {
		counts[rec.JobType]++
	}
	return job.NewTypeLimits(types, counts), nil
}

func (s *Store) CompleteWork(ctx context.Context, finished []*job.RunningExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range finished {
		delete(s.running, e.ID())
		s.finished = append(s.finished, store.NewExecutionRecord(e))
	}
	return nil
}

func (s *Store) PutJobTypes(ctx context.Context, types ...*job.JobType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, jt := range types {
		c := *jt
		s.types[jt.Name] = &c
	}
	return nil
}

func (s *Store) Enqueue(ctx context.Context, items ...*job.QueuedExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range items {
		if _, ok := s.running[q.ID]; ok {
			return errors.Errorf("execution %s is already scheduled", q.ID)
		}
		c := *q
		if c.QueuedAt.IsZero() {
			c.QueuedAt = s.clk.Now()
		}
		s.queue[q.ID] = &c
	}
	return nil
}

// QueueLen returns the number of queued executions.
func (s *Store) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Running returns the records of scheduled executions that have not completed, ordered by ID.
func (s *Store) Running() []store.ExecutionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]store.ExecutionRecord, 0, len(s.running))
	for _, rec := range s.running {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// Finished returns completed execution records in completion order.
func (s *Store) Finished() []store.ExecutionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.ExecutionRecord(nil), s.finished...)
}
