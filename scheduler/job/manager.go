package job

import (
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ngageoint/scale/scheduler/task"
)

// Manager holds the running executions of this scheduler and collects the ones that finished
// until the loop hands them to the store.
type Manager struct {
	mu         sync.Mutex
	executions map[string]*RunningExecution
	finished   []*RunningExecution
}

func NewManager() *Manager {
	return &Manager{executions: make(map[string]*RunningExecution)}
}

// Add starts tracking newly scheduled executions.
func (m *Manager) Add(execs []*RunningExecution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range execs {
		if e.IsFinished() {
			m.finished = append(m.finished, e)
			continue
		}
		m.executions[e.ID()] = e
	}
}

// HandleTaskUpdate routes an updated job task to its execution. It returns the execution, or
// nil if the task belongs to no tracked execution.
func (m *Manager) HandleTaskUpdate(t *task.Task) *RunningExecution {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[t.ExecutionID()]
	if !ok {
		return nil
	}
	if e.HandleTaskUpdate(t) {
		log.WithFields(log.Fields{
			"execution": e.ID(),
			"jobType":   e.JobType(),
			"status":    e.Status(),
			"error":     e.ErrorName(),
		}).Info("Job execution finished")
		m.markFinished(e)
	}
	return e
}

// LostNode fails every execution on the agent.
func (m *Manager) LostNode(agentID string, now time.Time) []*RunningExecution {
	m.mu.Lock()
	defer m.mu.Unlock()
	var failed []*RunningExecution
	for _, e := range m.sorted() {
		if e.AgentID() == agentID && e.NodeLost(now) {
			failed = append(failed, e)
			m.markFinished(e)
		}
	}
	return failed
}

// ReadyForNextTask returns executions whose next step is waiting for launch, most important first.
func (m *Manager) ReadyForNextTask() []*RunningExecution {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ready []*RunningExecution
	for _, e := range m.sorted() {
		if e.NextTask() != nil {
			ready = append(ready, e)
		}
	}
	return ready
}

// PopFinished returns and forgets the executions that finished since the last call.
func (m *Manager) PopFinished() []*RunningExecution {
	m.mu.Lock()
	defer m.mu.Unlock()
	finished := m.finished
	m.finished = nil
	return finished
}

func (m *Manager) Get(id string) (*RunningExecution, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	return e, ok
}

// Executions returns the tracked executions, most important first.
func (m *Manager) Executions() []*RunningExecution {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted()
}

// Counts returns the number of tracked executions per job type.
func (m *Manager) Counts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range m.executions {
		counts[e.JobType()]++
	}
	return counts
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.executions)
}

func (m *Manager) markFinished(e *RunningExecution) {
	delete(m.executions, e.ID())
	m.finished = append(m.finished, e)
}

func (m *Manager) sorted() []*RunningExecution {
	execs := make([]*RunningExecution, 0, len(m.executions))
	for _, e := range m.executions {
		execs = append(execs, e)
	}
	sort.Slice(execs, func(i, j int) bool {
		if execs[i].Priority() != execs[j].Priority() {
			return execs[i].Priority() < execs[j].Priority()
		}
		return execs[i].ID() < execs[j].ID()
	})
	return execs
}
