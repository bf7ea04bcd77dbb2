package task

import (
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ngageoint/scale/scheduler/resources"
)

// Manager indexes every launched task by ID so status updates, timeouts and reconciliation can
// find them. A task leaves the manager once it ends or is reset by a LOST update; its owner
// relaunches it if needed.
type Manager struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

func NewManager() *Manager {
	return &Manager{tasks: make(map[string]*Task)}
}

// Launch launches the given tasks and starts tracking them. Tracking a task ID twice is a bug.
func (m *Manager) Launch(tasks []*Task, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tasks {
		if _, ok := m.tasks[t.ID()]; ok {
			panic(fmt.Sprintf("task %s is already tracked", t.ID()))
		}
		t.Launch(now)
		m.tasks[t.ID()] = t
	}
}

// HandleUpdate applies the update to the matching task. It returns the task, or false if the
// task is unknown (already finished or never launched by this scheduler).
func (m *Manager) HandleUpdate(u *Update) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[u.TaskID]
	if !ok {
		return nil, false
	}
	if t.Update(u) {
		log.WithFields(log.Fields{"taskID": t.ID(), "kind": t.Kind(), "status": u.Status}).Debug("Task updated")
	}
	if s := t.State(); s == Ended || s == Unlaunched {
		delete(m.tasks, t.ID())
	}
	return t, true
}

// CheckTimeouts ends and stops tracking every task past its staging or running timeout.
func (m *Manager) CheckTimeouts(now time.Time) []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var timedOut []*Task
	for _, id := range m.sortedIDs() {
		t := m.tasks[id]
		if t.CheckTimeout(now) {
			timedOut = append(timedOut, t)
			delete(m.tasks, id)
		}
	}
	return timedOut
}

// TasksToReconcile returns tasks whose status reporting looks stuck and restarts their
// reconciliation clock, so a task is only requested again after another threshold passes.
func (m *Manager) TasksToReconcile(now time.Time) []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stale []*Task
	for _, id := range m.sortedIDs() {
		t := m.tasks[id]
		if t.NeedsReconciliation(now) {
			t.MarkReconciling(now)
			stale = append(stale, t)
		}
	}
	return stale
}

// LostAgent stops tracking and returns every task on the agent.
func (m *Manager) LostAgent(agentID string) []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lost []*Task
	for _, id := range m.sortedIDs() {
		if t := m.tasks[id]; t.AgentID() == agentID {
			lost = append(lost, t)
			delete(m.tasks, id)
		}
	}
	return lost
}

// Get returns a tracked task.
func (m *Manager) Get(id string) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	return t, ok
}

// Tasks returns every tracked task ordered by ID.
func (m *Manager) Tasks() []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := make([]*Task, 0, len(m.tasks))
	for _, id := range m.sortedIDs() {
		tasks = append(tasks, m.tasks[id])
	}
	return tasks
}

// TasksOnAgent returns the tracked tasks running on one agent.
func (m *Manager) TasksOnAgent(agentID string) []*Task {
	var tasks []*Task
	for _, t := range m.Tasks() {
		if t.AgentID() == agentID {
			tasks = append(tasks, t)
		}
	}
	return tasks
}

// Consumers adapts the tracked tasks for resource accounting.
func (m *Manager) Consumers() []resources.Consumer {
	tasks := m.Tasks()
	consumers := make([]resources.Consumer, 0, len(tasks))
	for _, t := range tasks {
		consumers = append(consumers, t)
	}
	return consumers
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *Manager) sortedIDs() []string {
	ids := make([]string, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
