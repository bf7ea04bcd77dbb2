package driver

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ngageoint/scale/scheduler/resources"
	"github.com/ngageoint/scale/scheduler/task"
)

// SimAgent describes one agent of a simulated cluster.
type SimAgent struct {
	AgentID   string
	Hostname  string
	Resources resources.Resources
}

type simAgent struct {
	SimAgent
	used    resources.Resources
	offered resources.Resources
}

type simTask struct {
	spec      task.Spec
	started   bool
	startedAt time.Time
	exitCode  int
}

// Sim is an in-process cluster manager. Every tick it offers the free resources of each agent,
// starts launched tasks and finishes the ones that ran for the task duration. Events are
// delivered to the callbacks outside the Sim's lock.
//
// A task command of the form "... exit <n>" finishes with exit code n, anything else with 0.
type Sim struct {
	mu           sync.Mutex
	clk          clock.Clock
	agents       map[string]*simAgent
	offers       map[string]*resources.Offer
	tasks        map[string]*simTask
	taskDuration time.Duration
	nextOffer    int
	pending      []*task.Update
}

func NewSim(clk clock.Clock, agents []SimAgent, taskDuration time.Duration) *Sim {
	s := &Sim{
		clk:          clk,
		agents:       make(map[string]*simAgent),
		offers:       make(map[string]*resources.Offer),
		tasks:        make(map[string]*simTask),
		taskDuration: taskDuration,
	}
	for _, a := range agents {
		s.agents[a.AgentID] = &simAgent{SimAgent: a}
	}
	return s
}

// Run ticks every interval until ctx is done.
func (s *Sim) Run(ctx context.Context, cb Callbacks, interval time.Duration) error {
	ticker := s.clk.Ticker(interval)
	defer ticker.Stop()
	for {
		s.Tick(cb)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Tick advances the simulation once and delivers the resulting events.
func (s *Sim) Tick(cb Callbacks) {
	updates, offers := s.advance()
	for _, u := range updates {
		cb.OnStatusUpdate(u)
	}
	if len(offers) > 0 {
		cb.OnOffers(offers)
	}
}

func (s *Sim) advance() ([]*task.Update, []*resources.Offer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clk.Now()
	updates := s.pending
	s.pending = nil

	for _, id := range sortedTaskIDs(s.tasks) {
		t := s.tasks[id]
		switch {
		case !t.started:
			t.started, t.startedAt = true, now
			updates = append(updates, &task.Update{
				TaskID: id, AgentID: t.spec.AgentID, Status: task.Running, Timestamp: now,
				Data: []byte(fmt.Sprintf(`[{"Id": "sim-%s"}]`, id)),
			})
		case now.Sub(t.startedAt) >= s.taskDuration:
			status := task.Finished
			if t.exitCode != 0 {
				status = task.Failed
			}
			updates = append(updates, &task.Update{
				TaskID: id, AgentID: t.spec.AgentID, Status: status, Timestamp: now, ExitCode: task.ExitCode(t.exitCode),
			})
			s.release(t)
		}
	}

	var offers []*resources.Offer
	for _, agentID := range sortedAgentIDs(s.agents) {
		a := s.agents[agentID]
		free := a.Resources.Subtract(a.used).Subtract(a.offered)
		if free.IsZero() {
			continue
		}
		s.nextOffer++
		o := &resources.Offer{
			ID:         fmt.Sprintf("sim-offer-%d", s.nextOffer),
			AgentID:    a.AgentID,
			Hostname:   a.Hostname,
			Resources:  free,
			ReceivedAt: now,
		}
		a.offered = a.offered.Add(free)
		s.offers[o.ID] = o
		offers = append(offers, o)
	}
	return updates, offers
}

func (s *Sim) release(t *simTask) {
	delete(s.tasks, t.spec.TaskID)
	if a, ok := s.agents[t.spec.AgentID]; ok {
		a.used = a.used.Subtract(t.spec.Resources)
	}
}

func (s *Sim) LaunchTasks(ctx context.Context, offerIDs []string, tasks []task.Spec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total resources.Resources
	for _, id := range offerIDs {
		o, ok := s.offers[id]
		if !ok {
			return errors.Errorf("unknown offer %s", id)
		}
		total = total.Add(o.Resources)
	}
	var required resources.Resources
	for _, t := range tasks {
		required = required.Add(t.Resources)
	}
	if !total.IsSufficientToMeet(required) {
		return errors.Errorf("offers %v hold %s, tasks need %s", offerIDs, total, required)
	}

	for _, id := range offerIDs {
		o := s.offers[id]
		delete(s.offers, id)
		if a, ok := s.agents[o.AgentID]; ok {
			a.offered = a.offered.Subtract(o.Resources)
		}
	}
	for _, t := range tasks {
		a, ok := s.agents[t.AgentID]
		if !ok {
			s.pending = append(s.pending, &task.Update{TaskID: t.TaskID, AgentID: t.AgentID, Status: task.Lost, Timestamp: s.clk.Now()})
			continue
		}
		a.used = a.used.Add(t.Resources)
		s.tasks[t.TaskID] = &simTask{spec: t, exitCode: parseExitCode(t.Command)}
	}
	log.WithFields(log.Fields{"offers": len(offerIDs), "tasks": len(tasks)}).Debug("Sim launched tasks")
	return nil
}

func (s *Sim) DeclineOffer(ctx context.Context, offerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[offerID]
	if !ok {
		return nil
	}
	delete(s.offers, offerID)
	if a, ok := s.agents[o.AgentID]; ok {
		a.offered = a.offered.Subtract(o.Resources)
	}
	return nil
}

func (s *Sim) KillTask(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil
	}
	s.release(t)
	s.pending = append(s.pending, &task.Update{TaskID: taskID, AgentID: t.spec.AgentID, Status: task.Killed, Timestamp: s.clk.Now()})
	return nil
}

// ReconcileTasks reports RUNNING for known started tasks and LOST for unknown ones.
func (s *Sim) ReconcileTasks(ctx context.Context, taskIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clk.Now()
	for _, id := range taskIDs {
		t, ok := s.tasks[id]
		switch {
		case !ok:
			s.pending = append(s.pending, &task.Update{TaskID: id, Status: task.Lost, Timestamp: now})
		case t.started:
			s.pending = append(s.pending, &task.Update{TaskID: id, AgentID: t.spec.AgentID, Status: task.Running, Timestamp: now})
		}
	}
	return nil
}

// RemoveAgent simulates an agent going away: its offers are rescinded and the agent reported lost.
func (s *Sim) RemoveAgent(agentID string, cb Callbacks) {
	s.mu.Lock()
	var rescinded []string
	for id, o := range s.offers {
		if o.AgentID == agentID {
			rescinded = append(rescinded, id)
			delete(s.offers, id)
		}
	}
	for id, t := range s.tasks {
		if t.spec.AgentID == agentID {
			delete(s.tasks, id)
		}
	}
	delete(s.agents, agentID)
	s.mu.Unlock()

	sort.Strings(rescinded)
	if len(rescinded) > 0 {
		cb.OnOffersRescinded(rescinded)
	}
	cb.OnAgentLost(agentID)
}

// NumRunning is the number of launched tasks that have not finished.
func (s *Sim) NumRunning() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func parseExitCode(command string) int {
	fields := strings.Fields(command)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "exit" {
			if code, err := strconv.Atoi(fields[i+1]); err == nil {
				return code
			}
		}
	}
	return 0
}

func sortedTaskIDs(m map[string]*simTask) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedAgentIDs(m map[string]*simAgent) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ Driver = (*Sim)(nil)
