package node

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ngageoint/scale/scheduler/store"
	"github.com/ngageoint/scale/scheduler/task"
)

// Agent is a cluster agent as observed in offers.
type Agent struct {
	AgentID  string
	Hostname string
}

// Store is the part of store.Store the registry syncs with.
type Store interface {
	LoadActiveNodes(ctx context.Context, hostnames []string) ([]store.NodeRecord, error)
	CreateNodes(ctx context.Context, hostnames, agentIDs []string) ([]store.NodeRecord, error)
}

// Registry is the authoritative in-memory set of nodes, keyed by hostname. Agents observed in
// offers are registered right away and become nodes on the next SyncWithStore.
type Registry struct {
	mu        sync.Mutex
	nodes     map[string]*Node  // hostname -> node
	agents    map[string]string // agent ID -> hostname
	newAgents map[string]string // agent ID -> hostname, waiting for sync
	seq       uint64
}

func NewRegistry() *Registry {
	return &Registry{
		nodes:     make(map[string]*Node),
		agents:    make(map[string]string),
		newAgents: make(map[string]string),
	}
}

// RegisterAgents records agents seen in offers that do not yet map to an online node.
func (r *Registry) RegisterAgents(agents []Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range agents {
		if hostname, ok := r.agents[a.AgentID]; ok {
			if n := r.nodes[hostname]; n != nil && n.IsOnline() {
				continue
			}
		}
		r.newAgents[a.AgentID] = a.Hostname
	}
}

// HasNewAgents reports agents waiting for the next SyncWithStore.
func (r *Registry) HasNewAgents() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.newAgents) > 0
}

// LostNode marks the agent's node offline. It returns the node, or nil for an unknown agent.
func (r *Registry) LostNode(agentID string) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.newAgents, agentID)
	hostname, ok := r.agents[agentID]
	if !ok {
		return nil
	}
	delete(r.agents, agentID)
	n := r.nodes[hostname]
	if n == nil {
		return nil
	}
	n.UpdateFromCluster("", false)
	log.WithFields(log.Fields{"agentID": agentID, "hostname": hostname}).Warn("Node lost")
	return n
}

// SyncWithStore reconciles the in-memory nodes with the persisted records. The store is only
// called while the registry lock is released.
func (r *Registry) SyncWithStore(ctx context.Context, st Store, scaleImage string) error {
	r.mu.Lock()
	readSeq := r.seq
	newAgents := make(map[string]string, len(r.newAgents))
	hostSet := make(map[string]bool)
	for hostname := range r.nodes {
		hostSet[hostname] = true
	}
	for agentID, hostname := range r.newAgents {
		newAgents[agentID] = hostname
		hostSet[hostname] = true
	}
	r.mu.Unlock()

	records, err := st.LoadActiveNodes(ctx, sortedKeys(hostSet))
	if err != nil {
		return errors.Wrap(err, "loading node records")
	}
	known := make(map[string]store.NodeRecord, len(records))
	for _, rec := range records {
		known[rec.Hostname] = rec
	}
	var createHosts, createAgents []string
	for _, agentID := range sortedKeys(newAgents) {
		hostname := newAgents[agentID]
		if _, ok := known[hostname]; !ok && !contains(createHosts, hostname) {
			createHosts = append(createHosts, hostname)
			createAgents = append(createAgents, agentID)
		}
	}
	if len(createHosts) > 0 {
		created, err := st.CreateNodes(ctx, createHosts, createAgents)
		if err != nil {
			return errors.Wrapf(err, "creating node records for %v", createHosts)
		}
		for _, rec := range created {
			known[rec.Hostname] = rec
			records = append(records, rec)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, agentID := range sortedKeys(newAgents) {
		hostname := newAgents[agentID]
		// Lost or re-registered on another host while the store was being read.
		if r.newAgents[agentID] != hostname {
			continue
		}
		delete(r.newAgents, agentID)
		if n, ok := r.nodes[hostname]; ok {
			if old := n.AgentID(); old != "" && old != agentID {
				delete(r.agents, old)
			}
			n.UpdateFromCluster(agentID, true)
			r.agents[agentID] = hostname
		} else if rec, ok := known[hostname]; ok {
			r.nodes[hostname] = newNode(agentID, rec, scaleImage)
			r.agents[agentID] = hostname
			log.WithFields(log.Fields{"agentID": agentID, "hostname": hostname}).Info("New node")
		}
	}

	for _, rec := range records {
		if n, ok := r.nodes[rec.Hostname]; ok {
			n.UpdateFromStore(rec, readSeq)
		} else if rec.IsActive {
			r.nodes[rec.Hostname] = newNode("", rec, scaleImage)
		}
	}

	for hostname, n := range r.nodes {
		if !n.IsActive() && !n.IsOnline() {
			delete(r.nodes, hostname)
			if agentID := n.AgentID(); r.agents[agentID] == hostname {
				delete(r.agents, agentID)
			}
			continue
		}
		n.setScaleImage(scaleImage)
	}
	return nil
}

// PauseNode pauses the agent's node in memory and returns it; the caller persists the change.
func (r *Registry) PauseNode(agentID, reason string) (*Node, bool) {
	return r.setPaused(agentID, true, reason)
}

// ResumeNode is the inverse of PauseNode.
func (r *Registry) ResumeNode(agentID string) (*Node, bool) {
	return r.setPaused(agentID, false, "")
}

func (r *Registry) setPaused(agentID string, paused bool, reason string) (*Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.byAgent(agentID)
	if n == nil {
		return nil, false
	}
	r.seq++
	n.setPaused(paused, reason, r.seq)
	log.WithFields(log.Fields{"hostname": n.Hostname(), "paused": paused, "reason": reason}).Info("Node pause changed")
	return n, true
}

// GetNode returns the node of an agent.
func (r *Registry) GetNode(agentID string) (*Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.byAgent(agentID)
	return n, n != nil
}

// GetNodes returns every node ordered by hostname.
func (r *Registry) GetNodes() []*Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	nodes := make([]*Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Hostname() < nodes[j].Hostname() })
	return nodes
}

// NextTasks collects the maintenance tasks due on every node.
func (r *Registry) NextTasks(now time.Time) []*task.Task {
	var tasks []*task.Task
	for _, n := range r.GetNodes() {
		tasks = append(tasks, n.NextTasks(now)...)
	}
	return tasks
}

// HandleTaskUpdate routes an updated maintenance task to its node. It reports whether a node
// owned the task.
func (r *Registry) HandleTaskUpdate(t *task.Task) bool {
	n, ok := r.GetNode(t.AgentID())
	return ok && n.HandleTaskUpdate(t)
}

// AddJobExecutionsToCleanup queues finished executions for cleanup on their node.
func (r *Registry) AddJobExecutionsToCleanup(agentID string, executionIDs []string) {
	if n, ok := r.GetNode(agentID); ok {
		n.AddJobExecutionsToCleanup(executionIDs)
	}
}

// Counts returns the number of nodes per state.
func (r *Registry) Counts() map[State]int {
	counts := make(map[State]int)
	for _, n := range r.GetNodes() {
		counts[n.State()]++
	}
	return counts
}

func (r *Registry) byAgent(agentID string) *Node {
	hostname, ok := r.agents[agentID]
	if !ok {
		return nil
	}
	return r.nodes[hostname]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
