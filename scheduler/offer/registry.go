package offer

import (
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/ngageoint/scale/scheduler/job"
	"github.com/ngageoint/scale/scheduler/resources"
	"github.com/ngageoint/scale/scheduler/task"
)

// Registry holds a NodeOffers ledger per known node and answers admission questions across
// them. New offers are parked until ReadyNewOffers so a scheduling cycle sees a stable set.
type Registry struct {
	mu        sync.Mutex
	ledgers   map[string]*NodeOffers // agent ID -> ledger
	newOffers map[string]*resources.Offer
}

func NewRegistry() *Registry {
	return &Registry{
		ledgers:   make(map[string]*NodeOffers),
		newOffers: make(map[string]*resources.Offer),
	}
}

// AddNewOffers parks offers until the next ReadyNewOffers.
func (r *Registry) AddNewOffers(offers []*resources.Offer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range offers {
		r.newOffers[o.ID] = o
	}
}

// UpdateNodes replaces the set of nodes. Ledgers of agents no longer present are dropped along
// with their offers, new agents get an empty ledger.
func (r *Registry) UpdateNodes(nodes []Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	present := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		if agentID := n.AgentID(); agentID != "" {
			present[agentID] = n
		}
	}
	for agentID := range r.ledgers {
		if _, ok := present[agentID]; !ok {
			delete(r.ledgers, agentID)
		}
	}
	for agentID, n := range present {
		if ledger, ok := r.ledgers[agentID]; ok {
			ledger.node = n
		} else {
			r.ledgers[agentID] = newNodeOffers(n)
		}
	}
}

// ReadyNewOffers moves parked offers into their node's ledger. Offers for agents without a
// node stay parked.
func (r *Registry) ReadyNewOffers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, o := range r.newOffers {
		if ledger, ok := r.ledgers[o.AgentID]; ok {
			ledger.addOffers([]*resources.Offer{o})
			delete(r.newOffers, id)
		}
	}
}

// RemoveOffers drops offers that were rescinded, declined or used for a launch.
func (r *Registry) RemoveOffers(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.newOffers, id)
	}
	for _, agentID := range sortedKeys(r.ledgers) {
		ledger := r.ledgers[agentID]
		hadAccepted := ledger.hasAccepted()
		if ledger.removeOffers(ids) > 0 && hadAccepted && !ledger.hasAccepted() {
			log.WithFields(log.Fields{"agentID": agentID}).Info("Offers removed, cleared accepted work")
		}
	}
}

// LostNode drops the ledger and the parked offers of the agent.
func (r *Registry) LostNode(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ledgers, agentID)
	for id, o := range r.newOffers {
		if o.AgentID == agentID {
			delete(r.newOffers, id)
		}
	}
}

// ConsiderNewWork tries the queued execution on the nodes in order, the agent IDs to visit,
// or on every node by agent ID when order is nil. Nodes failing the execution's affinity are
// skipped. It returns the agent that accepted it, or the most common rejection.
func (r *Registry) ConsiderNewWork(q *job.QueuedExecution, order []string) (Result, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order == nil {
		order = sortedKeys(r.ledgers)
	}
	counts := make(map[Result]int)
	for _, agentID := range order {
		ledger, ok := r.ledgers[agentID]
		if !ok || !q.IsNodeAcceptable(ledger.node.Hostname()) {
			continue
		}
		result := ledger.considerNewWork(q)
		if result == Accepted {
			return Accepted, agentID
		}
		counts[result]++
	}
	return mostCommonRejection(counts), ""
}

// ConsiderNextTask tries the next step of a running execution on its own node.
func (r *Registry) ConsiderNextTask(e *job.RunningExecution) Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	ledger, ok := r.ledgers[e.AgentID()]
	if !ok {
		return NodeOffline
	}
	return ledger.considerNextTask(e)
}

// ConsiderNodeTask tries a maintenance task on its node.
func (r *Registry) ConsiderNodeTask(t *task.Task) Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	ledger, ok := r.ledgers[t.AgentID()]
	if !ok {
		return NodeOffline
	}
	return ledger.considerNodeTask(t)
}

// PopOffersWithAccepted hands over the work accepted on each node, ordered by agent ID.
func (r *Registry) PopOffersWithAccepted() []*AcceptedWork {
	r.mu.Lock()
	defer r.mu.Unlock()
	var accepted []*AcceptedWork
	for _, agentID := range sortedKeys(r.ledgers) {
		if ledger := r.ledgers[agentID]; ledger.hasAccepted() {
			accepted = append(accepted, ledger.popAccepted())
		}
	}
	return accepted
}

// Available returns the unaccepted resources held for an agent.
func (r *Registry) Available(agentID string) (resources.Resources, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ledger, ok := r.ledgers[agentID]
	if !ok {
		return resources.Resources{}, false
	}
	return ledger.available, true
}

// Statuses returns the state of every ledger ordered by agent ID.
func (r *Registry) Statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	statuses := make([]Status, 0, len(r.ledgers))
	for _, agentID := range sortedKeys(r.ledgers) {
		statuses = append(statuses, r.ledgers[agentID].status())
	}
	return statuses
}

// NumParked is the number of offers waiting for ReadyNewOffers or for their node.
func (r *Registry) NumParked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.newOffers)
}

func (r *Registry) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var b strings.Builder
	for _, id := range sortedKeys(r.ledgers) {
		b.WriteString(r.ledgers[id].String())
		b.WriteString("\n")
	}
	return b.String()
}
