package offer

import (
	"fmt"
	"sort"

	"github.com/luci/go-render/render"

	"github.com/ngageoint/scale/scheduler/job"
	"github.com/ngageoint/scale/scheduler/resources"
	"github.com/ngageoint/scale/scheduler/task"
)

// Node is what admission needs to know about a node. *node.Node implements it.
type Node interface {
	AgentID() string
	Hostname() string
	IsOnline() bool
	IsPaused() bool
	IsReadyForJobs() bool
}

// NodeOffers is the ledger of one node: the offers it holds and the work provisionally accepted
// against them. Acceptance debits the available resources until the work is popped for launch.
// Not safe for concurrent use, the Registry serializes access.
type NodeOffers struct {
	node      Node
	offers    map[string]*resources.Offer
	available resources.Resources

	acceptedNew     map[string]*job.QueuedExecution
	acceptedRunning map[string]*job.RunningExecution
	acceptedTasks   map[string]*task.Task
}

func newNodeOffers(n Node) *NodeOffers {
	no := &NodeOffers{node: n, offers: make(map[string]*resources.Offer)}
	no.clearAccepted()
	return no
}

func (no *NodeOffers) clearAccepted() {
	no.acceptedNew = make(map[string]*job.QueuedExecution)
	no.acceptedRunning = make(map[string]*job.RunningExecution)
	no.acceptedTasks = make(map[string]*task.Task)
}

func (no *NodeOffers) hasAccepted() bool {
	return len(no.acceptedNew)+len(no.acceptedRunning)+len(no.acceptedTasks) > 0
}

func (no *NodeOffers) acceptedTotal() resources.Resources {
	var total resources.Resources
	for _, q := range no.acceptedNew {
		total = total.Add(q.Required)
	}
	for _, e := range no.acceptedRunning {
		total = total.Add(e.Required())
	}
	for _, t := range no.acceptedTasks {
		total = total.Add(t.Resources())
	}
	return total
}

func (no *NodeOffers) addOffers(offers []*resources.Offer) {
	for _, o := range offers {
		if _, ok := no.offers[o.ID]; ok {
			continue
		}
		no.offers[o.ID] = o
		no.available = no.available.Add(o.Resources)
	}
}

// removeOffers drops the offers it holds from ids. When the remaining resources cannot cover
// what was removed, every accepted item is cleared and the available resources are recomputed
// from the remaining offers alone. Returns the number of offers removed.
func (no *NodeOffers) removeOffers(ids []string) int {
	var removed resources.Resources
	n := 0
	for _, id := range ids {
		if o, ok := no.offers[id]; ok {
			removed = removed.Add(o.Resources)
			delete(no.offers, id)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	if no.available.IsSufficientToMeet(removed) {
		no.available = no.available.Subtract(removed)
		return n
	}
	no.clearAccepted()
	no.available = resources.TotalOf(no.offerList())
	return n
}

func (no *NodeOffers) offerList() []*resources.Offer {
	offers := make([]*resources.Offer, 0, len(no.offers))
	for _, o := range no.offers {
		offers = append(offers, o)
	}
	sort.Slice(offers, func(i, j int) bool { return offers[i].ID < offers[j].ID })
	return offers
}

// checkResources debits required on success.
func (no *NodeOffers) checkResources(required resources.Resources) Result {
	if len(no.offers) == 0 {
		return NoOffers
	}
	if short := no.available.Shortfall(required); len(short) > 0 {
		// cpu, then memory (shared memory included), then disk
		result := NotEnoughDisk
		for _, name := range short {
			switch name {
			case resources.Cpus:
				return NotEnoughCpus
			case resources.Mem, resources.SharedMem:
				result = NotEnoughMem
			}
		}
		return result
	}
	no.available = no.available.Subtract(required)
	return Accepted
}

func (no *NodeOffers) checkJobNode() Result {
	switch {
	case !no.node.IsOnline():
		return NodeOffline
	case no.node.IsPaused():
		return NodePaused
	case !no.node.IsReadyForJobs():
		return NodeNotReady
	}
	return Accepted
}

func (no *NodeOffers) considerNewWork(q *job.QueuedExecution) Result {
	if _, ok := no.acceptedNew[q.ID]; ok {
		return Accepted
	}
	if r := no.checkJobNode(); r != Accepted {
		return r
	}
	r := no.checkResources(q.Required)
	if r == Accepted {
		no.acceptedNew[q.ID] = q
	}
	return r
}

func (no *NodeOffers) considerNextTask(e *job.RunningExecution) Result {
	if _, ok := no.acceptedRunning[e.ID()]; ok {
		return Accepted
	}
	if r := no.checkJobNode(); r != Accepted {
		return r
	}
	r := no.checkResources(e.Required())
	if r == Accepted {
		no.acceptedRunning[e.ID()] = e
	}
	return r
}

// Maintenance tasks run on paused and not yet ready nodes.
func (no *NodeOffers) considerNodeTask(t *task.Task) Result {
	if _, ok := no.acceptedTasks[t.ID()]; ok {
		return Accepted
	}
	if !no.node.IsOnline() {
		return NodeOffline
	}
	r := no.checkResources(t.Resources())
	if r == Accepted {
		no.acceptedTasks[t.ID()] = t
	}
	return r
}

// popAccepted hands over the accepted work and credits its debit back. The offers stay held
// until the caller removes the ones it launched with.
func (no *NodeOffers) popAccepted() *AcceptedWork {
	w := &AcceptedWork{
		AgentID:  no.node.AgentID(),
		Hostname: no.node.Hostname(),
		Required: no.acceptedTotal(),
	}
	for _, id := range sortedKeys(no.acceptedTasks) {
		w.NodeTasks = append(w.NodeTasks, no.acceptedTasks[id])
	}
	for _, id := range sortedKeys(no.acceptedRunning) {
		w.RunningWork = append(w.RunningWork, no.acceptedRunning[id])
	}
	for _, id := range sortedKeys(no.acceptedNew) {
		w.NewWork = append(w.NewWork, no.acceptedNew[id])
	}
	no.available = no.available.Add(w.Required)
	no.clearAccepted()
	return w
}

func (no *NodeOffers) status() Status {
	return Status{
		AgentID:          no.node.AgentID(),
		Hostname:         no.node.Hostname(),
		NumOffers:        len(no.offers),
		Available:        no.available,
		AcceptedNew:      len(no.acceptedNew),
		AcceptedRunning:  len(no.acceptedRunning),
		AcceptedNodeTask: len(no.acceptedTasks),
	}
}

func (no *NodeOffers) String() string {
	return fmt.Sprintf("{agent:%s, offers:%d, available:%s, accepted:%s}",
		no.node.AgentID(), len(no.offers), no.available,
		render.Render(map[string][]string{
			"new":     sortedKeys(no.acceptedNew),
			"running": sortedKeys(no.acceptedRunning),
			"tasks":   sortedKeys(no.acceptedTasks),
		}))
}

// AcceptedWork is everything accepted on one node in a scheduling cycle.
type AcceptedWork struct {
	AgentID     string
	Hostname    string
	Required    resources.Resources
	NodeTasks   []*task.Task
	RunningWork []*job.RunningExecution
	NewWork     []*job.QueuedExecution
}

// Status of a ledger for status reporting.
type Status struct {
	AgentID          string              `json:"agent_id"`
	Hostname         string              `json:"hostname"`
	NumOffers        int                 `json:"num_offers"`
	Available        resources.Resources `json:"available"`
	AcceptedNew      int                 `json:"accepted_new"`
	AcceptedRunning  int                 `json:"accepted_running"`
	AcceptedNodeTask int                 `json:"accepted_node_tasks"`
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
