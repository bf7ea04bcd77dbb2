package resources

import (
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// How often the recent watermark of every agent is promoted into its primary watermark.
const DefaultWatermarkResetPeriod = 5 * time.Minute

// Registry aggregates the AgentAccount of every agent.
//
// Offers arrive from driver callbacks through AddNewOffers and are parked until the next Refresh,
// which hands them to their agent's account. All methods are safe for concurrent use; the lock is
// only held for in-memory bookkeeping.
type Registry struct {
	mu                   sync.Mutex
	agents               map[string]*AgentAccount
	newOffers            []*Offer
	lastWatermarkReset   time.Time
	watermarkResetPeriod time.Duration
	offerHoldDuration    time.Duration
}

func NewRegistry() *Registry {
	return NewRegistryWithDurations(DefaultOfferHoldDuration, DefaultWatermarkResetPeriod)
}

func NewRegistryWithDurations(offerHold, watermarkReset time.Duration) *Registry {
	return &Registry{
		agents:               make(map[string]*AgentAccount),
		watermarkResetPeriod: watermarkReset,
		offerHoldDuration:    offerHold,
	}
}

// AddNewOffers parks offers until the next Refresh.
func (r *Registry) AddNewOffers(offers []*Offer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.newOffers = append(r.newOffers, offers...)
}

// Refresh groups parked offers and the given tasks by agent, refreshes every account and
// periodically resets watermarks. It returns a snapshot per agent.
func (r *Registry) Refresh(tasks []Consumer, now time.Time) map[string]*NodeResources {
	r.mu.Lock()
	defer r.mu.Unlock()

	offersByAgent := make(map[string][]*Offer)
	for _, o := range r.newOffers {
		offersByAgent[o.AgentID] = append(offersByAgent[o.AgentID], o)
	}
	r.newOffers = nil

	tasksByAgent := make(map[string][]Consumer)
	for _, t := range tasks {
		tasksByAgent[t.AgentID()] = append(tasksByAgent[t.AgentID()], t)
	}

	for agentID := range offersByAgent {
		r.getOrCreate(agentID)
	}
	for agentID := range tasksByAgent {
		r.getOrCreate(agentID)
	}

	if r.lastWatermarkReset.IsZero() {
		r.lastWatermarkReset = now
	} else if now.Sub(r.lastWatermarkReset) >= r.watermarkResetPeriod {
		log.Debugf("Resetting watermarks for %d agents", len(r.agents))
		for _, a := range r.agents {
			a.resetWatermark()
		}
		r.lastWatermarkReset = now
	}

	snapshots := make(map[string]*NodeResources, len(r.agents))
	for agentID, a := range r.agents {
		snapshots[agentID] = a.refresh(offersByAgent[agentID], tasksByAgent[agentID])
	}
	return snapshots
}

// AllocateOffers takes offers from the agent's account for the requested resources, see AgentAccount.
func (r *Registry) AllocateOffers(agentID string, requested Resources, now time.Time) []*Offer {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return nil
	}
	return a.allocateOffers(requested, now)
}

// TakeAllOffers empties every account and returns what they held, so the caller can decline them.
func (r *Registry) TakeAllOffers() []*Offer {
	r.mu.Lock()
	defer r.mu.Unlock()
	var offers []*Offer
	for _, agentID := range r.sortedAgentIDs() {
		offers = append(offers, r.agents[agentID].takeAllOffers()...)
	}
	return offers
}

// RescindOffers drops the given offers wherever they are held, including offers not yet refreshed.
func (r *Registry) RescindOffers(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rescinded := make(map[string]bool, len(ids))
	for _, id := range ids {
		rescinded[id] = true
	}
	kept := r.newOffers[:0]
	for _, o := range r.newOffers {
		if !rescinded[o.ID] {
			kept = append(kept, o)
		}
	}
	r.newOffers = kept

	for _, a := range r.agents {
		a.rescindOffers(ids)
	}
}

// LostAgent drops the agent's account along with all of its held and parked offers.
func (r *Registry) LostAgent(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.newOffers[:0]
	for _, o := range r.newOffers {
		if o.AgentID != agentID {
			kept = append(kept, o)
		}
	}
	r.newOffers = kept

	if a, ok := r.agents[agentID]; ok {
		a.takeAllOffers()
		delete(r.agents, agentID)
		log.WithField("agentID", agentID).Info("Dropped resources of lost agent")
	}
}

// SetShortages records the given shortage per agent and clears it everywhere else.
func (r *Registry) SetShortages(shortages map[string]Resources) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for agentID, a := range r.agents {
		a.setShortage(shortages[agentID])
	}
}

// Snapshot returns the current resources of one agent.
func (r *Registry) Snapshot(agentID string) (*NodeResources, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return nil, false
	}
	return a.snapshot(), true
}

// Snapshots returns the current resources of every agent without refreshing.
func (r *Registry) Snapshots() map[string]*NodeResources {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshots := make(map[string]*NodeResources, len(r.agents))
	for agentID, a := range r.agents {
		snapshots[agentID] = a.snapshot()
	}
	return snapshots
}

// ClusterTotals sums offered, task and watermark resources over all agents.
func (r *Registry) ClusterTotals() (offered, task, watermark Resources) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.agents {
		offered = offered.Add(a.offered)
		task = task.Add(a.task)
		watermark = watermark.Add(a.watermark)
	}
	return offered, task, watermark
}

// NumOffers counts every offer held by an account.
func (r *Registry) NumOffers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.agents {
		n += len(a.offers)
	}
	return n
}

func (r *Registry) getOrCreate(agentID string) *AgentAccount {
	a, ok := r.agents[agentID]
	if !ok {
		a = newAgentAccount(agentID, r.offerHoldDuration)
		r.agents[agentID] = a
	}
	return a
}

func (r *Registry) sortedAgentIDs() []string {
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
