package resources

import (
	"sort"
	"time"
)

// Offers held longer than this are returned on the next allocation whether or not they were asked for.
const DefaultOfferHoldDuration = 10 * time.Second

// NodeResources is a point-in-time view of one agent's resources.
type NodeResources struct {
	AgentID   string    `json:"agent_id"`
	Offered   Resources `json:"offered"`
	Task      Resources `json:"task"`
	Watermark Resources `json:"watermark"`
	Shortage  Resources `json:"shortage"`
	NumOffers int       `json:"num_offers"`
}

// Free is what the agent has offered but no task is using yet.
func (n *NodeResources) Free() Resources {
	return n.Offered
}

// AgentAccount is the ledger of offered, consumed-by-task and watermark resources for one agent.
// It is not safe for concurrent use; Registry serializes access.
type AgentAccount struct {
	agentID   string
	offers    map[string]*Offer
	offered   Resources // always the sum of offers
	task      Resources
	watermark Resources
	// Raised alongside watermark and promoted into it periodically, so a transient spike
	// only keeps the watermark inflated for one reset period.
	recentWatermark Resources
	shortage        Resources
	holdDuration    time.Duration
}

func newAgentAccount(agentID string, holdDuration time.Duration) *AgentAccount {
	return &AgentAccount{
		agentID:      agentID,
		offers:       make(map[string]*Offer),
		holdDuration: holdDuration,
	}
}

// refresh adds offers not already held, replaces the task total from the given tasks and raises the watermarks.
func (a *AgentAccount) refresh(newOffers []*Offer, tasks []Consumer) *NodeResources {
	for _, o := range newOffers {
		if _, ok := a.offers[o.ID]; ok {
			continue
		}
		a.offers[o.ID] = o
		a.offered = a.offered.Add(o.Resources)
	}

	a.task = Resources{}
	for _, t := range tasks {
		a.task = a.task.Add(t.Resources())
	}

	total := a.offered.Add(a.task)
	a.watermark = a.watermark.IncreaseUpTo(total)
	a.recentWatermark = a.recentWatermark.IncreaseUpTo(total)
	return a.snapshot()
}

// allocateOffers removes and returns offers for the requested resources. Offers held past the hold
// duration are always included. Further offers are only handed out when the account holds enough in
// total, and then greedily (oldest first) until the request is met. The result may fall short of the request.
func (a *AgentAccount) allocateOffers(requested Resources, now time.Time) []*Offer {
	sufficient := a.offered.IsSufficientToMeet(requested)

	var allocated []*Offer
	allocatedTotal := Resources{}
	var remaining []*Offer
	for _, o := range a.sortedOffers() {
		if now.Sub(o.ReceivedAt) > a.holdDuration {
			allocated = append(allocated, o)
			allocatedTotal = allocatedTotal.Add(o.Resources)
		} else {
			remaining = append(remaining, o)
		}
	}

	if sufficient {
		for _, o := range remaining {
			if allocatedTotal.IsSufficientToMeet(requested) {
				break
			}
			allocated = append(allocated, o)
			allocatedTotal = allocatedTotal.Add(o.Resources)
		}
	}

	for _, o := range allocated {
		a.removeOffer(o.ID)
	}
	return allocated
}

// takeAllOffers removes and returns every held offer.
func (a *AgentAccount) takeAllOffers() []*Offer {
	offers := a.sortedOffers()
	a.offers = make(map[string]*Offer)
	a.offered = Resources{}
	return offers
}

// rescindOffers drops any of the given offers this account holds and reports how many were dropped.
func (a *AgentAccount) rescindOffers(ids []string) int {
	removed := 0
	for _, id := range ids {
		if a.removeOffer(id) {
			removed++
		}
	}
	return removed
}

func (a *AgentAccount) removeOffer(id string) bool {
	o, ok := a.offers[id]
	if !ok {
		return false
	}
	delete(a.offers, id)
	a.offered = a.offered.Subtract(o.Resources)
	if len(a.offers) == 0 {
		// Avoid carrying floating point residue once nothing is held.
		a.offered = Resources{}
	}
	return true
}

// resetWatermark promotes the recent watermark and starts a new observation window.
func (a *AgentAccount) resetWatermark() {
	a.watermark = a.recentWatermark
	a.recentWatermark = Resources{}
}

func (a *AgentAccount) setShortage(shortage Resources) {
	a.shortage = shortage
}

func (a *AgentAccount) sortedOffers() []*Offer {
	offers := make([]*Offer, 0, len(a.offers))
	for _, o := range a.offers {
		offers = append(offers, o)
	}
	sort.Slice(offers, func(i, j int) bool {
		if offers[i].ReceivedAt.Equal(offers[j].ReceivedAt) {
			return offers[i].ID < offers[j].ID
		}
		return offers[i].ReceivedAt.Before(offers[j].ReceivedAt)
	})
	return offers
}

func (a *AgentAccount) snapshot() *NodeResources {
	return &NodeResources{
		AgentID:   a.agentID,
		Offered:   a.offered,
		Task:      a.task,
		Watermark: a.watermark,
		Shortage:  a.shortage,
		NumOffers: len(a.offers),
	}
}
