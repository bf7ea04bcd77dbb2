package resources

import (
	"fmt"
	"time"
)

// Offer is a time-boxed grant of resources on one agent, revocable by the cluster manager.
type Offer struct {
	ID         string
	AgentID    string
	Hostname   string
	Resources  Resources
	ReceivedAt time.Time
}

func (o *Offer) String() string {
	return fmt.Sprintf("{offer:%s, agent:%s, host:%s, resources:%s, received:%s}",
		o.ID, o.AgentID, o.Hostname, o.Resources, o.ReceivedAt.Format(time.RFC3339))
}

// OfferIDs extracts the IDs of the given offers, preserving order.
func OfferIDs(offers []*Offer) []string {
	ids := make([]string, 0, len(offers))
	for _, o := range offers {
		ids = append(ids, o.ID)
	}
	return ids
}

// TotalOf sums the resources of the given offers.
func TotalOf(offers []*Offer) Resources {
	total := Resources{}
	for _, o := range offers {
		total = total.Add(o.Resources)
	}
	return total
}

// Consumer is anything that holds resources on an agent, typically a launched task.
type Consumer interface {
	AgentID() string
	Resources() Resources
}
