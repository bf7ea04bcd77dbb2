package server

import (
	"time"

	"github.com/ngageoint/scale/scheduler/node"
	"github.com/ngageoint/scale/scheduler/offer"
	"github.com/ngageoint/scale/scheduler/resources"
)

// Snapshot is the scheduler status served at /status.
type Snapshot struct {
	Timestamp  time.Time          `json:"timestamp"`
	Cluster    ClusterResources   `json:"resources"`
	NodeCounts map[node.State]int `json:"node_counts"`
	Nodes      []NodeSnapshot     `json:"nodes"`
	Executions ExecutionCounts    `json:"job_executions"`
	Tasks      int                `json:"active_tasks"`
	HeldOffers int                `json:"held_offers"`
}

type ClusterResources struct {
	Offered   resources.Resources `json:"offered"`
	Task      resources.Resources `json:"running"`
	Watermark resources.Resources `json:"watermark"`
}

// NodeSnapshot joins a node's status with its resources and offer ledger.
type NodeSnapshot struct {
	node.Status
	Resources *resources.NodeResources `json:"resources,omitempty"`
	Offers    *offer.Status            `json:"offers,omitempty"`
}

type ExecutionCounts struct {
	Running int            `json:"running"`
	ByType  map[string]int `json:"by_job_type"`
}

func (s *ClusterScheduler) GenerateStatusSnapshot() *Snapshot {
	offered, task, watermark := s.resources.ClusterTotals()
	snap := &Snapshot{
		Timestamp:  s.clk.Now().UTC(),
		Cluster:    ClusterResources{Offered: offered, Task: task, Watermark: watermark},
		NodeCounts: s.nodes.Counts(),
		Executions: ExecutionCounts{Running: s.jobs.Len(), ByType: s.jobs.Counts()},
		Tasks:      s.tasks.Len(),
		HeldOffers: s.resources.NumOffers(),
	}

	snapshots := s.resources.Snapshots()
	ledgers := make(map[string]offer.Status)
	for _, st := range s.offers.Statuses() {
		ledgers[st.AgentID] = st
	}
	for _, n := range s.nodes.GetNodes() {
		ns := NodeSnapshot{Status: n.Status()}
		if ns.AgentID != "" {
			if nr, ok := snapshots[ns.AgentID]; ok {
				ns.Resources = nr
			}
			if st, ok := ledgers[ns.AgentID]; ok {
				ns.Offers = &st
			}
		}
		snap.Nodes = append(snap.Nodes, ns)
	}
	return snap
}
