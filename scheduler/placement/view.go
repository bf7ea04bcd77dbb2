// Package placement scores nodes for work during one scheduling cycle. A score counts how many
// known job type profiles would still fit on the node after placing the work; lower is a denser
// fit and is preferred.
package placement

import (
	"fmt"
	"sort"

	"github.com/ngageoint/scale/scheduler/resources"
)

// View is the snapshot of one node for a single scheduling cycle.
type View struct {
	AgentID   string
	Hostname  string
	offered   resources.Resources
	task      resources.Resources
	watermark resources.Resources
	allocated resources.Resources

	reserved    bool
	reservedFor int // priority of the work holding the reservation
}

func NewView(agentID, hostname string, nr *resources.NodeResources) *View {
	v := &View{AgentID: agentID, Hostname: hostname}
	if nr != nil {
		v.offered, v.task, v.watermark = nr.Offered, nr.Task, nr.Watermark
	}
	return v
}

// Remaining is the offered capacity not yet allocated this cycle.
func (v *View) Remaining() resources.Resources {
	return v.offered.Subtract(v.allocated)
}

// AddAllocated records work placed on the node this cycle.
func (v *View) AddAllocated(r resources.Resources) {
	v.allocated = v.allocated.Add(r)
}

// ScoreForScheduling scores the node for work requiring required. It returns false when the
// remaining offered resources cannot fit the work.
func (v *View) ScoreForScheduling(required resources.Resources, profiles []resources.Resources) (int, bool) {
	if !v.Remaining().IsSufficientToMeet(required) {
		return 0, false
	}
	left := v.watermark.Subtract(v.task).Subtract(v.allocated).Subtract(required)
	return countFits(left, profiles), true
}

// ScoreForReservation is a coarser score against the watermark only, for nodes that cannot
// take the work right now but could once running work finishes.
func (v *View) ScoreForReservation(required resources.Resources, profiles []resources.Resources) (int, bool) {
	if !v.watermark.IsSufficientToMeet(required) {
		return 0, false
	}
	return countFits(v.watermark.Subtract(required), profiles), true
}

func (v *View) String() string {
	return fmt.Sprintf("{agent:%s, remaining:%s, watermark:%s, reserved:%t}",
		v.AgentID, v.Remaining(), v.watermark, v.reserved)
}

// Work less important than the reservation, a higher priority value, stays off the node.
func (v *View) skips(priority int) bool {
	return v.reserved && v.reservedFor < priority
}

func countFits(left resources.Resources, profiles []resources.Resources) int {
	n := 0
	for _, p := range profiles {
		if left.IsSufficientToMeet(p) {
			n++
		}
	}
	return n
}

// Views holds the views of every node for one cycle.
type Views struct {
	views    map[string]*View
	profiles []resources.Resources
}

func NewViews(views []*View, profiles []resources.Resources) *Views {
	vs := &Views{views: make(map[string]*View, len(views)), profiles: profiles}
	for _, v := range views {
		vs.views[v.AgentID] = v
	}
	return vs
}

func (vs *Views) Get(agentID string) (*View, bool) {
	v, ok := vs.views[agentID]
	return v, ok
}

func (vs *Views) AddAllocated(agentID string, r resources.Resources) {
	if v, ok := vs.views[agentID]; ok {
		v.AddAllocated(r)
	}
}

// Rank orders agent IDs for work of the given priority: scored nodes by ascending score, then
// unscored nodes, agent ID breaking ties. Nodes reserved for more important work are left out.
func (vs *Views) Rank(required resources.Resources, priority int) []string {
	type ranked struct {
		agentID string
		score   int
		ok      bool
	}
	all := make([]ranked, 0, len(vs.views))
	for agentID, v := range vs.views {
		if v.skips(priority) {
			continue
		}
		score, ok := v.ScoreForScheduling(required, vs.profiles)
		all = append(all, ranked{agentID, score, ok})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].ok != all[j].ok {
			return all[i].ok
		}
		if all[i].ok && all[i].score != all[j].score {
			return all[i].score < all[j].score
		}
		return all[i].agentID < all[j].agentID
	})
	order := make([]string, len(all))
	for i, r := range all {
		order[i] = r.agentID
	}
	return order
}

// Reserve picks the best node by ScoreForReservation among the unreserved ones and holds it for
// the rest of the cycle against work less important than priority. It returns the shortage of
// that node, what it lacks to run the work now.
func (vs *Views) Reserve(required resources.Resources, priority int) (string, resources.Resources, bool) {
	best, bestScore := "", 0
	for agentID, v := range vs.views {
		if v.reserved {
			continue
		}
		score, ok := v.ScoreForReservation(required, vs.profiles)
		if !ok {
			continue
		}
		if best == "" || score < bestScore || (score == bestScore && agentID < best) {
			best, bestScore = agentID, score
		}
	}
	if best == "" {
		return "", resources.Resources{}, false
	}
	v := vs.views[best]
	v.reserved, v.reservedFor = true, priority
	return best, required.Subtract(v.Remaining()), true
}

// IsReserved reports whether work of the given priority must skip the node.
func (vs *Views) IsReserved(agentID string, priority int) bool {
	v, ok := vs.views[agentID]
	return ok && v.skips(priority)
}
