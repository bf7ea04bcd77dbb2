package offer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ngageoint/scale/scheduler/job"
	"github.com/ngageoint/scale/scheduler/resources"
	"github.com/ngageoint/scale/scheduler/task"
)

var t0 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeNode struct {
	agentID, hostname        string
	online, paused, notReady bool
}

func (n *fakeNode) AgentID() string      { return n.agentID }
func (n *fakeNode) Hostname() string     { return n.hostname }
func (n *fakeNode) IsOnline() bool       { return n.online }
func (n *fakeNode) IsPaused() bool       { return n.paused }
func (n *fakeNode) IsReadyForJobs() bool { return !n.notReady }

func readyNode(agentID string) *fakeNode {
	return &fakeNode{agentID: agentID, hostname: "host-" + agentID, online: true}
}

func res(cpus, mem, disk float64) resources.Resources {
	return resources.Resources{Cpus: cpus, Mem: mem, DiskTotal: disk}
}

func newOffer(id, agentID string, r resources.Resources) *resources.Offer {
	return &resources.Offer{ID: id, AgentID: agentID, Hostname: "host-" + agentID, Resources: r, ReceivedAt: t0}
}

func queued(id string, r resources.Resources) *job.QueuedExecution {
	return &job.QueuedExecution{ID: id, JobType: "ingest", Priority: 1, QueuedAt: t0, Required: r,
		Steps: job.DefaultSteps("scale", "ingest", "run")}
}

// A registry with one ready node holding one offer of {cpus:25, mem:2048, disk:2048}.
func setup(nodes ...*fakeNode) *Registry {
	r := NewRegistry()
	var ns []Node
	for _, n := range nodes {
		ns = append(ns, n)
	}
	r.UpdateNodes(ns)
	r.AddNewOffers([]*resources.Offer{newOffer("offer1", nodes[0].agentID, res(25, 2048, 2048))})
	r.ReadyNewOffers()
	return r
}

func available(t *testing.T, r *Registry, agentID string) resources.Resources {
	a, ok := r.Available(agentID)
	require.True(t, ok)
	return a
}

func TestAcceptDebitsLedger(t *testing.T) {
	r := setup(readyNode("agent1"))
	result, agentID := r.ConsiderNewWork(queued("exe1", res(4, 1024, 300)), nil)
	require.Equal(t, Accepted, result)
	require.Equal(t, "agent1", agentID)
	require.True(t, res(21, 1024, 1748).Equal(available(t, r, "agent1")))
}

func TestNotEnoughCpusLeavesLedgerUnchanged(t *testing.T) {
	r := setup(readyNode("agent1"))
	result, _ := r.ConsiderNewWork(queued("exe1", res(200, 1024, 300)), nil)
	require.Equal(t, NotEnoughCpus, result)
	require.True(t, res(25, 2048, 2048).Equal(available(t, r, "agent1")))
}

func TestResourceChecksInOrder(t *testing.T) {
	r := setup(readyNode("agent1"))
	result, _ := r.ConsiderNewWork(queued("exe1", res(1, 4096, 4096)), nil)
	require.Equal(t, NotEnoughMem, result)
	result, _ = r.ConsiderNewWork(queued("exe2", res(1, 1, 4096)), nil)
	require.Equal(t, NotEnoughDisk, result)

	// Shared memory is memory, checked before disk.
	needs := res(1, 1, 4096)
	needs.SharedMem = 64
	result, _ = r.ConsiderNewWork(queued("exe3", needs), nil)
	require.Equal(t, NotEnoughMem, result)
	require.True(t, res(25, 2048, 2048).Equal(available(t, r, "agent1")))
}

func TestPausedNodeRejectsWithoutResourceCheck(t *testing.T) {
	n := readyNode("agent1")
	n.paused = true
	r := setup(n)
	result, _ := r.ConsiderNewWork(queued("exe1", res(200, 1e6, 1e6)), nil)
	require.Equal(t, NodePaused, result)

	e := queued("exe2", res(1, 1, 1)).Schedule("agent1", "host-agent1", t0)
	require.Equal(t, NodePaused, r.ConsiderNextTask(e))

	// Maintenance still runs on paused nodes.
	health := task.New(task.KindHealth, "health", "agent1", "scale", "check", res(0.1, 32, 0))
	require.Equal(t, Accepted, r.ConsiderNodeTask(health))
}

func TestNodeChecksBeforeOffers(t *testing.T) {
	offline := readyNode("agent1")
	offline.online = false
	r := setup(offline)
	result, _ := r.ConsiderNewWork(queued("exe1", res(1, 1, 1)), nil)
	require.Equal(t, NodeOffline, result)

	notReady := readyNode("agent2")
	notReady.notReady = true
	r = setup(notReady)
	result, _ = r.ConsiderNewWork(queued("exe1", res(1, 1, 1)), nil)
	require.Equal(t, NodeNotReady, result)

	r = NewRegistry()
	r.UpdateNodes([]Node{readyNode("agent3")})
	result, _ = r.ConsiderNewWork(queued("exe1", res(1, 1, 1)), nil)
	require.Equal(t, NoOffers, result)
}

func TestAcceptedOnceWithoutDoubleDebit(t *testing.T) {
	r := setup(readyNode("agent1"))
	q := queued("exe1", res(4, 1024, 300))
	for i := 0; i < 3; i++ {
		result, agentID := r.ConsiderNewWork(q, nil)
		require.Equal(t, Accepted, result)
		require.Equal(t, "agent1", agentID)
	}
	require.True(t, res(21, 1024, 1748).Equal(available(t, r, "agent1")))

	popped := r.PopOffersWithAccepted()
	require.Len(t, popped, 1)
	require.Equal(t, []*job.QueuedExecution{q}, popped[0].NewWork)
}

func TestRemovingOfferBelowAcceptedClearsWork(t *testing.T) {
	r := setup(readyNode("agent1"))
	r.AddNewOffers([]*resources.Offer{newOffer("offer2", "agent1", res(2, 512, 100))})
	r.ReadyNewOffers()

	result, _ := r.ConsiderNewWork(queued("exe1", res(20, 2000, 1000)), nil)
	require.Equal(t, Accepted, result)
	result, _ = r.ConsiderNewWork(queued("exe2", res(4, 100, 100)), nil)
	require.Equal(t, Accepted, result)

	r.RemoveOffers([]string{"offer1"})
	require.True(t, res(2, 512, 100).Equal(available(t, r, "agent1")))
	require.Empty(t, r.PopOffersWithAccepted())
}

func TestRemovingCoveredOfferKeepsWork(t *testing.T) {
	r := setup(readyNode("agent1"))
	r.AddNewOffers([]*resources.Offer{newOffer("offer2", "agent1", res(2, 512, 100))})
	r.ReadyNewOffers()

	result, _ := r.ConsiderNewWork(queued("exe1", res(4, 1024, 300)), nil)
	require.Equal(t, Accepted, result)
	r.RemoveOffers([]string{"offer2"})
	require.True(t, res(21, 1024, 1748).Equal(available(t, r, "agent1")))
	require.Len(t, r.PopOffersWithAccepted(), 1)
}

func TestLostNodeDropsLedger(t *testing.T) {
	r := setup(readyNode("agent1"))
	e := queued("exe1", res(1, 1, 1)).Schedule("agent1", "host-agent1", t0)
	require.Equal(t, Accepted, r.ConsiderNextTask(e))

	r.LostNode("agent1")
	_, ok := r.Available("agent1")
	require.False(t, ok)
	require.Empty(t, r.PopOffersWithAccepted())
	require.Equal(t, NodeOffline, r.ConsiderNextTask(e))
}

func TestMostCommonRejection(t *testing.T) {
	small := func(id string) *fakeNode { return readyNode(id) }
	r := NewRegistry()
	r.UpdateNodes([]Node{small("a"), small("b"), small("c")})
	r.AddNewOffers([]*resources.Offer{
		newOffer("o1", "a", res(1, 4096, 4096)),
		newOffer("o2", "b", res(8, 100, 4096)),
		newOffer("o3", "c", res(8, 100, 4096)),
	})
	r.ReadyNewOffers()

	result, _ := r.ConsiderNewWork(queued("exe1", res(4, 1024, 10)), nil)
	require.Equal(t, NotEnoughMem, result)

	// A tie prefers cpus.
	result, _ = r.ConsiderNewWork(queued("exe2", res(4, 1024, 10)), []string{"a", "b"})
	require.Equal(t, NotEnoughCpus, result)

	// No node considered.
	result, _ = r.ConsiderNewWork(queued("exe3", res(1, 1, 1)), []string{})
	require.Equal(t, NoNodesAvailable, result)
}

func TestAffinityAndOrder(t *testing.T) {
	r := NewRegistry()
	r.UpdateNodes([]Node{readyNode("a"), readyNode("b")})
	r.AddNewOffers([]*resources.Offer{
		newOffer("o1", "a", res(8, 4096, 4096)),
		newOffer("o2", "b", res(8, 4096, 4096)),
	})
	r.ReadyNewOffers()

	_, agentID := r.ConsiderNewWork(queued("exe1", res(1, 1, 1)), []string{"b", "a"})
	require.Equal(t, "b", agentID)

	q := queued("exe2", res(1, 1, 1))
	q.Hostname = "host-a"
	_, agentID = r.ConsiderNewWork(q, []string{"b", "a"})
	require.Equal(t, "a", agentID)

	q = queued("exe3", res(1, 1, 1))
	q.Hostname = "elsewhere"
	result, _ := r.ConsiderNewWork(q, nil)
	require.Equal(t, NoNodesAvailable, result)
}

func TestPopCreditsDebitBack(t *testing.T) {
	r := setup(readyNode("agent1"))
	health := task.New(task.KindHealth, "health", "agent1", "scale", "check", res(1, 32, 0))
	e := queued("exe0", res(2, 64, 10)).Schedule("agent1", "host-agent1", t0)
	q := queued("exe1", res(4, 1024, 300))

	require.Equal(t, Accepted, r.ConsiderNodeTask(health))
	require.Equal(t, Accepted, r.ConsiderNextTask(e))
	result, _ := r.ConsiderNewWork(q, nil)
	require.Equal(t, Accepted, result)

	popped := r.PopOffersWithAccepted()
	require.Len(t, popped, 1)
	w := popped[0]
	require.Equal(t, "agent1", w.AgentID)
	require.Equal(t, []*task.Task{health}, w.NodeTasks)
	require.Equal(t, []*job.RunningExecution{e}, w.RunningWork)
	require.Equal(t, []*job.QueuedExecution{q}, w.NewWork)
	require.True(t, res(7, 1120, 310).Equal(w.Required))
	require.True(t, res(25, 2048, 2048).Equal(available(t, r, "agent1")))

	// Launching with the offer removes it.
	r.RemoveOffers([]string{"offer1"})
	require.True(t, available(t, r, "agent1").IsZero())
	require.Contains(t, r.String(), "agent1")
}

func TestOffersForUnknownAgentStayParked(t *testing.T) {
	r := NewRegistry()
	r.AddNewOffers([]*resources.Offer{newOffer("o1", "later", res(1, 1, 1))})
	r.ReadyNewOffers()
	require.Equal(t, 1, r.NumParked())

	r.UpdateNodes([]Node{readyNode("later")})
	r.ReadyNewOffers()
	require.Equal(t, 0, r.NumParked())
	require.Equal(t, 1, r.Statuses()[0].NumOffers)
}
