package server

//go:generate mockgen -source=scheduler.go -package=server -destination=scheduler_mock.go

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	scalelog "github.com/ngageoint/scale/common/log"
	"github.com/ngageoint/scale/common/stats"
	"github.com/ngageoint/scale/scheduler/driver"
	"github.com/ngageoint/scale/scheduler/job"
	"github.com/ngageoint/scale/scheduler/node"
	"github.com/ngageoint/scale/scheduler/offer"
	"github.com/ngageoint/scale/scheduler/resources"
	"github.com/ngageoint/scale/scheduler/store"
	"github.com/ngageoint/scale/scheduler/task"
)

// Used to get proper logging from tests...
func init() {
	scalelog.ConfigureFromEnv(log.ErrorLevel)
}

// Scheduler is what the status handler needs from the scheduler.
type Scheduler interface {
	PauseNode(ctx context.Context, agentID, reason string) error

	ResumeNode(ctx context.Context, agentID string) error

	GetNodes() []node.Status

	GetNode(agentID string) (node.Status, bool)

	GenerateStatusSnapshot() *Snapshot
}

// ClusterScheduler owns the registries and runs the scheduling loop against a driver and a store.
//
// Concurrency: driver callbacks (OnOffers, OnStatusUpdate, ...) arrive on their own goroutines and
// mutate the registries concurrently with the loop. Every registry guards itself with a lock that
// is only held for in-memory work; store and driver calls are made with no registry lock held.
type ClusterScheduler struct {
	config Config
	driver driver.Driver
	store  store.Store
	clk    clock.Clock
	stat   stats.StatsReceiver

	resources *resources.Registry
	nodes     *node.Registry
	offers    *offer.Registry
	tasks     *task.Manager
	jobs      *job.Manager

	reconcileLimiter *rate.Limiter

	// Loop state, only touched by the loop goroutine.
	lastNodeSync time.Time
	unrecorded   []*job.RunningExecution

	stopped  *atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
}

var _ Scheduler = (*ClusterScheduler)(nil)
var _ driver.Callbacks = (*ClusterScheduler)(nil)

func NewScheduler(config Config, d driver.Driver, st store.Store, clk clock.Clock, stat stats.StatsReceiver) *ClusterScheduler {
	config = config.withDefaults()
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	s := &ClusterScheduler{
		config:           config,
		driver:           d,
		store:            st,
		clk:              clk,
		stat:             stat,
		resources:        resources.NewRegistry(),
		nodes:            node.NewRegistry(),
		offers:           offer.NewRegistry(),
		tasks:            task.NewManager(),
		jobs:             job.NewManager(),
		reconcileLimiter: rate.NewLimiter(config.ReconcileRate, config.ReconcileBurst),
		stopped:          atomic.NewBool(false),
		stopCh:           make(chan struct{}),
	}
	log.Info(config)
	return s
}

// OnOffers registers the offering agents and hands the offers to the resource and offer registries.
func (s *ClusterScheduler) OnOffers(offers []*resources.Offer) {
	seen := make(map[string]bool)
	var agents []node.Agent
	for _, o := range offers {
		if !seen[o.AgentID] {
			seen[o.AgentID] = true
			agents = append(agents, node.Agent{AgentID: o.AgentID, Hostname: o.Hostname})
		}
	}
	s.nodes.RegisterAgents(agents)
	s.resources.AddNewOffers(offers)
	s.offers.AddNewOffers(offers)
	log.WithField("numOffers", len(offers)).Debug("Received offers")
}

func (s *ClusterScheduler) OnOffersRescinded(offerIDs []string) {
	s.resources.RescindOffers(offerIDs)
	s.offers.RemoveOffers(offerIDs)
	log.WithField("offers", offerIDs).Debug("Offers rescinded")
}

func (s *ClusterScheduler) OnStatusUpdate(u *task.Update) {
	s.HandleTaskUpdate(context.Background(), u)
}

func (s *ClusterScheduler) OnAgentLost(agentID string) {
	s.LostNode(agentID)
}

// HandleTaskUpdate applies a status update and routes the task to the node or job execution that
// owns it. A task still alive on the cluster that the scheduler does not know is killed.
func (s *ClusterScheduler) HandleTaskUpdate(ctx context.Context, u *task.Update) {
	s.stat.Counter(stats.SchedTaskUpdatesCounter).Inc(1)
	t, ok := s.tasks.HandleUpdate(u)
	if !ok {
		if u.Status == task.Staging || u.Status == task.Running {
			log.WithFields(log.Fields{"taskID": u.TaskID, "agentID": u.AgentID}).Warn("Killing unknown task")
			if err := s.driver.KillTask(ctx, u.TaskID); err != nil {
				log.WithError(err).WithField("taskID", u.TaskID).Error("Failed to kill unknown task")
			}
		}
		return
	}
	s.routeTask(t)
}

// HandleTaskTimeout kills a task that timed out and lets its owner react to the failure.
func (s *ClusterScheduler) HandleTaskTimeout(ctx context.Context, t *task.Task) {
	s.stat.Counter(stats.SchedTaskTimeoutsCounter).Inc(1)
	log.WithFields(log.Fields{
		"taskID":  t.ID(),
		"kind":    t.Kind(),
		"agentID": t.AgentID(),
		"started": t.HasStarted(),
	}).Warn("Task timed out")
	if err := s.driver.KillTask(ctx, t.ID()); err != nil {
		log.WithError(err).WithField("taskID", t.ID()).Error("Failed to kill timed out task")
	}
	s.routeTask(t)
}

func (s *ClusterScheduler) routeTask(t *task.Task) {
	if t.Kind().IsNodeTask() {
		s.nodes.HandleTaskUpdate(t)
		return
	}
	s.jobs.HandleTaskUpdate(t)
}

// LostNode takes the agent's node offline, drops its offers and fails the job executions on it.
func (s *ClusterScheduler) LostNode(agentID string) {
	s.stat.Counter(stats.SchedLostAgentsCounter).Inc(1)
	now := s.clk.Now()
	s.nodes.LostNode(agentID)
	s.offers.LostNode(agentID)
	s.resources.LostAgent(agentID)
	lost := s.tasks.LostAgent(agentID)
	failed := s.jobs.LostNode(agentID, now)
	log.WithFields(log.Fields{
		"agentID":    agentID,
		"tasks":      len(lost),
		"executions": len(failed),
	}).Warn("Agent lost")
}

// PauseNode pauses the node in memory then persists the pause.
func (s *ClusterScheduler) PauseNode(ctx context.Context, agentID, reason string) error {
	n, ok := s.nodes.PauseNode(agentID, reason)
	if !ok {
		return errors.Errorf("no node for agent %s", agentID)
	}
	log.WithFields(log.Fields{"agentID": agentID, "hostname": n.Hostname(), "reason": reason}).Info("Pausing node")
	return errors.Wrapf(s.store.UpdateNodePause(ctx, n.Hostname(), true, reason), "persisting pause of %s", n.Hostname())
}

func (s *ClusterScheduler) ResumeNode(ctx context.Context, agentID string) error {
	n, ok := s.nodes.ResumeNode(agentID)
	if !ok {
		return errors.Errorf("no node for agent %s", agentID)
	}
	log.WithFields(log.Fields{"agentID": agentID, "hostname": n.Hostname()}).Info("Resuming node")
	return errors.Wrapf(s.store.UpdateNodePause(ctx, n.Hostname(), false, ""), "persisting resume of %s", n.Hostname())
}

func (s *ClusterScheduler) GetNodes() []node.Status {
	nodes := s.nodes.GetNodes()
	statuses := make([]node.Status, 0, len(nodes))
	for _, n := range nodes {
		statuses = append(statuses, n.Status())
	}
	return statuses
}

func (s *ClusterScheduler) GetNode(agentID string) (node.Status, bool) {
	n, ok := s.nodes.GetNode(agentID)
	if !ok {
		return node.Status{}, false
	}
	return n.Status(), true
}

func (s *ClusterScheduler) String() string {
	return fmt.Sprintf("ClusterScheduler: nodes: %d, tasks: %d, executions: %d, heldOffers: %d",
		len(s.nodes.GetNodes()), s.tasks.Len(), s.jobs.Len(), s.resources.NumOffers())
}
