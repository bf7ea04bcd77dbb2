package server

import (
	"context"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ngageoint/scale/common/retry"
	"github.com/ngageoint/scale/common/stats"
	"github.com/ngageoint/scale/scheduler/job"
	"github.com/ngageoint/scale/scheduler/node"
	"github.com/ngageoint/scale/scheduler/offer"
	"github.com/ngageoint/scale/scheduler/placement"
	"github.com/ngageoint/scale/scheduler/resources"
	"github.com/ngageoint/scale/scheduler/store"
	"github.com/ngageoint/scale/scheduler/task"
)

// Run runs the scheduling loop until Stop is called or ctx is done. An iteration in progress
// always completes.
func (s *ClusterScheduler) Run(ctx context.Context) error {
	log.Info("Starting scheduling loop")
	for !s.stopped.Load() && ctx.Err() == nil {
		if launched := s.step(ctx); launched == 0 {
			s.idle(ctx)
		}
	}
	log.Info("Scheduling loop stopped")
	return nil
}

// Stop asks the loop to exit after the current iteration.
func (s *ClusterScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		close(s.stopCh)
	})
}

// idle returns every held offer and waits before the next iteration.
func (s *ClusterScheduler) idle(ctx context.Context) {
	s.stat.Counter(stats.SchedIdleIterationsCounter).Inc(1)
	s.declineOffers(ctx, s.resources.TakeAllOffers())
	select {
	case <-ctx.Done():
	case <-s.stopCh:
	case <-s.clk.After(s.config.IdleDelay):
	}
}

// step runs one iteration and returns the number of tasks launched.
func (s *ClusterScheduler) step(ctx context.Context) int {
	defer s.stat.Latency(stats.SchedLoopLatency_ms).Time().Stop()
	now := s.clk.Now()

	s.syncNodes(ctx, now)

	snapshots := s.resources.Refresh(s.tasks.Consumers(), now)
	nodes := s.nodes.GetNodes()
	offerNodes := make([]offer.Node, 0, len(nodes))
	for _, n := range nodes {
		offerNodes = append(offerNodes, n)
	}
	s.offers.UpdateNodes(offerNodes)
	s.offers.ReadyNewOffers()

	s.considerNodeTasks(now)

	limits, err := s.store.LoadWorkTypeLimitsAndCounts(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to load job type limits, skipping queued work")
	}
	var profiles []resources.Resources
	if limits != nil {
		profiles = limits.Profiles()
	}
	views := s.buildViews(nodes, snapshots, profiles)

	s.considerRunningWork(views)
	if limits != nil {
		s.considerQueuedWork(ctx, limits, views)
	}

	launched := s.launchAccepted(ctx, now)

	s.completeFinished(ctx)
	for _, t := range s.tasks.CheckTimeouts(now) {
		s.HandleTaskTimeout(ctx, t)
	}
	s.reconcile(ctx, now)

	s.updateStats()
	return launched
}

func (s *ClusterScheduler) syncNodes(ctx context.Context, now time.Time) {
	if !s.nodes.HasNewAgents() && !s.lastNodeSync.IsZero() && now.Sub(s.lastNodeSync) < s.config.NodeSyncInterval {
		return
	}
	if err := s.nodes.SyncWithStore(ctx, s.store, s.config.ScaleImage); err != nil {
		log.WithError(err).Error("Failed to sync nodes")
		return
	}
	s.lastNodeSync = now
}

func (s *ClusterScheduler) considerNodeTasks(now time.Time) {
	for _, t := range s.nodes.NextTasks(now) {
		if result := s.offers.ConsiderNodeTask(t); result != offer.Accepted {
			log.WithFields(log.Fields{"taskID": t.ID(), "kind": t.Kind(), "result": result}).Debug("Node task not accepted")
		}
	}
}

// buildViews creates the placement views of the nodes ready for jobs. Nodes without an offer
// or task yet get an empty view.
func (s *ClusterScheduler) buildViews(nodes []*node.Node, snapshots map[string]*resources.NodeResources, profiles []resources.Resources) *placement.Views {
	var views []*placement.View
	for _, n := range nodes {
		agentID := n.AgentID()
		if agentID == "" || !n.IsReadyForJobs() {
			continue
		}
		nr, ok := snapshots[agentID]
		if !ok {
			nr = &resources.NodeResources{AgentID: agentID}
		}
		views = append(views, placement.NewView(agentID, n.Hostname(), nr))
	}
	return placement.NewViews(views, profiles)
}

func (s *ClusterScheduler) considerRunningWork(views *placement.Views) {
	for _, e := range s.jobs.ReadyForNextTask() {
		result := s.offers.ConsiderNextTask(e)
		if result == offer.Accepted {
			views.AddAllocated(e.AgentID(), e.Required())
			continue
		}
		log.WithFields(log.Fields{"execution": e.ID(), "agentID": e.AgentID(), "result": result}).Debug("Next task not accepted")
	}
}

// considerQueuedWork admits queued executions in queue order. Paused and unknown job types are
// skipped, as are types without a free slot. An execution rejected for lack of resources reserves
// the best node against less important work for the rest of the iteration.
func (s *ClusterScheduler) considerQueuedWork(ctx context.Context, limits *job.TypeLimits, views *placement.Views) {
	filter := store.QueueFilter{ExcludeTypes: make(map[string]bool)}
	for name, jt := range limits.Types {
		if jt.Paused {
			filter.ExcludeTypes[name] = true
		}
	}
	slots := limits.Slots()
	notReady := s.agentsNotReady()
	shortages := make(map[string]resources.Resources)
	considered, accepted := 0, 0

	err := s.store.LoadQueuedWork(ctx, filter, func(q *job.QueuedExecution) bool {
		if considered >= s.config.MaxNewWorkPerIteration {
			s.stat.Counter(stats.SchedQueueLimitReachedCounter).Inc(1)
			return false
		}
		if limits.IsPaused(q.JobType) {
			return true
		}
		remaining, limited := slots[q.JobType]
		if limited && remaining <= 0 {
			return true
		}
		considered++

		order := append(views.Rank(q.Required, q.Priority), notReady...)
		result, agentID := s.offers.ConsiderNewWork(q, order)
		if result == offer.Accepted {
			accepted++
			views.AddAllocated(agentID, q.Required)
			if limited {
				slots[q.JobType] = remaining - 1
			}
			return true
		}

		s.stat.Counter(stats.SchedRejectedWorkCounter, result.String()).Inc(1)
		if isShortOfResources(result) && q.Hostname == "" {
			if reserved, shortage, ok := views.Reserve(q.Required, q.Priority); ok {
				shortages[reserved] = shortage
				log.WithFields(log.Fields{
					"execution": q.ID,
					"priority":  q.Priority,
					"agentID":   reserved,
					"shortage":  shortage,
				}).Debug("Reserved node")
			}
		}
		return true
	})
	if err != nil {
		log.WithError(err).Error("Failed to load queued work")
	}
	s.resources.SetShortages(shortages)
	if considered > 0 {
		log.WithFields(log.Fields{"considered": considered, "accepted": accepted}).Debug("Considered queued work")
	}
}

func isShortOfResources(r offer.Result) bool {
	return r == offer.NotEnoughCpus || r == offer.NotEnoughMem || r == offer.NotEnoughDisk
}

// agentsNotReady lists, by agent ID, online nodes that cannot take jobs so that their rejection
// reason is still counted.
func (s *ClusterScheduler) agentsNotReady() []string {
	var agents []string
	for _, n := range s.nodes.GetNodes() {
		if agentID := n.AgentID(); agentID != "" && !n.IsReadyForJobs() {
			agents = append(agents, agentID)
		}
	}
	sort.Strings(agents)
	return agents
}

type launchPlan struct {
	work   *offer.AcceptedWork
	offers []*resources.Offer
}

// launchAccepted launches everything accepted this iteration: offers are allocated per node,
// newly admitted executions are persisted in one batch, then each node gets one launch.
func (s *ClusterScheduler) launchAccepted(ctx context.Context, now time.Time) int {
	var plans []launchPlan
	var newWork []*job.QueuedExecution
	assignments := make(map[string]store.Assignment)
	for _, w := range s.offers.PopOffersWithAccepted() {
		allocated := s.resources.AllocateOffers(w.AgentID, w.Required, now)
		if !resources.TotalOf(allocated).IsSufficientToMeet(w.Required) {
			log.WithFields(log.Fields{
				"agentID":   w.AgentID,
				"required":  w.Required,
				"allocated": resources.TotalOf(allocated),
			}).Warn("Offers no longer cover accepted work")
			s.declineOffers(ctx, allocated)
			continue
		}
		plans = append(plans, launchPlan{work: w, offers: allocated})
		for _, q := range w.NewWork {
			newWork = append(newWork, q)
			assignments[q.ID] = store.Assignment{AgentID: w.AgentID, Hostname: w.Hostname}
		}
	}

	scheduled := s.scheduleWork(ctx, newWork, assignments)
	s.jobs.Add(scheduled)
	scheduledByAgent := make(map[string][]*job.RunningExecution)
	for _, e := range scheduled {
		scheduledByAgent[e.AgentID()] = append(scheduledByAgent[e.AgentID()], e)
	}

	launched := 0
	for _, p := range plans {
		tasks := append([]*task.Task(nil), p.work.NodeTasks...)
		execs := append(append([]*job.RunningExecution(nil), p.work.RunningWork...), scheduledByAgent[p.work.AgentID]...)
		for _, e := range execs {
			if t := e.StartNextTask(now); t != nil {
				t.SetTimeouts(s.config.StagingTimeout, s.config.RunningTimeout)
				tasks = append(tasks, t)
			}
		}
		launched += s.launch(ctx, p.work.AgentID, p.offers, tasks, now)
	}
	return launched
}

// scheduleWork persists the admitted executions, retrying transient store errors. Executions
// the store failed to schedule stay queued and are considered again next iteration.
func (s *ClusterScheduler) scheduleWork(ctx context.Context, items []*job.QueuedExecution, assignments map[string]store.Assignment) []*job.RunningExecution {
	if len(items) == 0 {
		return nil
	}
	var scheduled []*job.RunningExecution
	err := retry.Do(ctx, s.config.StoreRetry, "schedule work", func() error {
		var err error
		scheduled, err = s.store.ScheduleWork(ctx, items, assignments)
		return err
	})
	if err != nil {
		s.stat.Counter(stats.SchedScheduleWorkErrCounter).Inc(1)
		log.WithError(err).WithField("executions", len(items)).Error("Failed to schedule work")
		return nil
	}
	s.stat.Counter(stats.SchedNewWorkScheduledCounter).Inc(int64(len(scheduled)))
	return scheduled
}

// launch hands the tasks of one node to the driver. Tasks stay launched when the driver fails,
// reconciliation reports them lost and their owners hand them out again.
func (s *ClusterScheduler) launch(ctx context.Context, agentID string, offers []*resources.Offer, tasks []*task.Task, now time.Time) int {
	if len(tasks) == 0 {
		s.declineOffers(ctx, offers)
		return 0
	}
	s.tasks.Launch(tasks, now)
	specs := make([]task.Spec, 0, len(tasks))
	for _, t := range tasks {
		specs = append(specs, t.Spec())
	}
	offerIDs := resources.OfferIDs(offers)
	err := retry.Do(ctx, s.config.DriverRetry, "launch tasks", func() error {
		return s.driver.LaunchTasks(ctx, offerIDs, specs)
	})
	s.offers.RemoveOffers(offerIDs)
	if err != nil {
		s.stat.Counter(stats.SchedLaunchErrCounter).Inc(1)
		log.WithError(err).WithFields(log.Fields{"agentID": agentID, "tasks": len(tasks)}).Error("Failed to launch tasks")
		return len(tasks)
	}
	s.stat.Counter(stats.SchedLaunchedTasksCounter).Inc(int64(len(tasks)))
	log.WithFields(log.Fields{"agentID": agentID, "tasks": len(tasks), "offers": len(offerIDs)}).Debug("Launched tasks")
	return len(tasks)
}

func (s *ClusterScheduler) declineOffers(ctx context.Context, offers []*resources.Offer) {
	if len(offers) == 0 {
		return
	}
	for _, o := range offers {
		if err := s.driver.DeclineOffer(ctx, o.ID); err != nil {
			log.WithError(err).WithField("offerID", o.ID).Warn("Failed to decline offer")
		}
	}
	s.offers.RemoveOffers(resources.OfferIDs(offers))
	s.stat.Counter(stats.SchedDeclinedOffersCounter).Inc(int64(len(offers)))
}

// completeFinished records finished executions in the store and queues them for cleanup on
// their node. Executions the store could not record are retried next iteration.
func (s *ClusterScheduler) completeFinished(ctx context.Context) {
	finished := append(s.unrecorded, s.jobs.PopFinished()...)
	s.unrecorded = nil
	if len(finished) == 0 {
		return
	}
	err := retry.Do(ctx, s.config.StoreRetry, "complete work", func() error {
		return s.store.CompleteWork(ctx, finished)
	})
	if err != nil {
		log.WithError(err).WithField("executions", len(finished)).Error("Failed to complete work")
		s.unrecorded = finished
		return
	}
	byAgent := make(map[string][]string)
	for _, e := range finished {
		byAgent[e.AgentID()] = append(byAgent[e.AgentID()], e.ID())
	}
	for agentID, ids := range byAgent {
		s.nodes.AddJobExecutionsToCleanup(agentID, ids)
	}
}

// reconcile asks the cluster manager about tasks that stopped reporting, as fast as the
// reconcile limiter allows.
func (s *ClusterScheduler) reconcile(ctx context.Context, now time.Time) {
	r := s.reconcileLimiter.ReserveN(now, 1)
	if !r.OK() || r.DelayFrom(now) > 0 {
		r.CancelAt(now)
		return
	}
	stale := s.tasks.TasksToReconcile(now)
	if len(stale) == 0 {
		r.CancelAt(now)
		return
	}
	ids := make([]string, 0, len(stale))
	for _, t := range stale {
		ids = append(ids, t.ID())
	}
	s.stat.Counter(stats.SchedReconcileTasksCounter).Inc(int64(len(ids)))
	if err := s.driver.ReconcileTasks(ctx, ids); err != nil {
		log.WithError(err).WithField("tasks", len(ids)).Error("Failed to reconcile tasks")
	}
}

func (s *ClusterScheduler) updateStats() {
	offered, used, watermark := s.resources.ClusterTotals()
	for _, named := range []struct {
		gauge string
		res   resources.Resources
	}{
		{stats.ClusterOfferedResourcesGauge, offered},
		{stats.ClusterTaskResourcesGauge, used},
		{stats.ClusterWatermarkResourcesGauge, watermark},
	} {
		gauge := named.gauge
		named.res.Each(func(name string, value float64) {
			s.stat.GaugeFloat(gauge, name).Update(value)
		})
	}
	counts := s.nodes.Counts()
	for _, state := range node.States {
		s.stat.Gauge(stats.ClusterNodesGauge, state.String()).Update(int64(counts[state]))
	}
	s.stat.Gauge(stats.ClusterHeldOffersGauge).Update(int64(s.resources.NumOffers()))
	s.stat.Gauge(stats.SchedRunningExecutionsGauge).Update(int64(s.jobs.Len()))
	s.stat.Gauge(stats.SchedActiveTasksGauge).Update(int64(s.tasks.Len()))
}
