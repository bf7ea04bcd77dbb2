package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ngageoint/scale/common/retry"
	"github.com/ngageoint/scale/common/stats"
	"github.com/ngageoint/scale/scheduler/driver"
	"github.com/ngageoint/scale/scheduler/job"
	"github.com/ngageoint/scale/scheduler/node"
	"github.com/ngageoint/scale/scheduler/resources"
	"github.com/ngageoint/scale/scheduler/store"
	"github.com/ngageoint/scale/scheduler/store/memory"
	"github.com/ngageoint/scale/scheduler/task"
)

const (
	testImage        = "scale:1"
	testTaskDuration = time.Minute
)

var agentResources = resources.Resources{Cpus: 4, Mem: 8192, DiskTotal: 10000}

func fastRetry() retry.Policy {
	return retry.Policy{Attempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

type fixture struct {
	clk   *clock.Mock
	store *memory.Store
	sim   *driver.Sim
	stat  stats.StatsReceiver
	s     *ClusterScheduler
}

func newFixture(t *testing.T, agents ...driver.SimAgent) *fixture {
	if len(agents) == 0 {
		agents = []driver.SimAgent{{AgentID: "agent-1", Hostname: "host1", Resources: agentResources}}
	}
	clk := clock.NewMock()
	st := memory.New(clk)
	sim := driver.NewSim(clk, agents, testTaskDuration)
	stat := stats.DefaultStatsReceiver()
	config := Config{ScaleImage: testImage, StoreRetry: fastRetry(), DriverRetry: fastRetry()}
	return &fixture{clk: clk, store: st, sim: sim, stat: stat, s: NewScheduler(config, sim, st, clk, stat)}
}

// cycle delivers the cluster events, runs one iteration, then lets the launched tasks start.
func (f *fixture) cycle() int {
	f.sim.Tick(f.s)
	launched := f.s.step(context.Background())
	f.sim.Tick(f.s)
	return launched
}

// finishTasks lets every started task run to completion.
func (f *fixture) finishTasks() {
	f.clk.Add(testTaskDuration)
}

func (f *fixture) nodeState(t *testing.T, agentID string) node.State {
	st, ok := f.s.GetNode(agentID)
	require.True(t, ok, "no node for %s", agentID)
	return st.State
}

// readyNode walks a fresh node through its initial cleanup and image pull.
func (f *fixture) readyNode(t *testing.T, agentID string) {
	// Health check and initial cleanup.
	require.Equal(t, 2, f.cycle())
	require.Equal(t, node.InitialCleanup, f.nodeState(t, agentID))
	f.finishTasks()

	// Image pull.
	require.Equal(t, 1, f.cycle())
	require.Equal(t, node.ImagePull, f.nodeState(t, agentID))
	f.finishTasks()
	f.sim.Tick(f.s)
	require.Equal(t, node.Ready, f.nodeState(t, agentID))
}

func seed(t *testing.T, st *memory.Store, jt *job.JobType, items ...*job.QueuedExecution) {
	ctx := context.Background()
	require.NoError(t, st.PutJobTypes(ctx, jt))
	require.NoError(t, st.Enqueue(ctx, items...))
}

func queued(id, jobType string, priority int, required resources.Resources) *job.QueuedExecution {
	return &job.QueuedExecution{
		ID:       id,
		JobType:  jobType,
		Priority: priority,
		Required: required,
		Steps:    job.DefaultSteps(testImage, "ingest:1", "ingest --file=a.h5"),
	}
}

func TestNodeBecomesReady(t *testing.T) {
	f := newFixture(t)
	f.readyNode(t, "agent-1")

	rec, ok := f.store.Node("host1")
	require.True(t, ok)
	require.Equal(t, "agent-1", rec.AgentID)
	require.True(t, rec.IsActive)

	stats.VerifyStats("ready", f.stat, t, map[string]stats.Rule{
		stats.SchedLaunchedTasksCounter: {Checker: stats.Int64EqTest, Value: 3},
	})
}

func TestExecutionRunsAllSteps(t *testing.T) {
	f := newFixture(t)
	f.readyNode(t, "agent-1")

	required := resources.Resources{Cpus: 1, Mem: 1024, DiskTotal: 100}
	seed(t, f.store, &job.JobType{Name: "ingest", Resources: required}, queued("exe-1", "ingest", 10, required))

	// Pre, main and post steps each get their own launch.
	for i := 0; i < 3; i++ {
		require.Equal(t, 1, f.cycle(), "step %d", i)
		require.Equal(t, 1, f.sim.NumRunning())
		f.finishTasks()
	}
	require.Equal(t, 0, f.store.QueueLen())

	// The post step finished, the execution gets recorded.
	f.cycle()
	finished := f.store.Finished()
	require.Len(t, finished, 1)
	require.Equal(t, "exe-1", finished[0].ID)
	require.Equal(t, job.Completed.String(), finished[0].Status)
	require.Equal(t, "host1", finished[0].Hostname)
	require.Empty(t, f.store.Running())

	snap := f.s.GenerateStatusSnapshot()
	require.Equal(t, 0, snap.Executions.Running)
	require.Equal(t, 1, snap.NodeCounts[node.Ready])
}

func TestPausedJobTypeStaysQueued(t *testing.T) {
	f := newFixture(t)
	f.readyNode(t, "agent-1")

	required := resources.Resources{Cpus: 1, Mem: 1024}
	seed(t, f.store, &job.JobType{Name: "ingest", Resources: required, Paused: true}, queued("exe-1", "ingest", 10, required))

	require.Equal(t, 0, f.cycle())
	require.Equal(t, 1, f.store.QueueLen())
}

func TestMaxScheduledLimitsAdmission(t *testing.T) {
	f := newFixture(t)
	f.readyNode(t, "agent-1")

	required := resources.Resources{Cpus: 1, Mem: 1024}
	seed(t, f.store, &job.JobType{Name: "ingest", Resources: required, MaxScheduled: 1},
		queued("exe-1", "ingest", 10, required),
		queued("exe-2", "ingest", 10, required))

	require.Equal(t, 1, f.cycle())
	require.Equal(t, 1, f.store.QueueLen())
	require.Len(t, f.store.Running(), 1)
	require.Equal(t, "exe-1", f.store.Running()[0].ID)
}

func TestWorkTooLargeIsRejected(t *testing.T) {
	f := newFixture(t)
	f.readyNode(t, "agent-1")

	huge := resources.Resources{Cpus: 64, Mem: 1024}
	seed(t, f.store, &job.JobType{Name: "huge", Resources: huge}, queued("exe-1", "huge", 10, huge))

	require.Equal(t, 0, f.cycle())
	require.Equal(t, 1, f.store.QueueLen())
	stats.VerifyStats("rejected", f.stat, t, map[string]stats.Rule{
		stats.SchedRejectedWorkCounter + "/NOT_ENOUGH_CPUS": {Checker: stats.Int64EqTest, Value: 1},
	})
}

func TestPauseNode(t *testing.T) {
	f := newFixture(t)
	f.readyNode(t, "agent-1")
	ctx := context.Background()

	require.NoError(t, f.s.PauseNode(ctx, "agent-1", "maintenance"))
	require.Equal(t, node.Paused, f.nodeState(t, "agent-1"))
	rec, _ := f.store.Node("host1")
	require.True(t, rec.IsPaused)
	require.Equal(t, "maintenance", rec.PauseReason)

	required := resources.Resources{Cpus: 1, Mem: 1024}
	seed(t, f.store, &job.JobType{Name: "ingest", Resources: required}, queued("exe-1", "ingest", 10, required))
	require.Equal(t, 0, f.cycle())
	require.Equal(t, 1, f.store.QueueLen())

	require.NoError(t, f.s.ResumeNode(ctx, "agent-1"))
	require.Equal(t, node.Ready, f.nodeState(t, "agent-1"))
	require.Equal(t, 1, f.cycle())
	require.Equal(t, 0, f.store.QueueLen())

	require.Error(t, f.s.PauseNode(ctx, "agent-9", ""))
}

func TestLostNodeFailsExecutions(t *testing.T) {
	f := newFixture(t)
	f.readyNode(t, "agent-1")

	required := resources.Resources{Cpus: 1, Mem: 1024}
	seed(t, f.store, &job.JobType{Name: "ingest", Resources: required}, queued("exe-1", "ingest", 10, required))
	require.Equal(t, 1, f.cycle())

	f.sim.RemoveAgent("agent-1", f.s)
	require.Equal(t, node.Offline, f.nodeState(t, "agent-1"))
	require.Equal(t, 0, f.s.resources.NumOffers())

	f.s.step(context.Background())
	finished := f.store.Finished()
	require.Len(t, finished, 1)
	require.Equal(t, job.Failed.String(), finished[0].Status)
	require.Equal(t, job.ErrNodeLost, finished[0].ErrorName)
}

func TestUnknownRunningTaskIsKilled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := driver.NewMockDriver(ctrl)
	clk := clock.NewMock()
	s := NewScheduler(Config{}, d, memory.New(clk), clk, nil)

	d.EXPECT().KillTask(gomock.Any(), "stray").Return(nil)
	s.OnStatusUpdate(&task.Update{TaskID: "stray", AgentID: "agent-1", Status: task.Running, Timestamp: clk.Now()})

	// Terminal updates of unknown tasks are dropped.
	s.OnStatusUpdate(&task.Update{TaskID: "gone", AgentID: "agent-1", Status: task.Finished, Timestamp: clk.Now()})
}

func TestScheduleWorkRetriesThenLeavesWorkQueued(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := store.NewMockStore(ctrl)
	clk := clock.NewMock()
	s := NewScheduler(Config{StoreRetry: fastRetry()}, driver.NewSim(clk, nil, testTaskDuration), st, clk, nil)

	items := []*job.QueuedExecution{queued("exe-1", "ingest", 10, resources.Resources{Cpus: 1})}
	assignments := map[string]store.Assignment{"exe-1": {AgentID: "agent-1", Hostname: "host1"}}
	st.EXPECT().ScheduleWork(gomock.Any(), items, assignments).Return(nil, errors.New("db down")).Times(2)
	require.Empty(t, s.scheduleWork(context.Background(), items, assignments))

	running := job.NewRunningExecution("exe-1", "ingest", 10, "agent-1", "host1", resources.Resources{Cpus: 1}, items[0].Steps, clk.Now())
	st.EXPECT().ScheduleWork(gomock.Any(), items, assignments).Return(nil, errors.New("db down"))
	st.EXPECT().ScheduleWork(gomock.Any(), items, assignments).Return([]*job.RunningExecution{running}, nil)
	require.Equal(t, []*job.RunningExecution{running}, s.scheduleWork(context.Background(), items, assignments))
}

func TestFailedLaunchKeepsTasksLaunched(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	d := driver.NewMockDriver(ctrl)
	clk := clock.NewMock()
	stat := stats.DefaultStatsReceiver()
	s := NewScheduler(Config{DriverRetry: fastRetry()}, d, memory.New(clk), clk, stat)

	tk := task.New(task.KindHealth, "Node Health Check", "agent-1", testImage, "scale_health_check", resources.Resources{Cpus: 0.1})
	offers := []*resources.Offer{{ID: "o1", AgentID: "agent-1", Resources: resources.Resources{Cpus: 1}}}
	d.EXPECT().LaunchTasks(gomock.Any(), []string{"o1"}, gomock.Any()).Return(errors.New("unreachable")).Times(2)

	require.Equal(t, 1, s.launch(context.Background(), "agent-1", offers, []*task.Task{tk}, clk.Now()))
	require.True(t, tk.HasBeenLaunched())
	require.Equal(t, 1, s.tasks.Len())
	stats.VerifyStats("launch", stat, t, map[string]stats.Rule{
		stats.SchedLaunchErrCounter:     {Checker: stats.Int64EqTest, Value: 1},
		stats.SchedLaunchedTasksCounter: {Checker: stats.DoesNotExistTest},
	})
}

func TestCompleteWorkRetriedNextIteration(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := store.NewMockStore(ctrl)
	clk := clock.NewMock()
	s := NewScheduler(Config{StoreRetry: fastRetry()}, driver.NewSim(clk, nil, testTaskDuration), st, clk, nil)

	e := job.NewRunningExecution("exe-1", "ingest", 10, "agent-1", "host1", resources.Resources{Cpus: 1},
		job.DefaultSteps(testImage, "ingest:1", "ingest"), clk.Now())
	s.unrecorded = []*job.RunningExecution{e}

	st.EXPECT().CompleteWork(gomock.Any(), []*job.RunningExecution{e}).Return(errors.New("db down")).Times(2)
	s.completeFinished(context.Background())
	require.Len(t, s.unrecorded, 1)

	st.EXPECT().CompleteWork(gomock.Any(), []*job.RunningExecution{e}).Return(nil)
	s.completeFinished(context.Background())
	require.Empty(t, s.unrecorded)
}

func TestRunStops(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)

	done := make(chan error)
	go func() {
		done <- f.s.Run(context.Background())
	}()
	f.s.Stop()
	f.s.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduling loop did not stop")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- f.s.Run(ctx)
	}()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduling loop did not stop")
	}
}
