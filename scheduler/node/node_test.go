package node

import (
	"strings"
	"testing"
	"time"

	"github.com/ngageoint/scale/scheduler/store"
	"github.com/ngageoint/scale/scheduler/task"
)

func testNode() *Node {
	return newNode("agent1", store.NodeRecord{ID: 1, Hostname: "host1", IsActive: true}, "scale:1")
}

func kinds(tasks []*task.Task) []task.Kind {
	var out []task.Kind
	for _, t := range tasks {
		out = append(out, t.Kind())
	}
	return out
}

func taskOfKind(tasks []*task.Task, k task.Kind) *task.Task {
	for _, t := range tasks {
		if t.Kind() == k {
			return t
		}
	}
	return nil
}

func end(n *Node, t *task.Task, s task.Status, code int, at time.Time) {
	if !t.HasBeenLaunched() {
		t.Launch(at)
	}
	t.Update(&task.Update{TaskID: t.ID(), Status: s, Timestamp: at, ExitCode: task.ExitCode(code)})
	n.HandleTaskUpdate(t)
}

// Runs the node through initial cleanup and image pull.
func readyNode(t *testing.T) *Node {
	n := testNode()
	tasks := n.NextTasks(t0)
	end(n, taskOfKind(tasks, task.KindHealth), task.Finished, 0, t0)
	end(n, taskOfKind(tasks, task.KindCleanup), task.Finished, 0, t0)
	end(n, taskOfKind(n.NextTasks(t0), task.KindPull), task.Finished, 0, t0)
	if n.State() != Ready {
		t.Fatalf("Expected READY node, got %s", n)
	}
	return n
}

func TestNodeStartsWithCleanupThenPull(t *testing.T) {
	n := testNode()
	if n.State() != InitialCleanup || n.IsReadyForJobs() {
		t.Fatalf("Expected INITIAL_CLEANUP, got %s", n.State())
	}

	tasks := n.NextTasks(t0)
	if k := kinds(tasks); len(k) != 2 || k[0] != task.KindHealth || k[1] != task.KindCleanup {
		t.Fatalf("Expected health and cleanup tasks, got %v", k)
	}
	cleanup := taskOfKind(tasks, task.KindCleanup)
	if !strings.Contains(cleanup.Spec().Command, "--all") || cleanup.AgentID() != "agent1" {
		t.Errorf("Unexpected initial cleanup %+v", cleanup.Spec())
	}

	// Unlaunched tasks are returned again, launched ones are not.
	if again := n.NextTasks(t0); len(again) != 2 || again[0] != tasks[0] {
		t.Errorf("Expected the same unlaunched tasks, got %v", again)
	}
	for _, tk := range tasks {
		tk.Launch(t0)
	}
	if again := n.NextTasks(t0); len(again) != 0 {
		t.Errorf("Expected no tasks while in flight, got %v", again)
	}

	end(n, cleanup, task.Finished, 0, t0.Add(time.Second))
	if n.State() != ImagePull {
		t.Fatalf("Expected IMAGE_PULL, got %s", n.State())
	}
	pull := taskOfKind(n.NextTasks(t0.Add(time.Second)), task.KindPull)
	if pull == nil || pull.Spec().Image != "scale:1" {
		t.Fatal("Expected a pull task for the scale image")
	}
	end(n, pull, task.Finished, 0, t0.Add(2*time.Second))
	if n.State() != Ready || !n.IsReadyForJobs() {
		t.Errorf("Expected READY, got %s", n.State())
	}
}

func TestHealthCheckInterval(t *testing.T) {
	n := readyNode(t)
	if tasks := n.NextTasks(t0.Add(HealthInterval - time.Second)); len(tasks) != 0 {
		t.Errorf("Expected no health check before the interval, got %v", kinds(tasks))
	}
	health := taskOfKind(n.NextTasks(t0.Add(HealthInterval)), task.KindHealth)
	if health == nil {
		t.Fatal("Expected a health check after the interval")
	}

	at := t0.Add(HealthInterval + time.Second)
	end(n, health, task.Failed, HealthExitBadDaemon, at)
	if !n.IsDaemonBad() || n.IsReadyForJobs() {
		t.Error("Expected bad daemon to block jobs")
	}
	n.AddJobExecutionsToCleanup([]string{"exe1"})
	if tasks := n.NextTasks(at.Add(HealthErrorInterval - time.Second)); len(tasks) != 0 {
		t.Errorf("Expected nothing before the error interval, got %v", kinds(tasks))
	}
	tasks := n.NextTasks(at.Add(HealthErrorInterval))
	if k := kinds(tasks); len(k) != 1 || k[0] != task.KindHealth {
		t.Fatalf("Expected only a health check while the daemon is bad, got %v", k)
	}

	end(n, tasks[0], task.Finished, 0, at.Add(2*time.Minute))
	if n.IsDaemonBad() || !n.IsReadyForJobs() {
		t.Error("Expected node to recover")
	}
	cleanup := taskOfKind(n.NextTasks(at.Add(2*time.Minute)), task.KindCleanup)
	if cleanup == nil || !strings.Contains(cleanup.Spec().Command, "exe1") {
		t.Error("Expected the deferred cleanup of exe1")
	}
}

func TestPullFailureWaitsBeforeRetry(t *testing.T) {
	n := testNode()
	tasks := n.NextTasks(t0)
	end(n, taskOfKind(tasks, task.KindCleanup), task.Finished, 0, t0)
	end(n, taskOfKind(n.NextTasks(t0), task.KindPull), task.Failed, 1, t0)

	if pull := taskOfKind(n.NextTasks(t0.Add(PullRetryDelay-time.Second)), task.KindPull); pull != nil {
		t.Error("Expected no pull retry before the delay")
	}
	if pull := taskOfKind(n.NextTasks(t0.Add(PullRetryDelay)), task.KindPull); pull == nil {
		t.Error("Expected a pull retry after the delay")
	}
}

func TestScaleImageChangeRequiresPull(t *testing.T) {
	n := readyNode(t)
	n.setScaleImage("scale:2")
	if n.State() != ImagePull {
		t.Errorf("Expected IMAGE_PULL after image change, got %s", n.State())
	}
}

func TestAgentChangeRestartsNode(t *testing.T) {
	n := readyNode(t)
	n.UpdateFromCluster("agent2", true)
	if n.State() != InitialCleanup || n.AgentID() != "agent2" {
		t.Errorf("Expected INITIAL_CLEANUP on agent2, got %s", n)
	}
	cleanup := taskOfKind(n.NextTasks(t0), task.KindCleanup)
	if cleanup == nil || cleanup.AgentID() != "agent2" {
		t.Error("Expected a cleanup task on the new agent")
	}
}

func TestOfflineAndInactiveNodesGetNoTasks(t *testing.T) {
	n := testNode()
	n.UpdateFromCluster("", false)
	if n.State() != Offline || len(n.NextTasks(t0)) != 0 {
		t.Errorf("Expected idle OFFLINE node, got %s", n.State())
	}
	n.UpdateFromStore(store.NodeRecord{ID: 1, Hostname: "host1", IsActive: false}, 0)
	if n.State() != Inactive {
		t.Errorf("Expected INACTIVE, got %s", n.State())
	}
}

func TestPausedNodeKeepsMaintenance(t *testing.T) {
	n := readyNode(t)
	n.setPaused(true, "too many failures", 1)
	if n.State() != Paused || n.IsReadyForJobs() {
		t.Errorf("Expected PAUSED, got %s", n.State())
	}
	if health := taskOfKind(n.NextTasks(t0.Add(HealthInterval)), task.KindHealth); health == nil {
		t.Error("Expected paused node to keep its health checks")
	}

	// A stale store read does not undo the pause.
	n.UpdateFromStore(store.NodeRecord{ID: 1, Hostname: "host1", IsActive: true}, 0)
	if !n.IsPaused() {
		t.Error("Expected pause to survive a stale record")
	}
	n.UpdateFromStore(store.NodeRecord{ID: 1, Hostname: "host1", IsActive: true}, 1)
	if n.IsPaused() {
		t.Error("Expected a fresh record to resume the node")
	}
}

func TestFailedCleanupRequeuesExecutions(t *testing.T) {
	n := readyNode(t)
	n.AddJobExecutionsToCleanup([]string{"exe1", "exe2"})
	cleanup := taskOfKind(n.NextTasks(t0), task.KindCleanup)
	if cleanup == nil || !strings.HasSuffix(cleanup.Spec().Command, "exe1,exe2") {
		t.Fatal("Expected cleanup of exe1 and exe2")
	}
	end(n, cleanup, task.Failed, 1, t0)
	if n.Status().Errors[0].Name != CleanupErr.Name {
		t.Errorf("Expected CLEANUP error, got %v", n.Status().Errors)
	}
	retry := taskOfKind(n.NextTasks(t0), task.KindCleanup)
	if retry == nil || retry == cleanup || !strings.HasSuffix(retry.Spec().Command, "exe1,exe2") {
		t.Error("Expected a new cleanup task for the same executions")
	}
}

func TestLostTaskIsHandedOutAgain(t *testing.T) {
	n := testNode()
	health := taskOfKind(n.NextTasks(t0), task.KindHealth)
	health.Launch(t0)
	health.Update(&task.Update{TaskID: health.ID(), Status: task.Lost, Timestamp: t0})
	if !n.HandleTaskUpdate(health) {
		t.Error("Expected node to own its health task")
	}
	if again := taskOfKind(n.NextTasks(t0), task.KindHealth); again != health {
		t.Error("Expected the lost health task to be returned for relaunch")
	}
}
