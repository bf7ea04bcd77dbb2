// Package task implements the lifecycle shared by every unit of work the scheduler dispatches:
// node health checks, node cleanup, image pulls and job execution steps.
package task

import (
	"fmt"
	"strings"
	"sync"
	"time"

	uuid "github.com/nu7hatch/gouuid"

	"github.com/ngageoint/scale/scheduler/resources"
)

const (
	DefaultStagingTimeout = 20 * time.Minute
	DefaultRunningTimeout = time.Hour

	// A launch with no status update for this long is reconciled with the cluster manager.
	StagingReconcileThreshold = 30 * time.Second
	// A running task with no status update for this long is reconciled with the cluster manager.
	RunningReconcileThreshold = 10 * time.Minute
)

// Kind discriminates the closed set of task variants.
type Kind int

const (
	KindJob Kind = iota
	KindHealth
	KindCleanup
	KindPull
)

func (k Kind) String() string {
	switch k {
	case KindJob:
		return "job"
	case KindHealth:
		return "health"
	case KindCleanup:
		return "cleanup"
	case KindPull:
		return "pull"
	default:
		return fmt.Sprintf("kind%d", int(k))
	}
}

// IsNodeTask reports whether tasks of this kind maintain the node rather than run a job.
func (k Kind) IsNodeTask() bool {
	return k != KindJob
}

// State of a task in its lifecycle.
type State int

const (
	Unlaunched State = iota
	Launched         // staging
	Started          // running
	Ended
)

func (s State) String() string {
	return [...]string{"UNLAUNCHED", "LAUNCHED", "RUNNING", "ENDED"}[s]
}

// Spec is what the driver needs to launch a task.
type Spec struct {
	TaskID    string
	Name      string
	Kind      Kind
	AgentID   string
	Image     string
	Command   string
	Resources resources.Resources
}

// Task tracks one dispatched unit of work. Methods are safe for concurrent use since status
// updates arrive on driver callback goroutines while the scheduling loop launches and times out tasks.
type Task struct {
	mu sync.Mutex

	id        string
	name      string
	kind      Kind
	agentID   string
	image     string
	command   string
	resources resources.Resources

	// Set for KindJob only.
	executionID string
	step        int

	state       State
	launchedAt  time.Time
	startedAt   time.Time
	endedAt     time.Time
	lastStatus  time.Time // last update or reconciliation request, drives NeedsReconciliation
	finalStatus Status
	exitCode    *int
	timedOut    bool
	containerID string

	stagingTimeout time.Duration
	runningTimeout time.Duration
}

// New creates an unlaunched task with a generated ID of the form scale_<kind>_<uuid>.
func New(kind Kind, name, agentID, image, command string, res resources.Resources) *Task {
	return &Task{
		id:             generateTaskID(kind),
		name:           name,
		kind:           kind,
		agentID:        agentID,
		image:          image,
		command:        command,
		resources:      res,
		stagingTimeout: DefaultStagingTimeout,
		runningTimeout: DefaultRunningTimeout,
	}
}

// NewJobTask creates the task for one step of a job execution.
func NewJobTask(executionID string, step int, name, agentID, image, command string, res resources.Resources) *Task {
	t := New(KindJob, name, agentID, image, command, res)
	t.executionID = executionID
	t.step = step
	return t
}

// uuid.NewV4() only fails if crypto/rand does, so retry rather than surface an error.
func generateTaskID(kind Kind) string {
	for {
		if id, err := uuid.NewV4(); err == nil {
			return fmt.Sprintf("scale_%s_%s", kind, strings.Replace(id.String(), "-", "", -1))
		}
	}
}

// SetTimeouts overrides the staging and running timeouts; zero keeps the current value.
func (t *Task) SetTimeouts(staging, running time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if staging > 0 {
		t.stagingTimeout = staging
	}
	if running > 0 {
		t.runningTimeout = running
	}
}

func (t *Task) ID() string                     { return t.id }
func (t *Task) Name() string                   { return t.name }
func (t *Task) Kind() Kind                     { return t.kind }
func (t *Task) AgentID() string                { return t.agentID }
func (t *Task) Resources() resources.Resources { return t.resources }
func (t *Task) ExecutionID() string            { return t.executionID }
func (t *Task) Step() int                      { return t.step }

func (t *Task) Spec() Spec {
	return Spec{
		TaskID:    t.id,
		Name:      t.name,
		Kind:      t.kind,
		AgentID:   t.agentID,
		Image:     t.image,
		Command:   t.command,
		Resources: t.resources,
	}
}

func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Task) HasBeenLaunched() bool { return t.State() != Unlaunched }
func (t *Task) HasStarted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == Started || (t.state == Ended && !t.startedAt.IsZero())
}
func (t *Task) HasEnded() bool { return t.State() == Ended }

func (t *Task) LaunchedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.launchedAt
}

func (t *Task) StartedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startedAt
}

func (t *Task) EndedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.endedAt
}

// ExitCode returns the reported exit code, if any.
func (t *Task) ExitCode() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.exitCode == nil {
		return 0, false
	}
	return *t.exitCode, true
}

func (t *Task) HasTimedOut() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timedOut
}

// FinalStatus is the terminal status the task ended with. Only meaningful once ended.
func (t *Task) FinalStatus() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finalStatus
}

// Succeeded reports a task that ended FINISHED without timing out.
func (t *Task) Succeeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == Ended && t.finalStatus == Finished && !t.timedOut
}

func (t *Task) ContainerID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.containerID
}

// Launch marks the task as handed to the cluster manager. Launching a task twice is a bug.
func (t *Task) Launch(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Unlaunched {
		panic(fmt.Sprintf("task %s launched while in state %s", t.id, t.state))
	}
	t.state = Launched
	t.launchedAt = now
	t.lastStatus = now
}

// Update applies a status update and reports whether it changed the task. Updates for other
// tasks, for unlaunched tasks and for ended tasks are ignored, which makes duplicate and late
// delivery harmless.
func (t *Task) Update(u *Update) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if u.TaskID != t.id || t.state == Unlaunched || t.state == Ended {
		return false
	}

	t.lastStatus = u.Timestamp
	switch u.Status {
	case Staging:
		return false
	case Running:
		if t.state == Started {
			return false
		}
		t.state = Started
		t.startedAt = u.Timestamp
		t.containerID = parseContainerID(u.Data)
	case Lost:
		// The cluster manager forgot the task, start over so it can be launched again.
		t.state = Unlaunched
		t.launchedAt = time.Time{}
		t.startedAt = time.Time{}
		t.lastStatus = time.Time{}
		t.containerID = ""
	default:
		t.state = Ended
		t.endedAt = u.Timestamp
		t.finalStatus = u.Status
		if u.ExitCode != nil {
			code := *u.ExitCode
			t.exitCode = &code
		}
		if c := parseContainerID(u.Data); c != "" && t.containerID == "" {
			t.containerID = c
		}
	}
	return true
}

// CheckTimeout ends the task if it stayed too long in staging or running and reports whether it did.
func (t *Task) CheckTimeout(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	var breached bool
	switch t.state {
	case Launched:
		breached = now.Sub(t.launchedAt) > t.stagingTimeout
	case Started:
		breached = now.Sub(t.startedAt) > t.runningTimeout
	}
	if breached {
		t.state = Ended
		t.endedAt = now
		t.timedOut = true
		t.finalStatus = Failed
	}
	return breached
}

// NeedsReconciliation reports a staging task that never heard back, or a running task whose
// status reports stopped.
func (t *Task) NeedsReconciliation(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case Launched:
		return now.Sub(t.lastStatus) > StagingReconcileThreshold
	case Started:
		return now.Sub(t.lastStatus) > RunningReconcileThreshold
	}
	return false
}

// MarkReconciling restarts the reconciliation clock after a request was sent.
func (t *Task) MarkReconciling(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastStatus = now
}

func (t *Task) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("{task:%s, kind:%s, name:%s, agent:%s, state:%s, timedOut:%t}",
		t.id, t.kind, t.name, t.agentID, t.state, t.timedOut)
}
