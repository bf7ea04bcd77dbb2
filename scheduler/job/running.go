package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/ngageoint/scale/scheduler/resources"
	"github.com/ngageoint/scale/scheduler/task"
)

// ExecutionStatus of a running execution.
type ExecutionStatus int

const (
	Running ExecutionStatus = iota
	Completed
	Failed
)

func (s ExecutionStatus) String() string {
	return [...]string{"RUNNING", "COMPLETED", "FAILED"}[s]
}

// Error names recorded on failed executions.
const (
	ErrNodeLost       = "node-lost"
	ErrLaunchTimeout  = "launch-timeout"
	ErrRunningTimeout = "running-timeout"
	ErrTaskFailed     = "task-failed"
)

// RunningExecution is a job execution assigned to a node. Its steps run one at a time, in order,
// on that node; the scheduler admits the next step once the previous one finished.
type RunningExecution struct {
	mu sync.Mutex

	id       string
	jobType  string
	priority int
	agentID  string
	hostname string
	required resources.Resources

	tasks   []*task.Task
	current int

	status      ExecutionStatus
	errorName   string
	exitCode    *int
	scheduledAt time.Time
	startedAt   time.Time
	endedAt     time.Time
}

func NewRunningExecution(id, jobType string, priority int, agentID, hostname string, required resources.Resources, steps []Step, now time.Time) *RunningExecution {
	r := &RunningExecution{
		id:          id,
		jobType:     jobType,
		priority:    priority,
		agentID:     agentID,
		hostname:    hostname,
		required:    required,
		scheduledAt: now,
	}
	for i, s := range steps {
		name := fmt.Sprintf("%s %s", jobType, s.Name)
		r.tasks = append(r.tasks, task.NewJobTask(id, i, name, agentID, s.Image, s.Command, required))
	}
	if len(r.tasks) == 0 {
		r.status = Completed
		r.endedAt = now
	}
	return r
}

func (r *RunningExecution) ID() string                    { return r.id }
func (r *RunningExecution) JobType() string               { return r.jobType }
func (r *RunningExecution) Priority() int                 { return r.priority }
func (r *RunningExecution) AgentID() string               { return r.agentID }
func (r *RunningExecution) Hostname() string              { return r.hostname }
func (r *RunningExecution) Required() resources.Resources { return r.required }

func (r *RunningExecution) Status() ExecutionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *RunningExecution) IsFinished() bool { return r.Status() != Running }

// ErrorName is set once the execution failed.
func (r *RunningExecution) ErrorName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errorName
}

func (r *RunningExecution) ExitCode() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exitCode == nil {
		return 0, false
	}
	return *r.exitCode, true
}

func (r *RunningExecution) ScheduledAt() time.Time { return r.scheduledAt }

func (r *RunningExecution) StartedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startedAt
}

func (r *RunningExecution) EndedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endedAt
}

// CurrentTask returns the task of the step in progress, nil once finished.
func (r *RunningExecution) CurrentTask() *task.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != Running {
		return nil
	}
	return r.tasks[r.current]
}

// NextTask returns the step task waiting to be launched, or nil if a step is in flight or the
// execution finished. A task reset by a LOST update is returned again.
func (r *RunningExecution) NextTask() *task.Task {
	t := r.CurrentTask()
	if t == nil || t.HasBeenLaunched() {
		return nil
	}
	return t
}

// StartNextTask returns the next task for launch and records the execution start on the first step.
func (r *RunningExecution) StartNextTask(now time.Time) *task.Task {
	t := r.NextTask()
	if t == nil {
		return nil
	}
	r.mu.Lock()
	if r.startedAt.IsZero() {
		r.startedAt = now
	}
	r.mu.Unlock()
	return t
}

// HandleTaskUpdate moves the execution forward after its current task changed. It reports
// whether the execution finished.
func (r *RunningExecution) HandleTaskUpdate(t *task.Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != Running || r.tasks[r.current] != t || !t.HasEnded() {
		return false
	}

	if code, ok := t.ExitCode(); ok {
		r.exitCode = &code
	}
	switch {
	case t.Succeeded():
		r.current++
		if r.current == len(r.tasks) {
			r.finish(Completed, "", t.EndedAt())
		}
	case t.HasTimedOut() && !t.HasStarted():
		r.finish(Failed, ErrLaunchTimeout, t.EndedAt())
	case t.HasTimedOut():
		r.finish(Failed, ErrRunningTimeout, t.EndedAt())
	default:
		r.finish(Failed, ErrTaskFailed, t.EndedAt())
	}
	return r.status != Running
}

// NodeLost fails the execution, its node went away.
func (r *RunningExecution) NodeLost(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != Running {
		return false
	}
	r.finish(Failed, ErrNodeLost, now)
	return true
}

func (r *RunningExecution) finish(status ExecutionStatus, errorName string, at time.Time) {
	r.status = status
	r.errorName = errorName
	r.endedAt = at
}

func (r *RunningExecution) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("{exe:%s, type:%s, agent:%s, step:%d/%d, status:%s, error:%q}",
		r.id, r.jobType, r.agentID, r.current, len(r.tasks), r.status, r.errorName)
}
