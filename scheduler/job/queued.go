package job

import (
	"fmt"
	"time"

	"github.com/ngageoint/scale/scheduler/resources"
)

// Step names of a job execution, run in order on the same node.
const (
	PreStep  = "pre"
	MainStep = "main"
	PostStep = "post"
)

// Step is one task of a job execution.
type Step struct {
	Name    string `json:"name"`
	Image   string `json:"image"`
	Command string `json:"command"`
}

// DefaultSteps returns the usual pre/main/post sequence with the main step running the given image.
func DefaultSteps(scaleImage, image, command string) []Step {
	return []Step{
		{Name: PreStep, Image: scaleImage, Command: "scale_pre_steps"},
		{Name: MainStep, Image: image, Command: command},
		{Name: PostStep, Image: scaleImage, Command: "scale_post_steps"},
	}
}

// QueuedExecution is a job execution waiting in the queue. Lower priority values are more
// important.
type QueuedExecution struct {
	ID       string              `json:"id"`
	JobType  string              `json:"job_type"`
	Priority int                 `json:"priority"`
	QueuedAt time.Time           `json:"queued"`
	Required resources.Resources `json:"required_resources"`
	// Restricts the execution to one node, empty means any node.
	Hostname string `json:"hostname,omitempty"`
	Steps    []Step `json:"steps"`
}

// IsNodeAcceptable is the node affinity predicate.
func (q *QueuedExecution) IsNodeAcceptable(hostname string) bool {
	return q.Hostname == "" || q.Hostname == hostname
}

// Before orders the queue: priority first, then queue time, then ID.
func (q *QueuedExecution) Before(o *QueuedExecution) bool {
	if q.Priority != o.Priority {
		return q.Priority < o.Priority
	}
	if !q.QueuedAt.Equal(o.QueuedAt) {
		return q.QueuedAt.Before(o.QueuedAt)
	}
	return q.ID < o.ID
}

// Schedule turns the queued execution into a running one on the given node.
func (q *QueuedExecution) Schedule(agentID, hostname string, now time.Time) *RunningExecution {
	return NewRunningExecution(q.ID, q.JobType, q.Priority, agentID, hostname, q.Required, q.Steps, now)
}

func (q *QueuedExecution) String() string {
	return fmt.Sprintf("{exe:%s, type:%s, priority:%d, required:%s}", q.ID, q.JobType, q.Priority, q.Required)
}
