package node

import (
	"fmt"
	"sort"
	"time"
)

// Exit codes of the health check task.
const (
	HealthExitBadDaemon      = 2
	HealthExitLowDockerSpace = 3
	HealthExitBadLogstash    = 4
)

// NodeError is a condition that blocks some or all work on a node.
type NodeError struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DaemonBad   bool   `json:"daemon_bad"`
	PullBad     bool   `json:"pull_bad"`
	health      bool
}

// NodeWarning is an informational condition.
type NodeWarning struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

var (
	BadDaemonErr = &NodeError{Name: "BAD_DAEMON", Title: "Docker Not Responding",
		Description: "The Docker daemon on this node is not responding.", DaemonBad: true, PullBad: true, health: true}
	BadLogstashErr = &NodeError{Name: "BAD_LOGSTASH", Title: "Logstash Not Responding",
		Description: "The Scale logstash is not responding to this node.", DaemonBad: true, health: true}
	LowDockerSpaceErr = &NodeError{Name: "LOW_DOCKER_SPACE", Title: "Low Docker Disk Space",
		Description: "The free disk space available to Docker is low.", DaemonBad: true, PullBad: true, health: true}
	HealthFailErr = &NodeError{Name: "HEALTH_FAIL", Title: "Health Check Failure",
		Description: "The last node health check failed with an unknown exit code.", health: true}
	HealthTimeoutErr = &NodeError{Name: "HEALTH_TIMEOUT", Title: "Health Check Timeout",
		Description: "The last node health check timed out.", health: true}
	CleanupErr = &NodeError{Name: "CLEANUP", Title: "Cleanup Failure",
		Description: "The node failed to clean up some Scale Docker containers and volumes."}
	ImagePullErr = &NodeError{Name: "IMAGE_PULL", Title: "Image Pull Failure",
		Description: "The node failed to pull the Scale Docker image.", PullBad: true}

	CleanupFailureWarning   = &NodeWarning{Name: "CLEANUP_FAILURE", Title: "Cleanup Failure"}
	CleanupTimeoutWarning   = &NodeWarning{Name: "CLEANUP_TIMEOUT", Title: "Cleanup Timeout"}
	ImagePullFailureWarning = &NodeWarning{Name: "IMAGE_PULL_FAILURE", Title: "Image Pull Failure"}
	ImagePullTimeoutWarning = &NodeWarning{Name: "IMAGE_PULL_TIMEOUT", Title: "Image Pull Timeout"}
)

var healthErrors = []*NodeError{BadDaemonErr, BadLogstashErr, LowDockerSpaceErr, HealthFailErr, HealthTimeoutErr}

// ActiveError is a NodeError currently affecting a node.
type ActiveError struct {
	*NodeError
	Started     time.Time `json:"started"`
	LastUpdated time.Time `json:"last_updated"`
}

// ActiveWarning is a NodeWarning currently affecting a node.
type ActiveWarning struct {
	*NodeWarning
	Description string    `json:"description"`
	Started     time.Time `json:"started"`
	LastUpdated time.Time `json:"last_updated"`
}

// Conditions tracks the errors and warnings of one node, fed by the outcome of its health,
// cleanup and pull tasks. Only one health error is active at a time. Not safe for concurrent
// use, the owning Node serializes access.
type Conditions struct {
	errors    map[string]*ActiveError
	warnings  map[string]*ActiveWarning
	daemonBad bool
	pullBad   bool
}

func NewConditions() *Conditions {
	return &Conditions{errors: make(map[string]*ActiveError), warnings: make(map[string]*ActiveWarning)}
}

func (c *Conditions) IsDaemonBad() bool { return c.daemonBad }
func (c *Conditions) IsPullBad() bool   { return c.pullBad }

func (c *Conditions) HasHealthError() bool {
	for _, e := range healthErrors {
		if _, ok := c.errors[e.Name]; ok {
			return true
		}
	}
	return false
}

// Error returns a copy of the named active error.
func (c *Conditions) Error(name string) (ActiveError, bool) {
	if e, ok := c.errors[name]; ok {
		return *e, true
	}
	return ActiveError{}, false
}

func (c *Conditions) HandleHealthTaskCompleted(now time.Time) {
	c.clearHealthErrors(nil)
	c.update()
}

func (c *Conditions) HandleHealthTaskFailed(exitCode int, now time.Time) {
	e := HealthFailErr
	switch exitCode {
	case HealthExitBadDaemon:
		e = BadDaemonErr
	case HealthExitLowDockerSpace:
		e = LowDockerSpaceErr
	case HealthExitBadLogstash:
		e = BadLogstashErr
	}
	c.clearHealthErrors(e)
	c.activateError(e, now)
	c.update()
}

func (c *Conditions) HandleHealthTaskTimedOut(now time.Time) {
	c.clearHealthErrors(HealthTimeoutErr)
	c.activateError(HealthTimeoutErr, now)
	c.update()
}

func (c *Conditions) HandleCleanupTaskCompleted(now time.Time) {
	delete(c.errors, CleanupErr.Name)
	delete(c.warnings, CleanupFailureWarning.Name)
	delete(c.warnings, CleanupTimeoutWarning.Name)
	c.update()
}

func (c *Conditions) HandleCleanupTaskFailed(exitCode int, now time.Time) {
	c.activateError(CleanupErr, now)
	c.activateWarning(CleanupFailureWarning, fmt.Sprintf("Cleanup task exited with code %d", exitCode), now)
	c.update()
}

func (c *Conditions) HandleCleanupTaskTimedOut(now time.Time) {
	c.activateWarning(CleanupTimeoutWarning, "Cleanup task timed out", now)
	c.update()
}

func (c *Conditions) HandlePullTaskCompleted(now time.Time) {
	delete(c.errors, ImagePullErr.Name)
	delete(c.warnings, ImagePullFailureWarning.Name)
	delete(c.warnings, ImagePullTimeoutWarning.Name)
	c.update()
}

func (c *Conditions) HandlePullTaskFailed(exitCode int, now time.Time) {
	c.activateError(ImagePullErr, now)
	c.activateWarning(ImagePullFailureWarning, fmt.Sprintf("Image pull task exited with code %d", exitCode), now)
	c.update()
}

func (c *Conditions) HandlePullTaskTimedOut(now time.Time) {
	c.activateError(ImagePullErr, now)
	c.activateWarning(ImagePullTimeoutWarning, "Image pull task timed out", now)
	c.update()
}

// ActiveErrors returns copies of the active errors ordered by name.
func (c *Conditions) ActiveErrors() []ActiveError {
	names := make([]string, 0, len(c.errors))
	for name := range c.errors {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]ActiveError, 0, len(names))
	for _, name := range names {
		out = append(out, *c.errors[name])
	}
	return out
}

// ActiveWarnings returns copies of the active warnings ordered by name.
func (c *Conditions) ActiveWarnings() []ActiveWarning {
	names := make([]string, 0, len(c.warnings))
	for name := range c.warnings {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]ActiveWarning, 0, len(names))
	for _, name := range names {
		out = append(out, *c.warnings[name])
	}
	return out
}

func (c *Conditions) activateError(e *NodeError, now time.Time) {
	if active, ok := c.errors[e.Name]; ok {
		active.LastUpdated = now
		return
	}
	c.errors[e.Name] = &ActiveError{NodeError: e, Started: now, LastUpdated: now}
}

func (c *Conditions) activateWarning(w *NodeWarning, description string, now time.Time) {
	if active, ok := c.warnings[w.Name]; ok {
		active.Description = description
		active.LastUpdated = now
		return
	}
	c.warnings[w.Name] = &ActiveWarning{NodeWarning: w, Description: description, Started: now, LastUpdated: now}
}

// clearHealthErrors removes every health error except keep, whose first-seen time survives.
func (c *Conditions) clearHealthErrors(keep *NodeError) {
	for _, e := range healthErrors {
		if keep != nil && e.Name == keep.Name {
			continue
		}
		delete(c.errors, e.Name)
	}
}

// daemonBad and pullBad are recomputed from scratch on every transition.
func (c *Conditions) update() {
	c.daemonBad, c.pullBad = false, false
	for _, e := range c.errors {
		c.daemonBad = c.daemonBad || e.DaemonBad
		c.pullBad = c.pullBad || e.PullBad
	}
}
