package node

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"

	"github.com/ngageoint/scale/scheduler/resources"
	"github.com/ngageoint/scale/scheduler/store"
	"github.com/ngageoint/scale/scheduler/task"
)

const (
	HealthInterval      = 5 * time.Minute
	HealthErrorInterval = time.Minute
	PullRetryDelay      = 5 * time.Minute
	HealthTaskTimeout   = 15 * time.Minute
)

// Resources reserved by every maintenance task.
var maintenanceResources = resources.Resources{Cpus: 0.1, Mem: 32}

// State of a node, derived from its flags.
type State int

const (
	Inactive State = iota
	Offline
	Paused
	InitialCleanup
	ImagePull
	Ready
)

// States lists every state in order.
var States = []State{Inactive, Offline, Paused, InitialCleanup, ImagePull, Ready}

func (s State) String() string {
	return [...]string{"INACTIVE", "OFFLINE", "PAUSED", "INITIAL_CLEANUP", "IMAGE_PULL", "READY"}[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for _, st := range States {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown node state %q", b)
}

// Node is the in-memory state of one cluster node. It owns the node's maintenance tasks
// (health check, cleanup, image pull) and their outcome in the form of Conditions.
type Node struct {
	mu sync.Mutex

	id          int
	hostname    string
	agentID     string
	isActive    bool
	isOnline    bool
	isPaused    bool
	pauseReason string
	// Registry sequence number of the last in-memory pause change.
	pauseSeq uint64

	conditions         *Conditions
	initialCleanupDone bool
	scaleImage         string
	pulledImage        string
	lastHealthCheck    time.Time

	healthTask  *task.Task
	cleanupTask *task.Task
	pullTask    *task.Task

	// Finished job executions whose containers still have to be removed, and the ones the
	// current cleanup task is removing.
	toCleanup []string
	cleaning  []string
}

func newNode(agentID string, rec store.NodeRecord, scaleImage string) *Node {
	return &Node{
		id:          rec.ID,
		hostname:    rec.Hostname,
		agentID:     agentID,
		isActive:    rec.IsActive,
		isOnline:    agentID != "",
		isPaused:    rec.IsPaused,
		pauseReason: rec.PauseReason,
		conditions:  NewConditions(),
		scaleImage:  scaleImage,
	}
}

func (n *Node) ID() int          { return n.id }
func (n *Node) Hostname() string { return n.hostname }

func (n *Node) AgentID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.agentID
}

func (n *Node) IsActive() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.isActive
}

func (n *Node) IsOnline() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.isOnline
}

func (n *Node) IsPaused() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.isPaused
}

func (n *Node) IsDaemonBad() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conditions.IsDaemonBad()
}

func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state()
}

// IsReadyForJobs reports whether job execution tasks may be dispatched to the node.
func (n *Node) IsReadyForJobs() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state() == Ready && !n.conditions.IsDaemonBad()
}

// First matching condition wins.
func (n *Node) state() State {
	switch {
	case !n.isActive:
		return Inactive
	case !n.isOnline:
		return Offline
	case n.isPaused:
		return Paused
	case !n.initialCleanupDone:
		return InitialCleanup
	case n.needsPull():
		return ImagePull
	}
	return Ready
}

func (n *Node) needsPull() bool {
	return n.scaleImage != "" && n.pulledImage != n.scaleImage
}

// UpdateFromCluster records the agent the cluster manager reports for this node. A new agent ID
// means the agent restarted, so the node starts over with an initial cleanup and image pull.
func (n *Node) UpdateFromCluster(agentID string, online bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if agentID != "" && agentID != n.agentID {
		if n.agentID != "" {
			log.WithFields(log.Fields{"hostname": n.hostname, "old": n.agentID, "new": agentID}).Info("Node agent ID changed")
		}
		n.agentID = agentID
		n.initialCleanupDone = false
		n.pulledImage = ""
		n.resetTasks()
	}
	if !online {
		n.resetTasks()
	}
	n.isOnline = online
}

// UpdateFromStore applies the persisted record. Pause flags are skipped when the node was
// paused or resumed in memory after the record was read.
func (n *Node) UpdateFromStore(rec store.NodeRecord, readSeq uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.isActive = rec.IsActive
	if n.pauseSeq <= readSeq {
		n.isPaused = rec.IsPaused
		n.pauseReason = rec.PauseReason
	}
}

func (n *Node) setScaleImage(image string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scaleImage = image
}

func (n *Node) setPaused(paused bool, reason string, seq uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.isPaused = paused
	n.pauseReason = reason
	n.pauseSeq = seq
}

// InitialCleanupCompleted marks the node as cleaned after an agent (re)registration.
func (n *Node) InitialCleanupCompleted() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.initialCleanupDone = true
}

// AddJobExecutionsToCleanup queues finished executions for the next cleanup task.
func (n *Node) AddJobExecutionsToCleanup(executionIDs []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toCleanup = append(n.toCleanup, executionIDs...)
}

func (n *Node) resetTasks() {
	n.healthTask, n.cleanupTask, n.pullTask = nil, nil, nil
	n.toCleanup = append(n.cleaning, n.toCleanup...)
	n.cleaning = nil
}

// NextTasks returns the maintenance tasks waiting for launch, creating the ones now due. There
// is at most one task of each kind. A node with a bad daemon only gets health checks.
func (n *Node) NextTasks(now time.Time) []*task.Task {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.isActive || !n.isOnline {
		return nil
	}

	var tasks []*task.Task
	if t := n.nextHealthTask(now); t != nil {
		tasks = append(tasks, t)
	}
	if n.conditions.IsDaemonBad() {
		return tasks
	}
	if t := n.nextCleanupTask(); t != nil {
		tasks = append(tasks, t)
	}
	if t := n.nextPullTask(now); t != nil {
		tasks = append(tasks, t)
	}
	return tasks
}

func (n *Node) nextHealthTask(now time.Time) *task.Task {
	if n.healthTask != nil {
		return unlaunched(n.healthTask)
	}
	interval := HealthInterval
	if n.conditions.HasHealthError() {
		interval = HealthErrorInterval
	}
	if !n.lastHealthCheck.IsZero() && now.Sub(n.lastHealthCheck) < interval {
		return nil
	}
	n.healthTask = task.New(task.KindHealth, "Node Health Check", n.agentID, n.scaleImage, "scale_health_check", maintenanceResources)
	n.healthTask.SetTimeouts(0, HealthTaskTimeout)
	return n.healthTask
}

func (n *Node) nextCleanupTask() *task.Task {
	if n.cleanupTask != nil {
		return unlaunched(n.cleanupTask)
	}
	var command string
	switch {
	case !n.initialCleanupDone:
		command = "scale_cleanup --all"
	case len(n.toCleanup) > 0:
		n.cleaning, n.toCleanup = n.toCleanup, nil
		command = "scale_cleanup --executions=" + strings.Join(n.cleaning, ",")
	default:
		return nil
	}
	n.cleanupTask = task.New(task.KindCleanup, "Node Cleanup", n.agentID, n.scaleImage, command, maintenanceResources)
	return n.cleanupTask
}

func (n *Node) nextPullTask(now time.Time) *task.Task {
	if !n.initialCleanupDone || !n.needsPull() {
		return nil
	}
	if n.pullTask != nil {
		return unlaunched(n.pullTask)
	}
	if n.conditions.IsPullBad() {
		e, ok := n.conditions.Error(ImagePullErr.Name)
		if !ok || now.Sub(e.LastUpdated) < PullRetryDelay {
			return nil
		}
	}
	n.pullTask = task.New(task.KindPull, "Scale Image Pull", n.agentID, n.scaleImage, "docker pull "+n.scaleImage, maintenanceResources)
	return n.pullTask
}

// A task reset by a LOST update is handed out again.
func unlaunched(t *task.Task) *task.Task {
	if t.HasBeenLaunched() {
		return nil
	}
	return t
}

// HandleTaskUpdate reacts to an update already applied to one of this node's maintenance tasks.
// It reports whether the task belonged to the node.
func (n *Node) HandleTaskUpdate(t *task.Task) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch t {
	case n.healthTask:
		if t.HasEnded() {
			n.healthTaskEnded(t)
		}
	case n.cleanupTask:
		if t.HasEnded() {
			n.cleanupTaskEnded(t)
		}
	case n.pullTask:
		if t.HasEnded() {
			n.pullTaskEnded(t)
		}
	default:
		return false
	}
	return true
}

func (n *Node) healthTaskEnded(t *task.Task) {
	now := t.EndedAt()
	n.lastHealthCheck = now
	n.healthTask = nil
	switch {
	case t.Succeeded():
		n.conditions.HandleHealthTaskCompleted(now)
	case t.HasTimedOut():
		n.conditions.HandleHealthTaskTimedOut(now)
	default:
		code, _ := t.ExitCode()
		n.conditions.HandleHealthTaskFailed(code, now)
		log.WithFields(log.Fields{"hostname": n.hostname, "exitCode": code}).Warn("Node health check failed")
	}
}

func (n *Node) cleanupTaskEnded(t *task.Task) {
	now := t.EndedAt()
	n.cleanupTask = nil
	switch {
	case t.Succeeded():
		n.initialCleanupDone = true
		n.cleaning = nil
		n.conditions.HandleCleanupTaskCompleted(now)
	case t.HasTimedOut():
		n.toCleanup = append(n.cleaning, n.toCleanup...)
		n.cleaning = nil
		n.conditions.HandleCleanupTaskTimedOut(now)
	default:
		n.toCleanup = append(n.cleaning, n.toCleanup...)
		n.cleaning = nil
		code, _ := t.ExitCode()
		n.conditions.HandleCleanupTaskFailed(code, now)
		log.WithFields(log.Fields{"hostname": n.hostname, "exitCode": code}).Warn("Node cleanup failed")
	}
}

func (n *Node) pullTaskEnded(t *task.Task) {
	now := t.EndedAt()
	n.pullTask = nil
	switch {
	case t.Succeeded():
		n.pulledImage = t.Spec().Image
		n.conditions.HandlePullTaskCompleted(now)
	case t.HasTimedOut():
		n.conditions.HandlePullTaskTimedOut(now)
	default:
		code, _ := t.ExitCode()
		n.conditions.HandlePullTaskFailed(code, now)
		log.WithFields(log.Fields{"hostname": n.hostname, "exitCode": code}).Warn("Scale image pull failed")
	}
}

// Status is a point in time copy of a node for status reporting.
type Status struct {
	ID          int             `json:"id"`
	Hostname    string          `json:"hostname"`
	AgentID     string          `json:"agent_id"`
	State       State           `json:"state"`
	IsActive    bool            `json:"is_active"`
	IsOnline    bool            `json:"is_online"`
	IsPaused    bool            `json:"is_paused"`
	PauseReason string          `json:"pause_reason,omitempty"`
	Errors      []ActiveError   `json:"errors"`
	Warnings    []ActiveWarning `json:"warnings"`
}

func (n *Node) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Status{
		ID:          n.id,
		Hostname:    n.hostname,
		AgentID:     n.agentID,
		State:       n.state(),
		IsActive:    n.isActive,
		IsOnline:    n.isOnline,
		IsPaused:    n.isPaused,
		PauseReason: n.pauseReason,
		Errors:      n.conditions.ActiveErrors(),
		Warnings:    n.conditions.ActiveWarnings(),
	}
}

func (n *Node) String() string {
	s := n.Status()
	return fmt.Sprintf("{hostname:%s, agent:%s, state:%s, conditions:%s}",
		s.Hostname, s.AgentID, s.State, spew.Sdump(s.Errors, s.Warnings))
}
