package task

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status reported by the cluster manager for a task.
type Status int

const (
	Staging Status = iota
	Running
	Finished
	Failed
	Killed
	Lost
	Error
)

func (s Status) String() string {
	switch s {
	case Staging:
		return "STAGING"
	case Running:
		return "RUNNING"
	case Finished:
		return "FINISHED"
	case Failed:
		return "FAILED"
	case Killed:
		return "KILLED"
	case Lost:
		return "LOST"
	case Error:
		return "ERROR"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// IsTerminal reports whether a task reporting this status has ended. LOST is not terminal.
func (s Status) IsTerminal() bool {
	switch s {
	case Finished, Failed, Killed, Error:
		return true
	}
	return false
}

// Update is an immutable status event for one task.
type Update struct {
	TaskID    string
	AgentID   string
	Status    Status
	Timestamp time.Time
	ExitCode  *int
	Reason    string
	Message   string
	// Opaque executor data, usually the container runtime's inspect output.
	Data []byte
}

func (u *Update) String() string {
	exit := "none"
	if u.ExitCode != nil {
		exit = fmt.Sprintf("%d", *u.ExitCode)
	}
	return fmt.Sprintf("{task:%s, agent:%s, status:%s, at:%s, exit:%s, reason:%s}",
		u.TaskID, u.AgentID, u.Status, u.Timestamp.Format(time.RFC3339), exit, u.Reason)
}

// ExitCode is a convenience for building updates.
func ExitCode(code int) *int {
	return &code
}

type inspectEntry struct {
	ID string `json:"Id"`
}

// parseContainerID pulls the runtime container ID out of update data. The data is either a
// single inspect object or an array of them; anything else yields "".
func parseContainerID(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var many []inspectEntry
	if err := json.Unmarshal(data, &many); err == nil {
		if len(many) > 0 {
			return many[0].ID
		}
		return ""
	}
	var one inspectEntry
	if err := json.Unmarshal(data, &one); err == nil {
		return one.ID
	}
	return ""
}
