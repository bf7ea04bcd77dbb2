package job

import (
	"sort"

	"github.com/ngageoint/scale/scheduler/resources"
)

// JobType is an entry of the work-type catalog.
type JobType struct {
	Name string `json:"name"`
	// Maximum number of executions of this type scheduled at once, zero means unlimited.
	MaxScheduled int                 `json:"max_scheduled"`
	Resources    resources.Resources `json:"resources"`
	Paused       bool                `json:"is_paused"`
}

// TypeLimits pairs the catalog with the number of executions of each type currently scheduled.
type TypeLimits struct {
	Types   map[string]*JobType `json:"types"`
	Running map[string]int      `json:"running"`
}

func NewTypeLimits(types []*JobType, running map[string]int) *TypeLimits {
	l := &TypeLimits{Types: make(map[string]*JobType), Running: make(map[string]int)}
	for _, jt := range types {
		l.Types[jt.Name] = jt
	}
	for name, n := range running {
		l.Running[name] = n
	}
	return l
}

// IsPaused reports whether new executions of the type must not be scheduled.
// Unknown types are treated as paused.
func (l *TypeLimits) IsPaused(name string) bool {
	jt, ok := l.Types[name]
	return !ok || jt.Paused
}

// Slots returns the remaining admission slots per limited type. Types without a limit are absent.
func (l *TypeLimits) Slots() map[string]int {
	slots := make(map[string]int)
	for name, jt := range l.Types {
		if jt.MaxScheduled <= 0 {
			continue
		}
		remaining := jt.MaxScheduled - l.Running[name]
		if remaining < 0 {
			remaining = 0
		}
		slots[name] = remaining
	}
	return slots
}

// Profiles returns the resource profile of every unpaused type, ordered by type name.
// Placement scoring counts how many of these still fit on a node.
func (l *TypeLimits) Profiles() []resources.Resources {
	names := make([]string, 0, len(l.Types))
	for name, jt := range l.Types {
		if !jt.Paused {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	profiles := make([]resources.Resources, 0, len(names))
	for _, name := range names {
		profiles = append(profiles, l.Types[name].Resources)
	}
	return profiles
}
