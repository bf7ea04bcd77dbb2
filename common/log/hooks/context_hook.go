package hooks

import (
	"runtime/debug"
	"strings"

	"github.com/sirupsen/logrus"
)

// contextHook annotates each entry with the file:line of the logging callsite.
type contextHook struct{}

func NewContextHook() contextHook {
	return contextHook{}
}

func (hook contextHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook contextHook) Fire(entry *logrus.Entry) error {
	if loc := callsite(string(debug.Stack())); loc != "" {
		entry.Data["file:line"] = loc
	}
	return nil
}

// Walks a goroutine stack dump and returns the first source location outside logrus and this hook.
// Stack dumps alternate between a function line and a tab-indented "file:line +0x.." line.
func callsite(stack string) string {
	lines := strings.Split(stack, "\n")
	for i := 1; i+1 < len(lines); i += 2 {
		fn, loc := lines[i], strings.TrimSpace(lines[i+1])
		if strings.Contains(fn, "sirupsen/logrus") || strings.Contains(loc, "context_hook.go:") ||
			strings.HasPrefix(fn, "runtime/debug") {
			continue
		}
		if idx := strings.LastIndex(loc, " +0x"); idx >= 0 {
			loc = loc[:idx]
		}
		ctx := strings.Split(loc, "scale/")
		return ctx[len(ctx)-1]
	}
	return ""
}
