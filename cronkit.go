package cronkit

import (
	"context"
	"time"
)

// defaultCron backs the package-level convenience API. Library code should
// prefer an explicit Cron from New; the default instance exists for small
// hosts and matches the original module-level entry points.
var defaultCron = New()

// Default returns the package-level Cron instance.
func Default() *Cron { return defaultCron }

// NewTask creates and registers a task on the default instance.
func NewTask() *Task { return defaultCron.NewTask() }

// ByTag returns the default instance's tasks carrying the given tag.
func ByTag(name string) []*Task { return defaultCron.ByTag(name) }

// RunPending executes one evaluation pass on the default instance.
func RunPending() { defaultCron.RunPending() }

// RunAll immediately invokes the default instance's tasks, optionally
// filtered by tag, ignoring their time specs.
func RunAll(tags ...string) { defaultCron.RunAll(tags...) }

// RunContinuously runs the default instance's blocking loop until ctx is
// done. interval <= 0 means one pass per second.
func RunContinuously(ctx context.Context, interval time.Duration) error {
	return defaultCron.RunContinuously(ctx, interval)
}
