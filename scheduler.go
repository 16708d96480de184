package cronkit

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"cronkit/pkg/eventbus"
	"cronkit/pkg/logx"
)

// Cron owns the task registry and the run loop. Construct one with New and
// share it freely; all methods are safe for concurrent use, though the loop
// itself is a single sequential goroutine.
type Cron struct {
	mu    sync.Mutex
	tasks []*Task
	seq   uint64

	log  logx.Logger
	bus  eventbus.Bus
	now  func() time.Time
	tick time.Duration

	// errLimit throttles payload-failure log lines so a hot failing task
	// cannot flood the sink. Suppressed lines are counted in the snapshot;
	// bus events are never throttled.
	errLimit   *rate.Limiter
	suppressed atomic.Uint64

	runsOK     atomic.Uint64
	runsFailed atomic.Uint64
	lastPass   atomic.Int64 // unix nanos of the last evaluation pass
}

// Snapshot is a point-in-time diagnostic view of a Cron instance.
type Snapshot struct {
	Tasks          int
	RunsOK         uint64
	RunsFailed     uint64
	SuppressedLogs uint64
	LastPass       time.Time
	Tick           time.Duration
}

// New builds a Cron with the given options. The zero configuration is fully
// usable: no-op logger, no bus, wall clock, 1s tick.
func New(opts ...Option) *Cron {
	c := &Cron{
		now:      time.Now,
		tick:     time.Second,
		errLimit: rate.NewLimiter(rate.Every(time.Second), 5),
	}
	for _, o := range opts {
		o(c)
	}
	if c.tick <= 0 {
		c.tick = time.Second
	}
	return c
}

// NewTask creates a Task, registers it, and returns it for chaining. The
// task stays inert until a payload is attached via Do/DoJob.
func (c *Cron) NewTask() *Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &Task{name: fmt.Sprintf("task-%d", c.seq)}
	c.tasks = append(c.tasks, t)
	return t
}

// Tasks returns the registered tasks in registration order. The returned
// slice is a snapshot; appending tasks concurrently is safe.
func (c *Cron) Tasks() []*Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// ByTag returns the tasks carrying the given tag, in registration order.
func (c *Cron) ByTag(name string) []*Task {
	var out []*Task
	for _, t := range c.Tasks() {
		if t.hasTag(name) {
			out = append(out, t)
		}
	}
	return out
}

// Len reports the number of registered tasks.
func (c *Cron) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

// Remove drops the task from the registry and reports whether it was present.
func (c *Cron) Remove(task *Task) bool {
	if task == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.tasks {
		if t == task {
			c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every task carrying any of the given tags, or all tasks when
// no tags are given. It returns the number removed.
func (c *Cron) Clear(tags ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(tags) == 0 {
		n := len(c.tasks)
		c.tasks = nil
		return n
	}
	kept := c.tasks[:0]
	removed := 0
	for _, t := range c.tasks {
		if t.hasAnyTag(tags) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	c.tasks = kept
	return removed
}

// RunPending executes one evaluation pass against the configured clock.
func (c *Cron) RunPending() { c.RunPendingAt(c.now()) }

// RunPendingAt executes one evaluation pass against the given instant: every
// registered runnable task whose spec matches now, and which has not already
// fired in now's calendar minute, is invoked in registration order. A
// payload failure or panic never stops the pass.
func (c *Cron) RunPendingAt(now time.Time) {
	slot := minuteOf(now)
	for _, t := range c.Tasks() {
		if !t.runnable() || !t.spec.Matches(now) {
			continue
		}
		if t.claimMinute(slot) {
			c.invoke(t)
		}
	}
	c.lastPass.Store(now.UnixNano())
}

// RunAll invokes every runnable task once, ignoring time specs entirely.
// With tags given, only tasks carrying at least one of them run. Order and
// failure isolation match RunPending; the per-minute dedup state is not
// touched, so a scheduled run in the same minute still fires.
func (c *Cron) RunAll(tags ...string) {
	for _, t := range c.Tasks() {
		if !t.runnable() {
			continue
		}
		if len(tags) > 0 && !t.hasAnyTag(tags) {
			continue
		}
		c.invoke(t)
	}
}

// Run is the blocking run loop: an evaluation pass immediately, then one per
// tick until ctx is done. It returns ctx.Err(). Hosts wanting a background
// scheduler run it in their own goroutine.
func (c *Cron) Run(ctx context.Context) error {
	return c.runLoop(ctx, c.tick)
}

// RunContinuously is Run with an explicit tick interval (<=0 means 1s).
// Matching granularity stays whole minutes regardless; a finer tick only
// improves responsiveness.
func (c *Cron) RunContinuously(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	return c.runLoop(ctx, interval)
}

func (c *Cron) runLoop(ctx context.Context, interval time.Duration) error {
	c.log.Info("run loop started",
		logx.Duration("tick", interval),
		logx.Int("tasks", c.Len()),
	)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		c.RunPending()
		select {
		case <-ctx.Done():
			c.log.Info("run loop stopped",
				logx.Uint64("runs_ok", c.runsOK.Load()),
				logx.Uint64("runs_failed", c.runsFailed.Load()),
			)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Snapshot returns current diagnostic counters.
func (c *Cron) Snapshot() Snapshot {
	s := Snapshot{
		Tasks:          c.Len(),
		RunsOK:         c.runsOK.Load(),
		RunsFailed:     c.runsFailed.Load(),
		SuppressedLogs: c.suppressed.Load(),
		Tick:           c.tick,
	}
	if ns := c.lastPass.Load(); ns != 0 {
		s.LastPass = time.Unix(0, ns)
	}
	return s
}

// invoke runs one payload synchronously with panic recovery. Errors are
// wrapped in *PayloadError, logged (rate limited) and published on the bus;
// they never propagate to the loop.
func (c *Cron) invoke(t *Task) {
	start := time.Now()
	err := c.runJob(t)
	took := time.Since(start)

	if err == nil {
		c.runsOK.Add(1)
		c.log.Debug("task ok",
			logx.String("task", t.name),
			logx.Duration("took", took),
		)
		c.publish(eventbus.Event{Type: eventbus.TypeRunOK, Task: t.name, Tags: t.Tags(), Took: took})
		return
	}

	perr := &PayloadError{Task: t.name, Tags: t.Tags(), Err: err}
	c.runsFailed.Add(1)
	if c.errLimit == nil || c.errLimit.Allow() {
		c.log.Error("task failed",
			logx.String("task", t.name),
			logx.Any("tags", t.Tags()),
			logx.Duration("took", took),
			logx.Err(perr.Err),
		)
	} else {
		c.suppressed.Add(1)
	}
	c.publish(eventbus.Event{Type: eventbus.TypeRunError, Task: t.name, Tags: t.Tags(), Took: took, Err: perr.Error()})
}

func (c *Cron) runJob(t *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			c.log.Error("task panic",
				logx.String("task", t.name),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
		}
	}()
	return t.job.Run()
}

func (c *Cron) publish(e eventbus.Event) {
	if c.bus == nil {
		return
	}
	e.Time = c.now()
	c.bus.Publish(e)
}
