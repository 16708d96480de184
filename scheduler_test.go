package cronkit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"cronkit/pkg/eventbus"
)

func counterTask(t *testing.T, c *Cron, n *atomic.Int64, tags ...string) *Task {
	t.Helper()
	task, err := c.NewTask().Tag(tags...).Do(func() error {
		n.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}
	return task
}

func TestRunPendingOncePerMinute(t *testing.T) {
	t.Parallel()
	c := New()
	var runs atomic.Int64
	if _, err := c.NewTask().EveryDay().AtHours("9").Do(func() error {
		runs.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Do error: %v", err)
	}

	at := dayAt(2, 9, 0)
	c.RunPendingAt(at)
	c.RunPendingAt(at.Add(10 * time.Second))
	c.RunPendingAt(at.Add(59 * time.Second))
	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1 (same minute)", got)
	}

	c.RunPendingAt(at.Add(time.Minute))
	if got := runs.Load(); got != 2 {
		t.Fatalf("runs = %d, want 2 (next minute)", got)
	}

	c.RunPendingAt(at.Add(2 * time.Hour))
	if got := runs.Load(); got != 2 {
		t.Fatalf("runs = %d, want 2 (hour 11 must not match)", got)
	}
}

func TestRunPendingFailureIsolation(t *testing.T) {
	t.Parallel()
	c := New()
	var order []string
	mustDo := func(name string, fn func() error) {
		if _, err := c.NewTask().Named(name).Do(fn); err != nil {
			t.Fatalf("Do(%s) error: %v", name, err)
		}
	}
	mustDo("boom", func() error { order = append(order, "boom"); return errors.New("boom") })
	mustDo("panic", func() error { order = append(order, "panic"); panic("kaput") })
	mustDo("ok", func() error { order = append(order, "ok"); return nil })

	c.RunPendingAt(dayAt(0, 10, 0))

	if len(order) != 3 || order[0] != "boom" || order[1] != "panic" || order[2] != "ok" {
		t.Fatalf("execution order = %v", order)
	}
	snap := c.Snapshot()
	if snap.RunsOK != 1 || snap.RunsFailed != 2 {
		t.Fatalf("snapshot runs: ok=%d failed=%d", snap.RunsOK, snap.RunsFailed)
	}
}

func TestFailingTaskDoesNotRetryWithinMinute(t *testing.T) {
	t.Parallel()
	c := New()
	var runs atomic.Int64
	if _, err := c.NewTask().Do(func() error {
		runs.Add(1)
		return errors.New("always fails")
	}); err != nil {
		t.Fatalf("Do error: %v", err)
	}

	at := dayAt(1, 12, 30)
	c.RunPendingAt(at)
	c.RunPendingAt(at.Add(5 * time.Second))
	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1 (no retry storm)", got)
	}
}

func TestFailureLogThrottleCountsSuppressions(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(8)
	defer unsub()

	// One log line per hour with burst 1: the first failure logs, the
	// second is suppressed and counted.
	c := New(
		WithBus(bus),
		WithErrorLogLimit(rate.Every(time.Hour), 1),
	)
	if _, err := c.NewTask().Named("flaky").Do(func() error {
		return errors.New("down")
	}); err != nil {
		t.Fatalf("Do error: %v", err)
	}

	at := dayAt(2, 11, 0)
	c.RunPendingAt(at)
	c.RunPendingAt(at.Add(time.Minute))

	snap := c.Snapshot()
	if snap.RunsFailed != 2 {
		t.Fatalf("RunsFailed = %d, want 2", snap.RunsFailed)
	}
	if snap.SuppressedLogs != 1 {
		t.Fatalf("SuppressedLogs = %d, want 1", snap.SuppressedLogs)
	}

	// The throttle only gates log lines; every failure still reaches the bus.
	for i := 0; i < 2; i++ {
		select {
		case ev := <-ch:
			if ev.Type != eventbus.TypeRunError || ev.Task != "flaky" {
				t.Fatalf("event %d = %+v", i, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing bus event %d", i)
		}
	}
}

func TestRunAllIgnoresTimeSpecs(t *testing.T) {
	t.Parallel()
	// Clock frozen at a minute none of the specs below can match: RunAll
	// must fire the tagged tasks anyway.
	c := New(WithClock(func() time.Time { return dayAt(0, 3, 3) }))
	var a, b, other atomic.Int64
	mustDo := func(n *atomic.Int64, tags ...string) {
		if _, err := c.NewTask().At("12:00").Tag(tags...).Do(func() error {
			n.Add(1)
			return nil
		}); err != nil {
			t.Fatalf("Do error: %v", err)
		}
	}
	mustDo(&a, "x")
	mustDo(&b, "x", "y")
	mustDo(&other, "z")

	c.RunAll("x")
	if a.Load() != 1 || b.Load() != 1 {
		t.Fatalf("tagged runs: a=%d b=%d, want 1,1", a.Load(), b.Load())
	}
	if other.Load() != 0 {
		t.Fatalf("untagged task ran %d times", other.Load())
	}

	c.RunAll()
	if a.Load() != 2 || b.Load() != 2 || other.Load() != 1 {
		t.Fatalf("unfiltered RunAll: a=%d b=%d other=%d", a.Load(), b.Load(), other.Load())
	}
}

func TestRegistryOrderAndByTag(t *testing.T) {
	t.Parallel()
	c := New()
	var n atomic.Int64
	t1 := counterTask(t, c, &n, "x")
	t2 := counterTask(t, c, &n)
	t3 := counterTask(t, c, &n, "x")

	all := c.Tasks()
	if len(all) != 3 || all[0] != t1 || all[1] != t2 || all[2] != t3 {
		t.Fatal("Tasks() must preserve registration order")
	}
	byTag := c.ByTag("x")
	if len(byTag) != 2 || byTag[0] != t1 || byTag[1] != t3 {
		t.Fatal("ByTag() must preserve registration order")
	}
}

func TestRemoveAndClear(t *testing.T) {
	t.Parallel()
	c := New()
	var n atomic.Int64
	t1 := counterTask(t, c, &n, "x")
	counterTask(t, c, &n, "y")
	counterTask(t, c, &n, "x", "y")

	if !c.Remove(t1) {
		t.Fatal("Remove should report the task was present")
	}
	if c.Remove(t1) {
		t.Fatal("second Remove should report absence")
	}
	if got := c.Clear("x"); got != 1 {
		t.Fatalf("Clear(x) removed %d, want 1", got)
	}
	if got := c.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	if got := c.Clear(); got != 1 {
		t.Fatalf("Clear() removed %d, want 1", got)
	}
	if got := c.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0", got)
	}
}

func TestRunContinuouslyStopsOnContextAndDedups(t *testing.T) {
	t.Parallel()
	now := dayAt(3, 15, 4)
	c := New(WithClock(func() time.Time { return now }))

	var runs atomic.Int64
	if _, err := c.NewTask().AtHours("15").Do(func() error {
		runs.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Do error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	err := c.RunContinuously(ctx, time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RunContinuously returned %v", err)
	}
	// Many sub-minute ticks against a frozen clock: exactly one dispatch.
	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}
}

func TestRunEventsPublished(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(8)
	defer unsub()

	c := New(WithBus(bus))
	if _, err := c.NewTask().Named("good").Tag("t").Do(func() error { return nil }); err != nil {
		t.Fatalf("Do error: %v", err)
	}
	if _, err := c.NewTask().Named("bad").Do(func() error { return errors.New("nope") }); err != nil {
		t.Fatalf("Do error: %v", err)
	}

	c.RunPendingAt(dayAt(4, 8, 0))

	ev := <-ch
	if ev.Type != eventbus.TypeRunOK || ev.Task != "good" || len(ev.Tags) != 1 {
		t.Fatalf("first event = %+v", ev)
	}
	ev = <-ch
	if ev.Type != eventbus.TypeRunError || ev.Task != "bad" || ev.Err == "" {
		t.Fatalf("second event = %+v", ev)
	}
}

func TestSnapshotCounters(t *testing.T) {
	t.Parallel()
	c := New(WithTick(250 * time.Millisecond))
	var n atomic.Int64
	counterTask(t, c, &n)

	at := dayAt(5, 7, 7)
	c.RunPendingAt(at)
	snap := c.Snapshot()
	if snap.Tasks != 1 || snap.RunsOK != 1 || snap.RunsFailed != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Tick != 250*time.Millisecond {
		t.Fatalf("snapshot tick = %v", snap.Tick)
	}
	if !snap.LastPass.Equal(at) {
		t.Fatalf("snapshot last pass = %v, want %v", snap.LastPass, at)
	}
}

func TestDefaultInstanceAPI(t *testing.T) {
	// Uses shared package state; keep it serial and scoped to a unique tag.
	var runs atomic.Int64
	task, err := NewTask().Tag("default-instance-test").Do(func() error {
		runs.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}
	defer Default().Remove(task)

	if got := ByTag("default-instance-test"); len(got) != 1 || got[0] != task {
		t.Fatalf("ByTag = %v", got)
	}
	RunAll("default-instance-test")
	if runs.Load() != 1 {
		t.Fatalf("runs = %d, want 1", runs.Load())
	}
}
