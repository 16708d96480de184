package cronkit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Job is the payload capability: one method, no arguments. The scheduler
// invokes it and inspects nothing beyond the returned error.
type Job interface {
	Run() error
}

// JobFunc adapts a plain function to the Job interface.
type JobFunc func() error

func (f JobFunc) Run() error { return f() }

// minuteKey identifies a calendar minute. It is the deduplication unit of the
// run loop: a task fires at most once per key even when evaluation passes are
// finer-grained than one minute.
type minuteKey struct {
	year   int
	month  time.Month
	day    int
	hour   int
	minute int
}

func minuteOf(t time.Time) minuteKey {
	return minuteKey{
		year:   t.Year(),
		month:  t.Month(),
		day:    t.Day(),
		hour:   t.Hour(),
		minute: t.Minute(),
	}
}

// Task is one scheduled unit: a TimeSpec built up through chained calls, a
// tag set, and the payload attached by Do/DoJob.
//
// Builder methods validate eagerly and record the first error; Do returns it
// (and Err exposes it), so a misconfigured task never becomes runnable.
// Mutating the spec after the payload is attached is not supported.
type Task struct {
	name string
	spec TimeSpec
	tags []string
	job  Job
	err  error

	mu      sync.Mutex
	lastRun minuteKey
}

// EveryDay clears the weekday constraint so the task can fire on any day.
func (t *Task) EveryDay() *Task {
	t.spec.ClearDays()
	return t
}

// OnDays restricts the task to the given weekdays (0=Monday .. 6=Sunday),
// e.g. "0-4" for weekdays or "5,6" for the weekend.
func (t *Task) OnDays(spec string) *Task {
	t.record(t.spec.SetDays(spec))
	return t
}

// At registers an exact "H:MM" time of day. Repeated calls accumulate.
// When any exact time is set it decides matching; AtHours/AtMinutes
// constraints on the same task are ignored in its favor.
func (t *Task) At(spec string) *Task {
	t.record(t.spec.SetClockTime(spec))
	return t
}

// AtHours restricts the task to the given hours (0-23), e.g. "9-17".
func (t *Task) AtHours(spec string) *Task {
	t.record(t.spec.SetHours(spec))
	return t
}

// AtMinutes restricts the task to the given minutes past the hour (0-59),
// e.g. "0,30".
func (t *Task) AtMinutes(spec string) *Task {
	t.record(t.spec.SetMinutes(spec))
	return t
}

// Cron replaces the day/hour/minute constraints with ones decoded from a
// standard cron expression (see FromCron). Exact times set via At survive.
func (t *Task) Cron(expr string) *Task {
	ts, err := FromCron(expr)
	if err != nil {
		t.record(err)
		return t
	}
	t.spec.days = ts.days
	t.spec.hours = ts.hours
	t.spec.minutes = ts.minutes
	return t
}

// Weekday helpers add a single day to the constraint; they combine, so
// t.Monday().Friday() runs on both days.

func (t *Task) Monday() *Task    { t.spec.addDay(0); return t }
func (t *Task) Tuesday() *Task   { t.spec.addDay(1); return t }
func (t *Task) Wednesday() *Task { t.spec.addDay(2); return t }
func (t *Task) Thursday() *Task  { t.spec.addDay(3); return t }
func (t *Task) Friday() *Task    { t.spec.addDay(4); return t }
func (t *Task) Saturday() *Task  { t.spec.addDay(5); return t }
func (t *Task) Sunday() *Task    { t.spec.addDay(6); return t }

// HourInterval restricts the task to every n-th hour starting at midnight:
// n=6 gives hours 0, 6, 12, 18.
func (t *Task) HourInterval(n int) *Task {
	if n < 1 || n > 24 {
		t.record(&ParseError{Field: "hours", Input: fmt.Sprint(n), Reason: "interval outside 1-24"})
		return t
	}
	set := map[int]struct{}{}
	for h := 0; h < 24; h += n {
		set[h] = struct{}{}
	}
	t.spec.hours = set
	return t
}

// MinuteInterval restricts the task to every n-th minute past the hour:
// n=15 gives minutes 0, 15, 30, 45.
func (t *Task) MinuteInterval(n int) *Task {
	if n < 1 || n > 60 {
		t.record(&ParseError{Field: "minutes", Input: fmt.Sprint(n), Reason: "interval outside 1-60"})
		return t
	}
	set := map[int]struct{}{}
	for m := 0; m < 60; m += n {
		set[m] = struct{}{}
	}
	t.spec.minutes = set
	return t
}

// Named overrides the autogenerated task name used in logs and run events.
func (t *Task) Named(name string) *Task {
	if name != "" {
		t.name = name
	}
	return t
}

// Tag adds the given labels to the task's tag set (duplicates ignored).
func (t *Task) Tag(names ...string) *Task {
	for _, n := range names {
		if n == "" || t.hasTag(n) {
			continue
		}
		t.tags = append(t.tags, n)
	}
	return t
}

// Do attaches the payload function and finishes the builder chain.
// It returns the first error recorded by any earlier builder call.
func (t *Task) Do(fn func() error) (*Task, error) {
	if fn == nil {
		return t.DoJob(nil)
	}
	return t.DoJob(JobFunc(fn))
}

// DoJob attaches the payload and finishes the builder chain.
func (t *Task) DoJob(j Job) (*Task, error) {
	if t.err != nil {
		return t, t.err
	}
	if j == nil {
		t.err = errors.New("cronkit: nil payload")
		return t, t.err
	}
	t.job = j
	return t, nil
}

// Name returns the task's log identity.
func (t *Task) Name() string { return t.name }

// Tags returns a copy of the tag set in insertion order.
func (t *Task) Tags() []string {
	out := make([]string, len(t.tags))
	copy(out, t.tags)
	return out
}

// Err returns the first error recorded by a builder call, if any.
func (t *Task) Err() error { return t.err }

// Matches reports whether the task's spec is due at t.
func (t *Task) Matches(at time.Time) bool { return t.spec.Matches(at) }

// SpecString renders the current recurrence constraints for display.
func (t *Task) SpecString() string { return t.spec.String() }

// LastRun returns the minute of the most recent dispatch (zero time if the
// task has never fired from a matching pass).
func (t *Task) LastRun() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := t.lastRun
	if k == (minuteKey{}) {
		return time.Time{}
	}
	return time.Date(k.year, k.month, k.day, k.hour, k.minute, 0, 0, time.Local)
}

// record keeps the first error produced by a builder call.
func (t *Task) record(err error) {
	if err != nil && t.err == nil {
		t.err = err
	}
}

// runnable reports whether the scheduler may invoke this task.
func (t *Task) runnable() bool { return t.job != nil && t.err == nil }

// claimMinute marks the slot as fired and reports whether this call won it.
// The slot is consumed whether or not the payload then succeeds, so a failing
// task cannot retry-storm within its minute.
func (t *Task) claimMinute(slot minuteKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastRun == slot {
		return false
	}
	t.lastRun = slot
	return true
}

func (t *Task) hasTag(name string) bool {
	for _, tg := range t.tags {
		if tg == name {
			return true
		}
	}
	return false
}

func (t *Task) hasAnyTag(names []string) bool {
	for _, n := range names {
		if t.hasTag(n) {
			return true
		}
	}
	return false
}
