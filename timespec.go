package cronkit

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Weekday numbering follows the original library: 0=Monday .. 6=Sunday.
const maxWeekday = 6

// clockTime is an exact time of day set via At("H:MM").
type clockTime struct {
	Hour   int
	Minute int
}

// TimeSpec holds the recurrence constraints for one task and answers whether
// a given instant is due.
//
// Empty sets are wildcards: no days means every day, no hours means any hour,
// no minutes means any minute. When exact clock times are present they take
// priority over the hour/minute range constraints (the day filter still
// applies either way).
type TimeSpec struct {
	days    map[int]struct{}
	hours   map[int]struct{}
	minutes map[int]struct{}
	clock   map[clockTime]struct{}
}

// SetDays parses a weekday spec (domain 0-6, 0=Monday) into the days set.
func (ts *TimeSpec) SetDays(spec string) error {
	set, err := parseFieldSet("days", spec, maxWeekday)
	if err != nil {
		return err
	}
	ts.days = set
	return nil
}

// SetHours parses an hour spec (domain 0-23) into the hours set.
func (ts *TimeSpec) SetHours(spec string) error {
	set, err := parseFieldSet("hours", spec, 23)
	if err != nil {
		return err
	}
	ts.hours = set
	return nil
}

// SetMinutes parses a minute spec (domain 0-59) into the minutes set.
func (ts *TimeSpec) SetMinutes(spec string) error {
	set, err := parseFieldSet("minutes", spec, 59)
	if err != nil {
		return err
	}
	ts.minutes = set
	return nil
}

// SetClockTime parses an exact "H:MM" time of day and adds it to the
// clock-time set. Multiple calls accumulate.
func (ts *TimeSpec) SetClockTime(spec string) error {
	ct, err := parseClock(spec)
	if err != nil {
		return err
	}
	if ts.clock == nil {
		ts.clock = map[clockTime]struct{}{}
	}
	ts.clock[ct] = struct{}{}
	return nil
}

// ClearDays resets the day constraint back to the every-day wildcard.
func (ts *TimeSpec) ClearDays() { ts.days = nil }

func (ts *TimeSpec) addDay(d int) {
	if ts.days == nil {
		ts.days = map[int]struct{}{}
	}
	ts.days[d] = struct{}{}
}

// Matches reports whether the instant t is due under this spec.
//
// Evaluation order: the day filter first, then exact clock times when any are
// set, otherwise the hour/minute range constraints. Matching granularity is
// whole minutes; seconds never participate.
func (ts *TimeSpec) Matches(t time.Time) bool {
	if len(ts.days) > 0 {
		if _, ok := ts.days[weekdayIndex(t)]; !ok {
			return false
		}
	}
	if len(ts.clock) > 0 {
		_, ok := ts.clock[clockTime{Hour: t.Hour(), Minute: t.Minute()}]
		return ok
	}
	if len(ts.hours) > 0 {
		if _, ok := ts.hours[t.Hour()]; !ok {
			return false
		}
	}
	if len(ts.minutes) > 0 {
		if _, ok := ts.minutes[t.Minute()]; !ok {
			return false
		}
	}
	return true
}

// String renders the spec compactly, e.g. "days=0-4 hours=9,17 minutes=*"
// or "days=* at=9:00,17:30". Used in logs and snapshots.
func (ts *TimeSpec) String() string {
	var b strings.Builder
	b.WriteString("days=")
	b.WriteString(formatSet(ts.days))
	if len(ts.clock) > 0 {
		cts := make([]clockTime, 0, len(ts.clock))
		for ct := range ts.clock {
			cts = append(cts, ct)
		}
		sort.Slice(cts, func(i, j int) bool {
			if cts[i].Hour != cts[j].Hour {
				return cts[i].Hour < cts[j].Hour
			}
			return cts[i].Minute < cts[j].Minute
		})
		b.WriteString(" at=")
		for i, ct := range cts {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%d:%02d", ct.Hour, ct.Minute)
		}
		return b.String()
	}
	b.WriteString(" hours=")
	b.WriteString(formatSet(ts.hours))
	b.WriteString(" minutes=")
	b.WriteString(formatSet(ts.minutes))
	return b.String()
}

// weekdayIndex converts Go's Sunday=0 weekday to the 0=Monday numbering.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
