package cronkit

import (
	"github.com/robfig/cron/v3"
)

// starBit mirrors robfig/cron's marker for a field that was "*" (or an
// unrestricted "/step"). It lets us tell "every value" apart from a field
// that happens to enumerate the whole domain.
const starBit = 1 << 63

// FromCron converts a standard 5-field cron expression (or a descriptor like
// "@hourly") into a TimeSpec.
//
// Only the minute, hour and day-of-week fields translate; expressions that
// constrain day-of-month or month, and interval descriptors ("@every ..."),
// are rejected. Day-of-week numbering is converted from cron's Sunday=0 to
// this package's Monday=0.
func FromCron(expr string) (*TimeSpec, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, &ParseError{Field: "cron", Input: expr, Reason: err.Error()}
	}
	ss, ok := sched.(*cron.SpecSchedule)
	if !ok {
		return nil, &ParseError{Field: "cron", Input: expr, Reason: "only fixed-field expressions are supported"}
	}
	if ss.Dom&starBit == 0 || ss.Month&starBit == 0 {
		return nil, &ParseError{Field: "cron", Input: expr, Reason: "day-of-month and month fields must be '*'"}
	}

	ts := &TimeSpec{}
	if ss.Dow&starBit == 0 {
		ts.days = map[int]struct{}{}
		for d := 0; d <= 6; d++ {
			if ss.Dow&(1<<uint(d)) != 0 {
				ts.days[(d+6)%7] = struct{}{}
			}
		}
	}
	if ss.Hour&starBit == 0 {
		ts.hours = map[int]struct{}{}
		for h := 0; h <= 23; h++ {
			if ss.Hour&(1<<uint(h)) != 0 {
				ts.hours[h] = struct{}{}
			}
		}
	}
	if ss.Minute&starBit == 0 {
		ts.minutes = map[int]struct{}{}
		for m := 0; m <= 59; m++ {
			if ss.Minute&(1<<uint(m)) != 0 {
				ts.minutes[m] = struct{}{}
			}
		}
	}
	return ts, nil
}
