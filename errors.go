package cronkit

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed or out-of-domain recurrence spec string.
//
// It is returned synchronously by the TimeSpec setters (and recorded by the
// Task builder) at the point the bad input is supplied, never at run time.
type ParseError struct {
	Field  string // "days" | "hours" | "minutes" | "at" | "cron"
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cronkit: bad %s spec %q: %s", e.Field, e.Input, e.Reason)
}

// PayloadError wraps an error (or recovered panic) raised by a task's payload.
//
// The run loop never propagates it to the caller; it is logged and published
// on the event bus, carrying the task's identity and tags.
type PayloadError struct {
	Task string
	Tags []string
	Err  error
}

func (e *PayloadError) Error() string {
	if len(e.Tags) == 0 {
		return fmt.Sprintf("cronkit: task %s: %v", e.Task, e.Err)
	}
	return fmt.Sprintf("cronkit: task %s [%s]: %v", e.Task, strings.Join(e.Tags, ","), e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }
