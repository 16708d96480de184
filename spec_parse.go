package cronkit

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Field-set grammar shared by the days/hours/minutes setters:
//
//   - single integer:      "9"
//   - comma list:          "0, 15, 30"
//   - inclusive range:     "9-17" (also "9:17")
//
// Only one delimiter kind may appear in a single spec, a range takes exactly
// two values with start <= end, and every value must fit the field's domain.
// Whitespace around values is tolerated.
var reFieldDelim = regexp.MustCompile(`[:,\-]`)

func parseFieldSet(field, raw string, max int) (map[int]struct{}, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, &ParseError{Field: field, Input: raw, Reason: "empty spec"}
	}

	delims := map[string]struct{}{}
	for _, d := range reFieldDelim.FindAllString(s, -1) {
		delims[d] = struct{}{}
	}
	if len(delims) > 1 {
		return nil, &ParseError{Field: field, Input: raw, Reason: "mixed delimiters; use either a list or a range"}
	}

	parts := reFieldDelim.Split(s, -1)
	vals := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, &ParseError{Field: field, Input: raw, Reason: fmt.Sprintf("not an integer: %q", strings.TrimSpace(p))}
		}
		if n < 0 || n > max {
			return nil, &ParseError{Field: field, Input: raw, Reason: fmt.Sprintf("value %d outside 0-%d", n, max)}
		}
		vals = append(vals, n)
	}

	_, isList := delims[","]
	set := make(map[int]struct{}, len(vals))
	switch {
	case isList || len(vals) == 1:
		for _, v := range vals {
			set[v] = struct{}{}
		}
	case len(vals) == 2:
		if vals[0] > vals[1] {
			return nil, &ParseError{Field: field, Input: raw, Reason: "range start after end"}
		}
		for v := vals[0]; v <= vals[1]; v++ {
			set[v] = struct{}{}
		}
	default:
		return nil, &ParseError{Field: field, Input: raw, Reason: fmt.Sprintf("a range takes exactly two values, got %d", len(vals))}
	}
	return set, nil
}

// parseClock parses an exact time-of-day literal like "9:00" or "14:45".
func parseClock(raw string) (clockTime, error) {
	s := strings.TrimSpace(raw)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return clockTime{}, &ParseError{Field: "at", Input: raw, Reason: "expected H:MM"}
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || h < 0 || h > 23 {
		return clockTime{}, &ParseError{Field: "at", Input: raw, Reason: "hour outside 0-23"}
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || m < 0 || m > 59 {
		return clockTime{}, &ParseError{Field: "at", Input: raw, Reason: "minute outside 0-59"}
	}
	return clockTime{Hour: h, Minute: m}, nil
}

// formatSet renders a value set compactly for logs and snapshots ("*" when
// the set is a wildcard).
func formatSet(set map[int]struct{}) string {
	if len(set) == 0 {
		return "*"
	}
	vals := make([]int, 0, len(set))
	for v := range set {
		vals = append(vals, v)
	}
	sort.Ints(vals)
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}
