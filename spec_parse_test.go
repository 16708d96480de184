package cronkit

import (
	"errors"
	"testing"
)

func TestParseFieldSetVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		max  int
		want []int
	}{
		{name: "single", raw: "9", max: 23, want: []int{9}},
		{name: "list", raw: "0, 15, 30", max: 59, want: []int{0, 15, 30}},
		{name: "list unordered", raw: "30,0,15", max: 59, want: []int{0, 15, 30}},
		{name: "range", raw: "9-17", max: 23, want: []int{9, 10, 11, 12, 13, 14, 15, 16, 17}},
		{name: "colon range", raw: "0:4", max: 6, want: []int{0, 1, 2, 3, 4}},
		{name: "whitespace", raw: "  1 - 3 ", max: 6, want: []int{1, 2, 3}},
		{name: "degenerate range", raw: "5-5", max: 6, want: []int{5}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFieldSet("hours", tt.raw, tt.max)
			if err != nil {
				t.Fatalf("parseFieldSet(%q) error: %v", tt.raw, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d values, want %d (%v)", len(got), len(tt.want), got)
			}
			for _, v := range tt.want {
				if _, ok := got[v]; !ok {
					t.Fatalf("missing value %d in %v", v, got)
				}
			}
		})
	}
}

func TestParseFieldSetInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		max  int
	}{
		{name: "empty", raw: "", max: 23},
		{name: "out of domain", raw: "24", max: 23},
		{name: "weekday out of domain", raw: "7", max: 6},
		{name: "negative", raw: "-1", max: 59},
		{name: "start after end", raw: "5-2", max: 23},
		{name: "three range values", raw: "1-2-3", max: 23},
		{name: "mixed delimiters", raw: "1,2-3", max: 23},
		{name: "not an integer", raw: "monday", max: 6},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFieldSet("hours", tt.raw, tt.max)
			if err == nil {
				t.Fatalf("parseFieldSet(%q) expected error", tt.raw)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error type = %T, want *ParseError", err)
			}
			if perr.Input != tt.raw {
				t.Fatalf("ParseError.Input = %q, want %q", perr.Input, tt.raw)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()
	ct, err := parseClock("9:05")
	if err != nil {
		t.Fatalf("parseClock error: %v", err)
	}
	if ct.Hour != 9 || ct.Minute != 5 {
		t.Fatalf("unexpected result: %d:%02d", ct.Hour, ct.Minute)
	}

	for _, raw := range []string{"24:00", "9:60", "900", "9:00:00", "half past nine"} {
		if _, err := parseClock(raw); err == nil {
			t.Fatalf("parseClock(%q) expected error", raw)
		}
	}
}

func TestFormatSet(t *testing.T) {
	t.Parallel()
	if got := formatSet(nil); got != "*" {
		t.Fatalf("formatSet(nil) = %q, want *", got)
	}
	set := map[int]struct{}{17: {}, 9: {}, 12: {}}
	if got := formatSet(set); got != "9,12,17" {
		t.Fatalf("formatSet = %q, want 9,12,17", got)
	}
}
