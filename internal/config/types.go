package config

import (
	"fmt"
	"strings"

	"cronkit"
	"cronkit/pkg/logx"
)

// Config is the cronkitd daemon configuration. Files may be YAML or JSON;
// both go through the same strict decoder (unknown fields are rejected).
type Config struct {
	Log logx.Config `json:"log,omitempty"`

	// Tick is the run-loop interval as a Go duration string (default "1s").
	// Matching granularity is whole minutes regardless; a finer tick only
	// improves responsiveness.
	Tick string `json:"tick,omitempty"`

	Journal JournalConfig `json:"journal,omitempty"`

	Jobs []JobConfig `json:"jobs"`
}

// JournalConfig controls the sqlite run-history journal.
type JournalConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`

	// BusyTimeout is a Go duration string (e.g. "250ms").
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// JobConfig declares one scheduled command.
//
// Recurrence is either the days/hours/minutes field-set grammar
// ("0-4", "9,17", ...), exact clock times via At, or a standard cron
// expression via Cron (mutually exclusive with days/hours/minutes).
type JobConfig struct {
	Name    string   `json:"name"`
	Days    string   `json:"days,omitempty"`
	Hours   string   `json:"hours,omitempty"`
	Minutes string   `json:"minutes,omitempty"`
	At      []string `json:"at,omitempty"`
	Cron    string   `json:"cron,omitempty"`
	Tags    []string `json:"tags,omitempty"`

	// Command is the argv to execute; Dir its working directory.
	Command []string `json:"command"`
	Dir     string   `json:"dir,omitempty"`
}

// Validate checks the whole config eagerly so a bad file is rejected before
// it replaces a running task set.
func (c *Config) Validate() error {
	if _, err := ParseDurationOrDefault("tick", c.Tick, 0); err != nil {
		return err
	}
	if _, err := ParseDurationField("journal.busy_timeout", c.Journal.BusyTimeout); err != nil {
		return err
	}
	if c.Journal.Enabled && strings.TrimSpace(c.Journal.Path) == "" {
		return fmt.Errorf("journal.path: required when journal is enabled")
	}

	seen := map[string]struct{}{}
	for i, j := range c.Jobs {
		path := fmt.Sprintf("jobs[%d]", i)
		if strings.TrimSpace(j.Name) == "" {
			return fmt.Errorf("%s: name required", path)
		}
		if _, dup := seen[j.Name]; dup {
			return fmt.Errorf("%s: duplicate name %q", path, j.Name)
		}
		seen[j.Name] = struct{}{}
		if len(j.Command) == 0 || strings.TrimSpace(j.Command[0]) == "" {
			return fmt.Errorf("%s (%s): command required", path, j.Name)
		}
		if err := j.validateSpec(); err != nil {
			return fmt.Errorf("%s (%s): %w", path, j.Name, err)
		}
	}
	return nil
}

// validateSpec dry-runs the recurrence fields through the scheduler's own
// parsers so config errors surface at load time with the same messages a
// library caller would see.
func (j *JobConfig) validateSpec() error {
	if j.Cron != "" {
		if j.Days != "" || j.Hours != "" || j.Minutes != "" {
			return fmt.Errorf("cron cannot be combined with days/hours/minutes")
		}
		if _, err := cronkit.FromCron(j.Cron); err != nil {
			return err
		}
	}
	var ts cronkit.TimeSpec
	if j.Days != "" {
		if err := ts.SetDays(j.Days); err != nil {
			return err
		}
	}
	if j.Hours != "" {
		if err := ts.SetHours(j.Hours); err != nil {
			return err
		}
	}
	if j.Minutes != "" {
		if err := ts.SetMinutes(j.Minutes); err != nil {
			return err
		}
	}
	for _, at := range j.At {
		if err := ts.SetClockTime(at); err != nil {
			return err
		}
	}
	return nil
}
