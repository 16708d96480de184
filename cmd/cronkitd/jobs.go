package main

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"cronkit"
	"cronkit/internal/config"
	"cronkit/pkg/logx"
)

func registerJobs(c *cronkit.Cron, log logx.Logger, jobs []config.JobConfig) error {
	for _, jc := range jobs {
		t := c.NewTask().Named(jc.Name)
		if jc.Cron != "" {
			t.Cron(jc.Cron)
		}
		if jc.Days != "" {
			t.OnDays(jc.Days)
		}
		if jc.Hours != "" {
			t.AtHours(jc.Hours)
		}
		if jc.Minutes != "" {
			t.AtMinutes(jc.Minutes)
		}
		for _, at := range jc.At {
			t.At(at)
		}
		if len(jc.Tags) > 0 {
			t.Tag(jc.Tags...)
		}
		if _, err := t.DoJob(commandJob(log, jc.Name, jc.Command, jc.Dir)); err != nil {
			return fmt.Errorf("job %s: %w", jc.Name, err)
		}
		log.Info("job registered",
			logx.String("job", jc.Name),
			logx.String("spec", t.SpecString()),
			logx.String("command", jc.Command[0]),
		)
	}
	return nil
}

// commandJob wraps an argv in the scheduler's payload interface. Execution is
// synchronous from the run loop's perspective, matching the core's
// one-task-at-a-time contract.
func commandJob(log logx.Logger, name string, argv []string, dir string) cronkit.Job {
	return cronkit.JobFunc(func() error {
		start := time.Now()
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("%s: %w: %s", argv[0], err, truncate(strings.TrimSpace(string(out)), 400))
		}
		log.Debug("command ok",
			logx.String("job", name),
			logx.Duration("took", time.Since(start)),
			logx.Int("output_bytes", len(out)),
		)
		return nil
	})
}

func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	if maxN < 10 {
		return s[:maxN]
	}
	return s[:maxN-3] + "..."
}
