package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
log:
  level: debug
  console: true
tick: 500ms
journal:
  enabled: true
  path: ./runs.db
  busy_timeout: 250ms
jobs:
  - name: report
    days: "0-4"
    at: ["9:00", "17:30"]
    tags: [reports]
    command: ["/usr/local/bin/report", "--daily"]
  - name: cleanup
    cron: "0 3 * * *"
    command: ["/usr/local/bin/cleanup"]
`

func TestLoadValidYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "cronkitd.yaml", validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Console {
		t.Fatalf("log config = %+v", cfg.Log)
	}
	tick, err := ParseDurationOrDefault("tick", cfg.Tick, time.Second)
	if err != nil || tick != 500*time.Millisecond {
		t.Fatalf("tick = %v, err %v", tick, err)
	}
	if len(cfg.Jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(cfg.Jobs))
	}
	if cfg.Jobs[0].Name != "report" || len(cfg.Jobs[0].At) != 2 {
		t.Fatalf("first job = %+v", cfg.Jobs[0])
	}
	if !cfg.Journal.Enabled || cfg.Journal.Path != "./runs.db" {
		t.Fatalf("journal = %+v", cfg.Journal)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "bad.yaml", `
jobs:
  - name: x
    command: ["/bin/true"]
    workers: 4
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing command",
			body: "jobs:\n  - name: x\n",
			want: "command required",
		},
		{
			name: "missing name",
			body: "jobs:\n  - command: [\"/bin/true\"]\n",
			want: "name required",
		},
		{
			name: "duplicate name",
			body: "jobs:\n  - name: x\n    command: [\"/bin/true\"]\n  - name: x\n    command: [\"/bin/true\"]\n",
			want: "duplicate name",
		},
		{
			name: "bad days spec",
			body: "jobs:\n  - name: x\n    days: \"0-9\"\n    command: [\"/bin/true\"]\n",
			want: "days",
		},
		{
			name: "bad clock time",
			body: "jobs:\n  - name: x\n    at: [\"25:00\"]\n    command: [\"/bin/true\"]\n",
			want: "at",
		},
		{
			name: "cron combined with ranges",
			body: "jobs:\n  - name: x\n    cron: \"0 3 * * *\"\n    hours: \"9\"\n    command: [\"/bin/true\"]\n",
			want: "cannot be combined",
		},
		{
			name: "journal enabled without path",
			body: "journal:\n  enabled: true\njobs: []\n",
			want: "journal.path",
		},
		{
			name: "bad tick",
			body: "tick: soon\njobs: []\n",
			want: "tick",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "cfg.yaml", tt.body)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestHashStableAcrossReparses(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "cronkitd.yaml", validYAML)
	a, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	b, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if hash(a) == 0 || hash(a) != hash(b) {
		t.Fatalf("hash mismatch: %d vs %d", hash(a), hash(b))
	}
}
