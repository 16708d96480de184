package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"cronkit/pkg/eventbus"
	"cronkit/pkg/logx"
)

var ErrDisabled = errors.New("journal disabled")

//go:embed migrations.sql
var migrationsFS embed.FS

// Config controls the run-history journal.
type Config struct {
	Path        string
	BusyTimeout time.Duration
	KeepRuns    int // prune to the newest N rows (0 = keep everything)
}

// Entry is one recorded payload invocation.
type Entry struct {
	At   time.Time
	Task string
	Tags string // comma-joined
	OK   bool
	Err  string
	Took time.Duration
}

// Store is the sqlite-backed run journal. A nil *Store is a safe no-op whose
// methods return ErrDisabled, matching how the daemon handles a disabled
// journal section.
type Store struct {
	db  *sql.DB
	log logx.Logger

	keepRuns int
	appends  uint64
}

// Open initializes the journal. It returns (nil, nil) when no path is
// configured.
func Open(cfg Config, log logx.Logger) (*Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &Store{db: db, log: log, keepRuns: cfg.KeepRuns}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append records one run outcome.
func (s *Store) Append(ctx context.Context, e Entry) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(at, task, tags, ok, err, took_ms) VALUES(?,?,?,?,?,?)`,
		e.At.Format(time.RFC3339Nano), e.Task, nullStr(e.Tags), e.OK, nullStr(e.Err), e.Took.Milliseconds(),
	)
	if err == nil && s.keepRuns > 0 {
		s.appends++
		if s.appends%100 == 0 {
			pctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			_ = s.prune(pctx)
			cancel()
		}
	}
	return err
}

// Record maps a scheduler run event into the journal. Intended as the body
// of a bus-subscriber loop.
func (s *Store) Record(ctx context.Context, ev eventbus.Event) error {
	return s.Append(ctx, Entry{
		At:   ev.Time,
		Task: ev.Task,
		Tags: strings.Join(ev.Tags, ","),
		OK:   ev.Type == eventbus.TypeRunOK,
		Err:  ev.Err,
		Took: ev.Took,
	})
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, task, COALESCE(tags,''), ok, COALESCE(err,''), took_ms
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			at     string
			e      Entry
			tookMS int64
		)
		if err := rows.Scan(&at, &e.Task, &e.Tags, &e.OK, &e.Err, &tookMS); err != nil {
			return nil, err
		}
		if ts, perr := time.Parse(time.RFC3339Nano, at); perr == nil {
			e.At = ts
		}
		e.Took = time.Duration(tookMS) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) prune(ctx context.Context) error {
	if s == nil || s.db == nil || s.keepRuns <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`,
		s.keepRuns)
	return err
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
