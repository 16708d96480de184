package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"cronkit/pkg/logx"
)

// Watch blocks until ctx is done, invoking apply with each valid, changed
// config committed to the file at path.
//
// Editors commonly produce bursts of partial writes (and rename-based saves),
// so reloads are debounced and a content hash skips redundant publishes. A
// config that fails to parse or validate is logged and ignored; the previous
// task set keeps running.
func Watch(ctx context.Context, path string, log logx.Logger, apply func(*Config)) error {
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	// When fsnotify gets into a bad state the watcher may stop delivering
	// events or close its channels. Self-heal by recreating it with backoff.
	const (
		restartBackoffBase = 250 * time.Millisecond
		restartBackoffMax  = 5 * time.Second
	)
	backoff := restartBackoffBase

	var (
		timerMu  sync.Mutex
		timer    *time.Timer
		lastHash uint64
	)
	if cfg, err := Parse(path); err == nil {
		lastHash = hash(cfg)
	}
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		log.Debug("config change detected; scheduling reload", logx.String("path", path))
		timer = time.AfterFunc(250*time.Millisecond, func() {
			cfg, err := Parse(path)
			if err != nil {
				log.Warn("config parse failed", logx.String("path", path), logx.Err(err))
				return
			}

			h := hash(cfg)
			timerMu.Lock()
			unchanged := h != 0 && h == lastHash
			timerMu.Unlock()
			if unchanged {
				log.Debug("config unchanged; skipping reload", logx.String("path", path))
				return
			}

			// validate before commit (transactional)
			if err := cfg.Validate(); err != nil {
				log.Warn("config rejected", logx.String("path", path), logx.Err(err))
				return
			}

			timerMu.Lock()
			lastHash = h
			timerMu.Unlock()
			apply(cfg)
			log.Info("config reloaded", logx.String("path", path))
		})
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		w, err := fsnotify.NewWatcher()
		if err != nil {
			log.Warn("config watch init failed", logx.Err(err), logx.String("dir", dir))
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, restartBackoffMax)
			continue
		}
		// Watch the directory, not the file: rename-based saves replace the inode.
		if err := w.Add(dir); err != nil {
			log.Warn("config watch add failed", logx.Err(err), logx.String("dir", dir))
			_ = w.Close()
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, restartBackoffMax)
			continue
		}
		backoff = restartBackoffBase

		alive := true
		for alive {
			select {
			case <-ctx.Done():
				_ = w.Close()
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					alive = false
					break
				}
				if filepath.Base(ev.Name) != file {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					debounce()
				}
			case err, ok := <-w.Errors:
				if !ok {
					alive = false
					break
				}
				log.Warn("config watch error", logx.Err(err))
			}
		}
		_ = w.Close()
		log.Debug("config watcher restarting", logx.String("dir", dir))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
