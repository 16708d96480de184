package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"

	"cronkit"
	"cronkit/internal/config"
	"cronkit/internal/journal"
	"cronkit/pkg/eventbus"
	"cronkit/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./cronkitd.yaml", "path to config yaml/json")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	logSvc, log := logx.New(cfg.Log)
	defer logSvc.Close()

	store, err := openJournal(cfg, log)
	if err != nil {
		log.Error("journal open failed", logx.Err(err))
		os.Exit(1)
	}
	defer store.Close()

	bus := eventbus.New()
	tick, _ := config.ParseDurationOrDefault("tick", cfg.Tick, time.Second)
	cron := cronkit.New(
		cronkit.WithLogger(log),
		cronkit.WithBus(bus),
		cronkit.WithTick(tick),
	)

	if err := registerJobs(cron, log, cfg.Jobs); err != nil {
		log.Error("job registration failed", logx.Err(err))
		os.Exit(1)
	}

	if store != nil {
		ch, unsub := bus.Subscribe(64)
		defer unsub()
		go func() {
			for ev := range ch {
				// Background context: run outcomes arriving during shutdown
				// should still land in the journal.
				if err := store.Record(context.Background(), ev); err != nil && !errors.Is(err, journal.ErrDisabled) {
					log.Warn("journal append failed", logx.Err(err))
				}
			}
		}()
	}

	go func() {
		err := config.Watch(ctx, cfgPath, log, func(next *config.Config) {
			logSvc.Apply(next.Log)
			cron.Clear()
			if err := registerJobs(cron, log, next.Jobs); err != nil {
				log.Error("job reload failed", logx.Err(err))
			}
		})
		if err != nil {
			log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	_, _ = sd.SdNotify(false, sd.SdNotifyReady)
	err = cron.Run(ctx)
	_, _ = sd.SdNotify(false, sd.SdNotifyStopping)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("run loop exited", logx.Err(err))
		os.Exit(1)
	}
}

func openJournal(cfg *config.Config, log logx.Logger) (*journal.Store, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	busy, err := config.ParseDurationField("journal.busy_timeout", cfg.Journal.BusyTimeout)
	if err != nil {
		return nil, err
	}
	return journal.Open(journal.Config{
		Path:        cfg.Journal.Path,
		BusyTimeout: busy,
		KeepRuns:    10000,
	}, log)
}
