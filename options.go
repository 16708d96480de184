package cronkit

import (
	"time"

	"golang.org/x/time/rate"

	"cronkit/pkg/eventbus"
	"cronkit/pkg/logx"
)

// Option configures a Cron at construction time.
type Option func(*Cron)

// WithLogger installs a structured logger. The default is the no-op logger.
func WithLogger(log logx.Logger) Option {
	return func(c *Cron) { c.log = log }
}

// WithBus installs an event bus on which run outcomes are published.
func WithBus(bus eventbus.Bus) Option {
	return func(c *Cron) { c.bus = bus }
}

// WithTick sets the default interval of the Run loop (default 1s).
func WithTick(d time.Duration) Option {
	return func(c *Cron) { c.tick = d }
}

// WithClock overrides the time source used by RunPending and the run loop.
// Tests use it to drive matching deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *Cron) {
		if now != nil {
			c.now = now
		}
	}
}

// WithErrorLogLimit tunes the payload-failure log throttle
// (default: 1 line/s with a burst of 5). A nil-equivalent limit of
// rate.Inf disables throttling.
func WithErrorLogLimit(limit rate.Limit, burst int) Option {
	return func(c *Cron) { c.errLimit = rate.NewLimiter(limit, burst) }
}
