// Package cronkit is a lightweight in-process job scheduler.
//
// Tasks are declared with a fluent builder and executed by a single
// sequential run loop that evaluates every task once per tick:
//
//	c := cronkit.New(cronkit.WithLogger(log))
//	_, err := c.NewTask().
//		OnDays("0-4").
//		At("9:00").
//		Tag("reports").
//		Do(sendDailyReport)
//	if err != nil {
//		// malformed spec string; reported at build time, never at run time
//	}
//	go c.Run(ctx)
//
// Matching granularity is whole minutes: a task fires at most once per
// calendar minute even when the tick is sub-minute. Payload failures and
// panics are isolated per task: they are logged, published on the event bus,
// and never stop the loop or the remaining tasks of a pass.
//
// The package-level NewTask/RunPending/RunAll/RunContinuously functions
// operate on a shared default instance for small hosts.
package cronkit
