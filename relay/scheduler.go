package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultInterval    = 60 * time.Second
	DefaultTickTimeout = 30 * time.Second
)

type State int32

const (
	StateIdle State = iota
	StateArmed
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRunning:
		return "running"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Ticker is one unit of scheduled work.
type Ticker interface {
	Tick(ctx context.Context) (Report, error)
}

// Recorder keeps finished tick reports. It is never consulted for dedup.
type Recorder interface {
	Record(ctx context.Context, rep Report) error
}

type SchedulerOptions struct {
	Interval    time.Duration
	TickTimeout time.Duration
	Recorder    Recorder
}

// Scheduler fires a Ticker on a fixed period. Ticks never overlap: a tick
// still running when the next firing is due delays that firing, and firings
// beyond that one are dropped. A tick and its journal write share one
// TickTimeout budget.
type Scheduler struct {
	ticker   Ticker
	interval time.Duration
	timeout  time.Duration
	recorder Recorder

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	state  atomic.Int32
}

func NewScheduler(t Ticker, opts SchedulerOptions) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.TickTimeout <= 0 {
		opts.TickTimeout = DefaultTickTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	logger := cronLogger{}
	return &Scheduler{
		ticker:   t,
		interval: opts.Interval,
		timeout:  opts.TickTimeout,
		recorder: opts.Recorder,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), delayOnce(logger)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Start arms the job. Calls after the first are no-ops.
func (s *Scheduler) Start() {
	s.once.Do(func() {
		s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(s.run))
		s.state.Store(int32(StateArmed))
		s.cron.Start()
		slog.Info("[relay.Scheduler.Start]: scheduler armed", "interval", s.interval.String(), "tick_timeout", s.timeout.String())
	})
}

// Stop disarms the job, cancels a running tick and waits for it to return
// or for ctx to end. The scheduler is idle afterwards and cannot be restarted.
func (s *Scheduler) Stop(ctx context.Context) {
	s.once.Do(func() {})
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.state.Store(int32(StateIdle))
}

func (s *Scheduler) run() {
	s.state.Store(int32(StateRunning))
	defer s.state.CompareAndSwap(int32(StateRunning), int32(StateArmed))

	// the last tenth of the budget is kept for the journal write
	start := time.Now()
	deadline := start.Add(s.timeout)
	ctx, cancel := context.WithDeadline(s.ctx, start.Add(s.timeout-s.timeout/10))
	defer cancel()

	rep, err := s.ticker.Tick(ctx)
	if err != nil {
		slog.Error("[relay.Scheduler.run]: tick failed", "feed_url", rep.FeedURL, "channel_id", rep.ChannelID, "kind", KindOf(err), "error", err)
	} else if rep.Outcome == OutcomeDuplicate {
		slog.Debug("[relay.Scheduler.run]: no new items", "feed_url", rep.FeedURL, "link", rep.Link)
	} else {
		slog.Info("[relay.Scheduler.run]: posted news", "channel_id", rep.ChannelID, "title", rep.Title, "link", rep.Link)
	}

	if s.recorder == nil {
		return
	}
	// not tied to s.ctx so the last tick before Stop is still recorded
	rctx, rcancel := context.WithDeadline(context.Background(), deadline)
	defer rcancel()
	if err := s.recorder.Record(rctx, rep); err != nil {
		slog.Warn("[relay.Scheduler.run]: cannot record tick", "error", err)
	}
}

// delayedJob serializes runs of a job. While a run is in progress one
// firing waits for it; further firings are dropped.
type delayedJob struct {
	job     cron.Job
	logger  cron.Logger
	mu      sync.Mutex
	pending atomic.Bool
}

func delayOnce(logger cron.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return &delayedJob{job: j, logger: logger}
	}
}

func (d *delayedJob) Run() {
	if !d.pending.CompareAndSwap(false, true) {
		d.logger.Info("skip", "reason", "a delayed run is already waiting")
		return
	}
	start := time.Now()
	d.mu.Lock()
	d.pending.Store(false)
	defer d.mu.Unlock()
	if dur := time.Since(start); dur > time.Second {
		d.logger.Info("delay", "duration", dur)
	}
	d.job.Run()
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("[cron]: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("[cron]: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
