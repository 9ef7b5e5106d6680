// Package daemon fires due commitments and publishes their notifications.
//
// The daemon is the only writer of fired state. Each cycle lists the due rows
// across all four tables, fires them in order with a compare-and-set, and then
// sleeps until the next due instant, a wake-up or the ceiling, whichever
// comes first. A crash between the fire and the publish loses that one
// notification; a crash before the fire replays it on restart.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hrygo/samay/plugin/temporal"
	"github.com/hrygo/samay/server/internal/errors"
	"github.com/hrygo/samay/server/internal/observability"
	"github.com/hrygo/samay/server/notify"
	"github.com/hrygo/samay/server/timezone"
	"github.com/hrygo/samay/store"
)

// Store is the slice of the commitment store the daemon drives.
type Store interface {
	ListDue(ctx context.Context, before time.Time, limit int) ([]*store.DueCommitment, error)
	NextDueAt(ctx context.Context) (*time.Time, error)
	MarkFired(ctx context.Context, fire *store.FireCommitment) (bool, error)
}

var _ Store = (*store.Store)(nil)

// Config holds configuration for the daemon.
type Config struct {
	Ceiling        time.Duration // Longest sleep between cycles
	BatchSize      int           // Max rows fired per cycle
	BackoffMin     time.Duration // First delay after a store failure
	BackoffMax     time.Duration // Cap for the doubling backoff
	PublishTimeout time.Duration // Bound on one notification publish
	DegradedAfter  int           // Consecutive failures before degraded mode
}

// DefaultConfig returns default daemon configuration.
func DefaultConfig() Config {
	return Config{
		Ceiling:        30 * time.Second,
		BatchSize:      100,
		BackoffMin:     time.Second,
		BackoffMax:     30 * time.Second,
		PublishTimeout: 5 * time.Second,
		DegradedAfter:  5,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Ceiling <= 0 {
		c.Ceiling = def.Ceiling
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = def.BackoffMin
	}
	if c.BackoffMax < c.BackoffMin {
		c.BackoffMax = max(def.BackoffMax, c.BackoffMin)
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = def.PublishTimeout
	}
	if c.DegradedAfter <= 0 {
		c.DegradedAfter = def.DegradedAfter
	}
	return c
}

// Daemon runs the scheduling loop.
type Daemon struct {
	store     Store
	publisher notify.Publisher
	config    Config
	metrics   *observability.Metrics
	now       func() time.Time

	running bool
	stopCh  chan struct{}
	wakeCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	logger  *slog.Logger

	processedChan chan int // For testing: reports fired count per cycle

	healthMu            sync.RWMutex
	lastCycleAt         time.Time
	consecutiveFailures int
	degraded            bool
	stats               Stats
}

// New creates a daemon firing rows of s into publisher.
func New(s Store, publisher notify.Publisher, config Config) *Daemon {
	return &Daemon{
		store:     s,
		publisher: publisher,
		config:    config.withDefaults(),
		metrics:   observability.GlobalMetrics(),
		now:       time.Now,
		stopCh:    make(chan struct{}),
		wakeCh:    make(chan struct{}, 1),
		logger:    slog.Default(),
	}
}

// SetLogger sets a custom logger.
func (d *Daemon) SetLogger(logger *slog.Logger) {
	if logger != nil {
		d.logger = logger
	}
}

func (d *Daemon) SetMetrics(m *observability.Metrics) {
	if m != nil {
		d.metrics = m
	}
}

// SetClock overrides the wall clock. Must be called before Start.
func (d *Daemon) SetClock(now func() time.Time) {
	d.now = now
}

// EnableTestMode enables test mode with a channel for fired counts.
func (d *Daemon) EnableTestMode() <-chan int {
	d.processedChan = make(chan int, 100)
	return d.processedChan
}

// Start begins the daemon loop. Starting a running daemon is a no-op.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.mu.Unlock()

	d.wg.Add(1)
	go d.run(ctx)

	d.logger.Info("scheduling daemon started", "ceiling", d.config.Ceiling, "batch_size", d.config.BatchSize)
	return nil
}

// Stop gracefully stops the daemon and waits for the loop to exit.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("scheduling daemon stopped")
}

// Run starts the daemon and blocks until ctx is done.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.Stop()
	return nil
}

// IsRunning returns whether the daemon is running.
func (d *Daemon) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Wake makes a sleeping daemon re-evaluate its schedule. It never blocks.
func (d *Daemon) Wake() {
	select {
	case d.wakeCh <- struct{}{}:
	default:
	}
}

// RunOnce fires everything due now without sleeping.
func (d *Daemon) RunOnce(ctx context.Context) (int, error) {
	fired, _, err := d.cycle(ctx)
	if err != nil {
		d.recordFailure(err)
		return fired, err
	}
	d.recordSuccess()
	return fired, nil
}

// run is the main daemon loop.
func (d *Daemon) run(ctx context.Context) {
	defer d.wg.Done()

	for {
		fired, full, err := d.cycle(ctx)
		d.report(fired)

		var wait time.Duration
		switch {
		case err != nil:
			wait = d.recordFailure(err)
		case full:
			d.recordSuccess()
			if d.stopped(ctx) {
				return
			}
			continue
		default:
			d.recordSuccess()
			if wait, err = d.untilNextDue(ctx); err != nil {
				wait = d.recordFailure(err)
			}
		}

		if !d.sleep(ctx, wait) {
			return
		}
	}
}

// cycle lists due rows and fires them in order. full reports a batch that
// came back at capacity, meaning more rows may be due.
func (d *Daemon) cycle(ctx context.Context) (fired int, full bool, err error) {
	now := d.now()
	due, err := d.store.ListDue(ctx, now, d.config.BatchSize)
	if err != nil {
		return 0, false, errors.StoreError("failed to list due commitments", err)
	}
	d.metrics.RecordCycle()

	for _, c := range due {
		if ctx.Err() != nil {
			return fired, false, nil
		}
		ok, err := d.fire(ctx, c, now)
		if err != nil {
			return fired, false, err
		}
		if ok {
			fired++
		}
	}
	if fired > 0 {
		d.logger.Info("fired due commitments", "count", fired)
	}
	return fired, len(due) == d.config.BatchSize, nil
}

// fire transitions one row and publishes its notification. It reports false
// when the row changed since it was listed.
func (d *Daemon) fire(ctx context.Context, c *store.DueCommitment, now time.Time) (bool, error) {
	logger := d.logger.With(
		slog.String(observability.LogFieldKind, c.Kind.String()),
		slog.Int(observability.LogFieldCommitmentID, int(c.ID)),
		slog.String(observability.LogFieldDueAt, timezone.FormatInstant(c.DueAt)),
	)

	fire := &store.FireCommitment{Kind: c.Kind, ID: c.ID, ExpectedDueAt: c.DueAt, FiredAt: now}
	if c.Recurring() {
		next, err := nextDue(c, now)
		if err != nil {
			logger.Error("cannot compute next occurrence, retiring", "error", err)
		} else {
			fire.NextDueAt = &next
		}
	}

	ok, err := d.store.MarkFired(ctx, fire)
	if err != nil {
		d.metrics.RecordStoreError()
		return false, errors.StoreError("failed to mark commitment fired", err)
	}
	if !ok {
		d.metrics.RecordSkipped()
		d.addStats(func(s *Stats) { s.TotalSkipped++ })
		logger.Debug("commitment changed before firing, skipped")
		return false, nil
	}
	d.metrics.RecordFired(c.Kind.String())
	d.addStats(func(s *Stats) { s.TotalFired++ })

	n := notify.NewNotification(c.Kind.String(), c.ID, c.UID, c.UserID, NotificationText(c, now), c.DueAt, now)
	pubCtx, cancel := context.WithTimeout(ctx, d.config.PublishTimeout)
	defer cancel()
	if err := d.publisher.Publish(pubCtx, n); err != nil {
		// The row stays fired; delivery is at most once past this point.
		d.metrics.RecordPublishFailure()
		d.addStats(func(s *Stats) { s.TotalPublishFailures++ })
		logger.Warn("failed to publish notification",
			slog.String(observability.LogFieldErrorCode, string(errors.GetCodeFromError(err, errors.ErrCodePublishError))),
			slog.String("error", err.Error()),
		)
	}
	if fire.NextDueAt != nil {
		logger.Debug("re-armed recurring commitment", slog.String("next_due_at", timezone.FormatInstant(*fire.NextDueAt)))
	}
	return true, nil
}

// nextDue re-arms a recurring row strictly after max(now, due), so an outage
// fires one catch-up notification instead of replaying every missed one.
func nextDue(c *store.DueCommitment, now time.Time) (time.Time, error) {
	after := c.DueAt
	if now.After(after) {
		after = now
	}
	return temporal.NextOccurrence(c.Recurrence(), after, false, timezone.IST)
}

// untilNextDue returns how long to sleep, bounded by the ceiling.
func (d *Daemon) untilNextDue(ctx context.Context) (time.Duration, error) {
	next, err := d.store.NextDueAt(ctx)
	if err != nil {
		return 0, errors.StoreError("failed to read next due instant", err)
	}
	if next == nil {
		return d.config.Ceiling, nil
	}
	wait := next.Sub(d.now())
	if wait < 0 {
		wait = 0
	}
	return min(wait, d.config.Ceiling), nil
}

// sleep waits for wait, a wake-up, stop or ctx cancellation. It reports
// false when the loop should exit.
func (d *Daemon) sleep(ctx context.Context, wait time.Duration) bool {
	if wait <= 0 {
		return !d.stopped(ctx)
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		d.logger.Info("daemon context cancelled")
		return false
	case <-d.stopCh:
		return false
	case <-d.wakeCh:
		return true
	case <-timer.C:
		return true
	}
}

func (d *Daemon) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-d.stopCh:
		return true
	default:
		return false
	}
}

func (d *Daemon) report(fired int) {
	if d.processedChan == nil {
		return
	}
	select {
	case d.processedChan <- fired:
	default:
		// Don't block if channel is full
	}
}

// recordFailure counts a failed cycle and returns the backoff to wait.
// Crossing the degraded threshold is logged once per episode.
func (d *Daemon) recordFailure(err error) time.Duration {
	d.healthMu.Lock()
	d.consecutiveFailures++
	failures := d.consecutiveFailures
	enterDegraded := !d.degraded && failures > d.config.DegradedAfter
	if enterDegraded {
		d.degraded = true
	}
	d.healthMu.Unlock()

	backoff := d.config.BackoffMin
	for i := 1; i < failures && backoff < d.config.BackoffMax; i++ {
		backoff *= 2
	}
	backoff = min(backoff, d.config.BackoffMax)

	d.logger.Warn("daemon cycle failed",
		slog.String(observability.LogFieldErrorCode, string(errors.GetCodeFromError(err, errors.ErrCodeStoreError))),
		slog.Int("consecutive_failures", failures),
		slog.Duration("backoff", backoff),
		slog.String("error", err.Error()),
	)
	if enterDegraded {
		d.metrics.RecordDegraded()
		d.logger.Error("scheduling daemon degraded, store unavailable",
			slog.Int("consecutive_failures", failures),
			slog.String("error", err.Error()),
		)
	}
	return backoff
}

func (d *Daemon) recordSuccess() {
	d.healthMu.Lock()
	wasDegraded := d.degraded
	failures := d.consecutiveFailures
	d.consecutiveFailures = 0
	d.degraded = false
	d.lastCycleAt = d.now()
	d.stats.Cycles++
	d.healthMu.Unlock()

	if wasDegraded {
		d.logger.Info("scheduling daemon recovered", slog.Int("failed_cycles", failures))
	}
}

func (d *Daemon) addStats(fn func(*Stats)) {
	d.healthMu.Lock()
	fn(&d.stats)
	d.healthMu.Unlock()
}
