// Package retention garbage-collects commitments that can never fire again.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/hrygo/samay/internal/profile"
	"github.com/hrygo/samay/server/internal/observability"
	"github.com/hrygo/samay/server/timezone"
)

// Purger deletes retired rows last touched before a cutoff.
type Purger interface {
	PurgeRetired(ctx context.Context, olderThan time.Time) (int64, error)
}

// Sweeper runs PurgeRetired on a cron schedule in IST.
type Sweeper struct {
	purger  Purger
	spec    string
	window  time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// New validates cfg. A zero window yields a disabled sweeper.
func New(purger Purger, cfg profile.RetentionConfig, logger *slog.Logger) (*Sweeper, error) {
	if cfg.Window < 0 {
		return nil, errors.Errorf("retention window must not be negative, got %s", cfg.Window)
	}
	if cfg.Window > 0 {
		if _, err := cron.ParseStandard(cfg.Cron); err != nil {
			return nil, errors.Wrapf(err, "invalid retention cron %q", cfg.Cron)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		purger:  purger,
		spec:    cfg.Cron,
		window:  cfg.Window,
		logger:  logger,
		metrics: observability.GlobalMetrics(),
		now:     time.Now,
	}, nil
}

func (s *Sweeper) SetMetrics(m *observability.Metrics) {
	if m != nil {
		s.metrics = m
	}
}

func (s *Sweeper) SetClock(now func() time.Time) {
	s.now = now
}

// Enabled reports whether the sweeper has anything to do.
func (s *Sweeper) Enabled() bool {
	return s.window > 0
}

// Sweep purges once and returns the number of deleted rows.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.window)
	n, err := s.purger.PurgeRetired(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to purge retired commitments")
	}
	s.metrics.RecordPurged(n)
	s.logger.Info("purged retired commitments", slog.Int64("count", n), slog.String("cutoff", timezone.FormatInstant(cutoff)))
	return n, nil
}

// Run schedules Sweep and blocks until ctx is done. A disabled sweeper
// returns at once.
func (s *Sweeper) Run(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Info("retention sweeper disabled")
		return nil
	}
	logger := cronLogger{s.logger}
	c := cron.New(
		cron.WithLocation(timezone.IST),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(s.spec, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("retention sweep failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return errors.Wrapf(err, "invalid retention cron %q", s.spec)
	}

	c.Start()
	s.logger.Info("retention sweeper started", slog.String("cron", s.spec), slog.Duration("window", s.window))
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
