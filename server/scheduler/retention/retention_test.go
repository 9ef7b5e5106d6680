package retention

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/samay/internal/profile"
	"github.com/hrygo/samay/server/internal/observability"
	"github.com/hrygo/samay/server/timezone"
)

type fakePurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	deleted int64
	err     error
}

func (p *fakePurger) PurgeRetired(_ context.Context, olderThan time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, olderThan)
	return p.deleted, p.err
}

func (p *fakePurger) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cutoffs)
}

func TestNew(t *testing.T) {
	_, err := New(&fakePurger{}, profile.RetentionConfig{Cron: "not a cron", Window: time.Hour}, nil)
	assert.Error(t, err)

	_, err = New(&fakePurger{}, profile.RetentionConfig{Cron: "@daily", Window: -time.Hour}, nil)
	assert.Error(t, err)

	s, err := New(&fakePurger{}, profile.RetentionConfig{Cron: "not a cron"}, nil)
	require.NoError(t, err)
	assert.False(t, s.Enabled())
	assert.NoError(t, s.Run(context.Background()))
}

func TestSweep(t *testing.T) {
	purger := &fakePurger{deleted: 4}
	s, err := New(purger, profile.RetentionConfig{Cron: "@daily", Window: 720 * time.Hour}, nil)
	require.NoError(t, err)
	metrics := observability.NewMetrics()
	s.SetMetrics(metrics)
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, timezone.IST)
	s.SetClock(func() time.Time { return now })

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	require.Len(t, purger.cutoffs, 1)
	assert.True(t, purger.cutoffs[0].Equal(time.Date(2026, 2, 13, 0, 0, 0, 0, timezone.IST)))
	assert.Equal(t, int64(4), metrics.Snapshot().Purged)

	purger.err = stderrors.New("disk I/O error")
	_, err = s.Sweep(context.Background())
	assert.Error(t, err)
}

func TestRunOnSchedule(t *testing.T) {
	purger := &fakePurger{}
	s, err := New(purger, profile.RetentionConfig{Cron: "@every 1s", Window: time.Hour}, nil)
	require.NoError(t, err)
	s.SetMetrics(observability.NewMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return purger.calls() > 0 }, 3*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
