package notify

import (
	"context"
	"log/slog"
	"sync"
)

const defaultMemoryCapacity = 100

// MemoryPublisher logs notifications and keeps the most recent ones in
// memory. It backs `serve --no-mqtt` and tests.
type MemoryPublisher struct {
	mu       sync.Mutex
	capacity int
	recent   []Notification
	logger   *slog.Logger
}

var _ Publisher = (*MemoryPublisher)(nil)

func NewMemoryPublisher(capacity int, logger *slog.Logger) *MemoryPublisher {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryPublisher{capacity: capacity, logger: logger}
}

func (p *MemoryPublisher) Publish(ctx context.Context, n Notification) error {
	p.mu.Lock()
	if len(p.recent) >= p.capacity {
		p.recent = p.recent[1:]
	}
	p.recent = append(p.recent, n)
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "notification",
		slog.String("kind", n.Kind),
		slog.Int("commitment_id", int(n.CommitmentID)),
		slog.Int("user_id", int(n.UserID)),
		slog.String("text", n.Text),
		slog.String("fired_at", n.FiredAt),
	)
	return nil
}

// Recent returns up to n notifications, newest last. n <= 0 returns all.
func (p *MemoryPublisher) Recent(n int) []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := 0
	if n > 0 && n < len(p.recent) {
		start = len(p.recent) - n
	}
	out := make([]Notification, len(p.recent)-start)
	copy(out, p.recent[start:])
	return out
}

// ForUser filters Recent by user.
func (p *MemoryPublisher) ForUser(userID int32) []Notification {
	var out []Notification
	for _, n := range p.Recent(0) {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (p *MemoryPublisher) Close() error {
	return nil
}
