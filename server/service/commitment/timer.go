package commitment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hrygo/samay/server/timezone"
	"github.com/hrygo/samay/store"
)

// RunningTimer is one timer that has not gone off yet.
type RunningTimer struct {
	ID               int32  `json:"id" yaml:"id"`
	UID              string `json:"uid" yaml:"uid"`
	Label            string `json:"label,omitempty" yaml:"label,omitempty"`
	EndsAt           string `json:"ends_at" yaml:"ends_at"`
	RemainingSeconds int64  `json:"remaining_seconds" yaml:"remaining_seconds"`
}

// TimerStatus answers "how much time is left on my timer".
type TimerStatus struct {
	UserFacingText string          `json:"user_facing_text" yaml:"user_facing_text"`
	Timers         []*RunningTimer `json:"timers" yaml:"timers"`
}

// TimerStatus reports the running timers of userID, soonest first. The
// spoken text covers the soonest one.
func (s *Service) TimerStatus(ctx context.Context, userID int32) (*TimerStatus, error) {
	all, err := s.Commitments(ctx, userID, store.KindTimer)
	if err != nil {
		return nil, err
	}
	now := s.now()

	timers := make([]*store.Timer, 0, len(all.Timers))
	for _, t := range all.Timers {
		if t.Enabled && !t.Fired && t.DueAt != nil {
			timers = append(timers, t)
		}
	}
	sort.SliceStable(timers, func(i, j int) bool {
		return timers[i].EndAt().Before(timers[j].EndAt())
	})

	status := &TimerStatus{Timers: make([]*RunningTimer, 0, len(timers))}
	for _, t := range timers {
		remaining := t.EndAt().Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		status.Timers = append(status.Timers, &RunningTimer{
			ID:               t.ID,
			UID:              t.UID,
			Label:            t.Label,
			EndsAt:           timezone.FormatInstant(t.EndAt()),
			RemainingSeconds: int64(remaining / time.Second),
		})
	}
	if len(status.Timers) == 0 {
		status.UserFacingText = "कोई टाइमर चालू नहीं है"
		return status, nil
	}

	first := status.Timers[0]
	left := FormatDurationHindi(first.RemainingSeconds)
	if first.Label != "" {
		status.UserFacingText = fmt.Sprintf("'%s' टाइमर में %s बाकी हैं", first.Label, left)
	} else {
		status.UserFacingText = fmt.Sprintf("टाइमर में %s बाकी हैं", left)
	}
	return status, nil
}
