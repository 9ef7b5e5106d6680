// Package notify delivers fired commitments to the topic bus and accepts
// inbound text requests from it.
//
// Topics live under the samay namespace. The device-control namespace
// ("device/...") belongs to another collaborator and is never touched here.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hrygo/samay/server/timezone"
)

// Notification is published once per fired commitment.
type Notification struct {
	Kind          string `json:"commitment_kind"`
	CommitmentID  int32  `json:"commitment_id"`
	CommitmentUID string `json:"commitment_uid,omitempty"`
	UserID        int32  `json:"user_id"`
	Text          string `json:"user_facing_text"`
	FiredAt       string `json:"fired_at"`
	DueAt         string `json:"due_at,omitempty"`
}

// NewNotification stamps instants in the exchange format.
func NewNotification(kind string, id int32, uid string, userID int32, text string, dueAt, firedAt time.Time) Notification {
	return Notification{
		Kind:          kind,
		CommitmentID:  id,
		CommitmentUID: uid,
		UserID:        userID,
		Text:          text,
		FiredAt:       timezone.FormatInstant(firedAt),
		DueAt:         timezone.FormatInstant(dueAt),
	}
}

func (n Notification) Marshal() ([]byte, error) {
	return json.Marshal(n)
}

// Publisher hands notifications to a bus. Implementations must be safe for
// concurrent use. A returned error means delivery is unknown; callers never
// retry since the commitment is already marked fired.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
	Close() error
}

// Dispatcher fans a notification out to several publishers.
type Dispatcher struct {
	publishers []Publisher
}

func NewDispatcher(publishers ...Publisher) *Dispatcher {
	return &Dispatcher{publishers: publishers}
}

var _ Publisher = (*Dispatcher)(nil)

// Publish delivers to every publisher and joins their errors.
func (d *Dispatcher) Publish(ctx context.Context, n Notification) error {
	var errs []error
	for _, p := range d.publishers {
		if err := p.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) Close() error {
	var errs []error
	for _, p := range d.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
