package sqlcommon

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/samay/server/timezone"
	"github.com/hrygo/samay/store"
)

func (d *DB) CreateCalendarEvent(ctx context.Context, create *store.CalendarEvent) (*store.CalendarEvent, error) {
	id, err := d.insert(ctx, "calendar_events", &create.CommitmentBase,
		[]string{"title", "location", "description", "event_at", "reminder_lead_minutes"},
		[]any{create.Title, create.Location, create.Description, formatTime(create.EventAt), nullInt32(create.ReminderLeadMinutes)},
	)
	if err != nil {
		return nil, err
	}
	return d.getCalendarEvent(ctx, id)
}

func (d *DB) getCalendarEvent(ctx context.Context, id int32) (*store.CalendarEvent, error) {
	list, err := d.ListCalendarEvents(ctx, &store.FindCalendarEvent{FindCommitment: store.FindCommitment{ID: &id}})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, store.ErrNotFound
	}
	return list[0], nil
}

func (d *DB) ListCalendarEvents(ctx context.Context, find *store.FindCalendarEvent) ([]*store.CalendarEvent, error) {
	a := d.newArgs()
	where := baseWhere(a, &find.FindCommitment)
	if v := find.EventFrom; v != nil {
		where = append(where, "event_at >= "+a.add(formatTime(*v)))
	}
	if v := find.EventTo; v != nil {
		where = append(where, "event_at < "+a.add(formatTime(*v)))
	}

	query := paginate(`SELECT `+baseColumns+`, title, location, description, event_at, reminder_lead_minutes
		FROM calendar_events
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY event_at ASC, id ASC`, &find.FindCommitment)

	rows, err := d.db.QueryContext(ctx, query, a.list...)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar events: %w", err)
	}
	defer rows.Close()

	list := make([]*store.CalendarEvent, 0)
	for rows.Next() {
		var event store.CalendarEvent
		var eventAt string
		var lead sql.NullInt32
		scanner := newBaseScanner(&event.CommitmentBase)
		if err := rows.Scan(scanner.targets(&event.Title, &event.Location, &event.Description, &eventAt, &lead)...); err != nil {
			return nil, fmt.Errorf("failed to scan calendar event: %w", err)
		}
		if err := scanner.finish(); err != nil {
			return nil, fmt.Errorf("failed to decode calendar event %d: %w", event.ID, err)
		}
		if event.EventAt, err = timezone.ParseInstant(eventAt); err != nil {
			return nil, fmt.Errorf("failed to decode calendar event %d: %w", event.ID, err)
		}
		if lead.Valid {
			event.ReminderLeadMinutes = &lead.Int32
		}
		list = append(list, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateCalendarEvent keeps due_at equal to event_at minus the lead.
func (d *DB) UpdateCalendarEvent(ctx context.Context, update *store.UpdateCalendarEvent) (*store.CalendarEvent, error) {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		a := d.newArgs()
		set := baseSet(a, &update.UpdateCommitment)
		if v := update.Title; v != nil {
			set = append(set, "title = "+a.add(*v))
		}
		if v := update.Location; v != nil {
			set = append(set, "location = "+a.add(*v))
		}
		if v := update.Description; v != nil {
			set = append(set, "description = "+a.add(*v))
		}
		if update.EventAt != nil || update.ReminderLeadMinutes != nil || update.ClearReminderLead {
			eventAt, lead, err := d.eventSchedule(ctx, tx, update.ID, update.UserID)
			if err != nil {
				return err
			}
			if v := update.EventAt; v != nil {
				eventAt = *v
			}
			if v := update.ReminderLeadMinutes; v != nil {
				lead = v
			}
			if update.ClearReminderLead {
				lead = nil
			}
			set = append(set,
				"event_at = "+a.add(formatTime(eventAt)),
				"reminder_lead_minutes = "+a.add(nullInt32(lead)),
				"due_at = "+a.add(nullTime(store.EventDueAt(eventAt, lead))),
			)
		}
		return d.update(ctx, tx, "calendar_events", a, set, update.ID, update.UserID)
	})
	if err != nil {
		return nil, err
	}
	return d.getCalendarEvent(ctx, update.ID)
}

func (d *DB) eventSchedule(ctx context.Context, tx *sql.Tx, id, userID int32) (time.Time, *int32, error) {
	a := d.newArgs()
	query := `SELECT event_at, reminder_lead_minutes FROM calendar_events WHERE id = ` + a.add(id) + ` AND user_id = ` + a.add(userID)
	var eventAt string
	var lead sql.NullInt32
	if err := tx.QueryRowContext(ctx, query, a.list...).Scan(&eventAt, &lead); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, nil, store.ErrNotFound
		}
		return time.Time{}, nil, fmt.Errorf("failed to read calendar event: %w", err)
	}
	at, err := timezone.ParseInstant(eventAt)
	if err != nil {
		return time.Time{}, nil, err
	}
	if !lead.Valid {
		return at, nil, nil
	}
	return at, &lead.Int32, nil
}

func (d *DB) DeleteCalendarEvent(ctx context.Context, delete *store.DeleteCalendarEvent) error {
	return d.delete(ctx, "calendar_events", delete)
}
