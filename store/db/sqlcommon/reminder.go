package sqlcommon

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/samay/store"
)

func (d *DB) CreateReminder(ctx context.Context, create *store.Reminder) (*store.Reminder, error) {
	id, err := d.insert(ctx, "reminders", &create.CommitmentBase,
		[]string{"text", "completed", "repeat_days"},
		[]any{create.Text, create.Completed, create.RepeatDays},
	)
	if err != nil {
		return nil, err
	}
	return d.getReminder(ctx, id)
}

func (d *DB) getReminder(ctx context.Context, id int32) (*store.Reminder, error) {
	list, err := d.ListReminders(ctx, &store.FindReminder{FindCommitment: store.FindCommitment{ID: &id}})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, store.ErrNotFound
	}
	return list[0], nil
}

func (d *DB) ListReminders(ctx context.Context, find *store.FindReminder) ([]*store.Reminder, error) {
	a := d.newArgs()
	where := baseWhere(a, &find.FindCommitment)
	if v := find.Completed; v != nil {
		where = append(where, "completed = "+a.add(*v))
	}

	query := paginate(`SELECT `+baseColumns+`, text, completed, repeat_days
		FROM reminders
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY id ASC`, &find.FindCommitment)

	rows, err := d.db.QueryContext(ctx, query, a.list...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Reminder, 0)
	for rows.Next() {
		var reminder store.Reminder
		scanner := newBaseScanner(&reminder.CommitmentBase)
		if err := rows.Scan(scanner.targets(&reminder.Text, &reminder.Completed, &reminder.RepeatDays)...); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		if err := scanner.finish(); err != nil {
			return nil, fmt.Errorf("failed to decode reminder %d: %w", reminder.ID, err)
		}
		list = append(list, &reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateReminder(ctx context.Context, update *store.UpdateReminder) (*store.Reminder, error) {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		a := d.newArgs()
		set := baseSet(a, &update.UpdateCommitment)
		if v := update.Text; v != nil {
			set = append(set, "text = "+a.add(*v))
		}
		if v := update.Completed; v != nil {
			set = append(set, "completed = "+a.add(*v))
		}
		if v := update.RepeatDays; v != nil {
			set = append(set, "repeat_days = "+a.add(*v))
		}
		return d.update(ctx, tx, "reminders", a, set, update.ID, update.UserID)
	})
	if err != nil {
		return nil, err
	}
	return d.getReminder(ctx, update.ID)
}

func (d *DB) DeleteReminder(ctx context.Context, delete *store.DeleteReminder) error {
	return d.delete(ctx, "reminders", delete)
}
