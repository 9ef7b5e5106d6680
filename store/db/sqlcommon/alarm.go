package sqlcommon

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/samay/store"
)

func (d *DB) CreateAlarm(ctx context.Context, create *store.Alarm) (*store.Alarm, error) {
	id, err := d.insert(ctx, "alarms", &create.CommitmentBase,
		[]string{"label", "repeat_days"},
		[]any{create.Label, create.RepeatDays},
	)
	if err != nil {
		return nil, err
	}
	return d.getAlarm(ctx, id)
}

func (d *DB) getAlarm(ctx context.Context, id int32) (*store.Alarm, error) {
	list, err := d.ListAlarms(ctx, &store.FindAlarm{FindCommitment: store.FindCommitment{ID: &id}})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, store.ErrNotFound
	}
	return list[0], nil
}

func (d *DB) ListAlarms(ctx context.Context, find *store.FindAlarm) ([]*store.Alarm, error) {
	a := d.newArgs()
	where := baseWhere(a, &find.FindCommitment)

	query := paginate(`SELECT `+baseColumns+`, label, repeat_days
		FROM alarms
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY id ASC`, &find.FindCommitment)

	rows, err := d.db.QueryContext(ctx, query, a.list...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alarms: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Alarm, 0)
	for rows.Next() {
		var alarm store.Alarm
		scanner := newBaseScanner(&alarm.CommitmentBase)
		if err := rows.Scan(scanner.targets(&alarm.Label, &alarm.RepeatDays)...); err != nil {
			return nil, fmt.Errorf("failed to scan alarm: %w", err)
		}
		if err := scanner.finish(); err != nil {
			return nil, fmt.Errorf("failed to decode alarm %d: %w", alarm.ID, err)
		}
		list = append(list, &alarm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateAlarm(ctx context.Context, update *store.UpdateAlarm) (*store.Alarm, error) {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		a := d.newArgs()
		set := baseSet(a, &update.UpdateCommitment)
		if v := update.Label; v != nil {
			set = append(set, "label = "+a.add(*v))
		}
		if v := update.RepeatDays; v != nil {
			set = append(set, "repeat_days = "+a.add(*v))
		}
		return d.update(ctx, tx, "alarms", a, set, update.ID, update.UserID)
	})
	if err != nil {
		return nil, err
	}
	return d.getAlarm(ctx, update.ID)
}

func (d *DB) DeleteAlarm(ctx context.Context, delete *store.DeleteAlarm) error {
	return d.delete(ctx, "alarms", delete)
}
