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

func (d *DB) CreateTimer(ctx context.Context, create *store.Timer) (*store.Timer, error) {
	id, err := d.insert(ctx, "timers", &create.CommitmentBase,
		[]string{"label", "start_at", "duration_seconds"},
		[]any{create.Label, formatTime(create.StartAt), create.DurationSeconds},
	)
	if err != nil {
		return nil, err
	}
	return d.getTimer(ctx, id)
}

func (d *DB) getTimer(ctx context.Context, id int32) (*store.Timer, error) {
	list, err := d.ListTimers(ctx, &store.FindTimer{FindCommitment: store.FindCommitment{ID: &id}})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, store.ErrNotFound
	}
	return list[0], nil
}

func (d *DB) ListTimers(ctx context.Context, find *store.FindTimer) ([]*store.Timer, error) {
	a := d.newArgs()
	where := baseWhere(a, &find.FindCommitment)

	query := paginate(`SELECT `+baseColumns+`, label, start_at, duration_seconds
		FROM timers
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY id ASC`, &find.FindCommitment)

	rows, err := d.db.QueryContext(ctx, query, a.list...)
	if err != nil {
		return nil, fmt.Errorf("failed to query timers: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Timer, 0)
	for rows.Next() {
		var timer store.Timer
		var startAt string
		scanner := newBaseScanner(&timer.CommitmentBase)
		if err := rows.Scan(scanner.targets(&timer.Label, &startAt, &timer.DurationSeconds)...); err != nil {
			return nil, fmt.Errorf("failed to scan timer: %w", err)
		}
		if err := scanner.finish(); err != nil {
			return nil, fmt.Errorf("failed to decode timer %d: %w", timer.ID, err)
		}
		if timer.StartAt, err = timezone.ParseInstant(startAt); err != nil {
			return nil, fmt.Errorf("failed to decode timer %d: %w", timer.ID, err)
		}
		list = append(list, &timer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateTimer keeps due_at equal to start_at + duration_seconds.
func (d *DB) UpdateTimer(ctx context.Context, update *store.UpdateTimer) (*store.Timer, error) {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		a := d.newArgs()
		set := baseSet(a, &update.UpdateCommitment)
		if v := update.Label; v != nil {
			set = append(set, "label = "+a.add(*v))
		}
		if update.StartAt != nil || update.DurationSeconds != nil {
			start, seconds, err := d.timerWindow(ctx, tx, update.ID, update.UserID)
			if err != nil {
				return err
			}
			if v := update.StartAt; v != nil {
				start = *v
			}
			if v := update.DurationSeconds; v != nil {
				seconds = *v
			}
			end := start.Add(time.Duration(seconds) * time.Second)
			set = append(set,
				"start_at = "+a.add(formatTime(start)),
				"duration_seconds = "+a.add(seconds),
				"due_at = "+a.add(formatTime(end)),
			)
		}
		return d.update(ctx, tx, "timers", a, set, update.ID, update.UserID)
	})
	if err != nil {
		return nil, err
	}
	return d.getTimer(ctx, update.ID)
}

func (d *DB) timerWindow(ctx context.Context, tx *sql.Tx, id, userID int32) (time.Time, int64, error) {
	a := d.newArgs()
	query := `SELECT start_at, duration_seconds FROM timers WHERE id = ` + a.add(id) + ` AND user_id = ` + a.add(userID)
	var startAt string
	var seconds int64
	if err := tx.QueryRowContext(ctx, query, a.list...).Scan(&startAt, &seconds); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, 0, store.ErrNotFound
		}
		return time.Time{}, 0, fmt.Errorf("failed to read timer: %w", err)
	}
	start, err := timezone.ParseInstant(startAt)
	if err != nil {
		return time.Time{}, 0, err
	}
	return start, seconds, nil
}

func (d *DB) DeleteTimer(ctx context.Context, delete *store.DeleteTimer) error {
	return d.delete(ctx, "timers", delete)
}
