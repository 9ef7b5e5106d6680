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

// scheduledPredicate selects rows that are waiting to fire.
const scheduledPredicate = "row_status = 'NORMAL' AND enabled = TRUE AND fired = FALSE AND due_at IS NOT NULL"

// dueSelects projects each table onto the shared list_due shape:
// kind, id, uid, user_id, due_at, text, repeat_days, event_at, lead_minutes.
var dueSelects = []struct {
	table string
	sel   string
	extra string
}{
	{
		table: "alarms",
		sel:   "'alarm' AS kind, id, uid, user_id, due_at, label AS text, repeat_days, CAST(NULL AS TEXT) AS event_at, CAST(NULL AS INTEGER) AS lead_minutes",
	},
	{
		table: "calendar_events",
		sel:   "'calendar_event' AS kind, id, uid, user_id, due_at, title AS text, 0 AS repeat_days, event_at, reminder_lead_minutes AS lead_minutes",
	},
	{
		table: "reminders",
		sel:   "'reminder' AS kind, id, uid, user_id, due_at, text, repeat_days, CAST(NULL AS TEXT) AS event_at, CAST(NULL AS INTEGER) AS lead_minutes",
		extra: " AND completed = FALSE",
	},
	{
		table: "timers",
		sel:   "'timer' AS kind, id, uid, user_id, due_at, label AS text, 0 AS repeat_days, CAST(NULL AS TEXT) AS event_at, CAST(NULL AS INTEGER) AS lead_minutes",
	},
}

// ListDue returns scheduled rows with due_at <= before, earliest first.
// Instants are stored as fixed-offset RFC 3339 text, so string order is
// chronological order.
func (d *DB) ListDue(ctx context.Context, before time.Time, limit int) ([]*store.DueCommitment, error) {
	a := d.newArgs()
	bound := formatTime(before)
	parts := make([]string, 0, len(dueSelects))
	for _, s := range dueSelects {
		parts = append(parts, `SELECT `+s.sel+` FROM `+s.table+
			` WHERE `+scheduledPredicate+s.extra+` AND due_at <= `+a.add(bound))
	}
	query := strings.Join(parts, "\nUNION ALL\n") +
		"\nORDER BY due_at ASC, kind ASC, id ASC LIMIT " + a.add(limit)

	rows, err := d.db.QueryContext(ctx, query, a.list...)
	if err != nil {
		return nil, fmt.Errorf("failed to list due commitments: %w", err)
	}
	defer rows.Close()

	list := make([]*store.DueCommitment, 0)
	for rows.Next() {
		var due store.DueCommitment
		var dueAt string
		var eventAt sql.NullString
		var lead sql.NullInt32
		if err := rows.Scan(&due.Kind, &due.ID, &due.UID, &due.UserID, &dueAt, &due.Text, &due.RepeatDays, &eventAt, &lead); err != nil {
			return nil, fmt.Errorf("failed to scan due commitment: %w", err)
		}
		if due.DueAt, err = timezone.ParseInstant(dueAt); err != nil {
			return nil, fmt.Errorf("failed to decode %s %d: %w", due.Kind, due.ID, err)
		}
		if due.EventAt, err = parseNullTime(eventAt); err != nil {
			return nil, fmt.Errorf("failed to decode %s %d: %w", due.Kind, due.ID, err)
		}
		if lead.Valid {
			due.LeadMinutes = &lead.Int32
		}
		list = append(list, &due)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// NextDueAt returns MIN(due_at) over every scheduled row.
func (d *DB) NextDueAt(ctx context.Context) (*time.Time, error) {
	parts := make([]string, 0, len(dueSelects))
	for _, s := range dueSelects {
		parts = append(parts, `SELECT due_at FROM `+s.table+` WHERE `+scheduledPredicate+s.extra)
	}
	query := `SELECT MIN(due_at) FROM (` + strings.Join(parts, " UNION ALL ") + `) AS scheduled`

	var next sql.NullString
	if err := d.db.QueryRowContext(ctx, query).Scan(&next); err != nil {
		return nil, fmt.Errorf("failed to find next due instant: %w", err)
	}
	t, err := parseNullTime(next)
	if err != nil {
		return nil, fmt.Errorf("failed to decode next due instant: %w", err)
	}
	return t, nil
}

// MarkFired is a compare-and-set on (id, due_at, unfired, enabled). Recurring
// rows are re-armed in the same statement so no reader ever sees a fired but
// unscheduled row.
func (d *DB) MarkFired(ctx context.Context, fire *store.FireCommitment) (bool, error) {
	table, err := tableFor(fire.Kind)
	if err != nil {
		return false, err
	}

	var fired bool
	err = d.withTx(ctx, func(tx *sql.Tx) error {
		a := d.newArgs()
		set := []string{
			"last_fired_at = " + a.add(formatTime(fire.FiredAt)),
			"updated_at = " + a.add(d.timestamp()),
		}
		switch {
		case fire.NextDueAt != nil:
			set = append(set, "due_at = "+a.add(formatTime(*fire.NextDueAt)), "fired = FALSE")
		case fire.Kind == store.KindAlarm || fire.Kind == store.KindTimer:
			set = append(set, "fired = TRUE", "enabled = FALSE")
		default:
			set = append(set, "fired = TRUE")
		}

		where := []string{
			"id = " + a.add(fire.ID),
			"due_at = " + a.add(formatTime(fire.ExpectedDueAt)),
			scheduledPredicate,
		}
		if fire.Kind == store.KindReminder {
			where = append(where, "completed = FALSE")
		}

		stmt := `UPDATE ` + table + ` SET ` + strings.Join(set, ", ") + ` WHERE ` + strings.Join(where, " AND ")
		result, err := tx.ExecContext(ctx, stmt, a.list...)
		if err != nil {
			return fmt.Errorf("failed to mark %s %d fired: %w", fire.Kind, fire.ID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		fired = n == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return fired, nil
}

// retiredPredicates select rows that can never fire again.
var retiredPredicates = map[string]string{
	"alarms":          "(row_status = 'ARCHIVED' OR (repeat_days = 0 AND fired = TRUE))",
	"reminders":       "(row_status = 'ARCHIVED' OR completed = TRUE)",
	"timers":          "(row_status = 'ARCHIVED' OR fired = TRUE)",
	"calendar_events": "(row_status = 'ARCHIVED' OR event_at < %s)",
}

// PurgeRetired deletes retired rows last updated before olderThan. Calendar
// events also go once the event itself is older than the cutoff.
func (d *DB) PurgeRetired(ctx context.Context, olderThan time.Time) (int64, error) {
	cutoff := formatTime(olderThan)
	var total int64
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"alarms", "calendar_events", "reminders", "timers"} {
			a := d.newArgs()
			predicate := retiredPredicates[table]
			if strings.Contains(predicate, "%s") {
				predicate = fmt.Sprintf(predicate, a.add(cutoff))
			}
			stmt := `DELETE FROM ` + table + ` WHERE ` + predicate + ` AND updated_at < ` + a.add(cutoff)
			result, err := tx.ExecContext(ctx, stmt, a.list...)
			if err != nil {
				return fmt.Errorf("failed to purge %s: %w", table, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
