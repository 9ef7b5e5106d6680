// Package sqlcommon implements the commitment store over database/sql for
// every supported dialect. The dialects differ only in bind-parameter syntax,
// so all statements are composed through Dialect.Placeholder and use portable
// SQL: TEXT instants, TRUE/FALSE literals, ON CONFLICT ... DO NOTHING and
// RETURNING, which both SQLite (3.35+) and PostgreSQL accept.
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

// Dialect describes the SQL flavor of a driver.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

// QuestionPlaceholder is the SQLite bind syntax.
func QuestionPlaceholder(int) string {
	return "?"
}

// DollarPlaceholder is the PostgreSQL bind syntax.
func DollarPlaceholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// DB is the shared driver body. Dialect packages embed it.
type DB struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func New(db *sql.DB, dialect Dialect) *DB {
	return &DB{db: db, dialect: dialect, now: time.Now}
}

// SetClock overrides the clock used for created_at and updated_at.
func (d *DB) SetClock(now func() time.Time) {
	d.now = now
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Dialect() string {
	return d.dialect.Name
}

// args accumulates bind values and hands out their placeholders in order.
type args struct {
	dialect Dialect
	list    []any
}

func (d *DB) newArgs() *args {
	return &args{dialect: d.dialect}
}

func (a *args) add(v any) string {
	a.list = append(a.list, v)
	return a.dialect.Placeholder(len(a.list))
}

// addAll returns a comma-joined placeholder list for vs.
func (a *args) addAll(vs ...any) string {
	list := make([]string, 0, len(vs))
	for _, v := range vs {
		list = append(list, a.add(v))
	}
	return strings.Join(list, ", ")
}

var tables = map[store.Kind]string{
	store.KindAlarm:         "alarms",
	store.KindReminder:      "reminders",
	store.KindTimer:         "timers",
	store.KindCalendarEvent: "calendar_events",
}

func tableFor(kind store.Kind) (string, error) {
	table, ok := tables[kind]
	if !ok {
		return "", fmt.Errorf("unknown commitment kind %q", kind)
	}
	return table, nil
}

func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) timestamp() string {
	return timezone.FormatInstant(d.now())
}

func formatTime(t time.Time) string {
	return timezone.FormatInstant(t)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timezone.FormatInstant(*t)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt32(v *int32) any {
	if v == nil {
		return nil
	}
	return *v
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := timezone.ParseInstant(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// baseColumns are the lifecycle columns in scan order.
const baseColumns = "id, uid, user_id, dedupe_key, row_status, enabled, fired, due_at, last_fired_at, created_at, updated_at"

var baseInsertColumns = []string{
	"uid", "user_id", "dedupe_key", "row_status", "enabled", "fired",
	"due_at", "last_fired_at", "created_at", "updated_at",
}

func baseInsertValues(b *store.CommitmentBase) []any {
	return []any{
		b.UID, b.UserID, nullString(b.DedupeKey), string(b.RowStatus), b.Enabled, b.Fired,
		nullTime(b.DueAt), nullTime(b.LastFiredAt), formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	}
}

// baseScanner scans the lifecycle columns into a CommitmentBase.
type baseScanner struct {
	base                   *store.CommitmentBase
	dedupe, due, lastFired sql.NullString
	created, updated       string
}

func newBaseScanner(base *store.CommitmentBase) *baseScanner {
	return &baseScanner{base: base}
}

func (s *baseScanner) targets(extra ...any) []any {
	return append([]any{
		&s.base.ID, &s.base.UID, &s.base.UserID, &s.dedupe, &s.base.RowStatus,
		&s.base.Enabled, &s.base.Fired, &s.due, &s.lastFired, &s.created, &s.updated,
	}, extra...)
}

func (s *baseScanner) finish() error {
	var err error
	s.base.DedupeKey = s.dedupe.String
	if s.base.DueAt, err = parseNullTime(s.due); err != nil {
		return err
	}
	if s.base.LastFiredAt, err = parseNullTime(s.lastFired); err != nil {
		return err
	}
	if s.base.CreatedAt, err = timezone.ParseInstant(s.created); err != nil {
		return err
	}
	if s.base.UpdatedAt, err = timezone.ParseInstant(s.updated); err != nil {
		return err
	}
	return nil
}

// baseWhere renders the shared filter of every List* call.
func baseWhere(a *args, find *store.FindCommitment) []string {
	where := []string{"1 = 1"}
	if find == nil {
		return where
	}
	if v := find.ID; v != nil {
		where = append(where, "id = "+a.add(*v))
	}
	if v := find.UID; v != nil {
		where = append(where, "uid = "+a.add(*v))
	}
	if v := find.UserID; v != nil {
		where = append(where, "user_id = "+a.add(*v))
	}
	if v := find.DedupeKey; v != nil {
		where = append(where, "dedupe_key = "+a.add(*v))
	}
	if v := find.RowStatus; v != nil {
		where = append(where, "row_status = "+a.add(string(*v)))
	}
	if v := find.Enabled; v != nil {
		where = append(where, "enabled = "+a.add(*v))
	}
	if v := find.DueBefore; v != nil {
		where = append(where, "due_at IS NOT NULL AND due_at <= "+a.add(formatTime(*v)))
	}
	return where
}

func paginate(query string, find *store.FindCommitment) string {
	if find == nil || find.Limit == nil {
		return query
	}
	query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	if find.Offset != nil {
		query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
	}
	return query
}

// baseSet renders the SET clauses for the shared lifecycle fields.
func baseSet(a *args, u *store.UpdateCommitment) []string {
	set := []string{}
	if v := u.RowStatus; v != nil {
		set = append(set, "row_status = "+a.add(string(*v)))
	}
	if v := u.Enabled; v != nil {
		set = append(set, "enabled = "+a.add(*v))
	}
	if v := u.Fired; v != nil {
		set = append(set, "fired = "+a.add(*v))
	}
	if v := u.DueAt; v != nil {
		set = append(set, "due_at = "+a.add(formatTime(*v)))
	}
	return set
}

// insert adds a row and returns its id. When the (user_id, dedupe_key) pair
// already exists, the existing row's id is returned instead.
func (d *DB) insert(ctx context.Context, table string, base *store.CommitmentBase, columns []string, values []any) (int32, error) {
	a := d.newArgs()
	columns = append(append([]string{}, baseInsertColumns...), columns...)
	values = append(baseInsertValues(base), values...)

	stmt := `INSERT INTO ` + table + ` (` + strings.Join(columns, ", ") + `)
		VALUES (` + a.addAll(values...) + `)
		ON CONFLICT (user_id, dedupe_key) DO NOTHING
		RETURNING id`

	var id int32
	err := d.db.QueryRowContext(ctx, stmt, a.list...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows || base.DedupeKey == "" {
		return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	a = d.newArgs()
	query := `SELECT id FROM ` + table + ` WHERE user_id = ` + a.add(base.UserID) + ` AND dedupe_key = ` + a.add(base.DedupeKey)
	if err := d.db.QueryRowContext(ctx, query, a.list...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to find deduplicated row in %s: %w", table, err)
	}
	return id, nil
}

// update applies set to the row (id, userID) inside tx. It always bumps
// updated_at and returns store.ErrNotFound when no row matched.
func (d *DB) update(ctx context.Context, tx *sql.Tx, table string, a *args, set []string, id, userID int32) error {
	set = append(set, "updated_at = "+a.add(d.timestamp()))
	stmt := `UPDATE ` + table + ` SET ` + strings.Join(set, ", ") +
		` WHERE id = ` + a.add(id) + ` AND user_id = ` + a.add(userID)
	result, err := tx.ExecContext(ctx, stmt, a.list...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) delete(ctx context.Context, table string, del *store.DeleteCommitment) error {
	a := d.newArgs()
	stmt := `DELETE FROM ` + table + ` WHERE id = ` + a.add(del.ID) + ` AND user_id = ` + a.add(del.UserID)
	result, err := d.db.ExecContext(ctx, stmt, a.list...)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ArchiveCommitment soft-deletes a row and disables it.
func (d *DB) ArchiveCommitment(ctx context.Context, kind store.Kind, id, userID int32) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	return d.withTx(ctx, func(tx *sql.Tx) error {
		a := d.newArgs()
		set := []string{
			"row_status = " + a.add(string(store.Archived)),
			"enabled = FALSE",
		}
		return d.update(ctx, tx, table, a, set, id, userID)
	})
}
