package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/hrygo/samay/internal/profile"
	"github.com/hrygo/samay/store"
	"github.com/hrygo/samay/store/db/sqlcommon"
)

// ============================================================================
// SQLITE SUPPORT (Default, single process)
// ============================================================================
// SQLite is the default store for a single-home deployment. The database runs
// in WAL mode with a busy timeout, and the pool is limited to one connection
// since SQLite allows a single writer.
// ============================================================================

// pragmas are applied by modernc on every new connection.
var pragmas = []string{
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
	"_pragma=foreign_keys(1)",
}

type DB struct {
	*sqlcommon.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database at profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, pkgerrors.New("profile is nil")
	}
	if profile.DSN == "" {
		return nil, pkgerrors.New("dsn required")
	}

	db, err := sql.Open("sqlite", buildDSN(profile.DSN))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, pkgerrors.Wrap(err, "failed to ping database")
	}

	return &DB{
		DB:      sqlcommon.New(db, sqlcommon.Dialect{Name: "sqlite", Placeholder: sqlcommon.QuestionPlaceholder}),
		profile: profile,
	}, nil
}

// buildDSN turns a plain file path into a modernc DSN carrying the pragmas.
func buildDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}

// IsTransientError reports SQLITE_BUSY, SQLITE_LOCKED and dropped connections.
func (d *DB) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}
