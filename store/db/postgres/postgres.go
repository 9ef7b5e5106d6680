package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"

	"github.com/hrygo/samay/internal/profile"
	"github.com/hrygo/samay/store"
	"github.com/hrygo/samay/store/db/sqlcommon"
)

// ============================================================================
// POSTGRESQL SUPPORT (Shared deployments)
// ============================================================================
// PostgreSQL serves deployments where several request handlers and the daemon
// run against one server-side database. The schema is identical to SQLite's;
// only bind-parameter syntax and error classification differ.
// ============================================================================

type DB struct {
	*sqlcommon.DB
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, pkgerrors.New("profile is nil")
	}

	// Open the PostgreSQL connection
	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		slog.Error("failed to open database", slog.String("error", err.Error()))
		return nil, pkgerrors.Wrap(err, "failed to open database")
	}

	// A household assistant sees a handful of concurrent requests at most.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	// Verify connection is working before returning
	if err := db.PingContext(context.Background()); err != nil {
		slog.Error("failed to ping database", slog.String("error", err.Error()))
		db.Close()
		return nil, pkgerrors.Wrap(err, "failed to ping database")
	}

	return &DB{
		DB:      sqlcommon.New(db, sqlcommon.Dialect{Name: "postgres", Placeholder: sqlcommon.DollarPlaceholder}),
		profile: profile,
	}, nil
}

// IsTransientError reports connection exceptions (class 08), serialization
// failures, deadlocks and dropped connections.
func (d *DB) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code.Class() == "08" {
			return true
		}
		switch pqErr.Code {
		case "40001", "40P01", "57P03":
			return true
		}
	}
	return false
}
