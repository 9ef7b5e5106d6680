package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/samay/internal/profile"
	"github.com/hrygo/samay/store"
	"github.com/hrygo/samay/store/db/postgres"
	"github.com/hrygo/samay/store/db/sqlite"
)

// ============================================================================
// DATABASE SUPPORT POLICY
// ============================================================================
// SQLite: default, single process, WAL mode.
// PostgreSQL: shared deployments.
//
// Both drivers share store/db/sqlcommon. New SQL must stay portable across
// the two dialects rather than forking per driver.
// ============================================================================

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
