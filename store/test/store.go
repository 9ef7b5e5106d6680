package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hrygo/samay/internal/profile"
	"github.com/hrygo/samay/server/timezone"
	"github.com/hrygo/samay/store"
	"github.com/hrygo/samay/store/db"
)

// getDriverFromEnv selects the driver under test. Postgres runs only when
// POSTGRES_TEST_DSN points at a disposable database.
func getDriverFromEnv() string {
	if os.Getenv("DRIVER") == "postgres" && os.Getenv("POSTGRES_TEST_DSN") != "" {
		return "postgres"
	}
	return "sqlite"
}

// NewTestingStore opens a migrated store backed by a fresh database.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	p := &profile.Profile{
		Mode:     "dev",
		Data:     dir,
		Driver:   getDriverFromEnv(),
		Timezone: timezone.TimezoneAsiaKolkata,
	}
	switch p.Driver {
	case "postgres":
		p.DSN = os.Getenv("POSTGRES_TEST_DSN")
	default:
		p.DSN = filepath.Join(dir, "samay_test.db")
	}

	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}
	ts := store.New(driver, p)
	if p.Driver == "postgres" {
		resetPostgres(ctx, t, ts)
	}
	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		ts.Close()
	})
	return ts
}

func resetPostgres(ctx context.Context, t *testing.T, ts *store.Store) {
	t.Helper()
	for _, table := range []string{"alarms", "reminders", "timers", "calendar_events", "schema_version"} {
		if _, err := ts.GetDriver().GetDB().ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			t.Fatalf("failed to reset %s: %v", table, err)
		}
	}
}

func ist(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, timezone.IST)
}

func ptr[T any](v T) *T {
	return &v
}
