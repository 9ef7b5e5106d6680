package store

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Migration files live at store/migration/{dialect}/NNNN_description.sql.
// Each dialect keeps its own sequence; the applied version is tracked in a
// single-row schema_version table and all pending files run in one transaction.

//go:embed migration
var migrationFS embed.FS

// MigrateFileNameSplit separates the version from the description.
const MigrateFileNameSplit = "_"

// Migration is one embedded schema change.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
}

// validateMigrationFileName checks if a migration file follows the expected naming convention.
// Expected format: "NNNN_description.sql" where NNNN is a zero-padded number.
func validateMigrationFileName(filename string) (int, error) {
	if !strings.HasSuffix(filename, ".sql") {
		return 0, errors.Errorf("migration file must end in .sql: %s", filename)
	}
	prefix, _, ok := strings.Cut(filename, MigrateFileNameSplit)
	if !ok {
		return 0, errors.Errorf("invalid migration filename format (missing %s): %s", MigrateFileNameSplit, filename)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, errors.Errorf("migration filename must start with a positive number: %s", filename)
	}
	return version, nil
}

// loadMigrations returns the embedded migrations of dialect in version order.
func loadMigrations(dialect string) ([]Migration, error) {
	dir := path.Join("migration", dialect)
	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "no migrations for dialect %q", dialect)
	}

	var migrations []Migration
	seen := map[int]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, err := validateMigrationFileName(entry.Name())
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[version]; ok {
			return nil, errors.Errorf("duplicate migration version %d: %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		data, err := migrationFS.ReadFile(path.Join(dir, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read migration %s", entry.Name())
		}
		migrations = append(migrations, Migration{Version: version, Name: entry.Name(), UpSQL: string(data)})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// LatestSchemaVersion returns the highest embedded migration version for dialect.
func LatestSchemaVersion(dialect string) (int, error) {
	migrations, err := loadMigrations(dialect)
	if err != nil {
		return 0, err
	}
	if len(migrations) == 0 {
		return 0, nil
	}
	return migrations[len(migrations)-1].Version, nil
}

// Migrate applies every pending migration in a single transaction.
func (s *Store) Migrate(ctx context.Context) error {
	dialect := s.driver.Dialect()
	migrations, err := loadMigrations(dialect)
	if err != nil {
		return errors.Wrap(err, "failed to load migrations")
	}

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return errors.Wrap(err, "failed to create schema_version")
	}

	var current int
	err = tx.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return errors.Wrap(err, "failed to init schema_version")
		}
	case err != nil:
		return errors.Wrap(err, "failed to read schema_version")
	}

	latest := current
	if n := len(migrations); n > 0 {
		latest = migrations[n-1].Version
	}
	if current > latest {
		slog.Error("cannot downgrade schema version",
			slog.Int("databaseVersion", current),
			slog.Int("currentVersion", latest),
		)
		return errors.Errorf("cannot downgrade schema version from %d to %d", current, latest)
	}

	update := `UPDATE schema_version SET version = ?`
	if dialect == "postgres" {
		update = `UPDATE schema_version SET version = $1`
	}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		slog.Info("applying migration", slog.String("dialect", dialect), slog.String("file", m.Name))
		if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
			return errors.Wrapf(err, "failed to apply migration %s", m.Name)
		}
		if _, err := tx.ExecContext(ctx, update, m.Version); err != nil {
			return errors.Wrap(err, "failed to update schema_version")
		}
		current = m.Version
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit migrations")
	}
	slog.Debug("schema is up to date", slog.String("dialect", dialect), slog.Int("version", current))
	return nil
}

// CurrentSchemaVersion reads the applied version. It is 0 on a fresh database.
func (s *Store) CurrentSchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.driver.GetDB().QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if err != nil {
		if strings.Contains(err.Error(), "schema_version") || errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to read schema_version")
	}
	return version, nil
}
