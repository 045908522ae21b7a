package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

// MigrationStatus is the schema version recorded by golang-migrate.
// Applied is false on a database that has never been migrated.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	Applied bool
}

// MigrationRunner applies the SQL files under migrations/ (assessment audit
// records and causality reviews).
type MigrationRunner struct {
	m   *migrate.Migrate
	log *logrus.Logger
}

// migrateLogger routes golang-migrate output through logrus at debug level.
type migrateLogger struct{ log *logrus.Logger }

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Debugf("migrate: "+format, v...)
}

func (l migrateLogger) Verbose() bool { return l.log.IsLevelEnabled(logrus.DebugLevel) }

// NewMigrationRunner opens the migration source directory and target database.
func NewMigrationRunner(databaseURL, migrationsPath string, logger *logrus.Logger) (*MigrationRunner, error) {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating migration instance: %w", err)
	}
	m.Log = migrateLogger{log: logger}

	return &MigrationRunner{m: m, log: logger}, nil
}

// Up applies every pending migration.
func (r *MigrationRunner) Up(ctx context.Context) error {
	return r.run(ctx, "up", r.m.Up)
}

// Down rolls back the most recent migration.
func (r *MigrationRunner) Down(ctx context.Context) error {
	status, err := r.Status()
	if err != nil {
		return err
	}
	if !status.Applied {
		r.log.Info("No migrations to roll back")
		return nil
	}
	return r.run(ctx, "down", func() error { return r.m.Steps(-1) })
}

// run refuses to touch a dirty schema and stops between migrations once ctx is done.
func (r *MigrationRunner) run(ctx context.Context, direction string, step func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	before, err := r.Status()
	if err != nil {
		return err
	}
	if before.Dirty {
		return fmt.Errorf("schema version %d is dirty, repair it and force the version before migrating", before.Version)
	}

	stop := context.AfterFunc(ctx, func() {
		select {
		case r.m.GracefulStop <- true:
		default:
		}
	})
	defer stop()

	if err := step(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			r.log.WithField("version", before.Version).Info("Schema is already up to date")
			return nil
		}
		return fmt.Errorf("migrating %s: %w", direction, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("migrating %s interrupted: %w", direction, err)
	}

	after, err := r.Status()
	if err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{
		"direction": direction,
		"from":      before.Version,
		"to":        after.Version,
	}).Info("Schema migrated")
	return nil
}

// Status reports the current schema version.
func (r *MigrationRunner) Status() (MigrationStatus, error) {
	version, dirty, err := r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("reading schema version: %w", err)
	}
	return MigrationStatus{Version: version, Dirty: dirty, Applied: true}, nil
}

// Close releases the migration source and database handles.
func (r *MigrationRunner) Close() error {
	sourceErr, dbErr := r.m.Close()
	return errors.Join(sourceErr, dbErr)
}
