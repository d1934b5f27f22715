// Package migrations embeds the SQL schema migrations applied by golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// FS holds every *.sql migration.
//
//go:embed *.sql
var FS embed.FS

// New returns a migrator reading from FS and writing to the database at dsn.
//
// Postcondition: The caller must Close the returned Migrate.
func New(dsn string) (*migrate.Migrate, error) {
	src, err := iofs.New(FS, ".")
	if err != nil {
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

// Status reports where the schema ended up after Apply.
type Status struct {
	Version uint
	Dirty   bool
	Changed bool
}

// Apply migrates the database at dsn up, or down when down is set. A positive
// steps limits how many migrations run; zero runs all of them.
//
// Postcondition: ErrNoChange is not an error; it yields Changed == false.
func Apply(dsn string, down bool, steps int) (Status, error) {
	if steps < 0 {
		return Status{}, fmt.Errorf("steps must not be negative, got %d", steps)
	}
	m, err := New(dsn)
	if err != nil {
		return Status{}, err
	}
	defer m.Close()

	switch {
	case steps > 0 && down:
		err = m.Steps(-steps)
	case steps > 0:
		err = m.Steps(steps)
	case down:
		err = m.Down()
	default:
		err = m.Up()
	}
	st := Status{Changed: true}
	if errors.Is(err, migrate.ErrNoChange) {
		st.Changed, err = false, nil
	}
	if err != nil {
		return st, fmt.Errorf("applying migrations: %w", err)
	}
	st.Version, st.Dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		err = nil
	}
	return st, err
}

// Up applies every pending migration to the database at dsn.
func Up(dsn string) error {
	_, err := Apply(dsn, false, 0)
	return err
}
