package db

import (
	"github.com/pkg/errors"

	"github.com/newstrove/newstrove/internal/profile"
	"github.com/newstrove/newstrove/store"
	"github.com/newstrove/newstrove/store/db/postgres"
	"github.com/newstrove/newstrove/store/db/sqlite"
)

// NewDBDriver creates a new db driver based on profile.
//
// PostgreSQL is the production backend; it is the only one with a real vector
// index (pgvector + HNSW). SQLite is supported for development and tests and
// computes vector distances in-process.
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
