package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/storage/database"
)

// Drivers
const (
	DriverSQLite   = database.DriverSQLite
	DriverPostgres = database.DriverPostgres
)

var schemas = map[string]string{
	DriverSQLite: `CREATE TABLE IF NOT EXISTS local_storage (
	name       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`,
	DriverPostgres: `CREATE TABLE IF NOT EXISTS local_storage (
	name       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
}

const (
	loadQuery   = `SELECT data FROM local_storage WHERE name = ?`
	deleteQuery = `DELETE FROM local_storage WHERE name = ?`
	saveQuery   = `INSERT INTO local_storage (name, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
)

// Store keeps records in a single key/value table of a SQLite or Postgres database.
type Store struct {
	db *sqlx.DB

	loadQuery   string
	saveQuery   string
	deleteQuery string
}

var _ core.Storage = (*Store)(nil)

// Open connects to the database and creates the table if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := database.Open(ctx, driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening storage")
	}
	if err := database.Migrate(ctx, db, schemas); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating local_storage table")
	}

	return &Store{
		db:          db,
		loadQuery:   db.Rebind(loadQuery),
		saveQuery:   db.Rebind(saveQuery),
		deleteQuery: db.Rebind(deleteQuery),
	}, nil
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	var data string
	if err := s.db.GetContext(ctx, &data, s.loadQuery, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "loading %q", key)
	}
	return []byte(data), nil
}

func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, s.saveQuery, key, string(data), time.Now().UTC())
	return errors.Wrapf(err, "saving %q", key)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.deleteQuery, key)
	return errors.Wrapf(err, "deleting %q", key)
}

func (s *Store) Close() error { return s.db.Close() }
