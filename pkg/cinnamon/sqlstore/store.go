// Package sqlstore persists cinnamon sessions in SQLite or PostgreSQL.
//
// Queries live in the embedded queries.sql and are loaded with dotsql;
// placeholders are rebound per driver with sqlx.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/qustavo/dotsql"

	"github.com/ajaimes/cinnamon/pkg/cinnamon"
)

//go:embed queries.sql
var queriesSQL string

// Connection pool limits
const (
	maxOpenConns    = 16
	maxIdleConns    = 4
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// Open establishes a database connection from a URL.
// Supported URL schemes: sqlite://, postgres://
// SQLite URLs: sqlite://path/to/file.db, sqlite:///absolute/path or
// sqlite://:memory:
// The caller imports the driver (github.com/mattn/go-sqlite3 or
// github.com/lib/pq).
func Open(dbURL string) (*sqlx.DB, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid database URL")
	}

	var driverName, dataSource string
	switch u.Scheme {
	case "sqlite":
		driverName = "sqlite3"
		if u.Host != "" {
			dataSource = u.Host + u.Path
		} else {
			dataSource = u.Path
		}
	case "postgres", "postgresql":
		driverName = "postgres"
		dataSource = dbURL
	default:
		return nil, errors.Errorf("unsupported database scheme: %s (expected sqlite or postgres)", u.Scheme)
	}

	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)
	db.SetConnMaxLifetime(connMaxLifetime)
	if driverName == "sqlite3" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return db, nil
}

// Store implements cinnamon.SessionStore on a SQL database
type Store struct {
	db  *sqlx.DB
	dot *dotsql.DotSql
	now func() time.Time
}

var _ cinnamon.SessionStore = (*Store)(nil)

// New loads the queries and creates the sessions table if needed
func New(ctx context.Context, db *sqlx.DB) (*Store, error) {
	dot, err := dotsql.LoadFromString(queriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse queries")
	}
	s := &Store{db: db, dot: dot, now: time.Now}
	if _, err := s.exec(ctx, "create-sessions-table"); err != nil {
		return nil, errors.Wrap(err, "failed to create sessions table")
	}
	return s, nil
}

func (s *Store) query(name string) (string, error) {
	q, err := s.dot.Raw(name)
	if err != nil {
		return "", errors.Errorf("query not found: %s", name)
	}
	return s.db.Rebind(q), nil
}

func (s *Store) exec(ctx context.Context, name string, args ...any) (sql.Result, error) {
	q, err := s.query(name)
	if err != nil {
		return nil, err
	}
	return s.db.ExecContext(ctx, q, args...)
}

// Save upserts the session data
func (s *Store) Save(ctx context.Context, id string, data []byte, expiresAt time.Time) error {
	_, err := s.exec(ctx, "save-session", id, string(data), expiresAt.UnixMilli())
	return errors.Wrapf(err, "saving session %s", id)
}

// Load returns the session data, or nil when it is missing or expired
func (s *Store) Load(ctx context.Context, id string) ([]byte, error) {
	q, err := s.query("load-session")
	if err != nil {
		return nil, err
	}
	var data string
	err = s.db.GetContext(ctx, &data, q, id, s.now().UnixMilli())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading session %s", id)
	}
	return []byte(data), nil
}

// Delete removes the session
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.exec(ctx, "delete-session", id)
	return errors.Wrapf(err, "deleting session %s", id)
}

// DeleteExpired removes every expired session and reports how many
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, "delete-expired-sessions", s.now().UnixMilli())
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired sessions")
	}
	return res.RowsAffected()
}

// Count returns the number of stored sessions, expired ones included
func (s *Store) Count(ctx context.Context) (int, error) {
	q, err := s.query("count-sessions")
	if err != nil {
		return 0, err
	}
	var n int
	err = s.db.GetContext(ctx, &n, q)
	return n, errors.Wrap(err, "counting sessions")
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
