// Package store persists the resort's accounts, catalog, bookings and the
// authentication activity log in a relational database. MySQL is the primary
// target; PostgreSQL and SQLite are supported through the same queries.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Dialect names accepted in Options.Driver.
const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Options configures Open.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// Migrate applies pending goose migrations after connecting.
	Migrate bool
	// Lazy skips the initial ping so the pool can be created while the
	// database is down. Migrate is ignored when Lazy is set.
	Lazy bool
}

// Store wraps the connection pool and the dialect it talks to.
type Store struct {
	db      *sqlx.DB
	dialect string
}

// Open connects to the configured database, verifies the connection and
// optionally migrates the schema.
func Open(ctx context.Context, opts Options) (*Store, error) {
	var driverName, dsn string
	switch opts.Driver {
	case DialectMySQL, "":
		opts.Driver = DialectMySQL
		driverName, dsn = "mysql", normalizeMySQLDSN(opts.DSN)
	case DialectPostgres:
		driverName, dsn = "pgx", opts.DSN
	case DialectSQLite:
		driverName, dsn = "sqlite", sqliteDSN(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	var db *sqlx.DB
	var err error
	if opts.Lazy {
		db, err = sqlx.Open(driverName, dsn)
		opts.Migrate = false
	} else {
		db, err = sqlx.ConnectContext(ctx, driverName, dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", opts.Driver, err)
	}

	if opts.Driver == DialectSQLite {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	s := &Store{db: db, dialect: opts.Driver}
	if opts.Migrate {
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	return s, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Dialect returns the configured dialect name.
func (s *Store) Dialect() string { return s.dialect }

// DB exposes the pool for migrations and tests.
func (s *Store) DB() *sql.DB { return s.db.DB }

// insert runs a named INSERT and returns the generated id. PostgreSQL has no
// LastInsertId so the id is read back through RETURNING.
func (s *Store) insert(ctx context.Context, q sqlx.ExtContext, query string, arg interface{}) (int64, error) {
	bound, args, err := q.BindNamed(query, arg)
	if err != nil {
		return 0, err
	}
	if s.dialect == DialectPostgres {
		var id int64
		if err := q.QueryRowxContext(ctx, bound+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := q.ExecContext(ctx, bound, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// exec runs a statement written with "?" placeholders and maps zero affected
// rows to ErrNotFound.
func (s *Store) exec(ctx context.Context, q sqlx.ExtContext, query string, args ...interface{}) error {
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// namedExec is exec for named statements.
func (s *Store) namedExec(ctx context.Context, q sqlx.ExtContext, query string, arg interface{}) error {
	bound, args, err := q.BindNamed(query, arg)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, bound, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// get is sqlx.GetContext with placeholder rebinding and ErrNotFound mapping.
func (s *Store) get(ctx context.Context, q sqlx.QueryerContext, dest interface{}, query string, args ...interface{}) error {
	err := sqlx.GetContext(ctx, q, dest, s.db.Rebind(query), args...)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}

// list is sqlx.SelectContext with placeholder rebinding.
func (s *Store) list(ctx context.Context, q sqlx.QueryerContext, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, q, dest, s.db.Rebind(query), args...)
}

// forUpdate returns the row-locking suffix for dialects that support it.
// SQLite serializes writers on its own.
func (s *Store) forUpdate() string {
	if s.dialect == DialectSQLite {
		return ""
	}
	return " FOR UPDATE"
}

// withTx runs fn inside a transaction, committing on success and rolling back
// on error or panic.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// wrapWrite converts duplicate key errors to ErrConflict and wraps the rest.
func wrapWrite(op string, err error) error {
	if err == nil {
		return nil
	}
	if err == ErrNotFound {
		return ErrNotFound
	}
	if isDuplicate(err) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func now() time.Time {
	return time.Now().UTC()
}
