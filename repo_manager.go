package auth

import (
	"context"
	"database/sql"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/goliatone/go-errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() *Users
}

// DialectFromDSN picks the database dialect for a connection string.
// Anything that is not a postgres URL is treated as a sqlite DSN.
func DialectFromDSN(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Store owns the database handle. It is opened once at process start and
// closed at shutdown, every component receives it explicitly.
type Store struct {
	db      *bun.DB
	dsn     string
	dialect string
	users   *Users
	logger  Logger
}

var _ RepositoryManager = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the store logger.
func WithStoreLogger(logger Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// OpenStore connects to dsn and verifies the connection.
func OpenStore(ctx context.Context, dsn string, opts ...StoreOption) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is required", errors.CategoryInternal)
	}

	dialect := DialectFromDSN(dsn)

	var db *bun.DB
	switch dialect {
	case DialectPostgres:
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "open postgres")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "open sqlite")
		}
		// a sqlite memory database lives in a single connection
		if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
			sqldb.SetMaxOpenConns(1)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}

	s := NewStore(db, dialect, opts...)
	s.dsn = dsn

	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.CategoryInternal, "ping database")
	}

	return s, nil
}

// NewStore wraps an existing bun database.
func NewStore(db *bun.DB, dialect string, opts ...StoreOption) *Store {
	s := &Store{
		db:      db,
		dialect: dialect,
		users:   NewUsersRepository(db),
		logger:  defLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate applies the embedded migrations for the store dialect.
func (s *Store) Migrate(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	src, err := iofs.New(migrationsFS, MigrationsPath(s.dialect))
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "migrate source")
	}

	var m *migrate.Migrate
	switch s.dialect {
	case DialectPostgres:
		m, err = migrate.NewWithSourceInstance("iofs", src, s.dsn)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "migrate")
		}
		defer func() { _, _ = m.Close() }()
	default:
		// closing the sqlite driver would close the shared handle, only
		// the source is released here
		driver, err := sqlite.WithInstance(s.db.DB, &sqlite.Config{})
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "migrate driver")
		}
		m, err = migrate.NewWithInstance("iofs", src, DialectSQLite, driver)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "migrate")
		}
		defer func() { _ = src.Close() }()
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.CategoryInternal, "migrate up")
	}

	s.logger.Info("database migrated", "dialect", s.dialect)
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying bun database.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Dialect returns the store dialect.
func (s *Store) Dialect() string {
	return s.dialect
}

func (s *Store) Validate() error {
	if s.db == nil {
		return errors.New("store database should be initialized", errors.CategoryInternal)
	}
	if s.users == nil {
		return errors.New("repository users should be initialized", errors.CategoryInternal)
	}
	return nil
}

func (s *Store) MustValidate() {
	if err := s.Validate(); err != nil {
		panic(err)
	}
}

func (s *Store) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return s.db.RunInTx(ctx, opts, f)
	}
}

func (s *Store) Users() *Users {
	return s.users
}
