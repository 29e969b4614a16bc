package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/hfi/wiki-realnames/internal/wiki"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Dialect selects the SQL driver and placeholder style
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

func (d Dialect) gooseDialect() string {
	if d == DialectSQLite {
		return "sqlite3"
	}
	return "postgres"
}

// SQLStore reads accounts and pages from the wiki database.
//
// Page ids are always read from the primary so a page created or deleted a
// moment ago is reported correctly. Account lookups go to the replica when
// one is configured.
type SQLStore struct {
	primary *sql.DB
	replica *sql.DB
	dialect Dialect
}

// NewSQLStore wraps already opened handles. replica may be nil.
func NewSQLStore(primary, replica *sql.DB, dialect Dialect) *SQLStore {
	if replica == nil {
		replica = primary
	}
	return &SQLStore{
		primary: primary,
		replica: replica,
		dialect: dialect,
	}
}

// OpenSQLStore opens the primary and optional replica databases
func OpenSQLStore(ctx context.Context, dialect Dialect, dsn, replicaDSN string) (*SQLStore, error) {
	if dialect != DialectSQLite && dialect != DialectPostgres {
		return nil, fmt.Errorf("unsupported SQL dialect %q", dialect)
	}

	primary, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == DialectSQLite {
		primary.SetMaxOpenConns(1)
	}
	if err := primary.PingContext(ctx); err != nil {
		primary.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	var replica *sql.DB
	if replicaDSN != "" {
		replica, err = sql.Open(dialect.driverName(), replicaDSN)
		if err != nil {
			primary.Close()
			return nil, fmt.Errorf("failed to open replica: %w", err)
		}
		if err := replica.PingContext(ctx); err != nil {
			primary.Close()
			replica.Close()
			return nil, fmt.Errorf("failed to ping replica: %w", err)
		}
	}

	return NewSQLStore(primary, replica, dialect), nil
}

// Migrate applies the embedded schema migrations to the primary
func (s *SQLStore) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(s.dialect.gooseDialect()); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.primary, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// AccountByName looks an account up by login name
func (s *SQLStore) AccountByName(ctx context.Context, name string) (*wiki.Account, error) {
	query := s.rebind(`SELECT name, real_name FROM account WHERE name = ?`)

	var a wiki.Account
	err := s.replica.QueryRowContext(ctx, query, name).Scan(&a.Name, &a.RealName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wiki.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by name: %w", err)
	}
	return &a, nil
}

// AccountByRealName returns the first account, by name, with the given real name
func (s *SQLStore) AccountByRealName(ctx context.Context, realName string) (*wiki.Account, error) {
	if realName == "" {
		return nil, wiki.ErrAccountNotFound
	}
	query := s.rebind(`SELECT name, real_name FROM account WHERE real_name = ? ORDER BY name LIMIT 1`)

	var a wiki.Account
	err := s.replica.QueryRowContext(ctx, query, realName).Scan(&a.Name, &a.RealName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wiki.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by real name: %w", err)
	}
	return &a, nil
}

// CurrentPageID returns the page id for title from the primary, or
// wiki.PageIDMissing when there is no such page.
func (s *SQLStore) CurrentPageID(ctx context.Context, title wiki.Title) (int64, error) {
	query := s.rebind(`SELECT page_id FROM page WHERE namespace = ? AND title = ?`)

	var id int64
	err := s.primary.QueryRowContext(ctx, query, int(title.Namespace()), title.DBKey()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return wiki.PageIDMissing, nil
	}
	if err != nil {
		return wiki.PageIDMissing, fmt.Errorf("failed to get page id: %w", err)
	}
	return id, nil
}

// PutAccount creates or updates an account
func (s *SQLStore) PutAccount(ctx context.Context, name, realName string) error {
	query := s.rebind(`INSERT INTO account (name, real_name) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET real_name = excluded.real_name`)
	if _, err := s.primary.ExecContext(ctx, query, name, realName); err != nil {
		return fmt.Errorf("failed to put account: %w", err)
	}
	return nil
}

// PutPage creates or updates the page row for title
func (s *SQLStore) PutPage(ctx context.Context, title wiki.Title, id int64) error {
	query := s.rebind(`INSERT INTO page (page_id, namespace, title) VALUES (?, ?, ?)
		ON CONFLICT (namespace, title) DO UPDATE SET page_id = excluded.page_id`)
	if _, err := s.primary.ExecContext(ctx, query, id, int(title.Namespace()), title.DBKey()); err != nil {
		return fmt.Errorf("failed to put page: %w", err)
	}
	return nil
}

// DeletePage removes the page row for title
func (s *SQLStore) DeletePage(ctx context.Context, title wiki.Title) error {
	query := s.rebind(`DELETE FROM page WHERE namespace = ? AND title = ?`)
	if _, err := s.primary.ExecContext(ctx, query, int(title.Namespace()), title.DBKey()); err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	return nil
}

// Ping checks both handles
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.primary.PingContext(ctx); err != nil {
		return err
	}
	if s.replica != s.primary {
		return s.replica.PingContext(ctx)
	}
	return nil
}

// Close closes both handles
func (s *SQLStore) Close() error {
	err := s.primary.Close()
	if s.replica != s.primary {
		if rerr := s.replica.Close(); err == nil {
			err = rerr
		}
	}
	return err
}
