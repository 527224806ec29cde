// Package credstore keeps user credentials and the bearer tokens issued to
// them.
//
// Two SQL backends are supported: sqlite (the default, a single file next to
// the service) and Postgres. Both share the same queries, written with `?`
// placeholders and rebound for Postgres.
//
// Tokens are looked up through an xxhash64 of their value (token_hash64) and
// then by exact match on the value itself, so the index stays small while the
// comparison is still exact.
package credstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andrebq/teta/internal/dbx"
	"github.com/cespare/xxhash/v2"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

type (
	Dialect string

	Store struct {
		db      *sql.DB
		dialect Dialect
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
		Active       bool
	}

	Token struct {
		ID     int64
		UserID int64
		Value  string
		Active bool
	}
)

const (
	SQLite   = Dialect("sqlite3")
	Postgres = Dialect("postgres")
)

//go:embed migrations
var migrations embed.FS

// Open connects to the store described by dsn. URLs starting with postgres://
// or postgresql:// select Postgres, anything else is taken as the path of a
// sqlite database file (created if missing).
func Open(ctx context.Context, dsn string) (*Store, error) {
	var (
		db      *sql.DB
		dialect Dialect
		err     error
	)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		dialect = Postgres
		db, err = sql.Open("pgx", dsn)
	default:
		dialect = SQLite
		db, err = openSQLite(dsn)
	}
	if err != nil {
		return nil, err
	}
	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping credential store, cause %w", err)
	}
	return New(db, dialect), nil
}

func openSQLite(file string) (*sql.DB, error) {
	if len(file) == 0 {
		return nil, errors.New("credstore: missing database path")
	}
	err := os.MkdirAll(filepath.Dir(file), 0755)
	if err != nil {
		return nil, fmt.Errorf("unable to create directory to store %v, cause %w", file, err)
	}
	// immediate transactions take the write lock upfront, otherwise two
	// concurrent deletes could deadlock while upgrading their read locks
	connstr := fmt.Sprintf("file:%v?_journal=wal&_busy_timeout=5000&_txlock=immediate&mode=rwc", file)
	db, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v, cause %w", file, err)
	}
	return db, nil
}

// New wraps an already opened connection pool. Migrate must be called before
// the store is used against an empty database.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Migrate brings the schema up to date using the migrations embedded for the
// store dialect.
func (s *Store) Migrate(ctx context.Context) error {
	var gd goose.Dialect
	switch s.dialect {
	case SQLite:
		gd = goose.DialectSQLite3
	case Postgres:
		gd = goose.DialectPostgres
	default:
		return UnsupportedDialect{Dialect: s.dialect}
	}
	fsys, err := fs.Sub(migrations, "migrations/"+string(s.dialect))
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(gd, s.db, fsys)
	if err != nil {
		return fmt.Errorf("unable to prepare migrations, cause %w", err)
	}
	_, err = provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("unable to apply migrations, cause %w", err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	u := User{Username: username, PasswordHash: passwordHash, Active: true}
	err := s.db.QueryRowContext(ctx, s.rebind(`insert into users(username, password_hash, active) values (?, ?, ?) returning user_id`),
		username, passwordHash, true).Scan(&u.ID)
	if isUniqueViolation(err) {
		return User{}, ErrDuplicateUsername
	} else if err != nil {
		return User{}, fmt.Errorf("unable to create user %v, cause %w", username, err)
	}
	return u, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, s.rebind(`select user_id, username, password_hash, active from users where username = ?`), username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	} else if err != nil {
		return User{}, fmt.Errorf("unable to lookup user %v, cause %w", username, err)
	}
	return u, nil
}

// DeleteUser removes the user and every token issued to it in a single
// transaction. ErrNotFound is returned (and nothing is removed) if the user
// does not exist.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, s.rebind(`delete from tokens where user_id = ?`), userID)
		if err != nil {
			return fmt.Errorf("unable to revoke tokens of user %v, cause %w", userID, err)
		}
		res, err := tx.ExecContext(ctx, s.rebind(`delete from users where user_id = ?`), userID)
		if err != nil {
			return fmt.Errorf("unable to delete user %v, cause %w", userID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("unable to delete user %v, cause %w", userID, err)
		} else if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Store) CreateToken(ctx context.Context, userID int64, value string) (Token, error) {
	tk := Token{UserID: userID, Value: value, Active: true}
	err := s.db.QueryRowContext(ctx, s.rebind(`insert into tokens(user_id, token, token_hash64, active) values (?, ?, ?, ?) returning token_id`),
		userID, value, tokenHash(value), true).Scan(&tk.ID)
	if isUniqueViolation(err) {
		return Token{}, ErrDuplicateToken
	} else if err != nil {
		return Token{}, fmt.Errorf("unable to store token for user %v, cause %w", userID, err)
	}
	return tk, nil
}

func (s *Store) FindActiveToken(ctx context.Context, value string) (Token, error) {
	var tk Token
	err := s.db.QueryRowContext(ctx, s.rebind(`select token_id, user_id, token, active from tokens
	where token_hash64 = ? and token = ? and active = ?`), tokenHash(value), value, true).
		Scan(&tk.ID, &tk.UserID, &tk.Value, &tk.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return Token{}, ErrNotFound
	} else if err != nil {
		return Token{}, fmt.Errorf("unable to lookup token, cause %w", err)
	}
	return tk, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("unable to count users, cause %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind turns `?` placeholders into `$n` for Postgres
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			sb.WriteRune(r)
			continue
		}
		n++
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(n))
	}
	return sb.String()
}

func tokenHash(value string) int64 {
	return int64(xxhash.Sum64String(value))
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
