package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"

	"github.com/hsarchitect/folio/config"
)

type placeholderStyle int

const (
	placeholderQuestion placeholderStyle = iota
	placeholderDollar
)

// DB wraps a *sql.DB with the dialect differences the stores care about.
type DB struct {
	db          *sql.DB
	driver      string
	placeholder placeholderStyle
}

func resolveSQLDriverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "postgres":
		return "pgx", nil
	case "mysql":
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q", driver)
	}
}

// prepareDSN forces the MySQL options the stores depend on.
func prepareDSN(driver, dsn string) (string, error) {
	if strings.ToLower(driver) != "mysql" {
		return dsn, nil
	}

	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	parsed.ParseTime = true
	parsed.MultiStatements = true

	return parsed.FormatDSN(), nil
}

func Open(cfg config.Database) (*DB, error) {
	driverName, err := resolveSQLDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := prepareDSN(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return NewDB(db, cfg.Driver)
}

// NewDB wraps an already opened handle; driver is the configured name (mysql or postgres).
func NewDB(db *sql.DB, driver string) (*DB, error) {
	driverName, err := resolveSQLDriverName(driver)
	if err != nil {
		return nil, err
	}

	placeholder := placeholderQuestion
	if driverName == "pgx" {
		placeholder = placeholderDollar
	}

	return &DB{db: db, driver: strings.ToLower(driver), placeholder: placeholder}, nil
}

func (d *DB) SQL() *sql.DB { return d.db }

func (d *DB) Driver() string { return d.driver }

func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) postgres() bool { return d.placeholder == placeholderDollar }

// rebind rewrites ? placeholders to $n for postgres. Queries never contain
// literal question marks.
func (d *DB) rebind(query string) string {
	if d.placeholder != placeholderDollar {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
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

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (d *DB) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		// Rollback is safe to call after Commit; it will return sql.ErrTxDone
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Warn().Err(rbErr).Str("op", op).Msg("unexpected error during transaction rollback")
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertID runs an INSERT and returns the generated id. Postgres queries are
// expected to end with RETURNING id.
func (d *DB) insertID(ctx context.Context, ex execer, query string, args ...any) (int64, error) {
	if d.postgres() {
		var id int64
		if err := ex.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d *DB) returningID() string {
	if d.postgres() {
		return " RETURNING id"
	}
	return ""
}

const (
	mysqlDuplicateEntry   = 1062
	mysqlRowIsReferenced  = 1451
	mysqlNoReferencedRow  = 1452
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapError translates driver errors into store sentinels. A foreign key
// violation means ErrInUse on deletes and ErrInvalidReference on writes, so the
// caller says which.
func mapError(err error, onForeignKey error) error {
	if err == nil {
		return nil
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case mysqlRowIsReferenced, mysqlNoReferencedRow:
			return fmt.Errorf("%w: %v", onForeignKey, err)
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %v", onForeignKey, err)
		}
	}

	return err
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// likeOperator is case-insensitive on both dialects; MySQL's default collations already are.
func (d *DB) likeOperator() string {
	if d.postgres() {
		return "ILIKE"
	}
	return "LIKE"
}

func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// NewSQLCatalog builds every store on top of one database handle.
func NewSQLCatalog(d *DB) *Catalog {
	return New(
		&sqlProjectStore{d},
		&sqlProjectTypeStore{d},
		&sqlCategoryStore{d},
		&sqlStudioStore{d},
		&sqlMediaStore{d},
		&sqlUserStore{d},
		d.Ping,
		d.Close,
	)
}
