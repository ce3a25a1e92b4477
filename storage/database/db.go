package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/fs"
)

const uniqueViolation = "23505"

func init() {
	goose.SetBaseFS(appfs.FS)
}

func dsn(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	return sqlx.Open("postgres", dsn(dbName, admin, conf))
}

func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(db *sqlx.DB, query, name string) (bool, error) {
	var found bool
	if err := db.Get(&found, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return found, nil
}

func createAppUser(db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" || conf.Database.User == conf.Database.AdminUser {
		return nil
	}

	found, err := exists(db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		q := fmt.Sprintf(
			"CREATE USER %s CREATEDB ENCRYPTED PASSWORD %s",
			pq.QuoteIdentifier(conf.Database.User), pq.QuoteLiteral(conf.Database.Password),
		)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the app user (as admin) then the app database (as the app user).
func CreateIfNotExist(conf *core.Config) error {
	admin, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = admin.Close() }()

	if err = ping(admin.DB); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(admin, conf); err != nil {
		return err
	}

	db, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()
	return createDB(db, conf)
}

func Migrate(db *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting dialect")
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// IsUniqueViolation tells whether err comes from a unique index.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

type txKey struct{}

// Transactor runs functions in a Postgres transaction carried by the context.
type Transactor struct {
	db *sqlx.DB
}

var _ core.Transactor = (*Transactor)(nil)

func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// Executor returns the transaction carried by ctx, or db itself.
func Executor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}
