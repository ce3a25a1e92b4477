// Package sqlxrepos implements the repositories on Postgres with jmoiron/sqlx.
package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/storage/database"
)

const invalidTextRepresentation = "22P02" // e.g. a malformed uuid

// wrapGetErr turns "no row" (or an id that cannot exist) into a core.NotFoundError.
func wrapGetErr(err error, entity string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.Is(err, sql.ErrNoRows) || (errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation) {
		return core.NewNotFoundError(entity)
	}
	return errors.Wrap(err, "getting "+entity)
}

// wrapWriteErr turns a unique violation into a core.ConflictError.
func wrapWriteErr(err error, op, conflictMsg string) error {
	if err == nil {
		return nil
	}
	if database.IsUniqueViolation(err) {
		return core.NewConflictError(conflictMsg)
	}
	return errors.Wrap(err, op)
}
