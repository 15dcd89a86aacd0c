package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Error taxonomy surfaced to the engine, per spec.md §4.1/§7.
var (
	// ErrDuplicate signals a unique-constraint conflict on
	// (tenant_id, idempotency_key); the caller should re-read and
	// return the pre-existing job.
	ErrDuplicate = errors.New("store: duplicate submission")
	// ErrNotFound signals a read found no row.
	ErrNotFound = errors.New("store: not found")
	// ErrTransient signals a connection loss or serialization failure;
	// retryable at the loop level.
	ErrTransient = errors.New("store: transient error")
	// ErrFatal signals a schema or permission error; the process
	// should exit non-zero so its supervisor restarts it.
	ErrFatal = errors.New("store: fatal error")
)

const uniqueViolationCode = "23505"

// classify maps a raw pgx/driver error onto the engine's taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == uniqueViolationCode:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.Message)
		case pgErr.Code[:2] == "08": // connection exception
			return fmt.Errorf("%w: %s (%s)", ErrTransient, pgErr.Message, pgErr.Code)
		case pgErr.Code == "40001": // serialization_failure
			return fmt.Errorf("%w: %s", ErrTransient, pgErr.Message)
		case pgErr.Code[:2] == "42": // syntax/access rule violation
			return fmt.Errorf("%w: %s (%s)", ErrFatal, pgErr.Message, pgErr.Code)
		case pgErr.Code[:2] == "28": // invalid authorization
			return fmt.Errorf("%w: %s (%s)", ErrFatal, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("%w: %s", ErrTransient, err.Error())
}
