package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for database operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrAlreadyExists indicates a row with the same unique key exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInUse indicates a row is still referenced, e.g. a role assigned to profiles.
	ErrInUse = errors.New("still referenced")
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// wrapQueryError maps Postgres errors onto the sentinel errors. Errors that
// match none are returned unchanged.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", ErrAlreadyExists, pgErr.Detail)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrInUse, pgErr.Detail)
		}
	}
	return err
}
