package db

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Sentinel errors for database operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDatabaseNotFound indicates a read-only open of a store that does not exist.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConstraint indicates a write rejected by a table constraint other
	// than a key conflict (key conflicts are ignored), e.g. a NULL id.
	ErrConstraint = errors.New("constraint violation")

	// ErrUnknownTable indicates a table name outside the chatdb schema.
	ErrUnknownTable = errors.New("unknown table")

	// ErrWriterClosed indicates use of a Writer after Commit or Close.
	ErrWriterClosed = errors.New("writer closed")
)

// wrapExecError tags SQLite constraint failures with ErrConstraint. Other
// errors are returned unchanged.
func wrapExecError(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	}
	return err
}
