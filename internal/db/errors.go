package db

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrConstraint is returned (wrapped) when a write violates a UNIQUE or
// other table constraint, e.g. inserting an email that already exists.
var ErrConstraint = errors.New("constraint violation")

// wrapConstraint maps SQLite constraint failures onto ErrConstraint and
// leaves every other error untouched.
func wrapConstraint(err error) error {
	if err == nil {
		return nil
	}
	if isConstraintErr(err) {
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	}
	return err
}

func isConstraintErr(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		// Extended codes keep the primary code in the low byte.
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	// Fallback for drivers that only surface the message.
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "constraint failed")
}
