package sqlite

import (
	"errors"
	"strings"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// constraintFailed matches a constraint error by its extended result code,
// falling back to the message text for wrapped driver errors.
func constraintFailed(err error, code int, text string) bool {
	if err == nil {
		return false
	}
	var se *moderncsqlite.Error
	if errors.As(err, &se) && se.Code() == code {
		return true
	}
	return strings.Contains(err.Error(), text)
}

func isForeignKeyViolation(err error) bool {
	return constraintFailed(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, "FOREIGN KEY constraint failed")
}

// isUniqueViolation also covers primary keys, which SQLite reports with the
// same message.
func isUniqueViolation(err error) bool {
	return constraintFailed(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE, "UNIQUE constraint failed") ||
		constraintFailed(err, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, "UNIQUE constraint failed")
}

func isCheckViolation(err error) bool {
	return constraintFailed(err, sqlite3.SQLITE_CONSTRAINT_CHECK, "CHECK constraint failed")
}
