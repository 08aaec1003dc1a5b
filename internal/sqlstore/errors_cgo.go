//go:build cgo

package sqlstore

import (
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// cgoSQLiteUniqueViolation reports whether err is a mattn/go-sqlite3 error
// and, if so, whether it is a primary-key or unique constraint failure.
func cgoSQLiteUniqueViolation(err error) (matched, unique bool) {
	var cgoErr sqlite3.Error
	if errors.As(err, &cgoErr) {
		return true, cgoErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			cgoErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false, false
}
