//go:build !cgo

package sqlstore

// cgoSQLiteUniqueViolation never matches without cgo: the mattn/go-sqlite3
// stub cannot open connections, so it never produces sqlite3.Error values.
func cgoSQLiteUniqueViolation(err error) (matched, unique bool) {
	return false, false
}
