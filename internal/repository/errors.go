// Package repository holds the MySQL implementations used by the HTTP
// layer and the booking core.  Sentinel errors let handlers distinguish
// failure scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a registration or profile update would
// duplicate another account's email.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when a delete or update cannot be performed
// because of dependent records.
var ErrConflict = errors.New("conflict")

// isDuplicate reports MySQL error 1062 (duplicate key).
func isDuplicate(err error) bool {
	return mysqlErrno(err, 1062)
}

// isMissingRef reports MySQL error 1452: a foreign key names a row that
// does not exist.
func isMissingRef(err error) bool {
	return mysqlErrno(err, 1452)
}

func mysqlErrno(err error, n uint16) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == n
	}
	return strings.Contains(strings.ToLower(err.Error()), strconv.Itoa(int(n)))
}
