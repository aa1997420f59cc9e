// Package repository defines the MySQL data access layer and the error
// values shared across repositories.  Handlers and services compare with
// errors.Is; driver errors never leave this package unwrapped.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a row does not exist or is not owned by the
// caller.  The two cases are indistinguishable.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when registering an address already in use.
var ErrEmailExists = errors.New("email already exists")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
