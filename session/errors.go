package session

import (
	"errors"
	"fmt"
)

var (
	// ErrReleased is returned by every operation on a released session.
	ErrReleased = errors.New("session has been released")

	// ErrTxActive is returned when a transaction is already open.
	ErrTxActive = errors.New("transaction already active")

	// ErrTxNotActive is returned by commit/rollback outside a transaction.
	ErrTxNotActive = errors.New("no active transaction")
)

// QueryError wraps a driver failure with the statement that caused it.
type QueryError struct {
	SQL    string
	Params []any
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v (sql: %s)", e.Err, e.SQL)
}

func (e *QueryError) Unwrap() error { return e.Err }
