package storage

import (
	"errors"
	"fmt"
)

// Kind classifies a storage failure.
type Kind int

const (
	KindDatabase Kind = iota + 1
	KindSerialization
	KindConnection
	KindTransaction
)

func (k Kind) String() string {
	switch k {
	case KindDatabase:
		return "database"
	case KindSerialization:
		return "serialization"
	case KindConnection:
		return "connection"
	case KindTransaction:
		return "transaction"
	}
	return "unknown"
}

// Error is a backend failure. Backends never retry; the caller decides.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrClosed is returned by every operation on a closed backend.
var ErrClosed = &Error{Kind: KindConnection, Op: "use", Err: errors.New("backend is closed")}

func wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Database wraps err as a database failure of op.
func Database(op string, err error) error { return wrap(KindDatabase, op, err) }

// Serialization wraps err as an encode or decode failure of op.
func Serialization(op string, err error) error { return wrap(KindSerialization, op, err) }

// Connection wraps err as a failure to reach the underlying store.
func Connection(op string, err error) error { return wrap(KindConnection, op, err) }

// Transaction wraps err as a begin or commit failure of op.
func Transaction(op string, err error) error { return wrap(KindTransaction, op, err) }

// IsKind reports whether err is a storage Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}
