// services/errors.go - Store error taxonomy
package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrorKind classifies a store failure. Only KindTransient is retried.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTransient
	KindNotFound
	KindPermissionDenied
	KindInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// StoreError is returned by every fail-loud store operation.
type StoreError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Message is the text safe to show to a user.
func (e *StoreError) Message() string {
	switch e.Kind {
	case KindNotFound, KindPermissionDenied, KindInvalid:
		if e.Err != nil {
			return e.Err.Error()
		}
	case KindTransient:
		return "service temporarily unavailable, please retry"
	}
	return "internal error"
}

// NotFound builds a KindNotFound error.
func NotFound(op, msg string) error {
	return &StoreError{Op: op, Kind: KindNotFound, Err: errors.New(msg)}
}

// Forbidden builds a KindPermissionDenied error.
func Forbidden(op, msg string) error {
	return &StoreError{Op: op, Kind: KindPermissionDenied, Err: errors.New(msg)}
}

// Invalid builds a KindInvalid error.
func Invalid(op, msg string) error {
	return &StoreError{Op: op, Kind: KindInvalid, Err: errors.New(msg)}
}

// wrap attaches op to err, classifying raw backend errors. Errors that are
// already StoreErrors keep their kind.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Kind: Classify(err), Err: err}
}

// KindOf returns the kind of a StoreError in err's chain, classifying raw errors otherwise.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return Classify(err)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// Classify maps a raw driver or context error onto an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return KindNotFound
	}
	if errors.Is(err, context.Canceled) {
		return KindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifySQLState(pgErr.Code)
	}

	// Check OpError first since it also implements net.Error
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy") {
		return KindTransient
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(msg, "unique constraint") {
		return KindInvalid
	}

	return KindUnknown
}

func classifySQLState(code string) ErrorKind {
	switch {
	case code == "40001", code == "40P01":
		return KindTransient
	case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "53"), strings.HasPrefix(code, "57P0"):
		return KindTransient
	case code == "42501":
		return KindPermissionDenied
	case strings.HasPrefix(code, "23"), strings.HasPrefix(code, "22"):
		return KindInvalid
	}
	return KindUnknown
}
