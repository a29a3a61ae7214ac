package persistence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun/driver/pgdriver"
	"modernc.org/sqlite"
)

// Storage failure classes. Transient failures are retried by the
// Executor; fatal ones are logged and abandoned.
var (
	ErrTransient = errors.New("transient storage failure")
	ErrFatal     = errors.New("fatal storage failure")
)

const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// transient PostgreSQL SQLSTATE codes
var pgTransient = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57P03": true, // cannot_connect_now
}

// Classify wraps err with ErrTransient or ErrFatal. nil stays nil, and an
// already classified error is returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, ErrFatal) {
		return err
	}
	if transient(err) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return fmt.Errorf("%w: %w", ErrFatal, err)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	if errors.Is(err, ErrFatal) {
		return false
	}
	return transient(err)
}

func transient(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff
		return code == sqliteBusy || code == sqliteLocked
	}
	var pe pgdriver.Error
	if errors.As(err, &pe) {
		return pgTransient[pe.Field('C')]
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "database table is locked")
}
