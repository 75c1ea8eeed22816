package postgres

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Common database error types that can be used by consumers of this package.
// These provide a standardized set of errors that abstract away the
// underlying database-specific error details.
var (
	// ErrRecordNotFound is returned when a query doesn't find any matching records
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when an insert or update violates a unique constraint
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrForeignKey is returned when an operation violates a foreign key constraint
	ErrForeignKey = errors.New("foreign key violation")

	// ErrInvalidData is returned when the data being saved doesn't meet validation rules
	ErrInvalidData = errors.New("invalid data")

	// ErrSerialization is returned when a transaction could not be serialized or deadlocked
	ErrSerialization = errors.New("serialization failure")

	// ErrConnectionFailed is returned when the server cannot be reached or dropped the connection
	ErrConnectionFailed = errors.New("connection failed")

	// ErrTimeout is returned when a statement was cancelled by a deadline or the server
	ErrTimeout = errors.New("timeout")

	// ErrPermissionDenied is returned for authentication and privilege failures
	ErrPermissionDenied = errors.New("permission denied")

	// ErrSyntax is returned for malformed SQL or references to unknown objects
	ErrSyntax = errors.New("syntax error")
)

// SQLSTATE codes mapped by TranslateError
const (
	codeUniqueViolation         = "23505"
	codeForeignKeyViolation     = "23503"
	codeNotNullViolation        = "23502"
	codeCheckViolation          = "23514"
	codeSerializationFailure    = "40001"
	codeDeadlockDetected        = "40P01"
	codeQueryCanceled           = "57014"
	codeAdminShutdown           = "57P01"
	codeCannotConnectNow        = "57P03"
	codeInvalidPassword         = "28P01"
	codeInsufficientPrivilege   = "42501"
	codeUndefinedTable          = "42P01"
	classConnectionException    = "08"
	classDataException          = "22"
	classSyntaxOrAccessRuleViol = "42"
)

// translatedError keeps the original error reachable after translation
type translatedError struct {
	kind  error
	cause error
}

func (e *translatedError) Error() string   { return e.kind.Error() + ": " + e.cause.Error() }
func (e *translatedError) Unwrap() []error { return []error{e.kind, e.cause} }

// TranslateError converts GORM and driver errors (pgx, lib/pq) into the
// standardized errors above. The result matches both the standardized error and
// the original with errors.Is. Errors that don't match any known type are
// returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	if kind := classify(err); kind != nil {
		if errors.Is(err, kind) {
			return err
		}
		return &translatedError{kind: kind, cause: err}
	}
	return err
}

func classify(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrForeignKey
	case errors.Is(err, gorm.ErrInvalidData):
		return ErrInvalidData
	}

	if code := sqlState(err); code != "" {
		if kind := classifyCode(code); kind != nil {
			return kind
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case pgconn.Timeout(err):
		return ErrTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrTimeout
		}
		return ErrConnectionFailed
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return ErrConnectionFailed
	}
	return nil
}

// sqlState extracts the SQLSTATE from a pgx or lib/pq error
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func classifyCode(code string) error {
	switch code {
	case codeUniqueViolation:
		return ErrDuplicateKey
	case codeForeignKeyViolation:
		return ErrForeignKey
	case codeNotNullViolation, codeCheckViolation:
		return ErrInvalidData
	case codeSerializationFailure, codeDeadlockDetected:
		return ErrSerialization
	case codeQueryCanceled:
		return ErrTimeout
	case codeAdminShutdown, codeCannotConnectNow:
		return ErrConnectionFailed
	case codeInvalidPassword, codeInsufficientPrivilege:
		return ErrPermissionDenied
	case codeUndefinedTable:
		return ErrSyntax
	}

	if len(code) < 2 {
		return nil
	}
	switch code[:2] {
	case classConnectionException:
		return ErrConnectionFailed
	case classDataException:
		return ErrInvalidData
	case classSyntaxOrAccessRuleViol:
		return ErrSyntax
	}
	return nil
}

// ErrorCategory represents different categories of database errors
type ErrorCategory int

const (
	CategoryUnknown ErrorCategory = iota
	CategoryConnection
	CategoryConstraint
	CategoryNotFound
	CategoryData
	CategoryConcurrency
	CategoryTimeout
	CategoryPermission
	CategorySyntax
)

// GetErrorCategory returns the category of the given error
func GetErrorCategory(err error) ErrorCategory {
	err = TranslateError(err)
	switch {
	case err == nil:
		return CategoryUnknown
	case errors.Is(err, ErrConnectionFailed), errors.Is(err, ErrClosed):
		return CategoryConnection
	case errors.Is(err, ErrDuplicateKey), errors.Is(err, ErrForeignKey):
		return CategoryConstraint
	case errors.Is(err, ErrRecordNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrInvalidData):
		return CategoryData
	case errors.Is(err, ErrSerialization):
		return CategoryConcurrency
	case errors.Is(err, ErrTimeout):
		return CategoryTimeout
	case errors.Is(err, ErrPermissionDenied):
		return CategoryPermission
	case errors.Is(err, ErrSyntax):
		return CategorySyntax
	default:
		return CategoryUnknown
	}
}

// IsRetryable returns true if running the whole transaction again may succeed
func IsRetryable(err error) bool {
	switch GetErrorCategory(err) {
	case CategoryConnection, CategoryConcurrency:
		return true
	default:
		return false
	}
}

// IsTemporary returns true if the condition is expected to clear on its own
func IsTemporary(err error) bool {
	return IsRetryable(err) || GetErrorCategory(err) == CategoryTimeout
}

// IsCritical returns true if the error points at configuration or schema problems
// that no retry will fix
func IsCritical(err error) bool {
	switch GetErrorCategory(err) {
	case CategoryPermission, CategorySyntax:
		return true
	default:
		return false
	}
}
