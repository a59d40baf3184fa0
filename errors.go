package objectstore

import (
	goerrors "errors"
	"fmt"

	"github.com/agilira/go-errors"
)

// Error codes for objectstore operations, following the taxonomy in §7.
const (
	ErrCodeInvalidUUID        errors.ErrorCode = "OBJSTORE_INVALID_UUID"
	ErrCodeNotFound           errors.ErrorCode = "OBJSTORE_NOT_FOUND"
	ErrCodeObjectExpired      errors.ErrorCode = "OBJSTORE_OBJECT_EXPIRED"
	ErrCodeIntegrityError     errors.ErrorCode = "OBJSTORE_INTEGRITY_ERROR"
	ErrCodeClassUnknown       errors.ErrorCode = "OBJSTORE_CLASS_UNKNOWN"
	ErrCodeSafeMode           errors.ErrorCode = "OBJSTORE_SAFE_MODE"
	ErrCodeLockTimeout        errors.ErrorCode = "OBJSTORE_LOCK_TIMEOUT"
	ErrCodeIOException        errors.ErrorCode = "OBJSTORE_IO_EXCEPTION"
	ErrCodeSerializationError errors.ErrorCode = "OBJSTORE_SERIALIZATION_ERROR"
	ErrCodeGenerationFailure  errors.ErrorCode = "OBJSTORE_GENERATION_FAILURE"
)

// NewErrInvalidUUID reports a malformed identifier.
func NewErrInvalidUUID(s string) error {
	return errors.NewWithField(ErrCodeInvalidUUID, "invalid UUID", "uuid", s)
}

// NewErrNotFound reports that no record exists for uuid.
func NewErrNotFound(uuid string) error {
	return errors.NewWithField(ErrCodeNotFound, "object not found", "uuid", uuid)
}

// NewErrObjectExpired reports that a record exists but its TTL elapsed.
func NewErrObjectExpired(uuid string) error {
	return errors.NewWithField(ErrCodeObjectExpired, "object expired", "uuid", uuid)
}

// NewErrIntegrity reports a checksum mismatch or a missing sibling file.
func NewErrIntegrity(uuid string, reason string) error {
	return errors.NewWithContext(ErrCodeIntegrityError, "integrity check failed", map[string]interface{}{
		"uuid":   uuid,
		"reason": reason,
	})
}

// NewErrSafeMode reports that a mutation was blocked by safe mode.
func NewErrSafeMode(operation string) error {
	return errors.NewWithField(ErrCodeSafeMode, "safe mode is enabled", "operation", operation)
}

// NewErrLockTimeout reports that lock contention exceeded its timeout.
func NewErrLockTimeout(uuid string, timeoutSec float64) error {
	return errors.NewWithContext(ErrCodeLockTimeout, "lock acquisition timed out", map[string]interface{}{
		"uuid":       uuid,
		"timeoutSec": timeoutSec,
	}).AsRetryable()
}

// NewErrIO wraps an underlying filesystem failure.
func NewErrIO(operation string, cause error) error {
	return errors.Wrap(cause, ErrCodeIOException, "I/O failure").
		WithContext("operation", operation).
		AsRetryable()
}

// NewErrSerialization reports that the strategy could not encode or decode a record.
func NewErrSerialization(uuid string, cause error) error {
	return errors.Wrap(cause, ErrCodeSerializationError, "serialization failed").
		WithContext("uuid", uuid)
}

// NewErrGenerationFailure reports that the UUID generator's RNG refused.
func NewErrGenerationFailure(cause error) error {
	return errors.Wrap(cause, ErrCodeGenerationFailure, "UUID generation failed")
}

// IsNotFound reports whether err is (or wraps) a not-found error.
func IsNotFound(err error) bool { return errors.HasCode(err, ErrCodeNotFound) }

// IsObjectExpired reports whether err is (or wraps) an expiry error.
func IsObjectExpired(err error) bool { return errors.HasCode(err, ErrCodeObjectExpired) }

// IsSafeMode reports whether err is (or wraps) a safe-mode rejection.
func IsSafeMode(err error) bool { return errors.HasCode(err, ErrCodeSafeMode) }

// IsLockTimeout reports whether err is (or wraps) a lock timeout.
func IsLockTimeout(err error) bool { return errors.HasCode(err, ErrCodeLockTimeout) }

// IsIntegrityError reports whether err is (or wraps) a checksum/sibling-file failure.
func IsIntegrityError(err error) bool { return errors.HasCode(err, ErrCodeIntegrityError) }

// ErrorCode extracts the taxonomy code from err, or "" if err carries none.
func ErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}

	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}

	return ""
}

// ErrorUUID extracts the "uuid" context field from err, if err is (or
// wraps) a taxonomy error raised with one, e.g. for the CLI's --json error
// object (§6 `{ "error": "<kind>", "message": "...", "uuid": "..." }`).
func ErrorUUID(err error) string {
	if err == nil {
		return ""
	}

	var goErr *errors.Error
	if !goerrors.As(err, &goErr) {
		return ""
	}

	if v, ok := goErr.Context["uuid"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}

	return ""
}

func fmtWrap(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", op, err)
}
