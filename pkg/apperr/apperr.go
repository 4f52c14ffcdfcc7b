// Package apperr defines the error kinds surfaced to API callers.
package apperr

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type Kind string

const (
	KindUnauthenticated  Kind = "unauthenticated"
	KindInvalidArgument  Kind = "invalid-argument"
	KindPermissionDenied Kind = "permission-denied"
	KindInternal         Kind = "internal"
)

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInternal         = errors.New("internal")
)

// Unauthenticated is returned before any side effect when the caller has no
// valid identity.
func Unauthenticated() error {
	return fmt.Errorf("%w: user must be authenticated", ErrUnauthenticated)
}

// InvalidArgument reports a missing or malformed request field.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// PermissionDenied is returned when an authenticated caller lacks access.
func PermissionDenied() error {
	return fmt.Errorf("%w: caller is not an admin", ErrPermissionDenied)
}

// Internal hides the cause from the caller; callers log the cause first.
func Internal(msg string) error {
	return fmt.Errorf("%w: %s", ErrInternal, msg)
}

// LogInternal logs the cause under event and returns Internal(msg).
func LogInternal(log *zap.SugaredLogger, event, msg string, cause error, kv ...any) error {
	log.Errorw(event, append(kv, "err", cause)...)
	return Internal(msg)
}

// KindOf maps err to its kind. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	default:
		return KindInternal
	}
}

// Message returns the caller-facing message for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if KindOf(err) == KindInternal && !errors.Is(err, ErrInternal) {
		return "internal error"
	}
	return err.Error()
}
