package txn

import (
	"errors"
	"fmt"
)

// Contract violations. These indicate a caller bug and are never recovered
// from inside the engine.
var (
	ErrAlreadyBound        = errors.New("txn: a resource is already bound to this call chain")
	ErrNotBound            = errors.New("txn: no resource is bound to this call chain")
	ErrNoActiveTransaction = errors.New("txn: no active transaction")
	ErrScopeOrderViolation = errors.New("txn: scopes must complete in reverse order of begin")
)

var (
	// ErrUnexpectedRollback is returned when a commit was requested on a
	// transaction that a joined scope had marked rollback-only. The work was
	// rolled back.
	ErrUnexpectedRollback = errors.New("txn: transaction rolled back because it was marked rollback-only")

	// ErrResourceFailure matches every *ResourceError.
	ErrResourceFailure = errors.New("txn: resource failure")

	ErrProviderRequired   = errors.New("txn: resource provider is required")
	ErrUnknownPropagation = errors.New("txn: unknown propagation")
	ErrScopeRequired      = errors.New("txn: scope is required")
	ErrFuncRequired       = errors.New("txn: transaction function is required")
	ErrUnknownOutcome     = errors.New("txn: unknown outcome")
	ErrHandleRequired     = errors.New("txn: resource handle is required")
)

// ResourceError wraps an error returned by the underlying resource or its
// provider. errors.Is matches both ErrResourceFailure and the wrapped cause.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("txn: %s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

func (e *ResourceError) Is(target error) bool { return target == ErrResourceFailure }

// Kind is reported to structured logs by errs.Loggable.
func (e *ResourceError) Kind() string { return "resource" }

func resourceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ResourceError{Op: op, Err: err}
}

// IsContractViolation reports whether err stems from misuse of the engine or
// registry rather than from the resource or business logic.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrAlreadyBound) ||
		errors.Is(err, ErrNotBound) ||
		errors.Is(err, ErrNoActiveTransaction) ||
		errors.Is(err, ErrScopeOrderViolation)
}
