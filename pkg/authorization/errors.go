package authorization

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidInputCount matches every *InvalidInputCountError.
	ErrInvalidInputCount = errors.New("invalid number of inputs")
	// ErrInvalidOutputCount matches every *InvalidOutputCountError.
	ErrInvalidOutputCount = errors.New("invalid number of outputs")
	// ErrMissingOutputs is returned by Build when no output was added.
	ErrMissingOutputs = errors.New("transaction authorization is missing outputs")
	// ErrNilScheme is returned when no scheme provider was supplied.
	ErrNilScheme = errors.New("no scheme provider")
	// ErrInternalInconsistency marks faults in the padding logic itself,
	// such as a padded key that does not own its paired record. Errors
	// carrying it also carry an assertion-failure marker.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)

// InvalidInputCountError is returned when the number of inputs is out of
// range, either on append or when building.
type InvalidInputCountError struct {
	Actual int // Number of inputs attempted
	Max    int // Maximum number of inputs
}

func (e *InvalidInputCountError) Error() string {
	return fmt.Sprintf("invalid number of inputs - %d, max %d", e.Actual, e.Max)
}

func (e *InvalidInputCountError) Is(target error) bool {
	return target == ErrInvalidInputCount
}

// InvalidOutputCountError is the output counterpart of InvalidInputCountError.
type InvalidOutputCountError struct {
	Actual int // Number of outputs attempted
	Max    int // Maximum number of outputs
}

func (e *InvalidOutputCountError) Error() string {
	return fmt.Sprintf("invalid number of outputs - %d, max %d", e.Actual, e.Max)
}

func (e *InvalidOutputCountError) Is(target error) bool {
	return target == ErrInvalidOutputCount
}

// SchemeError wraps a failure surfaced by the scheme provider. The provider
// error is returned unchanged by Unwrap.
type SchemeError struct {
	Op  string // Provider operation that failed
	Err error  // Provider error
}

func (e *SchemeError) Error() string {
	return fmt.Sprintf("scheme error: %s: %v", e.Op, e.Err)
}

func (e *SchemeError) Unwrap() error {
	return e.Err
}

func schemeError(op string, err error) error {
	return &SchemeError{Op: op, Err: err}
}

// internalError reports a broken invariant as a returned error instead of
// a panic.
func internalError(format string, args ...interface{}) error {
	return errors.WithAssertionFailure(errors.Wrapf(ErrInternalInconsistency, format, args...))
}
