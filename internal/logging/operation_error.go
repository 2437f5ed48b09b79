package logging

import "fmt"

// OperationError annotates an error with the operation that produced it.
type OperationError struct {
	Op        string
	RequestID string
	Err       error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	if e.RequestID != "" {
		return fmt.Sprintf("%s (request_id=%s): %v", e.Op, e.RequestID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewOperationError wraps err with the operation and request it belongs to.
// It returns nil for a nil err, and leaves an existing OperationError for the
// same operation untouched so repeated wrapping does not stack prefixes.
func NewOperationError(op, requestID string, err error) error {
	if err == nil {
		return nil
	}
	if existing, ok := err.(*OperationError); ok && existing.Op == op {
		if existing.RequestID == "" && requestID != "" {
			return &OperationError{Op: op, RequestID: requestID, Err: existing.Err}
		}
		return existing
	}
	return &OperationError{Op: op, RequestID: requestID, Err: err}
}
