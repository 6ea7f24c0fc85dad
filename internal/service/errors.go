package service

import "fmt"

// Operation error kinds. Handlers map each kind to an HTTP status; services
// and workers branch on them without string matching.
const (
	KindValidation             = "validation_error"
	KindConflict               = "conflict"
	KindInvalidTarget          = "invalid_target"
	KindIncompatibleConversion = "incompatible_conversion"
	KindInsufficientQuantity   = "insufficient_quantity"
	KindNotFound               = "not_found"
	KindPartialMerge           = "partial_merge"
)

// OpError is the stable error type for all inventory operations. Every
// rejection an operation can produce carries one of the kinds above.
type OpError struct {
	Kind    string
	Message string
}

func (e *OpError) Error() string { return e.Message }

func newOpError(kind, format string, args ...interface{}) *OpError {
	return &OpError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ErrValidation(format string, args ...interface{}) *OpError {
	return newOpError(KindValidation, format, args...)
}

func ErrConflict(format string, args ...interface{}) *OpError {
	return newOpError(KindConflict, format, args...)
}

func ErrInvalidTarget(format string, args ...interface{}) *OpError {
	return newOpError(KindInvalidTarget, format, args...)
}

func ErrIncompatibleConversion(format string, args ...interface{}) *OpError {
	return newOpError(KindIncompatibleConversion, format, args...)
}

func ErrInsufficientQuantity(format string, args ...interface{}) *OpError {
	return newOpError(KindInsufficientQuantity, format, args...)
}

func ErrNotFound(format string, args ...interface{}) *OpError {
	return newOpError(KindNotFound, format, args...)
}

func ErrPartialMerge(format string, args ...interface{}) *OpError {
	return newOpError(KindPartialMerge, format, args...)
}

// KindOf returns the operation error kind, or "" for non-operation errors.
func KindOf(err error) string {
	if oe, ok := err.(*OpError); ok {
		return oe.Kind
	}
	return ""
}
