package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrPermissionDenied is returned when the caller may not act on the
// resource, e.g. editing an expense report that already left draft.
var ErrPermissionDenied = errors.New("permission denied")

// ErrInvalidTransition is returned when a status change is not allowed
// by the expense report workflow.
var ErrInvalidTransition = errors.New("invalid status transition")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
