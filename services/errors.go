package services

import (
	"errors"
	"fmt"
)

var (
	ErrNoBoard               = errors.New("board not loaded")
	ErrColumnNotFound        = errors.New("column not found")
	ErrTaskNotFound          = errors.New("task not found")
	ErrLabelNotFound         = errors.New("label not found")
	ErrChecklistNotFound     = errors.New("checklist not found")
	ErrChecklistItemNotFound = errors.New("checklist item not found")
	ErrNotPermutation        = errors.New("ids are not a permutation of the current order")
	ErrInvalidPriority       = errors.New("priority must be low, medium or high")
	ErrOwnerImmutable        = errors.New("the board owner cannot be removed")
	ErrAlreadyMember         = errors.New("user is already a board member")
	ErrNoFileStore           = errors.New("attachments are not configured")
)

// ErrorKind separates a failed board load from a failed write.
type ErrorKind string

const (
	KindFetch    ErrorKind = "FETCH"
	KindMutation ErrorKind = "MUTATION"
)

// OpError wraps a gateway failure with the store operation that hit it.
type OpError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err came from loading the board.
func IsFetchError(err error) bool {
	var op *OpError
	return errors.As(err, &op) && op.Kind == KindFetch
}
