package review

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("review not found")
	ErrInvalidTransition = errors.New("invalid reply status transition")
	ErrValidation        = errors.New("invalid reply request")
)

func transitionError(from, to ReplyStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// CheckTransition returns an ErrInvalidTransition-wrapped error when the move
// from -> to is not allowed.
func CheckTransition(from, to ReplyStatus) error {
	if !CanTransition(from, to) {
		return transitionError(from, to)
	}
	return nil
}
