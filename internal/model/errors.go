package model

import (
	"errors"
	"fmt"
)

// Errors returned by contract operations. Every one of them aborts the call
// it was returned from without any state change.
var (
	ErrNotFound            = errors.New("not found")
	ErrNotInitialized      = errors.New("contract is not initialized")
	ErrAlreadyInitialized  = errors.New("contract is already initialized")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrCapacityExceeded    = errors.New("no tickets remaining")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrAlreadyTicketed     = errors.New("account already has a ticket")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNameTaken           = errors.New("event name is already taken")
	ErrNothingToPay        = errors.New("nothing to pay out")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
