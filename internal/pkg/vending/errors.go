package vending

import (
	"errors"
	"fmt"
)

// Base error classes. Specific failures wrap one of these so callers can map
// them to a transport status with errors.Is: ErrNotFound -> 404,
// ErrValidation -> 400, ErrConflict -> 409. Everything else is treated as an
// infrastructure failure and surfaces as a server error.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)

var (
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrTreasuryMissing  = fmt.Errorf("treasury account %w", ErrNotFound)
	ErrNoActiveRate     = fmt.Errorf("no active rate plan %w", ErrNotFound)
	ErrDeviceNotOwned   = fmt.Errorf("device %w or not owned by user", ErrNotFound)
	ErrDeviceUnassigned = fmt.Errorf("device has no owner: %w", ErrValidation)
	ErrTransactionGone  = fmt.Errorf("transaction %w", ErrNotFound)

	ErrInvalidUnits  = fmt.Errorf("%w: units must be greater than zero", ErrValidation)
	ErrInvalidStatus = fmt.Errorf("%w: unknown transaction status", ErrValidation)

	ErrTransactionFinal = fmt.Errorf("%w: transaction already in a terminal state", ErrConflict)
)
