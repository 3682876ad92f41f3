package services

import "errors"

// Domain-level error values. Handlers map these to HTTP statuses with
// errors.Is; callers can tell a malformed request apart from a state conflict.
var (
	ErrInvalidAmount       = errors.New("transaction amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("operation not allowed in current match state")
	ErrInvalidInput        = errors.New("invalid input")
)
