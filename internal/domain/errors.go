package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrQuotaExceeded     = errors.New("storage quota exceeded")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidState      = errors.New("invalid state transition")
	ErrInvalidInput      = errors.New("invalid input")
)
