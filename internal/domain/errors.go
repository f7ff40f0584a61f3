package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrPrecondition        = errors.New("precondition failed")
	ErrInsufficientBalance = errors.New("insufficient content unit balance")
)
