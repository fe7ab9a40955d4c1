package domain

import "errors"

var (
	ErrNoSession       = errors.New("no active session")
	ErrInvalidResponse = errors.New("invalid response")
)
