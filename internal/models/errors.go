package models

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
	ErrInvalidMaterial     = errors.New("invalid material")
	ErrInvalidPickup       = errors.New("invalid pickup")
)
