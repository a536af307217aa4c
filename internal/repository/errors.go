package repository

import "errors"

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a concurrent writer won a uniqueness race
var ErrConflict = errors.New("conflicting concurrent write")
