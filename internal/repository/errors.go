package repository

import "errors"

// ErrVersionConflict is returned when a conditional update finds a newer version.
var ErrVersionConflict = errors.New("row version changed concurrently")
