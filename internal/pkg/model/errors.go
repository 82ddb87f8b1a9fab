package model

import "errors"

// ErrNotFound is returned by directories and stores when a looked up record does not exist.
var ErrNotFound = errors.New("record not found")
